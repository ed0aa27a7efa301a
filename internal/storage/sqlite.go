package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding session and iteration history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "sessions.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// A single connection sidesteps "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies any embedded SQL migration files not yet recorded in
// schema_version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Sessions ---

func (s *Store) CreateSession(sess Session) error {
	status := sess.Status
	if status == "" {
		status = "active"
	}
	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, created_at, source_kind, source_ref, video_path, duration_sec, frame_count, status, iterations, component_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, createdAt.UTC().Format(time.RFC3339), sess.SourceKind, sess.SourceRef,
		sess.VideoPath, sess.DurationSec, sess.FrameCount, status, sess.Iterations, sess.ComponentPath,
	)
	return err
}

func (s *Store) GetSession(id string) (Session, error) {
	var sess Session
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, source_kind, source_ref, video_path, duration_sec, frame_count, status, iterations, component_path
		FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &createdAt, &sess.SourceKind, &sess.SourceRef, &sess.VideoPath,
		&sess.DurationSec, &sess.FrameCount, &sess.Status, &sess.Iterations, &sess.ComponentPath)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Session{}, fmt.Errorf("parsing created_at: %w", err)
	}
	sess.CreatedAt = t
	return sess, nil
}

// SetSessionMedia records what acquisition and sampling produced.
func (s *Store) SetSessionMedia(id, videoPath string, durationSec float64, frameCount int) error {
	res, err := s.db.Exec(`UPDATE sessions SET video_path = ?, duration_sec = ?, frame_count = ? WHERE id = ?`,
		videoPath, durationSec, frameCount, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// FinishSession marks a session terminal and records how many
// iterations it took. componentPath is empty for aborted sessions.
func (s *Store) FinishSession(id, status string, iterations int, componentPath string) error {
	res, err := s.db.Exec(`UPDATE sessions SET status = ?, iterations = ?, component_path = ? WHERE id = ?`,
		status, iterations, componentPath, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListRecentSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, source_kind, source_ref, video_path, duration_sec, frame_count, status, iterations, component_path
		FROM sessions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Session
	for rows.Next() {
		var sess Session
		var createdAt string
		if err := rows.Scan(&sess.ID, &createdAt, &sess.SourceKind, &sess.SourceRef, &sess.VideoPath,
			&sess.DurationSec, &sess.FrameCount, &sess.Status, &sess.Iterations, &sess.ComponentPath); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		sess.CreatedAt = t
		results = append(results, sess)
	}
	return results, rows.Err()
}

// --- Iterations ---

func (s *Store) SaveIteration(rec IterationRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	tags := rec.Tags
	if tags == "" {
		tags = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO iterations (session_id, number, quality, tags, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, number) DO UPDATE SET quality = excluded.quality, tags = excluded.tags, detail = excluded.detail`,
		rec.SessionID, rec.Number, rec.Quality, tags, rec.Detail,
		createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListIterations(sessionID string) ([]IterationRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, number, quality, tags, detail, created_at
		FROM iterations WHERE session_id = ? ORDER BY number ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IterationRecord
	for rows.Next() {
		var rec IterationRecord
		var createdAt string
		if err := rows.Scan(&rec.SessionID, &rec.Number, &rec.Quality, &rec.Tags, &rec.Detail, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		rec.CreatedAt = t
		results = append(results, rec)
	}
	return results, rows.Err()
}

// EncodeTags serializes adjustment tags for the tags column.
func EncodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppliedMigrations returns applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
