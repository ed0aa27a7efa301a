package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kalambet/clip2tsx/internal/acquire"
	"github.com/kalambet/clip2tsx/internal/analyze"
	"github.com/kalambet/clip2tsx/internal/export"
	"github.com/kalambet/clip2tsx/internal/iterate"
	"github.com/kalambet/clip2tsx/internal/pipeline"
	"github.com/kalambet/clip2tsx/internal/storage"
	"github.com/kalambet/clip2tsx/internal/workspace"
)

// Preparer runs the preparation stages for a new session.
type Preparer interface {
	Run(ctx context.Context, ws *workspace.Workspace, req acquire.Request) (*pipeline.Result, error)
}

// ActiveSession is one in-flight conversion held by the manager. The
// iteration state is advanced by discrete feedback calls rather than a
// blocking loop, because MCP clients deliver feedback one tool call at
// a time.
type ActiveSession struct {
	ID    string
	WS    *workspace.Workspace
	State iterate.State
	Spec  *analyze.Spec
}

// SessionManager owns the set of active sessions and their lifecycle:
// preparation, feedback rounds, approval, abort.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*ActiveSession

	store       *storage.Store
	preparer    Preparer
	reviser     iterate.Reviser
	scratchRoot string
	logger      *slog.Logger
}

func NewSessionManager(store *storage.Store, preparer Preparer, reviser iterate.Reviser, scratchRoot string) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*ActiveSession),
		store:       store,
		preparer:    preparer,
		reviser:     reviser,
		scratchRoot: scratchRoot,
		logger:      slog.Default(),
	}
}

// Start acquires, samples, analyzes, and drafts. On any preparation
// failure the scratch workspace is removed and nothing is left active.
func (m *SessionManager) Start(ctx context.Context, req acquire.Request) (*ActiveSession, error) {
	ws, err := workspace.New(m.scratchRoot)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	if err := m.store.CreateSession(storage.Session{
		ID:         ws.ID,
		SourceKind: req.Kind.String(),
		SourceRef:  req.Value,
	}); err != nil {
		ws.Cleanup()
		return nil, fmt.Errorf("recording session: %w", err)
	}

	res, err := m.preparer.Run(ctx, ws, req)
	if err != nil {
		if ferr := m.store.FinishSession(ws.ID, "failed", 0, ""); ferr != nil {
			m.logger.Warn("marking session failed", "session", ws.ID, "error", ferr)
		}
		ws.Cleanup()
		return nil, err
	}

	if res.Frames != nil {
		if err := m.store.SetSessionMedia(ws.ID, res.Asset.Path, res.Frames.Duration, res.Frames.Count()); err != nil {
			m.logger.Warn("recording session media", "session", ws.ID, "error", err)
		}
	}

	sess := &ActiveSession{
		ID:    ws.ID,
		WS:    ws,
		State: iterate.NewState(res.Draft),
		Spec:  res.Spec,
	}

	m.mu.Lock()
	m.sessions[ws.ID] = sess
	m.mu.Unlock()

	return sess, nil
}

// Get returns an active session by ID.
func (m *SessionManager) Get(id string) (*ActiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no active session %q", id)
	}
	return sess, nil
}

// Feedback applies one round of user feedback. In the rated phase it
// expects a quality; after a non-perfect rating it expects tags and
// detail, revises the draft, and starts the next iteration. A
// cancellation utterance in either field aborts.
func (m *SessionManager) Feedback(ctx context.Context, id, rating string, tags []string, detail string) (*ActiveSession, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	if iterate.IsCancellation(rating) || iterate.IsCancellation(detail) {
		return sess, m.Abort(id)
	}

	switch sess.State.Phase {
	case iterate.PhaseGenerated:
		q, err := iterate.ParseQuality(rating)
		if err != nil {
			return sess, err
		}
		next, err := iterate.Transition(sess.State, iterate.Rated{Quality: q})
		if err != nil {
			return sess, err
		}
		sess.State = next

		if next.Phase == iterate.PhaseApproved {
			return sess, m.finish(sess, q, nil, "")
		}
		// Detail supplied in the same call: fall through to revision.
		if len(tags) > 0 || detail != "" {
			return sess, m.applyDetail(ctx, sess, tags, detail)
		}
		return sess, nil

	case iterate.PhaseAwaitingDetail:
		if len(tags) == 0 && detail == "" {
			return sess, fmt.Errorf("session %s is waiting for adjustment detail", id)
		}
		return sess, m.applyDetail(ctx, sess, tags, detail)

	default:
		return sess, fmt.Errorf("session %s is %s, not waiting for feedback", id, sess.State.Phase)
	}
}

func (m *SessionManager) applyDetail(ctx context.Context, sess *ActiveSession, tagNames []string, detail string) error {
	tags := make([]iterate.AdjustmentTag, len(tagNames))
	for i, n := range tagNames {
		tags[i] = iterate.AdjustmentTag(n)
	}

	rec := storage.NewSessionRecorder(m.store, sess.ID)
	if err := rec.RecordIteration(sess.State.Iteration, sess.State.Quality, tags, detail); err != nil {
		m.logger.Warn("recording iteration", "session", sess.ID, "error", err)
	}

	next, err := iterate.Transition(sess.State, iterate.Detailed{Tags: tags, Detail: detail})
	if err != nil {
		return err
	}
	sess.State = next

	revised, err := m.reviser.Revise(ctx, sess.State.Source, tags, detail)
	if err != nil {
		return fmt.Errorf("revising draft: %w", err)
	}

	next, err = iterate.Transition(sess.State, iterate.Revised{Source: revised})
	if err != nil {
		return err
	}
	sess.State = next

	return pipeline.WriteDraft(sess.WS.ComponentPath(), revised)
}

// finish records approval. The workspace stays on disk so the
// component can be exported and the preview keeps working.
func (m *SessionManager) finish(sess *ActiveSession, q iterate.Quality, tags []iterate.AdjustmentTag, detail string) error {
	rec := storage.NewSessionRecorder(m.store, sess.ID)
	rec.SetComponentPath(sess.WS.ComponentPath())
	if err := rec.RecordIteration(sess.State.Iteration, q, tags, detail); err != nil {
		m.logger.Warn("recording iteration", "session", sess.ID, "error", err)
	}
	return rec.RecordOutcome(sess.State.Phase, sess.State.Iteration)
}

// Abort cancels a session from any non-terminal phase and removes its
// scratch workspace entirely.
func (m *SessionManager) Abort(id string) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}

	next, err := iterate.Transition(sess.State, iterate.Aborted{})
	if err != nil {
		return err
	}
	sess.State = next

	rec := storage.NewSessionRecorder(m.store, sess.ID)
	if err := rec.RecordOutcome(next.Phase, next.Iteration); err != nil {
		m.logger.Warn("recording abort", "session", sess.ID, "error", err)
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	return sess.WS.Cleanup()
}

// Export copies an approved component into destDir.
func (m *SessionManager) Export(id, destDir, rename string, force bool) (string, error) {
	sess, err := m.Get(id)
	if err != nil {
		return "", err
	}
	if sess.State.Phase != iterate.PhaseApproved {
		return "", fmt.Errorf("session %s is %s; only approved components export", id, sess.State.Phase)
	}
	return export.Export(sess.WS.ComponentPath(), destDir, export.Options{Rename: rename, Force: force})
}
