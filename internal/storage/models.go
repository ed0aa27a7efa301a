package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Session is one conversion run: a media source carried through
// acquisition, sampling, analysis, and the feedback loop.
type Session struct {
	ID            string
	CreatedAt     time.Time
	SourceKind    string // "direct_url", "page_url", "local_path"
	SourceRef     string // URL or path as given by the user
	VideoPath     string
	DurationSec   float64
	FrameCount    int
	Status        string // "active", "approved", "aborted", "failed"
	Iterations    int
	ComponentPath string
}

// IterationRecord is one completed feedback round within a session.
type IterationRecord struct {
	SessionID string
	Number    int
	Quality   string
	Tags      string // JSON array stored as text
	Detail    string
	CreatedAt time.Time
}
