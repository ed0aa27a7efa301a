package storage

import (
	"github.com/kalambet/clip2tsx/internal/iterate"
)

// SessionRecorder binds a Store to one session so the feedback loop
// can persist its rounds without knowing about session IDs.
type SessionRecorder struct {
	store     *Store
	sessionID string
	component string
}

func NewSessionRecorder(store *Store, sessionID string) *SessionRecorder {
	return &SessionRecorder{store: store, sessionID: sessionID}
}

// SetComponentPath sets the path recorded on approval.
func (r *SessionRecorder) SetComponentPath(path string) { r.component = path }

func (r *SessionRecorder) RecordIteration(iteration int, quality iterate.Quality, tags []iterate.AdjustmentTag, detail string) error {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return r.store.SaveIteration(IterationRecord{
		SessionID: r.sessionID,
		Number:    iteration,
		Quality:   quality.String(),
		Tags:      EncodeTags(names),
		Detail:    detail,
	})
}

func (r *SessionRecorder) RecordOutcome(phase iterate.Phase, iterations int) error {
	status := "failed"
	component := ""
	switch phase {
	case iterate.PhaseApproved:
		status = "approved"
		component = r.component
	case iterate.PhaseAborted:
		status = "aborted"
	}
	return r.store.FinishSession(r.sessionID, status, iterations, component)
}
