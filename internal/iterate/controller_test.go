package iterate

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// scriptedFeedback replays a fixed sequence of feedback rounds.
type scriptedFeedback struct {
	ratings []Feedback
	details []Feedback
	ri, di  int
}

func (s *scriptedFeedback) Rate(ctx context.Context, st State) (Feedback, error) {
	if s.ri >= len(s.ratings) {
		return Feedback{}, errors.New("no more scripted ratings")
	}
	fb := s.ratings[s.ri]
	s.ri++
	return fb, nil
}

func (s *scriptedFeedback) Detail(ctx context.Context, st State) (Feedback, error) {
	if s.di >= len(s.details) {
		return Feedback{}, errors.New("no more scripted details")
	}
	fb := s.details[s.di]
	s.di++
	return fb, nil
}

// countingReviser appends a revision marker each time.
type countingReviser struct{ calls int }

func (r *countingReviser) Revise(ctx context.Context, source string, tags []AdjustmentTag, detail string) (string, error) {
	r.calls++
	return fmt.Sprintf("%s+rev%d", source, r.calls), nil
}

// memoryRecorder captures recorded iterations and the outcome.
type memoryRecorder struct {
	iterations []int
	outcome    Phase
}

func (m *memoryRecorder) RecordIteration(iteration int, q Quality, tags []AdjustmentTag, detail string) error {
	m.iterations = append(m.iterations, iteration)
	return nil
}

func (m *memoryRecorder) RecordOutcome(p Phase, iterations int) error {
	m.outcome = p
	return nil
}

func TestRun_PerfectFirstTry(t *testing.T) {
	fb := &scriptedFeedback{ratings: []Feedback{{Quality: QualityPerfect}}}
	rec := &memoryRecorder{}
	c := NewController(fb, &countingReviser{}, rec, Hooks{})

	st, err := c.Run(context.Background(), "draft-v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != PhaseApproved {
		t.Errorf("phase = %s, want approved", st.Phase)
	}
	if st.Iteration != 1 {
		t.Errorf("iteration = %d, want 1", st.Iteration)
	}
	if rec.outcome != PhaseApproved {
		t.Errorf("recorded outcome = %s", rec.outcome)
	}
}

func TestRun_TwoRevisionsThenApproval(t *testing.T) {
	fb := &scriptedFeedback{
		ratings: []Feedback{
			{Quality: QualityMajorRework},
			{Quality: QualityMinorTweaks},
			{Quality: QualityPerfect},
		},
		details: []Feedback{
			{Tags: []AdjustmentTag{TagMotion}, Detail: "wrong direction"},
			{Tags: []AdjustmentTag{TagTiming}, Detail: "a bit fast"},
		},
	}
	reviser := &countingReviser{}
	rec := &memoryRecorder{}

	var drafts []string
	hooks := Hooks{OnDraft: func(st State) error {
		drafts = append(drafts, st.Source)
		return nil
	}}

	c := NewController(fb, reviser, rec, hooks)
	st, err := c.Run(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if st.Phase != PhaseApproved {
		t.Fatalf("phase = %s, want approved", st.Phase)
	}
	if st.Iteration != 3 {
		t.Errorf("iteration = %d, want 3", st.Iteration)
	}
	if reviser.calls != 2 {
		t.Errorf("revise calls = %d, want 2", reviser.calls)
	}
	if len(drafts) != 3 {
		t.Errorf("drafts published = %d, want 3", len(drafts))
	}
	if st.Source != "v1+rev1+rev2" {
		t.Errorf("final source = %q", st.Source)
	}
	// Iterations 1 and 2 recorded with feedback, 3 on approval.
	if len(rec.iterations) != 3 {
		t.Errorf("recorded iterations = %v, want 3 records", rec.iterations)
	}
}

func TestRun_CancelAtRating_Aborts(t *testing.T) {
	fb := &scriptedFeedback{ratings: []Feedback{{Cancel: true}}}
	c := NewController(fb, &countingReviser{}, &memoryRecorder{}, Hooks{})

	st, err := c.Run(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != PhaseAborted {
		t.Errorf("phase = %s, want aborted", st.Phase)
	}
}

func TestRun_CancelAtDetail_Aborts(t *testing.T) {
	fb := &scriptedFeedback{
		ratings: []Feedback{{Quality: QualitySeveralIssues}},
		details: []Feedback{{Cancel: true}},
	}
	rec := &memoryRecorder{}
	c := NewController(fb, &countingReviser{}, rec, Hooks{})

	st, err := c.Run(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != PhaseAborted {
		t.Errorf("phase = %s, want aborted", st.Phase)
	}
	if rec.outcome != PhaseAborted {
		t.Errorf("recorded outcome = %s", rec.outcome)
	}
}

func TestRun_ReviserFailure_SurfacesError(t *testing.T) {
	fb := &scriptedFeedback{
		ratings: []Feedback{{Quality: QualityMinorTweaks}},
		details: []Feedback{{Detail: "tweak"}},
	}
	failing := &failingReviser{}
	c := NewController(fb, failing, &memoryRecorder{}, Hooks{})

	_, err := c.Run(context.Background(), "v1")
	if err == nil {
		t.Fatal("expected error from failing reviser")
	}
}

type failingReviser struct{}

func (failingReviser) Revise(ctx context.Context, source string, tags []AdjustmentTag, detail string) (string, error) {
	return "", errors.New("inference unavailable")
}
