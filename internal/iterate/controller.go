package iterate

import (
	"context"
	"fmt"
	"log/slog"
)

// Feedback is one round of user input gathered at the feedback-wait
// point. Cancel wins over everything else.
type Feedback struct {
	Cancel  bool
	Quality Quality
	Tags    []AdjustmentTag
	Detail  string
}

// FeedbackSource collects a rating (and, when the rating is not
// perfect, adjustment detail) from the user. The wait is unbounded:
// the loop blocks until a human answers.
type FeedbackSource interface {
	// Rate asks for the 4-way match-quality rating for the current draft.
	Rate(ctx context.Context, st State) (Feedback, error)
	// Detail collects adjustment tags and free text after a
	// non-perfect rating.
	Detail(ctx context.Context, st State) (Feedback, error)
}

// Reviser applies collected feedback to the component source.
type Reviser interface {
	Revise(ctx context.Context, source string, tags []AdjustmentTag, detail string) (string, error)
}

// Recorder persists each completed iteration and the terminal outcome.
// The sqlite history store implements it; tests use a fake.
type Recorder interface {
	RecordIteration(iteration int, quality Quality, tags []AdjustmentTag, detail string) error
	RecordOutcome(phase Phase, iterations int) error
}

// Hooks let the binding react to loop milestones (write the draft to
// the workspace, nudge the preview, print progress). All optional.
type Hooks struct {
	OnDraft func(st State) error // after every Generated entry
}

// Controller binds the pure machine to its collaborators and runs the
// loop to a terminal phase.
type Controller struct {
	feedback FeedbackSource
	reviser  Reviser
	recorder Recorder
	hooks    Hooks
	logger   *slog.Logger
}

// NewController wires the loop's collaborators.
func NewController(feedback FeedbackSource, reviser Reviser, recorder Recorder, hooks Hooks) *Controller {
	return &Controller{
		feedback: feedback,
		reviser:  reviser,
		recorder: recorder,
		hooks:    hooks,
		logger:   slog.Default(),
	}
}

// Run starts from the first draft and loops until Approved or Aborted,
// returning the final state. The caller owns the terminal side effects
// (cleanup on abort, handoff on approval).
func (c *Controller) Run(ctx context.Context, firstDraft string) (State, error) {
	st := NewState(firstDraft)
	if err := c.emitDraft(st); err != nil {
		return st, err
	}

	for !st.Phase.Terminal() {
		var err error
		switch st.Phase {
		case PhaseGenerated:
			st, err = c.rate(ctx, st)
		case PhaseAwaitingDetail:
			st, err = c.detail(ctx, st)
		case PhaseRevising:
			st, err = c.revise(ctx, st)
		}
		if err != nil {
			return st, err
		}
	}

	if c.recorder != nil {
		if err := c.recorder.RecordOutcome(st.Phase, st.Iteration); err != nil {
			c.logger.Warn("iterate: recording outcome failed", "error", err)
		}
	}
	return st, nil
}

func (c *Controller) rate(ctx context.Context, st State) (State, error) {
	fb, err := c.feedback.Rate(ctx, st)
	if err != nil {
		return st, fmt.Errorf("collecting rating: %w", err)
	}
	if fb.Cancel {
		return Transition(st, Aborted{})
	}

	c.logger.Info("iterate: draft rated", "iteration", st.Iteration, "quality", fb.Quality)
	next, err := Transition(st, Rated{Quality: fb.Quality})
	if err != nil {
		return st, err
	}

	if next.Phase == PhaseApproved && c.recorder != nil {
		if rerr := c.recorder.RecordIteration(st.Iteration, fb.Quality, nil, ""); rerr != nil {
			c.logger.Warn("iterate: recording iteration failed", "error", rerr)
		}
	}
	return next, nil
}

func (c *Controller) detail(ctx context.Context, st State) (State, error) {
	fb, err := c.feedback.Detail(ctx, st)
	if err != nil {
		return st, fmt.Errorf("collecting adjustment detail: %w", err)
	}
	if fb.Cancel {
		return Transition(st, Aborted{})
	}

	if c.recorder != nil {
		if rerr := c.recorder.RecordIteration(st.Iteration, st.Quality, fb.Tags, fb.Detail); rerr != nil {
			c.logger.Warn("iterate: recording iteration failed", "error", rerr)
		}
	}
	return Transition(st, Detailed{Tags: fb.Tags, Detail: fb.Detail})
}

func (c *Controller) revise(ctx context.Context, st State) (State, error) {
	revised, err := c.reviser.Revise(ctx, st.Source, st.Tags, st.Detail)
	if err != nil {
		return st, fmt.Errorf("revising component: %w", err)
	}

	next, err := Transition(st, Revised{Source: revised})
	if err != nil {
		return st, err
	}
	c.logger.Info("iterate: revision applied", "iteration", next.Iteration)
	return next, c.emitDraft(next)
}

func (c *Controller) emitDraft(st State) error {
	if c.hooks.OnDraft == nil {
		return nil
	}
	if err := c.hooks.OnDraft(st); err != nil {
		return fmt.Errorf("publishing draft: %w", err)
	}
	return nil
}
