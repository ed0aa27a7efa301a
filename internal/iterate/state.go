// Package iterate drives the generate → preview → feedback → revise
// loop. The state machine is a pure value with a pure transition
// function so it stays independent of any CLI or MCP binding.
package iterate

import (
	"fmt"
	"strings"
)

// Phase is the controller's current position in the loop.
type Phase int

const (
	// PhaseGenerated: a component draft exists and awaits a rating.
	PhaseGenerated Phase = iota
	// PhaseAwaitingDetail: a non-perfect rating arrived; specific
	// adjustment tags and free-text detail are being collected.
	PhaseAwaitingDetail
	// PhaseRevising: feedback is being applied to the component source.
	PhaseRevising
	// PhaseApproved: terminal; the workspace is handed off for export.
	PhaseApproved
	// PhaseAborted: terminal; the workspace is cleaned.
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseGenerated:
		return "generated"
	case PhaseAwaitingDetail:
		return "awaiting-detail"
	case PhaseRevising:
		return "revising"
	case PhaseApproved:
		return "approved"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends the session.
func (p Phase) Terminal() bool {
	return p == PhaseApproved || p == PhaseAborted
}

// Quality is the user's 4-way rating of how well the draft matches.
type Quality int

const (
	QualityUnset Quality = iota
	QualityPerfect
	QualityMinorTweaks
	QualitySeveralIssues
	QualityMajorRework
)

func (q Quality) String() string {
	switch q {
	case QualityPerfect:
		return "perfect"
	case QualityMinorTweaks:
		return "minor-tweaks"
	case QualitySeveralIssues:
		return "several-issues"
	case QualityMajorRework:
		return "major-rework"
	default:
		return "unset"
	}
}

// ParseQuality maps user input to a Quality.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "perfect", "1":
		return QualityPerfect, nil
	case "minor-tweaks", "minor", "2":
		return QualityMinorTweaks, nil
	case "several-issues", "several", "3":
		return QualitySeveralIssues, nil
	case "major-rework", "major", "4":
		return QualityMajorRework, nil
	default:
		return QualityUnset, fmt.Errorf("unknown rating %q", s)
	}
}

// AdjustmentTag categorizes what needs fixing.
type AdjustmentTag string

const (
	TagTiming  AdjustmentTag = "timing"
	TagColors  AdjustmentTag = "colors"
	TagMotion  AdjustmentTag = "motion"
	TagLayout  AdjustmentTag = "layout"
	TagEasing  AdjustmentTag = "easing"
	TagContent AdjustmentTag = "content"
)

// IsCancellation recognizes an explicit abort utterance. Cancellation
// is cooperative: it is only checked at feedback-wait points, never
// mid-call to the acquirer or analyzer.
func IsCancellation(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cancel", "abort", "stop", "quit":
		return true
	}
	return false
}

// State is the iteration record. Owned by the Controller; mutated only
// through Transition.
type State struct {
	Phase     Phase
	Iteration int
	Source    string
	Quality   Quality
	Tags      []AdjustmentTag
	Detail    string
}

// NewState starts the loop at iteration 1 with the first draft.
func NewState(source string) State {
	return State{Phase: PhaseGenerated, Iteration: 1, Source: source}
}

// Event is a user- or system-originated input to the machine.
type Event interface{ isEvent() }

// Rated carries the 4-way match-quality rating.
type Rated struct{ Quality Quality }

// Detailed carries adjustment tags plus free-text detail.
type Detailed struct {
	Tags   []AdjustmentTag
	Detail string
}

// Revised carries the component source produced from the feedback.
type Revised struct{ Source string }

// Aborted is the explicit user cancellation.
type Aborted struct{}

func (Rated) isEvent()    {}
func (Detailed) isEvent() {}
func (Revised) isEvent()  {}
func (Aborted) isEvent()  {}

// Transition is the pure state-transition function. Rules:
//   - Generated + Rated(Perfect)    → Approved
//   - Generated + Rated(other)     → AwaitingDetail (never skipped)
//   - AwaitingDetail + Detailed    → Revising
//   - Revising + Revised           → Generated, iteration+1
//   - any non-terminal + Aborted   → Aborted
//
// Everything else is a protocol error.
func Transition(s State, e Event) (State, error) {
	if s.Phase.Terminal() {
		return s, fmt.Errorf("iterate: no transitions from terminal phase %s", s.Phase)
	}

	if _, ok := e.(Aborted); ok {
		s.Phase = PhaseAborted
		return s, nil
	}

	switch s.Phase {
	case PhaseGenerated:
		ev, ok := e.(Rated)
		if !ok {
			return s, fmt.Errorf("iterate: phase %s expects a rating", s.Phase)
		}
		if ev.Quality == QualityUnset {
			return s, fmt.Errorf("iterate: rating must be set")
		}
		s.Quality = ev.Quality
		if ev.Quality == QualityPerfect {
			s.Phase = PhaseApproved
			return s, nil
		}
		s.Phase = PhaseAwaitingDetail
		return s, nil

	case PhaseAwaitingDetail:
		ev, ok := e.(Detailed)
		if !ok {
			return s, fmt.Errorf("iterate: phase %s expects adjustment detail", s.Phase)
		}
		s.Tags = ev.Tags
		s.Detail = ev.Detail
		s.Phase = PhaseRevising
		return s, nil

	case PhaseRevising:
		ev, ok := e.(Revised)
		if !ok {
			return s, fmt.Errorf("iterate: phase %s expects a revised source", s.Phase)
		}
		s.Source = ev.Source
		s.Iteration++
		s.Quality = QualityUnset
		s.Tags = nil
		s.Detail = ""
		s.Phase = PhaseGenerated
		return s, nil

	default:
		return s, fmt.Errorf("iterate: unknown phase %d", s.Phase)
	}
}
