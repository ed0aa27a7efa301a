package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kalambet/clip2tsx/internal/acquire"
	"github.com/kalambet/clip2tsx/internal/analyze"
	"github.com/kalambet/clip2tsx/internal/sample"
	"github.com/kalambet/clip2tsx/internal/workspace"
)

// Metadata captures diagnostic information about one conversion run.
type Metadata struct {
	AcquireMs  int64
	SampleMs   int64
	AnalyzeMs  int64
	GenerateMs int64
	FrameCount int
}

// Result is what a run produced. Spec and Draft are empty when
// analysis failed; Frames survive regardless so the clip can still be
// inspected by hand.
type Result struct {
	Asset  *acquire.Asset
	Frames *sample.FrameSet
	Spec   *analyze.Spec
	Draft  string
	Meta   Metadata
}

// Acquirer fetches the source clip into the workspace.
type Acquirer interface {
	Acquire(ctx context.Context, req acquire.Request, dst acquire.PathFor) (*acquire.Asset, error)
}

// Sampler extracts the frame sequence from the clip.
type Sampler interface {
	Sample(ctx context.Context, videoPath, outDir string) (*sample.FrameSet, error)
}

// Analyzer produces the motion spec from the clip.
type Analyzer interface {
	Analyze(ctx context.Context, videoPath, mimeType string) (*analyze.Spec, error)
}

// Drafter produces the first component draft from the motion spec.
type Drafter interface {
	Generate(ctx context.Context, spec *analyze.Spec) (string, error)
}

// StageFunc is called as each stage starts, for progress reporting.
type StageFunc func(stage string)

// Runner drives one conversion end to end: acquire, sample, analyze,
// first draft. The feedback loop takes over from the draft.
type Runner struct {
	acquirer Acquirer
	sampler  Sampler
	analyzer Analyzer
	drafter  Drafter
	onStage  StageFunc
	logger   *slog.Logger
}

func NewRunner(acquirer Acquirer, sampler Sampler, analyzer Analyzer, drafter Drafter, onStage StageFunc) *Runner {
	if onStage == nil {
		onStage = func(string) {}
	}
	return &Runner{
		acquirer: acquirer,
		sampler:  sampler,
		analyzer: analyzer,
		drafter:  drafter,
		onStage:  onStage,
		logger:   slog.Default(),
	}
}

// Run executes the preparation stages inside ws. Acquisition and
// sampling failures are fatal. An analysis failure (typically retry
// exhaustion against an overloaded inference service) is returned
// alongside a partial Result: the clip and frames stay in the
// workspace as ground truth for a later retry.
func (r *Runner) Run(ctx context.Context, ws *workspace.Workspace, req acquire.Request) (*Result, error) {
	res := &Result{}

	r.onStage("acquire")
	start := time.Now()
	asset, err := r.acquirer.Acquire(ctx, req, ws.VideoPath)
	res.Meta.AcquireMs = time.Since(start).Milliseconds()
	if err != nil {
		return res, fmt.Errorf("acquiring source: %w", err)
	}
	res.Asset = asset
	r.logger.Info("source acquired", "path", asset.Path, "bytes", asset.Size)

	r.onStage("sample")
	start = time.Now()
	frames, err := r.sampler.Sample(ctx, asset.Path, ws.FramesDir())
	res.Meta.SampleMs = time.Since(start).Milliseconds()
	if err != nil {
		return res, fmt.Errorf("sampling frames: %w", err)
	}
	res.Frames = frames
	res.Meta.FrameCount = frames.Count()
	r.logger.Info("frames sampled", "count", frames.Count(), "rate", frames.Rate)

	r.onStage("analyze")
	start = time.Now()
	spec, err := r.analyzer.Analyze(ctx, asset.Path, asset.MIME)
	res.Meta.AnalyzeMs = time.Since(start).Milliseconds()
	if err != nil {
		r.logger.Warn("analysis failed, keeping clip and frames", "error", err)
		return res, fmt.Errorf("analyzing motion: %w", err)
	}
	res.Spec = spec
	if err := spec.Save(ws.AnalysisPath()); err != nil {
		return res, fmt.Errorf("saving analysis: %w", err)
	}

	r.onStage("generate")
	start = time.Now()
	draft, err := r.drafter.Generate(ctx, spec)
	res.Meta.GenerateMs = time.Since(start).Milliseconds()
	if err != nil {
		return res, fmt.Errorf("drafting component: %w", err)
	}
	res.Draft = draft
	if err := WriteDraft(ws.ComponentPath(), draft); err != nil {
		return res, err
	}

	r.logger.Debug("preparation complete",
		"frames", res.Meta.FrameCount,
		"acquire_ms", res.Meta.AcquireMs,
		"analyze_ms", res.Meta.AnalyzeMs,
	)
	return res, nil
}

// WriteDraft persists component source, creating the component dir on
// first write. The feedback loop reuses it for revised drafts.
func WriteDraft(path, source string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating component directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return fmt.Errorf("writing component draft: %w", err)
	}
	return nil
}
