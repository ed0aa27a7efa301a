package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/clip2tsx/internal/acquire"
	"github.com/kalambet/clip2tsx/internal/analyze"
	"github.com/kalambet/clip2tsx/internal/sample"
	"github.com/kalambet/clip2tsx/internal/workspace"
)

type fakeAcquirer struct {
	err error
}

func (f *fakeAcquirer) Acquire(ctx context.Context, req acquire.Request, dst acquire.PathFor) (*acquire.Asset, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := dst(".mp4")
	if err := os.WriteFile(path, []byte("clip"), 0o644); err != nil {
		return nil, err
	}
	return &acquire.Asset{Path: path, Size: 4, MIME: "video/mp4"}, nil
}

type fakeSampler struct {
	err    error
	frames int
}

func (f *fakeSampler) Sample(ctx context.Context, videoPath, outDir string) (*sample.FrameSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sample.FrameSet{Dir: outDir, Paths: make([]string, f.frames), Rate: 2.0, Duration: float64(f.frames) / 2.0}, nil
}

type fakeAnalyzer struct {
	err error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, videoPath, mimeType string) (*analyze.Spec, error) {
	if f.err != nil {
		return nil, f.err
	}
	return analyze.ParseSpec("## Layout\ncentered\n## Sequence\npulses"), nil
}

type fakeDrafter struct {
	err error
}

func (f *fakeDrafter) Generate(ctx context.Context, spec *analyze.Spec) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "export default function AnimatedComponent() { return null; }\n", nil
}

func testWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	return ws
}

func TestRun_FullPreparation(t *testing.T) {
	ws := testWorkspace(t)
	var stages []string
	r := NewRunner(&fakeAcquirer{}, &fakeSampler{frames: 20}, &fakeAnalyzer{}, &fakeDrafter{}, func(s string) {
		stages = append(stages, s)
	})

	res, err := r.Run(context.Background(), ws, acquire.DirectURL("https://cdn.example.com/clip.mp4"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Draft == "" {
		t.Error("no draft produced")
	}
	if res.Meta.FrameCount != 20 {
		t.Errorf("FrameCount = %d, want 20", res.Meta.FrameCount)
	}
	want := []string{"acquire", "sample", "analyze", "generate"}
	if strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Errorf("stages = %v, want %v", stages, want)
	}

	if _, err := os.Stat(ws.AnalysisPath()); err != nil {
		t.Errorf("analysis not saved: %v", err)
	}
	if _, err := os.Stat(ws.ComponentPath()); err != nil {
		t.Errorf("draft not saved: %v", err)
	}
}

func TestRun_AcquireFailureIsFatal(t *testing.T) {
	ws := testWorkspace(t)
	r := NewRunner(&fakeAcquirer{err: errors.New("no video found")}, &fakeSampler{}, &fakeAnalyzer{}, &fakeDrafter{}, nil)

	res, err := r.Run(context.Background(), ws, acquire.DirectURL("https://example.com/x.mp4"))
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Asset != nil || res.Frames != nil {
		t.Errorf("partial result should be empty, got %+v", res)
	}
}

func TestRun_SampleFailureIsFatal(t *testing.T) {
	ws := testWorkspace(t)
	r := NewRunner(&fakeAcquirer{}, &fakeSampler{err: sample.ErrCorruptMedia}, &fakeAnalyzer{}, &fakeDrafter{}, nil)

	res, err := r.Run(context.Background(), ws, acquire.DirectURL("https://example.com/x.mp4"))
	if !errors.Is(err, sample.ErrCorruptMedia) {
		t.Fatalf("err = %v, want ErrCorruptMedia", err)
	}
	if res.Asset == nil {
		t.Error("acquired asset should still be reported")
	}
}

func TestRun_AnalysisFailureKeepsFrames(t *testing.T) {
	ws := testWorkspace(t)
	r := NewRunner(&fakeAcquirer{}, &fakeSampler{frames: 10}, &fakeAnalyzer{err: errors.New("giving up after 3 attempts: API overloaded (529)")}, &fakeDrafter{}, nil)

	res, err := r.Run(context.Background(), ws, acquire.DirectURL("https://example.com/x.mp4"))
	if err == nil {
		t.Fatal("expected analysis error to surface")
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("err = %v, want attempt count preserved", err)
	}
	if res.Frames == nil || res.Frames.Count() != 10 {
		t.Error("frames should survive an analysis failure")
	}
	if res.Spec != nil || res.Draft != "" {
		t.Error("no spec or draft expected after analysis failure")
	}
	// The clip itself also stays put.
	if _, statErr := os.Stat(res.Asset.Path); statErr != nil {
		t.Errorf("clip missing after analysis failure: %v", statErr)
	}
}

func TestRun_DraftFailure(t *testing.T) {
	ws := testWorkspace(t)
	r := NewRunner(&fakeAcquirer{}, &fakeSampler{frames: 4}, &fakeAnalyzer{}, &fakeDrafter{err: errors.New("no code block in model reply")}, nil)

	res, err := r.Run(context.Background(), ws, acquire.DirectURL("https://example.com/x.mp4"))
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Spec == nil {
		t.Error("spec should be kept when drafting fails")
	}
}

func TestWriteDraft_CreatesComponentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "component", "Thing.tsx")
	if err := WriteDraft(path, "code\n"); err != nil {
		t.Fatalf("WriteDraft: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "code\n" {
		t.Errorf("content = %q", b)
	}
}
