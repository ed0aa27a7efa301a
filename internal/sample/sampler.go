// Package sample extracts still frames from a clip at a fixed rate.
// The frames are ground truth for reviewing the analysis and the
// generated component; nothing downstream parses them automatically.
package sample

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultRate is the sampling rate in frames per second.
const DefaultRate = 2.0

// ErrCorruptMedia means the clip could not be decoded. The stage never
// partially succeeds; on this error no frames remain on disk.
var ErrCorruptMedia = errors.New("corrupt or unsupported media")

// FrameSet is the ordered result of one sampling pass.
type FrameSet struct {
	Dir      string
	Paths    []string
	Rate     float64
	Duration float64
}

// Count returns the number of frames produced.
func (fs *FrameSet) Count() int { return len(fs.Paths) }

// commandResult captures one external command invocation.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Sampler decodes clips with ffmpeg and probes them with ffprobe.
type Sampler struct {
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
	rate        float64
}

// NewSampler constructs a production sampler. rate <= 0 uses DefaultRate.
func NewSampler(rate float64) *Sampler {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Sampler{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      execRunner{},
		rate:        rate,
	}
}

// newSamplerForTests wires a fake runner.
func newSamplerForTests(rate float64, runner commandRunner) *Sampler {
	s := NewSampler(rate)
	s.runner = runner
	return s
}

// Sample probes the clip's duration, extracts floor(duration×rate)
// frames into outDir as frame_001.png, frame_002.png, …, and verifies
// the sequence is complete. Any failure removes every produced frame
// before returning.
func (s *Sampler) Sample(ctx context.Context, videoPath, outDir string) (*FrameSet, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating frames directory: %w", err)
	}

	duration, err := s.probeDuration(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	want := int(math.Floor(duration * s.rate))
	if want < 1 {
		return nil, fmt.Errorf("clip is %.2fs, too short to sample at %.1f fps: %w", duration, s.rate, ErrCorruptMedia)
	}

	pattern := filepath.Join(outDir, "frame_%03d.png")
	args := buildExtractArgs(videoPath, s.rate, want, pattern)
	if _, err := s.runner.Run(ctx, s.ffmpegPath, args...); err != nil {
		s.discard(outDir)
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w", errors.Join(ErrCorruptMedia, err))
	}

	paths, err := collectFrames(outDir, want)
	if err != nil {
		s.discard(outDir)
		return nil, err
	}

	return &FrameSet{Dir: outDir, Paths: paths, Rate: s.rate, Duration: duration}, nil
}

// probeDuration asks ffprobe for the clip duration in seconds.
func (s *Sampler) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	res, err := s.runner.Run(ctx, s.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", videoPath, errors.Join(ErrCorruptMedia, err))
	}

	raw := strings.TrimSpace(res.Stdout)
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("ffprobe returned unusable duration %q: %w", raw, ErrCorruptMedia)
	}
	return duration, nil
}

// discard removes all produced frames, keeping the directory itself.
func (s *Sampler) discard(outDir string) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.Remove(filepath.Join(outDir, e.Name()))
	}
}

// buildExtractArgs builds ffmpeg args for fixed-rate PNG extraction.
// The explicit frame cap makes the floor(duration×rate) count exact.
func buildExtractArgs(inputPath string, rate float64, frames int, pattern string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vf", fmt.Sprintf("fps=%g", rate),
		"-frames:v", strconv.Itoa(frames),
		pattern,
	}
}

// collectFrames lists the produced frames and checks the numbering is
// 1..want with no gaps.
func collectFrames(outDir string, want int) ([]string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("reading frames directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "frame_") && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if len(names) != want {
		return nil, fmt.Errorf("expected %d frames, ffmpeg produced %d: %w", want, len(names), ErrCorruptMedia)
	}
	for i, name := range names {
		if expect := fmt.Sprintf("frame_%03d.png", i+1); name != expect {
			return nil, fmt.Errorf("frame sequence has a gap: found %s, expected %s: %w", name, expect, ErrCorruptMedia)
		}
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(outDir, name)
	}
	return paths, nil
}
