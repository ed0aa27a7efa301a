// Package workspace manages the per-session scratch area. Every
// artifact a session produces (video, frames, analysis, component
// drafts, preview shell) lives under one directory so the
// terminal guarantees are simple: Cleanup removes everything, approval
// leaves everything intact for export.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Workspace is the scratch directory for one session.
type Workspace struct {
	ID   string
	Root string
}

// New creates a fresh session directory under scratchRoot.
func New(scratchRoot string) (*Workspace, error) {
	id := uuid.New().String()[:8]
	root := filepath.Join(scratchRoot, "session-"+id)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "frames"), 0o755); err != nil {
		return nil, fmt.Errorf("creating frames directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "component"), 0o755); err != nil {
		return nil, fmt.Errorf("creating component directory: %w", err)
	}
	return &Workspace{ID: id, Root: root}, nil
}

// Open attaches to an existing session directory, e.g. when the MCP
// server receives feedback for a session started earlier.
func Open(scratchRoot, id string) (*Workspace, error) {
	root := filepath.Join(scratchRoot, "session-"+id)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("session %s not found: %w", id, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("session %s: %s is not a directory", id, root)
	}
	return &Workspace{ID: id, Root: root}, nil
}

// VideoPath returns the location for the acquired clip, keyed by the
// source's extension so ffmpeg can pick the right demuxer.
func (w *Workspace) VideoPath(ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(w.Root, "clip"+ext)
}

// FramesDir returns the directory holding sampled frames.
func (w *Workspace) FramesDir() string {
	return filepath.Join(w.Root, "frames")
}

// AnalysisPath returns the location of the saved motion analysis.
func (w *Workspace) AnalysisPath() string {
	return filepath.Join(w.Root, "analysis.md")
}

// ComponentPath returns the location of the current component draft.
func (w *Workspace) ComponentPath() string {
	return filepath.Join(w.Root, "component", "AnimatedComponent.tsx")
}

// PreviewDir returns the directory of the scaffolded preview app.
func (w *Workspace) PreviewDir() string {
	return filepath.Join(w.Root, "preview")
}

// Artifacts lists every file currently in the workspace, relative to
// its root. Used to verify the zero-residue guarantee after an abort.
func (w *Workspace) Artifacts() ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.Root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return files, nil
}

// Cleanup deletes the session directory and everything in it.
func (w *Workspace) Cleanup() error {
	if w.Root == "" {
		return nil
	}
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("removing session directory: %w", err)
	}
	return nil
}
