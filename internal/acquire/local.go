package acquire

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// LocalStrategy copies an existing file into the workspace.
type LocalStrategy struct{}

// NewLocalStrategy creates the local-path strategy.
func NewLocalStrategy() *LocalStrategy { return &LocalStrategy{} }

func (s *LocalStrategy) Name() string { return "local" }

// Fetch validates the path and copies the file into the workspace so
// the session owns its artifacts regardless of the source's lifetime.
func (s *LocalStrategy) Fetch(ctx context.Context, req Request, dst PathFor) (*Asset, error) {
	info, err := os.Stat(req.Value)
	if err != nil {
		return nil, fmt.Errorf("local file %s: %w", req.Value, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("local path %s is a directory", req.Value)
	}

	src, err := os.Open(req.Value)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", req.Value, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(req.Value))
	dest := dst(ext)
	size, err := writeAsset(dest, io.Reader(src))
	if err != nil {
		return nil, err
	}

	return &Asset{Path: dest, Size: size, MIME: mime.TypeByExtension(ext)}, nil
}
