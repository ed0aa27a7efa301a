// Package export moves an approved component out of the scratch
// workspace into the caller's project tree.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrExists is returned when the destination already holds a file and
// Force was not set.
var ErrExists = errors.New("destination already exists")

// Options control one export.
type Options struct {
	// Rename, when non-empty, rewrites the component identifier in the
	// exported source and names the destination file after it.
	Rename string
	// Force allows overwriting an existing destination file.
	Force bool
}

var identRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

// Export copies the approved component at srcPath into destDir. dest
// is created if missing. Returns the written file's path.
func Export(srcPath, destDir string, opts Options) (string, error) {
	source, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("reading component: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	if opts.Rename != "" {
		if !identRe.MatchString(opts.Rename) {
			return "", fmt.Errorf("component name %q must be a PascalCase identifier", opts.Rename)
		}
		source = rewriteIdentifier(source, name, opts.Rename)
		name = opts.Rename
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}

	dest := filepath.Join(destDir, name+".tsx")
	if !opts.Force {
		if _, err := os.Stat(dest); err == nil {
			return "", fmt.Errorf("%s: %w (use --force to overwrite)", dest, ErrExists)
		}
	}

	if err := os.WriteFile(dest, source, 0o644); err != nil {
		return "", fmt.Errorf("writing component: %w", err)
	}
	return dest, nil
}

// rewriteIdentifier replaces whole-word occurrences of the old
// component name. Word boundaries keep substrings like PulseCard
// intact when renaming Pulse.
func rewriteIdentifier(source []byte, from, to string) []byte {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(from) + `\b`)
	return re.ReplaceAll(source, []byte(to))
}
