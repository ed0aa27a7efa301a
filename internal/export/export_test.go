package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSource = `import React from "react";

export default function AnimatedComponent() {
  return <div className="AnimatedComponentWrap" />;
}
`

func writeComponent(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "AnimatedComponent.tsx")
	if err := os.WriteFile(src, []byte(sampleSource), 0o644); err != nil {
		t.Fatal(err)
	}
	return src
}

func TestExport_CopiesComponent(t *testing.T) {
	src := writeComponent(t)
	destDir := filepath.Join(t.TempDir(), "components")

	dest, err := Export(src, destDir, Options{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(dest) != "AnimatedComponent.tsx" {
		t.Errorf("dest = %q", dest)
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != sampleSource {
		t.Error("exported source differs from draft")
	}
}

func TestExport_RenameRewritesIdentifier(t *testing.T) {
	src := writeComponent(t)
	destDir := t.TempDir()

	dest, err := Export(src, destDir, Options{Rename: "HeroPulse"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(dest) != "HeroPulse.tsx" {
		t.Errorf("dest = %q", dest)
	}
	b, _ := os.ReadFile(dest)
	got := string(b)
	if !strings.Contains(got, "function HeroPulse()") {
		t.Errorf("identifier not rewritten:\n%s", got)
	}
	// Substring occurrences are not whole words and stay put.
	if !strings.Contains(got, "AnimatedComponentWrap") {
		t.Errorf("substring identifier clobbered:\n%s", got)
	}
}

func TestExport_RejectsBadName(t *testing.T) {
	src := writeComponent(t)
	for _, bad := range []string{"lowercase", "My-Thing", "1Up", "with space"} {
		if _, err := Export(src, t.TempDir(), Options{Rename: bad}); err == nil {
			t.Errorf("Export accepted name %q", bad)
		}
	}
}

func TestExport_RefusesOverwriteWithoutForce(t *testing.T) {
	src := writeComponent(t)
	destDir := t.TempDir()

	if _, err := Export(src, destDir, Options{}); err != nil {
		t.Fatalf("first Export: %v", err)
	}

	_, err := Export(src, destDir, Options{})
	if !errors.Is(err, ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}

	if _, err := Export(src, destDir, Options{Force: true}); err != nil {
		t.Errorf("forced Export: %v", err)
	}
}

func TestExport_MissingSource(t *testing.T) {
	_, err := Export(filepath.Join(t.TempDir(), "nope.tsx"), t.TempDir(), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
}
