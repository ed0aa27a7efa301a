package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestShellWrite_LaysOutHarness(t *testing.T) {
	dir := t.TempDir()
	err := Shell{ComponentName: "Pulse", ComponentImport: "../../component/Pulse"}.Write(dir)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, f := range []string{"package.json", "vite.config.ts", "index.html", "src/main.tsx", "src/styles.css"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}

	entry, err := os.ReadFile(filepath.Join(dir, "src", "main.tsx"))
	if err != nil {
		t.Fatalf("reading entry: %v", err)
	}
	if !strings.Contains(string(entry), `import Pulse from "../../component/Pulse"`) {
		t.Errorf("entry import wrong:\n%s", entry)
	}
	if !strings.Contains(string(entry), "<Pulse />") {
		t.Errorf("entry does not render component:\n%s", entry)
	}
}

func TestShellWrite_Defaults(t *testing.T) {
	dir := t.TempDir()
	if err := (Shell{}).Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entry, _ := os.ReadFile(filepath.Join(dir, "src", "main.tsx"))
	if !strings.Contains(string(entry), "AnimatedComponent") {
		t.Errorf("default name missing:\n%s", entry)
	}
}

func TestShellWrite_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	if err := (Shell{ComponentName: "A"}).Write(dir); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := (Shell{ComponentName: "B"}).Write(dir); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	entry, _ := os.ReadFile(filepath.Join(dir, "src", "main.tsx"))
	if !strings.Contains(string(entry), "import B from") {
		t.Errorf("shell not overwritten:\n%s", entry)
	}
}
