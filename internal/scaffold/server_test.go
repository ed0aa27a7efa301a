package scaffold

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/clip2tsx/internal/workspace"
)

func previewServer(t *testing.T) (*workspace.Workspace, *httptest.Server) {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	srv := httptest.NewServer(NewPreviewHandler(ws))
	t.Cleanup(srv.Close)
	return ws, srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, string(b)
}

func TestPreview_Healthz(t *testing.T) {
	_, srv := previewServer(t)
	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"ok"`) {
		t.Errorf("body = %q", body)
	}
}

func TestPreview_ComponentBeforeAndAfterDraft(t *testing.T) {
	ws, srv := previewServer(t)

	resp, _ := get(t, srv.URL+"/component")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("pre-draft status = %d, want 404", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(ws.ComponentPath()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.ComponentPath(), []byte("export default function X() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, body := get(t, srv.URL+"/component")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "export default function X") {
		t.Errorf("body = %q", body)
	}
}

func TestPreview_IndexEscapesSource(t *testing.T) {
	ws, srv := previewServer(t)
	if err := os.MkdirAll(filepath.Dir(ws.ComponentPath()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.ComponentPath(), []byte("return <div />;"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, body := get(t, srv.URL+"/")
	if strings.Contains(body, "<div />") {
		t.Error("source not escaped in index page")
	}
	if !strings.Contains(body, "&lt;div /&gt;") {
		t.Errorf("escaped source missing: %q", body)
	}
}

func TestPreview_ServesFrames(t *testing.T) {
	ws, srv := previewServer(t)
	if err := os.MkdirAll(ws.FramesDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws.FramesDir(), "frame_001.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, body := get(t, srv.URL+"/frames/frame_001.png")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body != "png-bytes" {
		t.Errorf("body = %q", body)
	}
}
