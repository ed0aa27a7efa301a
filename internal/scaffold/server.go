package scaffold

import (
	"fmt"
	"html"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/clip2tsx/internal/workspace"
)

// NewPreviewHandler serves the current session's artifacts for
// inspection while the feedback loop is running: the draft source, the
// motion analysis, and the sampled frames. The Vite shell in the
// preview dir handles live rendering; this server is the plain-HTTP
// view of the same files.
func NewPreviewHandler(ws *workspace.Workspace) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealthz)
	r.Get("/", handleIndex(ws))
	r.Get("/component", serveFileAs(ws.ComponentPath(), "text/plain; charset=utf-8"))
	r.Get("/analysis", serveFileAs(ws.AnalysisPath(), "text/markdown; charset=utf-8"))
	r.Handle("/frames/*", http.StripPrefix("/frames/", http.FileServer(http.Dir(ws.FramesDir()))))

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleIndex(ws *workspace.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source, err := os.ReadFile(ws.ComponentPath())
		if err != nil {
			http.Error(w, "no draft yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, indexPage, ws.ID, html.EscapeString(string(source)))
	}
}

// serveFileAs serves a single workspace file with a fixed content
// type, 404ing until the pipeline has produced it.
func serveFileAs(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := os.ReadFile(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(b)
	}
}

const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>session %s</title></head>
<body>
<p><a href="/component">component</a> · <a href="/analysis">analysis</a></p>
<pre>%s</pre>
</body>
</html>
`
