package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/clip2tsx/internal/analyze"
	"github.com/kalambet/clip2tsx/internal/api"
	"github.com/kalambet/clip2tsx/internal/config"
	"github.com/kalambet/clip2tsx/internal/generate"
	"github.com/kalambet/clip2tsx/internal/pipeline"
	"github.com/kalambet/clip2tsx/internal/sample"
	"github.com/kalambet/clip2tsx/internal/storage"
	"github.com/kalambet/clip2tsx/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server (stdio) with an HTTP artifact endpoint",
	Long: `Run clip2tsx as an MCP server over stdio so agents can drive
conversion sessions with tools. An HTTP endpoint serves session
artifacts (drafts, analyses, frames) for inspection on the side.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	client := analyze.NewClientWithBaseURL(cfg.Inference.APIKey, cfg.Inference.Model, cfg.Inference.BaseURL)
	gen := generate.New(client, cfg.Component.Name)
	runner := pipeline.NewRunner(newAcquirer(cfg), sample.NewSampler(cfg.Sampling.Rate), client, gen, nil)
	sessions := api.NewSessionManager(store, runner, gen, cfg.Scratch.Root)

	mcpSrv := api.NewMCPServer(api.MCPDeps{Store: store, Sessions: sessions})
	stdioSrv := server.NewStdioServer(mcpSrv)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Preview.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: newArtifactHandler(cfg.Scratch.Root),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp stdio server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "clip2tsx artifacts on http://%s\n", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("artifact server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newArtifactHandler serves any session's workspace files by ID.
func newArtifactHandler(scratchRoot string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/sessions/{id}/component", artifactFile(scratchRoot, func(ws *workspace.Workspace) string {
		return ws.ComponentPath()
	}, "text/plain; charset=utf-8"))

	r.Get("/sessions/{id}/analysis", artifactFile(scratchRoot, func(ws *workspace.Workspace) string {
		return ws.AnalysisPath()
	}, "text/markdown; charset=utf-8"))

	return r
}

func artifactFile(scratchRoot string, pick func(*workspace.Workspace) string, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		ws, err := workspace.Open(scratchRoot, id)
		if err != nil {
			http.NotFound(w, req)
			return
		}
		b, err := os.ReadFile(pick(ws))
		if err != nil {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(b)
	}
}
