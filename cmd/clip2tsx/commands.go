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

	"github.com/spf13/cobra"

	"github.com/kalambet/clip2tsx/internal/acquire"
	"github.com/kalambet/clip2tsx/internal/analyze"
	"github.com/kalambet/clip2tsx/internal/config"
	"github.com/kalambet/clip2tsx/internal/export"
	"github.com/kalambet/clip2tsx/internal/generate"
	"github.com/kalambet/clip2tsx/internal/iterate"
	"github.com/kalambet/clip2tsx/internal/pipeline"
	"github.com/kalambet/clip2tsx/internal/sample"
	"github.com/kalambet/clip2tsx/internal/scaffold"
	"github.com/kalambet/clip2tsx/internal/storage"
	"github.com/kalambet/clip2tsx/internal/workspace"
)

// newAcquirer builds the production acquirer with the configured
// browser endpoint.
func newAcquirer(cfg config.Config) *acquire.Acquirer {
	browser := acquire.NewBrowserStrategy()
	browser.ControlURL = cfg.Browser.ControlURL
	return acquire.NewWithStrategies(acquire.NewDirectStrategy(), browser, acquire.NewLocalStrategy())
}

// --- convert ---

var convertCmd = &cobra.Command{
	Use:   "convert <source>",
	Short: "Convert a video or GIF into a React component",
	Long: `Convert a recorded UI animation into a React component.

The source may be a direct media URL, a page URL that embeds the video,
or a local file path. After the first draft you rate how well it
matches; non-perfect ratings collect adjustment detail and produce a
revised draft, until you approve or cancel.

Examples:
  clip2tsx convert https://cdn.example.com/spinner.mp4
  clip2tsx convert https://dribbble.com/shots/12345-loading
  clip2tsx convert ./recording.gif --out ./src/components`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		name, _ := cmd.Flags().GetString("name")
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)
		if name == "" {
			name = cfg.Component.Name
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		ws, err := workspace.New(cfg.Scratch.Root)
		if err != nil {
			return fmt.Errorf("creating workspace: %w", err)
		}

		req := acquire.InferRequest(args[0])
		if err := store.CreateSession(storage.Session{
			ID:         ws.ID,
			SourceKind: req.Kind.String(),
			SourceRef:  req.Value,
		}); err != nil {
			return fmt.Errorf("recording session: %w", err)
		}
		printStatus("Session", "%s", ws.ID)

		client := analyze.NewClientWithBaseURL(cfg.Inference.APIKey, cfg.Inference.Model, cfg.Inference.BaseURL)
		gen := generate.New(client, name)
		runner := pipeline.NewRunner(newAcquirer(cfg), sample.NewSampler(cfg.Sampling.Rate), client, gen, func(stage string) {
			printStep("%s", stage)
		})

		res, err := runner.Run(ctx, ws, req)
		if err != nil {
			if ferr := store.FinishSession(ws.ID, "failed", 0, ""); ferr != nil {
				printWarning("recording failure: %v", ferr)
			}
			if res != nil && res.Frames != nil {
				// Analysis failed after acquisition and sampling
				// succeeded; the artifacts stay usable.
				printWarning("frames kept at %s", res.Frames.Dir)
				return err
			}
			if cerr := ws.Cleanup(); cerr != nil {
				printWarning("cleaning workspace: %v", cerr)
			}
			return err
		}

		if res.Frames != nil {
			if err := store.SetSessionMedia(ws.ID, res.Asset.Path, res.Frames.Duration, res.Frames.Count()); err != nil {
				printWarning("recording media: %v", err)
			}
			printStatus("Frames", "%d at %.1f fps", res.Frames.Count(), res.Frames.Rate)
		}

		shell := scaffold.Shell{ComponentName: name}
		if err := shell.Write(ws.PreviewDir()); err != nil {
			return err
		}

		previewAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Preview.Port)
		previewSrv := &http.Server{Addr: previewAddr, Handler: scaffold.NewPreviewHandler(ws)}
		go func() {
			if err := previewSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				printWarning("preview server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			previewSrv.Shutdown(shutdownCtx)
		}()
		printStatus("Preview", "http://%s (shell in %s)", previewAddr, ws.PreviewDir())

		rec := storage.NewSessionRecorder(store, ws.ID)
		rec.SetComponentPath(ws.ComponentPath())

		ctrl := iterate.NewController(newConsoleFeedback(os.Stdin), gen, rec, iterate.Hooks{
			OnDraft: func(st iterate.State) error {
				return pipeline.WriteDraft(ws.ComponentPath(), st.Source)
			},
		})

		st, err := ctrl.Run(ctx, res.Draft)
		if err != nil {
			return err
		}

		switch st.Phase {
		case iterate.PhaseAborted:
			if err := ws.Cleanup(); err != nil {
				return fmt.Errorf("cleaning workspace: %w", err)
			}
			printWarning("session cancelled, scratch files removed")
			return nil
		case iterate.PhaseApproved:
			printSuccess("approved after %d iteration(s)", st.Iteration)
			if outDir != "" {
				dest, err := export.Export(ws.ComponentPath(), outDir, export.Options{Rename: name, Force: force})
				if err != nil {
					return err
				}
				printSuccess("exported to %s", dest)
			} else {
				printStatus("Component", "%s", ws.ComponentPath())
				printStatus("Export", "clip2tsx export %s <dest>", ws.ID)
			}
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("out", "", "directory to export the approved component to")
	convertCmd.Flags().String("name", "", "component name (default from config)")
	convertCmd.Flags().Bool("force", false, "overwrite an existing file when exporting")
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <source>",
	Short: "Acquire a clip and print its motion analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ws, err := workspace.New(cfg.Scratch.Root)
		if err != nil {
			return err
		}
		defer ws.Cleanup()

		printStep("acquire")
		asset, err := newAcquirer(cfg).Acquire(ctx, acquire.InferRequest(args[0]), ws.VideoPath)
		if err != nil {
			return err
		}

		printStep("analyze")
		client := analyze.NewClientWithBaseURL(cfg.Inference.APIKey, cfg.Inference.Model, cfg.Inference.BaseURL)
		spec, err := client.Analyze(ctx, asset.Path, asset.MIME)
		if err != nil {
			return err
		}

		fmt.Println(spec.Raw)
		return nil
	},
}

// --- frames ---

var framesCmd = &cobra.Command{
	Use:   "frames <source>",
	Short: "Acquire a clip and extract its frame sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		rate, _ := cmd.Flags().GetFloat64("rate")

		cfg, err := config.LoadLocal()
		if err != nil {
			return err
		}
		setupLogging(cfg)
		if rate <= 0 {
			rate = cfg.Sampling.Rate
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ws, err := workspace.New(cfg.Scratch.Root)
		if err != nil {
			return err
		}

		printStep("acquire")
		asset, err := newAcquirer(cfg).Acquire(ctx, acquire.InferRequest(args[0]), ws.VideoPath)
		if err != nil {
			ws.Cleanup()
			return err
		}

		printStep("sample")
		dir := ws.FramesDir()
		if outDir != "" {
			dir = outDir
		}
		frames, err := sample.NewSampler(rate).Sample(ctx, asset.Path, dir)
		if err != nil {
			ws.Cleanup()
			return err
		}

		printSuccess("%d frames in %s", frames.Count(), frames.Dir)
		return nil
	},
}

func init() {
	framesCmd.Flags().String("out", "", "directory for extracted frames (default inside the workspace)")
	framesCmd.Flags().Float64("rate", 0, "sampling rate in frames per second (default from config)")
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <session-id> <dest>",
	Short: "Export an approved session's component into a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := config.LoadLocal()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		sess, err := store.GetSession(args[0])
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no session %q", args[0])
			}
			return err
		}
		if sess.Status != "approved" {
			return fmt.Errorf("session %s is %s; only approved components export", sess.ID, sess.Status)
		}
		if sess.ComponentPath == "" {
			return fmt.Errorf("session %s has no recorded component", sess.ID)
		}

		dest, err := export.Export(sess.ComponentPath, args[1], export.Options{Rename: name, Force: force})
		if err != nil {
			return err
		}
		printSuccess("exported to %s", dest)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("name", "", "rename the component on export")
	exportCmd.Flags().Bool("force", false, "overwrite an existing file")
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent conversion sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.LoadLocal()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		sessions, err := store.ListRecentSessions(limit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		for _, s := range sessions {
			fmt.Printf("%s  %s  %-9s  %d iter  %s\n",
				colorize(colorCyan, s.ID),
				s.CreatedAt.Local().Format("2006-01-02 15:04"),
				s.Status,
				s.Iterations,
				truncate(s.SourceRef, 60),
			)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().Int("limit", 10, "maximum number of sessions")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadLocal()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
