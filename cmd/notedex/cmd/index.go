package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/notedex/internal/config"
	nerrors "github.com/Aman-CERP/notedex/internal/errors"
	"github.com/Aman-CERP/notedex/internal/pipeline"
	"github.com/Aman-CERP/notedex/internal/ui"
)

type indexOptions struct {
	dryRun        bool
	noTUI         bool
	keepGenerated bool
	output        string
	workers       int
	wait          time.Duration
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Rebuild the tag, date and master index pages",
		Long: `Scan the notes directory, read every note header, and write one page
per tag, one page per creation date, and index.md.

Pages generated by an earlier run are removed first so keys that no
longer exist leave nothing behind. Use --keep-generated to skip that.

Use --dry-run to build every page in memory and print index.md to
stdout without touching the directory.`,
		Example: `  # Index ~/.data (or $NOTEDEX_DIR)
  notedex index

  # Index another directory, writing pages to a subdirectory
  notedex index ~/notes --output ~/notes/index

  # Preview the master index
  notedex index --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Ctrl+C cancels the run before any page is written.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, dirArg(args), opts)
		},
	}

	addIndexFlags(cmd, &opts)

	return cmd
}

func addIndexFlags(cmd *cobra.Command, opts *indexOptions) {
	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "Build every page and print index.md without writing or deleting anything")
	f.BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	f.BoolVar(&opts.keepGenerated, "keep-generated", false, "Keep pages generated by earlier runs")
	f.StringVarP(&opts.output, "output", "o", "", "Directory for generated pages (default: the notes directory)")
	f.IntVarP(&opts.workers, "workers", "j", 0, "Notes read in parallel (default: performance.workers)")
	f.DurationVar(&opts.wait, "wait", 0, "Wait this long for another run to release the lock (default: fail at once)")
}

// loadNotesConfig resolves the notes directory and its effective
// configuration. An --output flag is taken relative to the working
// directory and overrides index.output_dir.
func loadNotesConfig(arg, output string) (string, *config.Config, error) {
	notesDir, err := config.ResolveNotesDir(arg)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(notesDir)
	if err != nil {
		return "", nil, err
	}
	if output != "" {
		abs, err := filepath.Abs(output)
		if err != nil {
			return "", nil, nerrors.New(nerrors.ErrCodeInvalidInput, "invalid output directory", err).WithPath(output)
		}
		cfg.Index.OutputDir = abs
	}
	return notesDir, cfg, nil
}

func runIndex(ctx context.Context, cmd *cobra.Command, arg string, opts indexOptions) error {
	if opts.workers < 0 {
		return nerrors.ValidationError(fmt.Sprintf("--workers must not be negative, got %d", opts.workers), nil)
	}
	if opts.wait < 0 {
		return nerrors.ValidationError(fmt.Sprintf("--wait must not be negative, got %s", opts.wait), nil)
	}

	notesDir, cfg, err := loadNotesConfig(arg, opts.output)
	if err != nil {
		return err
	}
	defer startFileLogging(cfg.Logging.Level)()

	// A dry run prints index.md on stdout, so progress goes to stderr.
	progressOut := cmd.OutOrStdout()
	if opts.dryRun {
		progressOut = cmd.ErrOrStderr()
	}

	uiCfg := ui.NewConfig(progressOut,
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithNotesDir(notesDir))
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	stopRenderer := sync.OnceValue(renderer.Stop)
	defer func() { _ = stopRenderer() }()

	runner, err := pipeline.NewRunner(pipeline.RunnerDependencies{
		Renderer: renderer,
		Config:   cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to create index runner: %w", err)
	}

	res, err := runner.Run(ctx, pipeline.RunConfig{
		NotesDir:      notesDir,
		OutputDir:     cfg.OutputDir(),
		DryRun:        opts.dryRun,
		KeepGenerated: opts.keepGenerated,
		Workers:       opts.workers,
		LockWait:      opts.wait,
	})
	if err != nil {
		return err
	}

	if opts.dryRun {
		// Let the renderer finish drawing before index.md is printed.
		_ = stopRenderer()
		_, err := fmt.Fprint(cmd.OutOrStdout(), res.MasterIndex)
		return err
	}
	return nil
}
