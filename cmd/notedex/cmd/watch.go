package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/notedex/internal/config"
	nerrors "github.com/Aman-CERP/notedex/internal/errors"
	"github.com/Aman-CERP/notedex/internal/logging"
	"github.com/Aman-CERP/notedex/internal/output"
	"github.com/Aman-CERP/notedex/internal/pipeline"
	"github.com/Aman-CERP/notedex/internal/scanner"
	"github.com/Aman-CERP/notedex/internal/ui"
	"github.com/Aman-CERP/notedex/internal/watcher"
)

type watchOptions struct {
	index    indexOptions
	debounce time.Duration
	poll     bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Rebuild the index whenever notes change",
		Long: `Index the notes directory once, then watch it and rebuild every page
after each burst of changes settles.

Changes to .gitignore or .notedexignore files are picked up on the next
rebuild. A change to .notedex.yaml reloads the configuration; the note
extension and recursive settings need a restart to take effect.

Pages written by notedex itself never trigger a rebuild.`,
		Example: `  # Watch ~/.data
  notedex watch

  # Watch a network share, where file events are unreliable
  notedex watch /mnt/notes --poll`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, dirArg(args), opts)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&opts.debounce, "debounce", 0, "Quiet period before a rebuild (default: watch.debounce)")
	f.BoolVar(&opts.poll, "poll", false, "Poll the directory instead of using file system events")
	f.BoolVar(&opts.index.noTUI, "no-tui", false, "Disable TUI mode for the first run")
	f.BoolVar(&opts.index.keepGenerated, "keep-generated", false, "Keep pages generated by earlier runs")
	f.StringVarP(&opts.index.output, "output", "o", "", "Directory for generated pages (default: the notes directory)")
	f.IntVarP(&opts.index.workers, "workers", "j", 0, "Notes read in parallel (default: performance.workers)")
	f.DurationVar(&opts.index.wait, "wait", 0, "Wait this long for another run to release the lock before each rebuild")

	return cmd
}

// watchSession is the state of one `notedex watch` invocation.
type watchSession struct {
	notesDir string
	output   string // --output, absolute, or ""
	opts     watchOptions
	cfg      *config.Config
	scanner  *scanner.Scanner
	watcher  *watcher.Watcher
	runner   *pipeline.Runner // rebuilds, without progress display
	out      *output.Writer
}

func runWatch(ctx context.Context, cmd *cobra.Command, arg string, opts watchOptions) error {
	if opts.debounce < 0 {
		return nerrors.ValidationError(fmt.Sprintf("--debounce must not be negative, got %s", opts.debounce), nil)
	}
	if opts.index.workers < 0 {
		return nerrors.ValidationError(fmt.Sprintf("--workers must not be negative, got %d", opts.index.workers), nil)
	}
	if opts.index.wait < 0 {
		return nerrors.ValidationError(fmt.Sprintf("--wait must not be negative, got %s", opts.index.wait), nil)
	}

	notesDir, cfg, err := loadNotesConfig(arg, opts.index.output)
	if err != nil {
		return err
	}
	defer startFileLogging(cfg.Logging.Level)()

	s, err := newWatchSession(cmd, notesDir, cfg, opts)
	if err != nil {
		return err
	}
	defer func() { _ = s.watcher.Stop() }()

	// Watch before the first run so edits made during it are not lost.
	watchErr := make(chan error, 1)
	go func() { watchErr <- s.watcher.Start(ctx, notesDir) }()

	if err := s.initialRun(ctx, cmd); errors.Is(err, context.Canceled) {
		return nil
	}

	s.out.Statusf("*", "Watching %s (%s, debounce %s). Press Ctrl+C to stop.",
		notesDir, s.watcher.Type(), s.debounce())
	slog.Info("watch_started",
		slog.String("path", notesDir),
		slog.String("type", s.watcher.Type()),
		slog.Duration("debounce", s.debounce()))

	for {
		select {
		case <-ctx.Done():
			s.out.Status("", "Stopped watching")
			slog.Info("watch_stopped", slog.Uint64("dropped_batches", s.watcher.DroppedBatches()))
			return nil
		case err := <-watchErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watcher failed: %w", err)
			}
			return nil
		case err, ok := <-s.watcher.Errors():
			if ok {
				slog.Warn("watch_error", slog.String("error", err.Error()))
				s.out.Warningf("watch error: %v", err)
			}
		case batch, ok := <-s.watcher.Events():
			if !ok {
				return nil
			}
			s.handleBatch(ctx, batch)
		}
	}
}

func newWatchSession(cmd *cobra.Command, notesDir string, cfg *config.Config, opts watchOptions) (*watchSession, error) {
	s := &watchSession{
		notesDir: notesDir,
		opts:     opts,
		cfg:      cfg,
		out:      output.New(cmd.OutOrStdout()),
	}
	if opts.index.output != "" {
		// loadNotesConfig already made it absolute.
		s.output = cfg.Index.OutputDir
	}

	var err error
	if s.scanner, err = scanner.New(); err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	s.watcher, err = watcher.New(watcher.Options{
		DebounceWindow: s.debounce(),
		ForcePolling:   opts.poll,
		Extension:      cfg.Notes.Extension,
		Recursive:      cfg.Notes.Recursive,
		IgnorePatterns: cfg.Notes.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if s.runner, err = s.newRunner(ui.NopRenderer{}); err != nil {
		_ = s.watcher.Stop()
		return nil, err
	}
	return s, nil
}

func (s *watchSession) newRunner(renderer ui.Renderer) (*pipeline.Runner, error) {
	r, err := pipeline.NewRunner(pipeline.RunnerDependencies{
		Renderer: renderer,
		Config:   s.cfg,
		Scanner:  s.scanner,
		BeforeWrite: func(paths []string) {
			s.watcher.Suppress(paths...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index runner: %w", err)
	}
	return r, nil
}

func (s *watchSession) debounce() time.Duration {
	if s.opts.debounce > 0 {
		return s.opts.debounce
	}
	return s.cfg.WatchDebounce()
}

func (s *watchSession) runConfig() pipeline.RunConfig {
	return pipeline.RunConfig{
		NotesDir:      s.notesDir,
		OutputDir:     s.cfg.OutputDir(),
		KeepGenerated: s.opts.index.keepGenerated,
		Workers:       s.opts.index.workers,
		LockWait:      s.opts.index.wait,
	}
}

// initialRun indexes once with the progress display. A failed run is
// reported and watching continues, so the user can fix the note.
func (s *watchSession) initialRun(ctx context.Context, cmd *cobra.Command) error {
	uiCfg := ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(s.opts.index.noTUI),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithNotesDir(s.notesDir))
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}

	runner, err := s.newRunner(renderer)
	if err != nil {
		_ = renderer.Stop()
		return err
	}
	_, err = runner.Run(ctx, s.runConfig())
	_ = renderer.Stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.out.Error(nerrors.FormatForCLI(err))
	}
	return err
}

// handleBatch applies config and ignore file changes, then rebuilds.
func (s *watchSession) handleBatch(ctx context.Context, batch []watcher.FileEvent) {
	sum := watcher.Summarize(batch)
	slog.Info("watch_batch",
		slog.Int("events", len(batch)),
		slog.Int("notes", sum.Notes),
		slog.Bool("ignore_changed", sum.IgnoreChanged),
		slog.Bool("config_changed", sum.ConfigChanged))

	if sum.ConfigChanged {
		s.reloadConfig()
	}
	if sum.IgnoreChanged {
		s.runner.InvalidateIgnoreCache()
	}

	s.out.Statusf("~", "%s changed", describeBatch(batch))
	s.rebuild(ctx)
}

// reloadConfig swaps in the configuration from disk. An invalid file is
// reported and the previous configuration is kept.
func (s *watchSession) reloadConfig() {
	cfg, err := config.Load(s.notesDir)
	if err != nil {
		slog.Warn("config_reload_failed", nerrors.LogAttrs(err)...)
		s.out.Error(nerrors.FormatForCLI(err))
		s.out.Hint("keeping the previous configuration")
		return
	}
	if s.output != "" {
		cfg.Index.OutputDir = s.output
	}

	if cfg.Notes.Extension != s.cfg.Notes.Extension || cfg.Notes.Recursive != s.cfg.Notes.Recursive {
		s.out.Warning("notes.extension and notes.recursive apply to the watcher after a restart")
	}

	s.cfg = cfg
	s.runner.SetConfig(cfg)
	slog.Info("config_reloaded", slog.String("path", s.notesDir))
	s.out.Status("", "Reloaded configuration")
}

func (s *watchSession) rebuild(ctx context.Context) {
	res, err := s.runner.Run(ctx, s.runConfig())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.out.Error(nerrors.FormatForCLI(err))
		}
		return
	}

	s.out.Successf("Rebuilt %d pages from %d notes in %s",
		res.Pages, res.Notes, res.Duration.Round(time.Millisecond))
	if n := len(res.Warnings); n > 0 {
		s.out.Warningf("%d warnings, details in %s", n, logging.DefaultLogPath())
	}
}

func describeBatch(batch []watcher.FileEvent) string {
	if len(batch) == 1 {
		return batch[0].Path
	}
	return fmt.Sprintf("%d files", len(batch))
}
