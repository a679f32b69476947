// Package cmd provides the CLI commands for notedex.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
	"github.com/Aman-CERP/notedex/internal/logging"
	"github.com/Aman-CERP/notedex/internal/profiling"
	"github.com/Aman-CERP/notedex/pkg/version"
)

// Debug logging and profiling flags
var (
	debugMode      bool
	loggingCleanup func()

	profileOpts    profiling.Options
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the notedex CLI.
func NewRootCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "notedex [dir]",
		Short: "Build tag and date index pages for a directory of notes",
		Long: `notedex reads the header of every note in a directory and writes
one page per tag, one page per creation date, and a master index.md
linking them together.

A note header looks like:

  ---
  Title: Trip planning

  Created: 20240101 09:15
  Tags: travel todo

Files whose third line starts with '---' are pages generated by an
earlier run; they are removed and rebuilt, never indexed.

Running 'notedex' with no command is the same as 'notedex index'.
The notes directory defaults to $NOTEDEX_DIR, then notes.dir from the
user config, then ~/.data.`,
		Version:       version.Short(),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, dirArg(args), opts)
		},
	}

	cmd.SetVersionTemplate("notedex version {{.Version}}\n")

	addIndexFlags(cmd, &opts)
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.notedex/logs/ and stderr")
	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts the requested profiles and installs
// debug logging when --debug is set. Without --debug, commands that run
// the pipeline open the file log themselves once the configured level is
// known.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profileSession = s
	}
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	prev := slog.Default()
	slog.SetDefault(logger)
	loggingCleanup = func() {
		slog.SetDefault(prev)
		cleanup()
	}
	slog.Info("Debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Short()))
	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profileSession != nil {
		err = profileSession.Stop()
		profileSession = nil
	}
	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// startFileLogging opens the file log at level unless --debug already did.
// Logging is not critical for the CLI, so failures are ignored.
func startFileLogging(level string) func() {
	if loggingCleanup != nil {
		return func() {}
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return func() {}
	}
	prev := slog.Default()
	slog.SetDefault(logger)
	return func() {
		slog.SetDefault(prev)
		cleanup()
	}
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	cmd := NewRootCmd()
	executed, err := cmd.ExecuteC()
	if executed == nil {
		executed = cmd
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		printError(executed, err)
	}
	return err
}

// printError prints structured errors with their details and hint, and
// anything else (usage errors from cobra) as a single line. Commands run
// with --json get the error as a JSON object instead.
func printError(cmd *cobra.Command, err error) {
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		if data, jerr := nerrors.FormatJSON(err); jerr == nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), string(data))
			return
		}
	}
	if _, ok := nerrors.As(err); ok {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), nerrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}

func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
