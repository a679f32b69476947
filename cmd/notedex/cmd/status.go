package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/notedex/internal/config"
	"github.com/Aman-CERP/notedex/internal/header"
	"github.com/Aman-CERP/notedex/internal/lock"
	"github.com/Aman-CERP/notedex/internal/pipeline"
	"github.com/Aman-CERP/notedex/internal/render"
	"github.com/Aman-CERP/notedex/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [dir]",
		Short: "Show notes and index status",
		Long: `Display information about a notes directory and its index:
  - Number of notes, distinct tags and dates
  - Generated pages and when index.md was last written
  - Whether another run currently holds the lock

The notes are read but nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, dirArg(args), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, arg string, jsonOutput bool) error {
	notesDir, err := config.ResolveNotesDir(arg)
	if err != nil {
		return err
	}
	cfg, err := config.Load(notesDir)
	if err != nil {
		return err
	}

	info, err := collectStatus(ctx, notesDir, cfg)
	if err != nil {
		return err
	}

	noColor := ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout())
	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

// collectStatus builds the index in memory, like a dry run, and inspects
// the output directory.
func collectStatus(ctx context.Context, notesDir string, cfg *config.Config) (ui.StatusInfo, error) {
	outDir := cfg.OutputDir()
	info := ui.StatusInfo{
		NotesDir:  notesDir,
		OutputDir: outDir,
	}

	runner, err := pipeline.NewRunner(pipeline.RunnerDependencies{
		Renderer: ui.NopRenderer{},
		Config:   cfg,
	})
	if err != nil {
		return info, fmt.Errorf("failed to create index runner: %w", err)
	}
	res, err := runner.Run(ctx, pipeline.RunConfig{
		NotesDir:  notesDir,
		OutputDir: outDir,
		DryRun:    true,
	})
	if err != nil {
		return info, err
	}

	info.Notes = res.Notes
	info.Tags = res.Tags
	info.Dates = res.Dates
	info.Warnings = len(res.Warnings)

	info.Generated = len(res.Generated)
	if filepath.Clean(outDir) != filepath.Clean(notesDir) {
		info.Generated = countGeneratedPages(outDir)
	}

	if st, err := os.Stat(filepath.Join(outDir, render.MasterIndexName)); err == nil {
		info.LastIndexed = st.ModTime()
		info.IndexSize = st.Size()
	}

	// A lock that cannot be checked is reported as free.
	info.Locked, _ = lock.Held(notesDir)

	return info, nil
}

// countGeneratedPages counts the generated pages at the top level of dir.
func countGeneratedPages(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), render.PageExt) {
			continue
		}
		res, err := header.ParseFile(filepath.Join(dir, e.Name()))
		if err == nil && res.Outcome == header.OutcomeGenerated {
			n++
		}
	}
	return n
}
