// Package pipeline runs one indexing pass over a notes directory: scan,
// header extraction, the tag and date indexes, page rendering and writing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/notedex/internal/config"
	nerrors "github.com/Aman-CERP/notedex/internal/errors"
	"github.com/Aman-CERP/notedex/internal/header"
	"github.com/Aman-CERP/notedex/internal/index"
	"github.com/Aman-CERP/notedex/internal/lock"
	"github.com/Aman-CERP/notedex/internal/render"
	"github.com/Aman-CERP/notedex/internal/scanner"
	"github.com/Aman-CERP/notedex/internal/ui"
)

// RunConfig configures one run.
type RunConfig struct {
	// NotesDir is the directory holding the notes (required).
	NotesDir string

	// OutputDir receives the generated pages. Empty means NotesDir.
	OutputDir string

	// DryRun builds every page but writes and deletes nothing.
	DryRun bool

	// KeepGenerated leaves pages from earlier runs in place.
	KeepGenerated bool

	// Workers overrides performance.workers when positive.
	Workers int

	// LockWait is how long to wait for another run to release the notes
	// lock. Zero fails at once.
	LockWait time.Duration
}

// Result is the outcome of a run.
type Result struct {
	// Notes is the number of notes that produced a record.
	Notes int

	// Generated lists generated pages found among the notes, relative to
	// NotesDir. They are never indexed.
	Generated []string

	// Removed is the number of generated pages deleted.
	Removed int

	// RemovedPaths lists the absolute paths of the deleted pages.
	RemovedPaths []string

	// Tags and Dates are the distinct keys of each index.
	Tags  int
	Dates int

	// Written lists the absolute paths written, master index last.
	// Empty on a dry run.
	Written []string

	// Pages is the number of documents built, master index included.
	Pages int

	// Warnings collects recoverable problems in path order.
	Warnings []error

	// Collisions lists page names produced more than once.
	Collisions []string

	// MasterIndex is the content of index.md.
	MasterIndex string

	// OutputDir is the directory the pages went to.
	OutputDir string

	DryRun   bool
	Duration time.Duration
	Stages   ui.StageTimings
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Renderer for progress display (required).
	Renderer ui.Renderer

	// Config is the effective configuration (required).
	Config *config.Config

	// Scanner is reused across runs so ignore files are parsed once.
	// A new one is created when nil.
	Scanner *scanner.Scanner

	// RemoveGenerated deletes a generated page. Defaults to os.Remove
	// wrapped in ERR_204.
	RemoveGenerated header.MalformedFunc

	// BeforeWrite, when set, receives the absolute paths a run is about to
	// remove and write, before the first of them is touched.
	BeforeWrite func(paths []string)
}

// Runner executes indexing runs with progress reporting.
type Runner struct {
	renderer ui.Renderer
	config   *config.Config
	scanner  *scanner.Scanner
	remove   header.MalformedFunc
	before   func(paths []string)
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	s := deps.Scanner
	if s == nil {
		var err error
		if s, err = scanner.New(); err != nil {
			return nil, fmt.Errorf("failed to create scanner: %w", err)
		}
	}
	remove := deps.RemoveGenerated
	if remove == nil {
		remove = RemoveGeneratedPage
	}

	return &Runner{
		renderer: deps.Renderer,
		config:   deps.Config,
		scanner:  s,
		remove:   remove,
		before:   deps.BeforeWrite,
	}, nil
}

// SetConfig swaps the configuration used by later runs.
func (r *Runner) SetConfig(cfg *config.Config) {
	r.config = cfg
}

// InvalidateIgnoreCache makes the next run re-read ignore files.
func (r *Runner) InvalidateIgnoreCache() {
	r.scanner.InvalidateIgnoreCache()
}

// RemoveGeneratedPage deletes a page left by an earlier run. A page that is
// already gone is not an error.
func RemoveGeneratedPage(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nerrors.New(nerrors.ErrCodeRemoveFailed, "cannot remove generated page", err).
			WithPath(path).
			WithSuggestion("check the permissions of the notes directory, or run with --keep-generated")
	}
	return nil
}

// extraction is the parse outcome of one note, stored by scan position.
type extraction struct {
	file   *scanner.FileInfo
	result header.Result
	err    error // recoverable read error
}

// Run executes one full indexing pass. Any fatal error aborts the run
// before a page is written.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	start := time.Now()

	notesDir, err := filepath.Abs(cfg.NotesDir)
	if err != nil {
		return nil, nerrors.New(nerrors.ErrCodeInvalidInput, "invalid notes directory", err).WithPath(cfg.NotesDir)
	}
	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = notesDir
	}
	if outDir, err = filepath.Abs(outDir); err != nil {
		return nil, nerrors.New(nerrors.ErrCodeInvalidInput, "invalid output directory", err).WithPath(cfg.OutputDir)
	}

	res := &Result{OutputDir: outDir, DryRun: cfg.DryRun}

	if !cfg.DryRun {
		l, err := lock.AcquireWait(ctx, notesDir, cfg.LockWait)
		if err != nil {
			return nil, r.fail("", err)
		}
		defer func() { _ = l.Unlock() }()
	}

	// Stage 1: scan
	scanStart := time.Now()
	files, err := r.scanNotes(ctx, notesDir, outDir, res)
	if err != nil {
		return nil, r.fail("", err)
	}
	res.Stages.Scan = time.Since(scanStart)

	// Stage 2: extract
	extractStart := time.Now()
	extracted, err := r.extract(ctx, files, cfg)
	if err != nil {
		return nil, err
	}
	tags, dates := index.New(), index.New()
	stale := r.collect(extracted, tags, dates, res)
	res.Stages.Extract = time.Since(extractStart)

	// Stage 3: render
	renderStart := time.Now()
	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageRendering,
		Message: fmt.Sprintf("rendering %d tags and %d dates", tags.Len(), dates.Len()),
	})
	set, err := render.Build(tags, dates, r.renderOptions())
	if err != nil {
		return nil, r.fail("", err)
	}
	for _, name := range set.Collisions {
		w := fmt.Errorf("page %s is produced more than once; the later one wins", name)
		slog.Warn("index_page_collision", slog.String("page", name))
		r.renderer.AddError(ui.ErrorEvent{File: name, Err: w, IsWarn: true})
		res.Warnings = append(res.Warnings, w)
	}
	res.Collisions = set.Collisions
	res.Tags, res.Dates = tags.Len(), dates.Len()
	res.MasterIndex = set.Index.Content
	res.Pages = len(set.Pages) + 1
	res.Stages.Render = time.Since(renderStart)

	// Stage 4: remove pages of earlier runs, then write
	if !cfg.DryRun {
		writeStart := time.Now()
		if r.keepGenerated(cfg) {
			if len(stale) > 0 {
				slog.Info("generated_pages_kept", slog.Int("count", len(stale)))
			}
			stale = nil
		} else if outDir != notesDir {
			pages, err := r.generatedIn(ctx, outDir)
			if err != nil {
				return nil, r.fail("", err)
			}
			stale = append(stale, pages...)
		}

		docs := set.Documents()
		if r.before != nil {
			paths := slices.Clone(stale)
			for _, doc := range docs {
				paths = append(paths, filepath.Join(outDir, doc.Name))
			}
			r.before(paths)
		}

		if err := r.removeStale(stale, res); err != nil {
			return nil, r.fail("", err)
		}
		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageWriting,
			Current: 0,
			Total:   res.Pages,
			Message: fmt.Sprintf("writing %d pages to %s", res.Pages, outDir),
		})
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, r.fail("", nerrors.New(nerrors.ErrCodeOutputWrite, "cannot create output directory", err).WithPath(outDir))
		}
		written, err := render.NewWriter(outDir).Write(ctx, docs)
		res.Written = written
		if err != nil {
			return nil, r.fail("", err)
		}
		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageWriting,
			Current: len(written),
			Total:   res.Pages,
			Message: fmt.Sprintf("wrote %d pages", len(written)),
		})
		res.Stages.Write = time.Since(writeStart)
	}

	res.Duration = time.Since(start)
	r.complete(res)
	return res, nil
}

// scanNotes lists the notes. An output directory nested in the notes
// directory is excluded so pages are never read back as notes.
func (r *Runner) scanNotes(ctx context.Context, notesDir, outDir string, res *Result) ([]*scanner.FileInfo, error) {
	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageScanning,
		Message: fmt.Sprintf("scanning %s", notesDir),
	})
	slog.Info("index_scan_started", slog.String("path", notesDir))

	excludes := append([]string{}, r.config.Notes.Exclude...)
	if rel, err := filepath.Rel(notesDir, outDir); err == nil && rel != "." && filepath.IsLocal(rel) {
		excludes = append(excludes, "/"+filepath.ToSlash(rel)+"/")
	}

	files, warnings, err := r.scanner.Collect(ctx, &scanner.ScanOptions{
		RootDir:            notesDir,
		Extension:          r.config.Notes.Extension,
		Recursive:          r.config.Notes.Recursive,
		ExcludePatterns:    excludes,
		RespectIgnoreFiles: r.config.Notes.RespectIgnoreFiles,
		MaxFileSize:        r.config.Notes.MaxFileSize,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, nerrors.New(nerrors.ErrCodeFileNotFound, "cannot scan notes directory", err).WithPath(notesDir)
	}
	for _, w := range warnings {
		r.warn(res, "", w)
	}

	slog.Info("index_scan_complete", slog.Int("notes", len(files)))
	return files, nil
}

// extract parses every header on a bounded worker pool. Outcomes are kept
// in scan order; the first fatal error cancels the rest.
func (r *Runner) extract(ctx context.Context, files []*scanner.FileInfo, cfg RunConfig) ([]extraction, error) {
	workers := r.config.Performance.Workers
	if cfg.Workers > 0 {
		workers = cfg.Workers
	}

	out := make([]extraction, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, err := header.ParseFile(f.AbsPath)
			if err != nil && nerrors.IsFatal(err) {
				return r.fail(f.Path, err)
			}
			out[i] = extraction{file: f, result: result, err: err}

			slog.Debug("note_extracted",
				slog.String("path", f.Path),
				slog.String("outcome", result.Outcome.String()))
			r.renderer.UpdateProgress(ui.ProgressEvent{
				Stage:       ui.StageExtracting,
				Current:     int(done.Add(1)),
				Total:       len(files),
				CurrentFile: f.Path,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// collect feeds the records into the indexes in scan order. It returns the
// absolute paths of generated pages found among the notes.
func (r *Runner) collect(extracted []extraction, tags, dates *index.InvertedIndex, res *Result) []string {
	var stale []string
	for _, e := range extracted {
		if e.err != nil {
			r.warn(res, e.file.Path, e.err)
			continue
		}

		if e.result.Outcome == header.OutcomeGenerated {
			res.Generated = append(res.Generated, e.file.Path)
			stale = append(stale, e.file.AbsPath)
			continue
		}

		rec := e.result.Record
		for _, w := range rec.Warnings {
			r.warn(res, e.file.Path, w)
		}
		tags.AddMany(rec.Tags, rec.DocumentID, rec.Title, "")
		if rec.HasCreated {
			dates.Add(rec.CreatedDate, rec.DocumentID, rec.Title, rec.CreatedTime)
		}
		res.Notes++
	}
	return stale
}

// removeStale deletes the generated pages of earlier runs: those found
// among the notes and, for a separate output directory, those already
// there, so keys that disappeared since the last run leave no page behind.
func (r *Runner) removeStale(stale []string, res *Result) error {
	for _, path := range stale {
		if err := r.remove(path); err != nil {
			return err
		}
		res.Removed++
		res.RemovedPaths = append(res.RemovedPaths, path)
		slog.Info("generated_page_removed", slog.String("path", path))
	}
	return nil
}

// generatedIn lists the generated pages at the top level of dir.
func (r *Runner) generatedIn(ctx context.Context, dir string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	files, _, err := r.scanner.Collect(ctx, &scanner.ScanOptions{
		RootDir:   dir,
		Extension: render.PageExt,
	})
	if err != nil {
		return nil, nerrors.New(nerrors.ErrCodeFileNotFound, "cannot scan output directory", err).WithPath(dir)
	}

	var pages []string
	for _, f := range files {
		result, err := header.ParseFile(f.AbsPath)
		if err == nil && result.Outcome == header.OutcomeGenerated {
			pages = append(pages, f.AbsPath)
		}
	}
	return pages, nil
}

func (r *Runner) keepGenerated(cfg RunConfig) bool {
	return cfg.KeepGenerated || !r.config.Notes.RemoveGenerated
}

func (r *Runner) renderOptions() render.Options {
	return render.Options{
		Tags:  render.NewColumnFormatter(r.config.Index.Tags.Columns).WithPadding(r.config.Index.Tags.Padding),
		Dates: render.NewColumnFormatter(r.config.Index.Dates.Columns).WithPadding(r.config.Index.Dates.Padding),
	}
}

func (r *Runner) warn(res *Result, path string, err error) {
	res.Warnings = append(res.Warnings, err)
	attrs := append([]any{slog.String("path", path)}, nerrors.LogAttrs(err)...)
	slog.Warn("note_warning", attrs...)
	r.renderer.AddError(ui.ErrorEvent{File: path, Err: err, IsWarn: true})
}

// fail reports a fatal error once and returns it unchanged.
func (r *Runner) fail(path string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	attrs := append([]any{slog.String("path", path)}, nerrors.LogAttrs(err)...)
	slog.Error("index_failed", attrs...)
	r.renderer.AddError(ui.ErrorEvent{File: path, Err: err})
	return err
}

func (r *Runner) complete(res *Result) {
	r.renderer.Complete(ui.CompletionStats{
		Notes:     res.Notes,
		Removed:   res.Removed,
		Tags:      res.Tags,
		Dates:     res.Dates,
		Pages:     res.Pages,
		Duration:  res.Duration,
		Warnings:  len(res.Warnings),
		DryRun:    res.DryRun,
		OutputDir: res.OutputDir,
		Stages:    res.Stages,
	})

	slog.Info("index_complete",
		slog.Int("notes", res.Notes),
		slog.Int("generated", len(res.Generated)),
		slog.Int("removed", res.Removed),
		slog.Int("tags", res.Tags),
		slog.Int("dates", res.Dates),
		slog.Int("pages", res.Pages),
		slog.Int("warnings", len(res.Warnings)),
		slog.Bool("dry_run", res.DryRun),
		slog.Int64("duration_total_ms", res.Duration.Milliseconds()),
		slog.Int64("duration_scan_ms", res.Stages.Scan.Milliseconds()),
		slog.Int64("duration_extract_ms", res.Stages.Extract.Milliseconds()),
		slog.Int64("duration_render_ms", res.Stages.Render.Milliseconds()),
		slog.Int64("duration_write_ms", res.Stages.Write.Milliseconds()),
		slog.String("output_dir", res.OutputDir))
}

// RelativeWritten returns the written paths relative to dir, for display.
func (res *Result) RelativeWritten(dir string) []string {
	out := make([]string, 0, len(res.Written))
	for _, p := range res.Written {
		if rel, err := filepath.Rel(dir, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = filepath.ToSlash(rel)
		}
		out = append(out, p)
	}
	return out
}
