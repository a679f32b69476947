package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/notedex/internal/config"
	"github.com/Aman-CERP/notedex/internal/ignore"
	"github.com/Aman-CERP/notedex/internal/scanner"
)

// Watcher watches a notes directory with fsnotify, falling back to polling.
type Watcher struct {
	opts        Options
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	useFsnotify bool
	excludes    *ignore.Matcher
	debouncer   *Debouncer
	events      chan []FileEvent
	errors      chan error
	stopCh      chan struct{}

	mu         sync.RWMutex
	rootPath   string
	stopped    bool
	suppressed map[string]time.Time

	droppedBatches atomic.Uint64
}

// New creates a watcher. fsnotify is tried first unless opts.ForcePolling
// is set; if it cannot be initialized the watcher polls.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()

	w := &Watcher{
		opts:       opts,
		excludes:   ignore.Compile(opts.IgnorePatterns),
		debouncer:  NewDebouncer(opts.DebounceWindow),
		events:     make(chan []FileEvent, opts.EventBufferSize),
		errors:     make(chan error, 8),
		stopCh:     make(chan struct{}),
		suppressed: make(map[string]time.Time),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fsWatcher = fsw
			w.useFsnotify = true
		} else {
			slog.Warn("fsnotify unavailable, falling back to polling",
				slog.String("error", err.Error()))
		}
	}
	if !w.useFsnotify {
		w.pollWatcher = NewPollingWatcher(opts.PollInterval, opts.Recursive)
	}
	return w, nil
}

// Start watches dir until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context, dir string) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.mu.Lock()
	w.rootPath = absPath
	w.mu.Unlock()

	go w.forwardBatches(ctx)

	if w.useFsnotify {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

func (w *Watcher) startFsnotify(ctx context.Context) error {
	if err := w.addDirs(w.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case event, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.handle(event.Path, event.IsDir, event.Operation)
			case err, ok := <-w.pollWatcher.Errors():
				if !ok {
					return
				}
				w.emitError(err)
			}
		}
	}()

	return w.pollWatcher.Start(ctx, w.rootPath)
}

func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir && w.opts.Recursive {
			if err := w.addDirs(event.Name); err != nil {
				w.emitError(err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// chmod
		return
	}

	w.handle(rel, isDir, op)
}

// handle filters one raw event and hands it to the debouncer.
func (w *Watcher) handle(rel string, isDir bool, op Operation) {
	op, ok := w.classify(rel, isDir, op)
	if !ok {
		return
	}
	if w.isSuppressed(rel) {
		slog.Debug("watch_event_suppressed", slog.String("path", rel), slog.String("op", op.String()))
		return
	}
	w.debouncer.Add(FileEvent{
		Path:      rel,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// classify decides whether an event concerns the index, and rewrites the
// operation of ignore and config files.
func (w *Watcher) classify(rel string, isDir bool, op Operation) (Operation, bool) {
	if rel == "" || rel == "." || strings.HasPrefix(rel, "../") {
		return op, false
	}

	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if scanner.IsExcludedDir(dir) {
			return op, false
		}
	}
	nested := len(parts) > 1
	if nested && !w.opts.Recursive {
		return op, false
	}
	if w.excludes.Match(rel, isDir) {
		return op, false
	}

	name := parts[len(parts)-1]
	switch {
	case isDir:
		if !w.opts.Recursive || scanner.IsExcludedDir(name) {
			return op, false
		}
		return op, true
	case scanner.IsIgnoreFile(name):
		return OpIgnoreChange, true
	case !nested && slices.Contains(config.ProjectConfigNames, name):
		return OpConfigChange, true
	case strings.EqualFold(filepath.Ext(name), w.opts.Extension):
		return op, true
	case w.opts.Recursive && filepath.Ext(name) == "" && (op == OpDelete || op == OpRename):
		// A removed directory can no longer be stat'ed.
		return op, true
	default:
		return op, false
	}
}

// Suppress mutes events for the given paths for Options.SuppressFor.
// Paths may be absolute or relative to the watched directory.
func (w *Watcher) Suppress(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	until := time.Now().Add(w.opts.SuppressFor)
	for _, p := range paths {
		if filepath.IsAbs(p) && w.rootPath != "" {
			rel, err := filepath.Rel(w.rootPath, p)
			if err != nil {
				continue
			}
			p = rel
		}
		w.suppressed[filepath.ToSlash(p)] = until
	}
}

func (w *Watcher) isSuppressed(rel string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for path, until := range w.suppressed {
		if now.After(until) {
			delete(w.suppressed, path)
		}
	}
	if _, ok := w.suppressed[rel]; ok {
		return true
	}
	// Paths registered before Start resolved the root stay absolute.
	_, ok := w.suppressed[filepath.ToSlash(filepath.Join(w.rootPath, filepath.FromSlash(rel)))]
	return ok
}

func (w *Watcher) forwardBatches(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) > 0 {
				w.emitBatch(batch)
			}
		}
	}
}

// addDirs adds root and, in recursive mode, every directory below it that
// the scanner would descend into.
func (w *Watcher) addDirs(root string) error {
	if !w.opts.Recursive {
		return w.fsWatcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.rootPath {
			rel, _ := filepath.Rel(w.rootPath, path)
			rel = filepath.ToSlash(rel)
			if scanner.IsExcludedDir(d.Name()) || w.excludes.Match(rel, true) {
				return filepath.SkipDir
			}
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) emitBatch(batch []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and closes its channels. Safe to call multiple
// times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()

	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of debounced batches.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Type returns "fsnotify" or "polling".
func (w *Watcher) Type() string {
	if w.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// DroppedBatches returns the number of batches dropped on a full buffer.
func (w *Watcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}
