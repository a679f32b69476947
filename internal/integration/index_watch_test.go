// Package integration holds tests that drive the index pipeline and the
// watcher together against a real notes directory.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/notedex/internal/config"
	"github.com/Aman-CERP/notedex/internal/pipeline"
	"github.com/Aman-CERP/notedex/internal/ui"
	"github.com/Aman-CERP/notedex/internal/watcher"
)

const (
	tripNote = "---\nTitle: Trip\n\nCreated: 20240101 09:15\nTags: travel todo\n"
	workNote = "---\nTitle: Standup\n\nCreated: 20240102 08:00\nTags: work todo\n"
)

type fixture struct {
	dir     string
	watcher *watcher.Watcher
	runner  *pipeline.Runner
}

func newFixture(t *testing.T, poll bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trip.md"), []byte(tripNote), 0o644))

	w, err := watcher.New(watcher.Options{
		DebounceWindow: 100 * time.Millisecond,
		PollInterval:   100 * time.Millisecond,
		ForcePolling:   poll,
	})
	require.NoError(t, err)

	cfg := config.NewConfig()
	r, err := pipeline.NewRunner(pipeline.RunnerDependencies{
		Renderer: ui.NopRenderer{},
		Config:   cfg,
		BeforeWrite: func(paths []string) {
			w.Suppress(paths...)
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	go func() { _ = w.Start(ctx, dir) }()

	// Let the watcher register the directory.
	time.Sleep(300 * time.Millisecond)

	return &fixture{dir: dir, watcher: w, runner: r}
}

func (f *fixture) index(t *testing.T) *pipeline.Result {
	t.Helper()
	res, err := f.runner.Run(context.Background(), pipeline.RunConfig{NotesDir: f.dir})
	require.NoError(t, err)
	return res
}

func (f *fixture) expectQuiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case batch := <-f.watcher.Events():
		t.Fatalf("unexpected batch: %+v", batch)
	case <-time.After(d):
	}
}

func (f *fixture) nextBatch(t *testing.T) []watcher.FileEvent {
	t.Helper()
	select {
	case batch := <-f.watcher.Events():
		return batch
	case err := <-f.watcher.Errors():
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
	return nil
}

func testIndexThenWatch(t *testing.T, poll bool) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a watched notes directory
	f := newFixture(t, poll)

	// When: the index is built
	res := f.index(t)
	require.Equal(t, 4, res.Pages)

	// Then: the pages it wrote produce no events
	f.expectQuiet(t, 600*time.Millisecond)

	// When: a note is added
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "standup.md"), []byte(workNote), 0o644))

	// Then: exactly that note is reported
	batch := f.nextBatch(t)
	require.Len(t, batch, 1)
	assert.Equal(t, "standup.md", batch[0].Path)
	assert.Equal(t, 1, watcher.Summarize(batch).Notes)

	// When: the index is rebuilt for that batch
	res = f.index(t)

	// Then: the new pages exist and the rebuild is silent too
	assert.Equal(t, 2, res.Notes)
	assert.FileExists(t, filepath.Join(f.dir, "work.md"))
	assert.FileExists(t, filepath.Join(f.dir, "20240102.md"))
	f.expectQuiet(t, 600*time.Millisecond)
}

func TestIndexThenWatch_Fsnotify(t *testing.T) {
	testIndexThenWatch(t, false)
}

func TestIndexThenWatch_Polling(t *testing.T) {
	testIndexThenWatch(t, true)
}

func TestWatch_StalePageRemovalIsSilent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: an indexed directory whose only tagged note loses its tags
	f := newFixture(t, false)
	f.index(t)
	f.expectQuiet(t, 600*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "trip.md"),
		[]byte("---\nTitle: Trip\n\nCreated: 20240101 09:15\nTags: todo\n"), 0o644))
	batch := f.nextBatch(t)
	require.Len(t, batch, 1)

	// When: rebuilding removes travel.md
	f.index(t)

	// Then: the removal is not reported back
	assert.NoFileExists(t, filepath.Join(f.dir, "travel.md"))
	f.expectQuiet(t, 600*time.Millisecond)
}
