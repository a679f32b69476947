// Package watcher reports changes to the notes of a directory so watch mode
// can rebuild the index.
//
// fsnotify is used when available, with a polling fallback for file systems
// that do not deliver events (network mounts, some container volumes).
// Events are filtered to notes, ignore files and project config files,
// debounced, and delivered in batches sorted by path.
//
// Paths written by the indexer itself are registered with Suppress so the
// pages of one run do not trigger the next:
//
//	w, err := watcher.New(watcher.Options{Recursive: true})
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Start(ctx, notesDir) }()
//
//	for batch := range w.Events() {
//	    result := rebuild()
//	    w.Suppress(result.Written...)
//	}
package watcher
