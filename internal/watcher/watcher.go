package watcher

import (
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new note was created.
	OpCreate Operation = iota
	// OpModify indicates an existing note was modified.
	OpModify
	// OpDelete indicates a note was deleted.
	OpDelete
	// OpRename indicates a note was renamed away.
	OpRename
	// OpIgnoreChange indicates a .gitignore or .notedexignore file changed.
	// Cached ignore matchers must be dropped before the next scan.
	OpIgnoreChange
	// OpConfigChange indicates the project config (.notedex.yaml) changed.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpIgnoreChange:
		return "IGNORE_CHANGE"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a change to one file under the watched directory.
type FileEvent struct {
	// Path is relative to the watched directory, slash separated.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// IsDir indicates if the event is for a directory.
	IsDir bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	// Default: 500ms
	DebounceWindow time.Duration

	// PollInterval is the interval of the polling fallback.
	// Default: 2s
	PollInterval time.Duration

	// ForcePolling skips fsnotify entirely.
	ForcePolling bool

	// EventBufferSize is the capacity of the batch channel.
	// Default: 16
	EventBufferSize int

	// Extension selects the note files to report (default ".md").
	Extension string

	// Recursive watches subdirectories too.
	Recursive bool

	// IgnorePatterns are gitignore-style patterns of paths never reported.
	IgnorePatterns []string

	// SuppressFor is how long a path registered with Suppress stays muted.
	// Default: DebounceWindow + 2s
	SuppressFor time.Duration
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    2 * time.Second,
		EventBufferSize: 16,
		Extension:       ".md",
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.Extension == "" {
		o.Extension = defaults.Extension
	}
	if o.SuppressFor <= 0 {
		o.SuppressFor = o.DebounceWindow + 2*time.Second
	}
	return o
}

// Summary counts the operations of a batch.
type Summary struct {
	Notes         int
	IgnoreChanged bool
	ConfigChanged bool
}

// Summarize reports what a batch touched.
func Summarize(events []FileEvent) Summary {
	var s Summary
	for _, e := range events {
		switch e.Operation {
		case OpIgnoreChange:
			s.IgnoreChanged = true
		case OpConfigChange:
			s.ConfigChanged = true
		default:
			s.Notes++
		}
	}
	return s
}
