// Package scanner discovers the notes to index in a directory.
// It filters by extension, honors ignore patterns and ignore files, and
// skips binary and oversized files.
package scanner

import (
	"time"
)

// FileInfo contains metadata about a discovered note.
type FileInfo struct {
	Path    string    // Relative path to the notes root, slash separated
	AbsPath string    // Absolute path
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the notes directory to scan.
	RootDir string

	// Extension selects notes by file extension (default ".md").
	Extension string

	// Recursive descends into subdirectories. When false only the top
	// level of RootDir is listed.
	Recursive bool

	// ExcludePatterns are gitignore-style patterns relative to RootDir.
	ExcludePatterns []string

	// RespectIgnoreFiles enables .gitignore and .notedexignore parsing.
	RespectIgnoreFiles bool

	// MaxFileSize is the maximum note size in bytes (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// FollowSymlinks includes symlinked notes (default: false).
	FollowSymlinks bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum note size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// DefaultExtension is the extension of notes and generated pages.
const DefaultExtension = ".md"

// defaultExcludeDirs are never descended into.
var defaultExcludeDirs = []string{
	".git",
	".notedex",
	".obsidian",
	".trash",
	"node_modules",
}
