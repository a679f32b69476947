package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/notedex/internal/ignore"
)

// ignoreCacheSize is the maximum number of per-directory ignore matchers
// kept between scans.
const ignoreCacheSize = 1000

// resultBuffer is the capacity of the result channel.
const resultBuffer = 64

// Scanner discovers notes in a directory.
// A Scanner may be reused across scans; parsed ignore files are cached
// until InvalidateIgnoreCache is called.
type Scanner struct {
	// ignoreCache maps an absolute directory to the matcher built from its
	// ignore files. Directories without ignore files map to nil.
	ignoreCache *lru.Cache[string, *ignore.Matcher]
}

// New creates a new Scanner instance.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *ignore.Matcher](ignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ignore cache: %w", err)
	}
	return &Scanner{ignoreCache: cache}, nil
}

// Scan streams every note under opts.RootDir. The channel is closed when
// scanning is complete or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat notes directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("notes path is not a directory: %s", absRoot)
	}

	results := make(chan ScanResult, resultBuffer)
	go func() {
		defer close(results)
		s.scan(ctx, absRoot, opts, results)
	}()
	return results, nil
}

// Collect runs Scan to completion and returns the notes sorted by path.
// Per-file problems are returned as warnings; err is set only when the scan
// could not start or was cancelled.
func (s *Scanner) Collect(ctx context.Context, opts *ScanOptions) (files []*FileInfo, warnings []error, err error) {
	results, err := s.Scan(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	for r := range results {
		if r.Error != nil {
			warnings = append(warnings, r.Error)
			continue
		}
		files = append(files, r.File)
	}
	if err := ctx.Err(); err != nil {
		return nil, warnings, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, warnings, nil
}

func (s *Scanner) scan(ctx context.Context, absRoot string, opts *ScanOptions, results chan<- ScanResult) {
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	excludes := ignore.Compile(opts.ExcludePatterns)

	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if path == absRoot {
				return err
			}
			return nil // Skip entries we can't access
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if !opts.Recursive || IsExcludedDir(d.Name()) ||
				s.ignored(absRoot, relPath, true, excludes, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}
		if s.ignored(absRoot, relPath, false, excludes, opts) {
			slog.Debug("scan_skip_ignored", slog.String("path", relPath))
			return nil
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() > maxFileSize {
			slog.Debug("scan_skip_large",
				slog.String("path", relPath),
				slog.Int64("size", info.Size()))
			return nil
		}
		if isBinaryFile(path) {
			slog.Debug("scan_skip_binary", slog.String("path", relPath))
			return nil
		}

		file := &FileInfo{
			Path:    relPath,
			AbsPath: path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		select {
		case results <- ScanResult{File: file}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// ignored applies the configured excludes, then the ignore files of the
// root and of every parent directory of relPath.
func (s *Scanner) ignored(absRoot, relPath string, isDir bool, excludes *ignore.Matcher, opts *ScanOptions) bool {
	if excludes.Match(relPath, isDir) {
		return true
	}
	if !opts.RespectIgnoreFiles {
		return false
	}

	dir, base := absRoot, ""
	parts := strings.Split(relPath, "/")
	for i := 0; i < len(parts); i++ {
		if m := s.ignoreMatcher(dir, base); m != nil && m.Match(relPath, isDir) {
			return true
		}
		if i == len(parts)-1 {
			break
		}
		dir = filepath.Join(dir, parts[i])
		base = strings.Join(parts[:i+1], "/")
	}
	return false
}

// ignoreMatcher returns the cached matcher for dir, reading its ignore
// files on first use.
func (s *Scanner) ignoreMatcher(dir, base string) *ignore.Matcher {
	if m, ok := s.ignoreCache.Get(dir); ok {
		return m
	}

	var m *ignore.Matcher
	for _, name := range ignore.FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if m == nil {
			m = ignore.New()
		}
		if err := m.AddFile(path, base); err != nil {
			slog.Warn("failed to read ignore file",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	s.ignoreCache.Add(dir, m)
	return m
}

// InvalidateIgnoreCache drops every cached matcher. Call it when an ignore
// file changes.
func (s *Scanner) InvalidateIgnoreCache() {
	s.ignoreCache.Purge()
}

// isBinaryFile checks if a file is binary by looking for null bytes.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// IsExcludedDir reports whether a directory name is never descended into.
func IsExcludedDir(name string) bool {
	return slices.Contains(defaultExcludeDirs, name)
}

// IsIgnoreFile reports whether name is one of the ignore files the scanner
// reads.
func IsIgnoreFile(name string) bool {
	return slices.Contains(ignore.FileNames, filepath.Base(name))
}
