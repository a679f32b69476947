// Package lock provides the cross-process run lock of a notes directory.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
)

// FileName is the lock file created in the notes directory.
const FileName = ".notedex.lock"

// DefaultRetryDelay is the polling interval of LockContext.
const DefaultRetryDelay = 100 * time.Millisecond

// FileLock guards a notes directory so two runs (for example watch and a
// manual index) never write pages at the same time.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New returns an unlocked lock for dir. The lock file lives at
// <dir>/.notedex.lock.
func New(dir string) *FileLock {
	path := filepath.Join(dir, FileName)
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Acquire takes the lock for dir without blocking. A lock held elsewhere
// is reported as ERR_205.
func Acquire(dir string) (*FileLock, error) {
	l := New(dir)
	acquired, err := l.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, nerrors.New(nerrors.ErrCodeRunLocked, "another notedex run is using this directory", nil).
			WithPath(l.path).
			WithSuggestion("wait for the other run to finish, or stop 'notedex watch'")
	}
	return l, nil
}

// AcquireWait takes the lock for dir, waiting up to wait for another run
// to release it. A non-positive wait behaves like Acquire.
func AcquireWait(ctx context.Context, dir string, wait time.Duration) (*FileLock, error) {
	if wait <= 0 {
		return Acquire(dir)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	l := New(dir)
	if err := l.LockContext(waitCtx, DefaultRetryDelay); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nerrors.New(nerrors.ErrCodeRunLocked,
				fmt.Sprintf("another notedex run kept this directory locked for %s", wait), nil).
				WithPath(l.path).
				WithSuggestion("stop 'notedex watch' or retry with a longer --wait")
		}
		return nil, err
	}
	return l, nil
}

// Held reports whether another process currently holds the lock for dir.
func Held(dir string) (bool, error) {
	if _, err := os.Stat(filepath.Join(dir, FileName)); os.IsNotExist(err) {
		return false, nil
	}

	l := New(dir)
	acquired, err := l.TryLock()
	if err != nil {
		return false, err
	}
	if acquired {
		return false, l.Unlock()
	}
	return true, nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *FileLock) TryLock() (bool, error) {
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, lockError(l.path, err)
	}
	l.locked = acquired
	return acquired, nil
}

// LockContext waits for the lock, polling every retryDelay, until ctx is
// done.
func (l *FileLock) LockContext(ctx context.Context, retryDelay time.Duration) error {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	acquired, err := l.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return lockError(l.path, err)
	}
	l.locked = acquired
	return nil
}

// Unlock releases the lock. It is safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held by this FileLock.
func (l *FileLock) IsLocked() bool {
	return l.locked
}

func lockError(path string, err error) error {
	code := nerrors.ErrCodeFileNotFound
	if os.IsPermission(err) {
		code = nerrors.ErrCodeFilePermission
	}
	return nerrors.New(code, "cannot create lock file", err).WithPath(path)
}
