package lock

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
)

func TestAcquire_CreatesLockFile(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer func() { _ = l.Unlock() }()

	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Errorf("lock file was not created: %v", err)
	}
	if !l.IsLocked() {
		t.Error("lock should be held after Acquire()")
	}
}

func TestAcquire_HeldElsewhere(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("first Acquire() failed: %v", err)
	}
	defer func() { _ = first.Unlock() }()

	second, err := Acquire(dir)
	if err == nil {
		_ = second.Unlock()
		t.Fatal("second Acquire() should fail while the lock is held")
	}
	if code := nerrors.GetCode(err); code != nerrors.ErrCodeRunLocked {
		t.Errorf("expected %s, got %s", nerrors.ErrCodeRunLocked, code)
	}
	if !nerrors.IsFatal(err) {
		t.Error("a held lock should be fatal for the run")
	}
}

func TestAcquire_AfterUnlock(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock() failed: %v", err)
	}

	second, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() after Unlock() failed: %v", err)
	}
	_ = second.Unlock()
}

func TestAcquire_MissingDirectory(t *testing.T) {
	_, err := Acquire(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	ne, ok := nerrors.As(err)
	if !ok {
		t.Fatalf("expected structured error, got %T", err)
	}
	if ne.Details["path"] == "" {
		t.Error("error should carry the lock path")
	}
}

func TestHeld(t *testing.T) {
	dir := t.TempDir()

	held, err := Held(dir)
	if err != nil || held {
		t.Fatalf("Held() on a fresh dir = %v, %v; want false, nil", held, err)
	}

	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	held, err = Held(dir)
	if err != nil || !held {
		t.Errorf("Held() while locked = %v, %v; want true, nil", held, err)
	}

	_ = l.Unlock()
	held, err = Held(dir)
	if err != nil || held {
		t.Errorf("Held() after unlock = %v, %v; want false, nil", held, err)
	}
}

func TestUnlock_Idempotent(t *testing.T) {
	l := New(t.TempDir())

	if err := l.Unlock(); err != nil {
		t.Errorf("Unlock() without lock should not error: %v", err)
	}
	if _, err := l.TryLock(); err != nil {
		t.Fatalf("TryLock() failed: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("first Unlock() failed: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Errorf("second Unlock() should not error: %v", err)
	}
}

func TestLockContext_WaitsForRelease(t *testing.T) {
	dir := t.TempDir()

	holder, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = holder.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	waiter := New(dir)
	if err := waiter.LockContext(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("LockContext() failed: %v", err)
	}
	if !waiter.IsLocked() {
		t.Error("waiter should hold the lock")
	}
	_ = waiter.Unlock()
}

func TestLockContext_Canceled(t *testing.T) {
	dir := t.TempDir()

	holder, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer func() { _ = holder.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	waiter := New(dir)
	if err := waiter.LockContext(ctx, 10*time.Millisecond); err == nil {
		t.Fatal("LockContext() should fail when the context expires")
	}
	if waiter.IsLocked() {
		t.Error("waiter must not hold the lock")
	}
}

func TestLockContext_Serializes(t *testing.T) {
	dir := t.TempDir()
	var (
		mu      sync.Mutex
		active  int
		overlap bool
		wg      sync.WaitGroup
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := New(dir)
			if err := l.LockContext(context.Background(), 5*time.Millisecond); err != nil {
				t.Errorf("LockContext() failed: %v", err)
				return
			}
			defer func() { _ = l.Unlock() }()

			mu.Lock()
			active++
			if active > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if overlap {
		t.Error("two holders were active at once")
	}
}

func TestPath(t *testing.T) {
	l := New("/some/dir")

	if want := filepath.Join("/some/dir", FileName); l.Path() != want {
		t.Errorf("Path() = %q, want %q", l.Path(), want)
	}
}

func TestAcquireWait_GetsLockAfterRelease(t *testing.T) {
	dir := t.TempDir()

	holder, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = holder.Unlock()
	}()

	l, err := AcquireWait(context.Background(), dir, 5*time.Second)
	if err != nil {
		t.Fatalf("AcquireWait() failed: %v", err)
	}
	defer func() { _ = l.Unlock() }()
	if !l.IsLocked() {
		t.Error("AcquireWait() should return a held lock")
	}
}

func TestAcquireWait_TimesOut(t *testing.T) {
	dir := t.TempDir()

	holder, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer func() { _ = holder.Unlock() }()

	_, err = AcquireWait(context.Background(), dir, 50*time.Millisecond)
	if got := nerrors.GetCode(err); got != nerrors.ErrCodeRunLocked {
		t.Errorf("AcquireWait() code = %q, want %q", got, nerrors.ErrCodeRunLocked)
	}
}

func TestAcquireWait_ParentCanceled(t *testing.T) {
	dir := t.TempDir()

	holder, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer func() { _ = holder.Unlock() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := AcquireWait(ctx, dir, time.Second); err != context.Canceled {
		t.Errorf("AcquireWait() error = %v, want context.Canceled", err)
	}
}

func TestAcquireWait_ZeroWaitFailsAtOnce(t *testing.T) {
	dir := t.TempDir()

	holder, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer func() { _ = holder.Unlock() }()

	start := time.Now()
	_, err = AcquireWait(context.Background(), dir, 0)
	if nerrors.GetCode(err) != nerrors.ErrCodeRunLocked {
		t.Errorf("AcquireWait() error = %v, want ERR_205", err)
	}
	if time.Since(start) > time.Second {
		t.Error("AcquireWait(0) should not wait")
	}
}
