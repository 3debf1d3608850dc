package cachelock

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockUnlockRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := New(filepath.Join(dir, "x.lock"), 0, time.Millisecond, time.Second, nil)

	unlock, err := l.Lock()
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	unlock()

	unlock2, err := l.Lock()
	if err != nil {
		t.Fatalf("second Lock() error = %v", err)
	}
	unlock2()
}

func TestLockSerializesConcurrentHolders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.lock")

	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := New(path, 0, time.Millisecond, 5*time.Second, nil)
			unlock, err := l.Lock()
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&maxActive)
				if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrently held locks = %d, want 1 (locks must serialize)", maxActive)
	}
}

func TestLockTimeoutWhenHeld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.lock")

	holder := New(path, 0, time.Millisecond, time.Hour, nil)
	unlock, err := holder.Lock()
	if err != nil {
		t.Fatalf("holder Lock() error = %v", err)
	}
	defer unlock()

	waiter := New(path, 0, 5*time.Millisecond, 30*time.Millisecond, nil)
	if _, err := waiter.Lock(); err == nil {
		t.Errorf("Lock() on an already-held lock should time out, got nil error")
	}
}

func TestForMirrorAndForDatabasePaths(t *testing.T) {
	mirrorPath := "/cache/mirrors/github.com/org/repo"
	l := ForMirror(mirrorPath, 0, time.Millisecond, time.Second, nil)
	want := filepath.Join("/cache/mirrors/github.com/org", ".lock", "repo")
	if l.path != want {
		t.Errorf("ForMirror path = %q, want %q", l.path, want)
	}

	dbLock := ForDatabase("/cache", 0, time.Millisecond, time.Second, nil)
	if dbLock.path != filepath.Join("/cache", "db.lock") {
		t.Errorf("ForDatabase path = %q, want /cache/db.lock", dbLock.path)
	}
}
