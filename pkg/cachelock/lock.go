// Package cachelock implements gitcache's cross-process advisory locking:
// one lock per mirror directory and one lock for the shared database file,
// each with a warn-after/retry-until-timeout acquisition policy so a long
// hung lock holder is reported instead of silently hanging forever.
//
// Grounded on original_source/src/git_cache/git_mirror.py's Locker class
// (__enter__ tries WarnIfLockedFor first, then retries on CheckInterval up
// to LockTimeout). github.com/gofrs/flock replaces Python's portalocker as
// the underlying cross-process file lock (see DESIGN.md for why
// go-deadlock, the teacher's lock library, isn't suitable here).
package cachelock

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/seeraven/gitcache/pkg/errkind"
)

// Lock wraps a single lock file with the warn/retry acquisition policy.
type Lock struct {
	path          string
	warnAfter     time.Duration
	checkInterval time.Duration
	timeout       time.Duration
	log           *slog.Logger
}

// New returns a Lock backed by the file at path. warnAfter, checkInterval
// and timeout come from the Command section of the config
// (WarnIfLockedFor, CheckInterval, LockTimeout).
func New(path string, warnAfter, checkInterval, timeout time.Duration, log *slog.Logger) *Lock {
	if log == nil {
		log = slog.Default()
	}
	return &Lock{
		path:          path,
		warnAfter:     warnAfter,
		checkInterval: checkInterval,
		timeout:       timeout,
		log:           log,
	}
}

// ForMirror returns the per-mirror lock for the mirror rooted at
// mirrorPath, stored as a sibling ".lock/<basename>" file, matching
// git_mirror.py's lockfile path (so the lock survives the mirror directory
// itself being deleted and recreated).
func ForMirror(mirrorPath string, warnAfter, checkInterval, timeout time.Duration, log *slog.Logger) *Lock {
	dir := filepath.Join(filepath.Dir(mirrorPath), ".lock")
	return New(filepath.Join(dir, filepath.Base(mirrorPath)), warnAfter, checkInterval, timeout, log)
}

// ForDatabase returns the lock protecting db.json inside cacheDir.
func ForDatabase(cacheDir string, warnAfter, checkInterval, timeout time.Duration, log *slog.Logger) *Lock {
	return New(filepath.Join(cacheDir, "db.lock"), warnAfter, checkInterval, timeout, log)
}

// Lock blocks until the lock is acquired or the timeout elapses, returning
// an unlock function to be deferred by the caller. It logs a warning once
// warnAfter has elapsed without acquiring the lock, and keeps retrying
// every checkInterval until timeout, mirroring the Locker class exactly.
func (l *Lock) Lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating lock dir for %s: %v", errkind.ErrFilesystem, l.path, err)
	}

	fl := flock.New(l.path)
	start := time.Now()
	warned := false

	for {
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("%w: locking %s: %v", errkind.ErrFilesystem, l.path, err)
		}
		if ok {
			return func() { _ = fl.Unlock() }, nil
		}

		elapsed := time.Since(start)
		if !warned && l.warnAfter > 0 && elapsed >= l.warnAfter {
			warned = true
			l.log.Warn("waiting for lock", "path", l.path, "elapsed", elapsed)
		}
		if l.timeout > 0 && elapsed >= l.timeout {
			return nil, fmt.Errorf("%w: %s held longer than %s", errkind.ErrLockTimeout, l.path, l.timeout)
		}

		interval := l.checkInterval
		if interval <= 0 {
			interval = time.Second
		}
		time.Sleep(interval)
	}
}
