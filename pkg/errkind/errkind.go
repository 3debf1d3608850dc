// Package errkind defines the sentinel error values gitcache surfaces at its
// component boundaries, in the style of the teacher's ErrExist/ErrNotExist
// sentinels (pkg/mirror/repo_pool.go).
package errkind

import "errors"

var (
	// ErrConfig covers malformed config, a misconfigured real git, or an
	// invalid regex in UrlPatterns.
	ErrConfig = errors.New("gitcache: config error")

	// ErrURL means a URL could not be parsed into a mirror path. Callers
	// treat this as a signal to fall through to the real git, not as a
	// fatal error.
	ErrURL = errors.New("gitcache: url error")

	// ErrLockTimeout means a per-mirror or database lock could not be
	// acquired within the configured timeout.
	ErrLockTimeout = errors.New("gitcache: lock timeout")

	// ErrChildTimeout, ErrChildOutputStall, ErrChildAbortPattern and
	// ErrChildNotFound mirror the runner's rc sentinels (-1000, -2000,
	// -3000, 127) as errors.Is-compatible values.
	ErrChildTimeout      = errors.New("gitcache: command timed out")
	ErrChildOutputStall  = errors.New("gitcache: command produced no output")
	ErrChildAbortPattern = errors.New("gitcache: command aborted on pattern match")
	ErrChildNotFound     = errors.New("gitcache: command not found")

	// ErrFilesystem covers rmtree/permission errors.
	ErrFilesystem = errors.New("gitcache: filesystem error")

	// ErrGarbageCollection means a remote update hit a gc.log conflict
	// that could not be recovered after one gc-and-retry cycle.
	ErrGarbageCollection = errors.New("gitcache: garbage collection error")

	// ErrNotExist and ErrExist follow the teacher's repo-pool sentinel
	// naming for "no such mirror"/"mirror already known" conditions.
	ErrNotExist = errors.New("gitcache: mirror does not exist")
	ErrExist    = errors.New("gitcache: mirror already exists")
)
