// Package mirror implements gitcache's local bare-mirror lifecycle: first
// clone, incremental update, garbage collection, LFS object fetch,
// worktree checkout from a mirror, and staleness-driven cleanup/deletion.
//
// The Mirror struct and its constructor follow the shape of the teacher's
// Repository type (absolute-path validation, slog logger binding), but the
// daemon-only concerns (published worktree symlinks, an interval loop
// owning its own goroutine) are dropped: gitcache runs once per invocation
// and exits, it never holds a mirror open in the background. The lifecycle
// algorithms themselves (Clone, InternalUpdate's gc.log recovery, RunGC,
// FetchLFS, CloneFromMirror, staleness predicates) are grounded on
// original_source/src/git_cache/git_mirror.py's GitMirror class.
package mirror
