package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/seeraven/gitcache/giturl"
	"github.com/seeraven/gitcache/pkg/cachelock"
	"github.com/seeraven/gitcache/pkg/config"
	"github.com/seeraven/gitcache/pkg/db"
	"github.com/seeraven/gitcache/pkg/errkind"
	"github.com/seeraven/gitcache/pkg/gitopt"
	"github.com/seeraven/gitcache/pkg/runner"
)

// Mirror is a single local bare mirror of an upstream repository, rooted
// at Path under the cache directory's "mirrors" subtree.
//
// Grounded on git_mirror.py's GitMirror: the field layout (url, path,
// git_dir, git_lfs_dir, lockfile) and the lock-then-mutate discipline of
// every exported method are translated one for one; the struct/
// constructor shape (absolute-path validation, slog logger binding)
// borrows from the teacher's pkg/mirror/repository.go, minus the
// daemon-only worktree-link and interval-loop fields gitcache has no use
// for.
type Mirror struct {
	URL           string
	NormalizedURL string
	Path          string // <cacheDir>/mirrors/<host>/<path>
	GitDir        string // <Path>/git
	LFSDir        string // <Path>/lfs

	cfg  *config.Config
	db   *db.DB
	lock *cachelock.Lock
	log  *slog.Logger
}

// Open returns the Mirror for rawURL, computing its deterministic path
// under cacheDir. rawURL's mirror need not exist on disk yet: Update
// creates it on first use.
func Open(cfg *config.Config, database *db.DB, cacheDir, rawURL string, log *slog.Logger) (*Mirror, error) {
	if log == nil {
		log = slog.Default()
	}

	normalized, err := giturl.Normalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errkind.ErrURL, err)
	}

	rel, ok := giturl.MirrorPath(rawURL)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no stable mirror location", errkind.ErrURL, rawURL)
	}

	path := filepath.Join(cacheDir, "mirrors", filepath.FromSlash(rel))
	return newMirror(cfg, database, rawURL, normalized, path, log)
}

// OpenByPath returns the Mirror rooted at path, looking its upstream URL
// up in database.
func OpenByPath(cfg *config.Config, database *db.DB, path string, log *slog.Logger) (*Mirror, error) {
	if log == nil {
		log = slog.Default()
	}

	url, ok, err := database.GetURLForPath(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no mirror registered at %s", errkind.ErrNotExist, path)
	}

	normalized, err := giturl.Normalize(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errkind.ErrURL, err)
	}
	return newMirror(cfg, database, url, normalized, path, log)
}

func newMirror(cfg *config.Config, database *db.DB, rawURL, normalized, path string, log *slog.Logger) (*Mirror, error) {
	m := &Mirror{
		URL:           rawURL,
		NormalizedURL: normalized,
		Path:          path,
		GitDir:        filepath.Join(path, "git"),
		LFSDir:        filepath.Join(path, "lfs"),
		cfg:           cfg,
		db:            database,
		log:           log.With("mirror", path),
	}
	m.lock = cachelock.ForMirror(path, cfg.WarnIfLockedFor(), cfg.CheckInterval(), cfg.LockTimeout(), m.log)

	if err := os.MkdirAll(m.LFSDir, defaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", errkind.ErrFilesystem, m.LFSDir, err)
	}
	return m, nil
}

func (m *Mirror) exists() (bool, error) {
	_, ok, err := m.db.Get(m.Path)
	return ok, err
}

// Update creates the mirror on first use, or refreshes it if force is set
// or the configured update interval has elapsed. ref selects which ref's
// LFS objects are fetched afterwards; an empty ref means "the default
// branch". It returns false (without error) if the mirror's lock could
// not be acquired before the configured timeout.
func (m *Mirror) Update(ctx context.Context, ref string, force bool) (bool, error) {
	mirrorExists, err := m.exists()
	if err != nil {
		return false, err
	}

	unlock, err := m.lock.Lock()
	if err != nil {
		m.log.Error("update timed out due to locked mirror")
		return false, nil
	}
	defer unlock()

	if !mirrorExists {
		_ = rmtree(m.Path)
		return m.clone(ctx, ref)
	}

	if force || m.updateTimeReached() {
		return m.update(ctx, ref, true)
	}

	m.log.Info("update time of mirror not reached yet")
	return true, nil
}

// Fetch runs "git fetch <commandArgs...>" inside an existing mirror. It
// fails if the mirror does not exist yet.
func (m *Mirror) Fetch(ctx context.Context, commandArgs []string) (bool, error) {
	mirrorExists, err := m.exists()
	if err != nil {
		return false, err
	}
	if !mirrorExists {
		m.log.Error("mirror does not exist")
		return false, nil
	}

	unlock, err := m.lock.Lock()
	if err != nil {
		m.log.Error("fetch timed out due to locked mirror")
		return false, nil
	}
	defer unlock()

	return m.fetch(ctx, commandArgs), nil
}

// FetchLFS fetches the LFS objects referenced by ref (or the default
// branch if ref is empty) into the mirror.
func (m *Mirror) FetchLFS(ctx context.Context, ref string, options []string) (bool, error) {
	if !hasGitLFS(ctx) {
		m.log.Warn("LFS fetch skipped as git-lfs is not available on this system")
		return true, nil
	}

	unlock, err := m.lock.Lock()
	if err != nil {
		m.log.Error("LFS fetch timed out due to locked mirror", "ref", ref)
		return false, nil
	}
	defer unlock()

	return m.fetchLFS(ctx, ref, options), nil
}

// Cleanup deletes the mirror if it has been inactive longer than
// MirrorHandling.CleanupAfter, returning whether it was deleted.
func (m *Mirror) Cleanup(ctx context.Context) (bool, error) {
	elapsed, err := m.db.TimeSinceLastUpdate(m.Path)
	if err != nil {
		return false, err
	}
	if elapsed < m.cfg.CleanupAfter() {
		return false, nil
	}
	m.log.Debug("mirror is too old, removing it")
	return m.Delete(ctx)
}

// Delete removes the mirror's database entry and its on-disk contents.
func (m *Mirror) Delete(ctx context.Context) (bool, error) {
	unlock, err := m.lock.Lock()
	if err != nil {
		m.log.Error("delete timed out due to locked mirror")
		return false, nil
	}

	m.log.Debug("deleting mirror")
	if err := m.db.Remove(m.Path); err != nil {
		unlock()
		return false, err
	}
	_ = rmtree(m.Path)
	unlock()

	// Remove again outside the lock so the lock file and its ".lock"
	// directory are cleaned up too, matching git_mirror.py:delete.
	if _, err := os.Stat(m.Path); err == nil {
		if err := rmtree(m.Path); err != nil {
			return false, err
		}
	}
	return true, nil
}

// CloneFromMirror clones a working checkout from the mirror's git
// directory, rewriting inv's argv to point at GitDir and wiring the LFS
// URL/storage config onto the new checkout, then publishes the real
// upstream URL as the checkout's push URL.
//
// Grounded on git_mirror.py:clone_from_mirror.
func (m *Mirror) CloneFromMirror(ctx context.Context, inv *gitopt.Invocation) (int, error) {
	ref := inv.Branch()

	updated, err := m.Update(ctx, ref, false)
	if err != nil {
		return 1, err
	}
	if !updated {
		return 1, nil
	}

	realGit := m.cfg.RealGit()
	lfsURL := m.URL + "/info/lfs"

	var newArgs []string
	for _, a := range inv.AllArgs {
		if a == m.URL {
			newArgs = append(newArgs, m.GitDir)
		} else {
			newArgs = append(newArgs, a)
		}
	}
	newArgs = removeAll(newArgs, "--recursive", "--recurse-submodules", "--remote-submodules")

	// -c options are inserted right after realGit, matching the Python
	// original's positional insert.
	argv := []string{realGit, "-c", "lfs.url=" + lfsURL}
	if m.cfg.LFSPerMirrorStorage() {
		argv = append(argv, "-c", "lfs.storage="+m.LFSDir)
	}
	argv = append(argv, newArgs...)

	var targetDir string
	if len(inv.CommandArgs) > 1 {
		targetDir = inv.CommandArgs[1]
	} else {
		targetDir = strings.TrimSuffix(filepath.Base(m.URL), ".git")
		argv = append(argv, targetDir)
	}

	result := runner.PrettyRetry(ctx, m.log, fmt.Sprintf("clone from mirror %s", m.Path), "", argv, runner.RetryOptions{
		Options: runner.Options{
			CommandTimeout: m.cfg.CloneCommandTimeout(),
			OutputTimeout:  m.cfg.CloneOutputTimeout(),
			CaptureStderr:  true,
			UseTTY:         true,
		},
		Retries:   m.cfg.CloneRetries(),
		RemoveDir: targetDir,
	})
	if result.Rc() != 0 {
		return result.Rc(), nil
	}

	if err := m.db.IncrementCounter(m.Path, db.CounterClones); err != nil {
		return 0, err
	}

	m.log.Info("setting push URL and configuring LFS", "url", m.URL)
	runPaths := inv.GetGlobalGroupValues("run_path")
	cwdParts := make([]string, 0, len(runPaths)+1)
	for _, p := range runPaths {
		if p != nil {
			cwdParts = append(cwdParts, *p)
		}
	}
	cwdParts = append(cwdParts, targetDir)
	cwd := filepath.Join(cwdParts...)
	if !filepath.IsAbs(cwd) {
		if abs, err := filepath.Abs(cwd); err == nil {
			cwd = abs
		}
	}

	commands := [][]string{
		{realGit, "remote", "set-url", "--push", "origin", m.URL},
		{realGit, "config", "--local", "lfs.url", lfsURL},
	}
	if m.cfg.LFSPerMirrorStorage() {
		commands = append(commands, []string{realGit, "config", "--local", "lfs.storage", m.LFSDir})
	}

	retval := 0
	for _, command := range commands {
		rc := runner.Simple(ctx, command, cwd)
		if rc != 0 {
			m.log.Error("command failed", "command", command, "cwd", cwd, "rc", rc)
			retval = rc
		}
	}
	return retval, nil
}

// GetDefaultRef returns the mirror's default branch (e.g. "main"), as
// reported by "git symbolic-ref --short HEAD".
func (m *Mirror) GetDefaultRef(ctx context.Context) (string, bool) {
	rc, ref := runner.StatusOutput(ctx, []string{m.cfg.RealGit(), "symbolic-ref", "--short", "HEAD"}, m.GitDir)
	if rc != 0 {
		return "", false
	}
	return ref, true
}

func (m *Mirror) updateTimeReached() bool {
	interval := m.cfg.UpdateInterval()
	if interval < 0 {
		return false
	}
	elapsed, err := m.db.TimeSinceLastUpdate(m.Path)
	if err != nil {
		return false
	}
	return elapsed >= interval
}

func (m *Mirror) clone(ctx context.Context, ref string) (bool, error) {
	start := time.Now()
	ok, err := m.doClone(ctx)
	recordUpdate(m.Path, ok, start)
	if err != nil || !ok {
		return false, err
	}

	if err := m.db.Add(m.Path, m.NormalizedURL); err != nil {
		return false, err
	}

	return m.fetchLFS(ctx, ref, nil), nil
}

func (m *Mirror) doClone(ctx context.Context) (bool, error) {
	realGit := m.cfg.RealGit()
	retryOpts := runner.RetryOptions{
		Options: runner.Options{
			CommandTimeout: m.cfg.CloneCommandTimeout(),
			OutputTimeout:  m.cfg.CloneOutputTimeout(),
			CaptureStderr:  true,
			UseTTY:         true,
		},
		Retries: m.cfg.CloneRetries(),
	}

	if m.cfg.CloneStyle() == config.CloneStylePartialFirst {
		argv := []string{realGit, "clone", "--progress", "--depth=1", m.URL, m.GitDir}
		partialOpts := retryOpts
		partialOpts.RemoveDir = m.GitDir
		result := runner.PrettyRetry(ctx, m.log, fmt.Sprintf("partial clone of %s into %s", m.URL, m.Path), "", argv, partialOpts)
		if result.Rc() != 0 {
			return false, nil
		}

		unshallowArgv := []string{realGit, "-C", m.GitDir, "fetch", "--unshallow"}
		result = runner.PrettyRetry(ctx, m.log, fmt.Sprintf("fetching the rest of %s into %s", m.URL, m.Path), "", unshallowArgv, retryOpts)
		if result.Rc() != 0 {
			_ = rmtree(m.GitDir)
			return false, nil
		}
		return true, nil
	}

	argv := []string{realGit, "clone", "--progress", "--mirror", m.URL, m.GitDir}
	retryOpts.RemoveDir = m.GitDir
	result := runner.PrettyRetry(ctx, m.log, fmt.Sprintf("initial clone of %s into %s", m.URL, m.Path), "", argv, retryOpts)
	return result.Rc() == 0, nil
}

func (m *Mirror) update(ctx context.Context, ref string, handleGCError bool) (bool, error) {
	start := time.Now()
	realGit := m.cfg.RealGit()
	argv := []string{realGit, "remote", "update", "--prune"}

	var abortPattern []byte
	if handleGCError {
		abortPattern = []byte("remove gc.log")
	}

	result := runner.PrettyRetry(ctx, m.log, fmt.Sprintf("update of %s", m.Path), "garbage collection error", argv, runner.RetryOptions{
		Options: runner.Options{
			Cwd:            m.GitDir,
			CommandTimeout: m.cfg.UpdateCommandTimeout(),
			OutputTimeout:  m.cfg.UpdateOutputTimeout(),
			CaptureStderr:  true,
		},
		Retries:      m.cfg.UpdateRetries(),
		AbortPattern: abortPattern,
	})
	recordUpdate(m.Path, result.Rc() == 0, start)

	switch {
	case result.Rc() == 0:
		if handleGCError && (strings.Contains(string(result.Stdout), "remove gc.log") || strings.Contains(string(result.Stderr), "remove gc.log")) {
			if ok, err := m.runGC(ctx); err != nil || !ok {
				return false, err
			}
		}
		if err := m.db.SaveUpdateTime(m.Path); err != nil {
			return false, err
		}
	case handleGCError && result.Outcome == runner.OutcomeAbortedOnPattern:
		ok, err := m.runGC(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return m.update(ctx, ref, false)
		}
		return false, nil
	default:
		return false, nil
	}

	return m.fetchLFS(ctx, ref, nil), nil
}

func (m *Mirror) runGC(ctx context.Context) (bool, error) {
	realGit := m.cfg.RealGit()
	argv := []string{realGit, "gc"}
	result := runner.PrettyRetry(ctx, m.log, fmt.Sprintf("garbage collection on %s", m.Path), "", argv, runner.RetryOptions{
		Options: runner.Options{
			Cwd:            m.GitDir,
			CommandTimeout: m.cfg.GCCommandTimeout(),
			OutputTimeout:  m.cfg.GCOutputTimeout(),
			CaptureStderr:  true,
		},
		Retries: m.cfg.GCRetries(),
	})

	if result.Rc() == 0 {
		gcLog := filepath.Join(m.GitDir, "gc.log")
		if _, err := os.Stat(gcLog); err == nil {
			_ = os.Remove(gcLog)
		}
	}
	return result.Rc() == 0, nil
}

func (m *Mirror) fetch(ctx context.Context, commandArgs []string) bool {
	realGit := m.cfg.RealGit()
	argv := append([]string{realGit, "fetch"}, commandArgs...)
	result := runner.PrettyRetry(ctx, m.log, fmt.Sprintf("explicit fetch on %s with arguments %v", m.Path, commandArgs), "", argv, runner.RetryOptions{
		Options: runner.Options{
			Cwd:            m.GitDir,
			CommandTimeout: m.cfg.UpdateCommandTimeout(),
			OutputTimeout:  m.cfg.UpdateOutputTimeout(),
			CaptureStderr:  true,
		},
		Retries: m.cfg.UpdateRetries(),
	})
	return result.Rc() == 0
}

func (m *Mirror) fetchLFS(ctx context.Context, ref string, options []string) bool {
	if !hasGitLFS(ctx) {
		m.log.Warn("LFS fetch skipped as git-lfs is not available on this system")
		return true
	}

	realGit := m.cfg.RealGit()
	argv := []string{realGit}
	if m.cfg.LFSPerMirrorStorage() {
		argv = append(argv, "-c", "lfs.storage="+m.LFSDir)
	}
	argv = append(argv, "lfs", "fetch")
	argv = append(argv, options...)

	if ref == "" {
		var ok bool
		ref, ok = m.GetDefaultRef(ctx)
		if !ok {
			m.log.Error("can't determine default ref of git repository")
			return false
		}
	}
	argv = append(argv, "origin", ref)

	result := runner.PrettyRetry(ctx, m.log, fmt.Sprintf("LFS fetch of ref %s from %s into %s", ref, m.URL, m.Path), "", argv, runner.RetryOptions{
		Options: runner.Options{
			Cwd:            m.GitDir,
			CommandTimeout: m.cfg.LFSCommandTimeout(),
			OutputTimeout:  m.cfg.LFSOutputTimeout(),
			CaptureStderr:  true,
		},
		Retries: m.cfg.LFSRetries(),
	})

	success := result.Rc() == 0
	recordLFSFetch(m.Path, success)
	if success {
		_ = m.db.IncrementCounter(m.Path, db.CounterLFSUpdates)
	}
	return success
}

func removeAll(s []string, remove ...string) []string {
	skip := make(map[string]bool, len(remove))
	for _, r := range remove {
		skip[r] = true
	}
	out := make([]string, 0, len(s))
	for _, v := range s {
		if !skip[v] {
			out = append(out, v)
		}
	}
	return out
}

var (
	lfsOnce      sync.Once
	lfsAvailable bool
)

// hasGitLFS reports whether the git-lfs plugin is installed, cached for
// the lifetime of the process like config.py:has_git_lfs_cmd's function
// attribute memoization.
func hasGitLFS(ctx context.Context) bool {
	lfsOnce.Do(func() {
		lfsAvailable = runner.Simple(ctx, []string{"git-lfs", "version"}, "") == 0
	})
	return lfsAvailable
}
