package dispatch

import (
	"context"
	"strings"

	"github.com/seeraven/gitcache/giturl"
	"github.com/seeraven/gitcache/pkg/gitopt"
	"github.com/seeraven/gitcache/pkg/runner"
)

// mirrorPathFor reports whether rawURL has a stable mirror location,
// matching GitMirror.get_mirror_path's None-on-local-URL behavior.
func mirrorPathFor(rawURL string) (string, bool) {
	return giturl.MirrorPath(rawURL)
}

// Grounded on original_source/src/git_cache/commands/helpers.py.

// simple runs argv once with no retries and returns its rc, mirroring
// command_execution.py:simple_call_command.
func (d *Dispatcher) simple(ctx context.Context, argv []string, cwd string) int {
	return runner.Simple(ctx, argv, cwd)
}

// pullURL returns the pull URL of the checkout's origin remote, or "" if
// there is none (not yet a git repository, or no such remote).
func (d *Dispatcher) pullURL(ctx context.Context, inv *gitopt.Invocation) string {
	argv := append(inv.RealGitWithOptions(d.Config.RealGit()), "remote", "get-url", "origin")
	rc, url := runner.StatusOutput(ctx, argv, "")
	if rc != 0 {
		return ""
	}
	return url
}

// mirrorURL returns the real upstream URL of the checkout's mirror, if
// the checkout's origin currently points into gitcache's cache directory,
// by reading the push URL gitcache configured at clone time.
func (d *Dispatcher) mirrorURL(ctx context.Context, inv *gitopt.Invocation) string {
	pullURL := d.pullURL(ctx, inv)
	if pullURL == "" || !strings.HasPrefix(pullURL, d.CacheDir) {
		return ""
	}
	argv := append(inv.RealGitWithOptions(d.Config.RealGit()), "remote", "get-url", "--push", "origin")
	rc, url := runner.StatusOutput(ctx, argv, "")
	if rc != 0 {
		d.Log.Warn("can't get push URL of the repository")
		return ""
	}
	return url
}

// currentRef returns the checkout's current ref, e.g. "main" or a detached
// commit hash.
func (d *Dispatcher) currentRef(ctx context.Context, inv *gitopt.Invocation) string {
	argv := append(inv.RealGitWithOptions(d.Config.RealGit()), "rev-parse", "--abbrev-ref", "HEAD")
	rc, ref := runner.StatusOutput(ctx, argv, "")
	if rc != 0 {
		return ""
	}
	return ref
}

// useMirrorForRemoteURL reports whether remoteURL should be mirrored,
// per the UrlPatterns.IncludeRegex/ExcludeRegex configuration.
func (d *Dispatcher) useMirrorForRemoteURL(remoteURL string) bool {
	included := d.Config.IncludeRegex().MatchString(remoteURL)
	excluded := d.Config.ExcludeRegex().MatchString(remoteURL)
	return included && !excluded
}
