package dispatch

import (
	"context"

	"github.com/seeraven/gitcache/pkg/gitopt"
	"github.com/seeraven/gitcache/pkg/runner"
)

// SubmoduleInit handles "git submodule init". To let git resolve
// relative submodule URLs correctly, the checkout's own origin is
// temporarily restored to its real upstream URL for the duration of the
// command, then flipped back to the mirror.
//
// Grounded on original_source/src/git_cache/commands/submodule_init.py.
func (d *Dispatcher) SubmoduleInit(ctx context.Context, inv *gitopt.Invocation) int {
	realGit := d.Config.RealGit()
	mirrorURL := d.mirrorURL(ctx, inv)
	if mirrorURL == "" {
		return d.simple(ctx, inv.RealGitAllArgs(realGit), "")
	}

	pullURL := d.pullURL(ctx, inv)

	setURL := append(inv.RealGitWithOptions(realGit), "remote", "set-url", "origin", mirrorURL)
	rc, _ := runner.StatusOutput(ctx, setURL, "")

	var retval int
	if rc == 0 {
		retval = d.simple(ctx, inv.RealGitAllArgs(realGit), "")
	} else {
		d.Log.Warn("can't restore original pull URL of the repository")
		retval = 1
	}

	restoreURL := append(inv.RealGitWithOptions(realGit), "remote", "set-url", "origin", pullURL)
	runner.StatusOutput(ctx, restoreURL, "")

	restorePush := append(inv.RealGitWithOptions(realGit), "remote", "set-url", "--push", "origin", mirrorURL)
	runner.StatusOutput(ctx, restorePush, "")

	return retval
}
