package dispatch

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/seeraven/gitcache/pkg/gitopt"
)

// Clone handles "git clone". If the remote URL is mirrorable, it updates
// (or first creates) the mirror and checks out from it instead of the
// network; submodules are then initialized through gitcache itself so
// they are mirrored too. Anything else falls back to the real git clone.
//
// Grounded on original_source/src/git_cache/commands/clone.py.
func (d *Dispatcher) Clone(ctx context.Context, calledAs []string, inv *gitopt.Invocation) int {
	if len(inv.CommandArgs) == 0 {
		d.Log.Debug("no (mirrorable) remote URL found, falling back to original git command")
		return d.simple(ctx, inv.RealGitAllArgs(d.Config.RealGit()), "")
	}

	remoteURL := inv.CommandArgs[0]
	if !d.useMirrorForRemoteURL(remoteURL) {
		d.Log.Debug("remote URL does not match the UrlPatterns, using original git command")
		return d.simple(ctx, inv.RealGitAllArgs(d.Config.RealGit()), "")
	}

	m, err := d.Registry.ForURL(remoteURL)
	if err != nil {
		d.Log.Error("failed to open mirror", "url", remoteURL, "err", err)
		return d.simple(ctx, inv.RealGitAllArgs(d.Config.RealGit()), "")
	}

	rc, err := m.CloneFromMirror(ctx, inv)
	if err != nil {
		d.Log.Error("clone from mirror failed", "err", err)
		return 1
	}
	if rc != 0 {
		return rc
	}

	if inv.HasCommandOption("--recurse-submodules") || inv.HasCommandOption("--recursive") {
		d.Log.Debug("initializing submodules by calling 'git submodule update --init --recursive'")

		var targetDir string
		if len(inv.CommandArgs) > 1 {
			targetDir = inv.CommandArgs[1]
		} else {
			targetDir = strings.TrimSuffix(filepath.Base(m.URL), ".git")
		}

		command := append(append([]string{}, calledAs...), inv.GlobalOptions...)
		command = append(command, "-C", targetDir, "submodule", "update", "--init", "--recursive")
		if inv.HasCommandOption("--remote-submodules") {
			command = append(command, "--remote")
		}
		return d.simple(ctx, command, "")
	}

	return rc
}
