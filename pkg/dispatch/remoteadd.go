package dispatch

import (
	"context"
	"strings"

	"github.com/seeraven/gitcache/pkg/gitopt"
)

// RemoteAdd handles "git remote add origin <url>": when the checkout has
// no origin yet and the URL is mirrorable, the mirror is ensured to exist
// and the checkout's origin is configured to pull from the mirror's git
// directory while still pushing to the real upstream.
//
// Grounded on original_source/src/git_cache/commands/remote_add.py.
func (d *Dispatcher) RemoteAdd(ctx context.Context, inv *gitopt.Invocation) int {
	realGit := d.Config.RealGit()

	if len(inv.CommandArgs) >= 2 && inv.CommandArgs[0] == "origin" {
		mirrorOption := false
		for _, opt := range inv.CommandOptions {
			if strings.HasPrefix(opt, "--mirror") {
				mirrorOption = true
				break
			}
		}

		if !mirrorOption {
			remoteURL := inv.CommandArgs[1]
			if d.pullURL(ctx, inv) == "" {
				if d.useMirrorForRemoteURL(remoteURL) {
					m, err := d.Registry.ForURL(remoteURL)
					if err != nil {
						d.Log.Error("failed to open mirror", "url", remoteURL, "err", err)
						return d.simple(ctx, inv.RealGitAllArgs(realGit), "")
					}
					if _, err := m.Update(ctx, "", false); err != nil {
						d.Log.Error("mirror update failed", "err", err)
					}

					d.simple(ctx, []string{realGit, "remote", "add", "origin", m.GitDir}, inv.RunPath())
					d.simple(ctx, []string{realGit, "remote", "set-url", "--push", "origin", m.URL}, inv.RunPath())
					d.simple(ctx, []string{realGit, "config", "--local", "lfs.url", m.URL + "/info/lfs"}, inv.RunPath())
					if d.Config.LFSPerMirrorStorage() {
						d.simple(ctx, []string{realGit, "config", "--local", "lfs.storage", m.LFSDir}, inv.RunPath())
					}
					return 0
				}
				d.Log.Debug("ignoring 'remote add' command, remote url is excluded in the configuration")
			} else {
				d.Log.Debug("ignoring 'remote add' command, a remote is already set up")
			}
		} else {
			d.Log.Debug("ignoring 'remote add' command, the '--mirror' option was used")
		}
	}

	return d.simple(ctx, inv.RealGitAllArgs(realGit), "")
}
