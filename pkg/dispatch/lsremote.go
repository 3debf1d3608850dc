package dispatch

import (
	"context"
	"strings"

	"github.com/seeraven/gitcache/pkg/gitopt"
)

var lsRemoteSupportedPrefixes = []string{"http://", "https://", "ssh://"}

// LsRemote handles "git ls-remote". If no repository or "origin" is
// given, or an explicit mirrorable URL is given, the mirror is updated
// and the command is rewritten to query the mirror's local git directory
// instead of the network.
//
// Grounded on original_source/src/git_cache/commands/ls_remote.py; the
// mirror's local git directory is substituted for the remote the way
// every other handler substitutes git_dir for a mirrored URL, rather than
// the literal "origin" the Python original substitutes (which only
// resolves when invoked with a cwd already inside the mirror).
func (d *Dispatcher) LsRemote(ctx context.Context, inv *gitopt.Invocation) int {
	var repository, mirrorURL string
	if len(inv.CommandArgs) > 0 {
		repository = inv.CommandArgs[0]
	}

	if repository == "" || repository == "origin" {
		mirrorURL = d.mirrorURL(ctx, inv)
	}

	if repository != "" {
		for _, prefix := range lsRemoteSupportedPrefixes {
			if strings.HasPrefix(repository, prefix) && d.useMirrorForRemoteURL(repository) {
				mirrorURL = repository
				break
			}
		}
	}

	var newArgs []string
	if mirrorURL != "" {
		m, err := d.Registry.ForURL(mirrorURL)
		if err != nil {
			d.Log.Error("failed to open mirror", "url", mirrorURL, "err", err)
			return d.simple(ctx, inv.RealGitAllArgs(d.Config.RealGit()), "")
		}
		if _, err := m.Update(ctx, "", false); err != nil {
			d.Log.Error("mirror update failed", "err", err)
		}

		newArgs = append(newArgs, inv.GlobalOptions...)
		newArgs = append(newArgs, inv.Command)
		newArgs = append(newArgs, inv.CommandOptions...)
		newArgs = append(newArgs, m.GitDir)
		if len(inv.CommandArgs) > 1 {
			newArgs = append(newArgs, inv.CommandArgs[1:]...)
		}
	} else {
		newArgs = inv.AllArgs
	}

	argv := append([]string{d.Config.RealGit()}, newArgs...)
	return d.simple(ctx, argv, "")
}
