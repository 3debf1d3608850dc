package dispatch

import (
	"context"
	"strings"

	"github.com/seeraven/gitcache/pkg/db"
	"github.com/seeraven/gitcache/pkg/gitopt"
	"github.com/seeraven/gitcache/pkg/runner"
)

// Fetch handles "git fetch". If the fetch targets a mirrorable remote
// (given explicitly, or resolved from the checkout's configured remote),
// the mirror is updated first and the fetch is retried once against the
// mirror's local git directory before falling back to the network.
//
// Grounded on original_source/src/git_cache/commands/fetch.py.
func (d *Dispatcher) Fetch(ctx context.Context, inv *gitopt.Invocation) int {
	realGit := d.Config.RealGit()

	var remoteURL, remoteName string
	if len(inv.CommandArgs) > 0 {
		firstArg := inv.CommandArgs[0]
		if _, ok := mirrorPathFor(firstArg); ok {
			remoteURL = firstArg
		}
	}

	if remoteURL == "" {
		remoteURL = d.mirrorURL(ctx, inv)
		if remoteURL == "" {
			remoteCandidate := "origin"
			for _, a := range inv.CommandArgs {
				if !strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "+") && !strings.Contains(a, ":") {
					remoteCandidate = a
					break
				}
			}
			argv := append(inv.RealGitWithOptions(realGit), "remote", "get-url", remoteCandidate)
			rc, output := runner.StatusOutput(ctx, argv, "")
			if rc == 0 && output != "" && d.useMirrorForRemoteURL(output) {
				if _, ok := mirrorPathFor(output); ok {
					remoteURL = output
					remoteName = remoteCandidate
				}
			}
		}
	} else if !d.useMirrorForRemoteURL(remoteURL) {
		remoteURL = ""
	}

	if remoteURL == "" {
		result := d.prettyFetch(ctx, "Fetch", inv.RealGitAllArgs(realGit), d.Config.UpdateRetries())
		return result
	}

	m, err := d.Registry.ForURL(remoteURL)
	if err != nil {
		d.Log.Error("failed to open mirror", "url", remoteURL, "err", err)
		return 1
	}
	if _, err := m.Update(ctx, "", false); err != nil {
		d.Log.Error("mirror update failed", "err", err)
	}
	_ = d.DB.IncrementCounter(m.Path, db.CounterUpdates)

	var newArgs []string
	for _, a := range inv.AllArgs {
		if a == remoteURL {
			newArgs = append(newArgs, m.GitDir)
		} else {
			newArgs = append(newArgs, a)
		}
	}

	if remoteName != "" {
		d.Log.Info("configuring remote to use gitcache mirror", "remote", remoteName)
		d.simple(ctx, []string{realGit, "remote", "set-url", remoteName, m.GitDir}, inv.RunPath())
		d.simple(ctx, []string{realGit, "remote", "set-url", "--push", remoteName, remoteURL}, inv.RunPath())
	}

	d.Log.Info("configuring LFS")
	d.simple(ctx, []string{realGit, "config", "--local", "lfs.url", m.URL + "/info/lfs"}, inv.RunPath())
	if d.Config.LFSPerMirrorStorage() {
		d.simple(ctx, []string{realGit, "config", "--local", "lfs.storage", m.LFSDir}, inv.RunPath())
	}

	action := "Fetch from mirror " + m.Path
	argv := append([]string{realGit}, newArgs...)
	if rc := d.prettyFetchOnce(ctx, action, argv); rc == 0 {
		return rc
	}

	if ok, _ := m.Fetch(ctx, inv.CommandArgs); !ok {
		d.Log.Error("fetch in mirror failed")
	}

	return d.prettyFetch(ctx, action, argv, d.Config.UpdateRetries())
}

func (d *Dispatcher) prettyFetchOnce(ctx context.Context, action string, argv []string) int {
	result := runner.PrettyRetry(ctx, d.Log, action, "", argv, runner.RetryOptions{
		Options: runner.Options{
			CommandTimeout: d.Config.UpdateCommandTimeout(),
			OutputTimeout:  d.Config.UpdateOutputTimeout(),
			CaptureStderr:  true,
			UseTTY:         true,
		},
		Retries: 1,
	})
	return result.Rc()
}

func (d *Dispatcher) prettyFetch(ctx context.Context, action string, argv []string, retries int) int {
	result := runner.PrettyRetry(ctx, d.Log, action, "", argv, runner.RetryOptions{
		Options: runner.Options{
			CommandTimeout: d.Config.UpdateCommandTimeout(),
			OutputTimeout:  d.Config.UpdateOutputTimeout(),
			CaptureStderr:  true,
			UseTTY:         true,
		},
		Retries: retries,
	})
	return result.Rc()
}
