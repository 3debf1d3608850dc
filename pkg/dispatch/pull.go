package dispatch

import (
	"context"

	"github.com/seeraven/gitcache/pkg/db"
	"github.com/seeraven/gitcache/pkg/gitopt"
	"github.com/seeraven/gitcache/pkg/runner"
)

// Pull handles "git pull origin". It updates the mirror and, if the
// checkout is currently on a branch other than the mirror's default, also
// fetches that branch's LFS objects before running the real pull.
//
// Grounded on original_source/src/git_cache/commands/pull.py.
func (d *Dispatcher) Pull(ctx context.Context, inv *gitopt.Invocation) int {
	retries := d.Config.UpdateRetries()
	action := "Update"

	repository := "origin"
	var refs []string
	if len(inv.CommandArgs) > 0 {
		repository = inv.CommandArgs[0]
		refs = inv.CommandArgs[1:]
	}

	mirrorURL := d.mirrorURL(ctx, inv)
	if mirrorURL != "" && repository == "origin" {
		m, err := d.Registry.ForURL(mirrorURL)
		if err != nil {
			d.Log.Error("failed to open mirror", "url", mirrorURL, "err", err)
			return 1
		}
		if _, err := m.Update(ctx, "", false); err != nil {
			d.Log.Error("mirror update failed", "err", err)
		}
		_ = d.DB.IncrementCounter(m.Path, db.CounterUpdates)

		if len(refs) == 0 {
			refs = append(refs, d.currentRef(ctx, inv))
		}
		defaultRef, _ := m.GetDefaultRef(ctx)
		for _, ref := range refs {
			if ref != "" && ref != defaultRef {
				_, _ = m.FetchLFS(ctx, ref, nil)
			}
		}

		action = "Update from mirror " + m.Path
	}

	result := runner.PrettyRetry(ctx, d.Log, action, "", inv.RealGitAllArgs(d.Config.RealGit()), runner.RetryOptions{
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
