package dispatch

import (
	"context"

	"github.com/seeraven/gitcache/pkg/gitopt"
)

// LFSFetch handles "git lfs fetch". When explicit options or refs are
// given, those may not have been covered by earlier mirror updates, so the
// mirror is asked to fetch the requested LFS objects for the resolved refs
// before the real command runs.
//
// Grounded on original_source/src/git_cache/commands/lfs_fetch.py.
func (d *Dispatcher) LFSFetch(ctx context.Context, inv *gitopt.Invocation) int {
	mirrorURL := d.mirrorURL(ctx, inv)
	if mirrorURL != "" {
		repository := "origin"
		var refs []string
		if len(inv.CommandArgs) > 0 {
			repository = inv.CommandArgs[0]
			refs = inv.CommandArgs[1:]
		}

		if repository == "origin" && (len(inv.CommandOptions) > 0 || len(refs) > 0) {
			if len(refs) == 0 {
				if ref := d.currentRef(ctx, inv); ref != "" {
					refs = append(refs, ref)
				}
			}

			m, err := d.Registry.ForURL(mirrorURL)
			if err == nil {
				for _, ref := range refs {
					_, _ = m.FetchLFS(ctx, ref, inv.CommandOptions)
				}
			}
		}
	}

	return d.simple(ctx, inv.RealGitAllArgs(d.Config.RealGit()), "")
}

// LFSPull handles "git lfs pull", fetching LFS objects for the checkout's
// current ref through the mirror when options were given that might not
// already be covered.
//
// Grounded on original_source/src/git_cache/commands/lfs_pull.py.
func (d *Dispatcher) LFSPull(ctx context.Context, inv *gitopt.Invocation) int {
	mirrorURL := d.mirrorURL(ctx, inv)
	if mirrorURL != "" {
		repository := "origin"
		if len(inv.CommandArgs) > 0 {
			repository = inv.CommandArgs[0]
		}

		if repository == "origin" && len(inv.CommandOptions) > 0 {
			if ref := d.currentRef(ctx, inv); ref != "" {
				m, err := d.Registry.ForURL(mirrorURL)
				if err == nil {
					_, _ = m.FetchLFS(ctx, ref, inv.CommandOptions)
				}
			}
		}
	}

	return d.simple(ctx, inv.RealGitAllArgs(d.Config.RealGit()), "")
}
