package dispatch

import (
	"context"
	"strings"

	"github.com/seeraven/gitcache/pkg/gitopt"
	"github.com/seeraven/gitcache/pkg/runner"
)

// Checkout handles "git checkout". For every positional argument that
// names a ref the checkout has from a remote (checked via "git show-ref"),
// the mirror's LFS objects for that ref are fetched before the real
// checkout runs, so large files are already present locally.
//
// Grounded on original_source/src/git_cache/commands/checkout.py.
func (d *Dispatcher) Checkout(ctx context.Context, inv *gitopt.Invocation) int {
	var refCandidates []string
	for _, a := range inv.CommandArgs {
		if !strings.HasPrefix(a, "-") && !strings.HasPrefix(a, ":") {
			refCandidates = append(refCandidates, a)
		}
	}

	realGit := d.Config.RealGit()
	var lfsFetchRefs []string
	for _, ref := range refCandidates {
		argv := append(inv.RealGitWithOptions(realGit), "show-ref", ref)
		rc, output := runner.StatusOutput(ctx, argv, "")
		if rc == 0 && strings.Contains(output, "remotes") {
			lfsFetchRefs = append(lfsFetchRefs, ref)
		}
	}

	if len(lfsFetchRefs) > 0 {
		if mirrorURL := d.mirrorURL(ctx, inv); mirrorURL != "" {
			m, err := d.Registry.ForURL(mirrorURL)
			if err == nil {
				for _, ref := range lfsFetchRefs {
					_, _ = m.FetchLFS(ctx, ref, nil)
				}
			}
		}
	}

	return d.simple(ctx, inv.RealGitAllArgs(realGit), "")
}
