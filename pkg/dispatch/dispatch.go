// Package dispatch implements gitcache's git-persona command routing: for
// each git subcommand gitcache intercepts, it decides whether a local
// mirror should be consulted or updated and, if not, falls back to
// running the real git unmodified.
//
// One handler per original_source/src/git_cache/commands/*.py file; the
// Dispatcher struct bundling Config/DB/Registry follows the teacher's
// pattern of a single long-lived object holding its dependencies
// (pkg/mirror/repo_pool.go's RepoPool), sized down to what a one-shot CLI
// invocation needs.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/seeraven/gitcache/pkg/config"
	"github.com/seeraven/gitcache/pkg/db"
	"github.com/seeraven/gitcache/pkg/gitopt"
	"github.com/seeraven/gitcache/pkg/mirror"
)

// Dispatcher holds everything a command handler needs: the resolved
// configuration, the mirror database, a mirror handle cache, and the
// argv gitcache itself was invoked with (needed to re-invoke itself
// recursively for submodule handling).
type Dispatcher struct {
	Config   *config.Config
	DB       *db.DB
	Registry *mirror.Registry
	CacheDir string
	Log      *slog.Logger
}

// New returns a Dispatcher wired to cfg/database/cacheDir.
func New(cfg *config.Config, database *db.DB, cacheDir string, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		Config:   cfg,
		DB:       database,
		Registry: mirror.NewRegistry(cfg, database, cacheDir, log),
		CacheDir: cacheDir,
		Log:      log,
	}
}

// Dispatch classifies calledAs[1:] (the argv gitcache received after its
// own program name) via gitopt.Parse and routes it to the matching
// handler, falling back to running the real git unmodified for every
// command gitcache does not specialize.
func (d *Dispatcher) Dispatch(ctx context.Context, calledAs []string) int {
	args := calledAs[1:]
	inv := gitopt.Parse(args)

	if inv.HasBailOut() {
		return d.simple(ctx, inv.RealGitAllArgs(d.Config.RealGit()), "")
	}

	switch inv.Command {
	case "cleanup":
		return d.Cleanup(ctx)
	case "update-mirrors":
		return d.UpdateAllMirrors(ctx)
	case "delete-mirror":
		return d.DeleteMirrors(ctx, inv.CommandArgs)
	case "clone":
		return d.Clone(ctx, calledAs, inv)
	case "fetch":
		return d.Fetch(ctx, inv)
	case "pull":
		return d.Pull(ctx, inv)
	case "ls-remote":
		return d.LsRemote(ctx, inv)
	case "checkout":
		return d.Checkout(ctx, inv)
	case "lfs_fetch":
		return d.LFSFetch(ctx, inv)
	case "lfs_pull":
		return d.LFSPull(ctx, inv)
	case "submodule_init":
		return d.SubmoduleInit(ctx, inv)
	case "submodule_update":
		return d.SubmoduleUpdate(ctx, calledAs, inv)
	case "remote_add":
		return d.RemoteAdd(ctx, inv)
	default:
		return d.simple(ctx, inv.RealGitAllArgs(d.Config.RealGit()), "")
	}
}

// Cleanup runs the cleanup cache-management verb: delete every mirror
// whose last update exceeds MirrorHandling.CleanupAfter.
func (d *Dispatcher) Cleanup(ctx context.Context) int {
	return cleanup(ctx, d)
}

// UpdateAllMirrors runs the update-mirrors cache-management verb: force
// an update of every known mirror.
func (d *Dispatcher) UpdateAllMirrors(ctx context.Context) int {
	return updateAllMirrors(ctx, d)
}

// DeleteMirrors runs the delete-mirror cache-management verb for the
// given list of mirror URLs or paths.
func (d *Dispatcher) DeleteMirrors(ctx context.Context, mirrorList []string) int {
	return deleteMirrors(ctx, d, mirrorList)
}
