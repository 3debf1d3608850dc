package mirror

import (
	"log/slog"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/seeraven/gitcache/pkg/config"
	"github.com/seeraven/gitcache/pkg/db"
)

// Registry caches open *Mirror handles within a single gitcache
// invocation, so a command that touches the same mirror more than once
// (submodule_update walking several submodules that happen to share a
// superproject, or update-mirrors sweeping the whole database) reuses one
// Mirror and its one Config/lock pair instead of re-parsing the per-mirror
// config file on every lookup.
//
// Adapted from the teacher's pkg/mirror/repo_pool.go RepoPool, which keeps
// the same kind of path-keyed handle cache for its long-lived Repository
// daemons; here the cache lives only as long as one process. go-deadlock
// (the teacher's own lock library, dropped by pkg/cachelock in favor of
// gofrs/flock for cross-process locking) is repurposed here for the
// in-process map guard it's actually suited for.
type Registry struct {
	mu      deadlock.Mutex
	cfg     *config.Config
	db      *db.DB
	cacheDir string
	log     *slog.Logger
	byPath  map[string]*Mirror
}

// NewRegistry returns an empty Registry.
func NewRegistry(cfg *config.Config, database *db.DB, cacheDir string, log *slog.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		db:       database,
		cacheDir: cacheDir,
		log:      log,
		byPath:   map[string]*Mirror{},
	}
}

// ForURL returns the (cached) Mirror for rawURL.
func (r *Registry) ForURL(rawURL string) (*Mirror, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := Open(r.cfg, r.db, r.cacheDir, rawURL, r.log)
	if err != nil {
		return nil, err
	}
	if cached, ok := r.byPath[m.Path]; ok {
		return cached, nil
	}
	r.byPath[m.Path] = m
	return m, nil
}

// ForPath returns the (cached) Mirror rooted at path.
func (r *Registry) ForPath(path string) (*Mirror, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.byPath[path]; ok {
		return cached, nil
	}
	m, err := OpenByPath(r.cfg, r.db, path, r.log)
	if err != nil {
		return nil, err
	}
	r.byPath[path] = m
	return m, nil
}
