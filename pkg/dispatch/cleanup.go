package dispatch

import "context"

// cleanup implements the "cleanup" cache-management verb: every known
// mirror whose last update exceeds its configured staleness is removed.
//
// Grounded on original_source/src/git_cache/commands/cleanup.py.
func cleanup(ctx context.Context, d *Dispatcher) int {
	d.Log.Info("starting cleanup of mirrors")

	paths, err := d.DB.SortedPaths()
	if err != nil {
		d.Log.Error("failed to read mirror database", "err", err)
		return 1
	}

	numRemoved := 0
	for _, path := range paths {
		m, err := d.Registry.ForPath(path)
		if err != nil {
			d.Log.Error("failed to open mirror", "path", path, "err", err)
			continue
		}

		removed, err := m.Cleanup(ctx)
		if err != nil {
			d.Log.Error("cleanup failed", "path", path, "err", err)
			continue
		}
		if removed {
			d.Log.Info("removed mirror", "path", path)
			numRemoved++
		}
	}

	d.Log.Info("removed mirrors", "count", numRemoved)
	return 0
}
