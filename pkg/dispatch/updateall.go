package dispatch

import "context"

// updateAllMirrors implements the "update-mirrors" cache-management verb:
// every known mirror is force-updated regardless of its staleness.
//
// Grounded on original_source/src/git_cache/commands/update_all.py.
func updateAllMirrors(ctx context.Context, d *Dispatcher) int {
	d.Log.Info("starting update of all known mirrors")

	paths, err := d.DB.SortedPaths()
	if err != nil {
		d.Log.Error("failed to read mirror database", "err", err)
		return 1
	}

	var success, failed []string
	for _, path := range paths {
		m, err := d.Registry.ForPath(path)
		if err != nil {
			d.Log.Error("failed to open mirror", "path", path, "err", err)
			failed = append(failed, path)
			continue
		}

		if ok, err := m.Update(ctx, "", true); ok {
			success = append(success, path)
		} else {
			if err != nil {
				d.Log.Error("mirror update failed", "path", path, "err", err)
			}
			failed = append(failed, path)
		}
	}

	if len(success) > 0 {
		d.Log.Info("updated the following paths successfully")
		for _, path := range success {
			d.Log.Info("  " + path)
		}
	}

	if len(failed) > 0 {
		d.Log.Error("failed to update the following paths")
		for _, path := range failed {
			d.Log.Error("  " + path)
		}
		return 1
	}

	if len(success) == 0 && len(failed) == 0 {
		d.Log.Warn("nothing to update")
	}

	return 0
}
