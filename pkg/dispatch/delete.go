package dispatch

import (
	"context"

	"github.com/seeraven/gitcache/pkg/db"
	"github.com/seeraven/gitcache/pkg/mirror"
)

// deleteMirrors implements the "delete-mirror" cache-management verb:
// each entry in mirrorList is resolved against the database, either as a
// known source URL or a known mirror path, and the matching mirror is
// deleted.
//
// Grounded on original_source/src/git_cache/commands/delete.py.
func deleteMirrors(ctx context.Context, d *Dispatcher, mirrorList []string) int {
	entries, err := d.DB.GetAll()
	if err != nil {
		d.Log.Error("failed to read mirror database", "err", err)
		return 1
	}

	knownURLs := map[string]bool{}
	for _, e := range entries {
		knownURLs[e.URL] = true
	}

	d.Log.Info("deleting specified mirrors")
	numDeleted, numFailed := 0, 0
	for _, ref := range mirrorList {
		m, err := resolveMirror(d, entries, knownURLs, ref)
		if err != nil {
			d.Log.Error("failed to open mirror", "mirror", ref, "err", err)
			numFailed++
			continue
		}
		if m == nil {
			d.Log.Error("unknown mirror (does not match any known URL or mirror path)", "mirror", ref)
			numFailed++
			continue
		}

		if _, err := m.Delete(ctx); err != nil {
			d.Log.Error("delete failed", "mirror", ref, "err", err)
			numFailed++
			continue
		}

		d.Log.Info("deleted mirror", "path", m.Path)
		numDeleted++
	}

	switch numDeleted {
	case 0:
		d.Log.Warn("no mirror deleted")
	case 1:
		d.Log.Info("mirror deleted")
	default:
		d.Log.Info("mirrors deleted", "count", numDeleted)
	}

	if numFailed != 0 {
		d.Log.Warn("mirror(s) not identified", "count", numFailed)
		return 1
	}

	return 0
}

func resolveMirror(d *Dispatcher, entries map[string]db.Entry, knownURLs map[string]bool, ref string) (*mirror.Mirror, error) {
	if knownURLs[ref] {
		return d.Registry.ForURL(ref)
	}
	if _, ok := entries[ref]; ok {
		return d.Registry.ForPath(ref)
	}
	return nil, nil
}
