package mirror

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/seeraven/gitcache/pkg/errkind"
)

// defaultDirMode is used whenever gitcache creates a mirror or cache
// directory from scratch.
const defaultDirMode = 0o755

// rmtree removes path and everything under it, recovering once from a
// permission error by chmod'ing the offending entry to 0700 and retrying,
// matching original_source/src/git_cache/helpers.py:rmtree's onerror
// handler (a missing path is not an error; a permission error is retried
// exactly once before being reported).
func rmtree(path string) error {
	err := os.RemoveAll(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	if !os.IsPermission(err) {
		return fmt.Errorf("%w: removing %s: %v", errkind.ErrFilesystem, path, err)
	}

	if chmodErr := filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		return os.Chmod(p, 0o700)
	}); chmodErr != nil {
		return fmt.Errorf("%w: resetting permissions under %s: %v", errkind.ErrFilesystem, path, chmodErr)
	}

	if err := os.RemoveAll(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: removing %s after permission reset: %v", errkind.ErrFilesystem, path, err)
	}
	return nil
}

