// Package db implements gitcache's mirror database: a small JSON document
// mapping mirror paths to bookkeeping metadata (source URL, last update
// time, and per-kind counters), protected by a cross-process file lock so
// concurrent gitcache invocations never corrupt it.
//
// Grounded on original_source/src/git_cache/database.py: same four
// counters, same relative-path-on-disk/absolute-path-in-memory conversion,
// same "wrap every mutation in the lock" discipline. The lock itself is
// github.com/gofrs/flock via pkg/cachelock rather than Python's portalocker.
package db

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/seeraven/gitcache/pkg/cachelock"
	"github.com/seeraven/gitcache/pkg/errkind"
)

// Entry is the bookkeeping record for one mirror.
type Entry struct {
	URL            string    `json:"url"`
	LastUpdateTime time.Time `json:"last-update-time"`
	MirrorUpdates  int       `json:"mirror-updates"`
	LFSUpdates     int       `json:"lfs-updates"`
	Clones         int       `json:"clones"`
	Updates        int       `json:"updates"`
}

// onDiskEntry mirrors Entry's JSON shape but keeps LastUpdateTime as a Unix
// timestamp in seconds, matching the Python original's time.time() floats
// and keeping the on-disk file diffable against it.
type onDiskEntry struct {
	URL            string  `json:"url"`
	LastUpdateTime float64 `json:"last-update-time"`
	MirrorUpdates  int     `json:"mirror-updates"`
	LFSUpdates     int     `json:"lfs-updates"`
	Clones         int     `json:"clones"`
	Updates        int     `json:"updates"`
}

// DB is the mirror database rooted at a cache directory. Every mutating
// method acquires the cross-process lock for the duration of the call;
// read-only methods do not.
type DB struct {
	cacheDir string
	path     string
	lock     *cachelock.Lock
}

// Open returns a DB rooted at cacheDir, loading db.json if present. A
// missing file is not an error: it means an empty, freshly initialized
// database, matching database.py's _load() on ENOENT.
func Open(cacheDir string, lock *cachelock.Lock) (*DB, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating cache dir %s: %v", errkind.ErrFilesystem, cacheDir, err)
	}
	return &DB{
		cacheDir: cacheDir,
		path:     filepath.Join(cacheDir, "db.json"),
		lock:     lock,
	}, nil
}

func (d *DB) load() (map[string]onDiskEntry, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]onDiskEntry{}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", errkind.ErrFilesystem, d.path, err)
	}
	if len(data) == 0 {
		return map[string]onDiskEntry{}, nil
	}
	var raw map[string]onDiskEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", errkind.ErrFilesystem, d.path, err)
	}
	return raw, nil
}

func (d *DB) save(raw map[string]onDiskEntry) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", errkind.ErrFilesystem, err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", errkind.ErrFilesystem, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("%w: %v", errkind.ErrFilesystem, err)
	}
	return nil
}

// toAbs/toRel convert between the absolute in-memory key (a mirror path)
// and the relative on-disk key, matching database.py's normpath/relpath
// round trip so the file stays portable across a moved cache directory.
func (d *DB) toAbs(key string) string {
	if filepath.IsAbs(key) {
		return filepath.Clean(key)
	}
	return filepath.Clean(filepath.Join(d.cacheDir, key))
}

func (d *DB) toRel(path string) string {
	rel, err := filepath.Rel(d.cacheDir, path)
	if err != nil {
		return path
	}
	return rel
}

func fromOnDisk(e onDiskEntry) Entry {
	return Entry{
		URL:            e.URL,
		LastUpdateTime: time.Unix(0, int64(e.LastUpdateTime*float64(time.Second))),
		MirrorUpdates:  e.MirrorUpdates,
		LFSUpdates:     e.LFSUpdates,
		Clones:         e.Clones,
		Updates:        e.Updates,
	}
}

func toOnDisk(url string, e Entry) onDiskEntry {
	return onDiskEntry{
		URL:            url,
		LastUpdateTime: float64(e.LastUpdateTime.UnixNano()) / float64(time.Second),
		MirrorUpdates:  e.MirrorUpdates,
		LFSUpdates:     e.LFSUpdates,
		Clones:         e.Clones,
		Updates:        e.Updates,
	}
}

// Add registers a freshly created mirror with a zeroed counter set and the
// current time as its last update time.
func (d *DB) Add(path, url string) error {
	return d.mutate(func(raw map[string]onDiskEntry) {
		raw[d.toRel(d.toAbs(path))] = toOnDisk(url, Entry{URL: url, LastUpdateTime: time.Now()})
	})
}

// Remove deletes path's entry. Removing an unknown path is a no-op.
func (d *DB) Remove(path string) error {
	return d.mutate(func(raw map[string]onDiskEntry) {
		delete(raw, d.toRel(d.toAbs(path)))
	})
}

// SaveUpdateTime stamps path's last-update-time as now and increments its
// mirror-updates counter, matching database.py:save_update_time.
func (d *DB) SaveUpdateTime(path string) error {
	return d.mutate(func(raw map[string]onDiskEntry) {
		key := d.toRel(d.toAbs(path))
		entry := raw[key]
		entry.LastUpdateTime = float64(time.Now().UnixNano()) / float64(time.Second)
		entry.MirrorUpdates++
		raw[key] = entry
	})
}

// Counter names accepted by IncrementCounter and cleared by ClearCounters.
const (
	CounterMirrorUpdates = "mirror-updates"
	CounterLFSUpdates    = "lfs-updates"
	CounterClones        = "clones"
	CounterUpdates       = "updates"
)

// IncrementCounter adds one to the named counter on path's entry.
func (d *DB) IncrementCounter(path, counter string) error {
	return d.mutate(func(raw map[string]onDiskEntry) {
		key := d.toRel(d.toAbs(path))
		entry := raw[key]
		switch counter {
		case CounterMirrorUpdates:
			entry.MirrorUpdates++
		case CounterLFSUpdates:
			entry.LFSUpdates++
		case CounterClones:
			entry.Clones++
		case CounterUpdates:
			entry.Updates++
		}
		raw[key] = entry
	})
}

// ClearCounters zeroes all four counters on path's entry, used after
// --show-statistics reporting, matching database.py:clear_counters.
func (d *DB) ClearCounters(path string) error {
	return d.mutate(func(raw map[string]onDiskEntry) {
		key := d.toRel(d.toAbs(path))
		entry := raw[key]
		entry.MirrorUpdates, entry.LFSUpdates, entry.Clones, entry.Updates = 0, 0, 0, 0
		raw[key] = entry
	})
}

func (d *DB) mutate(f func(raw map[string]onDiskEntry)) error {
	unlock, err := d.lock.Lock()
	if err != nil {
		return err
	}
	defer unlock()

	raw, err := d.load()
	if err != nil {
		return err
	}
	f(raw)
	return d.save(raw)
}

// GetAll returns every known mirror, keyed by absolute path.
func (d *DB) GetAll() (map[string]Entry, error) {
	raw, err := d.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Entry, len(raw))
	for key, e := range raw {
		out[d.toAbs(key)] = fromOnDisk(e)
	}
	return out, nil
}

// SortedPaths returns every known mirror path, sorted, matching the
// original's sorted(database.get_all().keys()) iteration order used by
// cleanup and update-all.
func (d *DB) SortedPaths() ([]string, error) {
	all, err := d.GetAll()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(all))
	for p := range all {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// Get returns path's entry, if known.
func (d *DB) Get(path string) (Entry, bool, error) {
	raw, err := d.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := raw[d.toRel(d.toAbs(path))]
	if !ok {
		return Entry{}, false, nil
	}
	return fromOnDisk(e), true, nil
}

// GetURLForPath returns the source URL registered for path, if known.
func (d *DB) GetURLForPath(path string) (string, bool, error) {
	e, ok, err := d.Get(path)
	if err != nil || !ok {
		return "", ok, err
	}
	return e.URL, true, nil
}

// TimeSinceLastUpdate returns the elapsed time since path's last update, or
// 0 if path is unknown, matching database.py:get_time_since_last_update.
func (d *DB) TimeSinceLastUpdate(path string) (time.Duration, error) {
	e, ok, err := d.Get(path)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return time.Since(e.LastUpdateTime), nil
}
