package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/seeraven/gitcache/pkg/cachelock"
)

func newTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	dir := t.TempDir()
	lock := cachelock.New(filepath.Join(dir, "db.lock"), 0, time.Millisecond, time.Second, nil)
	d, err := Open(dir, lock)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return d, dir
}

func TestAddAndGet(t *testing.T) {
	d, dir := newTestDB(t)
	path := filepath.Join(dir, "mirrors", "github.com", "org", "repo")

	if err := d.Add(path, "https://github.com/org/repo"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	entry, ok, err := d.Get(path)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatalf("Get() ok = false, want true after Add")
	}
	if entry.URL != "https://github.com/org/repo" {
		t.Errorf("entry.URL = %q, want the added URL", entry.URL)
	}
	if entry.Clones != 0 || entry.MirrorUpdates != 0 {
		t.Errorf("freshly added entry has nonzero counters: %+v", entry)
	}
}

func TestGetUnknownPath(t *testing.T) {
	d, dir := newTestDB(t)
	_, ok, err := d.Get(filepath.Join(dir, "mirrors", "nope"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Errorf("Get() ok = true for an unregistered path")
	}
}

func TestIncrementCounterAndClear(t *testing.T) {
	d, dir := newTestDB(t)
	path := filepath.Join(dir, "mirrors", "github.com", "org", "repo")
	if err := d.Add(path, "https://github.com/org/repo"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := d.IncrementCounter(path, CounterClones); err != nil {
			t.Fatalf("IncrementCounter() error = %v", err)
		}
	}
	if err := d.IncrementCounter(path, CounterLFSUpdates); err != nil {
		t.Fatal(err)
	}

	entry, _, err := d.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Clones != 3 {
		t.Errorf("Clones = %d, want 3", entry.Clones)
	}
	if entry.LFSUpdates != 1 {
		t.Errorf("LFSUpdates = %d, want 1", entry.LFSUpdates)
	}

	if err := d.ClearCounters(path); err != nil {
		t.Fatalf("ClearCounters() error = %v", err)
	}
	entry, _, err = d.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Clones != 0 || entry.LFSUpdates != 0 || entry.MirrorUpdates != 0 || entry.Updates != 0 {
		t.Errorf("counters after ClearCounters = %+v, want all zero", entry)
	}
}

func TestSaveUpdateTime(t *testing.T) {
	d, dir := newTestDB(t)
	path := filepath.Join(dir, "mirrors", "github.com", "org", "repo")
	if err := d.Add(path, "https://github.com/org/repo"); err != nil {
		t.Fatal(err)
	}

	if err := d.SaveUpdateTime(path); err != nil {
		t.Fatalf("SaveUpdateTime() error = %v", err)
	}

	entry, _, err := d.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if entry.MirrorUpdates != 1 {
		t.Errorf("MirrorUpdates = %d, want 1", entry.MirrorUpdates)
	}

	elapsed, err := d.TimeSinceLastUpdate(path)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed < 0 {
		t.Errorf("TimeSinceLastUpdate() = %v, want >= 0", elapsed)
	}
}

func TestTimeSinceLastUpdateUnknownPathIsZero(t *testing.T) {
	d, dir := newTestDB(t)
	elapsed, err := d.TimeSinceLastUpdate(filepath.Join(dir, "mirrors", "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if elapsed != 0 {
		t.Errorf("TimeSinceLastUpdate() for unknown path = %v, want 0", elapsed)
	}
}

func TestRemove(t *testing.T) {
	d, dir := newTestDB(t)
	path := filepath.Join(dir, "mirrors", "github.com", "org", "repo")
	if err := d.Add(path, "https://github.com/org/repo"); err != nil {
		t.Fatal(err)
	}
	if err := d.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	_, ok, err := d.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("Get() ok = true after Remove")
	}
}

func TestKeysStoredRelativeToCacheDir(t *testing.T) {
	d, dir := newTestDB(t)
	path := filepath.Join(dir, "mirrors", "github.com", "org", "repo")
	if err := d.Add(path, "https://github.com/org/repo"); err != nil {
		t.Fatal(err)
	}

	raw, err := d.load()
	if err != nil {
		t.Fatal(err)
	}
	rel := filepath.Join("mirrors", "github.com", "org", "repo")
	if _, ok := raw[rel]; !ok {
		t.Errorf("on-disk keys = %v, want a relative key %q", raw, rel)
	}
}

func TestGetAllReturnsAbsoluteKeys(t *testing.T) {
	d, dir := newTestDB(t)
	path := filepath.Join(dir, "mirrors", "github.com", "org", "repo")
	if err := d.Add(path, "https://github.com/org/repo"); err != nil {
		t.Fatal(err)
	}

	all, err := d.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := all[path]; !ok {
		t.Errorf("GetAll() keys = %v, want absolute path %q", all, path)
	}
}

func TestSortedPaths(t *testing.T) {
	d, dir := newTestDB(t)
	b := filepath.Join(dir, "mirrors", "b")
	a := filepath.Join(dir, "mirrors", "a")
	if err := d.Add(b, "https://example.com/b"); err != nil {
		t.Fatal(err)
	}
	if err := d.Add(a, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}

	paths, err := d.SortedPaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != a || paths[1] != b {
		t.Errorf("SortedPaths() = %v, want sorted [%s %s]", paths, a, b)
	}
}
