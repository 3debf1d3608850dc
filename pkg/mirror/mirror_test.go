package mirror

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/seeraven/gitcache/pkg/cachelock"
	"github.com/seeraven/gitcache/pkg/config"
	"github.com/seeraven/gitcache/pkg/db"
)

func TestRemoveAll(t *testing.T) {
	got := removeAll([]string{"clone", "--recursive", "url", "--recurse-submodules", "dest"}, "--recursive", "--recurse-submodules", "--remote-submodules")
	want := []string{"clone", "url", "dest"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("removeAll() = %v, want %v", got, want)
	}
}

func TestBoolLabel(t *testing.T) {
	if boolLabel(true) != "true" || boolLabel(false) != "false" {
		t.Errorf("boolLabel mismatch")
	}
}

func newTestMirror(t *testing.T, cacheDir, rawURL string) *Mirror {
	t.Helper()
	cfg := config.New(nil)
	dbLock := cachelock.ForDatabase(cacheDir, 0, time.Millisecond, time.Second, nil)
	database, err := db.Open(cacheDir, dbLock)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	m, err := Open(cfg, database, cacheDir, rawURL, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return m
}

func TestOpenComputesDeterministicMirrorPath(t *testing.T) {
	cacheDir := t.TempDir()
	m := newTestMirror(t, cacheDir, "https://github.com/seeraven/gitcache.git")

	want := filepath.Join(cacheDir, "mirrors", "github.com", "seeraven", "gitcache")
	if m.Path != want {
		t.Errorf("Path = %q, want %q", m.Path, want)
	}
	if m.GitDir != filepath.Join(want, "git") {
		t.Errorf("GitDir = %q, want %s/git", m.GitDir, want)
	}
	if m.NormalizedURL != "https://github.com/seeraven/gitcache" {
		t.Errorf("NormalizedURL = %q, want the .git-stripped form", m.NormalizedURL)
	}
	if _, err := os.Stat(m.LFSDir); err != nil {
		t.Errorf("LFSDir %s should be created eagerly, stat error = %v", m.LFSDir, err)
	}
}

func TestUpdateTimeReachedRespectsInterval(t *testing.T) {
	cacheDir := t.TempDir()
	m := newTestMirror(t, cacheDir, "https://github.com/seeraven/gitcache.git")

	if err := m.db.Add(m.Path, m.NormalizedURL); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GITCACHE_UPDATE_INTERVAL", "0")
	if !m.updateTimeReached() {
		t.Errorf("updateTimeReached() = false with UpdateInterval=0, want true (always refresh)")
	}

	t.Setenv("GITCACHE_UPDATE_INTERVAL", "-1")
	if m.updateTimeReached() {
		t.Errorf("updateTimeReached() = true with UpdateInterval<0, want false (never auto-refresh)")
	}

	t.Setenv("GITCACHE_UPDATE_INTERVAL", "3600")
	if m.updateTimeReached() {
		t.Errorf("updateTimeReached() = true right after Add with a 1h interval, want false")
	}
}
