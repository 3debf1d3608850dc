package mirror

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRmtreeMissing(t *testing.T) {
	if err := rmtree(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Errorf("rmtree on a missing path returned %v, want nil", err)
	}
}

func TestRmtreeRemovesContents(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "mirror")
	if err := os.MkdirAll(filepath.Join(target, "git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := rmtree(target); err != nil {
		t.Fatalf("rmtree returned %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed, stat err = %v", target, err)
	}
}
