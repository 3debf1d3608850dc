package dispatch

import "testing"

func TestMirrorPathForRemoteURL(t *testing.T) {
	rel, ok := mirrorPathFor("https://github.com/seeraven/gitcache.git")
	if !ok {
		t.Fatalf("mirrorPathFor() ok = false for a remote URL")
	}
	want := "github.com/seeraven/gitcache"
	if rel != want {
		t.Errorf("mirrorPathFor() = %q, want %q", rel, want)
	}
}

func TestMirrorPathForLocalURL(t *testing.T) {
	if _, ok := mirrorPathFor("file:///tmp/some/repo"); ok {
		t.Errorf("mirrorPathFor() ok = true for a file:// URL, want false")
	}
}

func TestSubmoduleURLKeysFiltersByURLSuffix(t *testing.T) {
	dump := "submodule.foo.path=vendor/foo\n" +
		"submodule.foo.url=https://github.com/org/foo.git\n" +
		"submodule.bar.url=https://github.com/org/bar.git\n" +
		"submodule.bar.path=vendor/bar\n" +
		"core.bare=false\n"

	keys := submoduleURLKeys(dump)
	want := map[string]bool{"submodule.foo.url": true, "submodule.bar.url": true}
	if len(keys) != len(want) {
		t.Fatalf("submoduleURLKeys() = %v, want keys %v", keys, want)
	}
	for _, k := range keys {
		if !want[k] {
			t.Errorf("unexpected key %q in submoduleURLKeys() result", k)
		}
	}
}

func TestContainsString(t *testing.T) {
	if !containsString([]string{"a", "b"}, "b") {
		t.Errorf("containsString() = false, want true")
	}
	if containsString([]string{"a", "b"}, "c") {
		t.Errorf("containsString() = true, want false")
	}
	if containsString(nil, "a") {
		t.Errorf("containsString(nil, ...) = true, want false")
	}
}
