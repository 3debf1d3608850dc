package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	c := New(nil)
	if got := c.UpdateInterval(); got != 0 {
		t.Errorf("UpdateInterval() = %v, want 0", got)
	}
	if got := c.CleanupAfter(); got.Hours() != 14*24 {
		t.Errorf("CleanupAfter() = %v, want 14 days", got)
	}
	if got := c.CloneRetries(); got != 3 {
		t.Errorf("CloneRetries() = %d, want 3", got)
	}
	if got := c.CloneStyle(); got != CloneStyleFull {
		t.Errorf("CloneStyle() = %q, want Full", got)
	}
	if !c.LFSPerMirrorStorage() {
		t.Errorf("LFSPerMirrorStorage() = false, want true")
	}
}

func TestEmptyExcludeRegexNeverMatches(t *testing.T) {
	c := New(nil)
	re := c.ExcludeRegex()
	for _, s := range []string{"", "anything", "https://github.com/org/repo"} {
		if re.MatchString(s) {
			t.Errorf("empty ExcludeRegex unexpectedly matched %q", s)
		}
	}
}

func TestIncludeRegexDefaultMatchesEverything(t *testing.T) {
	c := New(nil)
	if !c.IncludeRegex().MatchString("https://example.com/repo.git") {
		t.Errorf("default IncludeRegex should match any URL")
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	c := New(nil)
	existed, err := c.Load(filepath.Join(t.TempDir(), "no-such-config"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if existed {
		t.Errorf("Load() existed = true, want false for a missing file")
	}
}

func TestEnvOverridesFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config")
	if err := os.WriteFile(cfgPath, []byte("[Clone]\nRetries = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(nil)
	if _, err := c.Load(cfgPath); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.CloneRetries(); got != 7 {
		t.Errorf("CloneRetries() after file load = %d, want 7", got)
	}

	t.Setenv("GITCACHE_CLONE_RETRIES", "9")
	if got := c.CloneRetries(); got != 9 {
		t.Errorf("CloneRetries() with env override = %d, want 9", got)
	}
}

func TestCloneStyleCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config")
	if err := os.WriteFile(cfgPath, []byte("[Clone]\nCloneStyle = partialfirst\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(nil)
	if _, err := c.Load(cfgPath); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.CloneStyle(); got != CloneStylePartialFirst {
		t.Errorf("CloneStyle() = %q, want PartialFirst (case-insensitive)", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config")

	c := New(nil)
	if err := c.Save(cfgPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded := New(nil)
	existed, err := reloaded.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !existed {
		t.Fatalf("Load() existed = false after Save")
	}
	if reloaded.CloneRetries() != c.CloneRetries() {
		t.Errorf("reloaded CloneRetries() = %d, want %d", reloaded.CloneRetries(), c.CloneRetries())
	}
}

func TestParseSecondsDurationSyntax(t *testing.T) {
	cases := map[string]float64{
		"0 seconds":  0,
		"2 seconds":  2,
		"2 minutes":  120,
		"1 hour":     3600,
		"14 days":    14 * 24 * 3600,
		"3600":       3600,
		"not-a-time": 0,
		"":           0,
	}
	for in, wantSeconds := range cases {
		if got := parseSeconds(in).Seconds(); got != wantSeconds {
			t.Errorf("parseSeconds(%q) = %v seconds, want %v", in, got, wantSeconds)
		}
	}
}

func TestParseRegexInvalidFallsBackToNeverMatch(t *testing.T) {
	re := parseRegex("(unterminated")
	if re.MatchString("anything") {
		t.Errorf("invalid regex should fall back to never-match")
	}
}

func TestStringIsSortedAndAnnotated(t *testing.T) {
	c := New(nil)
	out := c.String()
	if out == "" {
		t.Fatalf("String() returned empty output")
	}
	cloneIdx := indexOf(out, "Clone:")
	systemIdx := indexOf(out, "System:")
	if cloneIdx < 0 || systemIdx < 0 || cloneIdx < systemIdx {
		t.Errorf("String() sections not alphabetically sorted: %s", out)
	}
	if !contains(out, "GITCACHE_CLONE_RETRIES") {
		t.Errorf("String() should annotate options with their env var name")
	}
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func contains(haystack, needle string) bool {
	return indexOf(haystack, needle) >= 0
}
