package giturl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want *URL
	}{
		{
			name: "scp-like",
			url:  "git@github.com:org/repo.git",
			want: &URL{Scheme: "scp", User: "git", Host: "github.com", Path: "org/repo.git", Repo: "repo.git"},
		},
		{
			name: "ssh with port",
			url:  "ssh://git@example.com:2222/org/repo.git",
			want: &URL{Scheme: "ssh", User: "git", Host: "example.com", Port: "2222", Path: "org/repo.git", Repo: "repo.git"},
		},
		{
			name: "https no user",
			url:  "https://Example.com/Org/Repo.git",
			want: &URL{Scheme: "https", Host: "Example.com", Path: "Org/Repo.git", Repo: "Repo.git"},
		},
		{
			name: "git protocol",
			url:  "git://example.com/org/repo",
			want: &URL{Scheme: "git", Host: "example.com", Path: "org/repo", Repo: "repo"},
		},
		{
			name: "file url",
			url:  "file:///srv/repos/repo.git",
			want: &URL{Scheme: "local", Path: "srv/repos/repo.git", Repo: "repo.git"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.url)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.url, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.url, diff)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, url := range []string{
		"",
		"not a url",
		"gopher://example.com/org/repo",
		"https://example.com/",
	} {
		if _, err := Parse(url); err == nil {
			t.Errorf("Parse(%q) expected an error, got none", url)
		}
	}
}

func TestEquals(t *testing.T) {
	a, err := Parse("git@github.com:org/repo.git")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("ssh://git@github.com/org/repo")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equals(b) {
		t.Errorf("expected %+v to equal %+v", a, b)
	}

	c, err := Parse("ssh://git@github.com/other/repo")
	if err != nil {
		t.Fatal(err)
	}
	if a.Equals(c) {
		t.Errorf("expected %+v not to equal %+v", a, c)
	}
}

func TestMirrorPath(t *testing.T) {
	tests := []struct {
		url      string
		wantPath string
		wantOK   bool
	}{
		{"https://github.com/org/repo.git", "github.com/org/repo", true},
		{"ssh://git@example.com:2222/org/repo.git", "example.com_2222/org/repo", true},
		{"git@github.com:org/repo.git", "github.com/org/repo", true},
		{"file:///srv/repos/repo.git", "", false},
	}

	for _, tt := range tests {
		got, ok := MirrorPath(tt.url)
		if ok != tt.wantOK || got != tt.wantPath {
			t.Errorf("MirrorPath(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.wantPath, tt.wantOK)
		}
	}
}

func TestResolveSubmoduleURL(t *testing.T) {
	tests := []struct {
		parent   string
		relative string
		want     string
	}{
		{"https://github.com/org/repo.git", "../lib.git", "https://github.com/org/lib.git"},
		{"https://github.com/org/repo.git", "./sibling.git", "https://github.com/org/repo/sibling.git"},
		{"https://github.com/org/repo.git", "https://elsewhere.com/lib.git", "https://elsewhere.com/lib.git"},
		{"git@github.com:org/repo.git", "../lib.git", "git@github.com:org/lib.git"},
	}

	for _, tt := range tests {
		got, err := ResolveSubmoduleURL(tt.parent, tt.relative)
		if err != nil {
			t.Fatalf("ResolveSubmoduleURL(%q, %q) returned error: %v", tt.parent, tt.relative, err)
		}
		if got != tt.want {
			t.Errorf("ResolveSubmoduleURL(%q, %q) = %q, want %q", tt.parent, tt.relative, got, tt.want)
		}
	}
}
