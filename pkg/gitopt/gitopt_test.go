package gitopt

import (
	"testing"
)

func TestParseClone(t *testing.T) {
	inv := Parse([]string{"clone", "--branch", "main", "https://github.com/org/repo.git", "dest"})

	if inv.Command != "clone" {
		t.Fatalf("Command = %q, want clone", inv.Command)
	}
	if got := inv.Branch(); got != "main" {
		t.Errorf("Branch() = %q, want main", got)
	}
	if len(inv.CommandArgs) != 2 || inv.CommandArgs[0] != "https://github.com/org/repo.git" || inv.CommandArgs[1] != "dest" {
		t.Errorf("CommandArgs = %v, want [url dest]", inv.CommandArgs)
	}
}

func TestParseCloneStuckBranch(t *testing.T) {
	inv := Parse([]string{"clone", "--branch=main", "https://github.com/org/repo.git"})
	if got := inv.Branch(); got != "main" {
		t.Errorf("Branch() = %q, want main", got)
	}
}

func TestParseGlobalRunPath(t *testing.T) {
	inv := Parse([]string{"-C", "/tmp/repo", "fetch", "origin"})
	if inv.Command != "fetch" {
		t.Fatalf("Command = %q, want fetch", inv.Command)
	}
	if got := inv.RunPath(); got != "/tmp/repo" {
		t.Errorf("RunPath() = %q, want /tmp/repo", got)
	}
}

func TestParseBailOut(t *testing.T) {
	inv := Parse([]string{"--version"})
	if !inv.HasBailOut() {
		t.Errorf("expected HasBailOut() true for --version")
	}
}

func TestParseSubmoduleUpdate(t *testing.T) {
	inv := Parse([]string{"submodule", "update", "--init", "--recursive"})
	if inv.Command != "submodule_update" {
		t.Fatalf("Command = %q, want submodule_update", inv.Command)
	}
	if !inv.HasCommandOption("--init") {
		t.Errorf("expected --init recorded in CommandOptions, got %v", inv.CommandOptions)
	}
}

func TestParseLsRemote(t *testing.T) {
	inv := Parse([]string{"ls-remote", "--tags", "origin"})
	if inv.Command != "ls-remote" {
		t.Fatalf("Command = %q, want ls-remote", inv.Command)
	}
	if len(inv.CommandArgs) != 1 || inv.CommandArgs[0] != "origin" {
		t.Errorf("CommandArgs = %v, want [origin]", inv.CommandArgs)
	}
}

func TestParseDoubleDash(t *testing.T) {
	inv := Parse([]string{"checkout", "--", "-weird-branch-name"})
	if len(inv.CommandArgs) != 1 || inv.CommandArgs[0] != "-weird-branch-name" {
		t.Errorf("CommandArgs = %v, want [-weird-branch-name]", inv.CommandArgs)
	}
}

func TestParseRemoteAdd(t *testing.T) {
	inv := Parse([]string{"remote", "add", "origin", "git@example.com:foo/bar.git"})
	if inv.Command != "remote_add" {
		t.Fatalf("Command = %q, want remote_add", inv.Command)
	}
	want := []string{"origin", "git@example.com:foo/bar.git"}
	if len(inv.CommandArgs) != len(want) || inv.CommandArgs[0] != want[0] || inv.CommandArgs[1] != want[1] {
		t.Errorf("CommandArgs = %v, want %v", inv.CommandArgs, want)
	}
}

func TestParseRemoteOther(t *testing.T) {
	inv := Parse([]string{"remote", "-v"})
	if inv.Command != "remote" {
		t.Fatalf("Command = %q, want remote", inv.Command)
	}
}

func TestRealGitAllArgs(t *testing.T) {
	inv := Parse([]string{"status"})
	got := inv.RealGitAllArgs("/usr/bin/git.real")
	want := []string{"/usr/bin/git.real", "status"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("RealGitAllArgs() = %v, want %v", got, want)
	}
}
