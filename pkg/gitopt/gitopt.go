// Package gitopt is a table-driven parser for the argv gitcache receives
// when invoked as git: it classifies the invocation into one of a small
// set of cached commands and separates global options, the command name,
// command options and positional arguments, without needing to know every
// git option in existence.
//
// Grounded option-for-option on
// original_source/src/git_cache/git_options.py's Option class and its
// GLOBAL_OPTIONS/CLONE_OPTIONS/.../COMMAND_OPTIONS tables. No example repo
// in the retrieval pack owns an equivalent table-driven git-argv matcher,
// so this is built fresh in the teacher's idiom (plain structs and slices,
// no reflection, no CLI framework) rather than reached for a general
// flags library, since the problem here is "classify one fixed git
// invocation shape", not "define a CLI's own flags".
package gitopt

import (
	"path/filepath"
)

// Option describes a single recognized git option: which group it belongs
// to (used to extract values gitcache cares about, e.g. "branch" or
// "run_path"), its short/long spelling, and whether it takes a value in
// stuck (-oArg, --opt=Arg) and/or separate (-o Arg, --opt Arg) form.
type Option struct {
	Group        string
	Short        string
	Long         string
	HasArg       bool
	HasStuck     bool
	HasSeparate  bool
}

// parse tries to match this option against the front of args. It returns
// whether it matched, how many elements of args it consumed, and the
// extracted value (nil if the option has no argument).
func (o Option) parse(args []string) (matched bool, consumed int, value *string) {
	if o.HasSeparate {
		if o.Short != "" && args[0] == "-"+o.Short {
			if o.HasArg && len(args) > 1 {
				v := args[1]
				return true, 2, &v
			}
			return true, 1, nil
		}
		if o.Long != "" && args[0] == "--"+o.Long {
			if o.HasArg && len(args) > 1 {
				v := args[1]
				return true, 2, &v
			}
			return true, 1, nil
		}
	}

	if o.HasArg && o.HasStuck {
		if o.Short != "" {
			prefix := "-" + o.Short
			if len(args[0]) > len(prefix) && args[0][:len(prefix)] == prefix {
				v := args[0][len(prefix):]
				return true, 1, &v
			}
		}
		if o.Long != "" {
			prefix := "--" + o.Long + "="
			if len(args[0]) >= len(prefix) && args[0][:len(prefix)] == prefix {
				v := args[0][len(prefix):]
				return true, 1, &v
			}
		}
	}

	return false, 0, nil
}

// Global options of interest, per spec.md §4.7. Only options with
// arguments and boolean options gitcache needs to recognize are listed;
// anything else falls through to the "ignored" boolean-flag default.
var globalOptions = []Option{
	{Group: "bail_out", Short: "h", Long: "help", HasArg: false, HasSeparate: true},
	{Group: "bail_out", Long: "version", HasArg: false, HasSeparate: true},
	{Group: "bail_out", Long: "exec-path", HasArg: false, HasSeparate: true},
	{Group: "bail_out", Long: "html-path", HasArg: false, HasSeparate: true},
	{Group: "bail_out", Long: "man-path", HasArg: false, HasSeparate: true},
	{Group: "bail_out", Long: "info-path", HasArg: false, HasSeparate: true},
	{Group: "run_path", Short: "C", HasArg: true, HasStuck: false, HasSeparate: true},
	{Short: "c", HasArg: true, HasStuck: false, HasSeparate: true},
	{Long: "exec-path", HasArg: true, HasStuck: true, HasSeparate: false},
	{Long: "git-dir", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "namespace", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "work-tree", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "super-prefix", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "config-env", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "shallow-file", HasArg: true, HasStuck: false, HasSeparate: true},
	{Group: "bail_out", Long: "list-cmds", HasArg: true, HasStuck: true, HasSeparate: false},
}

var lsRemoteOptions = []Option{
	{Long: "upload-pack", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "exec", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "sort", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "o", Long: "server-option", HasArg: true, HasStuck: true, HasSeparate: true},
}

var checkoutOptions = []Option{
	{Short: "b", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "B", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "recurse-submodules", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "conflict", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "orphan", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "pathspec-from-file", HasArg: true, HasStuck: true, HasSeparate: true},
}

var cloneOptions = []Option{
	{Long: "recurse-submodules", HasArg: false},
	{Long: "recursive", HasArg: false},
	{Long: "remote-submodules", HasArg: false},
	{Short: "j", Long: "jobs", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "template", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "reference", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "reference-if-able", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "o", Long: "origin", HasArg: true, HasStuck: true, HasSeparate: true},
	{Group: "branch", Short: "b", Long: "branch", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "u", Long: "upload-pack", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "depth", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "shallow-since", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "shallow-exclude", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "separate-git-dir", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "c", Long: "config", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "server-option", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "filter", HasArg: true, HasStuck: true, HasSeparate: true},
}

var lfsFetchOptions = []Option{
	{Short: "I", Long: "include", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "X", Long: "exclude", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "r", Long: "recent", HasArg: false},
	{Short: "a", Long: "all", HasArg: false},
	{Short: "p", Long: "prune", HasArg: false},
}

var lfsPullOptions = []Option{
	{Short: "I", Long: "include", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "X", Long: "exclude", HasArg: true, HasStuck: true, HasSeparate: true},
}

var pullOptions = []Option{
	{Long: "recurse-submodules", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "r", Long: "rebase", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "log", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "cleanup", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "s", Long: "strategy", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "X", Long: "strategy-option", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "S", Long: "gpg-sign", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "upload-pack", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "j", Long: "jobs", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "depth", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "shallow-since", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "shallow-exclude", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "deepen", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "refmap", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "o", Long: "server-option", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "negotiation-tip", HasArg: true, HasStuck: true, HasSeparate: true},
}

var fetchOptions = []Option{
	{Long: "upload-pack", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "j", Long: "jobs", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "recurse-submodules", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "depth", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "shallow-since", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "shallow-exclude", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "deepen", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "submodule-prefix", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "recurse-submodules-default", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "refmap", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "o", Long: "server-option", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "negotiation-tip", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "filter", HasArg: true, HasStuck: true, HasSeparate: true},
}

var submoduleUpdateOptions = []Option{
	{Group: "init", Long: "init", HasArg: false},
	{Group: "recursive", Long: "recursive", HasArg: false},
	{Group: "remote", Long: "remote", HasArg: false},
	{Long: "reference", HasArg: true, HasStuck: true, HasSeparate: true},
	{Long: "depth", HasArg: true, HasStuck: true, HasSeparate: true},
	{Short: "j", Long: "jobs", HasArg: true, HasStuck: true, HasSeparate: true},
}

// commandOptions maps a classified command to the option table used to
// parse its own options. Commands absent here (lfs, submodule before the
// subcommand is known, and the three cache-management verbs) are parsed
// with an empty table, matching git_options.py's COMMAND_OPTIONS.
var commandOptions = map[string][]Option{
	"lfs":              nil,
	"submodule":        nil,
	"remote":           nil,
	"remote_add":       nil,
	"cleanup":          nil,
	"update-mirrors":   nil,
	"delete-mirror":    nil,
	"ls-remote":        lsRemoteOptions,
	"checkout":         checkoutOptions,
	"clone":            cloneOptions,
	"lfs_fetch":        lfsFetchOptions,
	"lfs_pull":         lfsPullOptions,
	"pull":             pullOptions,
	"fetch":            fetchOptions,
	"submodule_init":   nil,
	"submodule_update": submoduleUpdateOptions,
}

// Invocation is a parsed git command line: the GitInvocation entity of
// spec.md §3.
type Invocation struct {
	AllArgs             []string
	GlobalOptions       []string
	GlobalGroupValues   map[string][]*string
	Command             string
	CommandOptions      []string
	CommandArgs         []string
	CommandGroupValues  map[string][]*string
}

// Parse classifies args (the git command line without the leading "git"
// itself) into an Invocation, following git_options.py:GitOptions._parse.
func Parse(args []string) *Invocation {
	inv := &Invocation{
		AllArgs:            args,
		GlobalGroupValues:  map[string][]*string{},
		CommandGroupValues: map[string][]*string{},
	}

	i := 0
	for i < len(args) && len(args[i]) > 0 && args[i][0] == '-' {
		i += parseAny(globalOptions, args[i:], &inv.GlobalOptions, inv.GlobalGroupValues)
	}

	if i < len(args) {
		inv.Command = args[i]
		i++
	}

	if inv.Command == "lfs" || inv.Command == "submodule" || inv.Command == "remote" {
		for i < len(args) && len(args[i]) > 0 && args[i][0] == '-' {
			i += parseAny(commandOptions[inv.Command], args[i:], &inv.CommandOptions, inv.CommandGroupValues)
		}
		if i < len(args) {
			inv.Command += "_" + args[i]
			i++
		} else {
			return inv
		}
	}

	table, known := commandOptions[inv.Command]
	if !known {
		return inv
	}

	ignoreOptions := false
	for i < len(args) {
		switch {
		case ignoreOptions:
			inv.CommandArgs = append(inv.CommandArgs, args[i])
			i++
		case args[i] == "--":
			ignoreOptions = true
			i++
		case len(args[i]) > 0 && args[i][0] == '-':
			i += parseAny(table, args[i:], &inv.CommandOptions, inv.CommandGroupValues)
		default:
			inv.CommandArgs = append(inv.CommandArgs, args[i])
			i++
		}
	}

	return inv
}

// parseAny tries every option in table against the front of args, falling
// back to treating an unrecognized leading "-..." argument as a boolean
// flag in the "ignored" group, matching _parse_any_option.
func parseAny(table []Option, args []string, dst *[]string, groups map[string][]*string) int {
	for _, opt := range table {
		matched, consumed, value := opt.parse(args)
		if matched {
			*dst = append(*dst, args[0:consumed]...)
			group := opt.Group
			if group == "" {
				group = "ignored"
			}
			groups[group] = append(groups[group], value)
			return consumed
		}
	}

	*dst = append(*dst, args[0])
	groups["ignored"] = append(groups["ignored"], nil)
	return 1
}

// HasBailOut reports whether a "bail_out" group global option was given:
// the real git command should run unmodified and the wrapper should not
// interpret anything further.
func (inv *Invocation) HasBailOut() bool {
	_, ok := inv.GlobalGroupValues["bail_out"]
	return ok
}

// GetGlobalGroupValues returns the values recorded for a global option
// group, or nil if the group was never seen.
func (inv *Invocation) GetGlobalGroupValues(group string) []*string {
	return inv.GlobalGroupValues[group]
}

// GetCommandGroupValues returns the values recorded for a command option
// group, or nil if the group was never seen.
func (inv *Invocation) GetCommandGroupValues(group string) []*string {
	return inv.CommandGroupValues[group]
}

// RealGitWithOptions returns [realGit, globalOptions...], used to
// reconstruct a command that should see the same global options (-C, -c,
// ...) as the original invocation but a different subcommand.
func (inv *Invocation) RealGitWithOptions(realGit string) []string {
	out := make([]string, 0, 1+len(inv.GlobalOptions))
	out = append(out, realGit)
	out = append(out, inv.GlobalOptions...)
	return out
}

// RealGitAllArgs returns [realGit, allArgs...], the straight fallthrough
// invocation used whenever gitcache decides not to intercept a command.
func (inv *Invocation) RealGitAllArgs(realGit string) []string {
	out := make([]string, 0, 1+len(inv.AllArgs))
	out = append(out, realGit)
	out = append(out, inv.AllArgs...)
	return out
}

// RunPath returns the absolute path that results from applying every -C
// global option in order, matching get_run_path.
func (inv *Invocation) RunPath() string {
	paths := inv.GetGlobalGroupValues("run_path")
	if len(paths) == 0 {
		abs, err := filepath.Abs(".")
		if err != nil {
			return "."
		}
		return abs
	}

	joined := ""
	for _, p := range paths {
		if p == nil {
			continue
		}
		if filepath.IsAbs(*p) || joined == "" {
			joined = *p
		} else {
			joined = filepath.Join(joined, *p)
		}
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return joined
	}
	return abs
}

// firstGroupValue returns the first non-nil value recorded for group, or
// "" if none exists.
func firstGroupValue(values []*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

// Branch returns the --branch/-b value from the clone command's "branch"
// group, or "" if none was given.
func (inv *Invocation) Branch() string {
	return firstGroupValue(inv.CommandGroupValues["branch"])
}

// HasCommandOption reports whether literal opt (e.g. "--recursive")
// appears verbatim in the command's option tokens.
func (inv *Invocation) HasCommandOption(opt string) bool {
	for _, o := range inv.CommandOptions {
		if o == opt {
			return true
		}
	}
	return false
}
