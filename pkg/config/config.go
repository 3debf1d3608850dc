// Package config implements gitcache's typed settings: registration of
// config items with defaults, an env-var → file → default resolution
// order, and INI file load/save.
//
// The registration-table shape (ConfigItem: section, option, default,
// converter, env name) and the env/file/default resolution order are
// grounded on original_source/src/git_cache/config.py. The on-disk format
// is INI rather than the teacher's YAML because spec.md §6 mandates it
// (matching the Python original's configparser); github.com/vaughan0/go-ini
// is the INI library confirmed in the retrieval pack
// (sensiblecodeio-git-prep-directory). The validate-and-apply-defaults
// struct shape otherwise follows the teacher's pkg/mirror/config.go.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	ini "github.com/vaughan0/go-ini"

	"github.com/seeraven/gitcache/pkg/errkind"
)

// CloneStyle selects how a mirror is first populated.
type CloneStyle string

const (
	CloneStyleFull         CloneStyle = "Full"
	CloneStylePartialFirst CloneStyle = "PartialFirst"
)

// item is the Go equivalent of config.py's ConfigItem: a single registered
// setting with its default, converter and override env var name.
type item struct {
	section string
	option  string
	def     string
	env     string // "" disables the environment override for this item
	kind    kind
}

type kind int

const (
	kindString kind = iota
	kindInt
	kindBool
	kindSeconds
	kindRegex
)

// Config is gitcache's resolved settings object. It keeps the full
// registration table (so String() can reproduce the sorted,
// env-var-annotated dump the gitcache persona prints) plus the loaded INI
// file contents.
type Config struct {
	items []item
	file  ini.File // as loaded from disk; empty if no file was present
	log   *slog.Logger
}

func registrationTable() []item {
	return []item{
		{"System", "RealGit", "", "GITCACHE_REAL_GIT", kindString},

		{"MirrorHandling", "UpdateInterval", "0 seconds", "GITCACHE_UPDATE_INTERVAL", kindSeconds},
		{"MirrorHandling", "CleanupAfter", "14 days", "GITCACHE_CLEANUP_AFTER", kindSeconds},

		{"UrlPatterns", "IncludeRegex", ".*", "GITCACHE_URLPATTERNS_INCLUDE_REGEX", kindRegex},
		{"UrlPatterns", "ExcludeRegex", "", "GITCACHE_URLPATTERNS_EXCLUDE_REGEX", kindRegex},

		{"Command", "WarnIfLockedFor", "10 seconds", "GITCACHE_COMMAND_WARN_IF_LOCKED_FOR", kindSeconds},
		{"Command", "CheckInterval", "2 seconds", "GITCACHE_COMMAND_CHECK_INTERVAL", kindSeconds},
		{"Command", "LockTimeout", "1 hour", "GITCACHE_COMMAND_LOCK_TIMEOUT", kindSeconds},

		{"Clone", "Retries", "3", "GITCACHE_CLONE_RETRIES", kindInt},
		{"Clone", "CommandTimeout", "1 hour", "GITCACHE_CLONE_COMMAND_TIMEOUT", kindSeconds},
		{"Clone", "OutputTimeout", "5 minutes", "GITCACHE_CLONE_OUTPUT_TIMEOUT", kindSeconds},
		{"Clone", "CloneStyle", string(CloneStyleFull), "GITCACHE_CLONE_STYLE", kindString},

		{"Update", "Retries", "3", "GITCACHE_UPDATE_RETRIES", kindInt},
		{"Update", "CommandTimeout", "1 hour", "GITCACHE_UPDATE_COMMAND_TIMEOUT", kindSeconds},
		{"Update", "OutputTimeout", "5 minutes", "GITCACHE_UPDATE_OUTPUT_TIMEOUT", kindSeconds},

		{"GC", "Retries", "3", "GITCACHE_GC_RETRIES", kindInt},
		{"GC", "CommandTimeout", "1 hour", "GITCACHE_GC_COMMAND_TIMEOUT", kindSeconds},
		{"GC", "OutputTimeout", "5 minutes", "GITCACHE_GC_OUTPUT_TIMEOUT", kindSeconds},

		{"LFS", "Retries", "3", "GITCACHE_LFS_RETRIES", kindInt},
		{"LFS", "CommandTimeout", "1 hour", "GITCACHE_LFS_COMMAND_TIMEOUT", kindSeconds},
		{"LFS", "OutputTimeout", "5 minutes", "GITCACHE_LFS_OUTPUT_TIMEOUT", kindSeconds},
		{"LFS", "PerMirrorStorage", "true", "GITCACHE_LFS_PER_MIRROR_STORAGE", kindBool},
	}
}

// New builds a Config with every item set to its compiled default, with
// System.RealGit auto-detected, and no file loaded yet.
func New(log *slog.Logger) *Config {
	if log == nil {
		log = slog.Default()
	}
	items := registrationTable()
	for i := range items {
		if items[i].section == "System" && items[i].option == "RealGit" {
			items[i].def = findRealGit(log)
		}
	}
	return &Config{items: items, log: log}
}

// Load reads an INI file into the Config. It returns false (without error)
// if the file does not exist, matching config.py's load() semantics used to
// decide whether to write out the defaults.
func (c *Config) Load(path string) (bool, error) {
	f, err := ini.LoadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: loading config %s: %v", errkind.ErrConfig, path, err)
	}
	c.file = f
	if err := c.checkRealGit(); err != nil {
		return true, err
	}
	return true, nil
}

// Save writes the current configuration (registration defaults overlaid
// with any loaded file values) back out as an INI file. It writes the
// sections itself rather than relying on any writer in go-ini, which only
// exposes loading.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", errkind.ErrFilesystem, err)
	}

	bySection := map[string][]item{}
	var sectionOrder []string
	for _, it := range c.items {
		if _, ok := bySection[it.section]; !ok {
			sectionOrder = append(sectionOrder, it.section)
		}
		bySection[it.section] = append(bySection[it.section], it)
	}

	var b strings.Builder
	for _, s := range sectionOrder {
		fmt.Fprintf(&b, "[%s]\n", s)
		for _, it := range bySection[s] {
			fmt.Fprintf(&b, "%s = %s\n", it.option, c.fileValue(it))
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("%w: %v", errkind.ErrFilesystem, err)
	}
	return nil
}

func (c *Config) fileValue(it item) string {
	if c.file != nil {
		if v, ok := c.file.Get(it.section, it.option); ok {
			return v
		}
	}
	return it.def
}

// resolve implements the single source of truth order: environment
// variable (if registered and set) → config-file value → compiled default.
func (c *Config) resolve(section, option string) string {
	for _, it := range c.items {
		if it.section == section && it.option == option {
			if it.env != "" {
				if v, ok := os.LookupEnv(it.env); ok {
					return v
				}
			}
			return c.fileValue(it)
		}
	}
	return ""
}

// String returns a char-sorted, env-var-annotated dump matching the
// `gitcache` persona's no-argument output, grounded on config.py's
// __str__.
func (c *Config) String() string {
	sections := map[string][]item{}
	for _, it := range c.items {
		sections[it.section] = append(sections[it.section], it)
	}
	var sectionNames []string
	for s := range sections {
		sectionNames = append(sectionNames, s)
	}
	sort.Strings(sectionNames)

	var b strings.Builder
	for i, s := range sectionNames {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", s)
		opts := sections[s]
		sort.Slice(opts, func(i, j int) bool { return opts[i].option < opts[j].option })
		for _, it := range opts {
			val := c.fileValue(it)
			if it.env != "" {
				fmt.Fprintf(&b, " %-20s = %-20s (%s)\n", it.option, val, it.env)
			} else {
				fmt.Fprintf(&b, " %-20s = %s\n", it.option, val)
			}
		}
	}
	return b.String()
}

// Typed accessors -----------------------------------------------------------

func (c *Config) RealGit() string { return c.resolve("System", "RealGit") }

func (c *Config) UpdateInterval() time.Duration { return parseSeconds(c.resolve("MirrorHandling", "UpdateInterval")) }
func (c *Config) CleanupAfter() time.Duration   { return parseSeconds(c.resolve("MirrorHandling", "CleanupAfter")) }

func (c *Config) IncludeRegex() *regexp.Regexp { return parseRegex(c.resolve("UrlPatterns", "IncludeRegex")) }
func (c *Config) ExcludeRegex() *regexp.Regexp { return parseRegex(c.resolve("UrlPatterns", "ExcludeRegex")) }

func (c *Config) WarnIfLockedFor() time.Duration { return parseSeconds(c.resolve("Command", "WarnIfLockedFor")) }
func (c *Config) CheckInterval() time.Duration   { return parseSeconds(c.resolve("Command", "CheckInterval")) }
func (c *Config) LockTimeout() time.Duration     { return parseSeconds(c.resolve("Command", "LockTimeout")) }

func (c *Config) CloneRetries() int                 { return parseInt(c.resolve("Clone", "Retries")) }
func (c *Config) CloneCommandTimeout() time.Duration { return parseSeconds(c.resolve("Clone", "CommandTimeout")) }
func (c *Config) CloneOutputTimeout() time.Duration  { return parseSeconds(c.resolve("Clone", "OutputTimeout")) }

// CloneStyle is parsed case-insensitively, per the Design Notes' resolved
// open question (the source is inconsistent about this).
func (c *Config) CloneStyle() CloneStyle {
	if strings.EqualFold(c.resolve("Clone", "CloneStyle"), string(CloneStylePartialFirst)) {
		return CloneStylePartialFirst
	}
	return CloneStyleFull
}

func (c *Config) UpdateRetries() int                 { return parseInt(c.resolve("Update", "Retries")) }
func (c *Config) UpdateCommandTimeout() time.Duration { return parseSeconds(c.resolve("Update", "CommandTimeout")) }
func (c *Config) UpdateOutputTimeout() time.Duration  { return parseSeconds(c.resolve("Update", "OutputTimeout")) }

func (c *Config) GCRetries() int                 { return parseInt(c.resolve("GC", "Retries")) }
func (c *Config) GCCommandTimeout() time.Duration { return parseSeconds(c.resolve("GC", "CommandTimeout")) }
func (c *Config) GCOutputTimeout() time.Duration  { return parseSeconds(c.resolve("GC", "OutputTimeout")) }

func (c *Config) LFSRetries() int                 { return parseInt(c.resolve("LFS", "Retries")) }
func (c *Config) LFSCommandTimeout() time.Duration { return parseSeconds(c.resolve("LFS", "CommandTimeout")) }
func (c *Config) LFSOutputTimeout() time.Duration  { return parseSeconds(c.resolve("LFS", "OutputTimeout")) }
func (c *Config) LFSPerMirrorStorage() bool        { return parseBool(c.resolve("LFS", "PerMirrorStorage")) }

// Converters ------------------------------------------------------------

// parseSeconds implements the duration syntax of spec.md §6: "<N>
// seconds|minutes|hours|days" or a bare integer number of seconds;
// anything unparseable becomes 0, matching _str_to_seconds's fallback.
func parseSeconds(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	fields := strings.Fields(s)
	if len(fields) == 2 {
		n, err := strconv.ParseFloat(fields[0], 64)
		if err == nil {
			unit := strings.ToLower(strings.TrimSuffix(fields[1], "s"))
			switch unit {
			case "second":
				return time.Duration(n * float64(time.Second))
			case "minute":
				return time.Duration(n * float64(time.Minute))
			case "hour":
				return time.Duration(n * float64(time.Hour))
			case "day":
				return time.Duration(n * 24 * float64(time.Hour))
			}
		}
	}
	return 0
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseBool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "ON", "TRUE", "YES":
		return true
	default:
		return false
	}
}

// parseRegex treats an empty pattern as "never match", mirroring
// _str_to_regex's "a^" sentinel.
func parseRegex(s string) *regexp.Regexp {
	if s == "" {
		return regexp.MustCompile(`a^`)
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return regexp.MustCompile(`a^`)
	}
	return re
}

// findRealGit locates the real git executable on PATH, skipping any entry
// that resolves to this running binary, grounded on config.py:_find_git.
func findRealGit(log *slog.Logger) string {
	self, selfErr := os.Executable()
	if selfErr == nil {
		if resolved, err := filepath.EvalSymlinks(self); err == nil {
			self = resolved
		}
	}

	cmd := "git"
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		candidate := filepath.Join(dir, cmd)
		resolved, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			continue
		}
		if selfErr == nil && resolved == self {
			continue
		}
		if _, err := exec.LookPath(resolved); err == nil {
			log.Debug("found real git command", "candidate", candidate, "resolved", resolved)
			return candidate
		}
	}

	log.Warn("can't find git command, please specify manually in the config file")
	return "/usr/bin/git"
}

// checkRealGit validates System.RealGit at load time: it must resolve to
// an existing executable and must not be this wrapper's own binary,
// grounded on config.py:_check_real_git.
func (c *Config) checkRealGit() error {
	realGit := c.RealGit()
	resolved, err := filepath.EvalSymlinks(realGit)
	if err != nil {
		return fmt.Errorf("%w: configured real git %q does not resolve: %v", errkind.ErrConfig, realGit, err)
	}

	self, err := os.Executable()
	if err == nil {
		if selfResolved, err := filepath.EvalSymlinks(self); err == nil && selfResolved == resolved {
			return fmt.Errorf("%w: configured real git command is this script itself (%s)", errkind.ErrConfig, realGit)
		}
	}
	return nil
}
