// Command gitcache is a transparent wrapper around the real git binary
// that maintains local bare mirrors of remote repositories, speeding up
// repeated clones/fetches of the same remotes.
//
// It answers to two personas depending on how it was invoked
// (os.Args[0]/os.Args[1]): as "git" it intercepts the subcommands that
// benefit from a mirror and falls through to the real git for everything
// else; as "gitcache" it exposes cache-management flags.
//
// Grounded on original_source/src/git_cache/cli.py:main_cli for the
// persona dispatch, and the teacher's cmd/app/main.go for the urfave/cli
// wiring of the gitcache-persona flags (completing what the teacher only
// stubbed out there).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v3"

	"github.com/seeraven/gitcache/pkg/cachelock"
	"github.com/seeraven/gitcache/pkg/config"
	"github.com/seeraven/gitcache/pkg/db"
	"github.com/seeraven/gitcache/pkg/dispatch"
	"github.com/seeraven/gitcache/pkg/mirror"
)

// metrics is gitcache's process-lifetime Prometheus registry: every mirror
// update/LFS-fetch the dispatcher performs records into it, and the
// gitcache persona's --show-statistics dumps it in text exposition format
// alongside the plain counter report. There is deliberately no HTTP
// listener serving it (spec.md's explicit non-goal).
var metrics = prometheus.NewRegistry()

func init() {
	mirror.EnableMetrics(metrics)
}

const version = "1.0.17"

var gitNames = map[string]bool{"git": true, "git.exe": true}

func cacheDir() string {
	if v, ok := os.LookupEnv("GITCACHE_DIR"); ok && v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}
	return filepath.Join(home, ".gitcache")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToUpper(os.Getenv("GITCACHE_LOGLEVEL")) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARNING", "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newDispatcher loads gitcache's configuration and mirror database from
// dir, writing out a fresh config file on first run, matching
// config.py:Config.__init__'s load-or-save-defaults behavior.
func newDispatcher(dir string, log *slog.Logger) (*dispatch.Dispatcher, error) {
	cfg := config.New(log)
	cfgPath := filepath.Join(dir, "config")
	existed, err := cfg.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if !existed {
		if err := cfg.Save(cfgPath); err != nil {
			return nil, err
		}
	}

	dbLock := cachelock.ForDatabase(dir, cfg.WarnIfLockedFor(), cfg.CheckInterval(), cfg.LockTimeout(), log)
	database, err := db.Open(dir, dbLock)
	if err != nil {
		return nil, err
	}

	return dispatch.New(cfg, database, dir, log), nil
}

func main() {
	log := newLogger()
	dir := cacheDir()

	args := os.Args
	switch {
	case len(args) > 0 && gitNames[filepath.Base(args[0])]:
		os.Exit(runGitPersona(dir, log, args[0:1], args[1:]))
	case len(args) > 1 && gitNames[filepath.Base(args[1])]:
		os.Exit(runGitPersona(dir, log, args[0:2], args[2:]))
	default:
		os.Exit(runGitcachePersona(dir, log, args))
	}
}

func runGitPersona(dir string, log *slog.Logger, calledAs, gitArgs []string) int {
	d, err := newDispatcher(dir, log)
	if err != nil {
		log.Error("could not initialize gitcache", "err", err)
		return 1
	}
	return d.Dispatch(context.Background(), append(calledAs, gitArgs...))
}

func runGitcachePersona(dir string, log *slog.Logger, args []string) int {
	var doCleanup, doUpdateAll, doShowStats, doZeroStats, showVersion bool
	var deleteList []string

	cmd := &cli.Command{
		Name:  "gitcache",
		Usage: "local cache for git repositories",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "version", Usage: "print the version of gitcache", Destination: &showVersion},
			&cli.BoolFlag{Name: "cleanup", Aliases: []string{"c"}, Usage: "remove all outdated repositories", Destination: &doCleanup},
			&cli.BoolFlag{Name: "update-all", Aliases: []string{"u"}, Usage: "update all mirrors", Destination: &doUpdateAll},
			&cli.StringSliceFlag{Name: "delete", Aliases: []string{"d"}, Usage: "delete a mirror identified by its URL or path; may be given multiple times"},
			&cli.BoolFlag{Name: "show-statistics", Aliases: []string{"s"}, Usage: "show the statistics", Destination: &doShowStats},
			&cli.BoolFlag{Name: "zero-statistics", Aliases: []string{"z"}, Usage: "clear the statistics", Destination: &doZeroStats},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			deleteList = c.StringSlice("delete")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), args); err != nil {
		log.Error("invalid arguments", "err", err)
		return 1
	}

	if showVersion {
		info, _ := debug.ReadBuildInfo()
		goVersion := ""
		if info != nil {
			goVersion = info.GoVersion
		}
		fmt.Printf("gitcache v%s (go %s)\n", version, goVersion)
		return 0
	}

	d, err := newDispatcher(dir, log)
	if err != nil {
		log.Error("could not initialize gitcache", "err", err)
		return 1
	}

	ctx := context.Background()
	success := true

	if doCleanup {
		success = d.Cleanup(ctx) == 0
	}
	if doUpdateAll {
		success = d.UpdateAllMirrors(ctx) == 0
	}
	if len(deleteList) > 0 {
		success = d.DeleteMirrors(ctx, deleteList) == 0
	}
	if doZeroStats {
		zeroStatistics(d, log)
	}

	switch {
	case doShowStats:
		showStatistics(d)
	case !(doCleanup || doUpdateAll || len(deleteList) > 0 || doZeroStats):
		printGlobalSettings(dir, d)
	}

	if !success {
		return 1
	}
	return 0
}

func zeroStatistics(d *dispatch.Dispatcher, log *slog.Logger) {
	paths, err := d.DB.SortedPaths()
	if err != nil {
		log.Error("failed to read mirror database", "err", err)
		return
	}
	for _, path := range paths {
		if err := d.DB.ClearCounters(path); err != nil {
			log.Error("failed to clear counters", "path", path, "err", err)
		}
	}
	log.Info("statistics cleared")
}

// showStatistics prints a per-mirror and total breakdown of the four
// mirror-activity counters, matching git_cache_command.py:git_cache's
// --show-statistics output.
func showStatistics(d *dispatch.Dispatcher) {
	entries, err := d.DB.GetAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read mirror database:", err)
		return
	}

	var paths []string
	for path := range entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var totalMirror, totalLFS, totalClones, totalUpdates int
	for _, path := range paths {
		e := entries[path]
		fmt.Printf("Mirror of %s:\n", e.URL)
		fmt.Printf("  Mirror Updates:       %d\n", e.MirrorUpdates)
		fmt.Printf("  Mirror Updates (LFS): %d\n", e.LFSUpdates)
		fmt.Printf("  Clones from Mirror:   %d\n", e.Clones)
		fmt.Printf("  Updates from Mirror:  %d\n", e.Updates)
		fmt.Println()

		totalMirror += e.MirrorUpdates
		totalLFS += e.LFSUpdates
		totalClones += e.Clones
		totalUpdates += e.Updates
	}

	fmt.Println("Total:")
	fmt.Printf("  Mirror Updates:       %d\n", totalMirror)
	fmt.Printf("  Mirror Updates (LFS): %d\n", totalLFS)
	fmt.Printf("  Clones from Mirror:   %d\n", totalClones)
	fmt.Printf("  Updates from Mirror:  %d\n", totalUpdates)
	fmt.Println()

	dumpMetrics()
}

// dumpMetrics renders this invocation's in-process Prometheus metrics
// (update counts/latency, LFS fetch counts actually observed during this
// run) in text exposition format. gitcache never serves these over HTTP;
// --show-statistics is the only consumer.
func dumpMetrics() {
	families, err := metrics.Gather()
	if err != nil || len(families) == 0 {
		return
	}
	fmt.Println("Process metrics:")
	fmt.Println("-----------------")
	enc := expfmt.NewEncoder(os.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		_ = enc.Encode(mf)
	}
}

func printGlobalSettings(dir string, d *dispatch.Dispatcher) {
	fmt.Println("gitcache global settings:")
	fmt.Println("-------------------------")
	fmt.Printf("  GITCACHE_DIR      = %s\n", dir)
	fmt.Printf("  GITCACHE_DB       = %s\n", filepath.Join(dir, "db"))
	fmt.Printf("  GITCACHE_DB_LOCK  = %s\n", filepath.Join(dir, "db.lock"))
	fmt.Println()
	fmt.Println("gitcache configuration:")
	fmt.Println("-----------------------")
	fmt.Println(d.Config.String())
}
