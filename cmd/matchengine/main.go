package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/config"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/engine"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	// Commit is set via -ldflags at build time.
	Commit = "unknown"
	// BuildTime is set via -ldflags at build time.
	BuildTime = "unknown"
)

func main() {
	// Local .env is optional; flags and config still win.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "discover":
		discoverCmd(os.Args[2:])
	case "process":
		processCmd(os.Args[2:])
	case "cache":
		cacheCmd(os.Args[2:])
	case "stats":
		statsCmd(os.Args[2:])
	case "version":
		fmt.Printf("matchengine %s (%s) %s\n", Version, Commit, BuildTime)
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `matchengine

Usage:
  matchengine discover [flags]
  matchengine process -match <file> [flags]
  matchengine cache [flags]
  matchengine stats [flags]
  matchengine version

Commands:
  discover    Scan the data directory for match files and update the catalog.
  process     Transform one match file into a ball-by-ball timeline.
  cache       Show cache size, or invalidate cached processed data.
  stats       Print engine performance statistics and recent audit entries.
  version     Print build information.

`)
}

// engineFlags is the flag subset shared by every subcommand.
type engineFlags struct {
	configPath *string
	dataDir    *string
	cacheDir   *string
	logFormat  *string
	logLevel   *string
}

func registerEngineFlags(fs *flag.FlagSet) engineFlags {
	return engineFlags{
		configPath: fs.String("config", "", "Config file path (default: ~/.matchengine/config.json when present)"),
		dataDir:    fs.String("data", "", "Data directory with match JSON files (overrides config)"),
		cacheDir:   fs.String("cache-dir", "", "Cache directory for processed data (overrides config)"),
		logFormat:  fs.String("log-format", "", "Log format: json|text (default text)"),
		logLevel:   fs.String("log-level", "", "Log level: debug|info|warn|error (default info)"),
	}
}

func buildEngine(ef engineFlags) (*engine.Engine, *slog.Logger) {
	cfg, err := resolveConfig(ef)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	format := firstNonEmpty(*ef.logFormat, cfg.LogFormat)
	level := firstNonEmpty(*ef.logLevel, cfg.LogLevel)
	logger, err := newLogger(format, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	e, err := engine.New(engine.Options{Config: *cfg, Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	return e, logger
}

func resolveConfig(ef engineFlags) (*config.Config, error) {
	path := strings.TrimSpace(*ef.configPath)
	explicit := path != ""
	if !explicit {
		path = config.DefaultConfigPath()
	}

	cfg := &config.Config{}
	if loaded, err := config.Load(path); err == nil {
		cfg = loaded
	} else if explicit {
		return nil, err
	}

	if dir := strings.TrimSpace(*ef.dataDir); dir != "" {
		cfg.DataDir = dir
	}
	if dir := strings.TrimSpace(*ef.cacheDir); dir != "" {
		cfg.CacheDir = dir
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = ".match_cache"
	}
	return cfg, nil
}

func discoverCmd(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	ef := registerEngineFlags(fs)
	maxMatches := fs.Int("max", 0, "Maximum number of files per pass (default 50)")
	lazy := fs.Bool("lazy", false, "Reuse a previous pass's result when available")
	_ = fs.Parse(args)

	e, _ := buildEngine(ef)
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e.SetProgress(func(message string, percent float64) {
		fmt.Printf("\r[%5.1f%%] %-50s", percent, message)
	})

	found, err := e.DiscoverAllMatches(ctx, *lazy, *maxMatches)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover failed: %v\n", err)
		os.Exit(1)
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("Discovered %d matches:\n", len(found))
	for _, id := range ids {
		info := found[id]
		fmt.Printf("  %-12s %s\n", info.MatchID, info.DisplayName)
	}
}

func processCmd(args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	ef := registerEngineFlags(fs)
	file := fs.String("match", "", "Match file to process (required)")
	chunked := fs.Bool("chunked", true, "Allow chunked processing for multi-innings matches")
	_ = fs.Parse(args)

	if strings.TrimSpace(*file) == "" {
		fs.Usage()
		os.Exit(2)
	}

	e, _ := buildEngine(ef)
	defer e.Close()

	e.SetProgress(func(message string, percent float64) {
		fmt.Printf("\r[%5.1f%%] %-50s", percent, message)
	})

	tl := e.ProcessMatchData(*file, *chunked)
	fmt.Println()

	if len(tl) == 0 {
		fmt.Printf("No deliveries found in %s\n", *file)
		return
	}
	printTimelineSummary(match.IDFromPath(*file), tl)
}

func printTimelineSummary(matchID string, tl match.Timeline) {
	fmt.Printf("Match %s: %s balls, %d runs\n",
		matchID, humanize.Comma(int64(len(tl))), tl.TotalRuns())

	wickets := tl.WicketsByInnings()
	innings := make([]int, 0, len(wickets))
	for i := range wickets {
		innings = append(innings, i)
	}
	sort.Ints(innings)
	for _, i := range innings {
		fmt.Printf("  innings %d: %d wickets\n", i, wickets[i])
	}

	last := tl[len(tl)-1]
	fmt.Printf("  final over %d.%d at run rate %.2f\n", last.Over, last.Ball, last.RunRate)
}

func cacheCmd(args []string) {
	fs := flag.NewFlagSet("cache", flag.ExitOnError)
	ef := registerEngineFlags(fs)
	invalidate := fs.String("invalidate", "", "Invalidate one cached match by id")
	clear := fs.Bool("clear", false, "Invalidate all cached processed data")
	_ = fs.Parse(args)

	e, _ := buildEngine(ef)
	defer e.Close()

	switch {
	case *clear:
		if err := e.InvalidateCache(""); err != nil {
			fmt.Fprintf(os.Stderr, "clear cache failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cache cleared.")
	case strings.TrimSpace(*invalidate) != "":
		if err := e.InvalidateCache(strings.TrimSpace(*invalidate)); err != nil {
			fmt.Fprintf(os.Stderr, "invalidate failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Invalidated %s.\n", *invalidate)
	default:
		size := e.CacheSize()
		fmt.Printf("Cache: %s across %d files (%d in memory)\n",
			size.Human, size.FileCount, size.InMemoryCount)
	}
}

func statsCmd(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	ef := registerEngineFlags(fs)
	auditLimit := fs.Int("audit", 10, "Number of recent audit entries to print (0 to skip)")
	_ = fs.Parse(args)

	e, _ := buildEngine(ef)
	defer e.Close()

	stats := e.PerformanceStats()
	fmt.Printf("Run %s\n", stats.RunID)
	fmt.Printf("  cache:  %s across %d files\n", stats.Cache.Human, stats.Cache.FileCount)
	if stats.Memory.RSSBytes > 0 {
		fmt.Printf("  memory: %s of %s budget (%.1f%%)\n",
			humanize.Bytes(stats.Memory.RSSBytes),
			humanize.Bytes(stats.Memory.BudgetBytes),
			stats.Memory.UsedPercent)
	}

	if *auditLimit > 0 {
		entries, err := e.AuditTrail(*auditLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "audit trail: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Recent runs:\n")
		for _, entry := range entries {
			line := fmt.Sprintf("  %s %-16s %s", entry.CreatedAt, entry.Action, entry.Status)
			if entry.MatchID != "" {
				line += " " + entry.MatchID
			}
			fmt.Println(line)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func newLogger(format string, level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	return slog.New(h), nil
}
