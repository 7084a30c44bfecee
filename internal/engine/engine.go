// Package engine is the top-level facade: one Engine owns discovery, the
// transformation pipeline, the processed-data cache, the match catalog and
// the audit trail, wired together from a single Config.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/auditlog"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/cache"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/catalog"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/config"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/discovery"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/memstats"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/pipeline"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/progress"
)

type Options struct {
	Config config.Config
	Logger *slog.Logger
}

type Engine struct {
	log   *slog.Logger
	cfg   config.Config
	runID string

	sink     *progress.Sink
	cache    *cache.Store
	pipeline *pipeline.Pipeline
	scanner  *discovery.Scanner
	catalog  *catalog.Store
	audit    *auditlog.Store
	mem      *memstats.Service

	mu                sync.Mutex
	matchesDiscovered int
	matchesProcessed  int
	processingTotal   time.Duration
}

func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink := progress.NewSink(logger, nil)
	mem := memstats.NewService(logger, uint64(cfg.MemoryLimitBytes()))

	store, err := cache.New(cache.Options{
		Logger:      logger,
		Dir:         cfg.CacheDir,
		BudgetBytes: cfg.MemoryLimitBytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	pipe, err := pipeline.New(pipeline.Options{
		Logger:         logger,
		Cache:          store,
		Progress:       sink,
		ChunkSize:      cfg.ChunkSize,
		LargeFileBytes: cfg.LargeFileBytes(),
		Headroom:       mem.Headroom,
	})
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(filepath.Join(cfg.StateDir, "catalog.db"))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	audit, err := auditlog.New(auditlog.Options{Logger: logger, StateDir: cfg.StateDir})
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	e := &Engine{
		log:      logger,
		cfg:      cfg,
		runID:    uuid.NewString(),
		sink:     sink,
		cache:    store,
		pipeline: pipe,
		scanner: discovery.NewScanner(discovery.Options{
			Logger:     logger,
			Progress:   sink,
			MaxWorkers: cfg.MaxWorkers,
		}),
		catalog: cat,
		audit:   audit,
		mem:     mem,
	}
	logger.Info("engine ready", "run_id", e.runID, "data_dir", cfg.DataDir, "cache_dir", cfg.CacheDir)
	return e, nil
}

func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	return e.catalog.Close()
}

// SetProgress registers the progress callback shared by discovery and
// processing. A nil callback restores the logging fallback.
func (e *Engine) SetProgress(fn progress.Func) {
	e.sink.Set(fn)
}

// DiscoverAllMatches scans the configured data directory and returns
// metadata keyed by match id. Results are persisted to the catalog so later
// runs can list known matches without rescanning. With lazy set, a previous
// pass's result is reused when available.
func (e *Engine) DiscoverAllMatches(ctx context.Context, lazy bool, maxMatches int) (map[string]match.Info, error) {
	started := time.Now()
	found, err := e.scanner.Discover(ctx, e.cfg.DataDir, maxMatches, lazy)
	if err != nil {
		e.audit.Append(auditlog.Entry{
			RunID:  e.runID,
			Action: "discover",
			Status: "failure",
			Error:  err.Error(),
		})
		return nil, err
	}

	infos := make([]match.Info, 0, len(found))
	for _, info := range found {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].MatchID < infos[j].MatchID })
	if err := e.catalog.UpsertAll(ctx, infos); err != nil {
		e.log.Warn("catalog update failed", "error", err)
	}

	e.mu.Lock()
	e.matchesDiscovered = len(found)
	e.mu.Unlock()

	e.audit.Append(auditlog.Entry{
		RunID:  e.runID,
		Action: "discover",
		Detail: map[string]any{
			"matches":     len(found),
			"lazy":        lazy,
			"duration_ms": time.Since(started).Milliseconds(),
		},
	})
	return found, nil
}

// ProcessMatchData transforms one match file into a ball-by-ball timeline,
// serving from the cache when the source file has not changed. Failures
// yield an empty timeline, mirroring the pipeline's contract.
func (e *Engine) ProcessMatchData(path string, useChunking bool) match.Timeline {
	started := time.Now()
	tl := e.pipeline.Process(path, nil, useChunking)
	elapsed := time.Since(started)

	e.mu.Lock()
	e.matchesProcessed++
	e.processingTotal += elapsed
	e.mu.Unlock()

	wickets := 0
	for _, n := range tl.WicketsByInnings() {
		wickets += n
	}
	e.audit.Append(auditlog.Entry{
		RunID:   e.runID,
		Action:  "process",
		MatchID: match.IDFromPath(path),
		Detail: map[string]any{
			"balls":       len(tl),
			"wickets":     wickets,
			"total_runs":  tl.TotalRuns(),
			"chunked":     useChunking,
			"duration_ms": elapsed.Milliseconds(),
		},
	})

	if !e.mem.Headroom() {
		evicted := e.cache.EvictOldestHalf()
		e.log.Warn("memory pressure, evicted cached timelines", "count", evicted)
		e.audit.Append(auditlog.Entry{
			RunID:  e.runID,
			Action: "cache_evict",
			Detail: map[string]any{"evicted": evicted},
		})
	}
	return tl
}

// InvalidateCache drops cached processed data. An empty match id drops
// everything; otherwise only the named match is invalidated.
func (e *Engine) InvalidateCache(matchID string) error {
	var err error
	if matchID == "" {
		err = e.cache.InvalidateAll()
	} else {
		err = e.cache.Invalidate(matchID)
	}

	entry := auditlog.Entry{
		RunID:   e.runID,
		Action:  "cache_invalidate",
		MatchID: matchID,
	}
	if err != nil {
		entry.Status = "failure"
		entry.Error = err.Error()
	}
	e.audit.Append(entry)
	return err
}

// CacheSize reports the processed-data cache footprint on disk and in memory.
func (e *Engine) CacheSize() cache.SizeInfo {
	return e.cache.Size()
}

// MemoryStats is the engine's memory reading plus how many processed
// timelines the cache mirror currently holds.
type MemoryStats struct {
	memstats.Stats
	CachedMatches int `json:"cached_matches"`
}

func (e *Engine) MemoryStats() MemoryStats {
	return MemoryStats{
		Stats:         e.mem.Stats(),
		CachedMatches: e.cache.InMemoryCount(),
	}
}

// CatalogMatches lists persisted match metadata, most recently updated first.
func (e *Engine) CatalogMatches(ctx context.Context, limit int) ([]match.Info, error) {
	return e.catalog.List(ctx, limit)
}

// AuditTrail returns recent audit entries, newest first.
func (e *Engine) AuditTrail(limit int) ([]auditlog.Entry, error) {
	return e.audit.List(limit)
}

// PerformanceStats is a point-in-time summary of this engine run.
type PerformanceStats struct {
	RunID string `json:"run_id"`

	MaxWorkers int `json:"max_workers"`
	ChunkSize  int `json:"chunk_size"`

	MatchesDiscovered int   `json:"matches_discovered"`
	MatchesProcessed  int   `json:"matches_processed"`
	ProcessingMs      int64 `json:"processing_ms"`

	Cache  cache.SizeInfo `json:"cache"`
	Memory memstats.Stats `json:"memory"`
}

func (e *Engine) PerformanceStats() PerformanceStats {
	e.mu.Lock()
	discovered := e.matchesDiscovered
	processed := e.matchesProcessed
	total := e.processingTotal
	e.mu.Unlock()

	return PerformanceStats{
		RunID:             e.runID,
		MaxWorkers:        e.cfg.MaxWorkers,
		ChunkSize:         e.cfg.ChunkSize,
		MatchesDiscovered: discovered,
		MatchesProcessed:  processed,
		ProcessingMs:      total.Milliseconds(),
		Cache:             e.cache.Size(),
		Memory:            e.mem.Stats(),
	}
}
