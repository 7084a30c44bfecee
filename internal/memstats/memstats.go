// Package memstats samples the engine's own memory footprint and gates
// cache admission against the configured budget.
package memstats

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Readings are cheap but not free; sampling at most every TTL keeps the hot
// path (one check per processed match) off /proc.
const snapshotTTL = 2 * time.Second

// Stats is one memory reading. RSSBytes may be zero when the platform
// refuses process inspection; consumers must treat zero as unknown.
type Stats struct {
	RSSBytes    uint64  `json:"rss_bytes"`
	BudgetBytes uint64  `json:"budget_bytes"`
	UsedPercent float64 `json:"used_percent"`

	SystemTotalBytes     uint64 `json:"system_total_bytes"`
	SystemAvailableBytes uint64 `json:"system_available_bytes"`

	TimestampMs int64 `json:"timestamp_ms"`
}

type Service struct {
	log    *slog.Logger
	budget uint64

	mu      sync.Mutex
	hasSnap bool
	snap    snapshot
}

type snapshot struct {
	collectedAt time.Time
	stats       Stats
}

func NewService(log *slog.Logger, budgetBytes uint64) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log, budget: budgetBytes}
}

// Stats returns the current reading, reusing a recent sample when available.
func (s *Service) Stats() Stats {
	now := time.Now()

	s.mu.Lock()
	if s.hasSnap && now.Sub(s.snap.collectedAt) < snapshotTTL {
		out := s.snap.stats
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	snap := s.collect(now)

	s.mu.Lock()
	s.snap = snap
	s.hasSnap = true
	s.mu.Unlock()

	return snap.stats
}

// Headroom reports whether the process is still under its memory budget.
// Fails open: an unreadable RSS never blocks processing, only caching
// decisions become less precise.
func (s *Service) Headroom() bool {
	if s == nil {
		return true
	}
	st := s.Stats()
	if st.RSSBytes == 0 || s.budget == 0 {
		return true
	}
	return st.RSSBytes < s.budget
}

func (s *Service) collect(collectedAt time.Time) snapshot {
	stats := Stats{
		BudgetBytes: s.budget,
		TimestampMs: collectedAt.UnixMilli(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err != nil {
		s.log.Warn("memstats: open own process failed", "error", err)
	} else if info, err := proc.MemoryInfo(); err != nil || info == nil {
		s.log.Warn("memstats: read rss failed", "error", err)
	} else {
		stats.RSSBytes = info.RSS
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		stats.SystemTotalBytes = vm.Total
		stats.SystemAvailableBytes = vm.Available
	} else if err != nil {
		s.log.Warn("memstats: read system memory failed", "error", err)
	}

	if s.budget > 0 && stats.RSSBytes > 0 {
		stats.UsedPercent = float64(stats.RSSBytes) / float64(s.budget) * 100
	}

	return snapshot{collectedAt: collectedAt, stats: stats}
}
