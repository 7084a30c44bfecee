// Package cache stores processed timelines durably on disk with an in-memory
// mirror bounded by a configurable memory budget.
//
// The store exclusively owns both the disk artifacts and the mirror; the
// transformation pipeline reads and writes only through this interface.
package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
)

const artifactSuffix = "_processed.gob"

type Options struct {
	Logger *slog.Logger
	// Dir is where timeline artifacts live, one per match id.
	Dir string
	// BudgetBytes bounds the in-memory mirror (realized sizes).
	BudgetBytes int64
}

type Store struct {
	log    *slog.Logger
	dir    string
	budget int64

	mu       sync.Mutex
	mem      map[string]match.Timeline
	order    []string // insertion order, oldest first
	used     int64
	hydrated bool
}

func New(opts Options) (*Store, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, errors.New("missing cache dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	budget := opts.BudgetBytes
	if budget <= 0 {
		return nil, fmt.Errorf("invalid cache budget %d", budget)
	}
	return &Store{
		log:    logger,
		dir:    dir,
		budget: budget,
		mem:    make(map[string]match.Timeline),
	}, nil
}

func (s *Store) artifactPath(matchID string) string {
	return filepath.Join(s.dir, matchID+artifactSuffix)
}

// IsValid reports whether a durable artifact exists for matchID and is
// strictly newer than the source file. A touched source invalidates.
func (s *Store) IsValid(matchID, sourcePath string) bool {
	art, err := os.Stat(s.artifactPath(matchID))
	if err != nil {
		return false
	}
	src, err := os.Stat(sourcePath)
	if err != nil {
		return false
	}
	return art.ModTime().After(src.ModTime())
}

// Get looks up the in-memory mirror only. Callers needing disk-backed recall
// must trigger LoadAll first.
func (s *Store) Get(matchID string) (match.Timeline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.mem[matchID]
	return tl, ok
}

// Put writes the timeline durably and updates the mirror. Write failures are
// logged, not propagated; prior state is left unchanged on failure.
func (s *Store) Put(matchID string, tl match.Timeline) {
	if err := s.writeArtifact(matchID, tl); err != nil {
		s.log.Warn("cache write failed", "match_id", matchID, "error", err)
		return
	}
	s.mu.Lock()
	s.admitLocked(matchID, tl)
	s.mu.Unlock()
	s.log.Info("cached processed timeline", "match_id", matchID, "balls", len(tl))
}

func (s *Store) writeArtifact(matchID string, tl match.Timeline) error {
	path := s.artifactPath(matchID)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(tl); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readArtifact(path string) (match.Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tl match.Timeline
	if err := gob.NewDecoder(f).Decode(&tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// admitLocked installs an entry in the mirror, replacing any prior entry's
// accounting. Caller holds s.mu.
func (s *Store) admitLocked(matchID string, tl match.Timeline) {
	if old, ok := s.mem[matchID]; ok {
		s.used -= old.MemorySize()
		s.dropFromOrderLocked(matchID)
	}
	s.mem[matchID] = tl
	s.order = append(s.order, matchID)
	s.used += tl.MemorySize()
}

func (s *Store) dropFromOrderLocked(matchID string) {
	for i, id := range s.order {
		if id == matchID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// LoadAll hydrates the mirror from disk once. Entries are admitted oldest
// path first (lexicographic) until the running byte total would exceed the
// budget; an entry that would overflow is skipped whole, never partially
// loaded. Subsequent calls are no-ops.
func (s *Store) LoadAll(report func(message string, percent float64)) {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return
	}
	s.hydrated = true
	s.mu.Unlock()

	paths, err := s.artifactPaths()
	if err != nil {
		s.log.Warn("cache scan failed", "dir", s.dir, "error", err)
		return
	}

	loaded := 0
	for i, path := range paths {
		matchID := strings.TrimSuffix(filepath.Base(path), artifactSuffix)

		tl, err := readArtifact(path)
		if err != nil {
			s.log.Warn("cache load failed", "match_id", matchID, "error", err)
			continue
		}

		size := tl.MemorySize()
		s.mu.Lock()
		if s.used+size > s.budget {
			s.mu.Unlock()
			s.log.Info("skipping cache entry over memory budget",
				"match_id", matchID, "entry_bytes", size, "used_bytes", s.used, "budget_bytes", s.budget)
			continue
		}
		s.admitLocked(matchID, tl)
		s.mu.Unlock()
		loaded++

		if report != nil {
			report(fmt.Sprintf("Loaded %d/%d cached matches", loaded, len(paths)),
				float64(i+1)/float64(len(paths))*100)
		}
	}
	s.log.Info("cache hydrated", "loaded", loaded, "artifacts", len(paths), "used_bytes", s.UsedBytes())
}

// Hydrated reports whether LoadAll has run.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// UsedBytes is the mirror's current accounted size.
func (s *Store) UsedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// InMemoryCount is the number of entries in the mirror.
func (s *Store) InMemoryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mem)
}

// Invalidate removes one match from the mirror and deletes its disk artifact.
// A missing artifact is not an error.
func (s *Store) Invalidate(matchID string) error {
	s.mu.Lock()
	if old, ok := s.mem[matchID]; ok {
		s.used -= old.MemorySize()
		delete(s.mem, matchID)
		s.dropFromOrderLocked(matchID)
	}
	s.mu.Unlock()

	path := s.artifactPath(matchID)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("cache artifact remove failed", "match_id", matchID, "error", err)
		return err
	}
	s.log.Info("invalidated cache entry", "match_id", matchID)
	return nil
}

// InvalidateAll clears the mirror and deletes every disk artifact.
func (s *Store) InvalidateAll() error {
	s.mu.Lock()
	s.mem = make(map[string]match.Timeline)
	s.order = nil
	s.used = 0
	s.mu.Unlock()

	paths, err := s.artifactPaths()
	if err != nil {
		s.log.Warn("cache scan failed", "dir", s.dir, "error", err)
		return err
	}
	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			s.log.Warn("cache artifact remove failed", "path", path, "error", err)
			errs = append(errs, err)
		}
	}
	s.log.Info("invalidated all cache entries", "artifacts", len(paths))
	return errors.Join(errs...)
}

// EvictOldestHalf drops the oldest half of the mirror by insertion order.
// Disk artifacts are untouched. Returns the number of entries evicted.
func (s *Store) EvictOldestHalf() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.order) / 2
	for _, id := range s.order[:n] {
		if old, ok := s.mem[id]; ok {
			s.used -= old.MemorySize()
			delete(s.mem, id)
		}
	}
	s.order = append([]string(nil), s.order[n:]...)
	if n > 0 {
		s.log.Info("evicted cache entries", "count", n, "remaining", len(s.mem))
	}
	return n
}

// SizeInfo summarizes the durable and in-memory cache state.
type SizeInfo struct {
	Bytes         int64  `json:"total_size_bytes"`
	Human         string `json:"total_size_human"`
	FileCount     int    `json:"file_count"`
	InMemoryCount int    `json:"in_memory_count"`
}

func (s *Store) Size() SizeInfo {
	info := SizeInfo{InMemoryCount: s.InMemoryCount()}

	paths, err := s.artifactPaths()
	if err != nil {
		s.log.Warn("cache scan failed", "dir", s.dir, "error", err)
		info.Human = humanize.Bytes(0)
		return info
	}
	info.FileCount = len(paths)
	for _, path := range paths {
		if st, err := os.Stat(path); err == nil {
			info.Bytes += st.Size()
		}
	}
	info.Human = humanize.Bytes(uint64(info.Bytes))
	return info
}

func (s *Store) artifactPaths() ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, ent := range ents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), artifactSuffix) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, ent.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
