// Package discovery scans a data directory for match files and extracts
// per-match metadata. File enumeration is sorted so results are deterministic
// regardless of readdir order or worker scheduling.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/progress"
)

const (
	// DefaultMaxMatches bounds a discovery pass when the caller does not.
	DefaultMaxMatches = 50

	// Below this many candidate files the fan-out overhead is not worth it.
	parallelThreshold = 10
)

type Options struct {
	Logger   *slog.Logger
	Progress *progress.Sink

	// MaxWorkers caps the extraction fan-out. Values below 2 force the
	// sequential path.
	MaxWorkers int
}

type Scanner struct {
	log        *slog.Logger
	progress   *progress.Sink
	maxWorkers int

	// Concurrent lazy callers collapse onto one scan per directory.
	group singleflight.Group

	mu     sync.Mutex
	cached map[string]map[string]match.Info
}

func NewScanner(opts Options) *Scanner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Progress
	if sink == nil {
		sink = progress.NewSink(logger, nil)
	}
	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		log:        logger,
		progress:   sink,
		maxWorkers: workers,
		cached:     make(map[string]map[string]match.Info),
	}
}

// Discover scans dir for match files and returns metadata keyed by match id.
// Files that cannot be parsed are logged and skipped; they never fail the
// pass. With lazy set, a previous result for the same directory is reused
// and concurrent first scans are collapsed into one.
func (s *Scanner) Discover(ctx context.Context, dir string, maxMatches int, lazy bool) (map[string]match.Info, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("missing data directory")
	}
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}

	if lazy {
		s.mu.Lock()
		prev, ok := s.cached[dir]
		s.mu.Unlock()
		if ok {
			return cloneResult(prev), nil
		}
	}

	v, err, _ := s.group.Do(dir, func() (any, error) {
		return s.scan(ctx, dir, maxMatches)
	})
	if err != nil {
		return nil, err
	}
	result := v.(map[string]match.Info)

	s.mu.Lock()
	s.cached[dir] = result
	s.mu.Unlock()

	return cloneResult(result), nil
}

// Forget drops the memoized result for dir so the next lazy call rescans.
func (s *Scanner) Forget(dir string) {
	s.mu.Lock()
	delete(s.cached, strings.TrimSpace(dir))
	s.mu.Unlock()
}

func (s *Scanner) scan(ctx context.Context, dir string, maxMatches int) (map[string]match.Info, error) {
	s.progress.Update("Scanning for match files...", 0)

	paths, err := listMatchFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) > maxMatches {
		s.log.Info("limiting discovery pass", "found", len(paths), "max", maxMatches)
		paths = paths[:maxMatches]
	}
	s.progress.Update(fmt.Sprintf("Found %d match files", len(paths)), 10)

	var (
		result  map[string]match.Info
		scanErr error
	)
	if len(paths) > parallelThreshold && s.maxWorkers > 1 {
		result, scanErr = s.extractParallel(ctx, paths)
	} else {
		result, scanErr = s.extractSequential(ctx, paths)
	}
	if scanErr != nil {
		return nil, scanErr
	}

	s.progress.Update(fmt.Sprintf("Discovered %d matches", len(result)), 100)
	return result, nil
}

func (s *Scanner) extractSequential(ctx context.Context, paths []string) (map[string]match.Info, error) {
	out := make(map[string]match.Info, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := match.Extract(path)
		if err != nil {
			s.log.Warn("skipping unreadable match file", "path", path, "error", err)
		} else {
			out[info.MatchID] = info
		}
		s.progress.Update(fmt.Sprintf("Processing file %d/%d", i+1, len(paths)),
			10+float64(i+1)/float64(len(paths))*80)
	}
	return out, nil
}

func (s *Scanner) extractParallel(ctx context.Context, paths []string) (map[string]match.Info, error) {
	workers := s.maxWorkers
	if n := runtime.GOMAXPROCS(0); workers > n {
		workers = n
	}
	s.log.Info("extracting metadata in parallel", "files", len(paths), "workers", workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu   sync.Mutex
		out  = make(map[string]match.Info, len(paths))
		done atomic.Int64
	)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := match.Extract(path)
			if err != nil {
				s.log.Warn("skipping unreadable match file", "path", path, "error", err)
			} else {
				mu.Lock()
				out[info.MatchID] = info
				mu.Unlock()
			}
			n := done.Add(1)
			s.progress.Update(fmt.Sprintf("Processing file %d/%d", n, len(paths)),
				10+float64(n)/float64(len(paths))*80)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// listMatchFiles returns the sorted *.json files directly under dir.
func listMatchFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	paths := make([]string, 0, len(ents))
	for _, ent := range ents {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func cloneResult(in map[string]match.Info) map[string]match.Info {
	out := make(map[string]match.Info, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
