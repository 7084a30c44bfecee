// Package pipeline converts raw match records into flat, time-ordered
// ball-by-ball timelines with derived statistics and a synthetic
// correlated-activity signal.
//
// A single transformation is single-threaded and deterministic: the same
// match id and delivery sequence always produce a bit-identical timeline,
// on both the direct and the chunked path.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/cache"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/progress"
)

const (
	maxWicketsPerInnings = 10
	reclaimEvery         = 5 // chunked path: drop transient chunks every Nth chunk
)

type Options struct {
	Logger   *slog.Logger
	Cache    *cache.Store
	Progress *progress.Sink

	// ChunkSize is the number of overs per chunk on the chunked path.
	ChunkSize int
	// LargeFileBytes forces the chunked path for files above this size.
	LargeFileBytes int64
	// Headroom gates cache writes. Nil means always cache.
	Headroom func() bool
}

type Pipeline struct {
	log      *slog.Logger
	cache    *cache.Store
	progress *progress.Sink

	chunkSize      int
	largeFileBytes int64
	headroom       func() bool
}

func New(opts Options) (*Pipeline, error) {
	if opts.Cache == nil {
		return nil, errors.New("missing cache store")
	}
	if opts.ChunkSize < 1 {
		return nil, fmt.Errorf("invalid chunk size %d", opts.ChunkSize)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Progress
	if sink == nil {
		sink = progress.NewSink(logger, nil)
	}
	large := opts.LargeFileBytes
	if large <= 0 {
		large = 50 * 1024 * 1024
	}
	headroom := opts.Headroom
	if headroom == nil {
		headroom = func() bool { return true }
	}
	return &Pipeline{
		log:            logger,
		cache:          opts.Cache,
		progress:       sink,
		chunkSize:      opts.ChunkSize,
		largeFileBytes: large,
		headroom:       headroom,
	}, nil
}

// Process turns one source file into a timeline. info may be nil, in which
// case metadata is derived from the file. File-level failures are logged and
// yield an empty timeline; they never propagate. An empty timeline is also
// the valid result for an input with zero deliveries.
func (p *Pipeline) Process(path string, info *match.Info, allowChunking bool) match.Timeline {
	p.progress.Update("Loading match file...", 0)

	forceChunk := false
	if st, err := os.Stat(path); err == nil && st.Size() > p.largeFileBytes {
		p.log.Warn("large file detected, forcing chunked processing",
			"path", path, "size_bytes", st.Size())
		forceChunk = true
	}

	rec, err := match.ParseFile(path)
	if err != nil {
		p.log.Error("match file unusable", "path", path, "error", err)
		return match.Timeline{}
	}

	p.progress.Update("Extracting match metadata...", 20)
	if info == nil {
		mi := match.InfoFromRecord(path, rec)
		info = &mi
	}

	if !p.cache.Hydrated() {
		p.cache.LoadAll(p.progress.Update)
	}
	if p.cache.IsValid(info.MatchID, path) {
		if tl, ok := p.cache.Get(info.MatchID); ok {
			p.log.Info("using cached timeline", "match_id", info.MatchID)
			p.progress.Update("Loaded from cache", 100)
			return tl
		}
	}

	p.progress.Update("Processing match data...", 40)

	var tl match.Timeline
	if forceChunk || (allowChunking && len(rec.Innings) > 2) {
		tl = p.transformChunked(rec, info)
	} else {
		tl = p.transformDirect(rec, info)
	}
	p.postProcess(tl, info)

	p.progress.Update("Caching processed data...", 90)
	if p.headroom() {
		p.cache.Put(info.MatchID, tl)
	} else {
		p.log.Warn("memory budget exceeded, skipping cache write", "match_id", info.MatchID)
	}

	p.progress.Update("Processing complete", 100)
	return tl
}

// transformDirect parses the whole record in one pass.
func (p *Pipeline) transformDirect(rec *match.Record, info *match.Info) match.Timeline {
	rng := newRand(info.MatchID)
	clock := matchStartTime(info, rng)

	tl := make(match.Timeline, 0)
	for idx, innings := range rec.Innings {
		wickets := 0
		for overIdx, over := range innings.Overs {
			for ballIdx, d := range over.Deliveries {
				ev := extractBall(d, over.Number(overIdx), ballIdx, idx+1, clock, rng, &wickets)
				tl = append(tl, ev)
				clock = advanceClock(clock, rng)
			}
		}
	}
	return tl
}

// transformChunked partitions each innings's overs into fixed-size groups and
// transforms group by group, dropping transient structures at a fixed cadence
// to bound peak memory. Output is identical to the direct path.
func (p *Pipeline) transformChunked(rec *match.Record, info *match.Info) match.Timeline {
	p.log.Info("processing match in chunks", "match_id", info.MatchID, "chunk_size", p.chunkSize)

	rng := newRand(info.MatchID)
	clock := matchStartTime(info, rng)

	totalChunks := 0
	for _, innings := range rec.Innings {
		totalChunks += (len(innings.Overs) + p.chunkSize - 1) / p.chunkSize
	}

	tl := make(match.Timeline, 0)
	chunkNo := 0
	for idx, innings := range rec.Innings {
		wickets := 0
		for lo := 0; lo < len(innings.Overs); lo += p.chunkSize {
			hi := lo + p.chunkSize
			if hi > len(innings.Overs) {
				hi = len(innings.Overs)
			}

			chunk := make(match.Timeline, 0)
			for j, over := range innings.Overs[lo:hi] {
				for ballIdx, d := range over.Deliveries {
					ev := extractBall(d, over.Number(lo+j), ballIdx, idx+1, clock, rng, &wickets)
					chunk = append(chunk, ev)
					clock = advanceClock(clock, rng)
				}
			}
			tl = append(tl, chunk...)

			chunkNo++
			if totalChunks > 0 {
				p.progress.Update(fmt.Sprintf("Processing chunk %d/%d", chunkNo, totalChunks),
					40+float64(chunkNo)/float64(totalChunks)*40)
			}
			if chunkNo%reclaimEvery == 0 {
				runtime.GC()
			}
		}
	}
	return tl
}

// extractBall builds one timeline event, enforcing the per-innings wicket
// bound incrementally: a wicket past the tenth is demoted to a plain ball
// with its runs preserved.
func extractBall(d match.RawDelivery, overNumber, ballIdx, innings int, ts time.Time, rng *rand.Rand, wickets *int) match.BallEvent {
	// Placeholder actors are always drawn so the generator consumes the same
	// draw sequence whether or not the source names are present.
	batterDefault := fmt.Sprintf("Batter%d", rng.Intn(11)+1)
	bowlerDefault := fmt.Sprintf("Bowler%d", rng.Intn(11)+1)

	batter := d.Batter
	if batter == "" {
		batter = batterDefault
	}
	bowler := d.Bowler
	if bowler == "" {
		bowler = bowlerDefault
	}

	var wicket *match.WicketDetail
	if len(d.Wickets) > 0 && *wickets < maxWicketsPerInnings {
		w := d.Wickets[0]
		fielders := make([]string, 0, len(w.Fielders))
		for _, f := range w.Fielders {
			fielders = append(fielders, f.Name)
		}
		wicket = &match.WicketDetail{
			Kind:      w.Kind,
			PlayerOut: w.PlayerOut,
			Fielders:  fielders,
		}
		*wickets++
	}

	return match.BallEvent{
		Innings:    innings,
		Over:       overNumber + 1,
		Ball:       ballIdx + 1,
		Runs:       d.Runs.Total,
		BatterRuns: d.Runs.Batter,
		Extras:     d.Runs.Extras,
		IsWicket:   wicket != nil,
		Wicket:     wicket,
		Batter:     batter,
		Bowler:     bowler,
		Timestamp:  ts,
		Commentary: commentary(batter, bowler, d.Runs.Total, wicket),
	}
}

// advanceClock moves to the next delivery, 20-49 seconds later.
func advanceClock(ts time.Time, rng *rand.Rand) time.Time {
	return ts.Add(time.Duration(20+rng.Intn(30)) * time.Second)
}

// matchStartTime synthesizes a plausible start time from the match date and
// the participating teams' home regions.
func matchStartTime(info *match.Info, rng *rand.Rand) time.Time {
	base, err := time.Parse("2006-01-02", info.Date)
	if err != nil {
		base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	hour := 18
	switch {
	case anyTeamContains(info.Teams, "India", "Pakistan", "Sri Lanka"):
		hour = 19 // subcontinent: evening start
	case anyTeamContains(info.Teams, "Australia", "New Zealand"):
		hour = 14
	case anyTeamContains(info.Teams, "England", "South Africa"):
		hour = 16
	}
	hour += rng.Intn(3) - 1
	minute := []int{0, 15, 30, 45}[rng.Intn(4)]

	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, time.UTC)
}

func anyTeamContains(teams []string, names ...string) bool {
	for _, team := range teams {
		for _, name := range names {
			if strings.Contains(team, name) {
				return true
			}
		}
	}
	return false
}
