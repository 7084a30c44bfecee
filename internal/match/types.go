// Package match holds the data model for discovered matches and processed
// ball-by-ball timelines, plus the per-file metadata extractor.
package match

import "time"

// Significance is a coarse classification of a match's importance, derived
// from the event name. Ordered most specific first.
type Significance string

const (
	SignificanceFinal               Significance = "Final"
	SignificanceWorldCup            Significance = "World Cup"
	SignificanceMajorTournament     Significance = "Major Tournament"
	SignificanceInternationalSeries Significance = "International Series"
	SignificanceRegular             Significance = "Regular"
)

// Info is identity and descriptive metadata for one match. Created once per
// discovery pass; never mutated, only superseded on rediscovery.
type Info struct {
	// MatchID is derived from the source file name and is the primary key
	// for the catalog and the cache.
	MatchID string `json:"match_id"`

	Teams     []string `json:"teams"`
	Venue     string   `json:"venue"`
	Date      string   `json:"date"`
	MatchType string   `json:"match_type"`
	EventName string   `json:"event_name"`

	Significance Significance `json:"significance"`

	// Outcome is passed through opaquely from the source record
	// (winner, margin, method, ...).
	Outcome map[string]any `json:"outcome,omitempty"`

	// FilePath links back to the source file. Immutable once created.
	FilePath string `json:"file_path"`

	// DisplayName is a decorated presentation label. It is NOT unique across
	// files; the catalog is keyed by MatchID.
	DisplayName string `json:"display_name"`
}

// WicketDetail is the structured dismissal record attached to a wicket ball.
type WicketDetail struct {
	Kind      string   `json:"kind"`
	PlayerOut string   `json:"player_out"`
	Fielders  []string `json:"fielders,omitempty"`
}

// BallEvent is one delivery on the flat timeline. Identity and outcome fields
// come from the source record; derived and correlate fields are computed by
// the transformation pipeline.
type BallEvent struct {
	Innings int `json:"innings"`
	Over    int `json:"over"`
	Ball    int `json:"ball"`

	Runs       int           `json:"runs"`
	BatterRuns int           `json:"batter_runs"`
	Extras     int           `json:"extras"`
	IsWicket   bool          `json:"is_wicket"`
	Wicket     *WicketDetail `json:"wicket,omitempty"`

	Batter string `json:"batter"`
	Bowler string `json:"bowler"`

	// Derived fields.
	Timestamp      time.Time `json:"timestamp_utc"`
	MatchMinute    float64   `json:"match_minute"`
	CumulativeRuns int       `json:"cumulative_runs"`
	RunRate        float64   `json:"run_rate"`
	RunsPerOver    int       `json:"runs_per_over"`
	Commentary     string    `json:"commentary_text"`

	// Correlate fields. These are a deterministically seeded synthetic
	// signal, not measured real-world data.
	CommitCount    int     `json:"commit_count"`
	CommitVelocity float64 `json:"commit_velocity"`
	CommitDropPct  float64 `json:"commit_drop_percentage"`
}

// Timeline is the ordered ball-by-ball sequence for one match. Strictly
// increasing in (innings, over, ball) and non-decreasing in timestamp.
type Timeline []BallEvent

// WicketsByInnings counts wicket events per innings.
func (t Timeline) WicketsByInnings() map[int]int {
	out := make(map[int]int)
	for _, e := range t {
		if e.IsWicket {
			out[e.Innings]++
		}
	}
	return out
}

// TotalRuns sums runs across the whole timeline.
func (t Timeline) TotalRuns() int {
	var sum int
	for _, e := range t {
		sum += e.Runs
	}
	return sum
}

const ballEventFixedSize = 192 // struct fields excluding string/pointer payloads

// MemorySize is the realized in-memory byte cost of the timeline, used for
// cache budget accounting. It counts string payloads and dismissal records,
// never a speculative or compressed size.
func (t Timeline) MemorySize() int64 {
	size := int64(len(t)) * ballEventFixedSize
	for _, e := range t {
		size += int64(len(e.Batter) + len(e.Bowler) + len(e.Commentary))
		if e.Wicket != nil {
			size += int64(len(e.Wicket.Kind) + len(e.Wicket.PlayerOut))
			for _, f := range e.Wicket.Fielders {
				size += int64(len(f) + 16)
			}
			size += 64
		}
	}
	return size
}
