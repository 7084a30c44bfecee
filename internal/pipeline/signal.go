package pipeline

import (
	"strings"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
)

// synthesizeCommitSignal attaches the correlated-activity fields to every
// ball. The signal is entirely synthetic: a freshly seeded generator (same
// match seed) modulates a baseline rate by time of day, then suppresses it on
// wickets and boundaries. It stands in for real external activity data and
// must be presented to consumers as simulated.
func synthesizeCommitSignal(tl match.Timeline, info *match.Info) {
	rng := newRand(info.MatchID)

	baseRate := baselineCommitRate(info)
	counts := make([]int, 0, len(tl))

	for i := range tl {
		e := &tl[i]

		// Daytime hours carry more activity than overnight.
		var timeMult float64
		switch hour := e.Timestamp.Hour(); {
		case hour >= 9 && hour <= 17:
			timeMult = 1.3
		case hour >= 18 && hour <= 22:
			timeMult = 1.0
		default:
			timeMult = 0.4
		}

		base := poisson(rng, baseRate*timeMult/12) // per-ball share of the rate

		impact := 1.0
		switch {
		case e.IsWicket:
			impact = uniform(rng, 0.4, 0.7) // a wicket drops activity 30-60%
		case e.Runs >= 4:
			impact = uniform(rng, 0.8, 0.95)
		}

		count := int(float64(base) * impact)
		if count < 5 {
			count = 5
		}
		counts = append(counts, count)
		e.CommitCount = count

		// Trailing 3-ball moving average.
		if len(counts) >= 3 {
			e.CommitVelocity = float64(counts[len(counts)-1]+counts[len(counts)-2]+counts[len(counts)-3]) / 3
		} else {
			e.CommitVelocity = float64(count)
		}

		if e.IsWicket {
			e.CommitDropPct = (1 - impact) * 100
		}
	}
}

// baselineCommitRate picks the base activity rate from match characteristics.
// Order matters: team draw beats event, event beats significance.
func baselineCommitRate(info *match.Info) float64 {
	switch {
	case anyTeamContains(info.Teams, "India"):
		return 180
	case strings.Contains(info.EventName, "World Cup"):
		return 200
	case info.Significance == match.SignificanceFinal:
		return 220
	default:
		return 140
	}
}
