package pipeline

import (
	"math"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
)

// postProcess computes the derived and correlate fields in place. It applies
// identically after the direct and the chunked transform.
func (p *Pipeline) postProcess(tl match.Timeline, info *match.Info) {
	if len(tl) == 0 {
		return
	}

	start := tl[0].Timestamp
	cumRuns := make(map[int]int)
	ballsFaced := make(map[int]int)
	overRuns := make(map[[2]int]int)

	for i := range tl {
		e := &tl[i]
		e.MatchMinute = e.Timestamp.Sub(start).Minutes()

		cumRuns[e.Innings] += e.Runs
		ballsFaced[e.Innings]++
		e.CumulativeRuns = cumRuns[e.Innings]
		e.RunRate = round2(float64(e.CumulativeRuns) / float64(ballsFaced[e.Innings]) * 6)

		overRuns[[2]int{e.Innings, e.Over}] += e.Runs
	}

	// Per-over totals broadcast to every ball of the over.
	for i := range tl {
		tl[i].RunsPerOver = overRuns[[2]int{tl[i].Innings, tl[i].Over}]
	}

	synthesizeCommitSignal(tl, info)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
