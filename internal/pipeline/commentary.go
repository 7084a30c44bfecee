package pipeline

import (
	"fmt"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
)

// commentary synthesizes a human-readable description of one delivery from a
// small rule table keyed by dismissal kind and run value.
func commentary(batter, bowler string, runs int, wicket *match.WicketDetail) string {
	if wicket != nil {
		playerOut := wicket.PlayerOut
		if playerOut == "" {
			playerOut = batter
		}
		switch wicket.Kind {
		case "caught":
			if len(wicket.Fielders) > 0 && wicket.Fielders[0] != "" {
				return fmt.Sprintf("WICKET! %s caught by %s off %s", playerOut, wicket.Fielders[0], bowler)
			}
			return fmt.Sprintf("WICKET! %s caught off %s", playerOut, bowler)
		case "bowled":
			return fmt.Sprintf("BOWLED! %s crashes through %s's defenses", bowler, playerOut)
		case "lbw":
			return fmt.Sprintf("LBW! %s trapped in front by %s", playerOut, bowler)
		case "run out":
			return fmt.Sprintf("RUN OUT! %s caught short of the crease", playerOut)
		case "stumped":
			return fmt.Sprintf("STUMPED! %s beaten by the keeper", playerOut)
		default:
			kind := wicket.Kind
			if kind == "" {
				kind = "out"
			}
			return fmt.Sprintf("WICKET! %s %s off %s", playerOut, kind, bowler)
		}
	}

	switch {
	case runs == 6:
		return fmt.Sprintf("SIX! %s launches %s into the stands!", batter, bowler)
	case runs == 4:
		return fmt.Sprintf("FOUR! Brilliant shot by %s off %s", batter, bowler)
	case runs == 0:
		return fmt.Sprintf("Dot ball. %s beats %s", bowler, batter)
	default:
		return fmt.Sprintf("%s works %s for %d run(s)", batter, bowler, runs)
	}
}
