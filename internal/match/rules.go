package match

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type significanceTier struct {
	Significance Significance `yaml:"significance"`
	Keywords     []string     `yaml:"keywords"`
}

type ruleTable struct {
	SignificanceTiers    []significanceTier      `yaml:"significance_tiers"`
	FamousVenues         []string                `yaml:"famous_venues"`
	SignificanceSuffixes map[Significance]string `yaml:"significance_suffixes"`
	T20Suffix            string                  `yaml:"t20_suffix"`
}

var rules = mustLoadRules()

func mustLoadRules() ruleTable {
	var rt ruleTable
	if err := yaml.Unmarshal(rulesYAML, &rt); err != nil {
		panic(fmt.Sprintf("match: embedded rules.yaml is invalid: %v", err))
	}
	if len(rt.SignificanceTiers) == 0 {
		panic("match: embedded rules.yaml has no significance tiers")
	}
	return rt
}

// ClassifySignificance maps an event name onto a significance tier. The first
// tier with a case-insensitive keyword hit wins; no hit means Regular.
func ClassifySignificance(eventName string) Significance {
	lower := strings.ToLower(eventName)
	for _, tier := range rules.SignificanceTiers {
		for _, kw := range tier.Keywords {
			if strings.Contains(lower, kw) {
				return tier.Significance
			}
		}
	}
	return SignificanceRegular
}

// DisplayName builds the decorated presentation label for a match. Distinct
// files can produce the same label; it is never used as a catalog key.
func DisplayName(info Info) string {
	var b strings.Builder
	if len(info.Teams) >= 2 {
		fmt.Fprintf(&b, "%s vs %s", info.Teams[0], info.Teams[1])
	} else {
		fmt.Fprintf(&b, "Match %s", info.MatchID)
	}
	fmt.Fprintf(&b, " (%s) - %s", info.MatchType, info.Date)

	if suffix, ok := rules.SignificanceSuffixes[info.Significance]; ok {
		b.WriteString(suffix)
	} else if info.MatchType == "T20" {
		b.WriteString(rules.T20Suffix)
	}

	for _, venue := range rules.FamousVenues {
		if strings.Contains(info.Venue, venue) {
			fmt.Fprintf(&b, " @ %s", info.Venue)
			break
		}
	}
	return b.String()
}
