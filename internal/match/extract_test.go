package match

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestExtract_FullRecord(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "1345678.json", `{
		"info": {
			"teams": ["India", "Australia"],
			"venue": "Wankhede Stadium",
			"dates": ["2023-11-19"],
			"match_type": "ODI",
			"event": {"name": "ICC Cricket World Cup Final"},
			"outcome": {"winner": "Australia", "by": {"wickets": 6}}
		},
		"innings": []
	}`)

	info, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if info.MatchID != "1345678" {
		t.Fatalf("MatchID=%q", info.MatchID)
	}
	if info.Significance != SignificanceFinal {
		t.Fatalf("Significance=%q, want Final", info.Significance)
	}
	if info.Outcome["winner"] != "Australia" {
		t.Fatalf("Outcome winner=%v", info.Outcome["winner"])
	}
	if !strings.HasPrefix(info.DisplayName, "India vs Australia (ODI) - 2023-11-19") {
		t.Fatalf("DisplayName=%q", info.DisplayName)
	}
	if !strings.Contains(info.DisplayName, "🏆") {
		t.Fatalf("DisplayName=%q missing final suffix", info.DisplayName)
	}
	if !strings.Contains(info.DisplayName, "@ Wankhede Stadium") {
		t.Fatalf("DisplayName=%q missing famous venue suffix", info.DisplayName)
	}
}

func TestExtract_DefaultsWhenFieldsMissing(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bare.json", `{"info": {}}`)

	info, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(info.Teams) != 2 || info.Teams[0] != "Team A" {
		t.Fatalf("Teams=%v", info.Teams)
	}
	if info.Venue != "Unknown Venue" || info.Date != "2024-01-01" || info.MatchType != "T20" {
		t.Fatalf("defaults not applied: %+v", info)
	}
	if info.EventName != "Cricket Match" {
		t.Fatalf("EventName=%q", info.EventName)
	}
	if info.Significance != SignificanceRegular {
		t.Fatalf("Significance=%q", info.Significance)
	}
	if !strings.Contains(info.DisplayName, "⚡") {
		t.Fatalf("DisplayName=%q missing T20 suffix", info.DisplayName)
	}
}

func TestExtract_EventAsString(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "str.json", `{"info": {"event": "Asia Cup 2023"}}`)

	info, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if info.EventName != "Asia Cup 2023" {
		t.Fatalf("EventName=%q", info.EventName)
	}
	if info.Significance != SignificanceMajorTournament {
		t.Fatalf("Significance=%q", info.Significance)
	}
}

func TestExtract_CorruptJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "corrupt.json", `{"info": {`)

	_, err := Extract(path)
	var exErr *ExtractError
	if !errors.As(err, &exErr) {
		t.Fatalf("err=%v, want *ExtractError", err)
	}
	if exErr.Path != path {
		t.Fatalf("Path=%q", exErr.Path)
	}
}

func TestExtract_MissingInfoSection(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "noinfo.json", `{"innings": []}`)

	_, err := Extract(path)
	var exErr *ExtractError
	if !errors.As(err, &exErr) {
		t.Fatalf("err=%v, want *ExtractError", err)
	}
}

func TestClassifySignificance_TierOrder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		event string
		want  Significance
	}{
		{"ICC World Cup Final", SignificanceFinal}, // Final outranks World Cup
		{"ICC Cricket World Cup", SignificanceWorldCup},
		{"Indian Premier League (IPL)", SignificanceMajorTournament},
		{"England ODI Series", SignificanceInternationalSeries},
		{"Friendly fixture", SignificanceRegular},
		{"CHAMPIONSHIP decider", SignificanceFinal}, // case-insensitive
	}
	for _, tc := range cases {
		if got := ClassifySignificance(tc.event); got != tc.want {
			t.Fatalf("ClassifySignificance(%q)=%q, want %q", tc.event, got, tc.want)
		}
	}
}

func TestTimeline_MemorySizeGrowsWithEvents(t *testing.T) {
	t.Parallel()

	one := Timeline{{Batter: "A", Bowler: "B", Commentary: "Dot ball."}}
	two := append(Timeline{}, one[0], one[0])
	if one.MemorySize() <= 0 {
		t.Fatalf("MemorySize=%d, want > 0", one.MemorySize())
	}
	if two.MemorySize() <= one.MemorySize() {
		t.Fatalf("MemorySize not monotone: %d vs %d", two.MemorySize(), one.MemorySize())
	}
}
