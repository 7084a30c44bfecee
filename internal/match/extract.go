package match

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults used when the source record omits fields. Input files come from
// many independent authors; schema drift is tolerated, not rejected.
var (
	defaultTeams = []string{"Team A", "Team B"}
)

const (
	defaultVenue     = "Unknown Venue"
	defaultDate      = "2024-01-01"
	defaultMatchType = "T20"
	defaultEventName = "Cricket Match"
)

// ExtractError is the typed failure returned when a source file cannot be
// turned into match metadata. Callers log and skip; it never propagates as a
// hard failure past the discovery or pipeline boundary.
type ExtractError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Record is the parsed shape of one source match file: a header section and
// the nested innings -> overs -> deliveries structure.
type Record struct {
	Info    *InfoSection `json:"info"`
	Innings []RawInnings `json:"innings"`
}

// InfoSection is the header of a source file. Every field is optional.
type InfoSection struct {
	Teams     []string        `json:"teams"`
	Venue     string          `json:"venue"`
	Dates     []string        `json:"dates"`
	MatchType string          `json:"match_type"`
	Event     json.RawMessage `json:"event"`
	Outcome   map[string]any  `json:"outcome"`
}

type RawInnings struct {
	Team  string    `json:"team"`
	Overs []RawOver `json:"overs"`
}

type RawOver struct {
	Over       *int          `json:"over"`
	Deliveries []RawDelivery `json:"deliveries"`
}

// Number returns the over's declared number, falling back to its position in
// the innings when the source omits the field. Without the fallback, overs
// from sparse sources would all collapse onto over 0.
func (o RawOver) Number(position int) int {
	if o.Over != nil {
		return *o.Over
	}
	return position
}

type RawDelivery struct {
	Batter  string      `json:"batter"`
	Bowler  string      `json:"bowler"`
	Runs    RawRuns     `json:"runs"`
	Wickets []RawWicket `json:"wickets"`
}

type RawRuns struct {
	Batter int `json:"batter"`
	Extras int `json:"extras"`
	Total  int `json:"total"`
}

type RawWicket struct {
	Kind      string       `json:"kind"`
	PlayerOut string       `json:"player_out"`
	Fielders  []RawFielder `json:"fielders"`
}

type RawFielder struct {
	Name string `json:"name"`
}

// IDFromPath derives the stable match id from the source file name.
func IDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ParseFile reads and decodes one source match file.
func ParseFile(path string) (*Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractError{Path: path, Reason: "read failed", Err: err}
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, &ExtractError{Path: path, Reason: "not a valid match record", Err: err}
	}
	if rec.Info == nil {
		return nil, &ExtractError{Path: path, Reason: "missing info section"}
	}
	return &rec, nil
}

// Extract parses one source file into match metadata. Pure apart from the
// single file read; safe to call concurrently on distinct files.
func Extract(path string) (Info, error) {
	rec, err := ParseFile(path)
	if err != nil {
		return Info{}, err
	}
	return InfoFromRecord(path, rec), nil
}

// InfoFromRecord builds metadata from an already parsed record, defaulting
// absent fields. Used by the pipeline to avoid re-reading the file.
func InfoFromRecord(path string, rec *Record) Info {
	src := rec.Info
	if src == nil {
		src = &InfoSection{}
	}

	teams := src.Teams
	if len(teams) == 0 {
		teams = append([]string(nil), defaultTeams...)
	}
	venue := src.Venue
	if venue == "" {
		venue = defaultVenue
	}
	date := defaultDate
	if len(src.Dates) > 0 && src.Dates[0] != "" {
		date = src.Dates[0]
	}
	matchType := src.MatchType
	if matchType == "" {
		matchType = defaultMatchType
	}

	info := Info{
		MatchID:   IDFromPath(path),
		Teams:     teams,
		Venue:     venue,
		Date:      date,
		MatchType: matchType,
		EventName: eventName(src.Event),
		Outcome:   src.Outcome,
		FilePath:  path,
	}
	info.Significance = ClassifySignificance(info.EventName)
	info.DisplayName = DisplayName(info)
	return info
}

// eventName tolerates both event shapes seen in the wild: an object with a
// "name" field, or a bare string.
func eventName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return defaultEventName
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		return obj.Name
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return defaultEventName
}
