package relay

import (
	"strings"
	"time"
)

// MatchID identifies a match in the upstream feed. Treated as opaque text;
// numeric feed ids are normalized to their decimal form.
type MatchID string

// Variant names one of the CDN stream variants offered for a match.
type Variant string

const (
	VariantAdFree  Variant = "adfree"
	VariantDAI     Variant = "dai"
	VariantPrimary Variant = "primary"
	VariantAkamai  Variant = "akamai"
	VariantFastly  Variant = "fastly"
	VariantHindi   Variant = "hindi"
)

// Variants lists every known CDN variant in a stable order.
var Variants = []Variant{
	VariantAdFree,
	VariantDAI,
	VariantPrimary,
	VariantAkamai,
	VariantFastly,
	VariantHindi,
}

// StreamSet maps a variant to its playlist URL. A missing variant is valid
// and distinct from a present-but-unusable URL.
type StreamSet map[Variant]string

// Match statuses as reported by the feed. Other values pass through as-is.
const (
	StatusLive       = "LIVE"
	StatusNotStarted = "NOT_STARTED"
)

// Match is one normalized entry of the upstream feed.
type Match struct {
	ID       MatchID   `json:"id"`
	Status   string    `json:"status"`
	Category string    `json:"category,omitempty"`
	Teams    []string  `json:"teams,omitempty"`
	Variants []Variant `json:"variants"`

	// Streams is the variant-to-URL mapping. Not exposed in the API; clients
	// only see which variants exist and fetch them through the relay.
	Streams StreamSet `json:"-"`
}

// Snapshot is the full normalized match list plus derived aggregates.
// It is immutable once built and replaced wholesale on refresh, so the
// counts always agree with the match list.
type Snapshot struct {
	Matches         []Match   `json:"matches"`
	Categories      []string  `json:"categories"`
	TotalMatches    int       `json:"total_matches"`
	LiveMatches     int       `json:"live_matches"`
	UpcomingMatches int       `json:"upcoming_matches"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// feedPayload mirrors the upstream feed document.
type feedPayload struct {
	Matches []feedMatch `json:"matches"`
}

type feedMatch struct {
	MatchID  opaqueID `json:"match_id"`
	Status   string   `json:"status"`
	Category string   `json:"event_category"`
	Team1    string   `json:"team_1"`
	Team2    string   `json:"team_2"`

	AdFree string `json:"adfree_stream"`
	DAI    string `json:"dai_stream"`
	Stream string `json:"stream"`
	Akamai string `json:"akamai_stream"`
	Fastly string `json:"fastly_stream"`
	Hindi  string `json:"hindi_stream"`
}

// opaqueID accepts either a JSON number or a JSON string for match_id.
type opaqueID string

func (o *opaqueID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	s = strings.Trim(s, `"`)
	if s == "null" {
		s = ""
	}
	*o = opaqueID(s)
	return nil
}
