package polymarket

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string. Set records
// whether the field was present at all.
type flexBool struct {
	Value bool
	Set   bool
}

func (f *flexBool) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool{Value: b, Set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Unknown shapes are treated as absent rather than failing the
		// whole payload.
		return nil
	}
	*f = flexBool{Value: strings.EqualFold(s, "true") || s == "1", Set: true}
	return nil
}

// flexFloat accepts a JSON number or a numeric string. Anything unparseable,
// NaN or infinite decodes to zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat(ParseFloat(string(bytes.Trim(data, `"`))))
	return nil
}

// flexString accepts a JSON string or number, e.g. IDs that Gamma sends
// either way.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

// ParseFloat coerces s to a finite float, returning 0 on any failure.
func ParseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APITag is a tag as returned by /tags and embedded in events.
type APITag struct {
	ID    flexString `json:"id"`
	Label string     `json:"label"`
	Slug  string     `json:"slug"`
}

// APIEvent represents an event as returned by the Polymarket Gamma API.
// An event groups one or more related markets.
type APIEvent struct {
	ID           flexString  `json:"id"`
	Ticker       string      `json:"ticker"`
	Title        string      `json:"title"`
	Slug         string      `json:"slug"`
	Description  string      `json:"description"`
	Image        string      `json:"image"`
	Icon         string      `json:"icon"`
	Active       flexBool    `json:"active"`
	Closed       flexBool    `json:"closed"`
	Volume       flexFloat   `json:"volume"`
	Volume24hr   flexFloat   `json:"volume24hr"`
	Liquidity    flexFloat   `json:"liquidity"`
	StartDate    string      `json:"startDate"`
	EndDate      string      `json:"endDate"`
	CreationDate string      `json:"creationDate"`
	CreatedAt    string      `json:"createdAt"`
	Tags         []APITag    `json:"tags"`
	Markets      []APIMarket `json:"markets"`
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Field spellings vary between endpoints and over time, so several
// alternates are captured and coalesced by the caller.
type APIMarket struct {
	ID             flexString `json:"id"`
	ConditionID    string     `json:"conditionId"`
	ConditionIDAlt string     `json:"condition_id"`
	Question       string     `json:"question"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description"`
	Image          string     `json:"image"`
	Icon           string     `json:"icon"`

	// Either a JSON-encoded string ("[\"Yes\",\"No\"]"), a comma-separated
	// string, or a real array.
	Outcomes      json.RawMessage `json:"outcomes"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`

	Volume       flexFloat `json:"volume"`
	VolumeNum    flexFloat `json:"volumeNum"`
	Volume24hr   flexFloat `json:"volume24hr"`
	Volume24h    flexFloat `json:"volume24h"`
	Volume1wk    flexFloat `json:"volume1wk"`
	Liquidity    flexFloat `json:"liquidity"`
	LiquidityNum flexFloat `json:"liquidityNum"`

	Active   flexBool `json:"active"`
	Closed   flexBool `json:"closed"`
	Resolved flexBool `json:"resolved"`

	EndDate          string `json:"endDate"`
	EndDateISO       string `json:"endDateIso"`
	EndDateISOSnake  string `json:"end_date_iso"`
	EndDateSnake     string `json:"end_date"`
	CreatedAt        string `json:"createdAt"`
	CreatedAtSnake   string `json:"created_at"`
	CreationDate     string `json:"creationDate"`
	StartDate        string `json:"startDate"`
	StartDateSnake   string `json:"start_date"`
	GameStartTime    string `json:"gameStartTime"`
	GameStartTimeAlt string `json:"game_start_time"`

	Tags   []APITag   `json:"tags"`
	Events []APIEvent `json:"events"`
}

// APISport is one row of /sports.
type APISport struct {
	Sport  string `json:"sport"`
	Image  string `json:"image"`
	Series string `json:"series"`
	// Tags is a comma-separated list of tag IDs.
	Tags string `json:"tags"`
}

// TagIDs parses the sport's comma-separated tag list.
func (s *APISport) TagIDs() []int {
	var out []int
	for _, part := range strings.Split(s.Tags, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}
