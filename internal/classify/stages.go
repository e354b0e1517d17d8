// Package classify implements the market acceptance cascade: liveness,
// recency, category and sport matching, NFL week matching, past-game
// exclusion, prop detection, price validity and the optional volume floor.
// Each rule is a named Stage so callers can compose per-view pipelines and
// count rejections by stage.
package classify

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// Stage is one named acceptance predicate. Keep may annotate the market
// (e.g. SportsWeek) before returning.
type Stage struct {
	Name string
	Keep func(m *domain.Market) bool
}

// Pipeline is an ordered cascade of stages; a market must survive every
// stage to be kept.
type Pipeline []Stage

// Apply filters markets in place order. onReject, when non-nil, is called
// with the name of the stage that rejected each dropped market.
func (p Pipeline) Apply(markets []domain.Market, onReject func(stage string)) []domain.Market {
	out := make([]domain.Market, 0, len(markets))
next:
	for i := range markets {
		m := markets[i]
		for _, s := range p {
			if !s.Keep(&m) {
				if onReject != nil {
					onReject(s.Name)
				}
				continue next
			}
		}
		out = append(out, m)
	}
	return out
}

// Names lists the stage names in order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name
	}
	return names
}

// Liveness rejects closed or inactive markets.
func Liveness() Stage {
	return Stage{Name: "liveness", Keep: func(m *domain.Market) bool {
		return !m.Closed && m.Active
	}}
}

const (
	endGrace   = 24 * time.Hour
	maxAge     = 365 * 24 * time.Hour
	yearFormat = `\b(19|20)\d{2}\b`
)

var yearPattern = regexp.MustCompile(yearFormat)

// Recency rejects markets whose end date passed more than a day ago, whose
// creation date is over a year old, or whose title names only past years.
func Recency(now func() time.Time) Stage {
	return Stage{Name: "recency", Keep: func(m *domain.Market) bool {
		t := now()
		for _, end := range []*time.Time{m.EndDate, m.EventEndDate} {
			if end != nil && end.Before(t.Add(-endGrace)) {
				return false
			}
		}
		if c := m.Created(); c != nil && c.Before(t.Add(-maxAge)) {
			return false
		}
		if y, ok := maxYear(m.Question + " " + m.EventTitle); ok && y < t.Year() {
			return false
		}
		return true
	}}
}

func maxYear(text string) (int, bool) {
	best, found := 0, false
	for _, tok := range yearPattern.FindAllString(text, -1) {
		if y, err := strconv.Atoi(tok); err == nil && y > best {
			best, found = y, true
		}
	}
	return best, found
}

// TagMatch accepts markets whose event carries any of the given tag IDs and
// labels them with category.
func TagMatch(category string, tagIDs ...int) Stage {
	return Stage{Name: "tag", Keep: func(m *domain.Market) bool {
		if len(tagIDs) == 0 || !m.HasTagID(tagIDs...) {
			return false
		}
		if m.Category == "" {
			m.Category = category
		}
		return true
	}}
}

// NFLContent applies the NFL text gate.
func NFLContent() Stage {
	return Stage{Name: "nfl_content", Keep: func(m *domain.Market) bool {
		if !IsNFL(m).NFL {
			return false
		}
		m.Category = domain.KindNFL
		return true
	}}
}

// WeekRule configures WeekMatch.
type WeekRule struct {
	// Target is the requested week; zero selects the current week.
	Target int
	// Tolerance is how far an extracted week may be from Target.
	Tolerance int
	// WindowSlack widens the date-window fallback on both sides.
	WindowSlack time.Duration
}

// Strict and Broad are the two NFL week rules: the broad rule is used when
// the strict pass yields nothing.
var (
	StrictWeek = WeekRule{Tolerance: 2}
	BroadWeek  = WeekRule{Tolerance: 4, WindowSlack: 7 * 24 * time.Hour}
)

// WeekMatch keeps markets whose extracted week is within tolerance of the
// target. Markets without a week token fall back to whether their start
// time lies in the target week's 7-day window.
func WeekMatch(rule WeekRule, now func() time.Time) Stage {
	return Stage{Name: "week", Keep: func(m *domain.Market) bool {
		t := now()
		target := rule.Target
		if target == 0 {
			target = WeekAt(t)
		}

		if w, ok := MarketWeek(m); ok {
			if abs(w-target) > rule.Tolerance {
				return false
			}
			m.SportsWeek = w
			return true
		}

		start := m.StartTime()
		if start == nil {
			return false
		}
		from, to := WeekWindow(target, t)
		from, to = from.Add(-rule.WindowSlack), to.Add(rule.WindowSlack)
		if start.Before(from) || !start.Before(to) {
			return false
		}
		m.SportsWeek = WeekAt(*start)
		return true
	}}
}

// Past-game grace windows for the strict and broad NFL paths.
const (
	StrictGrace = 2 * time.Hour
	BroadGrace  = 3 * time.Hour
)

// NotPast rejects markets whose start is more than grace in the past. A
// game that kicked off recently is still tradable.
func NotPast(grace time.Duration, now func() time.Time) Stage {
	return Stage{Name: "past_game", Keep: func(m *domain.Market) bool {
		start := m.StartTime()
		return start == nil || !start.Before(now().Add(-grace))
	}}
}

// Games keeps core game markets; Props keeps the complement.
func Games() Stage {
	return Stage{Name: "prop", Keep: func(m *domain.Market) bool {
		return !IsProp(m).Prop
	}}
}

// Props keeps only markets classified as props.
func Props() Stage {
	return Stage{Name: "game", Keep: func(m *domain.Market) bool {
		return IsProp(m).Prop
	}}
}

// PriceValidity rejects markets without a live quote: every price must lie
// in [0,1] and at least one strictly inside (0,1).
func PriceValidity() Stage {
	return Stage{Name: "price", Keep: func(m *domain.Market) bool {
		return ValidPrices(m.Outcomes, m.OutcomePrices)
	}}
}

// ValidPrices reports whether outcomes and prices form a live quote.
func ValidPrices(outcomes []string, prices []float64) bool {
	if len(prices) == 0 || len(outcomes) != len(prices) {
		return false
	}
	live := false
	for _, p := range prices {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return false
		}
		if p > 0 && p < 1 {
			live = true
		}
	}
	return live
}

// MinVolume rejects markets below floor. A nil floor admits everything.
func MinVolume(floor *float64) Stage {
	return Stage{Name: "min_volume", Keep: func(m *domain.Market) bool {
		return floor == nil || m.Volume >= *floor
	}}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
