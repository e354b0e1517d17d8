package classify

import (
	"testing"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr(t time.Time) *time.Time { return &t }

func TestExtractWeek(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"Chiefs vs Bills Week 5", 5, true},
		{"nfl-week-12-kc-buf", 12, true},
		{"W3 preview: Lions @ Bears", 3, true},
		{"week5 slate", 5, true},
		{"Week 19", 0, false},
		{"week 0", 0, false},
		{"Best week ever", 0, false},
		{"Chiefs vs Bills", 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractWeek(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractWeek(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMarketWeekFromTag(t *testing.T) {
	m := &domain.Market{
		Question:  "Chiefs vs. Bills",
		EventTags: []domain.Tag{{ID: "1", Label: "Sports"}, {ID: "9", Label: "Week 7", Slug: "week-7"}},
	}
	if w, ok := MarketWeek(m); !ok || w != 7 {
		t.Fatalf("MarketWeek = %d, %v; want 7, true", w, ok)
	}
}

func TestSeasonStart(t *testing.T) {
	tests := []struct {
		at   time.Time
		want time.Time
	}{
		// Sept 1 2025 is a Monday; first Thursday is the 4th, clamped to 5.
		{time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)},
		// Sept 1 2023 is a Friday; first Thursday is the 7th.
		{time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 9, 7, 0, 0, 0, 0, time.UTC)},
		// January belongs to the previous season.
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)},
		// After the playoffs the upcoming season takes over.
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := SeasonStart(tt.at); !got.Equal(tt.want) {
			t.Errorf("SeasonStart(%s) = %s, want %s", tt.at, got, tt.want)
		}
	}
}

func TestWeekAt(t *testing.T) {
	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2025, 9, 5, 1, 0, 0, 0, time.UTC), 1},
		{time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC), 5},
		{time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), domain.MaxWeek},
		// Offseason counts toward the upcoming season.
		{time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC), 2},
	}
	for _, tt := range tests {
		if got := WeekAt(tt.at); got != tt.want {
			t.Errorf("WeekAt(%s) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

func TestIsNFL(t *testing.T) {
	tests := []struct {
		name string
		m    domain.Market
		want bool
	}{
		{"team names", domain.Market{Question: "Chiefs vs. Bills"}, true},
		{"nfl token", domain.Market{Question: "Who wins?", EventTitle: "NFL Sunday"}, true},
		{"city", domain.Market{Question: "Green Bay at Detroit"}, true},
		{"slug abbreviation", domain.Market{Question: "Who wins?", Slug: "kc-buf-2025-10-05"}, true},
		{"ambiguous abbreviation only", domain.Market{Question: "Who wins?", Slug: "no-la-rematch"}, false},
		{"esports overrides team", domain.Market{Question: "Chiefs Esports Club vs Team Liquid"}, false},
		{"esports with nfl token", domain.Market{Question: "NFL players in LoL showmatch"}, false},
		{"other sport", domain.Market{Question: "Lakers vs. Celtics"}, false},
		{"other sport sharing a city", domain.Market{Question: "Dallas Mavericks vs Denver Nuggets"}, false},
		{"college football", domain.Market{Question: "Chicago State vs Detroit Mercy", Slug: "ncaaf-chi-det"}, false},
		{"hockey nickname", domain.Market{Question: "Jets vs. Wild"}, false},
		{"hockey nickname sharing a city", domain.Market{Question: "Stars vs. Panthers"}, false},
		{"rangers", domain.Market{Question: "Rangers vs. Jets"}, false},
		{"blue jackets", domain.Market{Question: "Blue Jackets vs Lightning", Slug: "car-cbj"}, false},
		{"jazz", domain.Market{Question: "Jazz at Denver"}, false},
		{"wild card round", domain.Market{Question: "Chiefs vs. Bills", EventTitle: "NFL Wild Card Round"}, true},
		{"wild-card slug", domain.Market{Question: "Who wins?", Slug: "nfl-wild-card-kc-buf"}, true},
		{"unrelated", domain.Market{Question: "Will the Fed cut rates?"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNFL(&tt.m); got.NFL != tt.want {
				t.Errorf("IsNFL = %+v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsProp(t *testing.T) {
	tests := []struct {
		q    string
		want bool
	}{
		{"Chiefs vs. Bills", false},
		{"Spread: Chiefs (-3.5)", false},
		{"Chiefs vs. Bills: O/U 47.5", false},
		{"Lions @ Bears", false},
		{"Will Patrick Mahomes win MVP?", true},
		{"Who will be the 2025 passing yards leader?", true},
		{"Will the Chiefs win the Super Bowl?", true},
		{"AFC Champion Game: Chiefs vs Bills", false},
		{"Will Taylor Swift attend the game?", true},
		{"Travis Kelce anytime touchdown", true},
	}
	for _, tt := range tests {
		m := domain.Market{Question: tt.q}
		if got := IsProp(&m); got.Prop != tt.want {
			t.Errorf("IsProp(%q) = %+v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestValidPrices(t *testing.T) {
	yesNo := []string{"Yes", "No"}
	tests := []struct {
		name     string
		outcomes []string
		prices   []float64
		want     bool
	}{
		{"live", yesNo, []float64{0.55, 0.45}, true},
		{"resolved", yesNo, []float64{0, 1}, false},
		{"out of range", yesNo, []float64{1.2, 0.3}, false},
		{"empty", nil, nil, false},
		{"length mismatch", yesNo, []float64{0.5}, false},
	}
	for _, tt := range tests {
		if got := ValidPrices(tt.outcomes, tt.prices); got != tt.want {
			t.Errorf("%s: ValidPrices = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRecency(t *testing.T) {
	now := time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)
	stage := Recency(fixedClock(now))

	tests := []struct {
		name string
		m    domain.Market
		want bool
	}{
		{"no dates", domain.Market{Question: "Will X happen?"}, true},
		{"ended yesterday afternoon", domain.Market{EndDate: ptr(now.Add(-20 * time.Hour))}, true},
		{"ended two days ago", domain.Market{EndDate: ptr(now.Add(-48 * time.Hour))}, false},
		{"event ended long ago", domain.Market{EventEndDate: ptr(now.AddDate(0, -2, 0))}, false},
		{"created two years ago", domain.Market{CreatedAt: ptr(now.AddDate(-2, 0, 0))}, false},
		{"past year in title", domain.Market{Question: "Will BTC hit 100k in 2024?"}, false},
		{"current year in title", domain.Market{Question: "Who wins the 2024-2025 title in 2025?"}, true},
	}
	for _, tt := range tests {
		if got := stage.Keep(&tt.m); got != tt.want {
			t.Errorf("%s: Keep = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTagMatchComparesNumerically(t *testing.T) {
	stage := TagMatch("politics", 2)
	m := domain.Market{EventTags: []domain.Tag{{ID: " 2"}}}
	if !stage.Keep(&m) || m.Category != "politics" {
		t.Fatalf("Keep = false or category %q", m.Category)
	}
	other := domain.Market{EventTags: []domain.Tag{{ID: "21"}}}
	if stage.Keep(&other) {
		t.Fatal("tag 21 matched politics")
	}
}

func TestWeekMatch(t *testing.T) {
	now := time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)
	clock := fixedClock(now)

	strict := StrictWeek
	strict.Target = 5
	broad := BroadWeek
	broad.Target = 5

	tests := []struct {
		name       string
		m          domain.Market
		wantStrict bool
		wantBroad  bool
		wantWeek   int
	}{
		{"title week", domain.Market{Question: "Chiefs vs Bills Week 5"}, true, true, 5},
		{"within tolerance", domain.Market{Question: "Chiefs vs Bills Week 7"}, true, true, 7},
		{"broad only", domain.Market{Question: "Chiefs vs Bills Week 9"}, false, true, 9},
		{"date window", domain.Market{Question: "Chiefs vs Bills", GameStartTime: ptr(time.Date(2025, 10, 6, 0, 15, 0, 0, time.UTC))}, true, true, 5},
		{"outside window", domain.Market{Question: "Chiefs vs Bills", GameStartTime: ptr(time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC))}, false, false, 0},
		{"no signal", domain.Market{Question: "Chiefs vs Bills"}, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.m
			if got := WeekMatch(strict, clock).Keep(&m); got != tt.wantStrict {
				t.Errorf("strict = %v, want %v", got, tt.wantStrict)
			}
			m = tt.m
			if got := WeekMatch(broad, clock).Keep(&m); got != tt.wantBroad {
				t.Errorf("broad = %v, want %v", got, tt.wantBroad)
			}
			if tt.wantBroad && m.SportsWeek != tt.wantWeek {
				t.Errorf("SportsWeek = %d, want %d", m.SportsWeek, tt.wantWeek)
			}
		})
	}
}

func TestWeekMatchOffseason(t *testing.T) {
	clock := fixedClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	explicit := StrictWeek
	explicit.Target = 3

	tests := []struct {
		name       string
		rule       WeekRule
		m          domain.Market
		wantStrict bool
		wantWeek   int
	}{
		{"week 1 title", StrictWeek, domain.Market{Question: "Chiefs vs. Bills Week 1"}, true, 1},
		{"opening kickoff", StrictWeek, domain.Market{Question: "Chiefs vs. Bills", GameStartTime: ptr(time.Date(2026, 9, 10, 0, 20, 0, 0, time.UTC))}, true, 1},
		{"last season week 18", StrictWeek, domain.Market{Question: "Chiefs vs. Bills Week 18"}, false, 0},
		{"explicit week upcoming season", explicit, domain.Market{Question: "Chiefs vs. Bills", GameStartTime: ptr(time.Date(2026, 9, 20, 17, 0, 0, 0, time.UTC))}, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.m
			if got := WeekMatch(tt.rule, clock).Keep(&m); got != tt.wantStrict {
				t.Fatalf("keep = %v, want %v", got, tt.wantStrict)
			}
			if tt.wantStrict && m.SportsWeek != tt.wantWeek {
				t.Errorf("SportsWeek = %d, want %d", m.SportsWeek, tt.wantWeek)
			}
			broad := BroadWeek
			broad.Target = tt.rule.Target
			m = tt.m
			if got := WeekMatch(broad, clock).Keep(&m); got != tt.wantStrict {
				t.Errorf("broad keep = %v, want %v", got, tt.wantStrict)
			}
		})
	}
}

func TestNotPast(t *testing.T) {
	now := time.Date(2025, 10, 5, 20, 0, 0, 0, time.UTC)
	clock := fixedClock(now)
	recent := domain.Market{GameStartTime: ptr(now.Add(-90 * time.Minute))}
	older := domain.Market{GameStartTime: ptr(now.Add(-150 * time.Minute))}

	if !NotPast(StrictGrace, clock).Keep(&recent) {
		t.Error("in-progress game rejected")
	}
	if NotPast(StrictGrace, clock).Keep(&older) {
		t.Error("finished game kept on strict path")
	}
	if !NotPast(BroadGrace, clock).Keep(&older) {
		t.Error("game inside broad grace rejected")
	}
}

func TestPipelineApply(t *testing.T) {
	floor := 10.0
	p := Pipeline{Liveness(), PriceValidity(), MinVolume(&floor)}
	in := []domain.Market{
		{ID: "ok", Active: true, Outcomes: []string{"Yes", "No"}, OutcomePrices: []float64{0.4, 0.6}, Volume: 50},
		{ID: "closed", Active: true, Closed: true, Outcomes: []string{"Yes", "No"}, OutcomePrices: []float64{0.4, 0.6}, Volume: 50},
		{ID: "resolved", Active: true, Outcomes: []string{"Yes", "No"}, OutcomePrices: []float64{0, 1}, Volume: 50},
		{ID: "thin", Active: true, Outcomes: []string{"Yes", "No"}, OutcomePrices: []float64{0.4, 0.6}, Volume: 5},
	}

	rejected := map[string]int{}
	out := p.Apply(in, func(stage string) { rejected[stage]++ })

	if len(out) != 1 || out[0].ID != "ok" {
		t.Fatalf("kept %+v", out)
	}
	want := map[string]int{"liveness": 1, "price": 1, "min_volume": 1}
	for k, v := range want {
		if rejected[k] != v {
			t.Errorf("rejected[%s] = %d, want %d", k, rejected[k], v)
		}
	}
}
