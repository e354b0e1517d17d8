package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

const (
	weekLen       = 7 * 24 * time.Hour
	maxTitleWeek  = 18
	minSeasonDay  = 5
	maxSeasonDay  = 10
	seasonOpenDay = 1
)

var (
	weekWordPattern  = regexp.MustCompile(`\bweek\s*(\d{1,2})\b`)
	weekShortPattern = regexp.MustCompile(`\bw(\d{1,2})\b`)
)

// ExtractWeek finds a "week <N>" or "w<N>" token with N in 1..18.
func ExtractWeek(text string) (int, bool) {
	norm := normalize(text)
	for _, re := range []*regexp.Regexp{weekWordPattern, weekShortPattern} {
		for _, sub := range re.FindAllStringSubmatch(norm, -1) {
			n, err := strconv.Atoi(sub[1])
			if err == nil && n >= 1 && n <= maxTitleWeek {
				return n, true
			}
		}
	}
	return 0, false
}

// MarketWeek extracts a week number from the market's titles and slugs,
// then from any event tag mentioning "week".
func MarketWeek(m *domain.Market) (int, bool) {
	for _, s := range []string{m.Question, m.EventTitle, m.Slug, m.EventSlug} {
		if n, ok := ExtractWeek(s); ok {
			return n, true
		}
	}
	for _, t := range m.EventTags {
		text := t.Label + " " + t.Slug
		if !strings.Contains(strings.ToLower(text), "week") {
			continue
		}
		if n, ok := ExtractWeek(text); ok {
			return n, true
		}
	}
	return 0, false
}

// SeasonStart estimates the kickoff of the NFL season that t falls in: the
// first Thursday on or after September 1, with the day clamped to 5..10.
// Dates before this year's kickoff belong to the previous season while its
// regular season and playoffs are still running, and to the upcoming season
// after that.
func SeasonStart(t time.Time) time.Time {
	t = t.UTC()
	start := kickoff(t.Year())
	if t.Before(start) {
		prev := kickoff(t.Year() - 1)
		if t.Before(prev.Add(time.Duration(domain.MaxWeek) * weekLen)) {
			return prev
		}
	}
	return start
}

func kickoff(year int) time.Time {
	d := time.Date(year, time.September, seasonOpenDay, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Thursday {
		d = d.AddDate(0, 0, 1)
	}
	day := min(max(d.Day(), minSeasonDay), maxSeasonDay)
	return time.Date(year, time.September, day, 0, 0, 0, 0, time.UTC)
}

// WeekAt returns the season week containing t, clamped to 1..22. The
// offseason before kickoff counts as week 1.
func WeekAt(t time.Time) int {
	start := SeasonStart(t)
	days := int(t.UTC().Sub(start).Hours() / 24)
	if days < 0 {
		return 1
	}
	return min(max(days/7+1, 1), domain.MaxWeek)
}

// WeekWindow returns [start, end) of the given week in the season that now
// falls in, or the upcoming season during the offseason.
func WeekWindow(n int, now time.Time) (time.Time, time.Time) {
	start := SeasonStart(now).Add(time.Duration(n-1) * weekLen)
	return start, start.Add(weekLen)
}
