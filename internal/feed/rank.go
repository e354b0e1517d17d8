package feed

import (
	"sort"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// Dedupe drops repeated markets by Key, keeping the first occurrence so
// source fetch order decides which copy survives.
func Dedupe(markets []domain.Market) []domain.Market {
	seen := make(map[string]struct{}, len(markets))
	out := markets[:0:0]
	for _, m := range markets {
		k := m.Key()
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}

// SortFor orders markets for kind: "volume" by total volume, "new" by
// creation or start date, everything else by 24h volume with total volume
// as the tie-break. All orders are descending and stable.
func SortFor(kind string, markets []domain.Market) {
	var less func(a, b *domain.Market) bool
	switch kind {
	case domain.KindVolume:
		less = func(a, b *domain.Market) bool { return a.Volume > b.Volume }
	case domain.KindNew:
		less = func(a, b *domain.Market) bool {
			ta, tb := newness(a), newness(b)
			return ta > tb
		}
	default:
		less = func(a, b *domain.Market) bool {
			if a.Volume24hr != b.Volume24hr {
				return a.Volume24hr > b.Volume24hr
			}
			return a.Volume > b.Volume
		}
	}
	sort.SliceStable(markets, func(i, j int) bool { return less(&markets[i], &markets[j]) })
}

func newness(m *domain.Market) int64 {
	if t := m.Created(); t != nil {
		return t.UnixNano()
	}
	if t := m.StartTime(); t != nil {
		return t.UnixNano()
	}
	return 0
}

// Rank dedupes, sorts and truncates to limit.
func Rank(kind string, markets []domain.Market, limit int) []domain.Market {
	out := Dedupe(markets)
	SortFor(kind, out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
