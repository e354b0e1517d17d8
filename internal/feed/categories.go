package feed

import (
	"sort"
	"strings"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// TopCategories is the size of the /categories listing.
const TopCategories = 25

// ignoredLabels are structural tags that carry no category meaning.
var ignoredLabels = map[string]bool{
	"all":       true,
	"featured":  true,
	"hide":      true,
	"recurring": true,
}

// CountCategories tallies event-tag labels across markets and returns the
// most frequent, ties broken alphabetically by label.
func CountCategories(markets []domain.Market, limit int) []domain.CategoryCount {
	counts := map[string]*domain.CategoryCount{}
	for i := range markets {
		seen := map[string]bool{}
		for _, t := range markets[i].EventTags {
			label := strings.TrimSpace(t.Label)
			key := strings.ToLower(label)
			if label == "" || ignoredLabels[key] || seen[key] {
				continue
			}
			seen[key] = true
			c, ok := counts[key]
			if !ok {
				slug := t.Slug
				if slug == "" {
					slug = strings.ReplaceAll(key, " ", "-")
				}
				c = &domain.CategoryCount{Slug: slug, Label: label}
				counts[key] = c
			}
			c.Count++
		}
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
