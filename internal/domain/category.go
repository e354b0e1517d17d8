package domain

import (
	"strconv"
	"strings"
)

// Category is either a sort mode (trending/new/volume/breaking) or a true
// category backed by an upstream tag.
type Category struct {
	Slug     string `json:"slug"`
	Label    string `json:"label"`
	TagID    int    `json:"tagId,omitempty"`
	SortMode bool   `json:"sortMode"`
	Order    int    `json:"order"`
}

// CategoryCount is a category label observed among live markets.
type CategoryCount struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SportsSubcategory is one entry of the sports navigation list.
type SportsSubcategory struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
	TagID int    `json:"tagId"`
}

// DefaultCategories lists sort modes first, then true categories, in display
// order. Tag IDs are Polymarket's.
var DefaultCategories = []Category{
	{Slug: KindTrending, Label: "Trending", SortMode: true, Order: 1},
	{Slug: KindBreaking, Label: "Breaking", SortMode: true, Order: 2},
	{Slug: KindNew, Label: "New", SortMode: true, Order: 3},
	{Slug: KindVolume, Label: "Volume", SortMode: true, Order: 4},

	{Slug: "politics", Label: "Politics", TagID: 2, Order: 10},
	{Slug: "elections", Label: "Elections", TagID: 377, Order: 11},
	{Slug: "sports", Label: "Sports", TagID: 1, Order: 20},
	{Slug: "crypto", Label: "Crypto", TagID: 21, Order: 30},
	{Slug: "finance", Label: "Finance", TagID: 120, Order: 40},
	{Slug: "economy", Label: "Economy", TagID: 100328, Order: 41},
	{Slug: "geopolitics", Label: "Geopolitics", TagID: 100265, Order: 50},
	{Slug: "tech", Label: "Tech", TagID: 1401, Order: 60},
	{Slug: "culture", Label: "Culture", TagID: 596, Order: 70},
	{Slug: "world", Label: "World", TagID: 101970, Order: 80},
}

// SportsSubcategories is the static sports navigation list.
var SportsSubcategories = []SportsSubcategory{
	{ID: "nfl", Label: "NFL", Slug: "nfl", TagID: 450},
	{ID: "nba", Label: "NBA", Slug: "nba", TagID: 745},
	{ID: "mlb", Label: "MLB", Slug: "mlb", TagID: 100381},
	{ID: "nhl", Label: "NHL", Slug: "nhl", TagID: 899},
	{ID: "soccer", Label: "Soccer", Slug: "soccer", TagID: 100350},
	{ID: "cfb", Label: "College Football", Slug: "cfb", TagID: 100351},
	{ID: "ufc", Label: "UFC", Slug: "ufc", TagID: 279},
	{ID: "tennis", Label: "Tennis", Slug: "tennis", TagID: 864},
}

// LookupCategory returns the static category with the given slug.
func LookupCategory(slug string) (Category, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, c := range DefaultCategories {
		if c.Slug == slug {
			return c, true
		}
	}
	return Category{}, false
}

// LookupSport returns the sports subcategory with the given slug.
func LookupSport(slug string) (SportsSubcategory, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, s := range SportsSubcategories {
		if s.Slug == slug {
			return s, true
		}
	}
	return SportsSubcategory{}, false
}

// TagNumber parses a tag ID carried as a string. IDs are compared as numbers
// so "2", " 2" and "2.0" all match tag 2.
func TagNumber(id string) (int, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(id); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(id, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
