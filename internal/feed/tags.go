package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
)

// TagLister lists the upstream tag catalogue.
type TagLister interface {
	ListTags(ctx context.Context) ([]polymarket.APITag, error)
}

// SportLister lists the upstream sports metadata table. A TagLister that
// also implements it lets sport slugs resolve through their league tag.
type SportLister interface {
	ListSports(ctx context.Context) ([]polymarket.APISport, error)
}

// genericSportTags are attached to every /sports row: the Sports and Games
// tags.
var genericSportTags = map[int]bool{1: true, 100639: true}

// tagAliases maps requested slugs to alternative upstream spellings.
var tagAliases = map[string][]string{
	"politics":    {"us-politics", "us-current-affairs"},
	"elections":   {"election", "us-elections", "global-elections"},
	"crypto":      {"cryptocurrency", "crypto-prices", "bitcoin"},
	"finance":     {"business", "economy", "stocks"},
	"economy":     {"economics", "fed", "inflation"},
	"tech":        {"technology", "ai", "science"},
	"culture":     {"pop-culture", "entertainment", "celebrities"},
	"geopolitics": {"world-affairs", "foreign-policy"},
	"world":       {"global", "world-affairs"},
	"sports":      {"sport"},
	"soccer":      {"football-soccer", "epl", "premier-league"},
	"cfb":         {"college-football", "ncaaf"},
	"ufc":         {"mma"},
}

// tagListTTL bounds how long the upstream tag catalogue is reused.
const tagListTTL = time.Hour

// TagResolver maps a category or sport slug to an upstream tag ID. The
// static tables win; only slugs missing from them fall through to a lookup
// against the live tag list.
type TagResolver struct {
	lister TagLister
	now    func() time.Time

	mu        sync.Mutex
	tags      []polymarket.APITag
	fetchedAt time.Time

	sports          []polymarket.APISport
	sportsFetchedAt time.Time
}

// NewTagResolver creates a TagResolver.
func NewTagResolver(lister TagLister) *TagResolver {
	return &TagResolver{lister: lister, now: time.Now}
}

// Resolve returns the tag ID for slug. ok is false when no tag matches.
func (r *TagResolver) Resolve(ctx context.Context, slug string) (id int, ok bool, err error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if c, found := domain.LookupCategory(slug); found && c.TagID != 0 {
		return c.TagID, true, nil
	}
	if s, found := domain.LookupSport(slug); found && s.TagID != 0 {
		return s.TagID, true, nil
	}

	if id, ok := r.sportTag(ctx, slug); ok {
		return id, true, nil
	}

	tags, err := r.catalogue(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("feed: resolve tag %q: %w", slug, err)
	}
	id, ok = matchTag(slug, tags)
	return id, ok, nil
}

func (r *TagResolver) catalogue(ctx context.Context) ([]polymarket.APITag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tags != nil && r.now().Sub(r.fetchedAt) < tagListTTL {
		return r.tags, nil
	}
	tags, err := r.lister.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	r.tags, r.fetchedAt = tags, r.now()
	return tags, nil
}

// sportTag looks slug up in the /sports table and returns its first league
// specific tag. Lookup failures fall through to the tag catalogue.
func (r *TagResolver) sportTag(ctx context.Context, slug string) (int, bool) {
	sl, ok := r.lister.(SportLister)
	if !ok {
		return 0, false
	}

	r.mu.Lock()
	if r.sports == nil || r.now().Sub(r.sportsFetchedAt) >= tagListTTL {
		sports, err := sl.ListSports(ctx)
		if err != nil {
			r.mu.Unlock()
			return 0, false
		}
		r.sports, r.sportsFetchedAt = sports, r.now()
	}
	sports := r.sports
	r.mu.Unlock()

	for i := range sports {
		if !strings.EqualFold(strings.TrimSpace(sports[i].Sport), slug) {
			continue
		}
		for _, id := range sports[i].TagIDs() {
			if !genericSportTags[id] {
				return id, true
			}
		}
	}
	return 0, false
}

// matchTag prefers an exact slug or label match, then the first alias with
// an exact match, then partial matches, among which the shortest slug wins.
func matchTag(slug string, tags []polymarket.APITag) (int, bool) {
	variants := append([]string{slug}, tagAliases[slug]...)

	for _, v := range variants {
		for _, t := range tags {
			if strings.EqualFold(t.Slug, v) || strings.EqualFold(t.Label, v) {
				if id, ok := domain.TagNumber(string(t.ID)); ok {
					return id, true
				}
			}
		}
	}

	bestID, bestLen := 0, 0
	for _, v := range variants {
		for _, t := range tags {
			ts := strings.ToLower(t.Slug)
			if ts == "" || !strings.Contains(ts, v) {
				continue
			}
			id, ok := domain.TagNumber(string(t.ID))
			if !ok {
				continue
			}
			if bestLen == 0 || len(ts) < bestLen {
				bestID, bestLen = id, len(ts)
			}
		}
	}
	return bestID, bestLen > 0
}
