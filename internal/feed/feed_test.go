package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func staticFetch(source string, markets []domain.Market, err error) SubFetch {
	return SubFetch{Source: source, Run: func(context.Context) ([]domain.Market, error) {
		return markets, err
	}}
}

func TestFetchAllSoftFails(t *testing.T) {
	f := NewFetcher(discardLogger())
	boom := errors.New("boom")

	got, err := f.FetchAll(context.Background(), []SubFetch{
		staticFetch("a", []domain.Market{{ID: "1"}, {ID: "2"}}, nil),
		staticFetch("b", nil, boom),
		staticFetch("c", []domain.Market{{ID: "3"}}, nil),
	})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	ids := []string{}
	for _, m := range got {
		ids = append(ids, m.ID)
		if m.FetchedAt.IsZero() {
			t.Errorf("market %s missing FetchedAt", m.ID)
		}
	}
	if len(ids) != 3 || ids[0] != "1" || ids[1] != "2" || ids[2] != "3" {
		t.Errorf("merged ids = %v, want declaration order 1,2,3", ids)
	}
}

func TestFetchAllTotalFailure(t *testing.T) {
	f := NewFetcher(discardLogger())
	_, err := f.FetchAll(context.Background(), []SubFetch{
		staticFetch("a", nil, errors.New("down")),
		staticFetch("b", nil, errors.New("malformed json")),
	})
	if !errors.Is(err, domain.ErrAllSourcesFailed) {
		t.Fatalf("err = %v, want ErrAllSourcesFailed", err)
	}
	if _, err := f.FetchAll(context.Background(), nil); !errors.Is(err, domain.ErrAllSourcesFailed) {
		t.Fatalf("no sources: err = %v", err)
	}
}

type tagLister struct {
	tags  []polymarket.APITag
	calls int
}

func (l *tagLister) ListTags(context.Context) ([]polymarket.APITag, error) {
	l.calls++
	return l.tags, nil
}

func TestTagResolverStaticFirst(t *testing.T) {
	lister := &tagLister{tags: []polymarket.APITag{{ID: "999", Slug: "politics"}}}
	r := NewTagResolver(lister)

	id, ok, err := r.Resolve(context.Background(), "Politics")
	if err != nil || !ok || id != 2 {
		t.Fatalf("Resolve(politics) = %d, %v, %v; want 2", id, ok, err)
	}
	if lister.calls != 0 {
		t.Errorf("tag list fetched %d times for a static category", lister.calls)
	}
}

func TestTagResolverLookup(t *testing.T) {
	lister := &tagLister{tags: []polymarket.APITag{
		{ID: "10", Slug: "taylor-swift-tour", Label: "Taylor Swift Tour"},
		{ID: "11", Slug: "taylor-swift", Label: "Taylor Swift"},
		{ID: "20", Slug: "artificial-intelligence", Label: "AI"},
		{ID: "30", Slug: "weather-forecasts", Label: "Weather Forecasts"},
		{ID: "31", Slug: "weather", Label: "Weather"},
		{ID: "32", Slug: "weather-extreme", Label: "Weather extreme"},
	}}
	r := NewTagResolver(lister)
	ctx := context.Background()

	tests := []struct {
		slug   string
		want   int
		wantOK bool
	}{
		{"weather", 31, true},
		{"swift", 11, true},
		{"ai", 20, true},
		{"nothing-like-this", 0, false},
	}
	for _, tt := range tests {
		id, ok, err := r.Resolve(ctx, tt.slug)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", tt.slug, err)
		}
		if id != tt.want || ok != tt.wantOK {
			t.Errorf("Resolve(%s) = %d, %v; want %d, %v", tt.slug, id, ok, tt.want, tt.wantOK)
		}
	}
	if lister.calls != 1 {
		t.Errorf("tag list fetched %d times, want 1 (cached)", lister.calls)
	}
}

type sportLister struct {
	tagLister
	sports      []polymarket.APISport
	err         error
	sportsCalls int
}

func (l *sportLister) ListSports(context.Context) ([]polymarket.APISport, error) {
	l.sportsCalls++
	return l.sports, l.err
}

func TestTagResolverSportsTable(t *testing.T) {
	lister := &sportLister{
		tagLister: tagLister{tags: []polymarket.APITag{{ID: "55", Slug: "wnba-finals"}}},
		sports: []polymarket.APISport{
			{Sport: "mls", Tags: "1,100100,100639"},
			{Sport: "WNBA", Tags: "1, 100639, 100254"},
		},
	}
	r := NewTagResolver(lister)
	ctx := context.Background()

	id, ok, err := r.Resolve(ctx, "wnba")
	if err != nil || !ok || id != 100254 {
		t.Fatalf("Resolve(wnba) = %d, %v, %v; want 100254", id, ok, err)
	}
	if lister.calls != 0 {
		t.Errorf("tag list fetched %d times for a /sports slug", lister.calls)
	}

	// Slugs missing from /sports still reach the tag catalogue.
	id, ok, err = r.Resolve(ctx, "wnba-finals")
	if err != nil || !ok || id != 55 {
		t.Fatalf("Resolve(wnba-finals) = %d, %v, %v; want 55", id, ok, err)
	}
	if lister.sportsCalls != 1 {
		t.Errorf("sports table fetched %d times, want 1 (cached)", lister.sportsCalls)
	}
}

func TestTagResolverSportsFailureFallsThrough(t *testing.T) {
	lister := &sportLister{
		tagLister: tagLister{tags: []polymarket.APITag{{ID: "77", Slug: "wnba"}}},
		err:       errors.New("boom"),
	}
	id, ok, err := NewTagResolver(lister).Resolve(context.Background(), "wnba")
	if err != nil || !ok || id != 77 {
		t.Fatalf("Resolve(wnba) = %d, %v, %v; want 77 from tags", id, ok, err)
	}
}

func TestRankDedupesSortsAndTruncates(t *testing.T) {
	in := []domain.Market{
		{ID: "a", Volume: 10, Question: "first"},
		{ID: "b", Volume: 30},
		{ID: "a", Volume: 99, Question: "second"},
		{ConditionID: "0xc", Volume: 20},
		{Volume: 1000},
	}
	got := Rank(domain.KindVolume, in, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].Key() != "0xc" {
		t.Errorf("order = %s,%s; want b,0xc", got[0].Key(), got[1].Key())
	}

	all := Rank(domain.KindVolume, in, 10)
	for _, m := range all {
		if m.ID == "a" && m.Question != "first" {
			t.Errorf("duplicate kept the later copy")
		}
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3 (keyless market dropped)", len(all))
	}
}

func TestSortForTrendingTieBreak(t *testing.T) {
	in := []domain.Market{
		{ID: "low", Volume24hr: 5, Volume: 500},
		{ID: "tie-small", Volume24hr: 50, Volume: 10},
		{ID: "tie-big", Volume24hr: 50, Volume: 100},
	}
	SortFor(domain.KindTrending, in)
	want := []string{"tie-big", "tie-small", "low"}
	for i, id := range want {
		if in[i].ID != id {
			t.Fatalf("order[%d] = %s, want %s", i, in[i].ID, id)
		}
	}
}

func TestSortForNew(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	in := []domain.Market{
		{ID: "undated"},
		{ID: "old", CreatedAt: &t1},
		{ID: "started", StartDate: &t2},
	}
	SortFor(domain.KindNew, in)
	if in[0].ID != "started" || in[1].ID != "old" || in[2].ID != "undated" {
		t.Errorf("order = %s,%s,%s", in[0].ID, in[1].ID, in[2].ID)
	}
}

func TestCountCategories(t *testing.T) {
	tag := func(label string) domain.Tag { return domain.Tag{Label: label} }
	in := []domain.Market{
		{EventTags: []domain.Tag{tag("Politics"), tag("Elections"), tag("All")}},
		{EventTags: []domain.Tag{tag("Politics"), tag("politics")}},
		{EventTags: []domain.Tag{tag("Crypto")}},
	}
	got := CountCategories(in, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Label != "Politics" || got[0].Count != 2 || got[0].Slug != "politics" {
		t.Errorf("top = %+v", got[0])
	}
	if got[1].Label != "Crypto" {
		t.Errorf("second = %+v, want Crypto (alphabetical tie-break)", got[1])
	}
}
