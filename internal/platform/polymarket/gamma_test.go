package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

const eventsFixture = `[
  {
    "id": 9001,
    "title": "Chiefs vs Bills",
    "slug": "nfl-kc-buf",
    "active": "true",
    "closed": false,
    "startDate": "2025-10-05T20:00:00Z",
    "tags": [{"id": "1", "label": "Sports", "slug": "sports"}, {"id": 450, "label": "NFL", "slug": "nfl"}],
    "markets": [
      {
        "id": "123",
        "conditionId": "0xabc",
        "question": "Chiefs vs Bills",
        "outcomes": "[\"Chiefs\",\"Bills\"]",
        "outcomePrices": ["0.55", "0.45"],
        "volume": "1234.5",
        "volume24h": 99,
        "liquidity": "NaN",
        "active": true,
        "closed": "false"
      }
    ]
  }
]`

func TestListEventsDecodesLooseShapes(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("path = %q, want /events", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Write([]byte(eventsFixture))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, 0)
	events, err := g.ListEvents(context.Background(), EventQuery{Limit: 50, TagID: 450, Order: "volume24hr"})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || len(events[0].Markets) != 1 {
		t.Fatalf("unexpected shape: %+v", events)
	}

	ev := events[0]
	if ev.ID != "9001" {
		t.Errorf("event id = %q, want 9001", ev.ID)
	}
	if !ev.Active.Value || !ev.Active.Set {
		t.Errorf("event active = %+v, want set true", ev.Active)
	}
	if len(ev.Tags) != 2 || ev.Tags[1].ID != "450" {
		t.Errorf("tags = %+v", ev.Tags)
	}

	m := ev.Markets[0]
	if float64(m.Volume) != 1234.5 {
		t.Errorf("volume = %v", m.Volume)
	}
	if float64(m.Volume24h) != 99 {
		t.Errorf("volume24h = %v", m.Volume24h)
	}
	if float64(m.Liquidity) != 0 {
		t.Errorf("liquidity = %v, want 0 for NaN", m.Liquidity)
	}
	if m.Closed.Value {
		t.Error("closed decoded as true")
	}

	q, _ := parseQuery(gotQuery)
	for k, want := range map[string]string{
		"limit": "50", "tag_id": "450", "order": "volume24hr",
		"ascending": "false", "active": "true", "closed": "false",
	} {
		if q[k] != want {
			t.Errorf("query %s = %q, want %q", k, q[k], want)
		}
	}
}

func TestDoGetMapsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		g := NewGammaClient(srv.URL, 0)
		_, err := g.GetMarket(context.Background(), "1")
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestListMarketsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	if _, err := NewGammaClient(srv.URL, 0).ListMarkets(context.Background(), EventQuery{}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSportTagIDs(t *testing.T) {
	s := APISport{Tags: "1, 450,x,100639"}
	got := s.TagIDs()
	want := []int{1, 450, 100639}
	if len(got) != len(want) {
		t.Fatalf("TagIDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TagIDs = %v, want %v", got, want)
		}
	}
}

func TestFlexStringNumber(t *testing.T) {
	var tag APITag
	if err := json.Unmarshal([]byte(`{"id": 2, "slug": "politics"}`), &tag); err != nil {
		t.Fatal(err)
	}
	if tag.ID != "2" {
		t.Errorf("id = %q, want 2", tag.ID)
	}
}

func parseQuery(raw string) (map[string]string, error) {
	out := map[string]string{}
	req, err := http.NewRequest(http.MethodGet, "/?"+raw, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range req.URL.Query() {
		out[k] = v[0]
	}
	return out, nil
}
