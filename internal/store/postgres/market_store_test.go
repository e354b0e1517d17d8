package postgres

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

func TestTagIDs(t *testing.T) {
	got := tagIDs([]domain.Tag{{ID: "2"}, {ID: "not-a-number"}, {ID: " 450 "}, {ID: "1.0"}})
	want := []int32{2, 450, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tagIDs = %v, want %v", got, want)
	}
}

func TestOrderClause(t *testing.T) {
	tests := map[string]string{
		"volume":     "volume DESC",
		"volume24hr": "volume_24hr DESC, volume DESC",
		"":           "volume_24hr DESC, volume DESC",
		"bogus":      "volume_24hr DESC, volume DESC",
	}
	for in, want := range tests {
		if got := orderClause(in); got != want {
			t.Errorf("orderClause(%q) = %q, want %q", in, got, want)
		}
	}
	if !strings.Contains(orderClause("created"), "NULLS LAST") {
		t.Errorf("created ordering must sort undated rows last")
	}
}

func TestMarketArgsDefaults(t *testing.T) {
	m := domain.Market{ID: "1"}
	args, err := marketArgs(&m)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(upsertMarketSQL, "$"); got != len(args) {
		t.Fatalf("upsert has %d placeholders, marketArgs returns %d values", got, len(args))
	}
	if args[1] != "polymarket" {
		t.Errorf("platform = %v, want polymarket default", args[1])
	}
	if string(args[7].([]byte)) != "[]" || string(args[8].([]byte)) != "[]" {
		t.Errorf("nil outcomes/prices must encode as empty arrays")
	}
	if fetched := args[28].(time.Time); fetched.IsZero() {
		t.Errorf("fetched_at not defaulted")
	}
}

func TestDSN(t *testing.T) {
	if got := DSN(ClientConfig{DSN: "postgres://x"}); got != "postgres://x" {
		t.Errorf("explicit DSN not preserved: %s", got)
	}
	got := DSN(ClientConfig{Host: "db", User: "u", Password: "p", Database: "feed"})
	if got != "postgres://u:p@db:5432/feed?sslmode=require" {
		t.Errorf("DSN = %s", got)
	}
}
