package domain

import (
	"fmt"
	"strings"
)

// Sort-mode kinds. Any other kind is treated as a category or sport slug.
const (
	KindTrending = "trending"
	KindVolume   = "volume"
	KindNew      = "new"
	KindBreaking = "breaking"
	KindNFL      = "nfl"
)

// Sport sub-views.
const (
	SportTypeGames = "games"
	SportTypeProps = "props"
)

const (
	DefaultLimit = 100
	MaxLimit     = 10000
	MaxWeek      = 22
)

// Query is a parsed GET /markets request.
type Query struct {
	Kind      string
	Limit     int
	SportType string
	Platform  Platform
	// Week is the explicitly requested NFL week; zero means "current".
	Week int
	// MinVolume is nil unless the caller supplied one.
	MinVolume *float64
}

// Normalize lower-cases the kind, defaults empty fields and clamps the limit
// into [1, MaxLimit].
func (q Query) Normalize() Query {
	q.Kind = strings.ToLower(strings.TrimSpace(q.Kind))
	if q.Kind == "" {
		q.Kind = KindTrending
	}
	q.SportType = strings.ToLower(strings.TrimSpace(q.SportType))
	if q.Platform == "" {
		q.Platform = PlatformPolymarket
	}
	q.Limit = ClampLimit(q.Limit)
	if q.Week < 0 || q.Week > MaxWeek {
		q.Week = 0
	}
	return q
}

// CacheKey identifies a response in the response cache.
func (q Query) CacheKey() string {
	minVol := "-"
	if q.MinVolume != nil {
		minVol = fmt.Sprintf("%g", *q.MinVolume)
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d|%s", q.Platform, q.Kind, q.SportType, q.Week, q.Limit, minVol)
}

// IsSortMode reports whether the kind is a sort mode rather than a category.
func (q Query) IsSortMode() bool {
	switch q.Kind {
	case KindTrending, KindVolume, KindNew, KindBreaking:
		return true
	}
	return false
}

// ClampLimit bounds a requested page size to [1, MaxLimit]; non-positive
// values select DefaultLimit.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Source values reported in Meta.Source.
const (
	SourceLive     = "live"
	SourceDatabase = "database"
	SourceCache    = "cache"
)

// Meta accompanies every market listing.
type Meta struct {
	Total    int      `json:"total"`
	Kind     string   `json:"kind"`
	Platform Platform `json:"platform"`
	Source   string   `json:"source,omitempty"`
	Week     int      `json:"week,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Response is the body of a successful GET /markets.
type Response struct {
	Markets []Market `json:"markets"`
	Meta    Meta     `json:"meta"`
}
