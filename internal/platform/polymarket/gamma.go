package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery, metadata, tags and sports.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
// requestsPerSecond <= 0 disables client-side throttling.
func NewGammaClient(baseURL string, requestsPerSecond float64) *GammaClient {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond))
	}
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// EventQuery filters GET /events.
type EventQuery struct {
	Limit  int
	Offset int
	// TagID restricts to events carrying this tag; zero means any.
	TagID int
	// Order is an upstream sort field, e.g. "volume24hr", "volume", "startDate".
	Order     string
	Ascending bool
	// IncludeClosed lifts the default active=true&closed=false filter.
	IncludeClosed bool
}

func (q EventQuery) values() url.Values {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.TagID != 0 {
		params.Set("tag_id", strconv.Itoa(q.TagID))
		params.Set("related_tags", "true")
	}
	if q.Order != "" {
		params.Set("order", q.Order)
		params.Set("ascending", strconv.FormatBool(q.Ascending))
	}
	if !q.IncludeClosed {
		params.Set("active", "true")
		params.Set("closed", "false")
	}
	return params
}

// ListEvents returns events, each carrying its markets.
func (g *GammaClient) ListEvents(ctx context.Context, q EventQuery) ([]APIEvent, error) {
	body, err := g.doGet(ctx, "/events?"+q.values().Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list events: %w", err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode events: %w", err)
	}
	return events, nil
}

// ListMarkets returns markets directly from /markets. TagID is honoured by
// the upstream as tag_id.
func (g *GammaClient) ListMarkets(ctx context.Context, q EventQuery) ([]APIMarket, error) {
	body, err := g.doGet(ctx, "/markets?"+q.values().Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list markets: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	return markets, nil
}

// GetMarket returns a single market by its ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (APIMarket, error) {
	body, err := g.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var m APIMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return m, nil
}

// ListTags returns the full tag catalogue.
func (g *GammaClient) ListTags(ctx context.Context) ([]APITag, error) {
	body, err := g.doGet(ctx, "/tags?limit=1000")
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list tags: %w", err)
	}

	var tags []APITag
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode tags: %w", err)
	}
	return tags, nil
}

// ListSports returns the sports metadata table.
func (g *GammaClient) ListSports(ctx context.Context) ([]APISport, error) {
	body, err := g.doGet(ctx, "/sports")
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list sports: %w", err)
	}

	var sports []APISport
	if err := json.Unmarshal(body, &sports); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode sports: %w", err)
	}
	return sports, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
