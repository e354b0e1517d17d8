package kalshi

import (
	"strings"

	"github.com/shopspring/decimal"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Prices are integer cents (0-100).
type KalshiMarket struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	YesSubTitle    string  `json:"yes_sub_title"`
	NoSubTitle     string  `json:"no_sub_title"`
	Status         string  `json:"status"` // "open", "active", "closed", "settled"
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	NoBid          float64 `json:"no_bid"`
	NoAsk          float64 `json:"no_ask"`
	LastPrice      float64 `json:"last_price"`
	Volume         float64 `json:"volume"`
	Volume24H      float64 `json:"volume_24h"`
	Liquidity      float64 `json:"liquidity"`
	OpenInterest   float64 `json:"open_interest"`
	Category       string  `json:"category"`
	Result         string  `json:"result"` // "yes", "no", "" (unsettled)
	OpenTime       string  `json:"open_time"`
	CloseTime      string  `json:"close_time"`
	ExpirationTime string  `json:"expiration_time"`
}

// MarketsPage is one page of GET /markets.
type MarketsPage struct {
	Markets []KalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var hundred = decimal.NewFromInt(100)

// centsToProbability converts an integer-cent price to a [0,1] probability.
func centsToProbability(cents float64) decimal.Decimal {
	p := decimal.NewFromFloat(cents).Div(hundred)
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return p
}

// YesProbability is the last traded price, or the bid/ask midpoint when the
// market has not traded.
func (m *KalshiMarket) YesProbability() decimal.Decimal {
	if m.LastPrice > 0 {
		return centsToProbability(m.LastPrice)
	}
	if m.YesBid > 0 || m.YesAsk > 0 {
		mid := decimal.NewFromFloat(m.YesBid).Add(decimal.NewFromFloat(m.YesAsk)).Div(decimal.NewFromInt(2))
		return centsToProbability(mid.InexactFloat64())
	}
	return decimal.Zero
}

// OutcomePrices returns [yes, no] as floats, with no = 1 - yes.
func (m *KalshiMarket) OutcomePrices() []float64 {
	yes := m.YesProbability()
	no := decimal.NewFromInt(1).Sub(yes)
	return []float64{yes.InexactFloat64(), no.InexactFloat64()}
}

// IsOpen reports whether the market is tradable.
func (m *KalshiMarket) IsOpen() bool {
	switch strings.ToLower(m.Status) {
	case "open", "active", "initialized":
		return true
	}
	return false
}
