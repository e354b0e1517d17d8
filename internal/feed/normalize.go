package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/platform/kalshi"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
)

// defaultOutcomes is used when an upstream record carries no parseable
// outcome labels.
var defaultOutcomes = []string{"Yes", "No"}

// NormalizePolymarket maps a Gamma market, optionally sourced through its
// owning event, onto the canonical Market. It is a pure function: the same
// input always yields the same Market, and it never fails.
func NormalizePolymarket(m *polymarket.APIMarket, ev *polymarket.APIEvent) domain.Market {
	if ev == nil && len(m.Events) > 0 {
		ev = &m.Events[0]
	}

	out := domain.Market{
		ID:          string(m.ID),
		ConditionID: canonicalConditionID(coalesce(m.ConditionID, m.ConditionIDAlt)),
		Question:    coalesce(m.Question, m.Title),
		Slug:        m.Slug,
		Description: m.Description,
		Image:       coalesce(m.Image, m.Icon),
		Volume:      nonNegative(coalesceFloat(float64(m.Volume), float64(m.VolumeNum))),
		Volume24hr:  nonNegative(coalesceFloat(float64(m.Volume24hr), float64(m.Volume24h))),
		Volume1wk:   nonNegative(float64(m.Volume1wk)),
		Liquidity:   nonNegative(coalesceFloat(float64(m.Liquidity), float64(m.LiquidityNum))),
		Closed:      m.Closed.Value,
		Resolved:    m.Resolved.Value,
		Platform:    domain.PlatformPolymarket,

		EndDate:       parseTimeAny(m.EndDate, m.EndDateISO, m.EndDateISOSnake, m.EndDateSnake),
		CreatedAt:     parseTimeAny(m.CreatedAt, m.CreatedAtSnake, m.CreationDate),
		StartDate:     parseTimeAny(m.StartDate, m.StartDateSnake),
		GameStartTime: parseTimeAny(m.GameStartTime, m.GameStartTimeAlt),
	}
	if out.ID == "" {
		out.ID = out.ConditionID
	}

	out.Active = true
	if m.Active.Set {
		out.Active = m.Active.Value
	} else if ev != nil && ev.Active.Set {
		out.Active = ev.Active.Value
	}

	out.Outcomes, out.OutcomePrices = alignOutcomes(parseOutcomes(m.Outcomes), parsePrices(m.OutcomePrices))

	tags := m.Tags
	if ev != nil {
		out.EventID = string(ev.ID)
		out.EventTitle = ev.Title
		out.EventSlug = ev.Slug
		out.EventStartDate = parseTimeAny(ev.StartDate)
		out.EventEndDate = parseTimeAny(ev.EndDate)
		if out.Question == "" {
			out.Question = ev.Title
		}
		if out.Slug == "" {
			out.Slug = ev.Slug
		}
		if out.Image == "" {
			out.Image = coalesce(ev.Image, ev.Icon)
		}
		if out.CreatedAt == nil {
			out.CreatedAt = parseTimeAny(ev.CreationDate, ev.CreatedAt)
		}
		if ev.Closed.Value {
			out.Closed = true
		}
		if len(ev.Tags) > 0 {
			tags = ev.Tags
		}
	}
	out.EventTags = convertTags(tags)

	return out
}

// NormalizeKalshi maps a Kalshi market onto the canonical Market. Integer
// cent prices become [0,1] probabilities.
func NormalizeKalshi(k *kalshi.KalshiMarket) domain.Market {
	question := k.Title
	if k.YesSubTitle != "" && !strings.Contains(strings.ToLower(question), strings.ToLower(k.YesSubTitle)) {
		question = fmt.Sprintf("%s: %s", question, k.YesSubTitle)
	}
	status := strings.ToLower(k.Status)

	return domain.Market{
		ID:            k.Ticker,
		Question:      question,
		Slug:          strings.ToLower(k.Ticker),
		Outcomes:      append([]string(nil), defaultOutcomes...),
		OutcomePrices: k.OutcomePrices(),
		Volume:        nonNegative(k.Volume),
		Volume24hr:    nonNegative(k.Volume24H),
		Liquidity:     nonNegative(decimal.NewFromFloat(k.Liquidity).Div(decimal.NewFromInt(100)).InexactFloat64()),
		Active:        k.IsOpen(),
		Closed:        status == "closed" || status == "settled" || status == "finalized",
		Resolved:      k.Result != "",
		CreatedAt:     parseTimeAny(k.OpenTime),
		EndDate:       parseTimeAny(k.CloseTime, k.ExpirationTime),
		EventID:       k.EventTicker,
		Platform:      domain.PlatformKalshi,
		Category:      strings.ToLower(k.Category),
	}
}

func convertTags(tags []polymarket.APITag) []domain.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]domain.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, domain.Tag{ID: string(t.ID), Label: t.Label, Slug: t.Slug})
	}
	return out
}

// canonicalConditionID lower-cases and zero-pads 32-byte hex hashes; other
// identifiers pass through unchanged.
func canonicalConditionID(id string) string {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, "0x") && !strings.HasPrefix(id, "0X") {
		return id
	}
	hexPart := id[2:]
	if len(hexPart) == 0 || len(hexPart) > 2*common.HashLength || !isHex(hexPart) {
		return id
	}
	return common.HexToHash(id).Hex()
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// parseOutcomes accepts a JSON array, a JSON-encoded array string, or a
// comma-separated string, in that order, and defaults to Yes/No. A blank
// label is replaced by "Outcome <n>" so labels stay aligned with prices.
func parseOutcomes(raw json.RawMessage) []string {
	values := decodeLooseList(raw)
	out := make([]string, 0, len(values))
	labelled := false
	for i, v := range values {
		if v = strings.TrimSpace(v); v == "" {
			v = fmt.Sprintf("Outcome %d", i+1)
		} else {
			labelled = true
		}
		out = append(out, v)
	}
	if !labelled {
		return append([]string(nil), defaultOutcomes...)
	}
	return out
}

// parsePrices decodes like parseOutcomes. Entries that fail to parse become
// 0 so positions stay aligned with their outcomes.
func parsePrices(raw json.RawMessage) []float64 {
	values := decodeLooseList(raw)
	out := make([]float64, 0, len(values))
	for _, v := range values {
		out = append(out, polymarket.ParseFloat(v))
	}
	return out
}

func decodeLooseList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var arr []any
	if err := json.Unmarshal(raw, &arr); err == nil {
		return stringify(arr)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return stringify(arr)
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "[]\"'")))
	}
	// Blank entries keep their position; a trailing separator is dropped.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func stringify(arr []any) []string {
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case nil:
			out = append(out, "")
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

// alignOutcomes truncates both slices to the shorter length. When no prices
// parsed, outcomes are kept and prices left empty; the price stage rejects
// such markets.
func alignOutcomes(outcomes []string, prices []float64) ([]string, []float64) {
	if len(prices) == 0 {
		return outcomes, []float64{}
	}
	n := min(len(outcomes), len(prices))
	return outcomes[:n], prices[:n]
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimeAny returns the first value that parses under any known layout.
func parseTimeAny(values ...string) *time.Time {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func coalesceFloat(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
