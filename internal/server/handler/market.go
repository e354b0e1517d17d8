package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	ListMarkets(ctx context.Context, q domain.Query) (domain.Response, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	ListCategories(ctx context.Context) ([]domain.CategoryCount, error)
	ListSportsSubcategories() []domain.SportsSubcategory
}

// MarketHandler serves the market feed endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger.With(slog.String("component", "market_handler")),
	}
}

// ListMarkets returns the filtered, ranked market list for one kind.
// GET /markets?kind=&limit=&sportType=&platform=&week=&minVolume=
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	q, ok := parseMarketsQuery(r)
	if !ok {
		writeMarketsError(w, http.StatusBadRequest, codeBadRequest, domain.ErrInvalidPlatform.Error()+": use polymarket or kalshi")
		return
	}

	resp, err := h.markets.ListMarkets(r.Context(), q)
	if err != nil {
		if errors.Is(err, domain.ErrAllSourcesFailed) {
			h.logger.WarnContext(r.Context(), "every market source failed",
				slog.String("kind", q.Kind),
				slog.String("error", err.Error()),
			)
			writeMarketsError(w, http.StatusServiceUnavailable, codeFetchFailed, "failed to fetch markets from upstream")
			return
		}
		h.logger.ErrorContext(r.Context(), "list markets failed",
			slog.String("kind", q.Kind),
			slog.String("error", err.Error()),
		)
		writeMarketsError(w, http.StatusInternalServerError, codeInternalError, "failed to list markets")
		return
	}
	if resp.Markets == nil {
		resp.Markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMarket returns a single market by its ID.
// GET /markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// ListCategories returns the most frequent categories among live markets.
// GET /categories
func (h *MarketHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.markets.ListCategories(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list categories failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to list categories")
		return
	}
	if cats == nil {
		cats = []domain.CategoryCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// ListSportsSubcategories returns the static sports navigation list.
// GET /sports-subcategories
func (h *MarketHandler) ListSportsSubcategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"subcategories": h.markets.ListSportsSubcategories()})
}
