package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/username/optifolio/src/logger"
	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/services"
	"github.com/username/optifolio/src/utils"
)

type PositionHandler struct {
	store  services.PositionStore
	quotes services.QuoteService
}

func NewPositionHandler(store services.PositionStore, quotes services.QuoteService) *PositionHandler {
	return &PositionHandler{store: store, quotes: quotes}
}

// positionView is a position plus an optional market value computed from a
// live quote of the underlying.
type positionView struct {
	*models.Position
	MarketPrice *decimal.Decimal `json:"market_price,omitempty"`
}

// GetPositions returns the user's positions sorted by canonical key. With
// ?quotes=true stock positions are marked to market. Responses carry an ETag
// so the frontend can poll cheaply.
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	positions, err := h.store.Load(r.Context(), userID)
	if err != nil {
		logger.L.Error("Failed to load positions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to load positions", http.StatusInternalServerError)
		return
	}

	keys := make([]string, 0, len(positions))
	for key := range positions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	withQuotes := r.URL.Query().Get("quotes") == "true" && h.quotes != nil
	views := make([]positionView, 0, len(keys))
	for _, key := range keys {
		view := positionView{Position: positions[key]}
		if withQuotes {
			if ticker, isStock := stockTicker(positions[key]); isStock {
				quote, err := h.quotes.Lookup(r.Context(), ticker)
				if err != nil {
					if !errors.Is(err, services.ErrQuoteNotFound) {
						logger.L.Warn("Quote lookup failed", "symbol", ticker, "error", err)
					}
				} else {
					price := quote.Price
					view.MarketPrice = &price
				}
			}
		}
		views = append(views, view)
	}

	utils.SendJSONWithETag(w, r, views)
}

// GetQuote proxies a single symbol lookup.
func (h *PositionHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserIDFromContext(r.Context()); !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		utils.SendJSONError(w, "symbol query parameter is required", http.StatusBadRequest)
		return
	}

	quote, err := h.quotes.Lookup(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, services.ErrQuoteNotFound) {
			utils.SendJSONError(w, "No quote for symbol", http.StatusNotFound)
			return
		}
		logger.L.Error("Quote lookup failed", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "Quote lookup failed", http.StatusBadGateway)
		return
	}

	utils.SendJSON(w, http.StatusOK, quote)
}

func stockTicker(p *models.Position) (string, bool) {
	if len(p.Legs) == 1 && p.Legs[0].LegType == models.LegStock {
		return p.Legs[0].Symbol, true
	}
	return "", false
}
