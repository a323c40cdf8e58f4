package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/service"
)

// TradeService defines the methods that the trade handler requires from the
// service layer.
type TradeService interface {
	List(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error)
	Get(ctx context.Context, userID, tradeID string) (domain.Trade, error)
	Create(ctx context.Context, userID string, in service.TradeInput) (domain.Trade, error)
	Update(ctx context.Context, userID, tradeID string, p domain.TradePatch) (domain.Trade, error)
	Delete(ctx context.Context, userID, tradeID string) error
	ExportCSV(ctx context.Context, filter domain.TradeFilter) ([]byte, error)
}

// TradeHandler serves trade endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// List returns the caller's trades.
// GET /api/trades?accountId=&symbol=&status=open|closed&from=&to=&limit=&offset=
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTradeFilter(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "list trades", err)
		return
	}
	trades, err := h.trades.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, "list trades", err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// Get returns a single trade.
// GET /api/trades/{id}
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.trades.Get(r.Context(), currentUser(r), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get trade", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Create records a trade entered by hand.
// POST /api/trades
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.TradeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, h.logger, "create trade", err)
		return
	}
	t, err := h.trades.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeServiceError(w, r, h.logger, "create trade", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Update patches a trade.
// PATCH /api/trades/{id}
func (h *TradeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p domain.TradePatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeServiceError(w, r, h.logger, "update trade", err)
		return
	}
	t, err := h.trades.Update(r.Context(), currentUser(r), pathParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, r, h.logger, "update trade", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Delete removes a trade.
// DELETE /api/trades/{id}
func (h *TradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.trades.Delete(r.Context(), currentUser(r), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, "delete trade", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export downloads the caller's trades as CSV.
// GET /api/trades/export?accountId=&from=&to=
func (h *TradeHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTradeFilter(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "export trades", err)
		return
	}
	data, err := h.trades.ExportCSV(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, "export trades", err)
		return
	}
	name := fmt.Sprintf("trades-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
