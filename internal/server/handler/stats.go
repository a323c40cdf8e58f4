package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/stats"
)

// StatsService defines the methods that the stats handler requires from the
// service layer.
type StatsService interface {
	Compute(ctx context.Context, filter domain.TradeFilter) (stats.Summary, error)
}

// StatsHandler serves the statistics endpoint.
type StatsHandler struct {
	stats  StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(svc StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: svc, logger: logger}
}

// Summary computes statistics over the caller's trades.
// GET /api/stats?accountId=&from=&to=
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTradeFilter(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "compute stats", err)
		return
	}
	sum, err := h.stats.Compute(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, "compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
