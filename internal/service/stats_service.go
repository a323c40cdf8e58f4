package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/stats"
)

// StatsService loads the caller's trades and reduces them to a summary,
// caching the result per user and filter.
type StatsService struct {
	trades   domain.TradeStore
	accounts domain.AccountStore
	cache    domain.StatsCache
	agg      *stats.Aggregator
	logger   *slog.Logger
}

// NewStatsService creates a StatsService. cache may be nil.
func NewStatsService(
	trades domain.TradeStore,
	accounts domain.AccountStore,
	cache domain.StatsCache,
	agg *stats.Aggregator,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		trades:   trades,
		accounts: accounts,
		cache:    cache,
		agg:      agg,
		logger:   logger.With(slog.String("component", "stats_service")),
	}
}

// Compute returns the summary of the user's trades matching filter. Limit and
// offset are ignored: statistics always cover the whole selection.
func (s *StatsService) Compute(ctx context.Context, filter domain.TradeFilter) (stats.Summary, error) {
	if filter.AccountID != "" {
		if err := requireOwnedAccount(ctx, s.accounts, filter.AccountID, filter.UserID); err != nil {
			return stats.Summary{}, fmt.Errorf("stats_service: compute: %w", err)
		}
	}
	filter.Limit, filter.Offset = 0, 0
	key := statsCacheKey(filter)

	// version is the cache namespace observed before reading trades; the
	// result is only written back under it.
	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		data, v, err := s.cache.Get(ctx, filter.UserID, key)
		switch {
		case err == nil:
			var sum stats.Summary
			if jerr := json.Unmarshal(data, &sum); jerr == nil {
				return sum, nil
			}
			s.logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key))
			version, cacheable = v, true
		case errors.Is(err, domain.ErrNotFound):
			version, cacheable = v, true
		default:
			s.logger.WarnContext(ctx, "stats cache read failed", slog.String("error", err.Error()))
		}
	}

	trades, err := s.trades.Find(ctx, filter)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("stats_service: compute: %w", err)
	}
	sum := s.agg.Compute(trades)

	if cacheable {
		if data, err := json.Marshal(sum); err == nil {
			if err := s.cache.Set(ctx, filter.UserID, key, version, data); err != nil {
				s.logger.WarnContext(ctx, "stats cache write failed", slog.String("error", err.Error()))
			}
		}
	}
	return sum, nil
}

// statsCacheKey identifies a filter within a user's cache namespace.
func statsCacheKey(f domain.TradeFilter) string {
	parts := []string{
		"acct=" + f.AccountID,
		"sym=" + f.Symbol,
		"status=" + string(f.Status),
		"from=" + formatOptTime(f.From),
		"to=" + formatOptTime(f.To),
	}
	return strings.Join(parts, "|")
}

func formatOptTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
