package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// Live event types published on a user's channel.
const (
	EventTradeCreated   = "trade.created"
	EventTradeUpdated   = "trade.updated"
	EventTradeDeleted   = "trade.deleted"
	EventTradesImported = "trades.imported"
	EventAccountChanged = "account.changed"
)

// Event is the envelope published on the signal bus and forwarded to
// websocket clients.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// effects bundles the best-effort side effects shared by the services. A
// failing side effect is logged and never fails the operation that caused it.
type effects struct {
	bus    domain.SignalBus
	audit  domain.AuditStore
	cache  domain.StatsCache
	logger *slog.Logger
}

func (e effects) publish(ctx context.Context, userID, typ string, data any) {
	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(Event{Type: typ, Data: data, At: time.Now().UTC()})
	if err != nil {
		e.logger.WarnContext(ctx, "marshal event failed", slog.String("event", typ), slog.String("error", err.Error()))
		return
	}
	if err := e.bus.Publish(ctx, domain.UserChannel(userID), payload); err != nil {
		e.logger.WarnContext(ctx, "publish event failed",
			slog.String("event", typ),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func (e effects) auditLog(ctx context.Context, userID, event string, detail map[string]any) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Log(ctx, userID, event, detail); err != nil {
		e.logger.WarnContext(ctx, "audit log failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

// invalidate drops the user's cached statistics after a trade mutation.
func (e effects) invalidate(ctx context.Context, userID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, userID); err != nil {
		e.logger.WarnContext(ctx, "stats cache invalidate failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
