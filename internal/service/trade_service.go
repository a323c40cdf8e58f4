package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// TradeService handles manual trade entry, editing and querying.
type TradeService struct {
	trades   domain.TradeStore
	accounts domain.AccountStore
	fx       effects
	logger   *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	trades domain.TradeStore,
	accounts domain.AccountStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	cache domain.StatsCache,
	logger *slog.Logger,
) *TradeService {
	logger = logger.With(slog.String("component", "trade_service"))
	return &TradeService{
		trades:   trades,
		accounts: accounts,
		fx:       effects{bus: bus, audit: audit, cache: cache, logger: logger},
		logger:   logger,
	}
}

// TradeInput is the payload for creating a trade by hand.
type TradeInput struct {
	AccountID  string     `json:"accountId"`
	Symbol     string     `json:"symbol"`
	Direction  string     `json:"direction"`
	Quantity   float64    `json:"quantity"`
	EntryPrice float64    `json:"entryPrice"`
	EntryDate  time.Time  `json:"entryDate"`
	ExitPrice  *float64   `json:"exitPrice"`
	ExitDate   *time.Time `json:"exitDate"`
	Fees       float64    `json:"fees"`
	Strategy   string     `json:"strategy"`
	Notes      string     `json:"notes"`
	Tags       []string   `json:"tags"`
}

// List returns the user's trades matching filter, newest entry first. The
// limit defaults to 100 and is capped at 1000.
func (s *TradeService) List(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	trades, err := s.trades.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list: %w", err)
	}
	return trades, nil
}

// Get returns one of the user's trades.
func (s *TradeService) Get(ctx context.Context, userID, tradeID string) (domain.Trade, error) {
	t, err := s.trades.Get(ctx, tradeID, userID)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: get: %w", err)
	}
	return t, nil
}

// Create validates and stores a trade entered by hand. The account must
// belong to the user.
func (s *TradeService) Create(ctx context.Context, userID string, in TradeInput) (domain.Trade, error) {
	if err := requireOwnedAccount(ctx, s.accounts, in.AccountID, userID); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: create: %w", err)
	}

	dir, _ := domain.ParseDirection(in.Direction)
	now := time.Now().UTC()
	t := domain.Trade{
		ID:         uuid.New().String(),
		AccountID:  in.AccountID,
		UserID:     userID,
		Symbol:     strings.TrimSpace(in.Symbol),
		Direction:  dir,
		Quantity:   in.Quantity,
		EntryPrice: in.EntryPrice,
		EntryDate:  in.EntryDate.UTC(),
		ExitPrice:  in.ExitPrice,
		ExitDate:   utcPtr(in.ExitDate),
		Fees:       in.Fees,
		Strategy:   strings.TrimSpace(in.Strategy),
		Notes:      in.Notes,
		Tags:       cleanTags(in.Tags),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := t.Validate(); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: create: %w", err)
	}
	t.Recompute()

	if err := s.trades.Create(ctx, t); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: create: %w", err)
	}
	s.afterMutation(ctx, userID, EventTradeCreated, t)
	return t, nil
}

// Update applies a patch and recomputes PnL.
func (s *TradeService) Update(ctx context.Context, userID, tradeID string, p domain.TradePatch) (domain.Trade, error) {
	t, err := s.trades.Get(ctx, tradeID, userID)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: update: %w", err)
	}

	if p.AccountID != nil && *p.AccountID != t.AccountID {
		if err := requireOwnedAccount(ctx, s.accounts, *p.AccountID, userID); err != nil {
			return domain.Trade{}, fmt.Errorf("trade_service: update: %w", err)
		}
		t.AccountID = *p.AccountID
	}
	if err := applyPatch(&t, p); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: update: %w", err)
	}
	if err := t.Validate(); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: update: %w", err)
	}
	t.Recompute()
	t.UpdatedAt = time.Now().UTC()

	if err := s.trades.Update(ctx, t); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: update: %w", err)
	}
	s.afterMutation(ctx, userID, EventTradeUpdated, t)
	return t, nil
}

// Delete removes one of the user's trades.
func (s *TradeService) Delete(ctx context.Context, userID, tradeID string) error {
	if err := s.trades.Delete(ctx, tradeID, userID); err != nil {
		return fmt.Errorf("trade_service: delete: %w", err)
	}
	s.afterMutation(ctx, userID, EventTradeDeleted, map[string]string{"id": tradeID})
	return nil
}

// ExportCSV renders the user's trades matching filter as CSV. The header
// names are accepted by the importer, so an export can be re-imported.
func (s *TradeService) ExportCSV(ctx context.Context, filter domain.TradeFilter) ([]byte, error) {
	filter.Limit, filter.Offset = 0, 0
	trades, err := s.trades.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("trade_service: export: %w", err)
	}
	rows := make([]exportRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, newExportRow(t))
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("trade_service: export: %w", err)
	}
	return out, nil
}

func (s *TradeService) afterMutation(ctx context.Context, userID, event string, data any) {
	s.fx.invalidate(ctx, userID)
	s.fx.publish(ctx, userID, event, data)
}

func applyPatch(t *domain.Trade, p domain.TradePatch) error {
	if p.Symbol != nil {
		t.Symbol = strings.TrimSpace(*p.Symbol)
	}
	if p.Direction != nil {
		dir, ok := domain.ParseDirection(*p.Direction)
		if !ok {
			return fmt.Errorf("direction must be LONG or SHORT (got %q): %w", *p.Direction, domain.ErrInvalidInput)
		}
		t.Direction = dir
	}
	if p.Quantity != nil {
		t.Quantity = *p.Quantity
	}
	if p.EntryPrice != nil {
		t.EntryPrice = *p.EntryPrice
	}
	if p.EntryDate != nil {
		t.EntryDate = p.EntryDate.UTC()
	}
	if p.Fees != nil {
		t.Fees = *p.Fees
	}
	if p.Strategy != nil {
		t.Strategy = strings.TrimSpace(*p.Strategy)
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Tags != nil {
		t.Tags = cleanTags(p.Tags)
	}

	if p.ClearExit {
		t.Reopen()
		return nil
	}
	if p.ExitPrice != nil {
		t.ExitPrice = p.ExitPrice
	}
	if p.ExitDate != nil {
		t.ExitDate = utcPtr(p.ExitDate)
	}
	return nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type exportRow struct {
	Symbol     string `csv:"symbol"`
	Direction  string `csv:"direction"`
	Quantity   string `csv:"quantity"`
	EntryPrice string `csv:"entry_price"`
	ExitPrice  string `csv:"exit_price"`
	EntryDate  string `csv:"entry_date"`
	ExitDate   string `csv:"exit_date"`
	Fees       string `csv:"fees"`
	PnL        string `csv:"pnl"`
	Strategy   string `csv:"strategy"`
	Notes      string `csv:"notes"`
	Tags       string `csv:"tags"`
	ID         string `csv:"id"`
	AccountID  string `csv:"account_id"`
}

func newExportRow(t domain.Trade) exportRow {
	r := exportRow{
		Symbol:     t.Symbol,
		Direction:  string(t.Direction),
		Quantity:   formatFloat(t.Quantity),
		EntryPrice: formatFloat(t.EntryPrice),
		EntryDate:  t.EntryDate.UTC().Format(time.RFC3339),
		Fees:       formatFloat(t.Fees),
		Strategy:   t.Strategy,
		Notes:      t.Notes,
		Tags:       strings.Join(t.Tags, ","),
		ID:         t.ID,
		AccountID:  t.AccountID,
	}
	if t.ExitPrice != nil {
		r.ExitPrice = formatFloat(*t.ExitPrice)
	}
	if t.ExitDate != nil {
		r.ExitDate = t.ExitDate.UTC().Format(time.RFC3339)
	}
	if t.PnL != nil {
		r.PnL = formatFloat(*t.PnL)
	}
	return r
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
