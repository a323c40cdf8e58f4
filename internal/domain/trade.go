package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// ParseDirection upper-cases s and returns the matching Direction. The second
// return value is false for anything other than LONG or SHORT.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionLong:
		return DirectionLong, true
	case DirectionShort:
		return DirectionShort, true
	default:
		return "", false
	}
}

// TradeStatus filters trades by lifecycle state.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// Trade is one executed position in a user's journal.
//
// ExitDate and PnL are set together: a trade with an exit date is closed and
// carries a computed PnL, a trade without one is open and has a nil PnL.
type Trade struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"accountId"`
	UserID     string     `json:"userId"`
	Symbol     string     `json:"symbol"`
	Direction  Direction  `json:"direction"`
	Quantity   float64    `json:"quantity"`
	EntryPrice float64    `json:"entryPrice"`
	EntryDate  time.Time  `json:"entryDate"`
	ExitPrice  *float64   `json:"exitPrice"`
	ExitDate   *time.Time `json:"exitDate"`
	Fees       float64    `json:"fees"`
	PnL        *float64   `json:"pnl"`
	Strategy   string     `json:"strategy"`
	Notes      string     `json:"notes"`
	Tags       []string   `json:"tags"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// IsClosed reports whether the trade has a recorded exit.
func (t Trade) IsClosed() bool {
	return t.ExitDate != nil
}

// Status derives the lifecycle state from the exit date.
func (t Trade) Status() TradeStatus {
	if t.IsClosed() {
		return TradeStatusClosed
	}
	return TradeStatusOpen
}

// RealizedPnL returns the trade's PnL, or zero for open trades.
func (t Trade) RealizedPnL() float64 {
	if t.PnL == nil {
		return 0
	}
	return *t.PnL
}

// Close records an exit and recomputes PnL.
func (t *Trade) Close(exitPrice float64, exitDate time.Time) {
	pnl := ComputePnL(t.Direction, t.EntryPrice, exitPrice, t.Quantity, t.Fees)
	t.ExitPrice = &exitPrice
	t.ExitDate = &exitDate
	t.PnL = &pnl
}

// Reopen clears the exit so the trade is open again.
func (t *Trade) Reopen() {
	t.ExitPrice = nil
	t.ExitDate = nil
	t.PnL = nil
}

// Recompute refreshes PnL after a price, quantity or fee correction. It is a
// no-op for open trades.
func (t *Trade) Recompute() {
	if t.ExitDate == nil || t.ExitPrice == nil {
		t.PnL = nil
		return
	}
	pnl := ComputePnL(t.Direction, t.EntryPrice, *t.ExitPrice, t.Quantity, t.Fees)
	t.PnL = &pnl
}

// ComputePnL returns the realized profit of a position net of fees:
//
//	LONG:  (exit - entry) * qty - fees
//	SHORT: (entry - exit) * qty - fees
func ComputePnL(dir Direction, entry, exit, qty, fees float64) float64 {
	e := decimal.NewFromFloat(entry)
	x := decimal.NewFromFloat(exit)
	move := x.Sub(e)
	if dir == DirectionShort {
		move = e.Sub(x)
	}
	pnl := move.Mul(decimal.NewFromFloat(qty)).Sub(decimal.NewFromFloat(fees))
	f, _ := pnl.Float64()
	return f
}

// TradePatch is a partial trade update. Nil fields are left untouched;
// ClearExit reopens the trade.
type TradePatch struct {
	AccountID  *string    `json:"accountId"`
	Symbol     *string    `json:"symbol"`
	Direction  *string    `json:"direction"`
	Quantity   *float64   `json:"quantity"`
	EntryPrice *float64   `json:"entryPrice"`
	EntryDate  *time.Time `json:"entryDate"`
	ExitPrice  *float64   `json:"exitPrice"`
	ExitDate   *time.Time `json:"exitDate"`
	ClearExit  bool       `json:"clearExit"`
	Fees       *float64   `json:"fees"`
	Strategy   *string    `json:"strategy"`
	Notes      *string    `json:"notes"`
	Tags       []string   `json:"tags"`
}

// TradeFilter selects a user's trades. UserID is always required.
type TradeFilter struct {
	UserID    string
	AccountID string
	Symbol    string
	Status    TradeStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Validate checks the field rules every stored trade must satisfy. Failures
// wrap ErrInvalidInput with a message naming the offending field.
func (t Trade) Validate() error {
	var msg string
	switch {
	case t.AccountID == "":
		msg = "accountId is required"
	case strings.TrimSpace(t.Symbol) == "":
		msg = "symbol is required"
	case t.Direction != DirectionLong && t.Direction != DirectionShort:
		msg = "direction must be LONG or SHORT"
	case !isPositive(t.EntryPrice):
		msg = "entryPrice must be a positive number"
	case !isPositive(t.Quantity):
		msg = "quantity must be a positive number"
	case t.EntryDate.IsZero():
		msg = "entryDate is required"
	case !(t.Fees >= 0) || math.IsInf(t.Fees, 1):
		msg = "fees must be a non-negative number"
	case t.ExitPrice != nil && !isPositive(*t.ExitPrice):
		msg = "exitPrice must be a positive number"
	case t.ExitDate != nil && t.ExitPrice == nil:
		msg = "exitPrice is required when exitDate is set"
	case t.ExitPrice != nil && t.ExitDate == nil:
		msg = "exitDate is required when exitPrice is set"
	case !pnlInRange(t):
		msg = "price, quantity and fees are out of range"
	default:
		return nil
	}
	return fmt.Errorf("%s: %w", msg, ErrInvalidInput)
}

// pnlInRange reports whether a closed trade's PnL is a finite float64.
func pnlInRange(t Trade) bool {
	if t.ExitPrice == nil {
		return !math.IsInf(t.EntryPrice*t.Quantity, 0)
	}
	pnl := ComputePnL(t.Direction, t.EntryPrice, *t.ExitPrice, t.Quantity, t.Fees)
	return !math.IsInf(pnl, 0)
}

// isPositive reports whether f is a finite number above zero.
func isPositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 1)
}
