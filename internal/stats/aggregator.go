// Package stats computes read-only performance summaries over a set of
// journal trades. Every function here is pure: the caller loads and filters
// the trades, the package only reduces them.
package stats

import (
	"sort"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// Summary is the full statistics payload served by the API.
type Summary struct {
	Overview         Overview         `json:"overview"`
	Symbols          []SymbolStats    `json:"symbols"`
	Strategies       []StrategyStats  `json:"strategies"`
	TimeDistribution TimeDistribution `json:"timeDistribution"`
	EquityCurve      []EquityPoint    `json:"equityCurve"`
}

// Aggregator reduces trades to a Summary. It holds no mutable state and is
// safe for concurrent use.
type Aggregator struct {
	loc *time.Location
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLocation sets the time zone used to bucket trades by hour, weekday,
// month and equity day. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{loc: time.UTC}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Compute builds the summary for trades. The input slice is not modified. An
// empty input yields a zero summary with empty (non-nil) lists.
func (a *Aggregator) Compute(trades []domain.Trade) Summary {
	ordered := sortByEntry(trades)
	curve := equityCurve(ordered, a.loc)

	ov := overview(ordered)
	ov.MaxDrawdown = maxDrawdown(curve)

	return Summary{
		Overview:         ov,
		Symbols:          bySymbol(ordered),
		Strategies:       byStrategy(ordered),
		TimeDistribution: distribution(ordered, a.loc),
		EquityCurve:      curve,
	}
}

// sortByEntry returns a copy of trades ordered by entry date, ties broken by
// ID so that equal timestamps still give a stable sequence.
func sortByEntry(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// outcome classifies a closed trade.
type outcome int

const (
	outcomeBreakEven outcome = iota
	outcomeWin
	outcomeLoss
)

func classify(pnl float64) outcome {
	switch {
	case pnl > 0:
		return outcomeWin
	case pnl < 0:
		return outcomeLoss
	default:
		return outcomeBreakEven
	}
}

// ratio returns num/den, or 0 when den is zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// percent returns part/whole*100, or 0 when whole is zero.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
