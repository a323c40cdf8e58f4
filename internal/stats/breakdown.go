package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// NoStrategy labels trades recorded without a strategy.
const NoStrategy = "No Strategy"

// GroupStats summarises the trades sharing one symbol or strategy. Open
// trades count towards TotalTrades only; WinRate is over closed trades.
type GroupStats struct {
	TotalTrades int     `json:"totalTrades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	PnL         float64 `json:"pnl"`
	WinRate     float64 `json:"winRate"`
}

// SymbolStats is one row of the per-symbol breakdown.
type SymbolStats struct {
	Symbol string `json:"symbol"`
	GroupStats
}

// StrategyStats is one row of the per-strategy breakdown.
type StrategyStats struct {
	Strategy string `json:"strategy"`
	GroupStats
}

type groupAcc struct {
	total, closed, wins, losses int
	pnl                         decimal.Decimal
}

func (g *groupAcc) add(t domain.Trade) {
	g.total++
	if !t.IsClosed() {
		return
	}
	g.closed++
	pnl := t.RealizedPnL()
	g.pnl = g.pnl.Add(decimal.NewFromFloat(pnl))
	switch classify(pnl) {
	case outcomeWin:
		g.wins++
	case outcomeLoss:
		g.losses++
	}
}

func (g *groupAcc) stats() GroupStats {
	return GroupStats{
		TotalTrades: g.total,
		Wins:        g.wins,
		Losses:      g.losses,
		PnL:         g.pnl.InexactFloat64(),
		WinRate:     percent(g.wins, g.closed),
	}
}

// group accumulates trades under key(t) and returns the keys sorted by trade
// count descending, then key ascending.
func group(trades []domain.Trade, key func(domain.Trade) string) ([]string, map[string]*groupAcc) {
	groups := make(map[string]*groupAcc)
	for _, t := range trades {
		k := key(t)
		g, ok := groups[k]
		if !ok {
			g = &groupAcc{}
			groups[k] = g
		}
		g.add(t)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := groups[keys[i]].total, groups[keys[j]].total
		if ti != tj {
			return ti > tj
		}
		return keys[i] < keys[j]
	})
	return keys, groups
}

func bySymbol(trades []domain.Trade) []SymbolStats {
	keys, groups := group(trades, func(t domain.Trade) string { return t.Symbol })
	out := make([]SymbolStats, 0, len(keys))
	for _, k := range keys {
		out = append(out, SymbolStats{Symbol: k, GroupStats: groups[k].stats()})
	}
	return out
}

func byStrategy(trades []domain.Trade) []StrategyStats {
	keys, groups := group(trades, strategyKey)
	out := make([]StrategyStats, 0, len(keys))
	for _, k := range keys {
		out = append(out, StrategyStats{Strategy: k, GroupStats: groups[k].stats()})
	}
	return out
}

func strategyKey(t domain.Trade) string {
	if t.Strategy == "" {
		return NoStrategy
	}
	return t.Strategy
}
