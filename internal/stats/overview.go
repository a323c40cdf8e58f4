package stats

import (
	mstats "github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// StreakType tags the current streak.
type StreakType string

const (
	StreakNone StreakType = "none"
	StreakWin  StreakType = "win"
	StreakLoss StreakType = "loss"
)

// Streak is a run of consecutive winning or losing closed trades.
type Streak struct {
	Count int        `json:"count"`
	Type  StreakType `json:"type"`
}

// Overview holds the headline metrics. Rates are percentages in [0, 100].
// AvgLoss and GrossLoss are reported as absolute values; LargestLoss keeps
// its sign.
//
// ProfitFactor is GrossProfit/GrossLoss and PayoffRatio is AvgWin/AvgLoss.
// Both are 0 when the denominator is 0.
type Overview struct {
	TotalTrades     int     `json:"totalTrades"`
	OpenTrades      int     `json:"openTrades"`
	ClosedTrades    int     `json:"closedTrades"`
	WinningTrades   int     `json:"winningTrades"`
	LosingTrades    int     `json:"losingTrades"`
	BreakEvenTrades int     `json:"breakEvenTrades"`
	WinRate         float64 `json:"winRate"`
	LossRate        float64 `json:"lossRate"`
	BreakEvenRate   float64 `json:"breakEvenRate"`
	TotalPnL        float64 `json:"totalPnl"`
	GrossProfit     float64 `json:"grossProfit"`
	GrossLoss       float64 `json:"grossLoss"`
	AvgWin          float64 `json:"avgWin"`
	AvgLoss         float64 `json:"avgLoss"`
	ProfitFactor    float64 `json:"profitFactor"`
	PayoffRatio     float64 `json:"payoffRatio"`
	Expectancy      float64 `json:"expectancy"`
	LargestWin      float64 `json:"largestWin"`
	LargestLoss     float64 `json:"largestLoss"`
	MaxWinStreak    int     `json:"maxWinStreak"`
	MaxLossStreak   int     `json:"maxLossStreak"`
	CurrentStreak   Streak  `json:"currentStreak"`
	MaxDrawdown     float64 `json:"maxDrawdown"`
	TotalFees       float64 `json:"totalFees"`
	PnLStdDev       float64 `json:"pnlStdDev"`
	MedianPnL       float64 `json:"medianPnl"`
}

// overview reduces trades, which must already be in entry order.
func overview(trades []domain.Trade) Overview {
	var (
		ov                 Overview
		profit, loss, fees decimal.Decimal
		pnls               mstats.Float64Data
		current            = Streak{Type: StreakNone}
	)

	ov.TotalTrades = len(trades)
	for _, t := range trades {
		fees = fees.Add(decimal.NewFromFloat(t.Fees))
		if !t.IsClosed() {
			ov.OpenTrades++
			continue
		}
		ov.ClosedTrades++
		pnl := t.RealizedPnL()
		pnls = append(pnls, pnl)

		switch classify(pnl) {
		case outcomeWin:
			ov.WinningTrades++
			profit = profit.Add(decimal.NewFromFloat(pnl))
			if pnl > ov.LargestWin {
				ov.LargestWin = pnl
			}
			current = extend(current, StreakWin)
			if current.Count > ov.MaxWinStreak {
				ov.MaxWinStreak = current.Count
			}
		case outcomeLoss:
			ov.LosingTrades++
			loss = loss.Add(decimal.NewFromFloat(pnl))
			if pnl < ov.LargestLoss {
				ov.LargestLoss = pnl
			}
			current = extend(current, StreakLoss)
			if current.Count > ov.MaxLossStreak {
				ov.MaxLossStreak = current.Count
			}
		default:
			ov.BreakEvenTrades++
			current = Streak{Type: StreakNone}
		}
	}

	ov.CurrentStreak = current
	ov.WinRate = percent(ov.WinningTrades, ov.ClosedTrades)
	ov.LossRate = percent(ov.LosingTrades, ov.ClosedTrades)
	ov.BreakEvenRate = percent(ov.BreakEvenTrades, ov.ClosedTrades)

	ov.TotalPnL = profit.Add(loss).InexactFloat64()
	ov.GrossProfit = profit.InexactFloat64()
	ov.GrossLoss = loss.Abs().InexactFloat64()
	ov.TotalFees = fees.InexactFloat64()

	if ov.WinningTrades > 0 {
		ov.AvgWin = profit.Div(decimal.NewFromInt(int64(ov.WinningTrades))).InexactFloat64()
	}
	if ov.LosingTrades > 0 {
		ov.AvgLoss = loss.Abs().Div(decimal.NewFromInt(int64(ov.LosingTrades))).InexactFloat64()
	}
	ov.ProfitFactor = ratio(ov.GrossProfit, ov.GrossLoss)
	ov.PayoffRatio = ratio(ov.AvgWin, ov.AvgLoss)
	if ov.ClosedTrades > 0 {
		ov.Expectancy = profit.Add(loss).Div(decimal.NewFromInt(int64(ov.ClosedTrades))).InexactFloat64()
	}

	if len(pnls) > 0 {
		// Both only fail on empty input.
		ov.PnLStdDev, _ = pnls.StandardDeviation()
		ov.MedianPnL, _ = pnls.Median()
	}
	return ov
}

// extend continues s when it has type typ, otherwise starts a new streak.
func extend(s Streak, typ StreakType) Streak {
	if s.Type == typ {
		return Streak{Count: s.Count + 1, Type: typ}
	}
	return Streak{Count: 1, Type: typ}
}
