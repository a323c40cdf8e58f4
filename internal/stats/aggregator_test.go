package stats

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

var day0 = time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

// closed builds a closed trade with the given pnl entered on day n and exited
// the same day.
func closed(id, symbol string, n int, pnl float64) domain.Trade {
	exit := day(n).Add(time.Hour)
	price := 100.0
	return domain.Trade{
		ID:         id,
		Symbol:     symbol,
		Direction:  domain.DirectionLong,
		Quantity:   1,
		EntryPrice: price,
		EntryDate:  day(n),
		ExitPrice:  &price,
		ExitDate:   &exit,
		PnL:        &pnl,
	}
}

func open(id, symbol string, n int) domain.Trade {
	return domain.Trade{
		ID:         id,
		Symbol:     symbol,
		Direction:  domain.DirectionShort,
		Quantity:   1,
		EntryPrice: 50,
		EntryDate:  day(n),
	}
}

func TestComputeEmpty(t *testing.T) {
	s := NewAggregator().Compute(nil)

	assert.Equal(t, Overview{CurrentStreak: Streak{Type: StreakNone}}, s.Overview)
	assert.NotNil(t, s.Symbols)
	assert.Empty(t, s.Symbols)
	assert.NotNil(t, s.Strategies)
	assert.Empty(t, s.EquityCurve)
	assert.Equal(t, TimeDistribution{}, s.TimeDistribution)
}

func TestStreakScenario(t *testing.T) {
	trades := []domain.Trade{
		closed("c", "X", 3, -3),
		closed("a", "X", 1, 10),
		closed("b", "X", 2, 5),
	}
	ov := NewAggregator().Compute(trades).Overview

	assert.Equal(t, 2, ov.MaxWinStreak)
	assert.Equal(t, 1, ov.MaxLossStreak)
	assert.Equal(t, Streak{Count: 1, Type: StreakLoss}, ov.CurrentStreak)
}

func TestBreakEvenResetsStreak(t *testing.T) {
	trades := []domain.Trade{
		closed("1", "X", 1, 10),
		closed("2", "X", 2, 10),
		closed("3", "X", 3, 0),
		closed("4", "X", 4, 10),
		open("5", "X", 5),
	}
	ov := NewAggregator().Compute(trades).Overview

	assert.Equal(t, 2, ov.MaxWinStreak)
	assert.Equal(t, Streak{Count: 1, Type: StreakWin}, ov.CurrentStreak)
	assert.Equal(t, 1, ov.BreakEvenTrades)
	assert.Equal(t, 1, ov.OpenTrades)
	assert.Equal(t, 4, ov.ClosedTrades)
	assert.Equal(t, 5, ov.TotalTrades)

	ov = NewAggregator().Compute(trades[:3]).Overview
	assert.Equal(t, Streak{Count: 0, Type: StreakNone}, ov.CurrentStreak)
}

func TestStreakTieBreakByID(t *testing.T) {
	same := day(1)
	a := closed("a", "X", 1, -1)
	b := closed("b", "X", 1, 1)
	a.EntryDate, b.EntryDate = same, same

	ov := NewAggregator().Compute([]domain.Trade{b, a}).Overview
	assert.Equal(t, Streak{Count: 1, Type: StreakWin}, ov.CurrentStreak)
}

func TestOverviewMetrics(t *testing.T) {
	trades := []domain.Trade{
		closed("1", "AAPL", 1, 100),
		closed("2", "AAPL", 2, -40),
		closed("3", "MSFT", 3, 50),
		closed("4", "MSFT", 4, -10),
		closed("5", "TSLA", 5, 0),
		open("6", "TSLA", 6),
	}
	trades[0].Fees = 1.5
	trades[5].Fees = 0.5

	ov := NewAggregator().Compute(trades).Overview

	assert.Equal(t, 2, ov.WinningTrades)
	assert.Equal(t, 2, ov.LosingTrades)
	assert.InDelta(t, 40.0, ov.WinRate, 1e-9)
	assert.InDelta(t, 40.0, ov.LossRate, 1e-9)
	assert.InDelta(t, 20.0, ov.BreakEvenRate, 1e-9)
	assert.Equal(t, 100.0, ov.TotalPnL)
	assert.Equal(t, 150.0, ov.GrossProfit)
	assert.Equal(t, 50.0, ov.GrossLoss)
	assert.Equal(t, 75.0, ov.AvgWin)
	assert.Equal(t, 25.0, ov.AvgLoss)
	assert.Equal(t, 3.0, ov.ProfitFactor)
	assert.Equal(t, 3.0, ov.PayoffRatio)
	assert.Equal(t, 20.0, ov.Expectancy)
	assert.Equal(t, 100.0, ov.LargestWin)
	assert.Equal(t, -40.0, ov.LargestLoss)
	assert.Equal(t, 2.0, ov.TotalFees)
	assert.Equal(t, 0.0, ov.MedianPnL)
	assert.Greater(t, ov.PnLStdDev, 0.0)
	// cumulative: 100, 60, 110, 100, 100
	assert.Equal(t, 40.0, ov.MaxDrawdown)
}

func TestRatiosWithoutLosses(t *testing.T) {
	ov := NewAggregator().Compute([]domain.Trade{closed("1", "X", 1, 10)}).Overview
	assert.Equal(t, 0.0, ov.ProfitFactor)
	assert.Equal(t, 0.0, ov.PayoffRatio)
	assert.Equal(t, 0.0, ov.AvgLoss)
	assert.Equal(t, 0.0, ov.LargestLoss)

	_, err := json.Marshal(ov)
	require.NoError(t, err)
}

func TestSymbolGroupingScenario(t *testing.T) {
	trades := []domain.Trade{
		closed("1", "AAPL", 1, 50),
		closed("2", "AAPL", 2, -20),
		closed("3", "MSFT", 3, 30),
	}
	s := NewAggregator().Compute(trades)

	require.Len(t, s.Symbols, 2)
	assert.Equal(t, SymbolStats{Symbol: "AAPL", GroupStats: GroupStats{TotalTrades: 2, Wins: 1, Losses: 1, PnL: 30, WinRate: 50}}, s.Symbols[0])
	assert.Equal(t, SymbolStats{Symbol: "MSFT", GroupStats: GroupStats{TotalTrades: 1, Wins: 1, Losses: 0, PnL: 30, WinRate: 100}}, s.Symbols[1])

	raw, err := json.Marshal(s.Symbols[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"AAPL","totalTrades":2,"wins":1,"losses":1,"pnl":30,"winRate":50}`, string(raw))
}

func TestStrategyBreakdownCountsOpenTrades(t *testing.T) {
	a := closed("1", "X", 1, 10)
	a.Strategy = "Breakout"
	b := open("2", "X", 2)
	b.Strategy = "Breakout"
	c := closed("3", "X", 3, -5)

	s := NewAggregator().Compute([]domain.Trade{a, b, c})
	require.Len(t, s.Strategies, 2)
	assert.Equal(t, "Breakout", s.Strategies[0].Strategy)
	assert.Equal(t, GroupStats{TotalTrades: 2, Wins: 1, PnL: 10, WinRate: 100}, s.Strategies[0].GroupStats)
	assert.Equal(t, NoStrategy, s.Strategies[1].Strategy)
	assert.Equal(t, GroupStats{TotalTrades: 1, Losses: 1, PnL: -5}, s.Strategies[1].GroupStats)
}

func TestTimeDistribution(t *testing.T) {
	// 2024-01-01 is a Monday.
	trades := []domain.Trade{
		closed("1", "X", 0, 10),
		open("2", "X", 0),
		closed("3", "X", 40, -4),
	}
	d := NewAggregator().Compute(trades).TimeDistribution

	assert.Equal(t, Bucket{Count: 2, PnL: 10}, d.ByDayOfWeek[1])
	assert.Equal(t, Bucket{Count: 1, PnL: -4}, d.ByDayOfWeek[6])
	assert.Equal(t, Bucket{Count: 3, PnL: 6}, d.ByHour[14])
	assert.Equal(t, Bucket{Count: 2, PnL: 10}, d.ByMonth[0])
	assert.Equal(t, Bucket{Count: 1, PnL: -4}, d.ByMonth[1])
}

func TestTimeDistributionLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	d := NewAggregator(WithLocation(tokyo)).Compute([]domain.Trade{open("1", "X", 0)}).TimeDistribution
	assert.Equal(t, 1, d.ByHour[23].Count)
}

func TestEquityCurve(t *testing.T) {
	a := closed("1", "X", 1, 10)
	b := closed("2", "X", 1, -4)
	c := closed("3", "X", 3, 7)
	curve := NewAggregator().Compute([]domain.Trade{c, a, b, open("4", "X", 2)}).EquityCurve

	require.Len(t, curve, 2)
	assert.Equal(t, EquityPoint{Date: "2024-01-02", PnL: 6, Cumulative: 6}, curve[0])
	assert.Equal(t, EquityPoint{Date: "2024-01-04", PnL: 7, Cumulative: 13}, curve[1])
}

func randomTrades(r *rand.Rand, n int) []domain.Trade {
	trades := make([]domain.Trade, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("t%03d", i)
		if r.Intn(5) == 0 {
			trades = append(trades, open(id, "S", r.Intn(60)))
			continue
		}
		pnl := float64(r.Intn(201)-100) / 4
		trades = append(trades, closed(id, fmt.Sprintf("S%d", r.Intn(4)), r.Intn(60), pnl))
	}
	return trades
}

func TestAggregatorProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	agg := NewAggregator()

	for i := 0; i < 50; i++ {
		trades := randomTrades(r, r.Intn(40))
		s := agg.Compute(trades)
		ov := s.Overview

		if ov.ClosedTrades == 0 {
			assert.Zero(t, ov.WinRate+ov.LossRate+ov.BreakEvenRate)
		} else {
			assert.InDelta(t, 100.0, ov.WinRate+ov.LossRate+ov.BreakEvenRate, 1e-9)
		}
		assert.InDelta(t, ov.GrossProfit-ov.GrossLoss, ov.TotalPnL, 1e-9)
		assert.Equal(t, ov.ClosedTrades, ov.WinningTrades+ov.LosingTrades+ov.BreakEvenTrades)

		again := agg.Compute(trades)
		assert.Equal(t, s, again)
	}
}
