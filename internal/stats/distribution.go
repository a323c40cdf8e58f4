package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// Bucket is one histogram cell. PnL only accumulates closed trades.
type Bucket struct {
	Count int     `json:"count"`
	PnL   float64 `json:"pnl"`
}

// TimeDistribution buckets trades by their entry time. ByDayOfWeek starts on
// Sunday and ByMonth on January.
type TimeDistribution struct {
	ByHour      [24]Bucket `json:"byHour"`
	ByDayOfWeek [7]Bucket  `json:"byDayOfWeek"`
	ByMonth     [12]Bucket `json:"byMonth"`
}

func distribution(trades []domain.Trade, loc *time.Location) TimeDistribution {
	var (
		d       TimeDistribution
		hour    [24]decimal.Decimal
		weekday [7]decimal.Decimal
		month   [12]decimal.Decimal
	)
	for _, t := range trades {
		at := t.EntryDate.In(loc)
		h, wd, m := at.Hour(), int(at.Weekday()), int(at.Month())-1
		d.ByHour[h].Count++
		d.ByDayOfWeek[wd].Count++
		d.ByMonth[m].Count++
		if !t.IsClosed() {
			continue
		}
		pnl := decimal.NewFromFloat(t.RealizedPnL())
		hour[h] = hour[h].Add(pnl)
		weekday[wd] = weekday[wd].Add(pnl)
		month[m] = month[m].Add(pnl)
	}
	for i := range hour {
		d.ByHour[i].PnL = hour[i].InexactFloat64()
	}
	for i := range weekday {
		d.ByDayOfWeek[i].PnL = weekday[i].InexactFloat64()
	}
	for i := range month {
		d.ByMonth[i].PnL = month[i].InexactFloat64()
	}
	return d
}

// EquityPoint is the realised result of one exit day.
type EquityPoint struct {
	Date       string  `json:"date"`
	PnL        float64 `json:"pnl"`
	Cumulative float64 `json:"cumulative"`
}

// equityCurve groups closed trades by exit day (in loc) and accumulates their
// pnl in date order.
func equityCurve(trades []domain.Trade, loc *time.Location) []EquityPoint {
	byDay := make(map[string]decimal.Decimal)
	var days []string
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		day := t.ExitDate.In(loc).Format(time.DateOnly)
		sum, seen := byDay[day]
		if !seen {
			days = append(days, day)
		}
		byDay[day] = sum.Add(decimal.NewFromFloat(t.RealizedPnL()))
	}
	sort.Strings(days)

	curve := make([]EquityPoint, 0, len(days))
	cum := decimal.Zero
	for _, day := range days {
		cum = cum.Add(byDay[day])
		curve = append(curve, EquityPoint{
			Date:       day,
			PnL:        byDay[day].InexactFloat64(),
			Cumulative: cum.InexactFloat64(),
		})
	}
	return curve
}

// maxDrawdown is the largest drop from a running peak of the cumulative
// series. The peak starts at zero, so a losing first day counts as drawdown.
func maxDrawdown(curve []EquityPoint) float64 {
	peak, worst := 0.0, 0.0
	for _, p := range curve {
		if p.Cumulative > peak {
			peak = p.Cumulative
		}
		if dd := peak - p.Cumulative; dd > worst {
			worst = dd
		}
	}
	return worst
}
