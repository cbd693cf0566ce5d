package backtest

import (
	"math"
	"time"

	"github.com/quantlab/meanrev/internal/core"
)

// tradingDaysPerYear is the annualization factor used for returns.
const tradingDaysPerYear = 252

// Summarize derives the headline return figures from initial and final
// equity and the elapsed calendar span. The computation is a pure
// function: re-running it on the same inputs always yields the same
// result.
func Summarize(initial, final float64, start, end time.Time) (total, annualized float64) {
	total = (final - initial) / initial
	if days := core.CalendarDays(start, end); days > 0 {
		annualized = total * tradingDaysPerYear / float64(days)
	}
	return total, annualized
}

// CalculateStats computes round-trip and equity-curve statistics from the
// two ledgers of a finished run.
func CalculateStats(trades []TradeRow, rows []LedgerRow) Stats {
	returns := roundTripReturns(trades)

	var winning, losing int
	for _, r := range returns {
		if r > 0 {
			winning++
		} else {
			losing++
		}
	}

	var winRate float64
	if len(returns) > 0 {
		winRate = float64(winning) / float64(len(returns)) * 100
	}

	return Stats{
		TotalTrades:   len(returns),
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       winRate,
		MaxDrawdown:   maxDrawdown(rows) * 100,
		SharpeRatio:   sharpeRatio(rows),
	}
}

// roundTripReturns pairs buy fills with the sell fills that flatten the
// position and returns the fractional return of each completed round trip.
func roundTripReturns(trades []TradeRow) []float64 {
	var (
		returns  []float64
		held     int64
		avgEntry float64
	)

	for _, t := range trades {
		if t.Event != EventFilled {
			continue
		}
		switch t.Side {
		case core.SideBuy:
			total := avgEntry*float64(held) + t.Price*float64(t.Size)
			held += t.Size
			avgEntry = total / float64(held)
		case core.SideSell:
			if held == 0 || avgEntry == 0 {
				continue
			}
			returns = append(returns, (t.Price-avgEntry)/avgEntry)
			held -= t.Size
			if held <= 0 {
				held = 0
				avgEntry = 0
			}
		}
	}
	return returns
}

// maxDrawdown finds the largest peak-to-trough decline of the equity curve.
func maxDrawdown(rows []LedgerRow) float64 {
	var maxDD, peak float64
	for _, r := range rows {
		if r.Equity > peak {
			peak = r.Equity
		}
		if peak > 0 {
			dd := (peak - r.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio computes the annualized risk-adjusted return of the daily
// equity curve. Assumes risk-free rate of 0.
func sharpeRatio(rows []LedgerRow) float64 {
	if len(rows) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Equity == 0 {
			continue
		}
		returns = append(returns, rows[i].Equity/rows[i-1].Equity-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))
	if stdDev == 0 {
		return 0
	}

	return mean * tradingDaysPerYear / (stdDev * math.Sqrt(tradingDaysPerYear))
}
