package indicator

import (
	"github.com/quantlab/meanrev/internal/core"
)

// Percentile computes the rolling percentile rank of the closing price
// inside a trailing calendar-day window. The window is defined in calendar
// days but resolved against actual trading-day bars, so the number of bars
// it spans varies with weekends, holidays and data gaps.
type Percentile struct {
	lookbackDays int
	tradeDays    int
}

// NewPercentile creates a percentile indicator with the given lookback
// expressed in calendar days.
func NewPercentile(lookbackDays int) *Percentile {
	return &Percentile{lookbackDays: lookbackDays}
}

// TradeDays returns the number of bars currently inside the window,
// including the current bar. It is a cache of the window boundary; the
// source of truth is always the date comparison in Advance.
func (p *Percentile) TradeDays() int {
	return p.tradeDays
}

// Advance moves the indicator to bar i of the series and returns the
// percentile rank of bars[i].Close within [date-lookback, date], on a
// [0,1] scale. Ties count toward the rank. The second return value is
// false when history does not reach back to the window start; callers
// must treat that as "no signal", not as zero.
//
// The boundary moves monotonically forward with time, so the grow/shrink
// loops amortize to O(1) per bar.
func (p *Percentile) Advance(bars []core.Bar, i int) (float64, bool) {
	current := bars[i]
	windowStart := current.Date.AddDate(0, 0, -p.lookbackDays)

	// The window always contains at least the current bar.
	if p.tradeDays == 0 {
		p.tradeDays = 1
	}

	// Grow while the bar at the far edge is still inside the window
	// and more history remains.
	for p.tradeDays < i+1 && bars[i-p.tradeDays+1].Date.After(windowStart) {
		p.tradeDays++
	}

	// Shrink while the far edge has fallen out of the window, keeping
	// at least the current bar.
	for p.tradeDays > 1 && bars[i-p.tradeDays+1].Date.Before(windowStart) {
		p.tradeDays--
	}

	// Insufficient history: even the earliest bar is newer than the
	// window start.
	if bars[0].Date.After(windowStart) {
		return 0, false
	}

	return rank(bars[i-p.tradeDays+1:i+1], current.Close), true
}

// rank returns the fraction of closes in window that are <= value.
func rank(window []core.Bar, value float64) float64 {
	n := 0
	for _, b := range window {
		if b.Close <= value {
			n++
		}
	}
	return float64(n) / float64(len(window))
}

// WindowBars returns the set of bars of the series up to index i whose
// dates fall within the trailing window ending at bars[i]. It recomputes
// the boundary from scratch and exists for verification; Advance is the
// incremental equivalent.
func WindowBars(bars []core.Bar, i, lookbackDays int) []core.Bar {
	windowStart := bars[i].Date.AddDate(0, 0, -lookbackDays)
	var out []core.Bar
	for _, b := range bars[:i+1] {
		if !b.Date.Before(windowStart) {
			out = append(out, b)
		}
	}
	return out
}
