package core

import "time"

// Bar represents one day's aggregated OHLCV price record.
// Bars are immutable once loaded.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// IsValid checks if the bar has required fields.
func (b Bar) IsValid() bool {
	return !b.Date.IsZero() &&
		b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 &&
		b.Volume >= 0
}

// Side represents the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ValidateSeries checks that bars form a usable backtest series:
// non-empty, every bar well-formed, dates strictly increasing.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range bars {
		if !b.IsValid() {
			return ErrInvalidDataFormat
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return ErrInvalidDataFormat
		}
	}
	return nil
}

// FilterRange returns the bars whose dates fall within [start, end] inclusive.
// A zero start or end leaves that side unbounded.
func FilterRange(bars []Bar, start, end time.Time) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Date.Before(start) {
			continue
		}
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// CalendarDays returns the number of whole calendar days from a to b.
func CalendarDays(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
