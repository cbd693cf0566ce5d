package backtest

import (
	"time"

	"github.com/quantlab/meanrev/internal/core"
)

// RunParams holds the broker-side parameters of a single backtest run.
type RunParams struct {
	// InitialCash is the starting cash balance; must be positive.
	InitialCash float64
	// CommissionRate is the commission fraction charged on fills.
	CommissionRate float64
	// SlippageRate is the slippage fraction applied to fill prices.
	SlippageRate float64
	// Start and End bound the simulated date range, inclusive.
	// Zero values leave the corresponding side unbounded.
	Start time.Time
	End   time.Time
}

// OrderEvent classifies entries in the trade ledger.
type OrderEvent string

const (
	// EventCreated records a new order queued for the next bar.
	EventCreated OrderEvent = "created"
	// EventFilled records an executed order.
	EventFilled OrderEvent = "filled"
	// EventRejected records an order discarded for insufficient cash.
	EventRejected OrderEvent = "rejected"
)

// LedgerRow is the daily snapshot appended once per simulated bar.
// Rows are append-only and never mutated.
type LedgerRow struct {
	Date         time.Time
	Close        float64
	Rank         float64
	RankDefined  bool
	PositionSize int64
	Cash         float64
	Equity       float64
}

// TradeRow records an order lifecycle event: creation, fill or rejection.
type TradeRow struct {
	Date       time.Time
	Event      OrderEvent
	OrderID    string
	Side       core.Side
	Size       int64
	Price      float64 // fill price; zero for created/rejected rows
	Commission float64
	Cash       float64 // cash balance after the event
	Equity     float64 // equity after the event, at the bar's close
}

// Result holds the complete backtest output.
type Result struct {
	RunID     string
	Strategy  string
	StartDate time.Time
	EndDate   time.Time

	InitialEquity    float64
	FinalEquity      float64
	TotalReturn      float64
	AnnualizedReturn float64

	Rows   []LedgerRow
	Trades []TradeRow
	Stats  Stats
}

// Stats holds round-trip performance statistics.
type Stats struct {
	TotalTrades   int // completed round trips
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percentage of profitable round trips
	MaxDrawdown   float64 // largest peak-to-trough equity decline, percent
	SharpeRatio   float64 // annualized, risk-free rate 0
}
