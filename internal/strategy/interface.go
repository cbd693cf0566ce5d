package strategy

import (
	"github.com/quantlab/meanrev/internal/broker"
	"github.com/quantlab/meanrev/internal/core"
)

// Config holds strategy configuration
type Config struct {
	Params map[string]any
}

// EvalContext provides per-bar data to strategies. The bar slice is the
// full history up to and including the current bar; strategies must not
// mutate it.
type EvalContext struct {
	Bars  []core.Bar
	Index int

	// Rank is the percentile indicator value for the current bar.
	// RankOK is false while the lookback window lacks history; strategies
	// must treat that as "no signal".
	Rank   float64
	RankOK bool

	// Account snapshot as of this bar, before any new order.
	Cash           float64
	CommissionRate float64
	Position       broker.Position

	// OrderPending is true while an order from an earlier bar has not
	// yet been resolved. At most one order is in flight at a time.
	OrderPending bool
}

// Bar returns the current bar.
func (c EvalContext) Bar() core.Bar {
	return c.Bars[c.Index]
}

// Strategy defines the interface for backtestable trading strategies.
type Strategy interface {
	Name() string
	Description() string

	// LookbackDays reports the calendar-day window the percentile
	// indicator should cover for this strategy.
	LookbackDays() int

	Init(cfg Config) error

	// Evaluate observes the current bar and returns at most one order
	// to queue for execution at the next bar, or nil for no action.
	Evaluate(ctx EvalContext) (*broker.Order, error)

	// NotifyFill informs the strategy that an order it created has
	// executed. Rejected orders produce no notification; the strategy
	// simply re-evaluates on later bars.
	NotifyFill(fill *broker.Fill)
}
