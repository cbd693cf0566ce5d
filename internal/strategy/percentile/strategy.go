// Package percentile implements a daily-bar mean-reversion strategy: buy
// when the close ranks low inside a trailing calendar-day window, exit on
// take-profit or stop-loss, then wait out a cooldown before re-entering.
package percentile

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/quantlab/meanrev/internal/broker"
	"github.com/quantlab/meanrev/internal/core"
	"github.com/quantlab/meanrev/internal/strategy"
)

// SizingMode selects how buy orders are sized.
type SizingMode string

const (
	// SizeMinAmount buys the smallest share count whose notional exceeds
	// the configured min_amount floor.
	SizeMinAmount SizingMode = "min_amount"
	// SizeMaxCash buys the largest share count affordable with current
	// cash, commission included.
	SizeMaxCash SizingMode = "max_cash"
)

// Strategy is the percentile mean-reversion state machine. It is in one
// of three states each bar: flat, cooling (flat with an active cooldown
// timer) or long. The simulation loop overlays the single-order-in-flight
// invariant on top via EvalContext.OrderPending.
type Strategy struct {
	lookbackDays     int
	threshold        float64 // percentile entry threshold on [0,1]
	profitThreshold  float64 // take-profit fraction
	maxLossThreshold float64 // stop-loss fraction
	coolingDays      int
	minAmount        float64
	sizing           SizingMode

	// lastSell is the date of the most recent sell fill; zero when no
	// cooldown is active.
	lastSell time.Time

	logger *zap.Logger
}

// New creates the strategy with defaults matching the reference profile.
func New(logger ...*zap.Logger) *Strategy {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Strategy{
		lookbackDays:     365,
		threshold:        0.10,
		profitThreshold:  0.15,
		maxLossThreshold: 0.08,
		coolingDays:      3,
		minAmount:        10000,
		sizing:           SizeMinAmount,
		logger:           l,
	}
}

func (s *Strategy) Name() string {
	return "percentile"
}

func (s *Strategy) Description() string {
	return fmt.Sprintf("Percentile mean reversion (%dd lookback, entry < %.1f%%)",
		s.lookbackDays, s.threshold*100)
}

func (s *Strategy) LookbackDays() int {
	return s.lookbackDays
}

// Init applies configuration parameters. Unknown keys are ignored.
func (s *Strategy) Init(cfg strategy.Config) error {
	if v, ok := intParam(cfg.Params, "lookback_days"); ok {
		s.lookbackDays = v
	}
	if v, ok := floatParam(cfg.Params, "percentile_threshold"); ok {
		s.threshold = v
	}
	if v, ok := floatParam(cfg.Params, "profit_threshold"); ok {
		s.profitThreshold = v
	}
	if v, ok := floatParam(cfg.Params, "max_loss_threshold"); ok {
		s.maxLossThreshold = v
	}
	if v, ok := intParam(cfg.Params, "cooling_days"); ok {
		s.coolingDays = v
	}
	if v, ok := floatParam(cfg.Params, "min_amount"); ok {
		s.minAmount = v
	}
	if v, ok := cfg.Params["sizing"].(string); ok {
		switch SizingMode(v) {
		case SizeMinAmount, SizeMaxCash:
			s.sizing = SizingMode(v)
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown sizing mode %q", v))
		}
	}

	if s.lookbackDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback_days must be positive, got %d", s.lookbackDays))
	}
	if s.coolingDays < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cooling_days cannot be negative, got %d", s.coolingDays))
	}

	// Re-running Init resets carried state for a fresh run.
	s.lastSell = time.Time{}

	return nil
}

// Evaluate runs one step of the state machine. It emits at most one order
// and never acts while an earlier order is unresolved.
func (s *Strategy) Evaluate(ctx strategy.EvalContext) (*broker.Order, error) {
	if ctx.OrderPending {
		return nil, nil
	}

	b := ctx.Bar()

	if ctx.Position.IsFlat() {
		if s.cooling(b.Date) {
			return nil, nil
		}
		return s.evaluateEntry(ctx, b)
	}

	return s.evaluateExit(ctx, b)
}

// cooling advances the cooldown timer. The bar on which the timer expires
// produces no order; entry is re-evaluated from the next bar on.
func (s *Strategy) cooling(date time.Time) bool {
	if s.lastSell.IsZero() {
		return false
	}
	if core.CalendarDays(s.lastSell, date) >= s.coolingDays {
		s.lastSell = time.Time{}
	}
	return true
}

func (s *Strategy) evaluateEntry(ctx strategy.EvalContext, b core.Bar) (*broker.Order, error) {
	if !ctx.RankOK {
		// Indicator not ready: no signal, not an error.
		return nil, nil
	}
	if ctx.Rank >= s.threshold {
		return nil, nil
	}

	size := s.buySize(b.Close, ctx.Cash, ctx.CommissionRate)
	if size <= 0 {
		return nil, nil
	}

	s.logger.Info("buy created",
		zap.String("date", b.Date.Format("2006-01-02")),
		zap.Int64("shares", size),
		zap.Float64("close", b.Close),
		zap.Float64("rank", ctx.Rank),
	)
	return broker.NewOrder(core.SideBuy, size, ctx.Index, b.Date)
}

func (s *Strategy) evaluateExit(ctx strategy.EvalContext, b core.Bar) (*broker.Order, error) {
	ratio := ctx.Position.ProfitRatio(b.Close)

	// Take-profit is checked before stop-loss; with sane thresholds the
	// two cannot fire on the same bar.
	var reason string
	switch {
	case ratio > s.profitThreshold:
		reason = "take_profit"
	case ratio < -s.maxLossThreshold:
		reason = "stop_loss"
	default:
		return nil, nil
	}

	s.logger.Info("sell created",
		zap.String("date", b.Date.Format("2006-01-02")),
		zap.Int64("shares", ctx.Position.Size),
		zap.Float64("close", b.Close),
		zap.Float64("profit_ratio", ratio),
		zap.String("reason", reason),
	)
	return broker.NewOrder(core.SideSell, ctx.Position.Size, ctx.Index, b.Date)
}

// buySize computes the order size for an entry signal at the given close.
func (s *Strategy) buySize(price, cash, commissionRate float64) int64 {
	switch s.sizing {
	case SizeMaxCash:
		// Largest integer share count whose cost, commission included,
		// fits in cash. The next bar's open can still gap beyond this
		// estimate; such orders are rejected and re-signaled later.
		return int64(math.Floor(cash / (price * (1 + commissionRate))))
	default:
		// Smallest share count whose notional exceeds the floor.
		return int64(s.minAmount/price) + 1
	}
}

// NotifyFill starts the cooldown timer on every completed sell.
func (s *Strategy) NotifyFill(fill *broker.Fill) {
	if fill == nil {
		return
	}
	if fill.Side == core.SideSell {
		s.lastSell = fill.Date
	}
	s.logger.Info("order executed",
		zap.String("date", fill.Date.Format("2006-01-02")),
		zap.String("side", string(fill.Side)),
		zap.Int64("shares", fill.Size),
		zap.Float64("price", fill.Price),
		zap.Float64("commission", fill.Commission),
	)
}
