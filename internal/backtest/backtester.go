// Package backtest drives the bar-by-bar simulation loop: it resolves
// pending orders, advances the percentile indicator, lets the strategy
// decide, and records the daily and trade ledgers.
package backtest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantlab/meanrev/internal/broker"
	"github.com/quantlab/meanrev/internal/core"
	"github.com/quantlab/meanrev/internal/indicator"
	"github.com/quantlab/meanrev/internal/metrics"
	"github.com/quantlab/meanrev/internal/strategy"
)

// Backtester runs strategy backtests against historical bar series.
// Each Run owns its account, indicator and ledgers; a Backtester may be
// reused across runs but never concurrently.
type Backtester struct {
	logger  *zap.Logger
	metrics *metrics.Registry
}

// New creates a Backtester. Both arguments may be nil.
func New(logger *zap.Logger, reg *metrics.Registry) *Backtester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{
		logger:  logger,
		metrics: reg,
	}
}

// Run replays the bar series through the strategy, strictly sequentially
// and in ascending date order. Orders created on bar t execute against
// bar t+1's open; at most one order is in flight at any time.
//
// Fatal conditions (malformed series, empty range, non-positive cash)
// abort before the first bar. Order rejections and undefined indicator
// values are recoverable: they are logged and the replay continues.
func (bt *Backtester) Run(ctx context.Context, strat strategy.Strategy, bars []core.Bar, params RunParams) (*Result, error) {
	started := time.Now()

	res, err := bt.run(ctx, strat, bars, params)

	if bt.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		name := ""
		if strat != nil {
			name = strat.Name()
		}
		bt.metrics.ObserveBacktest(name, status, time.Since(started).Seconds())
	}
	return res, err
}

func (bt *Backtester) run(ctx context.Context, strat strategy.Strategy, bars []core.Bar, params RunParams) (*Result, error) {
	if err := core.ValidateSeries(bars); err != nil {
		return nil, err
	}

	bars = core.FilterRange(bars, params.Start, params.End)
	if len(bars) == 0 {
		return nil, core.ErrEmptySeries
	}

	account, err := broker.NewAccount(params.InitialCash, params.CommissionRate, params.SlippageRate)
	if err != nil {
		return nil, err
	}

	ind := indicator.NewPercentile(strat.LookbackDays())

	var (
		pending *broker.Order
		rows    = make([]LedgerRow, 0, len(bars))
		trades  []TradeRow
	)

	for i := range bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		b := bars[i]

		// Step 1: resolve the order queued on the previous bar.
		if pending != nil {
			trades = append(trades, bt.resolve(account, strat, pending, b))
			pending = nil
		}

		// Step 2: advance the indicator.
		rank, rankOK := ind.Advance(bars, i)

		// Step 3: let the strategy observe and possibly queue an order.
		order, evalErr := strat.Evaluate(strategy.EvalContext{
			Bars:           bars,
			Index:          i,
			Rank:           rank,
			RankOK:         rankOK,
			Cash:           account.Cash(),
			CommissionRate: account.CommissionRate(),
			Position:       account.Position(),
			OrderPending:   false,
		})
		if evalErr != nil {
			bt.logger.Warn("strategy evaluation failed",
				zap.String("strategy", strat.Name()),
				zap.String("date", b.Date.Format("2006-01-02")),
				zap.Error(evalErr),
			)
		} else if order != nil {
			pending = order
			trades = append(trades, TradeRow{
				Date:    b.Date,
				Event:   EventCreated,
				OrderID: order.ID,
				Side:    order.Side,
				Size:    order.Size,
				Cash:    account.Cash(),
				Equity:  account.Equity(b.Close),
			})
			if bt.metrics != nil {
				bt.metrics.CountOrder(string(order.Side), string(EventCreated))
			}
		}

		// Step 4: daily snapshot.
		rows = append(rows, LedgerRow{
			Date:         b.Date,
			Close:        b.Close,
			Rank:         rank,
			RankDefined:  rankOK,
			PositionSize: account.Position().Size,
			Cash:         account.Cash(),
			Equity:       account.Equity(b.Close),
		})
	}

	if bt.metrics != nil {
		bt.metrics.AddBars(len(bars))
	}

	start, end := params.Start, params.End
	if start.IsZero() {
		start = bars[0].Date
	}
	if end.IsZero() {
		end = bars[len(bars)-1].Date
	}

	finalEquity := account.Equity(bars[len(bars)-1].Close)
	total, annualized := Summarize(params.InitialCash, finalEquity, start, end)

	return &Result{
		RunID:            uuid.NewString(),
		Strategy:         strat.Name(),
		StartDate:        start,
		EndDate:          end,
		InitialEquity:    params.InitialCash,
		FinalEquity:      finalEquity,
		TotalReturn:      total,
		AnnualizedReturn: annualized,
		Rows:             rows,
		Trades:           trades,
		Stats:            CalculateStats(trades, rows),
	}, nil
}

// resolve executes a pending order against the current bar. Fills notify
// the strategy; rejections only log. After a rejection the strategy state
// is what it was before the order, and the signal may recur on a later bar.
func (bt *Backtester) resolve(account *broker.Account, strat strategy.Strategy, order *broker.Order, b core.Bar) TradeRow {
	fill, err := account.Fill(order, b)
	if err != nil {
		if errors.Is(err, broker.ErrInsufficientFunds) {
			bt.logger.Warn("order rejected",
				zap.String("date", b.Date.Format("2006-01-02")),
				zap.String("side", string(order.Side)),
				zap.Int64("shares", order.Size),
				zap.Float64("open", b.Open),
				zap.Float64("cash", account.Cash()),
			)
		} else {
			// Oversized sells and the like are state machine bugs;
			// they must be surfaced loudly, never clamped.
			bt.logger.Error("order resolution failed",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
		if bt.metrics != nil {
			bt.metrics.CountOrder(string(order.Side), string(EventRejected))
		}
		return TradeRow{
			Date:    b.Date,
			Event:   EventRejected,
			OrderID: order.ID,
			Side:    order.Side,
			Size:    order.Size,
			Cash:    account.Cash(),
			Equity:  account.Equity(b.Close),
		}
	}

	strat.NotifyFill(fill)
	if bt.metrics != nil {
		bt.metrics.CountOrder(string(order.Side), string(EventFilled))
	}
	return TradeRow{
		Date:       b.Date,
		Event:      EventFilled,
		OrderID:    order.ID,
		Side:       fill.Side,
		Size:       fill.Size,
		Price:      fill.Price,
		Commission: fill.Commission,
		Cash:       account.Cash(),
		Equity:     account.Equity(b.Close),
	}
}
