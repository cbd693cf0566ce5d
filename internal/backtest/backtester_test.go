package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/quantlab/meanrev/internal/broker"
	"github.com/quantlab/meanrev/internal/core"
	"github.com/quantlab/meanrev/internal/strategy"
	"github.com/quantlab/meanrev/internal/strategy/percentile"
)

func day(d int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func mkBar(d int, open, close float64) core.Bar {
	hi, lo := open, open
	if close > hi {
		hi = close
	}
	if close < lo {
		lo = close
	}
	return core.Bar{Date: day(d), Open: open, High: hi, Low: lo, Close: close, Volume: 1000}
}

// scriptStrategy emits a fixed order at scripted bar indexes.
type scriptStrategy struct {
	lookback int
	script   map[int]core.Side
	size     int64
	fills    []*broker.Fill
}

func (s *scriptStrategy) Name() string          { return "script" }
func (s *scriptStrategy) Description() string   { return "scripted orders for testing" }
func (s *scriptStrategy) LookbackDays() int     { return s.lookback }
func (s *scriptStrategy) Init(strategy.Config) error { return nil }

func (s *scriptStrategy) Evaluate(ctx strategy.EvalContext) (*broker.Order, error) {
	side, ok := s.script[ctx.Index]
	if !ok {
		return nil, nil
	}
	return broker.NewOrder(side, s.size, ctx.Index, ctx.Bar().Date)
}

func (s *scriptStrategy) NotifyFill(fill *broker.Fill) {
	s.fills = append(s.fills, fill)
}

// greedyStrategy tries to buy on every single bar.
type greedyStrategy struct {
	scriptStrategy
}

func (g *greedyStrategy) Evaluate(ctx strategy.EvalContext) (*broker.Order, error) {
	return broker.NewOrder(core.SideBuy, 1, ctx.Index, ctx.Bar().Date)
}

func flatSeries(n int, price float64) []core.Bar {
	bars := make([]core.Bar, n)
	for i := range bars {
		bars[i] = mkBar(i, price, price)
	}
	return bars
}

func TestRun_FatalPreChecks(t *testing.T) {
	bt := New(nil, nil)
	strat := &scriptStrategy{lookback: 5}

	_, err := bt.Run(context.Background(), strat, nil, RunParams{InitialCash: 1000})
	if !errors.Is(err, core.ErrEmptySeries) {
		t.Errorf("empty series: got %v, want ErrEmptySeries", err)
	}

	bars := flatSeries(5, 100)
	_, err = bt.Run(context.Background(), strat, bars, RunParams{InitialCash: 0})
	if !errors.Is(err, core.ErrInvalidCash) {
		t.Errorf("zero cash: got %v, want ErrInvalidCash", err)
	}

	bad := flatSeries(3, 100)
	bad[1].Close = 0
	_, err = bt.Run(context.Background(), strat, bad, RunParams{InitialCash: 1000})
	if !errors.Is(err, core.ErrInvalidDataFormat) {
		t.Errorf("malformed bar: got %v, want ErrInvalidDataFormat", err)
	}

	// Date range excluding every bar is as fatal as an empty series.
	_, err = bt.Run(context.Background(), strat, bars, RunParams{
		InitialCash: 1000,
		Start:       day(100),
	})
	if !errors.Is(err, core.ErrEmptySeries) {
		t.Errorf("empty range: got %v, want ErrEmptySeries", err)
	}
}

func TestRun_OrdersExecuteNextBar(t *testing.T) {
	bars := []core.Bar{
		mkBar(0, 100, 100),
		mkBar(1, 100, 100),
		mkBar(2, 105, 104), // fill bar
		mkBar(3, 104, 104),
	}
	strat := &scriptStrategy{lookback: 1, script: map[int]core.Side{1: core.SideBuy}, size: 10}
	bt := New(nil, nil)

	res, err := bt.Run(context.Background(), strat, bars, RunParams{InitialCash: 10000})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(strat.fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(strat.fills))
	}
	fill := strat.fills[0]
	if !fill.Date.Equal(day(2)) {
		t.Errorf("fill date = %v, want bar after signal", fill.Date)
	}
	if fill.Price != 105 {
		t.Errorf("fill price = %f, want next bar open 105", fill.Price)
	}

	// Ledger: created on bar 1, filled on bar 2.
	var created, filled *TradeRow
	for i := range res.Trades {
		switch res.Trades[i].Event {
		case EventCreated:
			created = &res.Trades[i]
		case EventFilled:
			filled = &res.Trades[i]
		}
	}
	if created == nil || !created.Date.Equal(day(1)) {
		t.Error("expected created event on signal bar")
	}
	if filled == nil || !filled.Date.Equal(day(2)) {
		t.Error("expected filled event on the following bar")
	}
}

func TestRun_SingleOrderInFlight(t *testing.T) {
	bars := flatSeries(8, 100)
	strat := &greedyStrategy{scriptStrategy{lookback: 1}}
	bt := New(nil, nil)

	res, err := bt.Run(context.Background(), strat, bars, RunParams{InitialCash: 100000})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// However greedy the strategy, every created order must be resolved
	// before the next one is created.
	pending := 0
	for _, tr := range res.Trades {
		switch tr.Event {
		case EventCreated:
			pending++
			if pending > 1 {
				t.Fatalf("more than one order in flight at %s", tr.Date.Format("2006-01-02"))
			}
		case EventFilled, EventRejected:
			pending--
		}
	}
}

func TestRun_RejectionKeepsStateAndContinues(t *testing.T) {
	bars := flatSeries(4, 100)
	// 2 shares at ~100 cost ~200, but only 50 cash: rejection.
	strat := &scriptStrategy{lookback: 1, script: map[int]core.Side{0: core.SideBuy}, size: 2}
	bt := New(nil, nil)

	res, err := bt.Run(context.Background(), strat, bars, RunParams{InitialCash: 50})
	if err != nil {
		t.Fatalf("Run() error = %v, rejection must not abort the run", err)
	}

	var rejected bool
	for _, tr := range res.Trades {
		if tr.Event == EventRejected {
			rejected = true
			if tr.Cash != 50 {
				t.Errorf("cash after rejection = %f, want unchanged 50", tr.Cash)
			}
		}
	}
	if !rejected {
		t.Fatal("expected a rejected trade event")
	}
	if len(strat.fills) != 0 {
		t.Error("rejected order must not notify a fill")
	}

	last := res.Rows[len(res.Rows)-1]
	if last.PositionSize != 0 {
		t.Errorf("position = %d, want flat after rejection", last.PositionSize)
	}
	if res.FinalEquity != 50 {
		t.Errorf("final equity = %f, want 50", res.FinalEquity)
	}
}

func TestRun_AccountingClosure(t *testing.T) {
	bars := []core.Bar{
		mkBar(0, 100, 101),
		mkBar(1, 101, 99),
		mkBar(2, 99, 103),
		mkBar(3, 103, 102),
		mkBar(4, 102, 108),
		mkBar(5, 108, 107),
	}
	strat := &scriptStrategy{
		lookback: 1,
		script:   map[int]core.Side{0: core.SideBuy, 3: core.SideSell},
		size:     10,
	}
	bt := New(nil, nil)

	res, err := bt.Run(context.Background(), strat, bars, RunParams{
		InitialCash:    5000,
		CommissionRate: 0.001,
		SlippageRate:   0.001,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// equity = cash + size*close must hold exactly after every bar.
	for _, row := range res.Rows {
		want := row.Cash + float64(row.PositionSize)*row.Close
		if math.Abs(row.Equity-want) > 1e-9 {
			t.Errorf("%s: equity = %f, want %f", row.Date.Format("2006-01-02"), row.Equity, want)
		}
	}

	if len(res.Rows) != len(bars) {
		t.Errorf("ledger rows = %d, want one per bar (%d)", len(res.Rows), len(bars))
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bt := New(nil, nil)
	strat := &scriptStrategy{lookback: 1}
	_, err := bt.Run(ctx, strat, flatSeries(5, 100), RunParams{InitialCash: 1000})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

// TestRun_PercentileRoundTrip replays the full dip-and-recover scenario
// through the real strategy: one buy at the bar after the dip signal, one
// sell at the bar after the take-profit signal, equity matching the
// commission- and slippage-adjusted arithmetic.
func TestRun_PercentileRoundTrip(t *testing.T) {
	bars := []core.Bar{
		mkBar(0, 100, 100),
		mkBar(1, 100, 101),
		mkBar(2, 101, 102),
		mkBar(3, 102, 103),
		mkBar(4, 103, 104),
		mkBar(5, 104, 90), // dip: lowest close of the window
		mkBar(6, 91, 92),  // buy fills at open 91
		mkBar(7, 92, 95),
		mkBar(8, 95, 101), // +10.88% over cost basis: take-profit
		mkBar(9, 100, 100), // sell fills at open 100
	}

	strat := percentile.New()
	err := strat.Init(strategy.Config{Params: map[string]any{
		"lookback_days":        5,
		"percentile_threshold": 0.25,
		"profit_threshold":     0.10,
		"max_loss_threshold":   0.10,
		"cooling_days":         2,
		"min_amount":           1000,
	}})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	const (
		cash = 20000.0
		comm = 0.001
		slip = 0.001
	)
	bt := New(nil, nil)
	res, err := bt.Run(context.Background(), strat, bars, RunParams{
		InitialCash:    cash,
		CommissionRate: comm,
		SlippageRate:   slip,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var fills []TradeRow
	for _, tr := range res.Trades {
		if tr.Event == EventFilled {
			fills = append(fills, tr)
		}
	}
	if len(fills) != 2 {
		t.Fatalf("fills = %d, want exactly one buy and one sell", len(fills))
	}

	buy, sell := fills[0], fills[1]
	if buy.Side != core.SideBuy || !buy.Date.Equal(day(6)) {
		t.Errorf("buy fill = %s on %s, want BUY on day 6", buy.Side, buy.Date.Format("2006-01-02"))
	}
	if sell.Side != core.SideSell || !sell.Date.Equal(day(9)) {
		t.Errorf("sell fill = %s on %s, want SELL on day 9", sell.Side, sell.Date.Format("2006-01-02"))
	}

	// min_amount sizing at the signal close: int(1000/90)+1 = 12 shares.
	if buy.Size != 12 {
		t.Fatalf("buy size = %d, want 12", buy.Size)
	}

	buyPrice := 91 * (1 + slip)
	buyCost := buyPrice*12 + buyPrice*12*comm
	sellPrice := 100 * (1 - slip)
	sellProceeds := sellPrice*12 - sellPrice*12*comm

	if math.Abs(buy.Price-buyPrice) > 1e-9 {
		t.Errorf("buy price = %f, want %f", buy.Price, buyPrice)
	}
	if math.Abs(sell.Price-sellPrice) > 1e-9 {
		t.Errorf("sell price = %f, want %f", sell.Price, sellPrice)
	}

	wantFinal := cash - buyCost + sellProceeds
	if math.Abs(res.FinalEquity-wantFinal) > 1e-9 {
		t.Errorf("final equity = %f, want %f", res.FinalEquity, wantFinal)
	}

	wantTotal := (wantFinal - cash) / cash
	if math.Abs(res.TotalReturn-wantTotal) > 1e-12 {
		t.Errorf("total return = %f, want %f", res.TotalReturn, wantTotal)
	}

	if res.Stats.TotalTrades != 1 || res.Stats.WinningTrades != 1 {
		t.Errorf("stats = %+v, want one winning round trip", res.Stats)
	}
}

// TestRun_CooldownBlocksReentry drives a sell and verifies no buy order is
// created while the cooldown timer runs, even though the entry signal
// keeps firing.
func TestRun_CooldownBlocksReentry(t *testing.T) {
	bars := []core.Bar{
		mkBar(0, 100, 100),
		mkBar(1, 100, 101),
		mkBar(2, 101, 102),
		mkBar(3, 102, 103),
		mkBar(4, 103, 104),
		mkBar(5, 104, 90), // entry signal
		mkBar(6, 90, 80),  // buy fills at 90; close -11% triggers stop-loss
		mkBar(7, 80, 80),  // sell fills, cooldown starts
		mkBar(8, 80, 70),  // cooling
		mkBar(9, 70, 70),  // cooling
		mkBar(10, 70, 70), // cooldown expires, no order this bar
		mkBar(11, 70, 70),
		mkBar(12, 70, 60), // fresh low: entry signal fires again
		mkBar(13, 60, 60),
	}

	strat := percentile.New()
	err := strat.Init(strategy.Config{Params: map[string]any{
		"lookback_days":        5,
		"percentile_threshold": 0.30,
		"profit_threshold":     0.10,
		"max_loss_threshold":   0.10,
		"cooling_days":         3,
		"min_amount":           1000,
	}})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	bt := New(nil, nil)
	res, err := bt.Run(context.Background(), strat, bars, RunParams{InitialCash: 20000})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var sellDate time.Time
	reentries := 0
	for _, tr := range res.Trades {
		if tr.Event == EventFilled && tr.Side == core.SideSell {
			sellDate = tr.Date
		}
		if tr.Event == EventCreated && tr.Side == core.SideBuy && !sellDate.IsZero() {
			reentries++
			elapsed := core.CalendarDays(sellDate, tr.Date)
			if elapsed < 3 {
				t.Errorf("buy created %d days after sell, inside %d-day cooldown", elapsed, 3)
			}
		}
	}
	if sellDate.IsZero() {
		t.Fatal("expected a stop-loss sell fill")
	}
	if reentries == 0 {
		t.Error("expected a re-entry once the cooldown elapsed")
	}
}
