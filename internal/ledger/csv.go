package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/quantlab/meanrev/internal/backtest"
	"github.com/quantlab/meanrev/internal/core"
	"github.com/quantlab/meanrev/internal/ledger/blob"
)

const dateFormat = "2006-01-02"

var _ Sink = (*CSVSink)(nil)

// CSVSink writes a result as three CSV files (daily.csv, trades.csv,
// summary.csv) under runs/<run-id>/ in a blob store.
type CSVSink struct {
	store  blob.Store
	logger *zap.Logger
}

// NewCSVSink creates a sink writing through store.
func NewCSVSink(store blob.Store, logger ...*zap.Logger) *CSVSink {
	log := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}
	return &CSVSink{store: store, logger: log}
}

func (s *CSVSink) Name() string {
	return "csv"
}

func (s *CSVSink) WriteResult(ctx context.Context, result *backtest.Result) error {
	files := map[string][]byte{
		"daily.csv":   dailyCSV(result.Rows),
		"trades.csv":  tradesCSV(result.Trades),
		"summary.csv": summaryCSV(result),
	}

	for name, data := range files {
		key := fmt.Sprintf("runs/%s/%s", result.RunID, name)
		if err := s.store.Put(ctx, key, data); err != nil {
			return core.WrapError(core.ErrSinkFailed,
				fmt.Errorf("writing %s: %w", key, err))
		}
	}

	s.logger.Info("wrote result ledgers",
		zap.String("run_id", result.RunID),
		zap.Int("daily_rows", len(result.Rows)),
		zap.Int("trade_rows", len(result.Trades)))
	return nil
}

func dailyCSV(rows []backtest.LedgerRow) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"day", "close", "rank", "position", "cash", "equity"})

	for _, r := range rows {
		rank := ""
		if r.RankDefined {
			rank = formatFloat(r.Rank)
		}
		w.Write([]string{
			r.Date.Format(dateFormat),
			formatFloat(r.Close),
			rank,
			strconv.FormatInt(r.PositionSize, 10),
			formatFloat(r.Cash),
			formatFloat(r.Equity),
		})
	}
	w.Flush()
	return buf.Bytes()
}

func tradesCSV(trades []backtest.TradeRow) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"day", "event", "order_id", "side", "size", "price", "commission", "cash", "equity"})

	for _, t := range trades {
		w.Write([]string{
			t.Date.Format(dateFormat),
			string(t.Event),
			t.OrderID,
			string(t.Side),
			strconv.FormatInt(t.Size, 10),
			formatFloat(t.Price),
			formatFloat(t.Commission),
			formatFloat(t.Cash),
			formatFloat(t.Equity),
		})
	}
	w.Flush()
	return buf.Bytes()
}

func summaryCSV(result *backtest.Result) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"key", "value"})

	pairs := [][2]string{
		{"run_id", result.RunID},
		{"strategy", result.Strategy},
		{"start", result.StartDate.Format(dateFormat)},
		{"end", result.EndDate.Format(dateFormat)},
		{"initial_equity", formatFloat(result.InitialEquity)},
		{"final_equity", formatFloat(result.FinalEquity)},
		{"total_return", formatFloat(result.TotalReturn)},
		{"annualized_return", formatFloat(result.AnnualizedReturn)},
		{"total_trades", strconv.Itoa(result.Stats.TotalTrades)},
		{"winning_trades", strconv.Itoa(result.Stats.WinningTrades)},
		{"losing_trades", strconv.Itoa(result.Stats.LosingTrades)},
		{"win_rate", formatFloat(result.Stats.WinRate)},
		{"max_drawdown", formatFloat(result.Stats.MaxDrawdown)},
		{"sharpe_ratio", formatFloat(result.Stats.SharpeRatio)},
	}
	for _, p := range pairs {
		w.Write([]string{p[0], p[1]})
	}
	w.Flush()
	return buf.Bytes()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
