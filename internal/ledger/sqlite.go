package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/quantlab/meanrev/internal/backtest"
	"github.com/quantlab/meanrev/internal/core"
)

var _ Sink = (*SQLiteSink)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	strategy          TEXT NOT NULL,
	start_date        TEXT NOT NULL,
	end_date          TEXT NOT NULL,
	initial_equity    REAL NOT NULL,
	final_equity      REAL NOT NULL,
	total_return      REAL NOT NULL,
	annualized_return REAL NOT NULL,
	total_trades      INTEGER NOT NULL,
	win_rate          REAL NOT NULL,
	max_drawdown      REAL NOT NULL,
	sharpe_ratio      REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS daily (
	run_id   TEXT NOT NULL REFERENCES runs(run_id),
	day      TEXT NOT NULL,
	close    REAL NOT NULL,
	rank     REAL,
	position INTEGER NOT NULL,
	cash     REAL NOT NULL,
	equity   REAL NOT NULL,
	PRIMARY KEY (run_id, day)
);
CREATE TABLE IF NOT EXISTS trades (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	day        TEXT NOT NULL,
	event      TEXT NOT NULL,
	order_id   TEXT NOT NULL,
	side       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	price      REAL NOT NULL,
	commission REAL NOT NULL,
	cash       REAL NOT NULL,
	equity     REAL NOT NULL
);
`

// SQLiteSink persists results to a SQLite database. Each result lands
// as one row in runs plus its daily and trade ledgers, inserted in a
// single transaction.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at dbPath and ensures
// the schema exists.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) Name() string {
	return "sqlite"
}

func (s *SQLiteSink) WriteResult(ctx context.Context, result *backtest.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrSinkFailed, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, strategy, start_date, end_date, initial_equity,
			final_equity, total_return, annualized_return, total_trades, win_rate,
			max_drawdown, sharpe_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Strategy,
		result.StartDate.Format(dateFormat), result.EndDate.Format(dateFormat),
		result.InitialEquity, result.FinalEquity,
		result.TotalReturn, result.AnnualizedReturn,
		result.Stats.TotalTrades, result.Stats.WinRate,
		result.Stats.MaxDrawdown, result.Stats.SharpeRatio)
	if err != nil {
		return core.WrapError(core.ErrSinkFailed, fmt.Errorf("inserting run: %w", err))
	}

	for _, r := range result.Rows {
		var rank any
		if r.RankDefined {
			rank = r.Rank
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO daily (run_id, day, close, rank, position, cash, equity)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, r.Date.Format(dateFormat), r.Close, rank,
			r.PositionSize, r.Cash, r.Equity)
		if err != nil {
			return core.WrapError(core.ErrSinkFailed, fmt.Errorf("inserting daily row: %w", err))
		}
	}

	for _, t := range result.Trades {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, day, event, order_id, side, size, price,
				commission, cash, equity)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, t.Date.Format(dateFormat), string(t.Event), t.OrderID,
			string(t.Side), t.Size, t.Price, t.Commission, t.Cash, t.Equity)
		if err != nil {
			return core.WrapError(core.ErrSinkFailed, fmt.Errorf("inserting trade row: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrSinkFailed, err)
	}
	return nil
}
