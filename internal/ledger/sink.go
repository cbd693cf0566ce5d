package ledger

import (
	"context"

	"github.com/quantlab/meanrev/internal/backtest"
)

// Sink persists a finished backtest result.
type Sink interface {
	// Name returns the sink identifier.
	Name() string

	// WriteResult persists the result's ledgers and summary.
	WriteResult(ctx context.Context, result *backtest.Result) error
}
