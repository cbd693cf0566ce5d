// Package broker provides the simulated broker account for backtests:
// order types, position cost-basis tracking and fill accounting under
// commission and slippage.
package broker

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/quantlab/meanrev/internal/core"
)

// Broker-specific errors.
var (
	// ErrInsufficientFunds indicates a buy order whose full cost exceeds
	// available cash. The order is discarded, never partially filled.
	ErrInsufficientFunds = errors.New("broker: insufficient funds")
	// ErrInvalidQuantity indicates a non-positive order size.
	ErrInvalidQuantity = errors.New("broker: invalid quantity")
	// ErrOversizedSell indicates a sell larger than the current position.
	// This is a programming error in the caller, not a market condition.
	ErrOversizedSell = errors.New("broker: sell size exceeds position")
)

// Order represents a request to trade at the next bar's open.
// At most one order may be outstanding at any time; the simulation loop
// enforces that invariant.
type Order struct {
	// ID is a unique identifier assigned at creation.
	ID string
	// Side indicates buy or sell.
	Side core.Side
	// Size is the number of shares to trade, always positive.
	Size int64
	// CreatedAt is the date of the bar on which the order was created.
	// Execution happens on the following bar, never same-bar.
	CreatedAt time.Time
	// CreatedBar is the index of that bar in the simulated series.
	CreatedBar int
}

// NewOrder creates an order, validating the requested size.
func NewOrder(side core.Side, size int64, createdBar int, createdAt time.Time) (*Order, error) {
	if size <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Order{
		ID:         uuid.NewString(),
		Side:       side,
		Size:       size,
		CreatedAt:  createdAt,
		CreatedBar: createdBar,
	}, nil
}

// Fill records the execution of an order against a bar.
type Fill struct {
	// OrderID identifies the resolved order.
	OrderID string
	// Side indicates buy or sell.
	Side core.Side
	// Size is the executed share count (orders always fill entirely).
	Size int64
	// Date is the date of the bar the order executed against.
	Date time.Time
	// Price is the slippage-adjusted execution price per share.
	Price float64
	// Commission is the commission charged on the fill.
	Commission float64
	// CashDelta is the signed cash movement: negative for buys,
	// positive for sells.
	CashDelta float64
}
