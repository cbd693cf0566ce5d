package broker

import (
	"github.com/quantlab/meanrev/internal/core"
)

// Account owns the cash balance and position of a single backtest run.
// It applies commission and slippage to fills and computes equity.
// An Account is used by exactly one simulation loop; parallel runs must
// each get their own instance.
type Account struct {
	cash           float64
	commissionRate float64
	slippageRate   float64
	position       Position
}

// NewAccount creates an account with the given starting cash and rates.
// Rates are fractions: 0.001 means 0.1%.
func NewAccount(initialCash, commissionRate, slippageRate float64) (*Account, error) {
	if initialCash <= 0 {
		return nil, core.ErrInvalidCash
	}
	if commissionRate < 0 || slippageRate < 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, ErrInvalidQuantity)
	}
	return &Account{
		cash:           initialCash,
		commissionRate: commissionRate,
		slippageRate:   slippageRate,
	}, nil
}

// Cash returns the current cash balance.
func (a *Account) Cash() float64 {
	return a.cash
}

// CommissionRate returns the commission fraction applied to fills.
func (a *Account) CommissionRate() float64 {
	return a.commissionRate
}

// SlippageRate returns the slippage fraction applied to fill prices.
func (a *Account) SlippageRate() float64 {
	return a.slippageRate
}

// Position returns a copy of the current position.
func (a *Account) Position() Position {
	return a.position
}

// Equity returns cash plus the mark-to-market value of the position at
// the given close price. It is recomputable from cash and position alone
// at any bar.
func (a *Account) Equity(closePrice float64) float64 {
	return a.cash + float64(a.position.Size)*closePrice
}

// Fill resolves an order against a bar's open price.
//
// Buys execute at open*(1+slippage) and require cash for the full cost
// including commission; when cash is insufficient the order is rejected
// with ErrInsufficientFunds and no state changes. Sells execute at
// open*(1-slippage) with commission deducted from the proceeds. Orders
// always fill entirely or not at all.
func (a *Account) Fill(order *Order, b core.Bar) (*Fill, error) {
	if order == nil || order.Size <= 0 {
		return nil, ErrInvalidQuantity
	}

	switch order.Side {
	case core.SideBuy:
		price := b.Open * (1 + a.slippageRate)
		notional := price * float64(order.Size)
		commission := notional * a.commissionRate
		cost := notional + commission
		if cost > a.cash {
			return nil, ErrInsufficientFunds
		}

		a.cash -= cost
		a.position.applyBuy(price, order.Size)

		return &Fill{
			OrderID:    order.ID,
			Side:       core.SideBuy,
			Size:       order.Size,
			Date:       b.Date,
			Price:      price,
			Commission: commission,
			CashDelta:  -cost,
		}, nil

	case core.SideSell:
		if order.Size > a.position.Size {
			return nil, ErrOversizedSell
		}

		price := b.Open * (1 - a.slippageRate)
		notional := price * float64(order.Size)
		commission := notional * a.commissionRate
		proceeds := notional - commission

		a.cash += proceeds
		a.position.applySell(price, order.Size)

		return &Fill{
			OrderID:    order.ID,
			Side:       core.SideSell,
			Size:       order.Size,
			Date:       b.Date,
			Price:      price,
			Commission: commission,
			CashDelta:  proceeds,
		}, nil

	default:
		return nil, ErrInvalidQuantity
	}
}
