package broker

// Position represents the single-asset holding of a backtest account.
// Size is never negative; short selling is not modeled.
type Position struct {
	// Size is the number of shares held. Zero means flat.
	Size int64
	// AvgCost is the average cost basis per share. Undefined (zero)
	// when flat.
	AvgCost float64
	// RealizedPL accumulates profit/loss from completed sells,
	// measured against the average cost basis.
	RealizedPL float64
}

// IsFlat returns true when no shares are held.
func (p Position) IsFlat() bool {
	return p.Size == 0
}

// UnrealizedPL returns the mark-to-market profit/loss at the given price.
func (p Position) UnrealizedPL(price float64) float64 {
	return (price - p.AvgCost) * float64(p.Size)
}

// ProfitRatio returns the fractional gain of price over the cost basis.
// Only meaningful while holding a position.
func (p Position) ProfitRatio(price float64) float64 {
	if p.IsFlat() || p.AvgCost == 0 {
		return 0
	}
	return (price - p.AvgCost) / p.AvgCost
}

// applyBuy adds size shares at price and recomputes the weighted average
// cost basis:
//
//	new avg = (old_avg*old_size + price*size) / (old_size + size)
func (p *Position) applyBuy(price float64, size int64) {
	total := p.AvgCost*float64(p.Size) + price*float64(size)
	p.Size += size
	p.AvgCost = total / float64(p.Size)
}

// applySell removes size shares at price, accumulating realized P&L.
// The cost basis is cleared when the position reaches zero.
func (p *Position) applySell(price float64, size int64) {
	p.RealizedPL += (price - p.AvgCost) * float64(size)
	p.Size -= size
	if p.Size == 0 {
		p.AvgCost = 0
	}
}
