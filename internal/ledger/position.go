package ledger

// Side of a position.
const (
	SideLong  = "long"
	SideShort = "short"
)

// Position is one side (long or short) of one symbol for one account.
// At most one Position exists per (symbol, side).
type Position struct {
	Symbol           string
	Side             string
	Quantity         float64
	EntryPrice       float64 // quantity-weighted average
	Leverage         int
	Margin           float64 // cash reserved, always Notional/Leverage
	Notional         float64
	LiquidationPrice float64
	OpenTime         int64
}

// UnrealizedPnL marks the position against currentPrice.
func (p *Position) UnrealizedPnL(currentPrice float64) float64 {
	if p.Side == SideLong {
		return (currentPrice - p.EntryPrice) * p.Quantity
	}
	return (p.EntryPrice - currentPrice) * p.Quantity
}

// applySlippage shifts the market price against the trader: long opens and
// short closes pay more, short opens and long closes receive less.
func applySlippage(price, rate float64, side string, isOpen bool) float64 {
	amount := price * rate
	if side == SideLong {
		if isOpen {
			return price + amount
		}
		return price - amount
	}
	if isOpen {
		return price - amount
	}
	return price + amount
}

// liquidationPrice is the market price at which the position's loss consumes
// 100% of its posted margin: entry*(1-1/lev) for longs, entry*(1+1/lev) for
// shorts.
func liquidationPrice(entry float64, leverage int, side string) float64 {
	if leverage <= 0 {
		return 0
	}
	lossPct := 1.0 / float64(leverage)
	if side == SideLong {
		return entry * (1.0 - lossPct)
	}
	return entry * (1.0 + lossPct)
}
