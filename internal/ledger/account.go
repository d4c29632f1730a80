package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Epsilon is the quantity resolution of the ledger. Positions below it are
// treated as closed.
const Epsilon = 1e-8

var (
	ErrQuantityTooSmall    = errors.New("quantity too small")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoPosition          = errors.New("no position found")
	ErrInvalidQuantity     = errors.New("invalid quantity")
)

// Account owns one agent's cash and open positions and executes opens and
// closes with fee, slippage, margin and liquidation accounting. It is owned
// exclusively by one agent and is not safe for concurrent use.
type Account struct {
	initialBalance float64
	cash           float64
	feeRate        float64
	slippageRate   float64
	positions      map[string]*Position // key: "SYMBOL:side"
	realizedPnL    float64
}

// NewAccount creates an account funded with initialBalance. Fee and slippage
// are given in basis points and fixed for the account's lifetime.
func NewAccount(initialBalance, feeBps, slippageBps float64) *Account {
	return &Account{
		initialBalance: initialBalance,
		cash:           initialBalance,
		feeRate:        feeBps / 10000.0,
		slippageRate:   slippageBps / 10000.0,
		positions:      make(map[string]*Position),
	}
}

func positionKey(symbol, side string) string {
	return strings.ToUpper(symbol) + ":" + side
}

// Open opens a new position or adds to an existing one on the same
// (symbol, side). Returns the mutated position, the fee charged and the
// post-slippage execution price.
//
// A fill merged into an existing position uses a quantity-weighted average
// entry price and inherits the existing leverage. Cash is debited by
// margin + fee; the fee is counted as a realized loss.
func (a *Account) Open(symbol, side string, quantity float64, leverage int, price float64, timestamp int64) (*Position, float64, float64, error) {
	if quantity <= Epsilon {
		return nil, 0, 0, ErrQuantityTooSmall
	}
	if leverage < 1 {
		leverage = 1
	}

	key := positionKey(symbol, side)
	pos, ok := a.positions[key]

	// A fill added to an existing position is margined at the inherited
	// leverage, keeping margin == notional/leverage across the merge.
	if ok && pos.Quantity >= Epsilon {
		leverage = pos.Leverage
	}

	execPrice := applySlippage(price, a.slippageRate, side, true)
	orderValue := quantity * execPrice
	fee := orderValue * a.feeRate
	marginNeeded := orderValue / float64(leverage)

	if marginNeeded+fee > a.cash {
		return nil, 0, 0, ErrInsufficientBalance
	}

	a.cash -= marginNeeded + fee
	a.realizedPnL -= fee

	if !ok || pos.Quantity < Epsilon {
		pos = &Position{
			Symbol:     strings.ToUpper(symbol),
			Side:       side,
			Quantity:   quantity,
			EntryPrice: execPrice,
			Leverage:   leverage,
			Margin:     marginNeeded,
			Notional:   orderValue,
			OpenTime:   timestamp,
		}
		a.positions[key] = pos
	} else {
		totalQty := pos.Quantity + quantity
		pos.EntryPrice = (pos.Quantity*pos.EntryPrice + quantity*execPrice) / totalQty
		pos.Quantity = totalQty
		pos.Margin += marginNeeded
		pos.Notional += orderValue
		// Leverage stays as negotiated at first open.
	}
	pos.LiquidationPrice = liquidationPrice(pos.EntryPrice, pos.Leverage, pos.Side)

	return pos, fee, execPrice, nil
}

// Close closes quantity of the (symbol, side) position at the given market
// price, partially or fully. Returns realized P&L (before fee), the fee and
// the post-slippage execution price. A pro-rata share of margin plus the
// P&L minus the fee is returned to cash; a position left below Epsilon is
// removed.
func (a *Account) Close(symbol, side string, quantity, price float64) (float64, float64, float64, error) {
	key := positionKey(symbol, side)
	pos, ok := a.positions[key]
	if !ok {
		return 0, 0, 0, ErrNoPosition
	}
	if quantity <= Epsilon || quantity > pos.Quantity+Epsilon {
		return 0, 0, 0, fmt.Errorf("%w: %.8f of %.8f", ErrInvalidQuantity, quantity, pos.Quantity)
	}

	execPrice := applySlippage(price, a.slippageRate, side, false)
	fee := quantity * execPrice * a.feeRate

	var pnl float64
	if pos.Side == SideLong {
		pnl = (execPrice - pos.EntryPrice) * quantity
	} else {
		pnl = (pos.EntryPrice - execPrice) * quantity
	}

	closeRatio := quantity / pos.Quantity
	marginReturned := pos.Margin * closeRatio

	a.cash += marginReturned + pnl - fee
	a.realizedPnL += pnl - fee

	pos.Quantity -= quantity
	pos.Margin -= marginReturned
	pos.Notional -= quantity * pos.EntryPrice

	if pos.Quantity < Epsilon {
		delete(a.positions, key)
	}

	return pnl, fee, execPrice, nil
}

// TotalEquity computes cash + reserved margin + unrealized P&L over all open
// positions. Symbols missing from priceMap are marked at their entry price,
// so equity under-reacts rather than erroring.
func (a *Account) TotalEquity(priceMap map[string]float64) (float64, float64, map[string]float64) {
	var unrealized, margin float64
	perPosition := make(map[string]float64, len(a.positions))

	for key, pos := range a.positions {
		currentPrice, ok := priceMap[pos.Symbol]
		if !ok {
			currentPrice = pos.EntryPrice
		}
		pnl := pos.UnrealizedPnL(currentPrice)
		unrealized += pnl
		margin += pos.Margin
		perPosition[key] = pnl
	}

	return a.cash + margin + unrealized, unrealized, perPosition
}

// Position returns the open position on (symbol, side), or nil.
func (a *Account) Position(symbol, side string) *Position {
	return a.positions[positionKey(symbol, side)]
}

// Positions returns all open positions.
func (a *Account) Positions() []*Position {
	out := make([]*Position, 0, len(a.positions))
	for _, pos := range a.positions {
		out = append(out, pos)
	}
	return out
}

// PositionLeverage returns the leverage of the open (symbol, side) position,
// or 0 when there is none.
func (a *Account) PositionLeverage(symbol, side string) int {
	if pos, ok := a.positions[positionKey(symbol, side)]; ok && pos.Quantity > Epsilon {
		return pos.Leverage
	}
	return 0
}

// Cash returns the available cash balance.
func (a *Account) Cash() float64 { return a.cash }

// FeeRate returns the account's fee rate as a fraction of notional.
func (a *Account) FeeRate() float64 { return a.feeRate }

// InitialBalance returns the starting balance.
func (a *Account) InitialBalance() float64 { return a.initialBalance }

// RealizedPnL returns cumulative realized P&L including fees.
func (a *Account) RealizedPnL() float64 { return a.realizedPnL }
