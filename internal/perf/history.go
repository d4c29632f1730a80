package perf

import "time"

// EquityPoint is one mark-to-market snapshot of an agent's account. Exactly
// one point is recorded per agent per decision cycle.
type EquityPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Cycle         int       `json:"cycle"`
	Equity        float64   `json:"equity"`
	Cash          float64   `json:"cash"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	PnL           float64   `json:"pnl"`
	PnLPct        float64   `json:"pnl_pct"`
	DrawdownPct   float64   `json:"drawdown_pct"`
}

// TradeEvent is the immutable record of one executed fill.
type TradeEvent struct {
	AgentName     string    `json:"agent_name"`
	Timestamp     time.Time `json:"timestamp"`
	Cycle         int       `json:"cycle"`
	Symbol        string    `json:"symbol"`
	Action        string    `json:"action"`
	Side          string    `json:"side"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Fee           float64   `json:"fee"`
	Slippage      float64   `json:"slippage"`
	OrderValue    float64   `json:"order_value"`
	RealizedPnL   float64   `json:"realized_pnl"`
	Leverage      int       `json:"leverage"`
	PositionAfter float64   `json:"position_after"`
	Liquidation   bool      `json:"liquidation"`
}
