package models

import "gorm.io/gorm"

// TradeRecord is one executed simulated order, persisted for the report UI.
// Rows are written once at the end of a run and never mutated.
type TradeRecord struct {
	gorm.Model
	AgentName     string  `gorm:"index" json:"agent_name"`
	Timestamp     int64   `json:"timestamp"`
	Symbol        string  `json:"symbol"`
	Action        string  `json:"action"` // open_long, open_short, close_long, close_short
	Side          string  `json:"side"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"` // post-slippage execution price
	Fee           float64 `json:"fee"`
	Slippage      float64 `json:"slippage"`
	OrderValue    float64 `json:"order_value"`
	RealizedPnL   float64 `json:"realized_pnl"`
	Leverage      int     `json:"leverage"`
	Cycle         int     `json:"cycle"`
	PositionAfter float64 `json:"position_after"`
	Liquidation   bool    `json:"liquidation"`
}
