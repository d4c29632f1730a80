package models

import "gorm.io/gorm"

// PerformanceRecord is the final per-agent performance export, one row per
// agent per run. It carries the raw metrics, the absolute-threshold sub-scores
// and both scoring passes.
type PerformanceRecord struct {
	gorm.Model
	AgentName       string  `gorm:"index" json:"agent_name"`
	TotalReturnPct  float64 `json:"total_return_pct"`
	TotalReturnUSD  float64 `json:"total_return_usd"`
	CAGR            float64 `json:"cagr"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	SortinoRatio    float64 `json:"sortino_ratio"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
	Volatility      float64 `json:"volatility"`
	TotalTrades     int     `json:"total_trades"`
	WinRate         float64 `json:"win_rate"`
	ProfitFactor    float64 `json:"profit_factor"`
	AvgTradesPerDay float64 `json:"avg_trades_per_day"`

	ProfitabilityScore  float64 `json:"profitability_score"`
	RiskManagementScore float64 `json:"risk_management_score"`
	ConsistencyScore    float64 `json:"consistency_score"`
	EfficiencyScore     float64 `json:"efficiency_score"`
	RobustnessScore     float64 `json:"robustness_score"`
	ReasoningScore      float64 `json:"reasoning_score"`
	TradingScore        float64 `json:"trading_score"`
	NormalizedTrading   float64 `json:"normalized_trading_score"`
	TotalScore          float64 `json:"total_score"`
}
