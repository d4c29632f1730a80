package perf

import "math"

// Absolute scoring thresholds. Each sub-score saturates at 1.0 once the
// metric reaches the target.
const (
	targetCAGR         = 0.20
	maxDrawdownBudget  = 20.0
	targetWinRate      = 80.0
	targetProfitFactor = 3.0
	targetSharpe       = 2.0
	volatilityBudget   = 0.30
)

// Sub-score weights for the absolute trading score.
const (
	weightProfitability = 0.25
	weightRisk          = 0.25
	weightConsistency   = 0.20
	weightEfficiency    = 0.20
	weightRobustness    = 0.10
)

// Final blend of trading performance against judged reasoning quality.
const (
	tradingWeight   = 0.7
	reasoningWeight = 0.3
)

// Score fills the absolute sub-scores, the composite trading score and the
// blended total from the raw metrics already present in p. Safe to call
// again after ReasoningScore or NormalizedTrading change.
func Score(p *Performance) {
	p.ProfitabilityScore = clamp01(p.CAGR / targetCAGR)
	p.RiskManagementScore = clamp01(1 - p.MaxDrawdownPct/maxDrawdownBudget)
	p.ConsistencyScore = 0.5*clamp01(p.WinRate/targetWinRate) +
		0.5*clamp01(math.Min(p.ProfitFactor, targetProfitFactor)/targetProfitFactor)
	p.EfficiencyScore = clamp01(p.SharpeRatio / targetSharpe)
	p.RobustnessScore = clamp01(1 - p.Volatility/volatilityBudget)

	p.TradingScore = weightProfitability*p.ProfitabilityScore +
		weightRisk*p.RiskManagementScore +
		weightConsistency*p.ConsistencyScore +
		weightEfficiency*p.EfficiencyScore +
		weightRobustness*p.RobustnessScore

	p.TotalScore = tradingWeight*p.TradingScore + reasoningWeight*p.ReasoningScore
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
