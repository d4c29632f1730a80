package perf

import (
	"math"
	"strings"
)

// daysPerYear for CAGR and annualization.
const daysPerYear = 365.0

// infiniteProfitFactor stands in for "wins but no losses" so exports and
// min-max normalization stay finite.
const infiniteProfitFactor = 999.0

// Performance is the raw and scored performance of one agent, recomputed
// wholesale from its trade and equity history at the end of a run.
type Performance struct {
	AgentName       string  `json:"agent_name"`
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

// Compute derives an agent's raw metrics and absolute-threshold scores from
// its histories. decisionsPerDay fixes the annualization cadence.
func Compute(agentName string, initialBalance float64, equity []EquityPoint, trades []TradeEvent, decisionsPerDay int) Performance {
	p := Performance{AgentName: agentName}
	if len(equity) == 0 {
		Score(&p)
		return p
	}
	if decisionsPerDay < 1 {
		decisionsPerDay = 1
	}

	finalEquity := equity[len(equity)-1].Equity
	p.TotalReturnPct = (finalEquity - initialBalance) / initialBalance * 100
	p.TotalReturnUSD = finalEquity - initialBalance

	returns := stepReturns(equity)
	p.SharpeRatio = sharpe(returns, decisionsPerDay)
	p.SortinoRatio = sortino(returns, decisionsPerDay)
	p.Volatility = stddev(returns)
	p.MaxDrawdownPct = maxDrawdown(equity)

	days := math.Max(1, float64(len(equity))/float64(decisionsPerDay))
	p.CAGR = p.TotalReturnPct / 100 / (days / daysPerYear)

	closing := closingTrades(trades)
	p.TotalTrades = len(trades)
	p.AvgTradesPerDay = float64(len(trades)) / days
	p.WinRate, p.ProfitFactor = tradeStats(closing)

	Score(&p)
	return p
}

// stepReturns computes per-step simple returns between consecutive equity
// points, skipping steps whose starting equity is non-positive.
func stepReturns(equity []EquityPoint) []float64 {
	var returns []float64
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, (equity[i].Equity-prev)/prev)
	}
	return returns
}

// sharpe annualizes mean/stddev of per-step returns by the decision cadence.
// Returns 0 for fewer than 2 samples or zero variance.
func sharpe(returns []float64, decisionsPerDay int) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := meanOf(returns)
	sd := stddev(returns)
	if sd == 0 {
		return 0
	}
	stepsPerYear := daysPerYear * float64(decisionsPerDay)
	return mean / sd * math.Sqrt(stepsPerYear)
}

// sortino is sharpe with only downside deviation in the denominator.
func sortino(returns []float64, decisionsPerDay int) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := meanOf(returns)

	var downSum float64
	var downN int
	for _, r := range returns {
		if r < 0 {
			downSum += r * r
			downN++
		}
	}
	if downN == 0 {
		return 0
	}
	downside := math.Sqrt(downSum / float64(downN))
	if downside == 0 {
		return 0
	}
	stepsPerYear := daysPerYear * float64(decisionsPerDay)
	return mean / downside * math.Sqrt(stepsPerYear)
}

// maxDrawdown is the worst running peak-to-trough percentage over the full
// equity history.
func maxDrawdown(equity []EquityPoint) float64 {
	var peak, worst float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak * 100
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func closingTrades(trades []TradeEvent) []TradeEvent {
	var out []TradeEvent
	for _, t := range trades {
		if strings.HasPrefix(t.Action, "close") {
			out = append(out, t)
		}
	}
	return out
}

// tradeStats returns win rate (percent of closing trades) and profit factor
// (gross wins over absolute gross losses). No closing trades means both are
// 0; wins without losses report the capped stand-in.
func tradeStats(closing []TradeEvent) (winRate, profitFactor float64) {
	if len(closing) == 0 {
		return 0, 0
	}
	var wins int
	var grossWin, grossLoss float64
	for _, t := range closing {
		if t.RealizedPnL > 0 {
			wins++
			grossWin += t.RealizedPnL
		} else if t.RealizedPnL < 0 {
			grossLoss += -t.RealizedPnL
		}
	}
	winRate = float64(wins) / float64(len(closing)) * 100
	switch {
	case grossLoss > 0:
		profitFactor = grossWin / grossLoss
	case grossWin > 0:
		profitFactor = infiniteProfitFactor
	}
	return winRate, profitFactor
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the Bessel-corrected sample standard deviation; 0 for fewer than
// 2 samples.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	var sum float64
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
