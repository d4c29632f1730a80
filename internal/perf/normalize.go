package perf

// Relative scoring weights for the normalized trading score. Drawdown and
// volatility are inverted before weighting so lower is better.
const (
	normWeightReturn       = 0.25
	normWeightSharpe       = 0.20
	normWeightWinRate      = 0.15
	normWeightProfitFactor = 0.15
	normWeightDrawdown     = 0.15
	normWeightVolatility   = 0.10
)

// Normalize rescores the field relative to each other: each metric is min-max
// scaled across all agents, the scaled metrics are blended into
// NormalizedTrading, and TotalScore is re-blended against the reasoning
// score. With all agents tied on a metric everyone gets 0.5 for it.
func Normalize(perfs []Performance) {
	if len(perfs) == 0 {
		return
	}

	returns := minMax(perfs, func(p *Performance) float64 { return p.TotalReturnPct })
	sharpes := minMax(perfs, func(p *Performance) float64 { return p.SharpeRatio })
	winRates := minMax(perfs, func(p *Performance) float64 { return p.WinRate })
	profitFactors := minMax(perfs, func(p *Performance) float64 { return p.ProfitFactor })
	drawdowns := minMax(perfs, func(p *Performance) float64 { return p.MaxDrawdownPct })
	volatilities := minMax(perfs, func(p *Performance) float64 { return p.Volatility })

	for i := range perfs {
		perfs[i].NormalizedTrading = normWeightReturn*returns[i] +
			normWeightSharpe*sharpes[i] +
			normWeightWinRate*winRates[i] +
			normWeightProfitFactor*profitFactors[i] +
			normWeightDrawdown*(1-drawdowns[i]) +
			normWeightVolatility*(1-volatilities[i])

		perfs[i].TotalScore = tradingWeight*perfs[i].NormalizedTrading +
			reasoningWeight*perfs[i].ReasoningScore
	}
}

// minMax scales one metric across all agents into [0, 1]. A degenerate range
// (all values equal) maps everyone to 0.5.
func minMax(perfs []Performance, metric func(*Performance) float64) []float64 {
	lo, hi := metric(&perfs[0]), metric(&perfs[0])
	for i := range perfs {
		v := metric(&perfs[i])
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(perfs))
	for i := range perfs {
		if hi == lo {
			out[i] = 0.5
			continue
		}
		out[i] = (metric(&perfs[i]) - lo) / (hi - lo)
	}
	return out
}
