package perf

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equityCurve(initial float64, values ...float64) []EquityPoint {
	start := time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC)
	points := make([]EquityPoint, 0, len(values)+1)
	points = append(points, EquityPoint{Timestamp: start, Equity: initial, Cash: initial})
	for i, v := range values {
		points = append(points, EquityPoint{
			Timestamp: start.Add(time.Duration(i+1) * 4 * time.Hour),
			Cycle:     i + 1,
			Equity:    v,
		})
	}
	return points
}

func closeTrade(pnl float64) TradeEvent {
	return TradeEvent{Action: "close_long", Side: "long", RealizedPnL: pnl}
}

func TestCompute_FlatEquityHasZeroSharpe(t *testing.T) {
	p := Compute("flat", 10000, equityCurve(10000, 10000, 10000, 10000), nil, 6)

	assert.Equal(t, 0.0, p.SharpeRatio, "zero variance yields zero, not NaN")
	assert.Equal(t, 0.0, p.SortinoRatio)
	assert.Equal(t, 0.0, p.Volatility)
	assert.Equal(t, 0.0, p.MaxDrawdownPct)
	assert.Equal(t, 0.0, p.TotalReturnPct)
}

func TestCompute_TooFewPointsHasZeroSharpe(t *testing.T) {
	p := Compute("short", 10000, equityCurve(10000, 10100), nil, 6)
	assert.Equal(t, 0.0, p.SharpeRatio)

	empty := Compute("empty", 10000, nil, nil, 6)
	assert.Equal(t, 0.0, empty.TotalReturnPct)
	assert.Equal(t, 0.0, empty.TradingScore)
}

func TestCompute_SharpeByHand(t *testing.T) {
	// Returns: +1%, -0.5%.
	p := Compute("hand", 10000, equityCurve(10000, 10100, 10049.5), nil, 6)

	returns := []float64{0.01, -0.005}
	mean := (returns[0] + returns[1]) / 2
	sd := math.Sqrt(math.Pow(returns[0]-mean, 2) + math.Pow(returns[1]-mean, 2)) // n-1 = 1
	want := mean / sd * math.Sqrt(365*6)

	assert.InDelta(t, want, p.SharpeRatio, 1e-9)
}

func TestCompute_MaxDrawdown(t *testing.T) {
	// Peak 12000, trough 9000: 25% drawdown despite the recovery.
	p := Compute("dd", 10000, equityCurve(10000, 12000, 9000, 11000), nil, 6)
	assert.InDelta(t, 25.0, p.MaxDrawdownPct, 1e-9)
}

func TestCompute_CAGRScalesWithDuration(t *testing.T) {
	// 6 points at 6 decisions/day is one day; 10% in a day annualizes 365x.
	curve := equityCurve(10000, 10000, 10000, 10000, 10000, 11000)
	p := Compute("cagr", 10000, curve, nil, 6)
	assert.InDelta(t, 0.10*365, p.CAGR, 1e-9)
}

func TestTradeStats(t *testing.T) {
	trades := []TradeEvent{
		{Action: "open_long", Side: "long"}, // openings never count
		closeTrade(100),
		closeTrade(-40),
		closeTrade(60),
		closeTrade(0), // break-even close is not a win
	}

	p := Compute("stats", 10000, equityCurve(10000, 10100, 10120), trades, 6)
	assert.Equal(t, 5, p.TotalTrades)
	assert.InDelta(t, 50.0, p.WinRate, 1e-9, "2 wins of 4 closes")
	assert.InDelta(t, 160.0/40.0, p.ProfitFactor, 1e-9)
}

func TestProfitFactor_CappedWithoutLosses(t *testing.T) {
	p := Compute("nolosses", 10000, equityCurve(10000, 10100), []TradeEvent{closeTrade(100)}, 6)
	assert.Equal(t, 999.0, p.ProfitFactor)

	noCloses := Compute("nocloses", 10000, equityCurve(10000, 10100), []TradeEvent{
		{Action: "open_long", Side: "long"},
	}, 6)
	assert.Equal(t, 0.0, noCloses.ProfitFactor)
	assert.Equal(t, 0.0, noCloses.WinRate)
}

func TestScore_SubScoresAndBlend(t *testing.T) {
	p := &Performance{
		CAGR:           0.10, // half of the 20% target
		MaxDrawdownPct: 10,   // half the budget
		WinRate:        40,   // half of 80
		ProfitFactor:   1.5,  // half of 3
		SharpeRatio:    1.0,  // half of 2
		Volatility:     0.15, // half the budget
		ReasoningScore: 0.8,
	}
	Score(p)

	assert.InDelta(t, 0.5, p.ProfitabilityScore, 1e-9)
	assert.InDelta(t, 0.5, p.RiskManagementScore, 1e-9)
	assert.InDelta(t, 0.5, p.ConsistencyScore, 1e-9)
	assert.InDelta(t, 0.5, p.EfficiencyScore, 1e-9)
	assert.InDelta(t, 0.5, p.RobustnessScore, 1e-9)
	assert.InDelta(t, 0.5, p.TradingScore, 1e-9)
	assert.InDelta(t, 0.7*0.5+0.3*0.8, p.TotalScore, 1e-9)
}

func TestScore_Saturation(t *testing.T) {
	p := &Performance{
		CAGR:           5.0,  // far past target
		MaxDrawdownPct: 90,   // blown budget
		WinRate:        100,
		ProfitFactor:   999,
		SharpeRatio:    10,
		Volatility:     2.0,
	}
	Score(p)

	assert.Equal(t, 1.0, p.ProfitabilityScore)
	assert.Equal(t, 0.0, p.RiskManagementScore)
	assert.Equal(t, 1.0, p.ConsistencyScore)
	assert.Equal(t, 1.0, p.EfficiencyScore)
	assert.Equal(t, 0.0, p.RobustnessScore)
}

func TestNormalize_TwoAgents(t *testing.T) {
	perfs := []Performance{
		{AgentName: "winner", TotalReturnPct: 12, SharpeRatio: 1.5, WinRate: 60,
			ProfitFactor: 2, MaxDrawdownPct: 5, Volatility: 0.1, ReasoningScore: 0.5},
		{AgentName: "loser", TotalReturnPct: -3, SharpeRatio: -0.2, WinRate: 20,
			ProfitFactor: 0.5, MaxDrawdownPct: 15, Volatility: 0.3, ReasoningScore: 0.5},
	}
	Normalize(perfs)

	// The winner tops every metric including the inverted ones.
	assert.InDelta(t, 1.0, perfs[0].NormalizedTrading, 1e-9)
	assert.InDelta(t, 0.0, perfs[1].NormalizedTrading, 1e-9)
	assert.InDelta(t, 0.7*1.0+0.3*0.5, perfs[0].TotalScore, 1e-9)
	assert.Greater(t, perfs[0].TotalScore, perfs[1].TotalScore)
}

func TestNormalize_TiesGetMidpoint(t *testing.T) {
	perfs := []Performance{
		{AgentName: "a"},
		{AgentName: "b"},
		{AgentName: "c"},
	}
	Normalize(perfs)

	for _, p := range perfs {
		assert.InDelta(t, 0.5, p.NormalizedTrading, 1e-9, p.AgentName)
	}
}

func TestNormalize_InvertsDrawdownAndVolatility(t *testing.T) {
	perfs := []Performance{
		{AgentName: "steady", MaxDrawdownPct: 2, Volatility: 0.05},
		{AgentName: "wild", MaxDrawdownPct: 30, Volatility: 0.6},
	}
	Normalize(perfs)

	require.Greater(t, perfs[0].NormalizedTrading, perfs[1].NormalizedTrading,
		"lower drawdown and volatility must score higher")
}

func TestNormalize_Empty(t *testing.T) {
	require.NotPanics(t, func() { Normalize(nil) })
}
