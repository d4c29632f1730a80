package arena

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agent-arena-go/internal/config"
	"agent-arena-go/internal/decision"
	"agent-arena-go/internal/judge"
	"agent-arena-go/internal/market"
	"agent-arena-go/internal/perf"
)

// risingMarket is six 4h candles covering one day, drifting upward.
func risingMarket(symbol string) *market.Store {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := &market.Series{Symbol: symbol, Interval: "4h"}
	for i := 0; i < 6; i++ {
		price := 50000 + float64(i)*100
		series.Candles = append(series.Candles, market.Candle{
			OpenTime: start.Add(time.Duration(i) * 4 * time.Hour),
			Open:     price, High: price + 50, Low: price - 50, Close: price,
			Volume: 1000,
		})
	}
	store := market.NewStore()
	store.Add(series)
	return store
}

func oneDayConfig() config.Arena {
	return config.Arena{
		Symbols:          []string{"BTCUSDT"},
		StartDate:        "2025-01-01",
		EndDate:          "2025-01-02",
		DecisionInterval: "4h",
		DecisionsPerDay:  6,
		InitialBalance:   10000,
		FeeBps:           5,
		SlippageBps:      2,
	}
}

// openOnceSource opens a long on its first call and holds afterwards.
func openOnceSource() decision.Source {
	calls := 0
	return decision.ScriptedSource(func(string) decision.Decision {
		calls++
		if calls > 1 {
			return decision.Hold("Market View: staying long")
		}
		return decision.Decision{
			Summary:   "open long",
			Reasoning: "Market View: uptrend forming\n\nStrategy Adjustment: ride the trend",
			Actions: []decision.Action{
				{Symbol: "BTCUSDT", Kind: decision.ActionOpenLong, Leverage: 2, Notional: 5000},
			},
		}
	})
}

func neverTradeSource() decision.Source {
	return decision.ScriptedSource(func(string) decision.Decision {
		return decision.Hold("Market View: no edge, flat")
	})
}

type fakeJudge struct {
	scores map[string]float64
}

func (f fakeJudge) Review(context.Context, map[string]string) (judge.Review, error) {
	return judge.Review{Scores: f.scores, Narrative: "reviewed"}, nil
}

func TestCompetition_TwoAgentEndToEnd(t *testing.T) {
	cfg := oneDayConfig()
	cfg.DisclosureCycles = []int{4}

	alpha := NewAgent("alpha", openOnceSource(), cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps)
	beta := NewAgent("beta", neverTradeSource(), cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps)

	c := NewCompetition(cfg, []*Agent{alpha, beta}, nil, risingMarket("BTCUSDT"), nil, nil, zap.NewNop())
	result, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, c.State())

	// One equity point per agent per cycle, always.
	require.Len(t, alpha.Equity, 6)
	require.Len(t, beta.Equity, 6)

	var alphaPerf, betaPerf *perf.Performance
	for i := range result.Performances {
		switch result.Performances[i].AgentName {
		case "alpha":
			alphaPerf = &result.Performances[i]
		case "beta":
			betaPerf = &result.Performances[i]
		}
	}
	require.NotNil(t, alphaPerf)
	require.NotNil(t, betaPerf)

	// The rising market makes the long profitable; the idle agent stays flat
	// and ends up at the bottom of every min-max scale it loses.
	assert.Greater(t, alphaPerf.TotalReturnPct, 0.0)
	assert.Equal(t, 0.0, betaPerf.TotalReturnPct)
	assert.Greater(t, alphaPerf.NormalizedTrading, betaPerf.NormalizedTrading)
	assert.Greater(t, alphaPerf.TotalScore, betaPerf.TotalScore)

	// Disclosure published at cycle 4, ranked by P&L.
	require.Len(t, result.Disclosures, 1)
	d := result.Disclosures[0]
	assert.Equal(t, 1, d.Round)
	assert.Equal(t, 4, d.Cycle)
	require.Len(t, d.Leaderboard, 2)
	assert.Equal(t, "alpha", d.Leaderboard[0].Name)

	// Reasoning fields were extracted into alpha's summary.
	for _, s := range d.Summaries {
		if s.Name == "alpha" {
			assert.NotEmpty(t, s.MarketView)
			assert.Contains(t, s.Positions, "BTCUSDT long")
		}
	}

	assert.Equal(t, "no judge configured", result.Narrative)
}

func TestCompetition_JudgeScoresMerged(t *testing.T) {
	cfg := oneDayConfig()

	alpha := NewAgent("alpha", openOnceSource(), cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps)
	j := fakeJudge{scores: map[string]float64{"alpha": 0.9}}

	c := NewCompetition(cfg, []*Agent{alpha}, nil, risingMarket("BTCUSDT"), j, nil, zap.NewNop())
	result, err := c.Run(context.Background())
	require.NoError(t, err)

	p := result.Performances[0]
	assert.Equal(t, 0.9, p.ReasoningScore)
	assert.InDelta(t, 0.7*p.NormalizedTrading+0.3*0.9, p.TotalScore, 1e-9)
	assert.Equal(t, "reviewed", result.Narrative)
}

func TestCompetition_StrictReasoningDegradesToHold(t *testing.T) {
	cfg := oneDayConfig()
	cfg.StrictReasoning = true

	mute := decision.ScriptedSource(func(string) decision.Decision {
		return decision.Decision{
			Summary: "yolo",
			Actions: []decision.Action{
				{Symbol: "BTCUSDT", Kind: decision.ActionOpenLong, Leverage: 5, Notional: 8000},
			},
		}
	})
	agent := NewAgent("mute", mute, cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps)

	c := NewCompetition(cfg, []*Agent{agent}, nil, risingMarket("BTCUSDT"), nil, nil, zap.NewNop())
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// Every cycle degraded to hold: no trades, cash untouched.
	assert.Empty(t, agent.Trades)
	assert.Equal(t, cfg.InitialBalance, agent.Account.Cash())
}

func TestCompetition_SourceFailureHolds(t *testing.T) {
	cfg := oneDayConfig()

	agent := NewAgent("broken", brokenSource{}, cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps)

	c := NewCompetition(cfg, []*Agent{agent}, nil, risingMarket("BTCUSDT"), nil, nil, zap.NewNop())
	result, err := c.Run(context.Background())
	require.NoError(t, err, "a failing agent never aborts the run")

	assert.Empty(t, agent.Trades)
	require.Len(t, agent.Equity, 6)
	assert.Equal(t, 0.0, result.Performances[0].TotalReturnPct)
}

type brokenSource struct{}

func (brokenSource) Decide(context.Context, decision.Request) (decision.Decision, error) {
	return decision.Decision{}, assert.AnError
}

func TestCompetition_ProgressEventsNeverBlock(t *testing.T) {
	cfg := oneDayConfig()
	agent := NewAgent("solo", neverTradeSource(), cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps)

	c := NewCompetition(cfg, []*Agent{agent}, nil, risingMarket("BTCUSDT"), nil, nil, zap.NewNop())

	// Nobody consumes the events channel; the run must still finish.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Run(context.Background())
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run blocked on progress delivery")
	}

	// The buffered events are still observable afterwards.
	assert.NotEmpty(t, c.Events())
}

func TestCompetition_EventsChannelClosesWhenDone(t *testing.T) {
	cfg := oneDayConfig()
	agent := NewAgent("solo", neverTradeSource(), cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps)

	c := NewCompetition(cfg, []*Agent{agent}, nil, risingMarket("BTCUSDT"), nil, nil, zap.NewNop())

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for range c.Events() {
		}
	}()

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// Run closed the channel, so the range loop above terminates.
	select {
	case <-consumed:
	case <-time.After(10 * time.Second):
		t.Fatal("events channel was not closed after the run finished")
	}
}

func TestCompetition_ContextCancellation(t *testing.T) {
	cfg := oneDayConfig()
	agent := NewAgent("solo", neverTradeSource(), cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps)

	c := NewCompetition(cfg, []*Agent{agent}, nil, risingMarket("BTCUSDT"), nil, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompetition_BadDates(t *testing.T) {
	cfg := oneDayConfig()
	cfg.StartDate = "not-a-date"

	c := NewCompetition(cfg, nil, nil, risingMarket("BTCUSDT"), nil, nil, zap.NewNop())
	_, err := c.Run(context.Background())
	assert.Error(t, err)
}
