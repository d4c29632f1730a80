package arena

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptBuilder_Sections(t *testing.T) {
	store := risingMarket("BTCUSDT")
	builder := NewPromptBuilder(store, []string{"BTCUSDT"}, "4h", 6)

	agent := NewAgent("alpha", nil, 10000, 5, 2)
	ts := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	prompt := builder.Build(agent, 3, ts, nil)
	assert.Contains(t, prompt, "Cycle: #3")
	assert.Contains(t, prompt, "Account: Equity 10000.00")
	assert.Contains(t, prompt, "## Current Positions\nNone")
	assert.Contains(t, prompt, "## Candidate Symbols (1)")
	assert.Contains(t, prompt, "### 1. BTCUSDT")
	assert.Contains(t, prompt, "Closes: [")
	assert.NotContains(t, prompt, "Intelligence Report")
}

func TestPromptBuilder_PositionDetail(t *testing.T) {
	store := risingMarket("BTCUSDT")
	builder := NewPromptBuilder(store, []string{"BTCUSDT"}, "4h", 6)

	agent := NewAgent("alpha", nil, 10000, 0, 0)
	ts := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	_, _, _, err := agent.Account.Open("BTCUSDT", "long", 0.1, 5, 50000, ts.Unix())
	require.NoError(t, err)

	prompt := builder.Build(agent, 3, ts, nil)
	assert.Contains(t, prompt, "BTCUSDT LONG")
	assert.Contains(t, prompt, "Leverage 5x")
	assert.Contains(t, prompt, "Liq 40000.00")
}

func TestPromptBuilder_Intelligence(t *testing.T) {
	store := risingMarket("BTCUSDT")
	builder := NewPromptBuilder(store, []string{"BTCUSDT"}, "4h", 6)

	agent := NewAgent("alpha", nil, 10000, 5, 2)
	disclosure := &DisclosurePackage{
		Round: 1,
		Cycle: 4,
		Leaderboard: []LeaderboardRow{
			{Rank: 1, Name: "beta", PnLPct: 2.5, Equity: 10250},
			{Rank: 2, Name: "alpha", PnLPct: -1.0, Equity: 9900},
		},
		Summaries: []AgentSummary{
			{Name: "alpha", MarketView: "my own view"},
			{Name: "beta", MarketView: "shorting strength", ActionsSummary: "open_short BTCUSDT x3", Positions: "BTCUSDT short 0.2000 @ 50000.00"},
		},
	}

	prompt := builder.Build(agent, 5, time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC), []*DisclosurePackage{disclosure})
	assert.Contains(t, prompt, "Intelligence Report")
	assert.Contains(t, prompt, "alpha (you)")
	assert.Contains(t, prompt, "-- beta --")
	assert.Contains(t, prompt, "Market View: shorting strength")
	// The reader's own summary is withheld from its prompt.
	assert.NotContains(t, prompt, "my own view")
}
