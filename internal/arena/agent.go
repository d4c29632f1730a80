package arena

import (
	"agent-arena-go/internal/decision"
	"agent-arena-go/internal/ledger"
	"agent-arena-go/internal/perf"
)

// Agent is one competitor: its decision source plus all state accumulated
// over a run. Each agent owns a disjoint account; nothing here is shared
// across agents.
type Agent struct {
	Name    string
	Source  decision.Source
	Account *ledger.Account
	Trades  []perf.TradeEvent
	Equity  []perf.EquityPoint
}

// NewAgent funds an agent with its own account.
func NewAgent(name string, source decision.Source, initialBalance, feeBps, slippageBps float64) *Agent {
	return &Agent{
		Name:    name,
		Source:  source,
		Account: ledger.NewAccount(initialBalance, feeBps, slippageBps),
	}
}

// PnLPct is the agent's current return over its initial balance, marked at
// the given prices.
func (a *Agent) PnLPct(priceMap map[string]float64) float64 {
	equity, _, _ := a.Account.TotalEquity(priceMap)
	return (equity - a.Account.InitialBalance()) / a.Account.InitialBalance() * 100
}
