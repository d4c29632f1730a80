package arena

import (
	"fmt"
	"sort"
	"strings"

	"agent-arena-go/internal/decision"
)

// Delimiters agents are asked to use when structuring their reasoning.
// Extraction is best effort: a missing delimiter leaves the field empty.
const (
	marketViewMarker   = "Market View:"
	opponentMarker     = "Opponent Analysis:"
	adjustmentMarker   = "Strategy Adjustment:"
	marketViewFallback = 120
)

// RoundDecision is one agent's stored decision for one cycle, with the
// structured reasoning fields already extracted. Feeds disclosure packages.
type RoundDecision struct {
	AgentName          string
	Cycle              int
	Round              int
	MarketView         string
	OpponentAnalysis   string
	StrategyAdjustment string
	Actions            []decision.Action
	FullReasoning      string
}

// LeaderboardRow ranks one agent by P&L percentage at a disclosure point.
type LeaderboardRow struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	PnLPct float64 `json:"pnl_pct"`
	Equity float64 `json:"equity"`
}

// AgentSummary is the per-agent slice of a disclosure package: the most
// recent qualitative signals, actions and position snapshot.
type AgentSummary struct {
	Name               string  `json:"name"`
	MarketView         string  `json:"market_view"`
	OpponentAnalysis   string  `json:"opponent_analysis"`
	StrategyAdjustment string  `json:"strategy_adjustment"`
	ActionsSummary     string  `json:"actions_summary"`
	Positions          string  `json:"positions"`
	PnLPct             float64 `json:"pnl_pct"`
	Equity             float64 `json:"equity"`
}

// DisclosurePackage is the periodic cross-agent intelligence report. It is
// consumed by later prompt construction, never by the ledger.
type DisclosurePackage struct {
	Round       int              `json:"round"`
	Cycle       int              `json:"cycle"`
	Leaderboard []LeaderboardRow `json:"leaderboard"`
	Summaries   []AgentSummary   `json:"summaries"`
}

// extractReasoningFields pulls the delimited sections out of a free-text
// reasoning narrative. The market view falls back to a prefix of the raw
// text when no delimiter is present; the other fields stay empty.
func extractReasoningFields(reasoning string) (marketView, opponentAnalysis, strategyAdjustment string) {
	marketView = sectionAfter(reasoning, marketViewMarker)
	if marketView == "" && strings.TrimSpace(reasoning) != "" {
		trimmed := strings.TrimSpace(reasoning)
		if len(trimmed) > marketViewFallback {
			trimmed = trimmed[:marketViewFallback]
		}
		marketView = trimmed
	}
	opponentAnalysis = sectionAfter(reasoning, opponentMarker)
	strategyAdjustment = sectionAfter(reasoning, adjustmentMarker)
	return marketView, opponentAnalysis, strategyAdjustment
}

// sectionAfter returns the text between marker and the next blank line.
func sectionAfter(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(marker):]
	if end := strings.Index(rest, "\n\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// buildLeaderboard ranks agents by current P&L percentage, best first.
func buildLeaderboard(agents []*Agent, priceMap map[string]float64) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(agents))
	for _, agent := range agents {
		equity, _, _ := agent.Account.TotalEquity(priceMap)
		rows = append(rows, LeaderboardRow{
			Name:   agent.Name,
			PnLPct: agent.PnLPct(priceMap),
			Equity: equity,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PnLPct > rows[j].PnLPct })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// summarizeActions flattens an agent's round actions into one line.
func summarizeActions(decisions []RoundDecision) string {
	var parts []string
	for _, d := range decisions {
		for _, a := range d.Actions {
			if a.Kind == decision.ActionHold {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s %s x%d", a.Kind, a.Symbol, a.Leverage))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// positionsSnapshot renders an agent's open positions in one line.
func positionsSnapshot(agent *Agent) string {
	positions := agent.Account.Positions()
	if len(positions) == 0 {
		return "no positions"
	}
	parts := make([]string, 0, len(positions))
	for _, p := range positions {
		parts = append(parts, fmt.Sprintf("%s %s %.4f @ %.2f", p.Symbol, p.Side, p.Quantity, p.EntryPrice))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
