package arena

import (
	"fmt"
	"strings"
	"time"

	"agent-arena-go/internal/market"
)

const indicatorTailLength = 10

// PromptBuilder renders the market/account snapshot an agent decides on:
// account aggregates, open positions with indicator context, candidate
// symbols, and any disclosure intelligence published so far.
type PromptBuilder struct {
	prices   market.Provider
	symbols  []string
	interval string
	perDay   int
}

// NewPromptBuilder creates a builder over the loaded market data.
func NewPromptBuilder(prices market.Provider, symbols []string, interval string, decisionsPerDay int) *PromptBuilder {
	if decisionsPerDay < 1 {
		decisionsPerDay = 1
	}
	return &PromptBuilder{prices: prices, symbols: symbols, interval: interval, perDay: decisionsPerDay}
}

// Build renders the snapshot for one agent at one cycle. Everything that can
// change the agent's decision is in the returned text, which also makes it
// the cache-key context.
func (b *PromptBuilder) Build(agent *Agent, cycle int, ts time.Time, disclosures []*DisclosurePackage) string {
	var sb strings.Builder

	runtimeDays := float64(cycle-1) / float64(b.perDay)
	fmt.Fprintf(&sb, "Time: %s | Cycle: #%d | Runtime: %.1fd\n", ts.UTC().Format(time.RFC3339), cycle, runtimeDays)

	priceMap := b.priceMap(ts)
	equity, _, _ := agent.Account.TotalEquity(priceMap)
	cash := agent.Account.Cash()
	var marginUsed float64
	for _, pos := range agent.Account.Positions() {
		marginUsed += pos.Margin
	}
	marginPct, cashPct := 0.0, 0.0
	if equity > 0 {
		marginPct = marginUsed / equity * 100
		cashPct = cash / equity * 100
	}
	fmt.Fprintf(&sb, "\nAccount: Equity %.2f | Cash %.2f (%.1f%%) | P&L %+.2f%% | Margin %.1f%% | Positions %d\n",
		equity, cash, cashPct, agent.PnLPct(priceMap), marginPct, len(agent.Account.Positions()))

	sb.WriteString("\n## Current Positions\n")
	positions := agent.Account.Positions()
	if len(positions) == 0 {
		sb.WriteString("None\n")
	}
	for i, pos := range positions {
		current, ok := priceMap[pos.Symbol]
		if !ok {
			current = pos.EntryPrice
		}
		unrealized := pos.UnrealizedPnL(current)
		pnlPct := 0.0
		if pos.Notional > 0 {
			pnlPct = unrealized / pos.Notional * 100
		}
		holdHours := ts.Sub(time.Unix(pos.OpenTime, 0)).Hours()
		fmt.Fprintf(&sb, "%d. %s %s | Entry %.2f Current %.2f | Qty %.4f | Notional %.2f | PnL %+.2f%% (%+.2f) | Leverage %dx | Margin %.2f | Liq %.2f | Hold %.1fh\n",
			i+1, pos.Symbol, strings.ToUpper(pos.Side), pos.EntryPrice, current, pos.Quantity,
			pos.Notional, pnlPct, unrealized, pos.Leverage, pos.Margin, pos.LiquidationPrice, holdHours)
		b.writeIndicators(&sb, pos.Symbol, ts)
	}

	fmt.Fprintf(&sb, "\n## Candidate Symbols (%d)\n", len(b.symbols))
	for i, symbol := range b.symbols {
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, symbol)
		b.writeIndicators(&sb, symbol, ts)
	}

	if len(disclosures) > 0 {
		b.writeIntelligence(&sb, agent.Name, disclosures)
	}

	return sb.String()
}

// writeIndicators appends the latest indicator snapshot and short series
// tails for one symbol.
func (b *PromptBuilder) writeIndicators(sb *strings.Builder, symbol string, ts time.Time) {
	series := b.prices.Series(symbol, b.interval)
	if series == nil {
		sb.WriteString("  (no data)\n")
		return
	}
	tail := series.Tail(ts, indicatorTailLength)
	if len(tail) == 0 {
		sb.WriteString("  (no data)\n")
		return
	}

	last := tail[len(tail)-1]
	fmt.Fprintf(sb, "  Price %.2f | EMA20 %.2f EMA50 %.2f | MACD %.4f | RSI7 %.2f RSI14 %.2f | ATR14 %.4f\n",
		last.Close, last.EMA20, last.EMA50, last.MACD, last.RSI7, last.RSI14, last.ATR14)
	fmt.Fprintf(sb, "  Closes: [%s]\n", joinFloats(tail, func(c market.Candle) float64 { return c.Close }))
	fmt.Fprintf(sb, "  MACD: [%s]\n", joinFloats(tail, func(c market.Candle) float64 { return c.MACD }))
	fmt.Fprintf(sb, "  RSI14: [%s]\n", joinFloats(tail, func(c market.Candle) float64 { return c.RSI14 }))
	fmt.Fprintf(sb, "  Volume: [%s]\n", joinFloats(tail, func(c market.Candle) float64 { return c.Volume }))
}

// writeIntelligence appends the disclosure reports, marking the reader's own
// leaderboard row and skipping its own summary.
func (b *PromptBuilder) writeIntelligence(sb *strings.Builder, agentName string, disclosures []*DisclosurePackage) {
	sb.WriteString("\n## Intelligence Report\n")
	for _, d := range disclosures {
		fmt.Fprintf(sb, "[Disclosure %d - Cycle %d]\n", d.Round, d.Cycle)
		sb.WriteString("Leaderboard:\n")
		for _, row := range d.Leaderboard {
			you := ""
			if row.Name == agentName {
				you = " (you)"
			}
			fmt.Fprintf(sb, "  %d. %s%s: %+.2f%% (%.2f)\n", row.Rank, row.Name, you, row.PnLPct, row.Equity)
		}
		for _, s := range d.Summaries {
			if s.Name == agentName {
				continue
			}
			fmt.Fprintf(sb, "-- %s --\n", s.Name)
			if s.MarketView != "" {
				fmt.Fprintf(sb, "  Market View: %s\n", s.MarketView)
			}
			if s.OpponentAnalysis != "" {
				fmt.Fprintf(sb, "  Opponent Analysis: %s\n", s.OpponentAnalysis)
			}
			if s.StrategyAdjustment != "" {
				fmt.Fprintf(sb, "  Strategy Adjustment: %s\n", s.StrategyAdjustment)
			}
			fmt.Fprintf(sb, "  Actions: %s\n", s.ActionsSummary)
			fmt.Fprintf(sb, "  Positions: %s\n", s.Positions)
			fmt.Fprintf(sb, "  PnL: %+.2f%%\n", s.PnLPct)
		}
	}
	sb.WriteString("Include 'Market View:', 'Opponent Analysis:' and 'Strategy Adjustment:' sections in your reasoning.\n")
}

// priceMap resolves current prices for every candidate symbol.
func (b *PromptBuilder) priceMap(ts time.Time) map[string]float64 {
	priceMap := make(map[string]float64, len(b.symbols))
	for _, symbol := range b.symbols {
		if price, ok := b.prices.PriceAt(symbol, ts); ok {
			priceMap[symbol] = price
		}
	}
	return priceMap
}

func joinFloats(candles []market.Candle, pick func(market.Candle) float64) string {
	parts := make([]string, len(candles))
	for i, c := range candles {
		parts[i] = fmt.Sprintf("%.4f", pick(c))
	}
	return strings.Join(parts, ", ")
}
