package arena

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"agent-arena-go/internal/config"
	"agent-arena-go/internal/decision"
	"agent-arena-go/internal/judge"
	"agent-arena-go/internal/market"
	"agent-arena-go/internal/models"
	"agent-arena-go/internal/perf"
	"agent-arena-go/internal/telemetry"
)

// State of the competition driver.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateRunning
	StateScoring
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	case StateScoring:
		return "scoring"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// ProgressEvent is a best-effort status update. Delivery is non-blocking;
// events are dropped when the channel is full.
type ProgressEvent struct {
	State     State
	Cycle     int
	Agent     string
	Message   string
	Timestamp time.Time
}

const progressBuffer = 64

// SeriesLoader fetches one candle history. Satisfied by market.Fetcher.
type SeriesLoader interface {
	FetchKlines(ctx context.Context, symbol, interval string, start, end time.Time) (*market.Series, error)
}

// Result is the final output of a run: every agent's scored performance, the
// judge's narrative and the disclosure packages produced along the way.
type Result struct {
	Performances []perf.Performance
	Narrative    string
	Disclosures  []*DisclosurePackage
}

// Competition drives the full evaluation: load market data, iterate decision
// cycles over all agents in a fixed order, publish disclosures at configured
// cycles, then score. The loop is single-threaded; each agent's
// snapshot-decision-execute-record sequence completes before the next agent
// starts, so disclosure content always reflects a consistent round boundary.
type Competition struct {
	cfg    config.Arena
	agents []*Agent
	loader SeriesLoader
	store  *market.Store
	engine *Engine
	prompt *PromptBuilder
	judge  judge.Judge
	db     *gorm.DB
	logger *zap.Logger

	state          State
	round          int
	roundDecisions []RoundDecision
	disclosures    []*DisclosurePackage
	events         chan ProgressEvent
}

// NewCompetition assembles a driver. loader may be nil when store already
// holds the series (tests, replays); db may be nil to skip persistence;
// j may be nil for no reasoning judging.
func NewCompetition(cfg config.Arena, agents []*Agent, loader SeriesLoader, store *market.Store, j judge.Judge, db *gorm.DB, logger *zap.Logger) *Competition {
	if store == nil {
		store = market.NewStore()
	}
	if j == nil {
		j = judge.NopJudge{}
	}
	return &Competition{
		cfg:    cfg,
		agents: agents,
		loader: loader,
		store:  store,
		engine: NewEngine(store, logger),
		prompt: NewPromptBuilder(store, cfg.Symbols, cfg.DecisionInterval, cfg.DecisionsPerDay),
		judge:  j,
		db:     db,
		logger: logger,
		state:  StateIdle,
		events: make(chan ProgressEvent, progressBuffer),
	}
}

// Events exposes the progress stream. The driver never blocks on it, and
// closes it once the run reaches the done state so range consumers exit.
func (c *Competition) Events() <-chan ProgressEvent { return c.events }

// State returns the driver's current state.
func (c *Competition) State() State { return c.state }

// Disclosures returns the packages published so far.
func (c *Competition) Disclosures() []*DisclosurePackage { return c.disclosures }

// Run executes the whole competition. The context is checked at cycle
// boundaries only; no operation is cancelled mid-cycle.
func (c *Competition) Run(ctx context.Context) (*Result, error) {
	c.setState(StateLoading)
	timestamps, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("no decision cycles between %s and %s", c.cfg.StartDate, c.cfg.EndDate)
	}

	c.setState(StateRunning)
	for i, ts := range timestamps {
		cycle := i + 1
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if containsInt(c.cfg.DisclosureCycles, cycle) {
			d := c.createDisclosure(cycle, ts)
			c.logger.Info("Disclosure published",
				zap.Int("round", d.Round),
				zap.Int("cycle", cycle),
			)
		}

		for _, agent := range c.agents {
			c.runAgentCycle(ctx, agent, cycle, ts)
		}
		telemetry.CyclesCompleted.Inc()
	}

	c.setState(StateScoring)
	result := c.score(ctx)

	c.setState(StateDone)
	// The run is single-threaded, so nothing can emit after this point.
	close(c.events)
	return result, nil
}

// load fetches every configured symbol's history and derives the cycle
// timestamps, start inclusive, end exclusive.
func (c *Competition) load(ctx context.Context) ([]time.Time, error) {
	start, err := time.Parse("2006-01-02", c.cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date: %w", err)
	}
	stepSeconds := market.IntervalSeconds[c.cfg.DecisionInterval]
	if stepSeconds <= 0 {
		return nil, fmt.Errorf("unknown decision_interval %q", c.cfg.DecisionInterval)
	}

	if c.loader != nil {
		for _, symbol := range c.cfg.Symbols {
			series, err := c.loader.FetchKlines(ctx, symbol, c.cfg.DecisionInterval, start, end)
			if err != nil {
				return nil, fmt.Errorf("loading %s: %w", symbol, err)
			}
			c.store.Add(series)
		}
	}

	var timestamps []time.Time
	step := time.Duration(stepSeconds) * time.Second
	for ts := start; ts.Before(end); ts = ts.Add(step) {
		timestamps = append(timestamps, ts)
	}
	return timestamps, nil
}

// runAgentCycle is one agent's full sequence for one cycle: liquidation
// sweep, snapshot, decision, execution, equity recording.
func (c *Competition) runAgentCycle(ctx context.Context, agent *Agent, cycle int, ts time.Time) {
	c.engine.EnforceLiquidations(agent, ts, cycle)

	prompt := c.prompt.Build(agent, cycle, ts, c.disclosures)
	d, err := agent.Source.Decide(ctx, decision.Request{Prompt: prompt, Timestamp: ts})
	if err != nil {
		c.logger.Warn("Decision source failed, holding",
			zap.String("agent", agent.Name),
			zap.Int("cycle", cycle),
			zap.Error(err),
		)
		d = decision.Hold(fmt.Sprintf("decision source failed: %v", err))
	}
	if c.cfg.StrictReasoning && strings.TrimSpace(d.Reasoning) == "" {
		c.logger.Warn("Empty reasoning rejected, holding",
			zap.String("agent", agent.Name),
			zap.Int("cycle", cycle),
		)
		d = decision.Hold("rejected: decision carried no reasoning")
	}

	c.storeRoundDecision(agent.Name, cycle, d)

	if _, err := c.engine.ExecuteDecision(agent, d, ts, cycle); err != nil {
		// Contract violations are bugs; surface them loudly but keep the
		// competition consistent by continuing with the recorded equity.
		c.logger.Error("Execution contract violation",
			zap.String("agent", agent.Name),
			zap.Int("cycle", cycle),
			zap.Error(err),
		)
	}

	c.emit(ProgressEvent{
		State:     StateRunning,
		Cycle:     cycle,
		Agent:     agent.Name,
		Message:   d.Summary,
		Timestamp: ts,
	})
}

func (c *Competition) storeRoundDecision(agentName string, cycle int, d decision.Decision) {
	marketView, opponentAnalysis, strategyAdjustment := extractReasoningFields(d.Reasoning)
	c.roundDecisions = append(c.roundDecisions, RoundDecision{
		AgentName:          agentName,
		Cycle:              cycle,
		Round:              c.round,
		MarketView:         marketView,
		OpponentAnalysis:   opponentAnalysis,
		StrategyAdjustment: strategyAdjustment,
		Actions:            d.Actions,
		FullReasoning:      d.Reasoning,
	})
}

// createDisclosure publishes the cross-agent intelligence package for the
// just-completed round and advances the round counter.
func (c *Competition) createDisclosure(cycle int, ts time.Time) *DisclosurePackage {
	priceMap := c.prompt.priceMap(ts)
	previousRound := c.round
	c.round++

	summaries := make([]AgentSummary, 0, len(c.agents))
	for _, agent := range c.agents {
		var roundDecisions []RoundDecision
		for _, d := range c.roundDecisions {
			if d.AgentName == agent.Name && d.Round == previousRound {
				roundDecisions = append(roundDecisions, d)
			}
		}

		summary := AgentSummary{
			Name:           agent.Name,
			ActionsSummary: summarizeActions(roundDecisions),
			Positions:      positionsSnapshot(agent),
			PnLPct:         agent.PnLPct(priceMap),
		}
		equity, _, _ := agent.Account.TotalEquity(priceMap)
		summary.Equity = equity
		if len(roundDecisions) > 0 {
			last := roundDecisions[len(roundDecisions)-1]
			summary.MarketView = last.MarketView
			summary.OpponentAnalysis = last.OpponentAnalysis
			summary.StrategyAdjustment = last.StrategyAdjustment
		}
		summaries = append(summaries, summary)
	}

	d := &DisclosurePackage{
		Round:       c.round,
		Cycle:       cycle,
		Leaderboard: buildLeaderboard(c.agents, priceMap),
		Summaries:   summaries,
	}
	c.disclosures = append(c.disclosures, d)

	c.emit(ProgressEvent{
		State:     StateRunning,
		Cycle:     cycle,
		Message:   fmt.Sprintf("disclosure round %d published", d.Round),
		Timestamp: ts,
	})
	return d
}

// score computes every agent's performance, merges the judge's reasoning
// scores, normalizes across the field and persists the results.
func (c *Competition) score(ctx context.Context) *Result {
	perfs := make([]perf.Performance, 0, len(c.agents))
	for _, agent := range c.agents {
		p := perf.Compute(agent.Name, agent.Account.InitialBalance(), agent.Equity, agent.Trades, c.cfg.DecisionsPerDay)
		perfs = append(perfs, p)
	}

	review, err := c.judge.Review(ctx, c.transcripts())
	if err != nil {
		c.logger.Warn("Judge failed, reasoning scores default to 0", zap.Error(err))
		review = judge.Review{Narrative: fmt.Sprintf("judge unavailable: %v", err)}
	}
	for i := range perfs {
		perfs[i].ReasoningScore = review.Scores[perfs[i].AgentName]
		perf.Score(&perfs[i])
	}

	perf.Normalize(perfs)

	if c.db != nil {
		c.persist(perfs)
	}

	return &Result{
		Performances: perfs,
		Narrative:    review.Narrative,
		Disclosures:  c.disclosures,
	}
}

// transcripts collects each agent's reasoning history for the judge.
func (c *Competition) transcripts() map[string]string {
	out := make(map[string]string, len(c.agents))
	for _, agent := range c.agents {
		var sb strings.Builder
		for _, d := range c.roundDecisions {
			if d.AgentName != agent.Name || strings.TrimSpace(d.FullReasoning) == "" {
				continue
			}
			fmt.Fprintf(&sb, "[cycle %d] %s\n", d.Cycle, d.FullReasoning)
		}
		out[agent.Name] = sb.String()
	}
	return out
}

func (c *Competition) persist(perfs []perf.Performance) {
	for _, agent := range c.agents {
		for _, t := range agent.Trades {
			record := models.TradeRecord{
				AgentName:     t.AgentName,
				Timestamp:     t.Timestamp.Unix(),
				Symbol:        t.Symbol,
				Action:        t.Action,
				Side:          t.Side,
				Quantity:      t.Quantity,
				Price:         t.Price,
				Fee:           t.Fee,
				Slippage:      t.Slippage,
				OrderValue:    t.OrderValue,
				RealizedPnL:   t.RealizedPnL,
				Leverage:      t.Leverage,
				Cycle:         t.Cycle,
				PositionAfter: t.PositionAfter,
				Liquidation:   t.Liquidation,
			}
			if err := c.db.Create(&record).Error; err != nil {
				c.logger.Error("Failed to persist trade", zap.Error(err))
			}
		}
	}

	for _, p := range perfs {
		record := models.PerformanceRecord{
			AgentName:           p.AgentName,
			TotalReturnPct:      p.TotalReturnPct,
			TotalReturnUSD:      p.TotalReturnUSD,
			CAGR:                p.CAGR,
			SharpeRatio:         p.SharpeRatio,
			SortinoRatio:        p.SortinoRatio,
			MaxDrawdownPct:      p.MaxDrawdownPct,
			Volatility:          p.Volatility,
			TotalTrades:         p.TotalTrades,
			WinRate:             p.WinRate,
			ProfitFactor:        p.ProfitFactor,
			AvgTradesPerDay:     p.AvgTradesPerDay,
			ProfitabilityScore:  p.ProfitabilityScore,
			RiskManagementScore: p.RiskManagementScore,
			ConsistencyScore:    p.ConsistencyScore,
			EfficiencyScore:     p.EfficiencyScore,
			RobustnessScore:     p.RobustnessScore,
			ReasoningScore:      p.ReasoningScore,
			TradingScore:        p.TradingScore,
			NormalizedTrading:   p.NormalizedTrading,
			TotalScore:          p.TotalScore,
		}
		if err := c.db.Create(&record).Error; err != nil {
			c.logger.Error("Failed to persist performance", zap.Error(err))
		}
	}
}

func (c *Competition) setState(s State) {
	c.state = s
	c.logger.Info("Competition state changed", zap.String("state", s.String()))
	c.emit(ProgressEvent{State: s, Timestamp: time.Now()})
}

// emit delivers a progress event without ever blocking the loop.
func (c *Competition) emit(event ProgressEvent) {
	select {
	case c.events <- event:
	default:
	}
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
