package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"agent-arena-go/internal/arena"
	"agent-arena-go/internal/config"
	"agent-arena-go/internal/database"
	"agent-arena-go/internal/decision"
	"agent-arena-go/internal/judge"
	"agent-arena-go/internal/logger"
	"agent-arena-go/internal/market"
	"agent-arena-go/internal/telemetry"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	if cfg.Server.MetricsAddr != "" {
		telemetry.Serve(cfg.Server.MetricsAddr)
		log.Info("Metrics server started", zap.String("addr", cfg.Server.MetricsAddr))
	}

	cache := decision.NewCache(cfg.Arena.CachePath, log)
	agents := buildAgents(&cfg.Arena, cache, log)
	if len(agents) == 0 {
		log.Fatal("No agents configured")
	}

	var reasoningJudge judge.Judge = judge.NopJudge{}
	if cfg.Judge.Enabled {
		reasoningJudge = judge.NewHTTPJudge(cfg.Judge.URL, log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	fetcher := market.NewFetcher(&cfg.Market, log)
	competition := arena.NewCompetition(cfg.Arena, agents, fetcher, nil, reasoningJudge, db, log)

	go func() {
		for event := range competition.Events() {
			log.Debug("Progress",
				zap.String("state", event.State.String()),
				zap.Int("cycle", event.Cycle),
				zap.String("agent", event.Agent),
				zap.String("message", event.Message),
			)
		}
	}()

	result, err := competition.Run(ctx)
	if err != nil {
		log.Fatal("Competition failed", zap.Error(err))
	}

	for _, p := range result.Performances {
		log.Info("Final score",
			zap.String("agent", p.AgentName),
			zap.Float64("return_pct", p.TotalReturnPct),
			zap.Float64("sharpe", p.SharpeRatio),
			zap.Float64("max_drawdown_pct", p.MaxDrawdownPct),
			zap.Float64("trading_score", p.TradingScore),
			zap.Float64("normalized_trading", p.NormalizedTrading),
			zap.Float64("total_score", p.TotalScore),
		)
	}
	if result.Narrative != "" {
		log.Info("Judge narrative", zap.String("narrative", result.Narrative))
	}

	entries, hits, misses := cache.Stats()
	log.Info("Decision cache stats",
		zap.Int("entries", entries),
		zap.Int("hits", hits),
		zap.Int("misses", misses),
	)
}

// buildAgents wires each configured competitor: a live HTTP source when a URL
// is given, the hold-only baseline otherwise, both behind the decision cache.
func buildAgents(cfg *config.Arena, cache *decision.Cache, log *zap.Logger) []*arena.Agent {
	agents := make([]*arena.Agent, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		var source decision.Source
		if ac.URL != "" {
			source = decision.NewHTTPSource(ac.URL, log)
		} else {
			source = decision.ScriptedSource(func(string) decision.Decision {
				return decision.Hold("baseline: holding every cycle")
			})
		}
		source = decision.NewCachedSource(ac.Name, source, cache)
		agents = append(agents, arena.NewAgent(ac.Name, source, cfg.InitialBalance, cfg.FeeBps, cfg.SlippageBps))
	}
	return agents
}
