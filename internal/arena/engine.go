package arena

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"agent-arena-go/internal/decision"
	"agent-arena-go/internal/ledger"
	"agent-arena-go/internal/perf"
	"agent-arena-go/internal/telemetry"
)

// Notional sizing buffers. The cap keeps part of the account free for fees;
// the scale-down shaves a funded-but-tight order so the ledger's own margin
// check cannot bounce it.
const (
	notionalCapRatio = 0.88
	fundingSafety    = 0.98
)

// ErrQuantityContract flags a computed order quantity at or below the
// ledger's epsilon. Sizing owns the conversion, so this is a bug in the
// caller's numbers rather than an infeasible order.
var ErrQuantityContract = errors.New("computed quantity below ledger epsilon")

// PriceProvider is the slice of the market the engine needs.
type PriceProvider interface {
	PriceAt(symbol string, ts time.Time) (float64, bool)
}

// Engine translates an agent's abstract decision into ledger operations:
// price resolution, notional sizing and capping, dispatch, trade and equity
// recording. Infeasible orders are skipped with a diagnostic, never fatal.
type Engine struct {
	prices PriceProvider
	logger *zap.Logger
}

// NewEngine creates an execution engine over the given price source.
func NewEngine(prices PriceProvider, logger *zap.Logger) *Engine {
	return &Engine{prices: prices, logger: logger}
}

// ExecuteDecision applies every action of the decision to the agent's
// account and records the resulting trades. An equity point is appended for
// the cycle whether or not any action executed. The only error returned is
// ErrQuantityContract; everything else degrades to a skipped action.
func (e *Engine) ExecuteDecision(agent *Agent, d decision.Decision, ts time.Time, cycle int) ([]perf.TradeEvent, error) {
	var trades []perf.TradeEvent
	var contractErr error

	for _, action := range d.Actions {
		if action.Kind == decision.ActionHold {
			continue
		}

		price, ok := e.prices.PriceAt(action.Symbol, ts)
		if !ok || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			e.logger.Warn("No usable price, skipping action",
				zap.String("agent", agent.Name),
				zap.String("symbol", action.Symbol),
				zap.String("action", action.Kind),
			)
			continue
		}

		var event *perf.TradeEvent
		var err error
		if action.IsOpen() {
			event, err = e.executeOpen(agent, action, price, ts, cycle)
		} else {
			event = e.executeClose(agent, action, price, ts, cycle)
		}
		if err != nil {
			contractErr = err
			break
		}
		if event != nil {
			trades = append(trades, *event)
			agent.Trades = append(agent.Trades, *event)
			telemetry.TradesExecuted.WithLabelValues(agent.Name, event.Action).Inc()
		}
	}

	// The cycle's equity point is appended even when an action violated the
	// sizing contract, so every agent's curve keeps one point per cycle.
	e.RecordEquity(agent, ts, cycle)
	return trades, contractErr
}

func (e *Engine) executeOpen(agent *Agent, action decision.Action, price float64, ts time.Time, cycle int) (*perf.TradeEvent, error) {
	leverage := action.Leverage
	if leverage < 1 {
		leverage = 1
	}

	quantity := action.Quantity
	if quantity <= 0 {
		var err error
		quantity, err = e.sizeFromNotional(agent, action, leverage, price)
		if err != nil {
			return nil, err
		}
		if quantity == 0 {
			return nil, nil
		}
	}

	pos, fee, execPrice, err := agent.Account.Open(action.Symbol, action.Side(), quantity, leverage, price, ts.Unix())
	if err != nil {
		e.logger.Warn("Order rejected",
			zap.String("agent", agent.Name),
			zap.String("symbol", action.Symbol),
			zap.String("action", action.Kind),
			zap.Float64("quantity", quantity),
			zap.Error(err),
		)
		return nil, nil
	}

	return &perf.TradeEvent{
		AgentName:     agent.Name,
		Timestamp:     ts,
		Cycle:         cycle,
		Symbol:        pos.Symbol,
		Action:        action.Kind,
		Side:          action.Side(),
		Quantity:      quantity,
		Price:         execPrice,
		Fee:           fee,
		Slippage:      adverseSlippage(price, execPrice),
		OrderValue:    execPrice * quantity,
		Leverage:      pos.Leverage,
		PositionAfter: pos.Quantity,
	}, nil
}

// sizeFromNotional converts a target notional into a quantity the account
// can fund. Zero with nil error means the order was skipped.
func (e *Engine) sizeFromNotional(agent *Agent, action decision.Action, leverage int, price float64) (float64, error) {
	notional := action.Notional
	if notional <= 0 {
		e.logger.Warn("Open without quantity or notional, skipping",
			zap.String("agent", agent.Name),
			zap.String("symbol", action.Symbol),
		)
		return 0, nil
	}

	cash := agent.Account.Cash()
	cap := cash * float64(leverage) * notionalCapRatio
	if notional > cap {
		notional = cap
	}

	margin := notional / float64(leverage)
	fee := notional * agent.Account.FeeRate()
	if margin+fee > cash {
		if margin+fee <= 0 {
			return 0, nil
		}
		notional *= cash / (margin + fee) * fundingSafety
		margin = notional / float64(leverage)
		fee = notional * agent.Account.FeeRate()
		if margin+fee > cash {
			e.logger.Warn("Order cannot be funded after scale-down, skipping",
				zap.String("agent", agent.Name),
				zap.String("symbol", action.Symbol),
				zap.Float64("notional", notional),
				zap.Float64("cash", cash),
			)
			return 0, nil
		}
	}

	quantity := notional / price
	if quantity <= ledger.Epsilon {
		return 0, fmt.Errorf("%w: %s notional %.8f at price %.8f", ErrQuantityContract, action.Symbol, notional, price)
	}
	return quantity, nil
}

func (e *Engine) executeClose(agent *Agent, action decision.Action, price float64, ts time.Time, cycle int) *perf.TradeEvent {
	side := action.Side()

	quantity := action.Quantity
	if quantity <= 0 {
		// Unspecified quantity closes the whole position.
		pos := agent.Account.Position(action.Symbol, side)
		if pos == nil {
			e.logger.Warn("Close with no open position, skipping",
				zap.String("agent", agent.Name),
				zap.String("symbol", action.Symbol),
				zap.String("side", side),
			)
			return nil
		}
		quantity = pos.Quantity
	}

	leverage := agent.Account.PositionLeverage(action.Symbol, side)
	pnl, fee, execPrice, err := agent.Account.Close(action.Symbol, side, quantity, price)
	if err != nil {
		e.logger.Warn("Close rejected",
			zap.String("agent", agent.Name),
			zap.String("symbol", action.Symbol),
			zap.String("side", side),
			zap.Float64("quantity", quantity),
			zap.Error(err),
		)
		return nil
	}

	var remaining float64
	if pos := agent.Account.Position(action.Symbol, side); pos != nil {
		remaining = pos.Quantity
	}

	return &perf.TradeEvent{
		AgentName:     agent.Name,
		Timestamp:     ts,
		Cycle:         cycle,
		Symbol:        action.Symbol,
		Action:        action.Kind,
		Side:          side,
		Quantity:      quantity,
		Price:         execPrice,
		Fee:           fee,
		Slippage:      adverseSlippage(price, execPrice),
		OrderValue:    execPrice * quantity,
		RealizedPnL:   pnl,
		Leverage:      leverage,
		PositionAfter: remaining,
	}
}

// EnforceLiquidations force-closes every position whose liquidation price
// has been crossed, filling at the liquidation price itself. Runs at the
// start of each agent's cycle, before the decision.
func (e *Engine) EnforceLiquidations(agent *Agent, ts time.Time, cycle int) []perf.TradeEvent {
	var trades []perf.TradeEvent

	for _, pos := range agent.Account.Positions() {
		price, ok := e.prices.PriceAt(pos.Symbol, ts)
		if !ok {
			continue
		}
		crossed := (pos.Side == ledger.SideLong && price <= pos.LiquidationPrice) ||
			(pos.Side == ledger.SideShort && price >= pos.LiquidationPrice)
		if !crossed {
			continue
		}

		quantity := pos.Quantity
		liqPrice := pos.LiquidationPrice
		pnl, fee, execPrice, err := agent.Account.Close(pos.Symbol, pos.Side, quantity, liqPrice)
		if err != nil {
			e.logger.Error("Forced liquidation failed",
				zap.String("agent", agent.Name),
				zap.String("symbol", pos.Symbol),
				zap.Error(err),
			)
			continue
		}

		e.logger.Info("Position liquidated",
			zap.String("agent", agent.Name),
			zap.String("symbol", pos.Symbol),
			zap.String("side", pos.Side),
			zap.Float64("mark_price", price),
			zap.Float64("liquidation_price", liqPrice),
		)

		action := decision.ActionCloseLong
		if pos.Side == ledger.SideShort {
			action = decision.ActionCloseShort
		}
		event := perf.TradeEvent{
			AgentName:   agent.Name,
			Timestamp:   ts,
			Cycle:       cycle,
			Symbol:      pos.Symbol,
			Action:      action,
			Side:        pos.Side,
			Quantity:    quantity,
			Price:       execPrice,
			Fee:         fee,
			Slippage:    adverseSlippage(liqPrice, execPrice),
			OrderValue:  execPrice * quantity,
			RealizedPnL: pnl,
			Leverage:    pos.Leverage,
			Liquidation: true,
		}
		trades = append(trades, event)
		agent.Trades = append(agent.Trades, event)
		telemetry.TradesExecuted.WithLabelValues(agent.Name, "liquidation").Inc()
	}

	return trades
}

// RecordEquity appends one mark-to-market snapshot for the cycle, including
// the trailing drawdown against the running equity peak.
func (e *Engine) RecordEquity(agent *Agent, ts time.Time, cycle int) {
	priceMap := e.positionPrices(agent, ts)
	equity, unrealized, _ := agent.Account.TotalEquity(priceMap)
	initial := agent.Account.InitialBalance()

	var drawdownPct float64
	var peak float64
	for _, p := range agent.Equity {
		if p.Equity > peak {
			peak = p.Equity
		}
	}
	if peak > 0 && equity < peak {
		drawdownPct = (peak - equity) / peak * 100
	}

	agent.Equity = append(agent.Equity, perf.EquityPoint{
		Timestamp:     ts,
		Cycle:         cycle,
		Equity:        equity,
		Cash:          agent.Account.Cash(),
		UnrealizedPnL: unrealized,
		PnL:           equity - initial,
		PnLPct:        (equity - initial) / initial * 100,
		DrawdownPct:   drawdownPct,
	})
}

// positionPrices resolves current prices for the agent's open positions.
// Symbols without a price are left out; the ledger marks those at entry.
func (e *Engine) positionPrices(agent *Agent, ts time.Time) map[string]float64 {
	priceMap := make(map[string]float64)
	for _, pos := range agent.Account.Positions() {
		if price, ok := e.prices.PriceAt(pos.Symbol, ts); ok {
			priceMap[pos.Symbol] = price
		}
	}
	return priceMap
}

func adverseSlippage(market, exec float64) float64 {
	return math.Abs(exec - market)
}
