// Package backtest runs a declarative strategy against a close-time labeled
// bar series: conditions are compiled once per run, evaluated causally
// across timeframes, and a single long-only position is simulated with
// next-open signal fills and in-bar risk exits.
package backtest

import (
	"context"

	"go.uber.org/zap"

	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/strategy"
)

// Engine runs backtests. It holds no per-run state, so one Engine may serve
// concurrent runs.
type Engine struct {
	log *zap.Logger
}

// NewEngine creates an Engine. A logger is optional; omitted, logging is
// a no-op.
func NewEngine(log ...*zap.Logger) *Engine {
	l := zap.NewNop()
	if len(log) > 0 && log[0] != nil {
		l = log[0]
	}
	return &Engine{log: l}
}

// Run executes one backtest of strat over bars. The bars are never
// mutated and may be shared between concurrent runs. The only hard input
// errors are a structurally invalid strategy, an unordered bar series, and
// context cancellation; an empty series or an empty (or nil) strategy
// yields a zero-trade Result, and everything else degrades leniently
// inside the evaluator.
func (e *Engine) Run(ctx context.Context, strat *strategy.Strategy, bars []core.Bar) (*Result, error) {
	if strat == nil {
		strat = &strategy.Strategy{}
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return &Result{Strategy: strat.Name, Symbol: strat.Symbol}, nil
	}

	cache := newRunCache(bars)
	sim := &simulator{
		bars:  bars,
		eval:  newEvaluator(cache, strat, e.log),
		cache: cache,
		risk:  parseRisk(strat.ExitConditions),
		tick:  strat.Tick(),
		mult:  strat.Multiplier(),
	}

	trades, err := sim.run(ctx)
	if err != nil {
		return nil, err
	}

	e.log.Debug("backtest complete",
		zap.String("strategy", strat.Name),
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(trades)))

	return &Result{
		Strategy:  strat.Name,
		Symbol:    strat.Symbol,
		StartDate: barTime(bars[0]),
		EndDate:   barTime(bars[len(bars)-1]),
		Trades:    trades,
		Stats:     ComputeStats(trades),
	}, nil
}
