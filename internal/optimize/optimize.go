// Package optimize sweeps strategy parameter grids. Every combination of
// the expanded ranges is backtested independently on a bounded worker pool
// against a shared read-only bar series, and the survivors are ranked by
// total profit.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantlark/strata/internal/backtest"
	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/strategy"
)

const (
	// DefaultTopK is how many ranked results a sweep returns.
	DefaultTopK = 50
	// DefaultMaxCombinations bounds the grid before any work starts.
	DefaultMaxCombinations = 100000

	maxDefaultWorkers = 8
)

// Options tunes a sweep. The zero value is usable.
type Options struct {
	// TopK is how many ranked results to keep.
	TopK int
	// MaxCombinations fails the sweep fast when the grid is larger.
	MaxCombinations int
	// Workers bounds the backtests running concurrently. Defaults to
	// GOMAXPROCS capped at 8.
	Workers int
	// Timeout stops handing out work once elapsed; the sweep returns the
	// partial results together with a timeout error. Zero means no limit
	// beyond the caller's context.
	Timeout time.Duration
	// Logger receives sweep-level progress. Nil disables logging.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxCombinations <= 0 {
		o.MaxCombinations = DefaultMaxCombinations
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
		if o.Workers > maxDefaultWorkers {
			o.Workers = maxDefaultWorkers
		}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Candidate is one evaluated combination.
type Candidate struct {
	Ordinal int                `json:"ordinal"`
	Params  map[string]float64 `json:"params"`
	Result  *backtest.Result   `json:"result"`
}

// Sweep is the outcome of an optimization run. Completed may be lower than
// TotalCombinations after a timeout or when combinations failed.
type Sweep struct {
	TotalCombinations int         `json:"totalCombinations"`
	Completed         int         `json:"completed"`
	Results           []Candidate `json:"results"`
}

type outcome struct {
	cand Candidate
	err  error
}

// Optimize expands the ranges embedded in strat, overridden by explicit
// ranges for the same key, backtests every combination of the grid over
// bars and returns the TopK ranked by total profit, ties broken by
// ordinal. Each combination runs on a deep clone with its own caches; the
// template strategy and the bars are never mutated.
func Optimize(ctx context.Context, bars []core.Bar, strat *strategy.Strategy, ranges map[string]strategy.Range, opts Options) (*Sweep, error) {
	opts = opts.withDefaults()
	if strat == nil {
		strat = &strategy.Strategy{}
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}

	g, err := buildGrid(strat, ranges, opts.MaxCombinations)
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	opts.Logger.Info("sweep started",
		zap.Int("combinations", g.total),
		zap.Int("axes", len(g.axes)),
		zap.Int("workers", opts.Workers))

	jobs := make(chan int)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine := backtest.NewEngine()
			for ord := range jobs {
				results <- runOne(ctx, engine, g, strat, bars, ord, opts.Logger)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for ord := 0; ord < g.total; ord++ {
			select {
			case jobs <- ord:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	sweep := &Sweep{TotalCombinations: g.total}
	var collected []Candidate
	for out := range results {
		if out.err != nil {
			continue
		}
		sweep.Completed++
		collected = append(collected, out.cand)
	}

	sort.Slice(collected, func(i, j int) bool {
		a, b := collected[i], collected[j]
		if a.Result.Stats.TotalProfit != b.Result.Stats.TotalProfit {
			return a.Result.Stats.TotalProfit > b.Result.Stats.TotalProfit
		}
		return a.Ordinal < b.Ordinal
	})
	if len(collected) > opts.TopK {
		collected = collected[:opts.TopK]
	}
	sweep.Results = collected

	if cerr := ctx.Err(); cerr != nil {
		if errors.Is(cerr, context.DeadlineExceeded) {
			opts.Logger.Warn("sweep timed out",
				zap.Int("completed", sweep.Completed),
				zap.Int("total", sweep.TotalCombinations))
			return sweep, core.WrapError(core.ErrSweepTimeout,
				fmt.Errorf("completed %d of %d combinations", sweep.Completed, sweep.TotalCombinations))
		}
		return nil, cerr
	}

	opts.Logger.Info("sweep complete",
		zap.Int("completed", sweep.Completed),
		zap.Int("total", sweep.TotalCombinations))
	return sweep, nil
}

// runOne backtests a single combination. A panic inside the run is
// recorded as a failed combination so the sweep keeps going.
func runOne(ctx context.Context, engine *backtest.Engine, g *grid, template *strategy.Strategy, bars []core.Bar, ord int, log *zap.Logger) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("combination panicked",
				zap.Int("ordinal", ord),
				zap.Any("reason", r))
			out = outcome{err: fmt.Errorf("combination %d panicked: %v", ord, r)}
		}
	}()

	clone := template.Clone()
	params := g.assign(ord, clone)
	res, err := engine.Run(ctx, clone, bars)
	if err != nil {
		return outcome{err: err}
	}
	return outcome{cand: Candidate{Ordinal: ord, Params: params, Result: res}}
}
