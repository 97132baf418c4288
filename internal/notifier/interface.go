// Package notifier announces finished runs to external channels. Each
// backend formats a Summary its own way; the Registry fans one summary
// out to every configured backend and reports failures per channel.
package notifier

import (
	"context"
	"time"

	"github.com/quantlark/strata/internal/backtest"
	"github.com/quantlark/strata/internal/optimize"
)

// Config holds one notifier's configuration as loaded from the config
// file.
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Summary describes one finished backtest or sweep. Sweep summaries
// carry the best candidate's stats and parameters.
type Summary struct {
	Kind     string `json:"kind"` // "backtest" or "sweep"
	RunID    string `json:"runId"`
	Strategy string `json:"strategy"`
	Symbol   string `json:"symbol"`

	TotalProfit  float64 `json:"totalProfit"`
	TotalTrades  int     `json:"totalTrades"`
	WinRate      float64 `json:"winRate"`
	ProfitFactor float64 `json:"profitFactor"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
	SharpeRatio  float64 `json:"sharpeRatio"`

	Combinations int                `json:"combinations,omitempty"`
	Completed    int                `json:"completed,omitempty"`
	BestParams   map[string]float64 `json:"bestParams,omitempty"`

	// Alerts holds fired result-quality rule messages.
	Alerts []string `json:"alerts,omitempty"`

	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// SummarizeRun builds the announcement for a single backtest.
func SummarizeRun(runID string, res *backtest.Result, dur time.Duration) Summary {
	return Summary{
		Kind:         "backtest",
		RunID:        runID,
		Strategy:     res.Strategy,
		Symbol:       res.Symbol,
		TotalProfit:  res.Stats.TotalProfit,
		TotalTrades:  res.Stats.TotalTrades,
		WinRate:      res.Stats.WinRate,
		ProfitFactor: res.Stats.ProfitFactor,
		MaxDrawdown:  res.Stats.MaxDrawdown,
		SharpeRatio:  res.Stats.SharpeRatio,
		Duration:     dur,
		FinishedAt:   time.Now().UTC(),
	}
}

// SummarizeSweep builds the announcement for a sweep, reporting the
// leaderboard winner.
func SummarizeSweep(runID string, sweep *optimize.Sweep, dur time.Duration) Summary {
	s := Summary{
		Kind:         "sweep",
		RunID:        runID,
		Combinations: sweep.TotalCombinations,
		Completed:    sweep.Completed,
		Duration:     dur,
		FinishedAt:   time.Now().UTC(),
	}
	if len(sweep.Results) == 0 {
		return s
	}

	best := sweep.Results[0]
	s.Strategy = best.Result.Strategy
	s.Symbol = best.Result.Symbol
	s.TotalProfit = best.Result.Stats.TotalProfit
	s.TotalTrades = best.Result.Stats.TotalTrades
	s.WinRate = best.Result.Stats.WinRate
	s.ProfitFactor = best.Result.Stats.ProfitFactor
	s.MaxDrawdown = best.Result.Stats.MaxDrawdown
	s.SharpeRatio = best.Result.Stats.SharpeRatio
	s.BestParams = best.Params
	return s
}

// Notifier is one announcement channel.
type Notifier interface {
	// Name returns the unique identifier for this notifier.
	Name() string

	// Init applies configuration and validates required parameters.
	Init(cfg Config) error

	// Send announces one summary.
	Send(ctx context.Context, summary Summary) error
}
