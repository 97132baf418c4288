package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantlark/strata/internal/advisor"
	"github.com/quantlark/strata/internal/backtest"
	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/llm/factory"
	"github.com/quantlark/strata/internal/metrics"
	"github.com/quantlark/strata/internal/notifier"
	"github.com/quantlark/strata/internal/optimize"
	"github.com/quantlark/strata/internal/storage/archive"
	"github.com/quantlark/strata/internal/strategy"
)

var (
	optimizeBars        string
	optimizeStrategy    string
	optimizeRanges      []string
	optimizeTop         int
	optimizeWorkers     int
	optimizeTimeout     time.Duration
	optimizeExport      string
	optimizeArchive     bool
	optimizeNotify      bool
	optimizeAdvise      bool
	optimizeMetricsAddr string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Sweep strategy parameter ranges and rank the results",
	Long: `Expand the parameter ranges of a strategy, backtest every combination
in parallel and print the leaderboard. Ranges come from the strategy file
("min;max;step" parameter literals) or from repeated --range flags.`,
	RunE: runOptimizeCmd,
}

func init() {
	f := optimizeCmd.Flags()
	f.StringVar(&optimizeBars, "bars", "", "Bar series CSV (required)")
	f.StringVar(&optimizeStrategy, "strategy", "", "Strategy file, JSON or YAML (required)")
	f.StringArrayVar(&optimizeRanges, "range", nil, "Override a parameter range, e.g. 'entry.0.period=10;30;5' (repeatable)")
	f.IntVar(&optimizeTop, "top", 0, "Keep the best N combinations (default from config)")
	f.IntVar(&optimizeWorkers, "workers", 0, "Parallel workers (default from config)")
	f.DurationVar(&optimizeTimeout, "timeout", 0, "Stop handing out work after this long, e.g. 10m")
	f.StringVar(&optimizeExport, "export-sweep", "", "Write the sweep table to FILE (.csv or .parquet)")
	f.BoolVar(&optimizeArchive, "archive", false, "Store sweep artifacts in the configured archive")
	f.BoolVar(&optimizeNotify, "notify", false, "Announce the result on the configured channels")
	f.BoolVar(&optimizeAdvise, "advise", false, "Ask the configured LLM to review the sweep")
	f.StringVar(&optimizeMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on ADDR while the sweep runs")

	optimizeCmd.MarkFlagRequired("bars")
	optimizeCmd.MarkFlagRequired("strategy")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimizeCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := runCtx()
	defer stop()

	addr := optimizeMetricsAddr
	if addr == "" {
		addr = configMetricsAddr()
	}
	mreg := startMetrics(ctx, addr)

	strat, err := strategy.Load(optimizeStrategy)
	if err != nil {
		return fmt.Errorf("loading strategy: %w", err)
	}
	ranges, err := parseRangeFlags(optimizeRanges)
	if err != nil {
		return err
	}
	bars, err := loadBars(ctx, optimizeBars)
	if err != nil {
		return fmt.Errorf("loading bars: %w", err)
	}
	mreg.RecordFeedBars("csv", len(bars))

	runID := archive.NewRunID()
	log := appLog.With(zap.String("run", runID))

	opts := optimize.Options{
		TopK:            appCfg.Engine.TopK,
		Workers:         appCfg.Engine.Workers,
		MaxCombinations: appCfg.Engine.MaxCombinations,
		Timeout:         appCfg.Engine.SweepTimeout,
		Logger:          log.Named("optimizer"),
	}
	if optimizeTop > 0 {
		opts.TopK = optimizeTop
	}
	if optimizeWorkers > 0 {
		opts.Workers = optimizeWorkers
	}
	if optimizeTimeout > 0 {
		opts.Timeout = optimizeTimeout
	}

	start := time.Now()
	sweep, err := optimize.Optimize(ctx, bars, strat, ranges, opts)
	dur := time.Since(start)

	timedOut := errors.Is(err, core.ErrSweepTimeout)
	if err != nil && !timedOut {
		mreg.RecordSweep(metrics.StatusError, dur.Seconds(), 0, 0)
		return err
	}
	mreg.RecordSweep(metrics.StatusOf(err), dur.Seconds(), sweep.Completed, sweep.TotalCombinations)

	printSweep(runID, sweep, dur, timedOut)

	if optimizeExport != "" {
		if err := exportSweepTable(optimizeExport, sweep); err != nil {
			return fmt.Errorf("exporting sweep: %w", err)
		}
		fmt.Printf("\nSweep table written to %s\n", optimizeExport)
	}

	if optimizeArchive || appCfg.Archive.Enabled {
		arch, backend, err := buildArchive()
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		err = arch.SaveSweep(ctx, runID, sweep, strat)
		mreg.RecordArchiveOp(backend, "save_sweep", metrics.StatusOf(err))
		if err != nil {
			return fmt.Errorf("archiving sweep: %w", err)
		}
		log.Info("sweep archived", zap.String("backend", backend))
	}

	if optimizeNotify {
		var best *backtest.Stats
		if len(sweep.Results) > 0 {
			best = &sweep.Results[0].Result.Stats
		}
		notifyAll(ctx, notifier.SummarizeSweep(runID, sweep, dur), best, mreg)
	}

	// Advice never fails the sweep that produced it.
	if optimizeAdvise {
		if err := adviseSweep(ctx, log, mreg, strat, sweep); err != nil {
			log.Warn("advisor failed", zap.Error(err))
		}
	}
	return nil
}

func parseRangeFlags(values []string) (map[string]strategy.Range, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ranges := make(map[string]strategy.Range, len(values))
	for _, v := range values {
		key, spec, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --range %q: want key=min;max;step", v)
		}
		r, err := strategy.ParseRange(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid --range %q: %w", v, err)
		}
		ranges[key] = r
	}
	return ranges, nil
}

func adviseSweep(ctx context.Context, log *zap.Logger, mreg *metrics.Registry, strat *strategy.Strategy, sweep *optimize.Sweep) error {
	if appCfg.LLM.Provider == "" {
		return fmt.Errorf("llm.provider not configured")
	}
	provider, err := factory.New(appCfg.LLM)
	if err != nil {
		return err
	}

	adv := advisor.New(provider, log.Named("advisor"), advisor.Config{
		TopRows:    appCfg.Advisor.TopRows,
		BottomRows: appCfg.Advisor.BottomRows,
	})
	advice, err := adv.Review(ctx, strat, sweep)
	mreg.RecordAdvisorRequest(provider.Name(), metrics.StatusOf(err))
	if err != nil {
		return err
	}

	printAdvice(advice)
	return nil
}

func printSweep(runID string, sweep *optimize.Sweep, dur time.Duration, timedOut bool) {
	fmt.Println("=== Strata Sweep ===")
	fmt.Printf("Run:          %s\n", runID)
	fmt.Printf("Combinations: %d (%d completed)\n", sweep.TotalCombinations, sweep.Completed)
	if timedOut {
		fmt.Println("Note:         timed out, results are partial")
	}
	fmt.Printf("Took:         %s\n\n", dur.Round(time.Millisecond))

	if len(sweep.Results) == 0 {
		fmt.Println("No completed combinations.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPROFIT\tTRADES\tWIN%\tPF\tDD\tSHARPE\tPARAMS\t")
	fmt.Fprintln(w, "----\t------\t------\t----\t--\t--\t------\t------\t")
	for i, c := range sweep.Results {
		st := c.Result.Stats
		fmt.Fprintf(w, "%d\t%.2f\t%d\t%.1f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			i+1, st.TotalProfit, st.TotalTrades, st.WinRate, st.ProfitFactor,
			st.MaxDrawdown, st.SharpeRatio, formatParams(c.Params))
	}
	w.Flush()
}

func printAdvice(a *advisor.Advice) {
	fmt.Println("\n=== Advisor ===")
	if len(a.ParameterSuggestions) > 0 {
		fmt.Println("Suggestions:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, s := range a.ParameterSuggestions {
			fmt.Fprintf(w, "  %s\t= %g\t%s\n", s.Parameter, s.Value, s.Rationale)
		}
		w.Flush()
	}
	for _, o := range a.Observations {
		fmt.Printf("- %s\n", o)
	}
	if a.Explanation != "" {
		fmt.Println(a.Explanation)
	}
}

func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, params[k]))
	}
	return strings.Join(parts, " ")
}
