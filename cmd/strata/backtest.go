package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantlark/strata/internal/backtest"
	"github.com/quantlark/strata/internal/metrics"
	"github.com/quantlark/strata/internal/notifier"
	"github.com/quantlark/strata/internal/storage/archive"
	"github.com/quantlark/strata/internal/strategy"
)

var (
	backtestBars     string
	backtestStrategy string
	backtestExport   string
	backtestArchive  bool
	backtestNotify   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one backtest and print the result",
	Long:  "Run a strategy file against a bar series CSV and print performance statistics.",
	RunE:  runBacktestCmd,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestBars, "bars", "", "Bar series CSV (required)")
	backtestCmd.Flags().StringVar(&backtestStrategy, "strategy", "", "Strategy file, JSON or YAML (required)")
	backtestCmd.Flags().StringVar(&backtestExport, "export-trades", "", "Write the trade list to FILE (.csv or .parquet)")
	backtestCmd.Flags().BoolVar(&backtestArchive, "archive", false, "Store run artifacts in the configured archive")
	backtestCmd.Flags().BoolVar(&backtestNotify, "notify", false, "Announce the result on the configured channels")

	backtestCmd.MarkFlagRequired("bars")
	backtestCmd.MarkFlagRequired("strategy")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := runCtx()
	defer stop()

	mreg := startMetrics(ctx, configMetricsAddr())

	strat, err := strategy.Load(backtestStrategy)
	if err != nil {
		return fmt.Errorf("loading strategy: %w", err)
	}
	bars, err := loadBars(ctx, backtestBars)
	if err != nil {
		return fmt.Errorf("loading bars: %w", err)
	}
	mreg.RecordFeedBars("csv", len(bars))

	runID := archive.NewRunID()
	log := appLog.With(zap.String("run", runID))

	start := time.Now()
	res, err := backtest.NewEngine(log.Named("engine")).Run(ctx, strat, bars)
	dur := time.Since(start)
	mreg.RecordBacktest(metrics.StatusOf(err), dur.Seconds(), tradeCount(res))
	if err != nil {
		return err
	}

	printBacktest(runID, res, len(bars), dur)

	if backtestExport != "" {
		if err := exportTrades(backtestExport, res.Trades); err != nil {
			return fmt.Errorf("exporting trades: %w", err)
		}
		fmt.Printf("\nTrades written to %s\n", backtestExport)
	}

	if backtestArchive || appCfg.Archive.Enabled {
		arch, backend, err := buildArchive()
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		err = arch.SaveRun(ctx, runID, res, strat)
		mreg.RecordArchiveOp(backend, "save_run", metrics.StatusOf(err))
		if err != nil {
			return fmt.Errorf("archiving run: %w", err)
		}
		log.Info("run archived", zap.String("backend", backend))
	}

	if backtestNotify {
		notifyAll(ctx, notifier.SummarizeRun(runID, res, dur), &res.Stats, mreg)
	}
	return nil
}

func tradeCount(res *backtest.Result) int {
	if res == nil {
		return 0
	}
	return len(res.Trades)
}

func printBacktest(runID string, res *backtest.Result, barCount int, dur time.Duration) {
	fmt.Println("=== Strata Backtest ===")
	fmt.Printf("Run:      %s\n", runID)
	fmt.Printf("Strategy: %s\n", res.Strategy)
	if res.Symbol != "" {
		fmt.Printf("Symbol:   %s\n", res.Symbol)
	}
	if barCount > 0 {
		fmt.Printf("Period:   %s to %s (%d bars)\n",
			res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"), barCount)
	}
	fmt.Printf("Took:     %s\n\n", dur.Round(time.Millisecond))

	printStats(res.Stats)
}

func printStats(st backtest.Stats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Trades:\t%d (%d wins, %d losses)\n", st.TotalTrades, st.WinningTrades, st.LosingTrades)
	fmt.Fprintf(w, "Win rate:\t%.1f%%\n", st.WinRate)
	fmt.Fprintf(w, "Total profit:\t%.2f\n", st.TotalProfit)
	fmt.Fprintf(w, "Gross profit/loss:\t%.2f / %.2f\n", st.GrossProfit, st.GrossLoss)
	fmt.Fprintf(w, "Profit factor:\t%.2f\n", st.ProfitFactor)
	fmt.Fprintf(w, "Max drawdown:\t%.2f\n", st.MaxDrawdown)
	fmt.Fprintf(w, "Average win/loss:\t%.2f / %.2f\n", st.AverageWin, st.AverageLoss)
	fmt.Fprintf(w, "Largest win/loss:\t%.2f / %.2f\n", st.LargestWin, st.LargestLoss)
	fmt.Fprintf(w, "Sharpe ratio:\t%.2f\n", st.SharpeRatio)
	w.Flush()
}
