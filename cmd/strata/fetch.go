package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantlark/strata/internal/feed"
)

var (
	fetchSymbol   string
	fetchInterval string
	fetchFrom     string
	fetchTo       string
	fetchOut      string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download Binance klines to a bar CSV",
	Long:  "Download historical klines from Binance and write them as a close-time labeled bar CSV.",
	RunE:  runFetchCmd,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSymbol, "symbol", "", "Trading pair, e.g. BTCUSDT (required)")
	fetchCmd.Flags().StringVar(&fetchInterval, "interval", "1m", "Bar interval: Nm, Nh, Nd or plain minutes")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "Start date YYYY-MM-DD (required)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "End date YYYY-MM-DD (required)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "Output CSV file (required)")

	fetchCmd.MarkFlagRequired("symbol")
	fetchCmd.MarkFlagRequired("from")
	fetchCmd.MarkFlagRequired("to")
	fetchCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(fetchCmd)
}

func runFetchCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := runCtx()
	defer stop()

	timeframe, err := parseInterval(fetchInterval)
	if err != nil {
		return err
	}
	from, err := time.Parse("2006-01-02", fetchFrom)
	if err != nil {
		return fmt.Errorf("invalid from date (expected YYYY-MM-DD): %w", err)
	}
	to, err := time.Parse("2006-01-02", fetchTo)
	if err != nil {
		return fmt.Errorf("invalid to date (expected YYYY-MM-DD): %w", err)
	}
	if !to.After(from) {
		return fmt.Errorf("end date must be after start date")
	}

	src := feed.NewBinanceSource(fetchSymbol, timeframe, from, to)
	if ep := appCfg.Feed.Binance.Endpoint; ep != "" {
		src = feed.NewBinanceSourceWithBaseURL(ep, fetchSymbol, timeframe, from, to)
	}

	appLog.Info("fetching klines",
		zap.String("symbol", fetchSymbol),
		zap.Int("timeframe", timeframe),
		zap.Time("from", from),
		zap.Time("to", to))

	bars, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("fetching klines: %w", err)
	}
	if err := feed.WriteCSV(fetchOut, bars); err != nil {
		return fmt.Errorf("writing %s: %w", fetchOut, err)
	}

	fmt.Printf("Wrote %d bars to %s (%s to %s)\n", len(bars), fetchOut,
		time.Unix(bars[0].Time, 0).UTC().Format(time.RFC3339),
		time.Unix(bars[len(bars)-1].Time, 0).UTC().Format(time.RFC3339))
	return nil
}

// parseInterval converts "1m"-style flag values to whole minutes.
// Plain integers are taken as minutes; "h" and "d" suffixes scale.
func parseInterval(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("interval must be positive, got %q", s)
		}
		return n, nil
	}
	if strings.HasSuffix(s, "d") {
		if n, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil && n > 0 {
			return n * 1440, nil
		}
		return 0, fmt.Errorf("invalid interval %q", s)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	if d <= 0 || d%time.Minute != 0 {
		return 0, fmt.Errorf("interval must be a whole number of minutes, got %q", s)
	}
	return int(d / time.Minute), nil
}
