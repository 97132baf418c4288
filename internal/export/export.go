// Package export writes run artifacts to flat files a human or another
// tool can pick up: trade lists and sweep leaderboards, as CSV or
// Parquet. Parent directories are created as needed so callers can
// point output at a fresh directory.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/quantlark/strata/internal/backtest"
	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/optimize"
)

var tradeHeader = []string{
	"entry_index", "entry_time", "entry_price",
	"exit_index", "exit_time", "exit_price", "exit_reason",
	"pnl", "mae", "mfe", "etd", "bars_held",
}

// WriteTradesCSV saves one row per completed trade. Times are epoch
// seconds, matching the in-memory representation.
func WriteTradesCSV(path string, trades []backtest.Trade) error {
	return writeCSV(path, tradeHeader, len(trades), func(i int) []string {
		t := trades[i]
		return []string{
			strconv.Itoa(t.EntryIndex),
			strconv.FormatInt(t.EntryTime, 10),
			ftoa(t.EntryPrice),
			strconv.Itoa(t.ExitIndex),
			strconv.FormatInt(t.ExitTime, 10),
			ftoa(t.ExitPrice),
			string(t.ExitReason),
			ftoa(t.PnL), ftoa(t.MAE), ftoa(t.MFE), ftoa(t.ETD),
			strconv.Itoa(t.BarsHeld),
		}
	})
}

// WriteSweepCSV saves the sweep leaderboard with one column per swept
// parameter. Parameter columns are sorted by key so files diff cleanly
// across runs.
func WriteSweepCSV(path string, sweep *optimize.Sweep) error {
	keys := sweepParamKeys(sweep)
	header := append([]string{"ordinal"}, keys...)
	header = append(header,
		"total_profit", "total_trades", "win_rate",
		"profit_factor", "max_drawdown", "sharpe_ratio")

	return writeCSV(path, header, len(sweep.Results), func(i int) []string {
		c := sweep.Results[i]
		rec := make([]string, 0, len(header))
		rec = append(rec, strconv.Itoa(c.Ordinal))
		for _, k := range keys {
			if v, ok := c.Params[k]; ok {
				rec = append(rec, ftoa(v))
			} else {
				rec = append(rec, "")
			}
		}
		s := c.Result.Stats
		rec = append(rec,
			ftoa(s.TotalProfit),
			strconv.Itoa(s.TotalTrades),
			ftoa(s.WinRate),
			ftoa(s.ProfitFactor),
			ftoa(s.MaxDrawdown),
			ftoa(s.SharpeRatio))
		return rec
	})
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

// sweepParamKeys returns the sorted union of parameter slots across all
// candidates. Every candidate of one sweep shares the same grid, so the
// union is normally just the axis list.
func sweepParamKeys(sweep *optimize.Sweep) []string {
	set := make(map[string]struct{})
	for _, c := range sweep.Results {
		for k := range c.Params {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
