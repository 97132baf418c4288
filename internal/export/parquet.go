package export

import (
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/quantlark/strata/internal/backtest"
	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/optimize"
)

// TradeRecord is the Parquet schema for exported trades. Times are
// plain epoch seconds.
type TradeRecord struct {
	EntryIndex int64   `parquet:"entry_index"`
	EntryTime  int64   `parquet:"entry_time"`
	EntryPrice float64 `parquet:"entry_price"`
	ExitIndex  int64   `parquet:"exit_index"`
	ExitTime   int64   `parquet:"exit_time"`
	ExitPrice  float64 `parquet:"exit_price"`
	ExitReason string  `parquet:"exit_reason"`
	PnL        float64 `parquet:"pnl"`
	MAE        float64 `parquet:"mae"`
	MFE        float64 `parquet:"mfe"`
	ETD        float64 `parquet:"etd"`
	BarsHeld   int64   `parquet:"bars_held"`
}

// SweepRecord is the Parquet schema for one sweep candidate.
type SweepRecord struct {
	Ordinal      int64              `parquet:"ordinal"`
	Params       map[string]float64 `parquet:"params"`
	TotalProfit  float64            `parquet:"total_profit"`
	TotalTrades  int64              `parquet:"total_trades"`
	WinRate      float64            `parquet:"win_rate"`
	ProfitFactor float64            `parquet:"profit_factor"`
	MaxDrawdown  float64            `parquet:"max_drawdown"`
	SharpeRatio  float64            `parquet:"sharpe_ratio"`
}

// WriteTradesParquet saves trades under the TradeRecord schema.
func WriteTradesParquet(path string, trades []backtest.Trade) error {
	records := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, TradeRecord{
			EntryIndex: int64(t.EntryIndex),
			EntryTime:  t.EntryTime,
			EntryPrice: t.EntryPrice,
			ExitIndex:  int64(t.ExitIndex),
			ExitTime:   t.ExitTime,
			ExitPrice:  t.ExitPrice,
			ExitReason: string(t.ExitReason),
			PnL:        t.PnL,
			MAE:        t.MAE,
			MFE:        t.MFE,
			ETD:        t.ETD,
			BarsHeld:   int64(t.BarsHeld),
		})
	}
	return writeParquet(path, records)
}

// WriteSweepParquet saves the sweep leaderboard under the SweepRecord
// schema. Parameters ride along as a string-to-double map so the axis
// set does not have to be known when the file is read.
func WriteSweepParquet(path string, sweep *optimize.Sweep) error {
	records := make([]SweepRecord, 0, len(sweep.Results))
	for _, c := range sweep.Results {
		s := c.Result.Stats
		records = append(records, SweepRecord{
			Ordinal:      int64(c.Ordinal),
			Params:       c.Params,
			TotalProfit:  s.TotalProfit,
			TotalTrades:  int64(s.TotalTrades),
			WinRate:      s.WinRate,
			ProfitFactor: s.ProfitFactor,
			MaxDrawdown:  s.MaxDrawdown,
			SharpeRatio:  s.SharpeRatio,
		})
	}
	return writeParquet(path, records)
}

func writeParquet[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}
