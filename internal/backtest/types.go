package backtest

import (
	"time"

	"github.com/quantlark/strata/internal/core"
)

// ExitReason identifies what closed a trade.
type ExitReason string

const (
	ExitStopLoss     ExitReason = "stop_loss"
	ExitTakeProfit   ExitReason = "take_profit"
	ExitTrailingStop ExitReason = "trailing_stop"
	ExitATRStop      ExitReason = "atr_stop"
	ExitATRTarget    ExitReason = "atr_target"
	ExitSessionClose ExitReason = "session_close"
	ExitSignal       ExitReason = "signal"
	ExitEndOfData    ExitReason = "end_of_data"
)

// Trade is one completed long round trip. Excursion fields are price
// distances scaled by the contract multiplier and clamped at zero:
// MAE measures against the lowest low, MFE against the highest high,
// ETD the give-back between the highest high and the exit.
type Trade struct {
	EntryIndex int        `json:"entryIndex"`
	EntryTime  int64      `json:"entryTime"`
	EntryPrice float64    `json:"entryPrice"`
	ExitIndex  int        `json:"exitIndex"`
	ExitTime   int64      `json:"exitTime"`
	ExitPrice  float64    `json:"exitPrice"`
	ExitReason ExitReason `json:"exitReason"`
	PnL        float64    `json:"pnl"`
	MAE        float64    `json:"mae"`
	MFE        float64    `json:"mfe"`
	ETD        float64    `json:"etd"`
	BarsHeld   int        `json:"barsHeld"`
}

// IsWin reports whether the trade made money.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// Stats holds the performance summary of one run. Loss-side figures
// (GrossLoss, AverageLoss, LargestLoss, MaxDrawdown) are non-negative
// magnitudes.
type Stats struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"`
	TotalProfit   float64 `json:"totalProfit"`
	GrossProfit   float64 `json:"grossProfit"`
	GrossLoss     float64 `json:"grossLoss"`
	ProfitFactor  float64 `json:"profitFactor"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
	AverageWin    float64 `json:"averageWin"`
	AverageLoss   float64 `json:"averageLoss"`
	LargestWin    float64 `json:"largestWin"`
	LargestLoss   float64 `json:"largestLoss"`
	SharpeRatio   float64 `json:"sharpeRatio"`
}

// Result holds the complete backtest output.
type Result struct {
	Strategy  string    `json:"strategy"`
	Symbol    string    `json:"symbol"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Trades    []Trade   `json:"trades"`
	Stats     Stats     `json:"stats"`
}

func barTime(b core.Bar) time.Time {
	return time.Unix(b.Time, 0).UTC()
}
