package backtest

import (
	"math"
)

// ComputeStats summarizes a trade list in execution order. Loss-side
// figures come back as non-negative magnitudes; a break-even trade counts
// as neither a win nor a loss.
func ComputeStats(trades []Trade) Stats {
	s := Stats{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	pnls := make([]float64, len(trades))
	for i, t := range trades {
		pnls[i] = t.PnL
		s.TotalProfit += t.PnL
		switch {
		case t.PnL > 0:
			s.WinningTrades++
			s.GrossProfit += t.PnL
			if t.PnL > s.LargestWin {
				s.LargestWin = t.PnL
			}
		case t.PnL < 0:
			s.LosingTrades++
			s.GrossLoss -= t.PnL
			if -t.PnL > s.LargestLoss {
				s.LargestLoss = -t.PnL
			}
		}
	}

	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	if s.WinningTrades > 0 {
		s.AverageWin = s.GrossProfit / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = s.GrossLoss / float64(s.LosingTrades)
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = 100
	}
	s.MaxDrawdown = maxDrawdown(pnls)
	s.SharpeRatio = sharpeRatio(pnls)
	return s
}

// maxDrawdown finds the largest peak-to-trough decline of the cumulative
// PnL curve. The peak starts at zero, so a strategy that only ever loses
// reports its full loss as drawdown.
func maxDrawdown(pnls []float64) float64 {
	var equity, peak, maxDD float64
	for _, p := range pnls {
		equity += p
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeRatio treats each trade as one period: mean per-trade PnL over its
// population standard deviation, annualized by √252. Zero when there are
// fewer than two trades or no variance.
func sharpeRatio(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}

	var sum float64
	for _, p := range pnls {
		sum += p
	}
	mean := sum / float64(len(pnls))

	var variance float64
	for _, p := range pnls {
		variance += (p - mean) * (p - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(pnls)))
	if stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(252)
}
