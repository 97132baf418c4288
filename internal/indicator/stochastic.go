package indicator

import "github.com/quantlark/strata/internal/core"

// StochK calculates the stochastic %K over a trailing window:
// (close - lowestLow) / (highestHigh - lowestLow) * 100. A flat window
// yields the neutral 50. %D is obtained by smoothing this series with SMA.
func StochK(bars []core.Bar, period int) []float64 {
	out := newSeries(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}

	for i := period - 1; i < len(bars); i++ {
		hh := bars[i-period+1].High
		ll := bars[i-period+1].Low
		for j := i - period + 2; j <= i; j++ {
			if bars[j].High > hh {
				hh = bars[j].High
			}
			if bars[j].Low < ll {
				ll = bars[j].Low
			}
		}
		if hh == ll {
			out[i] = 50
			continue
		}
		out[i] = (bars[i].Close - ll) / (hh - ll) * 100
	}

	return out
}
