package indicator

import "github.com/quantlark/strata/internal/core"

// trueRange returns the true range of bar i: the high-low span widened by
// any gap from the previous close. Bar 0 has no previous close and uses
// high-low alone.
func trueRange(bars []core.Bar, i int) float64 {
	tr := bars[i].High - bars[i].Low
	if i == 0 {
		return tr
	}
	if d := bars[i].High - bars[i-1].Close; d > tr {
		tr = d
	}
	if d := bars[i-1].Close - bars[i].Low; d > tr {
		tr = d
	}
	return tr
}

// ATR calculates the Average True Range with Wilder smoothing, seeded with
// the simple mean of the first period true ranges. First defined at index
// period-1.
func ATR(bars []core.Bar, period int) []float64 {
	out := newSeries(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += trueRange(bars, i)
	}
	atr := sum / float64(period)
	out[period-1] = atr

	for i := period; i < len(bars); i++ {
		atr = (atr*float64(period-1) + trueRange(bars, i)) / float64(period)
		out[i] = atr
	}

	return out
}
