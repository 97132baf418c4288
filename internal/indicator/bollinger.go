package indicator

import "math"

// Bollinger calculates Bollinger bands: middle = SMA(period), upper/lower =
// middle +/- stdDev population standard deviations over the same window.
func Bollinger(values []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	upper = newSeries(len(values))
	lower = newSeries(len(values))
	if period <= 0 {
		return upper, middle, lower
	}

	for i := range values {
		if !Defined(middle[i]) {
			continue
		}
		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - middle[i]
			sq += d * d
		}
		sigma := math.Sqrt(sq / float64(period))
		upper[i] = middle[i] + stdDev*sigma
		lower[i] = middle[i] - stdDev*sigma
	}

	return upper, middle, lower
}
