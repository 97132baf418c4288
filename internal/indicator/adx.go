package indicator

import (
	"math"

	"github.com/quantlark/strata/internal/core"
)

// ADX calculates the Average Directional Index with Wilder smoothing
// throughout: directional movement and true range are smoothed over period,
// DX = |+DI - -DI| / (+DI + -DI) * 100, and ADX is the Wilder average of DX
// seeded with the simple mean of the first period DX values. First defined
// at index 2*period-1.
func ADX(bars []core.Bar, period int) []float64 {
	out := newSeries(len(bars))
	if period <= 0 || len(bars) < 2*period {
		return out
	}

	dx := newSeries(len(bars))
	var smTR, smPlus, smMinus float64

	for i := 1; i < len(bars); i++ {
		upMove := bars[i].High - bars[i-1].High
		downMove := bars[i-1].Low - bars[i].Low
		var plusDM, minusDM float64
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := trueRange(bars, i)

		if i <= period {
			smTR += tr
			smPlus += plusDM
			smMinus += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(period) + tr
			smPlus = smPlus - smPlus/float64(period) + plusDM
			smMinus = smMinus - smMinus/float64(period) + minusDM
		}

		if smTR == 0 {
			dx[i] = 0
			continue
		}
		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		if sum := plusDI + minusDI; sum != 0 {
			dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
		} else {
			dx[i] = 0
		}
	}

	var dxSum float64
	for i := period; i < 2*period; i++ {
		dxSum += dx[i]
	}
	adx := dxSum / float64(period)
	out[2*period-1] = adx

	for i := 2 * period; i < len(bars); i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		out[i] = adx
	}

	return out
}
