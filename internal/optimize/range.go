package optimize

import (
	"github.com/shopspring/decimal"

	"github.com/quantlark/strata/internal/strategy"
)

// expandRange materializes a range as an ordered value list. Each point is
// min + i*step computed in decimal, so fractional steps land exactly on
// their grid values and the endpoint is included whenever the step reaches
// it. An invalid range expands to nothing. limit bounds the list length;
// callers pass one more than the combination cap so the product check
// still trips on a pathological step.
func expandRange(r strategy.Range, limit int) []float64 {
	if !r.Valid() {
		return nil
	}
	min := decimal.NewFromFloat(r.Min)
	max := decimal.NewFromFloat(r.Max)
	step := decimal.NewFromFloat(r.Step)

	var out []float64
	for i := int64(0); len(out) < limit; i++ {
		v := min.Add(step.Mul(decimal.NewFromInt(i)))
		if v.GreaterThan(max) {
			break
		}
		f, _ := v.Float64()
		out = append(out, f)
	}
	return out
}
