package series

import "github.com/quantlark/strata/internal/core"

// Undefined marks a base bar with no closed secondary bar yet.
const Undefined = -1

// Align computes the causal join of a base series onto a secondary series:
// idx[i] is the greatest j with secondary[j].Time <= base[i].Time, or
// Undefined when no secondary bar has closed at base[i]'s close. Both series
// must be time-ascending; the cursor only moves forward, so the whole index
// costs O(len(base)+len(secondary)).
//
// Every cross-timeframe read in the engine goes through an index built here.
// Reading the secondary series positionally would let a bar observe a
// higher-timeframe bar that had not finished forming at its own close.
func Align(base, secondary []core.Bar) []int {
	idx := make([]int, len(base))
	cursor := 0
	for i, b := range base {
		for cursor < len(secondary) && secondary[cursor].Time <= b.Time {
			cursor++
		}
		idx[i] = cursor - 1 // -1 == Undefined before the first close
	}
	return idx
}
