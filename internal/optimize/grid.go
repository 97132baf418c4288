package optimize

import (
	"fmt"
	"sort"

	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/strategy"
)

// axis is one sweepable parameter slot with its expanded values.
type axis struct {
	key    string
	side   strategy.Side
	index  int
	param  string
	values []float64
}

// grid is the Cartesian product of all axes. Combinations are numbered with
// the last axis varying fastest; an empty grid has exactly one combination,
// the unmodified template.
type grid struct {
	axes  []axis
	total int
}

// buildGrid merges the ranges embedded in the strategy with the explicit
// ones (explicit wins per key), expands them in sorted key order and fails
// fast once the product exceeds limit. A key that does not parse or a range
// that is invalid is not expanded: that parameter stays at the template's
// value.
func buildGrid(strat *strategy.Strategy, explicit map[string]strategy.Range, limit int) (*grid, error) {
	merged := strat.CollectRanges()
	for k, r := range explicit {
		merged[k] = r
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	g := &grid{total: 1}
	for _, k := range keys {
		side, index, param, err := strategy.SplitParamKey(k)
		if err != nil {
			continue
		}
		values := expandRange(merged[k], limit+1)
		if len(values) == 0 {
			continue
		}
		g.axes = append(g.axes, axis{key: k, side: side, index: index, param: param, values: values})
		g.total *= len(values)
		if g.total > limit {
			return nil, core.WrapError(core.ErrTooManyCombinations,
				fmt.Errorf("%d combinations exceed the limit of %d", g.total, limit))
		}
	}
	return g, nil
}

// assign writes combination ord's values into the strategy and returns
// them keyed by "side.index.param" for reporting.
func (g *grid) assign(ord int, strat *strategy.Strategy) map[string]float64 {
	params := make(map[string]float64, len(g.axes))
	rem := ord
	for i := len(g.axes) - 1; i >= 0; i-- {
		ax := g.axes[i]
		v := ax.values[rem%len(ax.values)]
		rem /= len(ax.values)
		strat.SetParam(ax.side, ax.index, ax.param, v)
		params[ax.key] = v
	}
	return params
}
