package backtest

import (
	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/indicator"
	"github.com/quantlark/strata/internal/series"
)

// frame is one timeframe's view of the run: its bars plus, for non-base
// frames, the alignment index into the base series. Indicator arrays built
// over a frame are 1:1 with frame.bars, so an aligned index is always a
// valid position in them.
type frame struct {
	bars  []core.Bar
	index []int // nil for the base frame (identity mapping)
}

// at maps a base bar index to this frame's aligned position,
// series.Undefined before the frame's first close.
func (f *frame) at(i int) int {
	if f.index == nil {
		return i
	}
	return f.index[i]
}

type indicatorKey struct {
	timeframe int
	kind      indicator.Kind
	params    indicator.Params
}

// runCache owns every derived series of a single run: aggregated frames,
// alignment indexes and indicator arrays, built lazily on first use. A cache
// belongs to exactly one run; concurrent sweep workers never share one.
type runCache struct {
	base       []core.Bar
	frames     map[int]*frame
	indicators map[indicatorKey][]float64
}

func newRunCache(base []core.Bar) *runCache {
	return &runCache{
		base:       base,
		frames:     make(map[int]*frame),
		indicators: make(map[indicatorKey][]float64),
	}
}

// frameFor returns the frame for a timeframe in minutes; 0 and 1 both mean
// the base series.
func (c *runCache) frameFor(timeframe int) *frame {
	if timeframe <= 1 {
		timeframe = 1
	}
	if f, ok := c.frames[timeframe]; ok {
		return f
	}
	f := &frame{}
	if timeframe == 1 {
		f.bars = c.base
	} else {
		f.bars = series.Aggregate(c.base, timeframe)
		f.index = series.Align(c.base, f.bars)
	}
	c.frames[timeframe] = f
	return f
}

// daily returns the calendar-day frame backing the daily change family.
func (c *runCache) daily() *frame {
	return c.frameFor(series.DailyTimeframe)
}

// seriesFor returns the indicator array for (timeframe, kind, params),
// computed at most once per run.
func (c *runCache) seriesFor(timeframe int, kind indicator.Kind, params indicator.Params) []float64 {
	if timeframe <= 1 {
		timeframe = 1
	}
	key := indicatorKey{timeframe: timeframe, kind: kind, params: params}
	if v, ok := c.indicators[key]; ok {
		return v
	}
	v := indicator.Compute(kind, c.frameFor(timeframe).bars, params)
	c.indicators[key] = v
	return v
}
