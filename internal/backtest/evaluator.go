package backtest

import (
	"go.uber.org/zap"

	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/indicator"
	"github.com/quantlark/strata/internal/strategy"
)

// compiled is a descriptor translated for the bar loop: kind resolved, frame
// and indicator arrays bound, parameters extracted. Nothing in evalAt touches
// a string or a map.
type compiled struct {
	kind  strategy.Kind
	f     *frame
	daily *frame // daily change family only

	a, b []float64 // bound indicator series

	threshold float64
	startMin  int
	endMin    int
	period    int
	count     int
	limit     float64 // tick-scaled body/range distance
	mult      float64
	percent   float64
}

// evaluator answers "does the strategy signal at base bar i". Conditions are
// compiled once per run; evaluation is strict-threshold, and anything that
// touches an undefined value is false, never an error.
type evaluator struct {
	cache  *runCache
	tick   float64
	log    *zap.Logger
	warned map[string]struct{}
	entry  []*compiled
	exit   []*compiled
}

// newEvaluator compiles the enabled conditions of both sides. Risk kinds are
// excluded from the exit list; the simulator owns them. Disabled descriptors
// are dropped here, which makes them vacuously true for the entry AND and
// skipped for the exit OR.
func newEvaluator(cache *runCache, strat *strategy.Strategy, log *zap.Logger) *evaluator {
	e := &evaluator{
		cache:  cache,
		tick:   strat.Tick(),
		log:    log,
		warned: make(map[string]struct{}),
	}
	for _, d := range strat.EntryConditions {
		if !d.Enabled {
			continue
		}
		e.entry = append(e.entry, e.compile(d))
	}
	for _, d := range strat.ExitConditions {
		if !d.Enabled {
			continue
		}
		if kind, ok := strategy.KindOf(d.ID); ok && kind.IsRisk() {
			continue
		}
		e.exit = append(e.exit, e.compile(d))
	}
	return e
}

// entrySignal is the AND over enabled entry conditions. An empty or fully
// disabled entry list produces no signal, never an always-true one.
func (e *evaluator) entrySignal(i int) bool {
	if len(e.entry) == 0 {
		return false
	}
	for _, c := range e.entry {
		if !e.evalAt(c, i) {
			return false
		}
	}
	return true
}

// exitSignal is the OR over enabled, non-risk exit conditions.
func (e *evaluator) exitSignal(i int) bool {
	for _, c := range e.exit {
		if e.evalAt(c, i) {
			return true
		}
	}
	return false
}

// compile binds one descriptor to its frame, indicator arrays and extracted
// parameters. Unknown ids are logged once per run and compile to a variant
// that never fires.
func (e *evaluator) compile(d strategy.ConditionDescriptor) *compiled {
	c := &compiled{f: e.cache.frameFor(d.Timeframe)}
	kind, known := strategy.KindOf(d.ID)
	if !known {
		if _, seen := e.warned[d.ID]; !seen {
			e.warned[d.ID] = struct{}{}
			e.log.Warn("unknown condition id", zap.String("id", d.ID))
		}
		return c
	}
	c.kind = kind
	tf := d.Timeframe

	switch kind {
	case strategy.KindTimeWindow:
		c.startMin = int(d.Param("startMinute", 0))
		c.endMin = int(d.Param("endMinute", 1439))

	case strategy.KindRSIAbove, strategy.KindRSIBelow,
		strategy.KindRSICrossAbove, strategy.KindRSICrossBelow:
		c.a = e.cache.seriesFor(tf, indicator.KindRSI,
			indicator.Params{Period: int(d.Param("period", 14))})
		c.threshold = d.Param("threshold", 50)

	case strategy.KindStochAbove, strategy.KindStochBelow,
		strategy.KindStochCrossAbove, strategy.KindStochCrossBelow:
		c.a = e.cache.seriesFor(tf, indicator.KindStochK,
			indicator.Params{Period: int(d.Param("period", 14))})
		c.threshold = d.Param("threshold", 50)

	case strategy.KindADXAbove, strategy.KindADXBelow:
		c.a = e.cache.seriesFor(tf, indicator.KindADX,
			indicator.Params{Period: int(d.Param("period", 14))})
		c.threshold = d.Param("threshold", 25)

	case strategy.KindMACDAboveSignal, strategy.KindMACDBelowSignal,
		strategy.KindMACDCrossAbove, strategy.KindMACDCrossBelow,
		strategy.KindMACDAboveZero, strategy.KindMACDBelowZero:
		p := indicator.Params{
			FastPeriod:   int(d.Param("fastPeriod", 12)),
			SlowPeriod:   int(d.Param("slowPeriod", 26)),
			SignalPeriod: int(d.Param("signalPeriod", 9)),
		}
		c.a = e.cache.seriesFor(tf, indicator.KindMACD, p)
		if kind != strategy.KindMACDAboveZero && kind != strategy.KindMACDBelowZero {
			c.b = e.cache.seriesFor(tf, indicator.KindMACDSignal, p)
		}

	case strategy.KindPriceAboveSMA, strategy.KindPriceBelowSMA:
		c.a = e.cache.seriesFor(tf, indicator.KindSMA,
			indicator.Params{Period: int(d.Param("period", 20))})
	case strategy.KindPriceAboveEMA, strategy.KindPriceBelowEMA:
		c.a = e.cache.seriesFor(tf, indicator.KindEMA,
			indicator.Params{Period: int(d.Param("period", 20))})

	case strategy.KindSMACrossAbove, strategy.KindSMACrossBelow:
		c.a = e.cache.seriesFor(tf, indicator.KindSMA,
			indicator.Params{Period: int(d.Param("fastPeriod", 10))})
		c.b = e.cache.seriesFor(tf, indicator.KindSMA,
			indicator.Params{Period: int(d.Param("slowPeriod", 20))})
	case strategy.KindEMACrossAbove, strategy.KindEMACrossBelow:
		c.a = e.cache.seriesFor(tf, indicator.KindEMA,
			indicator.Params{Period: int(d.Param("fastPeriod", 10))})
		c.b = e.cache.seriesFor(tf, indicator.KindEMA,
			indicator.Params{Period: int(d.Param("slowPeriod", 20))})

	case strategy.KindBBTouchUpper, strategy.KindBBBounceUpper:
		c.a = e.cache.seriesFor(tf, indicator.KindBBUpper, bollingerParams(d))
	case strategy.KindBBTouchLower, strategy.KindBBBounceLower:
		c.a = e.cache.seriesFor(tf, indicator.KindBBLower, bollingerParams(d))

	case strategy.KindVolumeAboveAverage, strategy.KindVolumeBelowAverage:
		c.period = int(d.Param("period", 20))
		c.mult = d.Param("multiplier", 1.5)

	case strategy.KindBullStreak, strategy.KindBearStreak:
		c.count = int(d.Param("count", 3))

	case strategy.KindBodyAboveTicks, strategy.KindBodyBelowTicks,
		strategy.KindRangeAboveTicks, strategy.KindRangeBelowTicks:
		c.limit = d.Param("ticks", 1) * e.tick

	case strategy.KindDailyChangeAbove, strategy.KindDailyChangeBelow:
		c.daily = e.cache.daily()
		c.percent = d.Param("percent", 1)
	}
	return c
}

func bollingerParams(d strategy.ConditionDescriptor) indicator.Params {
	return indicator.Params{
		Period: int(d.Param("period", 20)),
		StdDev: d.Param("stdDev", 2),
	}
}

// evalAt evaluates one compiled condition at base bar i. On a non-base
// timeframe the current bar is the latest closed frame bar and the prior its
// predecessor in the frame.
func (e *evaluator) evalAt(c *compiled, i int) bool {
	j := c.f.at(i)
	if j < 0 {
		return false
	}

	switch c.kind {
	case strategy.KindTimeWindow:
		m := core.MinuteOfDay(c.f.bars[j].Time)
		if c.startMin <= c.endMin {
			return m >= c.startMin && m <= c.endMin
		}
		// window wraps midnight
		return m >= c.startMin || m <= c.endMin

	case strategy.KindRSIAbove, strategy.KindStochAbove, strategy.KindADXAbove:
		return above(c.a, j, c.threshold)
	case strategy.KindRSIBelow, strategy.KindStochBelow, strategy.KindADXBelow:
		return below(c.a, j, c.threshold)
	case strategy.KindRSICrossAbove, strategy.KindStochCrossAbove:
		return crossAbove(c.a, j, c.threshold)
	case strategy.KindRSICrossBelow, strategy.KindStochCrossBelow:
		return crossBelow(c.a, j, c.threshold)

	case strategy.KindMACDAboveZero:
		return above(c.a, j, 0)
	case strategy.KindMACDBelowZero:
		return below(c.a, j, 0)
	case strategy.KindMACDAboveSignal:
		return seriesAbove(c.a, c.b, j)
	case strategy.KindMACDBelowSignal:
		return seriesBelow(c.a, c.b, j)
	case strategy.KindMACDCrossAbove, strategy.KindSMACrossAbove, strategy.KindEMACrossAbove:
		return seriesCrossAbove(c.a, c.b, j)
	case strategy.KindMACDCrossBelow, strategy.KindSMACrossBelow, strategy.KindEMACrossBelow:
		return seriesCrossBelow(c.a, c.b, j)

	case strategy.KindPriceAboveSMA, strategy.KindPriceAboveEMA:
		return indicator.Defined(c.a[j]) && c.f.bars[j].Close > c.a[j]
	case strategy.KindPriceBelowSMA, strategy.KindPriceBelowEMA:
		return indicator.Defined(c.a[j]) && c.f.bars[j].Close < c.a[j]

	case strategy.KindBBTouchUpper:
		return indicator.Defined(c.a[j]) && c.f.bars[j].High >= c.a[j]
	case strategy.KindBBTouchLower:
		return indicator.Defined(c.a[j]) && c.f.bars[j].Low <= c.a[j]
	case strategy.KindBBBounceUpper:
		if j < 1 || !indicator.Defined(c.a[j-1]) || !indicator.Defined(c.a[j]) {
			return false
		}
		bar := c.f.bars[j]
		return bar.High >= c.a[j] && bar.Close < c.a[j] && c.f.bars[j-1].Close >= c.a[j-1]
	case strategy.KindBBBounceLower:
		if j < 1 || !indicator.Defined(c.a[j-1]) || !indicator.Defined(c.a[j]) {
			return false
		}
		bar := c.f.bars[j]
		return bar.Low <= c.a[j] && bar.Close > c.a[j] && c.f.bars[j-1].Close <= c.a[j-1]

	case strategy.KindVolumeAboveAverage, strategy.KindVolumeBelowAverage:
		if c.period < 1 || j < c.period {
			return false
		}
		var sum float64
		for k := j - c.period; k < j; k++ {
			sum += c.f.bars[k].Volume
		}
		avg := sum / float64(c.period) * c.mult
		if c.kind == strategy.KindVolumeAboveAverage {
			return c.f.bars[j].Volume > avg
		}
		return c.f.bars[j].Volume < avg

	case strategy.KindBullStreak, strategy.KindBearStreak:
		if c.count < 1 || j < c.count-1 {
			return false
		}
		for k := j - c.count + 1; k <= j; k++ {
			if c.kind == strategy.KindBullStreak && !c.f.bars[k].Bullish() {
				return false
			}
			if c.kind == strategy.KindBearStreak && !c.f.bars[k].Bearish() {
				return false
			}
		}
		return true

	case strategy.KindBodyAboveTicks:
		return c.f.bars[j].Body() > c.limit
	case strategy.KindBodyBelowTicks:
		return c.f.bars[j].Body() < c.limit
	case strategy.KindRangeAboveTicks:
		return c.f.bars[j].Range() > c.limit
	case strategy.KindRangeBelowTicks:
		return c.f.bars[j].Range() < c.limit

	case strategy.KindDailyChangeAbove, strategy.KindDailyChangeBelow:
		dj := c.daily.at(i)
		if dj < 0 {
			return false
		}
		prev := c.daily.bars[dj].Close
		if prev == 0 {
			return false
		}
		change := (c.f.bars[j].Close - prev) / prev * 100
		if c.kind == strategy.KindDailyChangeAbove {
			return change > c.percent
		}
		return change < c.percent
	}
	return false
}

func above(v []float64, j int, threshold float64) bool {
	return indicator.Defined(v[j]) && v[j] > threshold
}

func below(v []float64, j int, threshold float64) bool {
	return indicator.Defined(v[j]) && v[j] < threshold
}

func crossAbove(v []float64, j int, threshold float64) bool {
	return j >= 1 && indicator.Defined(v[j-1]) && indicator.Defined(v[j]) &&
		v[j-1] <= threshold && v[j] > threshold
}

func crossBelow(v []float64, j int, threshold float64) bool {
	return j >= 1 && indicator.Defined(v[j-1]) && indicator.Defined(v[j]) &&
		v[j-1] >= threshold && v[j] < threshold
}

func seriesAbove(a, b []float64, j int) bool {
	return indicator.Defined(a[j]) && indicator.Defined(b[j]) && a[j] > b[j]
}

func seriesBelow(a, b []float64, j int) bool {
	return indicator.Defined(a[j]) && indicator.Defined(b[j]) && a[j] < b[j]
}

func seriesCrossAbove(a, b []float64, j int) bool {
	if j < 1 || !indicator.Defined(a[j-1]) || !indicator.Defined(b[j-1]) {
		return false
	}
	return indicator.Defined(a[j]) && indicator.Defined(b[j]) &&
		a[j-1] <= b[j-1] && a[j] > b[j]
}

func seriesCrossBelow(a, b []float64, j int) bool {
	if j < 1 || !indicator.Defined(a[j-1]) || !indicator.Defined(b[j-1]) {
		return false
	}
	return indicator.Defined(a[j]) && indicator.Defined(b[j]) &&
		a[j-1] >= b[j-1] && a[j] < b[j]
}
