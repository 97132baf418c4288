package backtest

import (
	"context"
	"math"

	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/indicator"
	"github.com/quantlark/strata/internal/strategy"
)

// sessionGapSeconds blocks a pending entry when the next bar opens a new
// session: a signal is not carried across a gap of an hour or more.
const sessionGapSeconds = 3600

// riskSpec is the simulator-owned slice of the exit side: tick stops and
// targets, the trailing stop, ATR levels and the session close. Parsed once
// per run from the enabled exit descriptors; the first descriptor of each
// kind wins.
type riskSpec struct {
	hasStop   bool
	stopTicks float64

	hasTarget   bool
	targetTicks float64

	hasTrail      bool
	trailTrigger  float64
	trailDistance float64

	hasATRStop    bool
	atrStopPeriod int
	atrStopMult   float64

	hasATRTarget    bool
	atrTargetPeriod int
	atrTargetMult   float64

	hasSession    bool
	sessionMinute int
}

func parseRisk(conds []strategy.ConditionDescriptor) riskSpec {
	var r riskSpec
	for _, d := range conds {
		if !d.Enabled {
			continue
		}
		kind, ok := strategy.KindOf(d.ID)
		if !ok {
			continue
		}
		switch kind {
		case strategy.KindStopLoss:
			if !r.hasStop {
				r.hasStop = true
				r.stopTicks = d.Param("ticks", 10)
			}
		case strategy.KindTakeProfit:
			if !r.hasTarget {
				r.hasTarget = true
				r.targetTicks = d.Param("ticks", 10)
			}
		case strategy.KindTrailingStop:
			if !r.hasTrail {
				r.hasTrail = true
				r.trailTrigger = d.Param("triggerTicks", 10)
				r.trailDistance = d.Param("distanceTicks", 5)
			}
		case strategy.KindATRStop:
			if !r.hasATRStop {
				r.hasATRStop = true
				r.atrStopPeriod = int(d.Param("period", 14))
				r.atrStopMult = d.Param("multiplier", 2)
			}
		case strategy.KindATRTarget:
			if !r.hasATRTarget {
				r.hasATRTarget = true
				r.atrTargetPeriod = int(d.Param("period", 14))
				r.atrTargetMult = d.Param("multiplier", 2)
			}
		case strategy.KindSessionClose:
			if !r.hasSession {
				r.hasSession = true
				r.sessionMinute = int(d.Param("minute", 1439))
			}
		}
	}
	return r
}

// position is the open-trade state. maxHigh/minLow run from the entry price
// through every held bar; the trailing level only ever rises. ATR levels are
// fixed at entry for the life of the trade.
type position struct {
	entryIndex int
	entryPrice float64
	maxHigh    float64
	minLow     float64

	trailArmed bool
	trailLevel float64

	hasATRStop   bool
	atrStop      float64
	hasATRTarget bool
	atrTarget    float64
}

// absorb folds a held bar's range into the excursion state.
func (p *position) absorb(bar core.Bar) {
	if bar.High > p.maxHigh {
		p.maxHigh = bar.High
	}
	if bar.Low < p.minLow {
		p.minLow = bar.Low
	}
}

// touch folds a single fill price into the excursion state.
func (p *position) touch(price float64) {
	if price > p.maxHigh {
		p.maxHigh = price
	}
	if price < p.minLow {
		p.minLow = price
	}
}

// simulator walks the base series with a single long-only position,
// FLAT or LONG, executing signals on the next bar's open and risk exits
// inside the bar that triggers them.
type simulator struct {
	bars  []core.Bar
	eval  *evaluator
	cache *runCache
	risk  riskSpec
	tick  float64
	mult  float64
}

func (s *simulator) run(ctx context.Context) ([]Trade, error) {
	var trades []Trade
	var pos *position
	pendingEntry := false
	pendingExit := false
	last := len(s.bars) - 1

	for i, bar := range s.bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Executions carried over from the previous bar fill at this open.
		if pos != nil && pendingExit {
			pendingExit = false
			trades = append(trades, s.closeAtOpen(pos, i, ExitSignal))
			pos = nil
		}
		if pos == nil && pendingEntry {
			pendingEntry = false
			if bar.Time-s.bars[i-1].Time < sessionGapSeconds {
				pos = s.open(i, bar.Open)
			}
		}

		if pos != nil {
			// Risk exits are first evaluated on the bar after the entry
			// bar, so an exit index always exceeds its entry index; the
			// only same-index close is an end-of-data liquidation.
			exited := false
			if i > pos.entryIndex {
				if t, ok := s.checkRisk(pos, i, bar); ok {
					trades = append(trades, t)
					pos = nil
					exited = true
				}
			}
			if !exited {
				pos.absorb(bar)
				s.advanceTrailing(pos)
				if i == last {
					trades = append(trades, s.closeInBar(pos, i, bar.Close, ExitEndOfData))
					pos = nil
				} else if s.eval.exitSignal(i) {
					pendingExit = true
				}
			}
		}

		// A risk exit above returns to FLAT at this same index, so an entry
		// signal here opens the next trade at the following open.
		if pos == nil && s.eval.entrySignal(i) {
			pendingEntry = true
		}
	}

	return trades, nil
}

func (s *simulator) open(i int, price float64) *position {
	pos := &position{
		entryIndex: i,
		entryPrice: price,
		maxHigh:    price,
		minLow:     price,
		trailLevel: math.Inf(-1),
	}
	if s.risk.hasATRStop {
		atr := s.cache.seriesFor(1, indicator.KindATR,
			indicator.Params{Period: s.risk.atrStopPeriod})
		if indicator.Defined(atr[i]) {
			pos.hasATRStop = true
			pos.atrStop = price - s.risk.atrStopMult*atr[i]
		}
	}
	if s.risk.hasATRTarget {
		atr := s.cache.seriesFor(1, indicator.KindATR,
			indicator.Params{Period: s.risk.atrTargetPeriod})
		if indicator.Defined(atr[i]) {
			pos.hasATRTarget = true
			pos.atrTarget = price + s.risk.atrTargetMult*atr[i]
		}
	}
	return pos
}

// checkRisk applies the risk exits to one held bar, in priority order:
// intrabar stop before intrabar target, then ATR levels on the close, then
// the session close. Intrabar levels come from the previous bar's state; the
// current bar's high cannot move the trailing level before it is compared.
func (s *simulator) checkRisk(pos *position, i int, bar core.Bar) (Trade, bool) {
	if stop, reason, ok := s.effectiveStop(pos); ok {
		if bar.Open <= stop {
			return s.closeAtOpen(pos, i, reason), true
		}
		if bar.Low <= stop {
			return s.closeInBar(pos, i, stop, reason), true
		}
	}
	if s.risk.hasTarget {
		target := pos.entryPrice + s.risk.targetTicks*s.tick
		if bar.Open >= target {
			return s.closeAtOpen(pos, i, ExitTakeProfit), true
		}
		if bar.High >= target {
			return s.closeInBar(pos, i, target, ExitTakeProfit), true
		}
	}
	if pos.hasATRStop && bar.Close <= pos.atrStop {
		return s.closeInBar(pos, i, bar.Close, ExitATRStop), true
	}
	if pos.hasATRTarget && bar.Close >= pos.atrTarget {
		return s.closeInBar(pos, i, bar.Close, ExitATRTarget), true
	}
	if s.risk.hasSession && core.MinuteOfDay(bar.Time) >= s.risk.sessionMinute {
		return s.closeInBar(pos, i, bar.Close, ExitSessionClose), true
	}
	return Trade{}, false
}

// effectiveStop is the tighter of the fixed stop and the armed trailing
// level. The reason follows whichever level is binding.
func (s *simulator) effectiveStop(pos *position) (float64, ExitReason, bool) {
	level := math.Inf(-1)
	reason := ExitStopLoss
	ok := false
	if s.risk.hasStop {
		level = pos.entryPrice - s.risk.stopTicks*s.tick
		ok = true
	}
	if pos.trailArmed && pos.trailLevel > level {
		level = pos.trailLevel
		reason = ExitTrailingStop
		ok = true
	}
	return level, reason, ok
}

// advanceTrailing arms and raises the trailing level from the running
// max-high after the bar has been absorbed. The level never retreats.
func (s *simulator) advanceTrailing(pos *position) {
	if !s.risk.hasTrail {
		return
	}
	if !pos.trailArmed && pos.maxHigh > pos.entryPrice+s.risk.trailTrigger*s.tick {
		pos.trailArmed = true
	}
	if pos.trailArmed {
		if level := pos.maxHigh - s.risk.trailDistance*s.tick; level > pos.trailLevel {
			pos.trailLevel = level
		}
	}
}

// closeAtOpen closes a position filled at bar i's open: the bar's later
// range was not held, so only the fill itself extends the excursions.
func (s *simulator) closeAtOpen(pos *position, i int, reason ExitReason) Trade {
	pos.touch(s.bars[i].Open)
	return s.record(pos, i, s.bars[i].Open, reason)
}

// closeInBar closes a position filled inside or at the end of bar i, which
// was held through the fill: the whole bar counts toward the excursions.
func (s *simulator) closeInBar(pos *position, i int, price float64, reason ExitReason) Trade {
	pos.absorb(s.bars[i])
	return s.record(pos, i, price, reason)
}

func (s *simulator) record(pos *position, i int, price float64, reason ExitReason) Trade {
	mae := (pos.entryPrice - pos.minLow) * s.mult
	mfe := (pos.maxHigh - pos.entryPrice) * s.mult
	etd := (pos.maxHigh - price) * s.mult
	if mae < 0 {
		mae = 0
	}
	if mfe < 0 {
		mfe = 0
	}
	if etd < 0 {
		etd = 0
	}
	return Trade{
		EntryIndex: pos.entryIndex,
		EntryTime:  s.bars[pos.entryIndex].Time,
		EntryPrice: pos.entryPrice,
		ExitIndex:  i,
		ExitTime:   s.bars[i].Time,
		ExitPrice:  price,
		ExitReason: reason,
		PnL:        (price - pos.entryPrice) * s.mult,
		MAE:        mae,
		MFE:        mfe,
		ETD:        etd,
		BarsHeld:   i - pos.entryIndex,
	}
}
