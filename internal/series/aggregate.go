// Package series provides timeframe transforms over close-time labeled bars:
// fixed-width aggregation and the causal index that joins a base series to a
// higher timeframe without lookahead.
package series

import "github.com/quantlark/strata/internal/core"

// DailyTimeframe is the minute width of one full UTC day.
const DailyTimeframe = 1440

// Aggregate groups base bars into fixed timeframe-minute buckets labeled by
// close time: a bucket labeled HH:MM covers the timeframe minutes ending at
// HH:MM. For a bar closing at minute-of-day m the bucket starts at
// m==0 ? 1 : (m-1)/timeframe*timeframe+1 and closes timeframe-1 minutes
// later, rolling past midnight when it overruns the day. Buckets with no
// bars produce no output. A timeframe of 1 or less returns the input
// unchanged.
func Aggregate(bars []core.Bar, timeframe int) []core.Bar {
	if timeframe <= 1 || len(bars) == 0 {
		return bars
	}

	out := make([]core.Bar, 0, len(bars)/timeframe+1)
	var cur core.Bar
	var curClose int64
	open := false

	for _, b := range bars {
		bc := bucketClose(b.Time, timeframe)
		if open && bc != curClose {
			out = append(out, cur)
			open = false
		}
		if !open {
			cur = core.Bar{
				Time:   bc,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			curClose = bc
			open = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	if open {
		out = append(out, cur)
	}
	return out
}

// AggregateDaily returns one bar per populated UTC calendar day, labeled by
// the following midnight. Used by conditions that compare against the prior
// completed day.
func AggregateDaily(bars []core.Bar) []core.Bar {
	return Aggregate(bars, DailyTimeframe)
}

// bucketClose maps a bar close time to the absolute close time of its
// bucket. Minute-of-day 0 belongs to the first bucket of its own day.
func bucketClose(t int64, timeframe int) int64 {
	m := core.MinuteOfDay(t)
	start := 1
	if m != 0 {
		start = (m-1)/timeframe*timeframe + 1
	}
	closeMin := start + timeframe - 1
	dayStart := t - t%86400
	return dayStart + int64(closeMin)*60
}
