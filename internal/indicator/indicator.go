// Package indicator computes technical indicator series. Every function
// returns an array aligned 1:1 with its input; entries before the warm-up
// is satisfied are NaN. Callers test definedness with Defined, never by
// comparing against a sentinel value.
package indicator

import (
	"math"

	"github.com/quantlark/strata/internal/core"
)

// Kind identifies an indicator series.
type Kind string

const (
	KindSMA        Kind = "sma"
	KindEMA        Kind = "ema"
	KindRSI        Kind = "rsi"
	KindMACD       Kind = "macd"
	KindMACDSignal Kind = "macd_signal"
	KindStochK     Kind = "stoch_k"
	KindStochD     Kind = "stoch_d"
	KindADX        Kind = "adx"
	KindATR        Kind = "atr"
	KindBBUpper    Kind = "bb_upper"
	KindBBMiddle   Kind = "bb_middle"
	KindBBLower    Kind = "bb_lower"
)

// Params carries every parameter any indicator kind reads. The struct is
// comparable so (Kind, Params) can key a cache.
type Params struct {
	Period       int
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
	SmoothPeriod int
	StdDev       float64
}

// Defined reports whether an indicator value has warmed up.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Compute evaluates one indicator kind over a bar series. The result has
// len(bars) entries. Unknown kinds return nil, which reads as a series that
// never defines a value.
func Compute(kind Kind, bars []core.Bar, p Params) []float64 {
	switch kind {
	case KindSMA:
		return SMA(closes(bars), p.Period)
	case KindEMA:
		return EMA(closes(bars), p.Period)
	case KindRSI:
		return RSI(closes(bars), p.Period)
	case KindMACD:
		line, _ := MACD(closes(bars), p.FastPeriod, p.SlowPeriod, p.SignalPeriod)
		return line
	case KindMACDSignal:
		_, signal := MACD(closes(bars), p.FastPeriod, p.SlowPeriod, p.SignalPeriod)
		return signal
	case KindStochK:
		return StochK(bars, p.Period)
	case KindStochD:
		return SMA(StochK(bars, p.Period), p.SmoothPeriod)
	case KindADX:
		return ADX(bars, p.Period)
	case KindATR:
		return ATR(bars, p.Period)
	case KindBBUpper:
		u, _, _ := Bollinger(closes(bars), p.Period, p.StdDev)
		return u
	case KindBBMiddle:
		_, m, _ := Bollinger(closes(bars), p.Period, p.StdDev)
		return m
	case KindBBLower:
		_, _, l := Bollinger(closes(bars), p.Period, p.StdDev)
		return l
	}
	return nil
}

// newSeries allocates an all-NaN series of length n.
func newSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func closes(bars []core.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
