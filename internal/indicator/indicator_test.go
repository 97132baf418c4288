package indicator

import (
	"testing"

	"github.com/quantlark/strata/internal/core"
)

func rampBars(n int) []core.Bar {
	out := make([]core.Bar, n)
	for i := range out {
		v := 10 + float64(i)
		out[i] = core.Bar{Time: int64(i+1) * 60, Open: v, High: v + 1, Low: v - 1, Close: v}
	}
	return out
}

func TestCompute_AlignedLengths(t *testing.T) {
	bars := rampBars(40)

	cases := []struct {
		kind Kind
		p    Params
	}{
		{KindSMA, Params{Period: 5}},
		{KindEMA, Params{Period: 5}},
		{KindRSI, Params{Period: 14}},
		{KindMACD, Params{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}},
		{KindMACDSignal, Params{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}},
		{KindStochK, Params{Period: 14}},
		{KindStochD, Params{Period: 14, SmoothPeriod: 3}},
		{KindADX, Params{Period: 14}},
		{KindATR, Params{Period: 14}},
		{KindBBUpper, Params{Period: 20, StdDev: 2}},
		{KindBBMiddle, Params{Period: 20, StdDev: 2}},
		{KindBBLower, Params{Period: 20, StdDev: 2}},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			out := Compute(tc.kind, bars, tc.p)
			if len(out) != len(bars) {
				t.Fatalf("length %d, want %d", len(out), len(bars))
			}
		})
	}
}

func TestCompute_UnknownKind(t *testing.T) {
	out := Compute(Kind("vwap"), rampBars(10), Params{Period: 3})
	if out != nil {
		t.Errorf("unknown kind should return nil, got %d values", len(out))
	}
}

func TestCompute_Deterministic(t *testing.T) {
	bars := rampBars(60)
	p := Params{FastPeriod: 5, SlowPeriod: 10, SignalPeriod: 4}

	a := Compute(KindMACDSignal, bars, p)
	b := Compute(KindMACDSignal, bars, p)
	for i := range a {
		if Defined(a[i]) != Defined(b[i]) {
			t.Fatalf("definedness differs at %d", i)
		}
		if Defined(a[i]) && a[i] != b[i] {
			t.Fatalf("value differs at %d: %f vs %f", i, a[i], b[i])
		}
	}
}
