package core

import "fmt"

// Bar is a single OHLCV bar. Time is the UTC epoch second at which the bar
// CLOSED, not when it opened; every series in the engine is labeled this way.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}

// Bearish reports whether the bar closed below its open.
func (b Bar) Bearish() bool {
	return b.Close < b.Open
}

// Body returns the absolute open-to-close distance.
func (b Bar) Body() float64 {
	if b.Close >= b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// Range returns the high-to-low distance.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// MinuteOfDay returns the UTC minute of day [0,1439] for an epoch second.
func MinuteOfDay(t int64) int {
	return int(t % 86400 / 60)
}

// DayIndex returns the UTC day number for an epoch second. Bars sharing a
// DayIndex closed on the same UTC calendar day.
func DayIndex(t int64) int64 {
	return t / 86400
}

// ValidateBars checks the structural invariant every consumer relies on:
// positive timestamps, strictly increasing, no duplicates. It is the only
// input condition the engine treats as a hard error.
func ValidateBars(bars []Bar) error {
	for i, b := range bars {
		if b.Time <= 0 {
			return WrapError(ErrInvalidBars, fmt.Errorf("non-positive timestamp at index %d", i))
		}
		if i > 0 && b.Time <= bars[i-1].Time {
			return WrapError(ErrInvalidBars, fmt.Errorf("timestamps not strictly increasing at index %d", i))
		}
	}
	return nil
}
