package indicator

// firstDefined returns the index of the first non-NaN value, or len(values)
// when nothing is defined. Indicator inputs carry their undefined values as
// a contiguous prefix.
func firstDefined(values []float64) int {
	for i, v := range values {
		if Defined(v) {
			return i
		}
	}
	return len(values)
}

// SMA calculates the Simple Moving Average. The result is NaN until a full
// window of defined input is available.
func SMA(values []float64, period int) []float64 {
	out := newSeries(len(values))
	if period <= 0 {
		return out
	}

	fd := firstDefined(values)
	if len(values)-fd < period {
		return out
	}

	var sum float64
	for i := fd; i < fd+period; i++ {
		sum += values[i]
	}
	out[fd+period-1] = sum / float64(period)

	// Rolling calculation
	for i := fd + period; i < len(values); i++ {
		sum = sum - values[i-period] + values[i]
		out[i] = sum / float64(period)
	}

	return out
}

// EMA calculates the Exponential Moving Average with multiplier
// 2/(period+1), seeded with the SMA of the first full window.
func EMA(values []float64, period int) []float64 {
	out := newSeries(len(values))
	if period <= 0 {
		return out
	}

	fd := firstDefined(values)
	if len(values)-fd < period {
		return out
	}

	multiplier := 2.0 / float64(period+1)

	// Start with SMA as the first EMA value
	var sum float64
	for i := fd; i < fd+period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[fd+period-1] = ema

	for i := fd + period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}

	return out
}
