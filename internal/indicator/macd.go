package indicator

// MACD calculates the MACD line (fast EMA minus slow EMA) and its signal
// line. The signal line is an EMA computed only over the contiguous suffix
// where the MACD line is defined; it is never seeded from an undefined
// prefix.
func MACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) (line, signal []float64) {
	fast := EMA(values, fastPeriod)
	slow := EMA(values, slowPeriod)

	line = newSeries(len(values))
	for i := range values {
		if Defined(fast[i]) && Defined(slow[i]) {
			line[i] = fast[i] - slow[i]
		}
	}

	signal = EMA(line, signalPeriod)
	return line, signal
}
