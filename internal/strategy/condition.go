package strategy

// Kind identifies one condition in the closed catalog. The value is the
// wire id used in strategy files. Evaluation dispatches over this set
// exhaustively; ids outside it never fire.
type Kind string

const (
	KindTimeWindow Kind = "time_window"

	KindRSIAbove      Kind = "rsi_above"
	KindRSIBelow      Kind = "rsi_below"
	KindRSICrossAbove Kind = "rsi_cross_above"
	KindRSICrossBelow Kind = "rsi_cross_below"

	KindMACDAboveSignal Kind = "macd_above_signal"
	KindMACDBelowSignal Kind = "macd_below_signal"
	KindMACDCrossAbove  Kind = "macd_cross_above"
	KindMACDCrossBelow  Kind = "macd_cross_below"
	KindMACDAboveZero   Kind = "macd_above_zero"
	KindMACDBelowZero   Kind = "macd_below_zero"

	KindStochAbove      Kind = "stoch_above"
	KindStochBelow      Kind = "stoch_below"
	KindStochCrossAbove Kind = "stoch_cross_above"
	KindStochCrossBelow Kind = "stoch_cross_below"

	KindADXAbove Kind = "adx_above"
	KindADXBelow Kind = "adx_below"

	KindPriceAboveSMA Kind = "price_above_sma"
	KindPriceBelowSMA Kind = "price_below_sma"
	KindPriceAboveEMA Kind = "price_above_ema"
	KindPriceBelowEMA Kind = "price_below_ema"

	KindSMACrossAbove Kind = "sma_cross_above"
	KindSMACrossBelow Kind = "sma_cross_below"
	KindEMACrossAbove Kind = "ema_cross_above"
	KindEMACrossBelow Kind = "ema_cross_below"

	KindBBTouchUpper  Kind = "bb_touch_upper"
	KindBBTouchLower  Kind = "bb_touch_lower"
	KindBBBounceUpper Kind = "bb_bounce_upper"
	KindBBBounceLower Kind = "bb_bounce_lower"

	KindVolumeAboveAverage Kind = "volume_above_average"
	KindVolumeBelowAverage Kind = "volume_below_average"

	KindBullStreak Kind = "bull_streak"
	KindBearStreak Kind = "bear_streak"

	KindBodyAboveTicks  Kind = "body_above_ticks"
	KindBodyBelowTicks  Kind = "body_below_ticks"
	KindRangeAboveTicks Kind = "range_above_ticks"
	KindRangeBelowTicks Kind = "range_below_ticks"

	KindDailyChangeAbove Kind = "daily_change_above"
	KindDailyChangeBelow Kind = "daily_change_below"

	// Risk kinds are owned by the trade simulator and only valid on the
	// exit side. They never evaluate as bar signals.
	KindStopLoss     Kind = "stop_loss"
	KindTakeProfit   Kind = "take_profit"
	KindTrailingStop Kind = "trailing_stop"
	KindATRStop      Kind = "atr_stop"
	KindATRTarget    Kind = "atr_target"
	KindSessionClose Kind = "session_close"
)

var allKinds = []Kind{
	KindTimeWindow,
	KindRSIAbove, KindRSIBelow, KindRSICrossAbove, KindRSICrossBelow,
	KindMACDAboveSignal, KindMACDBelowSignal, KindMACDCrossAbove, KindMACDCrossBelow,
	KindMACDAboveZero, KindMACDBelowZero,
	KindStochAbove, KindStochBelow, KindStochCrossAbove, KindStochCrossBelow,
	KindADXAbove, KindADXBelow,
	KindPriceAboveSMA, KindPriceBelowSMA, KindPriceAboveEMA, KindPriceBelowEMA,
	KindSMACrossAbove, KindSMACrossBelow, KindEMACrossAbove, KindEMACrossBelow,
	KindBBTouchUpper, KindBBTouchLower, KindBBBounceUpper, KindBBBounceLower,
	KindVolumeAboveAverage, KindVolumeBelowAverage,
	KindBullStreak, KindBearStreak,
	KindBodyAboveTicks, KindBodyBelowTicks, KindRangeAboveTicks, KindRangeBelowTicks,
	KindDailyChangeAbove, KindDailyChangeBelow,
	KindStopLoss, KindTakeProfit, KindTrailingStop,
	KindATRStop, KindATRTarget, KindSessionClose,
}

var knownKinds = func() map[Kind]struct{} {
	m := make(map[Kind]struct{}, len(allKinds))
	for _, k := range allKinds {
		m[k] = struct{}{}
	}
	return m
}()

// KindOf resolves a wire id to its Kind. The second return is false for
// ids outside the catalog.
func KindOf(id string) (Kind, bool) {
	k := Kind(id)
	_, ok := knownKinds[k]
	return k, ok
}

// Kinds returns the full catalog in a stable order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// IsRisk reports whether the kind is a simulator-owned risk exit rather
// than a bar signal.
func (k Kind) IsRisk() bool {
	switch k {
	case KindStopLoss, KindTakeProfit, KindTrailingStop,
		KindATRStop, KindATRTarget, KindSessionClose:
		return true
	}
	return false
}

// IsCross reports whether the kind requires a defined prior value.
func (k Kind) IsCross() bool {
	switch k {
	case KindRSICrossAbove, KindRSICrossBelow,
		KindMACDCrossAbove, KindMACDCrossBelow,
		KindStochCrossAbove, KindStochCrossBelow,
		KindSMACrossAbove, KindSMACrossBelow,
		KindEMACrossAbove, KindEMACrossBelow,
		KindBBBounceUpper, KindBBBounceLower:
		return true
	}
	return false
}
