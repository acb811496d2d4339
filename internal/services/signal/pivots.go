package signalservice

import "signalengine/internal/domain/signal"

// CalculatePivots returns classic floor-trader pivots. high >= low is not enforced.
func CalculatePivots(high, low, close float64) signal.PivotLevels {
	pivot := (high + low + close) / 3
	r1 := 2*pivot - low
	s1 := 2*pivot - high
	spread := r1 - s1

	return signal.PivotLevels{
		Pivot:       pivot,
		Resistance1: r1,
		Support1:    s1,
		Resistance2: pivot + spread,
		Support2:    pivot - spread,
	}
}
