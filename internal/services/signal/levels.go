package signalservice

import (
	"math"

	"signalengine/internal/domain/signal"
)

// Where the final stop-loss/take-profit pair came from
const (
	LevelSourcePivot  = "pivot"
	LevelSourceBuffer = "buffer"
	LevelSourceGuard  = "guard"
)

// Levels is the selected bracket around entry
type Levels struct {
	StopLoss   float64
	TakeProfit float64
	Source     string
}

// SelectLevels picks S1/R1 when their distance falls inside the configured window,
// otherwise a percentage buffer around close. HOLD uses the BUY template.
// A final guard forces tp onto the profitable side of sl for BUY and SELL.
func SelectLevels(p Params, direction signal.Direction, close float64, pivots signal.PivotLevels) Levels {
	slCandidate, tpCandidate := pivots.Support1, pivots.Resistance1
	if direction == signal.DirectionSell {
		slCandidate, tpCandidate = pivots.Resistance1, pivots.Support1
	}

	var lv Levels
	distance := math.Abs(tpCandidate - slCandidate)
	if close*p.MinDistancePct <= distance && distance <= close*p.MaxDistancePct {
		lv = Levels{StopLoss: slCandidate, TakeProfit: tpCandidate, Source: LevelSourcePivot}
	} else {
		lv = p.bufferLevels(direction, close)
	}

	switch direction {
	case signal.DirectionBuy:
		if lv.TakeProfit <= lv.StopLoss {
			lv = p.bufferLevels(direction, close)
			lv.Source = LevelSourceGuard
		}
	case signal.DirectionSell:
		if lv.TakeProfit >= lv.StopLoss {
			lv = p.bufferLevels(direction, close)
			lv.Source = LevelSourceGuard
		}
	}
	return lv
}

func (p Params) bufferLevels(direction signal.Direction, close float64) Levels {
	if direction == signal.DirectionSell {
		return Levels{
			StopLoss:   close * (1 + p.StopLossBuffer),
			TakeProfit: close * (1 - p.TakeProfitBuffer),
			Source:     LevelSourceBuffer,
		}
	}
	return Levels{
		StopLoss:   close * (1 - p.StopLossBuffer),
		TakeProfit: close * (1 + p.TakeProfitBuffer),
		Source:     LevelSourceBuffer,
	}
}
