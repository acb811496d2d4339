package signalservice

import "signalengine/internal/domain/signal"

// Outcome holds the per-direction ratios. All fields are nil for HOLD.
type Outcome struct {
	RiskReward *float64
	Gain       *float64
	Loss       *float64
}

// CalculateOutcome derives rr and monetary gain/loss for amount, normalized by entry.
// Callers must ensure close > 0.
func CalculateOutcome(direction signal.Direction, close, sl, tp, amount float64) Outcome {
	var reward, risk float64
	switch direction {
	case signal.DirectionBuy:
		reward, risk = tp-close, close-sl
	case signal.DirectionSell:
		reward, risk = close-tp, sl-close
	default:
		return Outcome{}
	}

	var out Outcome
	if risk != 0 {
		rr := reward / risk
		out.RiskReward = &rr
	}
	gain := reward * amount / close
	loss := risk * amount / close
	out.Gain, out.Loss = &gain, &loss
	return out
}
