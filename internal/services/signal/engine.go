package signalservice

import (
	"math"

	"github.com/shopspring/decimal"

	"signalengine/internal/domain/signal"
	"signalengine/pkg/errors"
)

// Output precision
const (
	pricePlaces      = 4
	ratioPlaces      = 2
	oscillatorPlaces = 2
)

// Params configures the level selector
type Params struct {
	StopLossBuffer   float64 // fraction of close below (BUY) or above (SELL) entry
	TakeProfitBuffer float64 // fraction of close above (BUY) or below (SELL) entry
	MinDistancePct   float64 // minimum |tp-sl| as a fraction of close for pivot levels
	MaxDistancePct   float64 // maximum |tp-sl| as a fraction of close for pivot levels
}

// DefaultParams returns the production constants
func DefaultParams() Params {
	return Params{
		StopLossBuffer:   0.007,
		TakeProfitBuffer: 0.01,
		MinDistancePct:   0.05,
		MaxDistancePct:   0.5,
	}
}

// Engine turns one snapshot into a recommendation. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	params Params
}

// NewEngine creates an engine; zero-valued params fall back to DefaultParams.
func NewEngine(params Params) *Engine {
	if params == (Params{}) {
		params = DefaultParams()
	}
	return &Engine{params: params}
}

// Params returns the level selector configuration
func (e *Engine) Params() Params {
	return e.params
}

// Evaluate runs pivots, confirmation, level selection and outcome in order.
// close must be positive; high and low are used as given. Inputs that overflow
// to a non-finite result fail with ErrInvalidSnapshot, or ErrInvalidInput when
// amount is the cause.
func (e *Engine) Evaluate(symbol string, snap signal.MarketSnapshot, ind signal.IndicatorSet, amount float64) (*signal.Recommendation, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}
	if err := validateIndicators(ind); err != nil {
		return nil, err
	}
	if !isFinite(amount) {
		return nil, errors.NewValidationError("amount", "must be a finite number", amount)
	}

	pivots := CalculatePivots(snap.High, snap.Low, snap.Close)
	if !isFinite(pivots.Pivot, pivots.Resistance1, pivots.Support1, pivots.Resistance2, pivots.Support2) {
		return nil, errors.Wrapf(errors.ErrInvalidSnapshot, "pivot levels overflow (high=%v low=%v close=%v)", snap.High, snap.Low, snap.Close)
	}

	votes := Confirm(snap.Close, pivots, ind)
	consensus := Tally(votes)
	direction := consensus.Signal

	levels := SelectLevels(e.params, direction, snap.Close, pivots)
	if !isFinite(levels.StopLoss, levels.TakeProfit) {
		return nil, errors.Wrapf(errors.ErrInvalidSnapshot, "stop-loss/take-profit overflow for close=%v", snap.Close)
	}

	outcome := CalculateOutcome(direction, snap.Close, levels.StopLoss, levels.TakeProfit, amount)
	if !isFinitePtr(outcome.RiskReward) {
		return nil, errors.Wrapf(errors.ErrInvalidSnapshot, "risk/reward overflow for close=%v", snap.Close)
	}
	if !isFinitePtr(outcome.Gain) || !isFinitePtr(outcome.Loss) {
		return nil, errors.NewValidationError("amount", "too large for entry price", amount)
	}

	return &signal.Recommendation{
		Symbol:     symbol,
		Amount:     amount,
		Direction:  direction,
		Entry:      round(snap.Close, pricePlaces),
		StopLoss:   round(levels.StopLoss, pricePlaces),
		TakeProfit: round(levels.TakeProfit, pricePlaces),
		RiskReward: roundPtr(outcome.RiskReward, ratioPlaces),
		Gain:       roundPtr(outcome.Gain, ratioPlaces),
		Loss:       roundPtr(outcome.Loss, ratioPlaces),
		Pivots: signal.PivotLevels{
			Pivot:       round(pivots.Pivot, pricePlaces),
			Resistance1: round(pivots.Resistance1, pricePlaces),
			Support1:    round(pivots.Support1, pricePlaces),
			Resistance2: round(pivots.Resistance2, pricePlaces),
			Support2:    round(pivots.Support2, pricePlaces),
		},
		RSI: round(ind.RSI, oscillatorPlaces),
		MACD: signal.MACDEcho{
			Line:   round(ind.MACDLine, pricePlaces),
			Signal: round(ind.SignalLine, pricePlaces),
		},
		BollingerBands: signal.BollingerEcho{
			Upper:  round(ind.BBUpper, pricePlaces),
			Middle: round(ind.BBMiddle, pricePlaces),
			Lower:  round(ind.BBLower, pricePlaces),
		},
		PSAR: round(ind.PSAR, pricePlaces),
		StochRSI: signal.StochRSIEcho{
			K: round(ind.StochK, oscillatorPlaces),
			D: round(ind.StochD, oscillatorPlaces),
		},
		Confirmations: votes,
		LongPercent:   consensus.LongPercent,
		ShortPercent:  consensus.ShortPercent,
		FinalSignal:   direction,
	}, nil
}

func validateSnapshot(snap signal.MarketSnapshot) error {
	if !isFinite(snap.High, snap.Low, snap.Close) {
		return errors.Wrapf(errors.ErrInvalidSnapshot, "non-finite price in snapshot (high=%v low=%v close=%v)", snap.High, snap.Low, snap.Close)
	}
	if snap.Close <= 0 {
		return errors.Wrapf(errors.ErrInvalidSnapshot, "close must be positive, got %v", snap.Close)
	}
	return nil
}

func validateIndicators(ind signal.IndicatorSet) error {
	if !isFinite(ind.RSI, ind.MACDLine, ind.SignalLine, ind.BBUpper, ind.BBMiddle, ind.BBLower, ind.PSAR, ind.StochK, ind.StochD) {
		return errors.Wrapf(errors.ErrInvalidSnapshot, "non-finite indicator value in %+v", ind)
	}
	return nil
}

func isFinite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// nil counts as finite
func isFinitePtr(v *float64) bool {
	return v == nil || isFinite(*v)
}

// round uses half-away-from-zero on the shortest decimal representation of v
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func roundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}
