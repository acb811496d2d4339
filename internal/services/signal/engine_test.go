package signalservice

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/internal/domain/signal"
	"signalengine/pkg/errors"
)

func buyIndicators() signal.IndicatorSet {
	return signal.IndicatorSet{
		RSI:        35,
		MACDLine:   1.0,
		SignalLine: 0.5,
		BBUpper:    110,
		BBLower:    99,
		PSAR:       98,
		StochK:     20,
		StochD:     20,
	}
}

func sellIndicators() signal.IndicatorSet {
	return signal.IndicatorSet{
		RSI:        75,
		MACDLine:   0.2,
		SignalLine: 0.5,
		BBUpper:    99,
		BBLower:    90,
		PSAR:       103,
		StochK:     85,
		StochD:     80,
	}
}

func TestCalculatePivots(t *testing.T) {
	p := CalculatePivots(105, 95, 100)

	assert.Equal(t, signal.PivotLevels{
		Pivot:       100,
		Resistance1: 105,
		Support1:    95,
		Resistance2: 110,
		Support2:    90,
	}, p)
}

func TestCalculatePivotsSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		low := 1 + rng.Float64()*1000
		high := low + rng.Float64()*100
		close := low + rng.Float64()*(high-low)

		p := CalculatePivots(high, low, close)
		assert.InDelta(t, high-low, p.Resistance1-p.Support1, 1e-9)
		assert.InDelta(t, p.Resistance2-p.Pivot, p.Pivot-p.Support2, 1e-9)
	}
}

// R1/S1 are only equidistant from the pivot when close sits at the midpoint
func TestCalculatePivotsMidpointSymmetry(t *testing.T) {
	p := CalculatePivots(105, 95, 100)
	assert.InDelta(t, p.Resistance1-p.Pivot, p.Pivot-p.Support1, 1e-9)

	skewed := CalculatePivots(105, 95, 104)
	assert.InDelta(t, skewed.Pivot-95, skewed.Resistance1-skewed.Pivot, 1e-9)
	assert.InDelta(t, 105-skewed.Pivot, skewed.Pivot-skewed.Support1, 1e-9)
}

func TestConfirmAndTally(t *testing.T) {
	pivots := CalculatePivots(105, 95, 100)

	tests := []struct {
		name      string
		ind       signal.IndicatorSet
		wantBuy   int
		wantSell  int
		wantLong  float64
		wantShort float64
		want      signal.Direction
	}{
		{
			name:     "four of five buy votes",
			ind:      buyIndicators(),
			wantBuy:  4,
			wantLong: 80,
			want:     signal.DirectionBuy,
		},
		{
			name:      "all five sell votes",
			ind:       sellIndicators(),
			wantSell:  5,
			wantShort: 100,
			want:      signal.DirectionSell,
		},
		{
			// MACD and PSAR buy; MACD cannot also sell, RSI/BB/Stoch abstain
			name:     "two buy votes stay under threshold",
			ind:      signal.IndicatorSet{RSI: 55, MACDLine: 1, SignalLine: 0, BBUpper: 120, BBLower: 80, PSAR: 90, StochK: 50, StochD: 50},
			wantBuy:  2,
			wantLong: 40,
			want:     signal.DirectionHold,
		},
		{
			// zero indicators: MACD ties, BB upper sits below close and sells
			name:      "all defaults",
			ind:       signal.IndicatorSet{},
			wantBuy:   3,
			wantSell:  1,
			wantLong:  60,
			wantShort: 20,
			want:      signal.DirectionBuy,
		},
		{
			name:      "mixed votes with sell majority",
			ind:       signal.IndicatorSet{RSI: 35, MACDLine: 0, SignalLine: 1, BBUpper: 99, BBLower: 90, PSAR: 101, StochK: 20, StochD: 20},
			wantBuy:   2,
			wantSell:  3,
			wantLong:  40,
			wantShort: 60,
			want:      signal.DirectionSell,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			votes := Confirm(100, pivots, tt.ind)
			c := Tally(votes)

			assert.Equal(t, 5, c.Counted)
			assert.Equal(t, tt.wantBuy, c.BuyCount)
			assert.Equal(t, tt.wantSell, c.SellCount)
			assert.Equal(t, tt.wantLong, c.LongPercent)
			assert.Equal(t, tt.wantShort, c.ShortPercent)
			assert.Equal(t, tt.want, c.Signal)
		})
	}
}

func TestConfirmVoteOrderAndNeutralPivot(t *testing.T) {
	votes := Confirm(100, CalculatePivots(105, 95, 100), buyIndicators())

	names := make([]string, 0, len(votes))
	for _, v := range votes {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{VoteRSI, VoteMACD, VotePivot, VoteBollinger, VotePSAR, VoteStochRSI}, names)

	pivot, ok := votes.Get(VotePivot)
	require.True(t, ok)
	assert.True(t, pivot.Buy)
	assert.True(t, pivot.Sell)
	assert.False(t, pivot.Counted)

	bb, _ := votes.Get(VoteBollinger)
	assert.False(t, bb.Buy, "close 100 is not below lower band 99")
}

func TestTallyTieBreak(t *testing.T) {
	votes := signal.Confirmations{
		{Name: "a", Buy: true, Sell: true, Counted: true},
		{Name: "b", Buy: true, Sell: true, Counted: true},
		{Name: "c", Buy: true, Sell: true, Counted: true},
		{Name: "neutral", Buy: false, Sell: true, Counted: false},
	}
	c := Tally(votes)

	assert.Equal(t, 100.0, c.LongPercent)
	assert.Equal(t, 100.0, c.ShortPercent)
	assert.Equal(t, signal.DirectionHold, c.Signal, "equal percentages never pick a side")
}

func TestSelectLevels(t *testing.T) {
	p := DefaultParams()
	pivots := CalculatePivots(105, 95, 100)

	tests := []struct {
		name      string
		direction signal.Direction
		close     float64
		pivots    signal.PivotLevels
		wantSL    float64
		wantTP    float64
		source    string
	}{
		{
			name:      "buy accepts pivot window",
			direction: signal.DirectionBuy,
			close:     100,
			pivots:    pivots,
			wantSL:    95,
			wantTP:    105,
			source:    LevelSourcePivot,
		},
		{
			name:      "sell mirrors pivot levels",
			direction: signal.DirectionSell,
			close:     100,
			pivots:    pivots,
			wantSL:    105,
			wantTP:    95,
			source:    LevelSourcePivot,
		},
		{
			name:      "hold uses buy template",
			direction: signal.DirectionHold,
			close:     100,
			pivots:    pivots,
			wantSL:    95,
			wantTP:    105,
			source:    LevelSourcePivot,
		},
		{
			name:      "narrow range falls back to buy buffer",
			direction: signal.DirectionBuy,
			close:     100,
			pivots:    CalculatePivots(101, 99, 100),
			wantSL:    99.3,
			wantTP:    101,
			source:    LevelSourceBuffer,
		},
		{
			name:      "narrow range falls back to sell buffer",
			direction: signal.DirectionSell,
			close:     100,
			pivots:    CalculatePivots(101, 99, 100),
			wantSL:    100.7,
			wantTP:    99,
			source:    LevelSourceBuffer,
		},
		{
			name:      "wide range falls back",
			direction: signal.DirectionBuy,
			close:     100,
			pivots:    CalculatePivots(160, 40, 100),
			wantSL:    99.3,
			wantTP:    101,
			source:    LevelSourceBuffer,
		},
		{
			name:      "hold falls back to buy buffer",
			direction: signal.DirectionHold,
			close:     100,
			pivots:    CalculatePivots(100.5, 99.5, 100),
			wantSL:    99.3,
			wantTP:    101,
			source:    LevelSourceBuffer,
		},
		{
			// high < low inverts S1/R1 while the distance still fits the window
			name:      "inverted range is caught by the guard",
			direction: signal.DirectionBuy,
			close:     100,
			pivots:    CalculatePivots(95, 105, 100),
			wantSL:    99.3,
			wantTP:    101,
			source:    LevelSourceGuard,
		},
		{
			name:      "inverted range on sell is caught by the guard",
			direction: signal.DirectionSell,
			close:     100,
			pivots:    CalculatePivots(95, 105, 100),
			wantSL:    100.7,
			wantTP:    99,
			source:    LevelSourceGuard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lv := SelectLevels(p, tt.direction, tt.close, tt.pivots)
			assert.InDelta(t, tt.wantSL, lv.StopLoss, 1e-9)
			assert.InDelta(t, tt.wantTP, lv.TakeProfit, 1e-9)
			assert.Equal(t, tt.source, lv.Source)
		})
	}
}

func TestSelectLevelsBracketInvariant(t *testing.T) {
	p := DefaultParams()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		close := 0.01 + rng.Float64()*50000
		// deliberately unordered high/low
		high := close * (0.5 + rng.Float64())
		low := close * (0.5 + rng.Float64())
		pivots := CalculatePivots(high, low, close)

		buy := SelectLevels(p, signal.DirectionBuy, close, pivots)
		assert.Greater(t, buy.TakeProfit, buy.StopLoss, "buy tp must exceed sl (close=%v high=%v low=%v)", close, high, low)

		sell := SelectLevels(p, signal.DirectionSell, close, pivots)
		assert.Greater(t, sell.StopLoss, sell.TakeProfit, "sell sl must exceed tp (close=%v high=%v low=%v)", close, high, low)
	}
}

func TestCalculateOutcome(t *testing.T) {
	buy := CalculateOutcome(signal.DirectionBuy, 100, 95, 105, 1000)
	require.NotNil(t, buy.RiskReward)
	assert.InDelta(t, 1.0, *buy.RiskReward, 1e-12)
	assert.InDelta(t, 50.0, *buy.Gain, 1e-9)
	assert.InDelta(t, 50.0, *buy.Loss, 1e-9)

	sell := CalculateOutcome(signal.DirectionSell, 100, 105, 90, 500)
	require.NotNil(t, sell.RiskReward)
	assert.InDelta(t, 2.0, *sell.RiskReward, 1e-12)
	assert.InDelta(t, 50.0, *sell.Gain, 1e-9)
	assert.InDelta(t, 25.0, *sell.Loss, 1e-9)

	hold := CalculateOutcome(signal.DirectionHold, 100, 95, 105, 1000)
	assert.Nil(t, hold.RiskReward)
	assert.Nil(t, hold.Gain)
	assert.Nil(t, hold.Loss)
}

func TestCalculateOutcomeZeroRisk(t *testing.T) {
	buy := CalculateOutcome(signal.DirectionBuy, 100, 100, 105, 1000)
	assert.Nil(t, buy.RiskReward)
	require.NotNil(t, buy.Loss)
	assert.Equal(t, 0.0, *buy.Loss)

	sell := CalculateOutcome(signal.DirectionSell, 100, 100, 95, 1000)
	assert.Nil(t, sell.RiskReward)
	require.NotNil(t, sell.Gain)
	assert.InDelta(t, 50.0, *sell.Gain, 1e-9)
}

func TestEvaluateBuyScenario(t *testing.T) {
	engine := NewEngine(DefaultParams())

	rec, err := engine.Evaluate("BTCUSDT", signal.MarketSnapshot{High: 105, Low: 95, Close: 100}, buyIndicators(), 1000)
	require.NoError(t, err)

	assert.Equal(t, signal.DirectionBuy, rec.Direction)
	assert.Equal(t, signal.DirectionBuy, rec.FinalSignal)
	assert.Equal(t, 100.0, rec.Entry)
	assert.Equal(t, 95.0, rec.StopLoss)
	assert.Equal(t, 105.0, rec.TakeProfit)
	require.NotNil(t, rec.RiskReward)
	assert.Equal(t, 1.0, *rec.RiskReward)
	assert.Equal(t, 50.0, *rec.Gain)
	assert.Equal(t, 50.0, *rec.Loss)
	assert.Equal(t, 80.0, rec.LongPercent)
	assert.Equal(t, 0.0, rec.ShortPercent)
	assert.Equal(t, 110.0, rec.Pivots.Resistance2)
	assert.Len(t, rec.Confirmations, 6)
	assert.Equal(t, 35.0, rec.RSI)
	assert.Equal(t, 0.5, rec.MACD.Signal)
	assert.Equal(t, 99.0, rec.BollingerBands.Lower)
}

func TestEvaluateHoldHasLevelsButNoOutcome(t *testing.T) {
	engine := NewEngine(DefaultParams())
	ind := signal.IndicatorSet{RSI: 55, MACDLine: 0.5, SignalLine: 0.5, BBUpper: 120, BBLower: 80, PSAR: 100, StochK: 50, StochD: 50}

	rec, err := engine.Evaluate("ETHUSDT", signal.MarketSnapshot{High: 105, Low: 95, Close: 100}, ind, 1000)
	require.NoError(t, err)

	assert.Equal(t, signal.DirectionHold, rec.FinalSignal)
	assert.Equal(t, 95.0, rec.StopLoss)
	assert.Equal(t, 105.0, rec.TakeProfit)
	assert.Nil(t, rec.RiskReward)
	assert.Nil(t, rec.Gain)
	assert.Nil(t, rec.Loss)
}

func TestEvaluateRounding(t *testing.T) {
	engine := NewEngine(DefaultParams())
	ind := buyIndicators()
	ind.RSI = 35.456
	ind.MACDLine = 1.234567

	rec, err := engine.Evaluate("BTCUSDT", signal.MarketSnapshot{High: 101, Low: 99, Close: 100.123456}, ind, 333)
	require.NoError(t, err)

	assert.Equal(t, 100.1235, rec.Entry)
	assert.Equal(t, 99.4226, rec.StopLoss)
	assert.Equal(t, 101.1247, rec.TakeProfit)
	assert.Equal(t, 35.46, rec.RSI)
	assert.Equal(t, 1.2346, rec.MACD.Line)
	require.NotNil(t, rec.RiskReward)
	assert.Equal(t, 1.43, *rec.RiskReward)
	assert.Equal(t, 3.33, *rec.Gain)
	assert.Equal(t, 2.33, *rec.Loss)
}

func TestEvaluateRejectsInvalidClose(t *testing.T) {
	engine := NewEngine(DefaultParams())

	tests := []struct {
		name string
		snap signal.MarketSnapshot
	}{
		{name: "zero close", snap: signal.MarketSnapshot{}},
		{name: "negative close", snap: signal.MarketSnapshot{High: 1, Low: 1, Close: -5}},
		{name: "nan close", snap: signal.MarketSnapshot{High: 1, Low: 1, Close: math.NaN()}},
		{name: "infinite high", snap: signal.MarketSnapshot{High: math.Inf(1), Low: 1, Close: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := engine.Evaluate("BTCUSDT", tt.snap, buyIndicators(), 100)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, errors.ErrInvalidSnapshot)
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	engine := NewEngine(DefaultParams())
	snap := signal.MarketSnapshot{High: 64850.12, Low: 63010.5, Close: 64210.77}

	first, err := engine.Evaluate("BTCUSDT", snap, sellIndicators(), 2500)
	require.NoError(t, err)
	second, err := engine.Evaluate("BTCUSDT", snap, sellIndicators(), 2500)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewEngineDefaults(t *testing.T) {
	assert.Equal(t, DefaultParams(), NewEngine(Params{}).Params())

	custom := Params{StopLossBuffer: 0.01, TakeProfitBuffer: 0.02, MinDistancePct: 0.01, MaxDistancePct: 0.2}
	assert.Equal(t, custom, NewEngine(custom).Params())
}

func TestEvaluateRejectsOverflow(t *testing.T) {
	engine := NewEngine(DefaultParams())

	tests := []struct {
		name    string
		snap    signal.MarketSnapshot
		ind     signal.IndicatorSet
		amount  float64
		wantErr error
	}{
		{
			name:    "pivot sum overflows",
			snap:    signal.MarketSnapshot{High: 1e308, Low: 1e308, Close: 1e308},
			amount:  1,
			wantErr: errors.ErrInvalidSnapshot,
		},
		{
			name:    "gain overflows with huge amount",
			snap:    signal.MarketSnapshot{High: 105, Low: 95, Close: 100},
			ind:     buyIndicators(),
			amount:  1e308,
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "non-finite amount",
			snap:    signal.MarketSnapshot{High: 105, Low: 95, Close: 100},
			ind:     buyIndicators(),
			amount:  math.Inf(1),
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "non-finite indicator",
			snap:    signal.MarketSnapshot{High: 105, Low: 95, Close: 100},
			ind:     signal.IndicatorSet{RSI: math.NaN()},
			amount:  1,
			wantErr: errors.ErrInvalidSnapshot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				rec *signal.Recommendation
				err error
			)
			require.NotPanics(t, func() {
				rec, err = engine.Evaluate("BTCUSDT", tt.snap, tt.ind, tt.amount)
			})
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEvaluateHoldIgnoresHugeAmount(t *testing.T) {
	engine := NewEngine(DefaultParams())
	ind := signal.IndicatorSet{RSI: 55, MACDLine: 0.5, SignalLine: 0.5, BBUpper: 120, BBLower: 80, PSAR: 100, StochK: 50, StochD: 50}

	rec, err := engine.Evaluate("BTCUSDT", signal.MarketSnapshot{High: 105, Low: 95, Close: 100}, ind, 1e308)
	require.NoError(t, err)
	assert.Equal(t, signal.DirectionHold, rec.FinalSignal)
	assert.Nil(t, rec.Gain)
}
