package signalservice

import "signalengine/internal/domain/signal"

// Vote names, in display order
const (
	VoteRSI       = "RSI"
	VoteMACD      = "MACD"
	VotePivot     = "Pivot Support/Resistance"
	VoteBollinger = "Bollinger Bands"
	VotePSAR      = "PSAR"
	VoteStochRSI  = "Stoch RSI"
)

// Oscillator thresholds
const (
	rsiOversold     = 40
	rsiOverbought   = 70
	stochOversold   = 30
	stochOverbought = 70

	// Minimum consensus for a directional signal, in percent
	consensusThreshold = 50
)

type voteInput struct {
	close  float64
	pivots signal.PivotLevels
	ind    signal.IndicatorSet
}

type confirmationRule struct {
	name    string
	buy     func(in voteInput) bool
	sell    func(in voteInput) bool
	counted bool
}

func always(voteInput) bool { return true }

// The pivot vote is a fixed neutral entry: shown to the user, never tallied.
var confirmationRules = []confirmationRule{
	{
		name:    VoteRSI,
		buy:     func(in voteInput) bool { return in.ind.RSI < rsiOversold },
		sell:    func(in voteInput) bool { return in.ind.RSI > rsiOverbought },
		counted: true,
	},
	{
		name:    VoteMACD,
		buy:     func(in voteInput) bool { return in.ind.MACDLine > in.ind.SignalLine },
		sell:    func(in voteInput) bool { return in.ind.MACDLine < in.ind.SignalLine },
		counted: true,
	},
	{
		name:    VotePivot,
		buy:     always,
		sell:    always,
		counted: false,
	},
	{
		name:    VoteBollinger,
		buy:     func(in voteInput) bool { return in.close < in.ind.BBLower },
		sell:    func(in voteInput) bool { return in.close > in.ind.BBUpper },
		counted: true,
	},
	{
		name:    VotePSAR,
		buy:     func(in voteInput) bool { return in.close > in.ind.PSAR },
		sell:    func(in voteInput) bool { return in.close < in.ind.PSAR },
		counted: true,
	},
	{
		name: VoteStochRSI,
		buy: func(in voteInput) bool {
			return in.ind.StochK < stochOversold && in.ind.StochD < stochOversold
		},
		sell: func(in voteInput) bool {
			return in.ind.StochK > stochOverbought && in.ind.StochD > stochOverbought
		},
		counted: true,
	},
}

// Consensus is the tally over counted votes
type Consensus struct {
	BuyCount     int
	SellCount    int
	Counted      int
	LongPercent  float64
	ShortPercent float64
	Signal       signal.Direction
}

// Confirm evaluates every rule against the snapshot
func Confirm(close float64, pivots signal.PivotLevels, ind signal.IndicatorSet) signal.Confirmations {
	in := voteInput{close: close, pivots: pivots, ind: ind}

	votes := make(signal.Confirmations, 0, len(confirmationRules))
	for _, rule := range confirmationRules {
		votes = append(votes, signal.Vote{
			Name:    rule.name,
			Buy:     rule.buy(in),
			Sell:    rule.sell(in),
			Counted: rule.counted,
		})
	}
	return votes
}

// Tally computes long/short percentages independently; they need not sum to 100.
func Tally(votes signal.Confirmations) Consensus {
	var c Consensus
	for _, v := range votes {
		if !v.Counted {
			continue
		}
		c.Counted++
		if v.Buy {
			c.BuyCount++
		}
		if v.Sell {
			c.SellCount++
		}
	}

	if c.Counted > 0 {
		c.LongPercent = round(float64(c.BuyCount)*100/float64(c.Counted), 1)
		c.ShortPercent = round(float64(c.SellCount)*100/float64(c.Counted), 1)
	}

	switch {
	case c.LongPercent > c.ShortPercent && c.LongPercent >= consensusThreshold:
		c.Signal = signal.DirectionBuy
	case c.ShortPercent > c.LongPercent && c.ShortPercent >= consensusThreshold:
		c.Signal = signal.DirectionSell
	default:
		c.Signal = signal.DirectionHold
	}
	return c
}
