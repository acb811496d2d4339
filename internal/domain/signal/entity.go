package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
)

// Direction is the actionable side of a recommendation
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

func (d Direction) String() string {
	return string(d)
}

// Synthetic range applied around a last-trade price when OHLC is missing
const (
	fallbackHighFactor = 1.01
	fallbackLowFactor  = 0.99
)

// MarketSnapshot is one instrument at one point in time
type MarketSnapshot struct {
	High  float64
	Low   float64
	Close float64
}

// NeedsFallback reports whether high/low/close must be synthesized from a last-trade price
func (s MarketSnapshot) NeedsFallback() bool {
	return s.High == 0 || s.Low == 0 || s.Close == 0
}

// SnapshotFromLastPrice synthesizes a snapshot with a ±1% range around price
func SnapshotFromLastPrice(price float64) MarketSnapshot {
	return MarketSnapshot{
		High:  price * fallbackHighFactor,
		Low:   price * fallbackLowFactor,
		Close: price,
	}
}

// PivotLevels are classic floor-trader levels derived from one snapshot
type PivotLevels struct {
	Pivot       float64 `json:"pivot"`
	Resistance1 float64 `json:"resistance1"`
	Support1    float64 `json:"support1"`
	Resistance2 float64 `json:"resistance2"`
	Support2    float64 `json:"support2"`
}

// Vote is one indicator's opinion. Buy and Sell are independent.
// Votes with Counted unset are displayed but excluded from the tally.
type Vote struct {
	Name    string
	Buy     bool
	Sell    bool
	Counted bool
}

// Confirmations keeps votes in evaluation order and encodes as a JSON object
// {"RSI": {"buy": true, "sell": false}, ...} with that order preserved.
type Confirmations []Vote

func (c Confirmations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		fmt.Fprintf(&buf, `:{"buy":%t,"sell":%t}`, v.Buy, v.Sell)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the vote with the given name
func (c Confirmations) Get(name string) (Vote, bool) {
	for _, v := range c {
		if v.Name == name {
			return v, true
		}
	}
	return Vote{}, false
}

type MACDEcho struct {
	Line   float64 `json:"line"`
	Signal float64 `json:"signal"`
}

type BollingerEcho struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

type StochRSIEcho struct {
	K float64 `json:"K"`
	D float64 `json:"D"`
}

// Recommendation is the engine output. Nil RiskReward/Gain/Loss encode as null.
type Recommendation struct {
	Symbol         string        `json:"symbol"`
	Amount         float64       `json:"amount"`
	Direction      Direction     `json:"direction"`
	Entry          float64       `json:"entry"`
	StopLoss       float64       `json:"sl"`
	TakeProfit     float64       `json:"tp"`
	RiskReward     *float64      `json:"rr"`
	Gain           *float64      `json:"gain"`
	Loss           *float64      `json:"loss"`
	Pivots         PivotLevels   `json:"pivots"`
	RSI            float64       `json:"rsi"`
	MACD           MACDEcho      `json:"macd"`
	BollingerBands BollingerEcho `json:"bollinger_bands"`
	PSAR           float64       `json:"psar"`
	StochRSI       StochRSIEcho  `json:"stoch_rsi"`
	Confirmations  Confirmations `json:"confirmations"`
	LongPercent    float64       `json:"long_percent"`
	ShortPercent   float64       `json:"short_percent"`
	FinalSignal    Direction     `json:"final_signal"`
}

// Summary renders a one-line description for logs and notifications
func (r *Recommendation) Summary() string {
	rr := "-"
	if r.RiskReward != nil {
		rr = strconv.FormatFloat(*r.RiskReward, 'f', 2, 64)
	}
	return fmt.Sprintf("%s %s entry=%s sl=%s tp=%s rr=%s long=%.1f%% short=%.1f%%",
		r.Direction, r.Symbol,
		humanize.CommafWithDigits(r.Entry, 4),
		humanize.CommafWithDigits(r.StopLoss, 4),
		humanize.CommafWithDigits(r.TakeProfit, 4),
		rr, r.LongPercent, r.ShortPercent,
	)
}

// Request is the transport-agnostic analyze input
type Request struct {
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
}

// Response carries either a recommendation or an error, never both.
// A nil embedded pointer contributes no JSON fields.
type Response struct {
	*Recommendation
	Error string `json:"error,omitempty"`
}

// Failed reports whether the response is an error object
func (r Response) Failed() bool {
	return r.Recommendation == nil
}
