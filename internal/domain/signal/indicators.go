package signal

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"signalengine/pkg/errors"
)

// Field names of the collaborator snapshot
const (
	FieldHigh       = "high"
	FieldLow        = "low"
	FieldClose      = "close"
	FieldRSI        = "RSI"
	FieldMACDLine   = "MACD.macd"
	FieldMACDSignal = "MACD.signal"
	FieldBBUpper    = "BB.upper"
	FieldBBMiddle   = "BB.middle"
	FieldBBLower    = "BB.lower"
	FieldPSAR       = "PSAR"
	FieldStochK     = "Stoch.RSI.K"
	FieldStochD     = "Stoch.RSI.D"
)

// SnapshotFields lists every field a provider is asked for, in request order
var SnapshotFields = []string{
	FieldHigh, FieldLow, FieldClose,
	FieldRSI, FieldMACDLine, FieldMACDSignal,
	FieldBBUpper, FieldBBMiddle, FieldBBLower,
	FieldPSAR, FieldStochK, FieldStochD,
}

// RawValues is the untyped snapshot returned by a market-data provider
type RawValues map[string]interface{}

// IndicatorSet holds pre-computed indicator values for one snapshot
type IndicatorSet struct {
	RSI        float64
	MACDLine   float64
	SignalLine float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	PSAR       float64
	StochK     float64
	StochD     float64
}

// NewIndicatorSet is the only place where absent indicators default to 0.
// Present but non-numeric values fail with ErrInvalidSnapshot.
func NewIndicatorSet(raw RawValues) (IndicatorSet, error) {
	var (
		set IndicatorSet
		err error
	)
	fields := []struct {
		name string
		dst  *float64
	}{
		{FieldRSI, &set.RSI},
		{FieldMACDLine, &set.MACDLine},
		{FieldMACDSignal, &set.SignalLine},
		{FieldBBUpper, &set.BBUpper},
		{FieldBBMiddle, &set.BBMiddle},
		{FieldBBLower, &set.BBLower},
		{FieldPSAR, &set.PSAR},
		{FieldStochK, &set.StochK},
		{FieldStochD, &set.StochD},
	}
	for _, f := range fields {
		if *f.dst, err = raw.Float(f.name); err != nil {
			return IndicatorSet{}, err
		}
	}
	return set, nil
}

// NewMarketSnapshot reads high/low/close with the same defaulting rule
func NewMarketSnapshot(raw RawValues) (MarketSnapshot, error) {
	var (
		snap MarketSnapshot
		err  error
	)
	if snap.High, err = raw.Float(FieldHigh); err != nil {
		return MarketSnapshot{}, err
	}
	if snap.Low, err = raw.Float(FieldLow); err != nil {
		return MarketSnapshot{}, err
	}
	if snap.Close, err = raw.Float(FieldClose); err != nil {
		return MarketSnapshot{}, err
	}
	return snap, nil
}

// Float coerces a single field. Missing and null values yield 0.
func (r RawValues) Float(name string) (float64, error) {
	v, ok := r[name]
	if !ok || v == nil {
		return 0, nil
	}

	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, errors.Wrapf(errors.ErrInvalidSnapshot, "%s: %q is not numeric", name, x.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrInvalidSnapshot, "%s: %q is not numeric", name, x)
		}
		f = parsed
	default:
		return 0, errors.Wrapf(errors.ErrInvalidSnapshot, "%s: unsupported value type %T", name, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Wrapf(errors.ErrInvalidSnapshot, "%s: %s is not a finite number", name, fmt.Sprint(f))
	}
	return f, nil
}
