// Package tradingview fetches indicator snapshots from the TradingView scanner API.
package tradingview

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"signalengine/internal/adapters/marketdata"
	"signalengine/internal/domain/signal"
	"signalengine/pkg/errors"
)

const endpointScan = "scan"

// Column suffix per candle interval; the daily interval has none
var intervalSuffixes = map[string]string{
	"1m":  "|1",
	"5m":  "|5",
	"15m": "|15",
	"30m": "|30",
	"1h":  "|60",
	"2h":  "|120",
	"4h":  "|240",
	"1d":  "",
	"1W":  "|1W",
	"1M":  "|1M",
}

// Scanner column names that differ from the snapshot field names
var scannerColumns = map[string]string{
	signal.FieldBBMiddle: "SMA20",
	signal.FieldPSAR:     "P.SAR",
}

// Config selects the market and candle interval
type Config struct {
	Screener string // e.g. crypto, america
	Exchange string // ticker prefix, e.g. BINANCE
	Interval string
}

// Provider implements the snapshot collaborator over the scanner API
type Provider struct {
	client  *marketdata.Client
	cfg     Config
	columns []string
}

// New creates a scanner provider
func New(client *marketdata.Client, cfg Config) (*Provider, error) {
	if client == nil {
		return nil, errors.New("tradingview: client required")
	}
	cfg.Screener = strings.ToLower(strings.TrimSpace(cfg.Screener))
	if cfg.Screener == "" {
		return nil, errors.NewValidationError("screener", "must not be empty", cfg.Screener)
	}
	cfg.Exchange = strings.ToUpper(strings.TrimSpace(cfg.Exchange))

	columns, err := Columns(cfg.Interval)
	if err != nil {
		return nil, err
	}

	return &Provider{client: client, cfg: cfg, columns: columns}, nil
}

// Columns returns the scanner columns for interval, in signal.SnapshotFields order
func Columns(interval string) ([]string, error) {
	suffix, ok := intervalSuffixes[interval]
	if !ok {
		return nil, errors.NewValidationError("interval", "unsupported candle interval", interval)
	}

	columns := make([]string, len(signal.SnapshotFields))
	for i, field := range signal.SnapshotFields {
		name := field
		if alias, ok := scannerColumns[field]; ok {
			name = alias
		}
		columns[i] = name + suffix
	}
	return columns, nil
}

type scanRequest struct {
	Symbols scanSymbols `json:"symbols"`
	Columns []string    `json:"columns"`
}

type scanSymbols struct {
	Tickers []string  `json:"tickers"`
	Query   scanQuery `json:"query"`
}

type scanQuery struct {
	Types []string `json:"types"`
}

type scanResponse struct {
	TotalCount int    `json:"totalCount"`
	Error      string `json:"error"`
	Data       []struct {
		Symbol string        `json:"s"`
		Values []interface{} `json:"d"`
	} `json:"data"`
}

// GetSnapshot fetches one row of OHLC and indicator values for symbol
func (p *Provider) GetSnapshot(ctx context.Context, symbol string) (signal.RawValues, error) {
	ticker := p.ticker(symbol)

	body, err := json.Marshal(scanRequest{
		Symbols: scanSymbols{
			Tickers: []string{ticker},
			Query:   scanQuery{Types: []string{}},
		},
		Columns: p.columns,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode scan request")
	}

	payload, err := p.client.Post(ctx, endpointScan, "/"+p.cfg.Screener+"/scan", body)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(ticker, payload)
}

func (p *Provider) ticker(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(symbol, ":") || p.cfg.Exchange == "" {
		return symbol
	}
	return p.cfg.Exchange + ":" + symbol
}

func decodeSnapshot(ticker string, payload []byte) (signal.RawValues, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var resp scanResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, errors.Join(errors.ErrDataUnavailable, errors.Wrap(err, "decode scan response"))
	}
	if resp.Error != "" {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "scanner %s: %s", ticker, resp.Error)
	}
	if len(resp.Data) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "scanner returned no data for %s", ticker)
	}

	row := resp.Data[0].Values
	if len(row) != len(signal.SnapshotFields) {
		return nil, errors.Wrapf(errors.ErrInvalidSnapshot, "scanner returned %d values for %s, want %d",
			len(row), ticker, len(signal.SnapshotFields))
	}

	raw := make(signal.RawValues, len(row))
	for i, field := range signal.SnapshotFields {
		raw[field] = row[i]
	}
	return raw, nil
}
