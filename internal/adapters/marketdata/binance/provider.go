// Package binance supplies last-trade prices from the Binance spot REST API.
package binance

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"signalengine/internal/adapters/marketdata"
	"signalengine/pkg/errors"
)

const (
	// DefaultBaseURL is the public spot API
	DefaultBaseURL = "https://api.binance.com"

	endpointPrice = "ticker_price"
	pathPrice     = "/api/v3/ticker/price"
)

// Binance error codes with a dedicated meaning
const (
	codeTooManyRequests = -1003
	codeInvalidSymbol   = -1121
)

// Provider implements the last-price collaborator
type Provider struct {
	client *marketdata.Client
}

// New creates a price provider on top of client
func New(client *marketdata.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("binance: client required")
	}
	return &Provider{client: client}, nil
}

// GetLastPrice returns the latest trade price for symbol
func (p *Provider) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	payload, err := p.client.Get(ctx, endpointPrice, pathPrice, url.Values{"symbol": []string{normalizeSymbol(symbol)}})
	if err != nil {
		return 0, err
	}

	var res struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(payload, &res); err != nil {
		return 0, errors.Join(errors.ErrDataUnavailable, errors.Wrap(err, "decode ticker price"))
	}

	price, err := decimal.NewFromString(res.Price)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidSnapshot, "binance price %q for %s", res.Price, symbol)
	}
	if !price.IsPositive() {
		return 0, errors.Wrapf(errors.ErrInvalidSnapshot, "binance price %s for %s is not positive", price, symbol)
	}
	return price.InexactFloat64(), nil
}

// DecodeError maps Binance error payloads onto the shared taxonomy
func DecodeError(provider string, status int, payload []byte) error {
	statusErr := &marketdata.StatusError{Provider: provider, Code: status, Message: marketdata.Truncate(payload)}

	var apiErr struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Code != 0 {
		statusErr.Message = apiErr.Msg
		switch apiErr.Code {
		case codeTooManyRequests:
			statusErr.Err = errors.ErrRateLimitExceeded
		case codeInvalidSymbol:
			statusErr.Err = errors.Join(errors.ErrDataUnavailable, errors.ErrInvalidSymbol)
		}
	}
	return statusErr
}

// normalizeSymbol drops separators: "btc-usdt" and "BTC/USDT" become "BTCUSDT"
func normalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
}
