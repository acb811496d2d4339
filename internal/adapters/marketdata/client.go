// Package marketdata holds the HTTP plumbing shared by the snapshot and price providers.
package marketdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"signalengine/internal/adapters/marketdata/ratelimit"
	"signalengine/internal/adapters/marketdata/retry"
	"signalengine/internal/metrics"
	"signalengine/pkg/errors"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorBodyLen = 512
)

// ErrorDecoder turns a non-2xx response into an error. The result should
// implement StatusCode() so the retry middleware can classify it.
type ErrorDecoder func(provider string, status int, body []byte) error

// Config configures a provider client
type Config struct {
	Provider          string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	Retry             retry.Config
	HTTPClient        *http.Client
	DecodeError       ErrorDecoder
}

// Client sends rate-limited, retried requests to one provider
type Client struct {
	provider    string
	baseURL     string
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
	retry       *retry.Middleware
	decodeError ErrorDecoder
}

// NewClient creates a provider client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Provider == "" {
		return nil, errors.New("provider name required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("%s: invalid base url %q", cfg.Provider, cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	decode := cfg.DecodeError
	if decode == nil {
		decode = DecodeStatusError
	}

	return &Client{
		provider:    cfg.Provider,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		limiter:     ratelimit.NewLimiter(cfg.Provider, cfg.RequestsPerMinute),
		retry:       retry.New(cfg.Retry),
		decodeError: decode,
	}, nil
}

// Provider returns the provider name used in metrics and errors
func (c *Client) Provider() string {
	return c.provider
}

// Get performs a GET request and returns the response body
func (c *Client) Get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	return c.Do(ctx, endpoint, http.MethodGet, path, query, nil)
}

// Post sends body as JSON and returns the response body
func (c *Client) Post(ctx context.Context, endpoint, path string, body []byte) ([]byte, error) {
	return c.Do(ctx, endpoint, http.MethodPost, path, nil, body)
}

// Do runs one logical call. Every attempt waits on the limiter; endpoint is a metrics label.
func (c *Client) Do(ctx context.Context, endpoint, method, path string, query url.Values, body []byte) ([]byte, error) {
	start := time.Now()

	payload, err := retry.DoValue(ctx, c.retry, func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.doRequest(ctx, method, path, query, body)
	})

	metrics.RecordProviderCall(c.provider, endpoint, time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", c.provider, endpoint)
	}
	return payload, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, c.decodeError(c.provider, resp.StatusCode, payload)
	}
	return payload, nil
}

// StatusError is a non-2xx provider response
type StatusError struct {
	Provider string
	Code     int
	Message  string
	Err      error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.Code, e.Message)
}

// StatusCode exposes the HTTP status to the retry middleware
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Unwrap returns the provider-specific cause; without one, 429 maps to
// ErrRateLimitExceeded and anything else to ErrDataUnavailable.
func (e *StatusError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Code == http.StatusTooManyRequests {
		return errors.ErrRateLimitExceeded
	}
	return errors.ErrDataUnavailable
}

// DecodeStatusError is the default ErrorDecoder
func DecodeStatusError(provider string, status int, body []byte) error {
	return &StatusError{Provider: provider, Code: status, Message: Truncate(body)}
}

// Truncate trims a response body for error messages without splitting a UTF-8 sequence
func Truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorBodyLen {
		return s
	}
	cut := maxErrorBodyLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
