package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"signalengine/pkg/errors"
)

type Config struct {
	App           AppConfig
	MarketData    MarketDataConfig
	Price         PriceConfig
	Engine        EngineConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"signalengine"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

// MarketDataConfig configures the indicator snapshot provider (TradingView scanner)
type MarketDataConfig struct {
	ScannerURL        string        `envconfig:"SCANNER_BASE_URL" default:"https://scanner.tradingview.com"`
	Screener          string        `envconfig:"SCANNER_SCREENER" default:"crypto"`
	Exchange          string        `envconfig:"SCANNER_EXCHANGE" default:"BINANCE"`
	Interval          string        `envconfig:"SCANNER_INTERVAL" default:"1h"`
	RequestTimeout    time.Duration `envconfig:"SCANNER_REQUEST_TIMEOUT" default:"10s"`
	RequestsPerMinute int           `envconfig:"SCANNER_REQUESTS_PER_MINUTE" default:"60"`
	MaxRetries        int           `envconfig:"SCANNER_MAX_RETRIES" default:"3"`
}

// PriceConfig configures the last-trade price provider used when OHLC is missing
type PriceConfig struct {
	BaseURL           string        `envconfig:"PRICE_BASE_URL" default:"https://api.binance.com"`
	RequestTimeout    time.Duration `envconfig:"PRICE_REQUEST_TIMEOUT" default:"5s"`
	RequestsPerMinute int           `envconfig:"PRICE_REQUESTS_PER_MINUTE" default:"1200"`
	MaxRetries        int           `envconfig:"PRICE_MAX_RETRIES" default:"3"`
}

// EngineConfig holds the level selector constants
type EngineConfig struct {
	StopLossBuffer   float64 `envconfig:"ENGINE_STOP_LOSS_BUFFER" default:"0.007"`
	TakeProfitBuffer float64 `envconfig:"ENGINE_TAKE_PROFIT_BUFFER" default:"0.01"`
	MinDistancePct   float64 `envconfig:"ENGINE_MIN_DISTANCE_PCT" default:"0.05"`
	MaxDistancePct   float64 `envconfig:"ENGINE_MAX_DISTANCE_PCT" default:"0.5"`
}

// KafkaConfig enables recommendation publishing when Brokers is non-empty
type KafkaConfig struct {
	Brokers        []string      `envconfig:"KAFKA_BROKERS"`
	Topic          string        `envconfig:"KAFKA_RECOMMENDATIONS_TOPIC" default:"signals.recommendations"`
	PublishTimeout time.Duration `envconfig:"KAFKA_PUBLISH_TIMEOUT" default:"2s"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Validate checks values envconfig cannot express
func (c *Config) Validate() error {
	e := c.Engine
	if e.StopLossBuffer <= 0 || e.StopLossBuffer >= 1 {
		return errors.NewValidationError("ENGINE_STOP_LOSS_BUFFER", "must be in (0, 1)", e.StopLossBuffer)
	}
	if e.TakeProfitBuffer <= 0 || e.TakeProfitBuffer >= 1 {
		return errors.NewValidationError("ENGINE_TAKE_PROFIT_BUFFER", "must be in (0, 1)", e.TakeProfitBuffer)
	}
	if e.MinDistancePct < 0 || e.MinDistancePct > e.MaxDistancePct {
		return errors.NewValidationError("ENGINE_MIN_DISTANCE_PCT", fmt.Sprintf("must be in [0, %v]", e.MaxDistancePct), e.MinDistancePct)
	}
	// 0 disables client-side rate limiting
	if c.MarketData.RequestsPerMinute < 0 {
		return errors.NewValidationError("SCANNER_REQUESTS_PER_MINUTE", "must not be negative", c.MarketData.RequestsPerMinute)
	}
	if c.Price.RequestsPerMinute < 0 {
		return errors.NewValidationError("PRICE_REQUESTS_PER_MINUTE", "must not be negative", c.Price.RequestsPerMinute)
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.NewValidationError("KAFKA_RECOMMENDATIONS_TOPIC", "required when KAFKA_BROKERS is set", c.Kafka.Topic)
	}
	return nil
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &cfg, nil
}
