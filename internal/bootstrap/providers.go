package bootstrap

import (
	"time"

	"signalengine/internal/adapters/config"
	errnoop "signalengine/internal/adapters/errors/noop"
	"signalengine/internal/adapters/errors/sentry"
	"signalengine/internal/adapters/kafka"
	"signalengine/internal/adapters/marketdata"
	"signalengine/internal/adapters/marketdata/binance"
	"signalengine/internal/adapters/marketdata/retry"
	"signalengine/internal/adapters/marketdata/tradingview"
	"signalengine/internal/events"
	"signalengine/internal/metrics"
	signalservice "signalengine/internal/services/signal"
	"signalengine/pkg/errors"
	"signalengine/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

func (c *Container) initConfig() error {
	if c.Config == nil {
		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		c.Config = cfg
	} else if err := c.Config.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	cfg := c.Config

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return errors.Wrap(err, "failed to init logger")
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
	c.Log = logger.Get()

	if c.Registry != nil {
		metrics.Init(c.Registry)
	}
	return nil
}

// ========================================
// Phase 2: External Adapters
// ========================================

func (c *Container) initAdapters() error {
	var err error

	c.Adapters.Snapshots, err = provideSnapshotProvider(c.Config.MarketData)
	if err != nil {
		return errors.Wrap(err, "failed to init snapshot provider")
	}
	c.Log.Infow("✓ Snapshot provider initialized",
		"screener", c.Config.MarketData.Screener,
		"exchange", c.Config.MarketData.Exchange,
		"interval", c.Config.MarketData.Interval,
	)

	c.Adapters.Prices, err = providePriceProvider(c.Config.Price)
	if err != nil {
		return errors.Wrap(err, "failed to init price provider")
	}
	c.Log.Info("✓ Price provider initialized")

	if !c.Config.Kafka.Enabled() {
		c.Log.Info("Kafka brokers not configured, recommendation events disabled")
		return nil
	}

	c.Adapters.Producer, err = kafka.NewProducer(kafka.ProducerConfig{Brokers: c.Config.Kafka.Brokers}, c.Log)
	if err != nil {
		return errors.Wrap(err, "failed to init kafka producer")
	}
	c.Adapters.Publisher = events.NewPublisher(c.Adapters.Producer, c.Config.Kafka.Topic, c.Log)
	c.Log.Infow("✓ Kafka producer initialized", "topic", c.Config.Kafka.Topic)
	return nil
}

// ========================================
// Phase 3: Services
// ========================================

func (c *Container) initServices() {
	c.Services.Engine = signalservice.NewEngine(signalservice.Params{
		StopLossBuffer:   c.Config.Engine.StopLossBuffer,
		TakeProfitBuffer: c.Config.Engine.TakeProfitBuffer,
		MinDistancePct:   c.Config.Engine.MinDistancePct,
		MaxDistancePct:   c.Config.Engine.MaxDistancePct,
	})

	deps := signalservice.Deps{
		Engine:         c.Services.Engine,
		Snapshots:      c.Adapters.Snapshots,
		Prices:         c.Adapters.Prices,
		PublishTimeout: c.Config.Kafka.PublishTimeout,
		Tracker:        c.ErrorTracker,
		Log:            c.Log,
	}
	// A typed nil *events.Publisher must not reach the interface field
	if c.Adapters.Publisher != nil {
		deps.Publisher = c.Adapters.Publisher
	}
	c.Services.Signal = signalservice.NewService(deps)
	c.Log.Info("✓ Signal service initialized")
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideSnapshotProvider(cfg config.MarketDataConfig) (*tradingview.Provider, error) {
	client, err := marketdata.NewClient(marketdata.Config{
		Provider:          "tradingview",
		BaseURL:           cfg.ScannerURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Retry:             retryConfig(cfg.MaxRetries),
	})
	if err != nil {
		return nil, err
	}

	return tradingview.New(client, tradingview.Config{
		Screener: cfg.Screener,
		Exchange: cfg.Exchange,
		Interval: cfg.Interval,
	})
}

func providePriceProvider(cfg config.PriceConfig) (*binance.Provider, error) {
	client, err := marketdata.NewClient(marketdata.Config{
		Provider:          "binance",
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Retry:             retryConfig(cfg.MaxRetries),
		DecodeError:       binance.DecodeError,
	})
	if err != nil {
		return nil, err
	}
	return binance.New(client)
}

func retryConfig(maxRetries int) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = maxRetries
	rc.MaxDelay = 2 * time.Second
	return rc
}
