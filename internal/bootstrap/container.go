package bootstrap

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"signalengine/internal/adapters/config"
	"signalengine/internal/adapters/kafka"
	"signalengine/internal/adapters/marketdata/binance"
	"signalengine/internal/adapters/marketdata/tradingview"
	"signalengine/internal/domain/signal"
	"signalengine/internal/events"
	signalservice "signalengine/internal/services/signal"
	"signalengine/pkg/errors"
	"signalengine/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Metrics registry; prometheus.DefaultRegisterer unless set before Init
	Registry prometheus.Registerer

	// External Adapters
	Adapters *Adapters

	// Domain Layer - Services
	Services *Services

	// Lifecycle management
	Lifecycle *Lifecycle
}

// Adapters groups market data providers and the event bus
type Adapters struct {
	Snapshots *tradingview.Provider
	Prices    *binance.Provider
	Producer  *kafka.Producer // nil when Kafka is disabled
	Publisher *events.Publisher
}

// Services groups domain services
type Services struct {
	Engine *signalservice.Engine
	Signal *signalservice.Service
}

// NewContainer creates a new dependency container. cfg may be nil, in which
// case configuration is loaded from the environment during init.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		Config:    cfg,
		Registry:  prometheus.DefaultRegisterer,
		Adapters:  &Adapters{},
		Services:  &Services{},
		Lifecycle: NewLifecycle(),
	}
}

// Init initializes all components in the correct order
func (c *Container) Init() error {
	if err := c.initConfig(); err != nil {
		return err
	}
	if err := c.initAdapters(); err != nil {
		return err
	}
	c.initServices()
	return nil
}

// MustInit is Init that panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	if err := c.Init(); err != nil {
		panic("failed to init container: " + err.Error())
	}
}

// Analyze runs one analyze request through the wired service
func (c *Container) Analyze(ctx context.Context, req signal.Request) signal.Response {
	return c.Services.Signal.Analyze(ctx, req)
}

// Shutdown flushes telemetry and closes connections
func (c *Container) Shutdown(ctx context.Context) {
	c.Lifecycle.Shutdown(ctx, c.Adapters.Producer, c.ErrorTracker, c.Log)
}
