package bootstrap

import (
	"context"
	"time"

	"signalengine/internal/adapters/kafka"
	"signalengine/pkg/errors"
	"signalengine/pkg/logger"
)

const flushTimeout = 3 * time.Second

// Lifecycle manages graceful shutdown of all components
type Lifecycle struct {
	stopped bool
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Shutdown closes the producer and flushes the error tracker. Safe to call twice.
func (l *Lifecycle) Shutdown(ctx context.Context, producer *kafka.Producer, tracker errors.Tracker, log *logger.Logger) {
	if l.stopped {
		return
	}
	l.stopped = true

	if log == nil {
		log = logger.Get()
	}
	log.Info("Shutting down...")

	l.closeProducer(producer, log)
	l.flushErrorTracker(ctx, tracker, log)

	_ = log.Sync()
}

func (l *Lifecycle) closeProducer(producer *kafka.Producer, log *logger.Logger) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		log.Errorw("Kafka producer close failed", "error", err)
		return
	}
	log.Info("✓ Kafka producer closed")
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, flushTimeout)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}
