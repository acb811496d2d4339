package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"signalengine/pkg/errors"
	"signalengine/pkg/logger"
)

// Producer handles Kafka message publishing
type Producer struct {
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	cfg     ProducerConfig
	log     *logger.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Brokers      []string
	Async        bool
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// NewProducer creates a new Kafka producer. Writers are opened lazily per topic.
func NewProducer(cfg ProducerConfig, log *logger.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Get()
	}

	return &Producer{
		writers: make(map[string]*kafka.Writer),
		cfg:     cfg,
		log:     log.With("component", "kafka_producer"),
	}, nil
}

// getWriter returns or creates a writer for a topic
func (p *Producer) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(p.cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // same key, same partition
		Async:                  p.cfg.Async,
		BatchTimeout:           p.cfg.BatchTimeout,
		WriteTimeout:           p.cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	p.writers[topic] = w
	return w
}

// Publish JSON-encodes event and sends it to topic
func (p *Producer) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	return p.PublishBinary(ctx, topic, []byte(key), data)
}

// PublishBinary sends a pre-encoded payload to topic
func (p *Producer) PublishBinary(ctx context.Context, topic string, key, value []byte) error {
	msg := kafka.Message{
		Key:   key,
		Value: value,
		Time:  time.Now().UTC(),
	}

	if err := p.getWriter(topic).WriteMessages(ctx, msg); err != nil {
		p.log.Errorw("Failed to publish", "topic", topic, "key", string(key), "error", err)
		return errors.Wrapf(err, "publish to %s", topic)
	}

	p.log.Debugw("Published", "topic", topic, "key", string(key), "size_bytes", len(value))
	return nil
}

// Close closes all writers, returning the first error
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			p.log.Errorw("Failed to close writer", "topic", topic, "error", err)
			if first == nil {
				first = err
			}
		}
		delete(p.writers, topic)
	}
	return first
}
