// Package events publishes engine output to Kafka for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"signalengine/internal/adapters/kafka"
	"signalengine/internal/domain/signal"
	"signalengine/internal/metrics"
	"signalengine/pkg/errors"
	"signalengine/pkg/logger"
)

// Producer is the subset of the Kafka producer the publisher needs
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// RecommendationEvent is the wire shape on the recommendations topic
type RecommendationEvent struct {
	ID           string           `json:"id"`
	Symbol       string           `json:"symbol"`
	Direction    signal.Direction `json:"direction"`
	Amount       float64          `json:"amount"`
	Entry        float64          `json:"entry"`
	StopLoss     float64          `json:"sl"`
	TakeProfit   float64          `json:"tp"`
	RiskReward   *float64         `json:"rr"`
	LongPercent  float64          `json:"long_percent"`
	ShortPercent float64          `json:"short_percent"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// NewRecommendationEvent stamps rec with a fresh ID and time
func NewRecommendationEvent(rec *signal.Recommendation, now time.Time) RecommendationEvent {
	return RecommendationEvent{
		ID:           uuid.NewString(),
		Symbol:       rec.Symbol,
		Direction:    rec.FinalSignal,
		Amount:       rec.Amount,
		Entry:        rec.Entry,
		StopLoss:     rec.StopLoss,
		TakeProfit:   rec.TakeProfit,
		RiskReward:   rec.RiskReward,
		LongPercent:  rec.LongPercent,
		ShortPercent: rec.ShortPercent,
		GeneratedAt:  now.UTC(),
	}
}

var _ Producer = (*kafka.Producer)(nil)

// Publisher publishes recommendation events keyed by symbol
type Publisher struct {
	producer Producer
	topic    string
	log      *logger.Logger
	now      func() time.Time
}

// NewPublisher creates a publisher; an empty topic uses kafka.TopicRecommendations
func NewPublisher(producer Producer, topic string, log *logger.Logger) *Publisher {
	if topic == "" {
		topic = kafka.TopicRecommendations
	}
	if log == nil {
		log = logger.Get()
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		log:      log.With("component", "recommendation_publisher"),
		now:      time.Now,
	}
}

// PublishRecommendation sends one event for rec
func (p *Publisher) PublishRecommendation(ctx context.Context, rec *signal.Recommendation) error {
	if rec == nil {
		return errors.New("nil recommendation")
	}

	event := NewRecommendationEvent(rec, p.now())
	err := p.producer.Publish(ctx, p.topic, rec.Symbol, event)
	metrics.RecordPublish(p.topic, err)
	if err != nil {
		return errors.Wrap(err, "publish recommendation")
	}

	p.log.Debugw("Recommendation event published",
		"id", event.ID,
		"topic", p.topic,
		"symbol", rec.Symbol,
		"direction", event.Direction,
	)
	return nil
}
