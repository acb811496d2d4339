package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signalengine/pkg/logger"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(ProducerConfig{}, logger.New(zap.NewNop()))
	assert.Error(t, err)
}

func TestGetWriterReusesTopicWriter(t *testing.T) {
	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}}, logger.New(zap.NewNop()))
	require.NoError(t, err)

	w := p.getWriter(TopicRecommendations)
	assert.Same(t, w, p.getWriter(TopicRecommendations))
	assert.Equal(t, TopicRecommendations, w.Topic)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}
