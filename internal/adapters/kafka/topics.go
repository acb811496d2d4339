package kafka

// Topic definitions for Kafka event streaming
const (
	// Signal events
	TopicRecommendations = "signals.recommendations"
)
