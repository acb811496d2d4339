package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Analyze boundary metrics
	Recommendations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalengine_recommendations_total",
			Help: "Total number of recommendations produced",
		},
		[]string{"direction"}, // BUY|SELL|HOLD
	)

	AnalyzeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalengine_analyze_errors_total",
			Help: "Total number of analyze requests answered with an error object",
		},
		[]string{"kind"}, // invalid_input|invalid_snapshot|data_unavailable|internal
	)

	AnalyzeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalengine_analyze_duration_seconds",
			Help:    "Analyze request duration in seconds, provider calls included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"}, // success|error
	)

	// Market data provider metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalengine_provider_calls_total",
			Help: "Total number of market data provider calls",
		},
		[]string{"provider", "endpoint", "status"}, // status: success|error
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalengine_provider_latency_seconds",
			Help:    "Market data provider latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "endpoint"},
	)

	// Event metrics
	PublishedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalengine_published_events_total",
			Help: "Total recommendation events handed to Kafka",
		},
		[]string{"topic", "status"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with reg. Subsequent calls are no-ops.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			Recommendations,
			AnalyzeErrors,
			AnalyzeDuration,
			ProviderCalls,
			ProviderLatency,
			PublishedEvents,
		)
	})
}

// RecordRecommendation records a successful analyze request
func RecordRecommendation(direction string, duration time.Duration) {
	Recommendations.WithLabelValues(direction).Inc()
	AnalyzeDuration.WithLabelValues("success").Observe(duration.Seconds())
}

// RecordAnalyzeError records an analyze request that produced an error object
func RecordAnalyzeError(kind string, duration time.Duration) {
	AnalyzeErrors.WithLabelValues(kind).Inc()
	AnalyzeDuration.WithLabelValues("error").Observe(duration.Seconds())
}

// RecordProviderCall records one market data provider call, retries included
func RecordProviderCall(provider, endpoint string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ProviderCalls.WithLabelValues(provider, endpoint, status).Inc()
	ProviderLatency.WithLabelValues(provider, endpoint).Observe(latency.Seconds())
}

// RecordPublish records a Kafka publish attempt
func RecordPublish(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PublishedEvents.WithLabelValues(topic, status).Inc()
}
