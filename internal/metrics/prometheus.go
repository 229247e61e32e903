package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice relay service
type Metrics struct {
	// WebSocket transport metrics
	ChunksReceived prometheus.Counter
	ChunkBytes     prometheus.Counter
	ControlEvents  prometheus.Counter
	ProtocolErrors prometheus.Counter

	// Session metrics
	ActiveSessions    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter
	SessionDuration   prometheus.Histogram

	// Turn metrics
	TurnsStarted   prometheus.Counter
	TurnsSucceeded prometheus.Counter
	TurnsFailed    *prometheus.CounterVec
	TurnsRejected  prometheus.Counter
	TurnDuration   prometheus.Histogram
	UtteranceBytes prometheus.Histogram
	ResponseBytes  prometheus.Histogram

	// Pipeline stage metrics
	StageDuration *prometheus.HistogramVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registerer
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics on the given registerer. Tests use a
// private registry to avoid duplicate registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_chunks_received_total",
			Help: "Total number of inbound audio chunks received",
		}),
		ChunkBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_chunk_bytes_total",
			Help: "Total bytes of inbound audio received",
		}),
		ControlEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_control_events_total",
			Help: "Total number of inbound control events",
		}),
		ProtocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_protocol_errors_total",
			Help: "Total number of malformed inbound events",
		}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_sessions",
			Help: "Current number of connected client sessions",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_sessions_destroyed_total",
			Help: "Total number of sessions destroyed",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_session_duration_seconds",
			Help:    "Duration of client sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),

		TurnsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_turns_started_total",
			Help: "Total number of turn pipelines started",
		}),
		TurnsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_turns_succeeded_total",
			Help: "Total number of turns that emitted an audio response",
		}),
		TurnsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_turns_failed_total",
			Help: "Total number of turns that emitted an error event",
		}, []string{"stage"}),
		TurnsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_turns_rejected_total",
			Help: "Total number of stream-end events rejected while a turn was in flight",
		}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_turn_duration_seconds",
			Help:    "End-to-end duration of turn pipelines",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		UtteranceBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_utterance_bytes",
			Help:    "Size of accumulated utterances in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		ResponseBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_response_bytes",
			Help:    "Size of synthesized audio responses in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12),
		}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~1 minute
		}, []string{"stage"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total number of HTTP API requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_http_errors_total",
			Help: "Total number of HTTP API errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordChunk records an inbound audio chunk
func (m *Metrics) RecordChunk(sizeBytes int) {
	m.ChunksReceived.Inc()
	m.ChunkBytes.Add(float64(sizeBytes))
}

// RecordControlEvent increments the control events counter
func (m *Metrics) RecordControlEvent() {
	m.ControlEvents.Inc()
}

// RecordProtocolError increments the protocol errors counter
func (m *Metrics) RecordProtocolError() {
	m.ProtocolErrors.Inc()
}

// SetActiveSessions sets the current number of connected sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionDestroyed increments the sessions destroyed counter and records duration
func (m *Metrics) RecordSessionDestroyed(durationSeconds float64) {
	m.SessionsDestroyed.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordTurnStarted records a turn pipeline start and the utterance size
func (m *Metrics) RecordTurnStarted(utteranceBytes int) {
	m.TurnsStarted.Inc()
	m.UtteranceBytes.Observe(float64(utteranceBytes))
}

// RecordTurnSucceeded records a completed turn and its response size
func (m *Metrics) RecordTurnSucceeded(durationSeconds float64, responseBytes int) {
	m.TurnsSucceeded.Inc()
	m.TurnDuration.Observe(durationSeconds)
	m.ResponseBytes.Observe(float64(responseBytes))
}

// RecordTurnFailed records a failed turn labeled by the failing stage
func (m *Metrics) RecordTurnFailed(stage string, durationSeconds float64) {
	m.TurnsFailed.WithLabelValues(stage).Inc()
	m.TurnDuration.Observe(durationSeconds)
}

// RecordTurnRejected increments the busy-rejection counter
func (m *Metrics) RecordTurnRejected() {
	m.TurnsRejected.Inc()
}

// RecordStageDuration records the duration of one pipeline stage
func (m *Metrics) RecordStageDuration(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP API request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP API error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
