// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Gateway Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Current number of registered WebSocket connections",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_received_total",
			Help: "Inbound WebSocket messages by envelope type",
		},
		[]string{"type"},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Outbound WebSocket frames by frame type",
		},
		[]string{"frame"},
	)

	WSSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_send_failures_total",
			Help: "Frames that could not be queued for a connection",
		},
		[]string{"reason"}, // unknown_connection, closed, buffer_full
	)

	WSInboundRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_inbound_rate_limited_total",
			Help: "Inbound frames dropped by the per-connection limiter",
		},
	)

	// Router Metrics
	RouterMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_messages_total",
			Help: "Messages handled by the notification router",
		},
		[]string{"type", "outcome"}, // outcome: ok, error, dropped, replayed
	)

	RouterErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_errors_total",
			Help: "Router failures by error code",
		},
		[]string{"code"},
	)

	RouterHandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_handler_duration_seconds",
			Help:    "Time spent handling one inbound message",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		},
		[]string{"type"},
	)

	RouterLivePush = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_live_push_total",
			Help: "Live notification push attempts by result",
		},
		[]string{"result"}, // delivered, unreachable, send_failed, relayed
	)

	NotificationsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_persisted_total",
			Help: "Notification records written by kind",
		},
		[]string{"kind"},
	)

	// Idempotency Metrics
	IdempotencyOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_operations_total",
			Help: "Replay tracker lookups and stores",
		},
		[]string{"operation", "outcome"}, // lookup hit/miss/error, store ok/error
	)

	// Relay Metrics
	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Cross-node push messages",
		},
		[]string{"direction", "outcome"}, // publish/consume x ok/error/skipped
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordInbound counts an inbound frame. Unknown or empty types are folded
// into a fixed label so clients cannot blow up label cardinality.
func RecordInbound(msgType string, known bool) {
	if !known {
		msgType = "unknown"
	}
	WSMessagesReceived.WithLabelValues(msgType).Inc()
}

// RecordFrameSent counts an outbound frame.
func RecordFrameSent(frame string) {
	WSMessagesSent.WithLabelValues(frame).Inc()
}

// RecordSendFailure counts a frame that was not queued.
func RecordSendFailure(reason string) {
	WSSendFailures.WithLabelValues(reason).Inc()
}

// RecordRouted records the outcome and latency of one handled message.
func RecordRouted(msgType, outcome string, duration time.Duration) {
	RouterMessages.WithLabelValues(msgType, outcome).Inc()
	RouterHandlerDuration.WithLabelValues(msgType).Observe(duration.Seconds())
}

// RecordRouterError counts a failure by its reply code.
func RecordRouterError(code string) {
	RouterErrors.WithLabelValues(strings.ToLower(code)).Inc()
}

// RecordLivePush counts a live push attempt.
func RecordLivePush(result string) {
	RouterLivePush.WithLabelValues(result).Inc()
}

// RecordNotificationPersisted counts a stored notification.
func RecordNotificationPersisted(kind string) {
	NotificationsPersisted.WithLabelValues(kind).Inc()
}

// RecordIdempotency counts a replay tracker operation.
func RecordIdempotency(operation, outcome string) {
	IdempotencyOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordRelay counts a relay publish or consume.
func RecordRelay(direction, outcome string) {
	RelayMessages.WithLabelValues(direction, outcome).Inc()
}
