// Package observability provides Prometheus metrics for the relationship
// service and the real-time notification hub.
//
// All metric operations are safe for concurrent use, and every method
// tolerates a nil receiver so instrumentation stays optional.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace    = "socialgraph"
	relationSubsystem   = "relation"
	notifySubsystem     = "notify"
	connectionSubsystem = "ws"
)

// Notification outcomes.
const (
	NotifyDelivered = "delivered"
	NotifyOffline   = "offline"
	NotifyFailed    = "failed"
)

// RelationMetrics holds the counters and histograms of the relationship service.
type RelationMetrics struct {
	// OperationsTotal counts service operations.
	// Labels: operation (follow, request, ...), outcome (ok or an error code)
	OperationsTotal *prometheus.CounterVec

	// OperationDurationSeconds measures operation latency including storage.
	// Labels: operation
	OperationDurationSeconds *prometheus.HistogramVec

	// NotificationsTotal counts real-time pushes.
	// Labels: event_type, outcome (delivered, offline, failed)
	NotificationsTotal *prometheus.CounterVec

	// ActiveConnections is the number of open websocket sessions.
	ActiveConnections prometheus.Gauge
}

// NewRelationMetrics creates the metrics and registers them on reg.
// Registering twice on the same registry panics.
func NewRelationMetrics(reg prometheus.Registerer) *RelationMetrics {
	factory := promauto.With(reg)
	return &RelationMetrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: relationSubsystem,
				Name:      "operations_total",
				Help:      "Total relationship operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: relationSubsystem,
				Name:      "operation_duration_seconds",
				Help:      "Relationship operation latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: notifySubsystem,
				Name:      "pushes_total",
				Help:      "Total real-time notification pushes by event type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		ActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: connectionSubsystem,
				Name:      "active_connections",
				Help:      "Number of open websocket sessions",
			},
		),
	}
}

// ObserveOperation records one finished operation.
func (m *RelationMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDurationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveNotification records one push attempt.
func (m *RelationMetrics) ObserveNotification(eventType, outcome string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(eventType, outcome).Inc()
}

// ConnectionOpened increments the active websocket gauge.
func (m *RelationMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

// ConnectionClosed decrements the active websocket gauge.
func (m *RelationMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}
