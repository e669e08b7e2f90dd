// Package metrics holds the Prometheus collectors of history recording and
// the history query surface.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "candh"

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	// RecordsTotal counts stored history masters.
	// Labels: entity_type, operation (INSERT, UPDATE, DELETE)
	RecordsTotal *prometheus.CounterVec

	// ChangeStatusTotal counts change detection outcomes of updates.
	// Labels: entity_type, status (NONE, MINOR, MAJOR)
	ChangeStatusTotal *prometheus.CounterVec

	// SuppressedTotal counts no-op updates that were not stored.
	SuppressedTotal *prometheus.CounterVec

	// AttributesPerRecord observes the attribute count of stored masters.
	AttributesPerRecord *prometheus.HistogramVec

	// QueriesTotal counts history queries by route and response code.
	QueriesTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "records_total",
			Help:      "Stored history records by entity type and operation",
		}, []string{"entity_type", "operation"}),
		ChangeStatusTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "change_status_total",
			Help:      "Change detection outcomes of updates by entity type and status",
		}, []string{"entity_type", "status"}),
		SuppressedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "suppressed_noop_updates_total",
			Help:      "Updates without changes that were not stored",
		}, []string{"entity_type"}),
		AttributesPerRecord: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "attributes_per_record",
			Help:      "Number of attributes of stored history records",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}, []string{"entity_type"}),
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "history_queries_total",
			Help:      "History queries by route and response code",
		}, []string{"route", "code"}),
	}
}

// ObserveRecord counts a stored master.
func (m *Metrics) ObserveRecord(entityType, operation string, attributes int) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(entityType, operation).Inc()
	m.AttributesPerRecord.WithLabelValues(entityType).Observe(float64(attributes))
}

// ObserveStatus counts the outcome of an update walk.
func (m *Metrics) ObserveStatus(entityType, status string) {
	if m == nil {
		return
	}
	m.ChangeStatusTotal.WithLabelValues(entityType, status).Inc()
}

// ObserveSuppressed counts a no-op update that was skipped.
func (m *Metrics) ObserveSuppressed(entityType string) {
	if m == nil {
		return
	}
	m.SuppressedTotal.WithLabelValues(entityType).Inc()
}

// ObserveQuery counts a served history query.
func (m *Metrics) ObserveQuery(route string, code int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves gatherer in the Prometheus exposition format. A nil
// gatherer serves the default registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
