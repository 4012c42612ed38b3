package metrics

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ExporterType defines the type of metrics exporter
type ExporterType string

const (
	// StandardExporter keeps counters in process only
	StandardExporter ExporterType = "standard"
	// PrometheusExporterType also publishes Prometheus metrics
	PrometheusExporterType ExporterType = "prometheus"
)

// Exporter receives store events as counters
type Exporter interface {
	RecordHit()
	RecordMiss()
	RecordSet()
	RecordRemoval()
	RecordEviction()
	RecordExpiration()
	RecordCleanup()
	UpdateSize(size int64)
	// GetSnapshot returns a thread-safe copy of current metrics
	GetSnapshot() Snapshot
	// Reset resets the in-process counters
	Reset()
}

// PrometheusExporter implements Exporter using Prometheus metrics. The
// in-process counters are kept alongside for snapshots.
type PrometheusExporter struct {
	*StoreMetrics

	lookups    *prometheus.CounterVec
	writes     prometheus.Counter
	removals   *prometheus.CounterVec
	size       prometheus.Gauge
	collectors []prometheus.Collector

	labels prometheus.Labels
}

// NewPrometheusExporter creates an exporter and registers its collectors
// with reg. A nil reg means prometheus.DefaultRegisterer.
func NewPrometheusExporter(storeName string, labels map[string]string, reg prometheus.Registerer) (*PrometheusExporter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if storeName == "" {
		storeName = "kvstore-" + uuid.NewString()[:8]
	}

	constLabels := prometheus.Labels{"store": storeName}
	for k, v := range labels {
		constLabels[k] = v
	}
	if _, exists := constLabels["service"]; !exists {
		constLabels["service"] = "kvstore"
	}

	e := &PrometheusExporter{
		StoreMetrics: NewStoreMetrics(),
		labels:       constLabels,
	}

	e.lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "kvstore_lookups_total",
			Help:        "Total number of key lookups by result",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)

	e.writes = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "kvstore_writes_total",
		Help:        "Total number of entries written",
		ConstLabels: constLabels,
	})

	e.removals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "kvstore_removals_total",
			Help:        "Total number of entries removed by reason",
			ConstLabels: constLabels,
		},
		[]string{"reason"},
	)

	e.size = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "kvstore_entries",
		Help:        "Current number of stored entries, including unreaped expired ones",
		ConstLabels: constLabels,
	})

	e.collectors = []prometheus.Collector{e.lookups, e.writes, e.removals, e.size}
	for i, c := range e.collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range e.collectors[:i] {
				reg.Unregister(done)
			}
			return nil, err
		}
	}

	return e, nil
}

// Collectors returns the registered Prometheus collectors
func (e *PrometheusExporter) Collectors() []prometheus.Collector {
	return e.collectors
}

// Labels returns the constant labels attached to every metric
func (e *PrometheusExporter) Labels() prometheus.Labels {
	return e.labels
}

// RecordHit implements Exporter
func (e *PrometheusExporter) RecordHit() {
	e.lookups.WithLabelValues("hit").Inc()
	e.StoreMetrics.RecordHit()
}

// RecordMiss implements Exporter
func (e *PrometheusExporter) RecordMiss() {
	e.lookups.WithLabelValues("miss").Inc()
	e.StoreMetrics.RecordMiss()
}

// RecordSet implements Exporter
func (e *PrometheusExporter) RecordSet() {
	e.writes.Inc()
	e.StoreMetrics.RecordSet()
}

// RecordRemoval implements Exporter
func (e *PrometheusExporter) RecordRemoval() {
	e.removals.WithLabelValues("removed").Inc()
	e.StoreMetrics.RecordRemoval()
}

// RecordEviction implements Exporter
func (e *PrometheusExporter) RecordEviction() {
	e.removals.WithLabelValues("evicted").Inc()
	e.StoreMetrics.RecordEviction()
}

// RecordExpiration implements Exporter
func (e *PrometheusExporter) RecordExpiration() {
	e.removals.WithLabelValues("expired").Inc()
	e.StoreMetrics.RecordExpiration()
}

// UpdateSize implements Exporter
func (e *PrometheusExporter) UpdateSize(size int64) {
	e.size.Set(float64(size))
	e.StoreMetrics.UpdateSize(size)
}

// Reset resets the in-process counters.
// Prometheus counters are cumulative and are left alone.
func (e *PrometheusExporter) Reset() {
	e.StoreMetrics.Reset()
}

// NewExporter creates an exporter of the given type
func NewExporter(exporterType ExporterType, storeName string, labels map[string]string, reg prometheus.Registerer) (Exporter, error) {
	switch exporterType {
	case PrometheusExporterType:
		return NewPrometheusExporter(storeName, labels, reg)
	default:
		return NewStoreMetrics(), nil
	}
}
