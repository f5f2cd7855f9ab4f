// Package metrics provides Prometheus metrics for take-off runs
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/takeoff/internal/model"
)

// Metrics holds the collectors of one process on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ElementsTotal    prometheus.Counter
	Resolutions      *prometheus.CounterVec
	GeometryFailures prometheus.Counter
	GeometryDuration prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	ModelsTotal      *prometheus.CounterVec
	BOQItems         prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ElementsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "takeoff_elements_extracted_total",
			Help: "Total number of elements passed through extraction",
		}),

		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "takeoff_field_resolutions_total",
				Help: "Quantity field resolutions by field and tier",
			},
			[]string{"field", "tier"},
		),

		GeometryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "takeoff_geometry_failures_total",
			Help: "Elements whose geometry could not be computed",
		}),

		GeometryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "takeoff_geometry_duration_seconds",
			Help:    "Time spent in the geometric kernel per element",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "takeoff_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		ModelsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "takeoff_models_total",
				Help: "Processed models by outcome",
			},
			[]string{"status"},
		),

		BOQItems: factory.NewGauge(prometheus.GaugeOpts{
			Name: "takeoff_boq_items",
			Help: "Number of BOQ items in the last generated report",
		}),
	}
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordElement records one extracted element
func (m *Metrics) RecordElement() {
	if m == nil {
		return
	}
	m.ElementsTotal.Inc()
}

// RecordResolution records which tier resolved a field
func (m *Metrics) RecordResolution(field model.Field, tier model.Tier) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(string(field), tier.String()).Inc()
}

// RecordGeometry records one kernel call
func (m *Metrics) RecordGeometry(duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.GeometryDuration.Observe(duration.Seconds())
	if failed {
		m.GeometryFailures.Inc()
	}
}

// RecordStage records the duration of a pipeline stage
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordModel records the outcome of one model run (ok, empty, failed)
func (m *Metrics) RecordModel(status string) {
	if m == nil {
		return
	}
	m.ModelsTotal.WithLabelValues(status).Inc()
}

// SetItems records the size of the generated BOQ
func (m *Metrics) SetItems(n int) {
	if m == nil {
		return
	}
	m.BOQItems.Set(float64(n))
}

// WriteTextfile writes all metrics in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
