// Package metrics exports sheet activity to Prometheus.
//
// Metrics implements cellcore.Observer, so it is installed with
// cellcore.WithObserver and counts evaluations and renders as they happen.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vogtb/cellcore"
)

const (
	metricsNamespace = "cellcore"
	sheetSubsystem   = "sheet"
)

// Metrics holds the sheet collectors and the registry they live in
type Metrics struct {
	registry *prometheus.Registry

	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	RendersTotal       prometheus.Counter
	Cells              prometheus.Gauge
}

var _ cellcore.Observer = (*Metrics)(nil)

// New registers the collectors on a fresh registry. every sheet gets its own
// registry so tests and multiple servers do not collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: sheetSubsystem,
			Name:      "evaluations_total",
			Help:      "Formula evaluations by result kind",
		}, []string{"kind"}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: sheetSubsystem,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating a single formula, nested references included",
			Buckets:   []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		RendersTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: sheetSubsystem,
			Name:      "renders_total",
			Help:      "Render callbacks issued",
		}),
		Cells: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: sheetSubsystem,
			Name:      "cells",
			Help:      "Cells currently held in the store",
		}),
	}
}

func (m *Metrics) CellEvaluated(_ cellcore.Position, result cellcore.Value, elapsed time.Duration) {
	m.EvaluationsTotal.WithLabelValues(result.Kind().String()).Inc()
	m.EvaluationDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CellRendered(cellcore.Position) {
	m.RendersTotal.Inc()
}

func (m *Metrics) CellsChanged(count int) {
	m.Cells.Set(float64(count))
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
