package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

// MetricsAdapter records run statistics.
type MetricsAdapter interface {
	// RecordMutant counts one executed mutant.
	RecordMutant(turtle string, status m.TestStatus, duration time.Duration)
	// RecordMethod counts one method/turtle combination and whether it passed.
	RecordMethod(turtle string, passed bool)
	// RecordScore sets the mutation score of the run.
	RecordScore(score float64)
	// Flush writes the collected metrics to path in the text exposition format.
	Flush(path m.Path) error
}

// PrometheusMetrics holds the metrics of one run on a private registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	MutantsTotal   *prometheus.CounterVec
	MutantDuration *prometheus.HistogramVec
	MethodsTotal   *prometheus.CounterVec
	MutationScore  prometheus.Gauge
}

// NewPrometheusMetrics creates a new metrics instance.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,

		MutantsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ninjaturtles_mutants_total",
				Help: "Total number of mutants executed",
			},
			[]string{"turtle", "status"},
		),

		MutantDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ninjaturtles_mutant_duration_seconds",
				Help:    "Time spent materializing and testing one mutant",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"turtle"},
		),

		MethodsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ninjaturtles_method_turtles_total",
				Help: "Total number of method and turtle combinations tested",
			},
			[]string{"turtle", "result"},
		),

		MutationScore: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ninjaturtles_mutation_score_percent",
				Help: "Share of scored mutants that were detected",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

// RecordMutant implements MetricsAdapter.
func (p *PrometheusMetrics) RecordMutant(turtle string, status m.TestStatus, duration time.Duration) {
	p.MutantsTotal.WithLabelValues(turtle, status.String()).Inc()
	p.MutantDuration.WithLabelValues(turtle).Observe(duration.Seconds())
}

// RecordMethod implements MetricsAdapter.
func (p *PrometheusMetrics) RecordMethod(turtle string, passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}

	p.MethodsTotal.WithLabelValues(turtle, result).Inc()
}

// RecordScore implements MetricsAdapter.
func (p *PrometheusMetrics) RecordScore(score float64) {
	p.MutationScore.Set(score)
}

// Flush implements MetricsAdapter.
func (p *PrometheusMetrics) Flush(path m.Path) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	if err := prometheus.WriteToTextfile(string(path), p.registry); err != nil {
		return fmt.Errorf("failed to write metrics %s: %w", path, err)
	}

	return nil
}
