// Package metrics collects generation run metrics in a private Prometheus
// registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "toolsetgen"

// Collector implements generator.Recorder.
type Collector struct {
	registry *prometheus.Registry

	unitsTotal     *prometheus.CounterVec
	operations     *prometheus.CounterVec
	warnings       *prometheus.CounterVec
	unitDuration   *prometheus.HistogramVec
	cacheRequests  *prometheus.CounterVec
	lastRunUnixSec prometheus.Gauge
}

// NewCollector returns a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	c := &Collector{registry: reg}

	c.unitsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "units_total",
			Help:      "Generation units by provider and status",
		},
		[]string{"provider", "status"},
	)

	c.operations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Operations generated as tools",
		},
		[]string{"provider"},
	)

	c.warnings = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "warnings_total",
			Help:      "Warnings recorded while normalizing specs",
		},
		[]string{"provider"},
	)

	c.unitDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "unit_duration_seconds",
			Help:      "Time spent generating one unit",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	c.cacheRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "spec_cache_requests_total",
			Help:      "Spec cache requests by result",
		},
		[]string{"result"},
	)

	c.lastRunUnixSec = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})

	return c
}

// ObserveUnit records one finished unit.
func (c *Collector) ObserveUnit(provider, _ string, status string, operations, warnings int, d time.Duration) {
	c.unitsTotal.WithLabelValues(provider, status).Inc()
	c.operations.WithLabelValues(provider).Add(float64(operations))
	c.warnings.WithLabelValues(provider).Add(float64(warnings))
	c.unitDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveCache records the spec cache counters of one run.
func (c *Collector) ObserveCache(hits, misses int64) {
	c.cacheRequests.WithLabelValues("hit").Add(float64(hits))
	c.cacheRequests.WithLabelValues("miss").Add(float64(misses))
	c.lastRunUnixSec.SetToCurrentTime()
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
