package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names default to gincana_scoring_<name>.
const (
	DefaultNamespace = "gincana"
	DefaultSubsystem = "scoring"
)

// DefaultBuckets spans 1ms to 30s; every histogram here is in milliseconds.
var DefaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000} //nolint:gochecknoglobals // read-only default

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace replaces the gincana namespace, for example to run two
// drives side by side on one Prometheus.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem replaces the scoring subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the buckets of the pipeline, source load and
// HTTP latency histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithPrometheusRegistry registers the collectors on registry instead of
// the default registerer. /healthz serves whatever registry the global
// manager was built with.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
