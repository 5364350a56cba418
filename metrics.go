package vdiff

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vdiff").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for patch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// Metrics counts what Diff, Patch and Merge do. A nil *Metrics records
// nothing, so callers can pass it around unconditionally.
type Metrics struct {
	opsEmitted    *prometheus.CounterVec
	opsApplied    *prometheus.CounterVec
	patchErrors   prometheus.Counter
	patchDuration prometheus.Histogram
	conflicts     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "vdiff",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(reg)

	return &Metrics{
		opsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "ops_emitted_total",
			Help:        "Patch operations produced by Diff, by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		opsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "ops_applied_total",
			Help:        "Patch operations applied by Patch, by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		patchErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "patch_errors_total",
			Help:        "Patch calls rejected before applying anything",
			ConstLabels: config.ConstLabels,
		}),

		patchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "patch_duration_seconds",
			Help:        "Time spent applying a patch set",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "merge_conflicts_total",
			Help:        "Conflicts detected while merging patch sets",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) observeDiff(p Patches) {
	if m == nil {
		return
	}
	countOps(m.opsEmitted, p)
}

func (m *Metrics) observePatch(p Patches, d time.Duration) {
	if m == nil {
		return
	}
	countOps(m.opsApplied, p)
	m.patchDuration.Observe(d.Seconds())
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.patchErrors.Inc()
}

func (m *Metrics) observeConflicts(n int) {
	if m == nil {
		return
	}
	m.conflicts.Add(float64(n))
}

func countOps(c *prometheus.CounterVec, p Patches) {
	for _, ops := range p {
		for _, op := range ops {
			c.WithLabelValues(string(op.Type)).Inc()
		}
	}
}
