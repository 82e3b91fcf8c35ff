package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/navkit/pkg/kernel"
	"github.com/vango-dev/navkit/pkg/routeerr"
	"github.com/vango-dev/navkit/pkg/router"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "navkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
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

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "navkit",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records navigation metrics. It implements kernel.Middleware and
// may be shared by any number of kernels.
type Metrics struct {
	config    MetricsConfig
	cache     *cacheCollector
	cacheOnce sync.Once

	navTotal *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errTotal *prometheus.CounterVec
}

var _ kernel.Middleware = (*Metrics)(nil)

// NewMetrics creates and registers the metrics. Registering twice on the
// same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	m := &Metrics{
		config: config,

		navTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of resolved navigations by pattern and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"pattern", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation resolution duration in seconds, guards included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"pattern"}),

		errTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "routing_errors_total",
			Help:        "Total routing errors reported by kernels, by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
	return m
}

// Prometheus returns navigation middleware backed by new Metrics.
func Prometheus(opts ...MetricsOption) kernel.Middleware {
	return NewMetrics(opts...)
}

// Handle implements kernel.Middleware.
func (m *Metrics) Handle(ctx context.Context, nav *kernel.Navigation, next func(context.Context) error) error {
	pattern := nav.To.Path
	start := time.Now()

	err := next(ctx)

	m.duration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	m.navTotal.WithLabelValues(pattern, Outcome(err)).Inc()
	return err
}

// ObserveError counts a routing error. Register it with OnError or
// WithErrorListener to include errors raised outside the middleware
// chain, such as RouteNotFound.
func (m *Metrics) ObserveError(err error) {
	code := "unknown"
	var re *routeerr.Error
	if errors.As(err, &re) && re.Code != "" {
		code = re.Code
	}
	m.errTotal.WithLabelValues(code).Inc()
}

// RegisterCacheStats adds a match cache to the cache counters. The
// collector is registered on first use; the counters report the sum over
// every source.
func (m *Metrics) RegisterCacheStats(stats func() router.CacheStats) (unregister func()) {
	m.cacheOnce.Do(func() {
		m.cache = newCacheCollector(m.config)
		m.config.Registry.MustRegister(m.cache)
	})
	return m.cache.add(stats)
}
