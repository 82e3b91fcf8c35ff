package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/navkit/pkg/router"
)

// cacheCollector exports the summed counters of a dynamic set of match
// caches.
type cacheCollector struct {
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc

	mu      sync.Mutex
	nextID  uint64
	sources map[uint64]func() router.CacheStats
	retired router.CacheStats
}

func newCacheCollector(config MetricsConfig) *cacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(config.Namespace, config.Subsystem, name),
			help, nil, config.ConstLabels,
		)
	}
	return &cacheCollector{
		hits:      desc("match_cache_hits_total", "Total match cache hits"),
		misses:    desc("match_cache_misses_total", "Total match cache misses"),
		evictions: desc("match_cache_evictions_total", "Total match cache evictions"),
		sources:   make(map[uint64]func() router.CacheStats),
	}
}

// add registers a source. Removing it folds its final counts into the
// retired totals so the exported counters never decrease.
func (c *cacheCollector) add(stats func() router.CacheStats) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.sources[id] = stats
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			s := stats()
			c.retired.Hits += s.Hits
			c.retired.Misses += s.Misses
			c.retired.Evictions += s.Evictions
			delete(c.sources, id)
		})
	}
}

func (c *cacheCollector) total() router.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := c.retired
	for _, stats := range c.sources {
		s := stats()
		sum.Hits += s.Hits
		sum.Misses += s.Misses
		sum.Evictions += s.Evictions
	}
	return sum
}

// Describe implements prometheus.Collector.
func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
}

// Collect implements prometheus.Collector.
func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.total()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
}
