package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/memstore/metric"
)

// cacheMetrics mirrors cache statistics into the module's Prometheus
// registry under a component label. Logical statistics in Statistics are
// always collected regardless of whether this mirror is active.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) *cacheMetrics {
	core := registry.CoreMetrics()
	return &cacheMetrics{
		hits:      core.CacheHits.WithLabelValues(prefix),
		misses:    core.CacheMisses.WithLabelValues(prefix),
		evictions: core.CacheEvictions.WithLabelValues(prefix),
	}
}

func (m *cacheMetrics) recordHit() {
	m.hits.Inc()
}

func (m *cacheMetrics) recordMiss() {
	m.misses.Inc()
}

func (m *cacheMetrics) recordEviction() {
	m.evictions.Inc()
}
