package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics for the store module
// (not specific to any one store instance).
type Metrics struct {
	// Store lifecycle metrics
	StoresActive prometheus.Gauge
	StoreItems   *prometheus.GaugeVec

	// Operation metrics
	OperationsTotal *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec

	// Cache metrics
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec

	// Sweeper metrics
	SweepDuration    prometheus.Histogram
	SweepRemovals    *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
	EventsDispatched *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		StoresActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "memstore",
				Subsystem: "registry",
				Name:      "stores_active",
				Help:      "Number of live stores in the registry",
			},
		),

		StoreItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "memstore",
				Subsystem: "store",
				Name:      "items",
				Help:      "Current number of items held by each store",
			},
			[]string{"store"},
		),

		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memstore",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total store operations by type",
			},
			[]string{"store", "op"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memstore",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Total failed store operations by error class",
			},
			[]string{"store", "class"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memstore",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total cache hits",
			},
			[]string{"component"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memstore",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total cache misses",
			},
			[]string{"component"},
		),

		CacheEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memstore",
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total LRU cache evictions",
			},
			[]string{"component"},
		),

		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "memstore",
				Subsystem: "sweeper",
				Name:      "duration_seconds",
				Help:      "Expiry sweep duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		SweepRemovals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memstore",
				Subsystem: "sweeper",
				Name:      "removals_total",
				Help:      "Total items removed by expiry sweeps",
			},
			[]string{"store", "reason"},
		),

		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memstore",
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Total events dropped by overflowing dispatch buffers",
			},
			[]string{"store"},
		),

		EventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memstore",
				Subsystem: "events",
				Name:      "dispatched_total",
				Help:      "Total events delivered to subscribers",
			},
			[]string{"store", "event"},
		),
	}
}
