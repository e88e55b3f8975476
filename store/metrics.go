package store

import (
	"sync/atomic"
	"time"

	"github.com/c360/memstore/errors"
	"github.com/c360/memstore/metric"
)

// Metrics is a point-in-time snapshot of one store's counters. StartedAt is
// the store's creation time, refreshed by Clear; LastAccess is zero until
// the first read.
type Metrics struct {
	StoreName  string    `json:"store_name"`
	Items      int       `json:"items"`
	StartedAt  time.Time `json:"started_at"`
	LastAccess time.Time `json:"last_access,omitempty"`

	Creates int64 `json:"creates"`
	Updates int64 `json:"updates"`
	Removes int64 `json:"removes"`
	Gets    int64 `json:"gets"`
	Queries int64 `json:"queries"`

	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`

	Expirations int64 `json:"expirations"`
	AgedOut     int64 `json:"aged_out"`

	EventsDispatched int64 `json:"events_dispatched"`
	EventsDropped    int64 `json:"events_dropped"`

	Errors int64 `json:"errors"`
}

// metricsRecorder accumulates per-store counters on atomics so hot paths
// never contend on a metrics lock. When a Prometheus registry is attached
// the same signals are mirrored into the shared label vectors.
type metricsRecorder struct {
	store   string
	enabled bool
	prom    *metric.Metrics

	creates atomic.Int64
	updates atomic.Int64
	removes atomic.Int64
	gets    atomic.Int64
	queries atomic.Int64

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	expirations atomic.Int64
	agedOut     atomic.Int64

	eventsDispatched atomic.Int64
	eventsDropped    atomic.Int64

	errors atomic.Int64

	startedAt  atomic.Int64 // unix nanos
	lastAccess atomic.Int64 // unix nanos, 0 until first read
}

func newMetricsRecorder(store string, enabled bool, prom *metric.Metrics) *metricsRecorder {
	r := &metricsRecorder{store: store, enabled: enabled, prom: prom}
	r.startedAt.Store(time.Now().UnixNano())
	return r
}

// reset zeroes the logical counters and refreshes the start timestamp. The
// Prometheus mirrors are left alone: exposition counters must stay
// monotonic.
func (r *metricsRecorder) reset() {
	r.creates.Store(0)
	r.updates.Store(0)
	r.removes.Store(0)
	r.gets.Store(0)
	r.queries.Store(0)
	r.cacheHits.Store(0)
	r.cacheMisses.Store(0)
	r.expirations.Store(0)
	r.agedOut.Store(0)
	r.eventsDispatched.Store(0)
	r.eventsDropped.Store(0)
	r.errors.Store(0)
	r.lastAccess.Store(0)
	r.startedAt.Store(time.Now().UnixNano())
}

func (r *metricsRecorder) operation(op string, counter *atomic.Int64) {
	if !r.enabled {
		return
	}
	counter.Add(1)
	if r.prom != nil {
		r.prom.OperationsTotal.WithLabelValues(r.store, op).Inc()
	}
}

func (r *metricsRecorder) create() { r.operation("create", &r.creates) }
func (r *metricsRecorder) update() { r.operation("update", &r.updates) }
func (r *metricsRecorder) remove() { r.operation("remove", &r.removes) }

func (r *metricsRecorder) get() {
	r.operation("get", &r.gets)
	r.touch()
}

func (r *metricsRecorder) query() {
	r.operation("query", &r.queries)
	r.touch()
}

func (r *metricsRecorder) touch() {
	if r.enabled {
		r.lastAccess.Store(time.Now().UnixNano())
	}
}

func (r *metricsRecorder) cacheHit() {
	if !r.enabled {
		return
	}
	r.cacheHits.Add(1)
}

func (r *metricsRecorder) cacheMiss() {
	if !r.enabled {
		return
	}
	r.cacheMisses.Add(1)
}

// swept records sweep removals. Swept items count as removes too, so a
// sweep is indistinguishable from individual deletes in the counters.
func (r *metricsRecorder) swept(reason string, count int) {
	if !r.enabled || count == 0 {
		return
	}
	r.removes.Add(int64(count))
	switch reason {
	case sweepReasonExpired:
		r.expirations.Add(int64(count))
	case sweepReasonAged:
		r.agedOut.Add(int64(count))
	}
	if r.prom != nil {
		r.prom.SweepRemovals.WithLabelValues(r.store, reason).Add(float64(count))
	}
}

func (r *metricsRecorder) sweepDuration(d time.Duration) {
	if r.enabled && r.prom != nil {
		r.prom.SweepDuration.Observe(d.Seconds())
	}
}

func (r *metricsRecorder) eventDispatched(event EventType, handlers int) {
	if !r.enabled {
		return
	}
	r.eventsDispatched.Add(int64(handlers))
	if r.prom != nil {
		r.prom.EventsDispatched.WithLabelValues(r.store, string(event)).Add(float64(handlers))
	}
}

func (r *metricsRecorder) eventDropped() {
	if !r.enabled {
		return
	}
	r.eventsDropped.Add(1)
	if r.prom != nil {
		r.prom.EventsDropped.WithLabelValues(r.store).Inc()
	}
}

func (r *metricsRecorder) failed(err error) {
	if !r.enabled || err == nil {
		return
	}
	r.errors.Add(1)
	if r.prom != nil {
		r.prom.ErrorsTotal.WithLabelValues(r.store, errors.Classify(err).String()).Inc()
	}
}

func (r *metricsRecorder) setItems(count int) {
	if r.enabled && r.prom != nil {
		r.prom.StoreItems.WithLabelValues(r.store).Set(float64(count))
	}
}

// snapshot materializes the counters into a Metrics value.
func (r *metricsRecorder) snapshot(items int) Metrics {
	var lastAccess time.Time
	if nanos := r.lastAccess.Load(); nanos > 0 {
		lastAccess = time.Unix(0, nanos)
	}

	return Metrics{
		StoreName:  r.store,
		Items:      items,
		StartedAt:  time.Unix(0, r.startedAt.Load()),
		LastAccess: lastAccess,

		Creates: r.creates.Load(),
		Updates: r.updates.Load(),
		Removes: r.removes.Load(),
		Gets:    r.gets.Load(),
		Queries: r.queries.Load(),

		CacheHits:   r.cacheHits.Load(),
		CacheMisses: r.cacheMisses.Load(),

		Expirations: r.expirations.Load(),
		AgedOut:     r.agedOut.Load(),

		EventsDispatched: r.eventsDispatched.Load(),
		EventsDropped:    r.eventsDropped.Load(),

		Errors: r.errors.Load(),
	}
}
