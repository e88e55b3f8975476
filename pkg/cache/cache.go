// Package cache provides a generic, thread-safe LRU cache used by stores as
// a served-value accelerator in front of the primary map.
//
// The cache is bounded by entry count with strict least-recently-used
// eviction. Statistics are always collected; Prometheus export is optional
// via functional options. A configurable copier keeps cached snapshots from
// aliasing values owned by the caller, so a mutation of a returned value can
// never corrupt the cache contents.
package cache

import (
	"github.com/c360/memstore/errors"
	"github.com/c360/memstore/metric"
)

// Cache represents a bounded cache keyed by string, parameterized by value
// type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key and marks it as recently used.
	// Returns the value and true if found, zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key and marks it as recently used.
	// Returns true if a new entry was created, false if an existing entry
	// was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns all keys, most recently used first.
	Keys() []string

	// Stats returns cache statistics. Never nil.
	Stats() *Statistics
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// Copier produces an independent copy of a value. When configured, the
// cache copies on Set and on Get so neither side shares memory with the
// stored entry.
type Copier[V any] func(V) V

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

type cacheOptions[V any] struct {
	// metricsReg is optional; when provided, hit/miss counts are mirrored
	// into the module's Prometheus registry under the component label.
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string

	evictCallback EvictCallback[V]
	copier        Copier[V]
}

// WithMetrics mirrors cache statistics into Prometheus under the given
// component label. Ignored if registry is nil or prefix is empty.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback invoked with the key and value of
// every evicted entry. The callback runs outside the cache lock.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// WithCopier sets the snapshot copier applied on Set and Get.
func WithCopier[V any](copier Copier[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.copier = copier
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
