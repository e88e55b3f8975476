package store

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/c360/memstore/errors"
	"github.com/c360/memstore/metric"
	"github.com/c360/memstore/pkg/ids"
)

// Registry manages named stores: one live Store per name, created lazily and
// shared by every caller asking for that name. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*Store

	logger  *slog.Logger
	metrics *metric.MetricsRegistry
	idgen   ids.Generator
}

// RegistryOption configures a Registry at construction.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger inherited by created stores.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistryMetrics attaches a Prometheus registry; stores created through
// this Registry mirror their counters into it.
func WithRegistryMetrics(reg *metric.MetricsRegistry) RegistryOption {
	return func(r *Registry) {
		r.metrics = reg
	}
}

// WithRegistryIDGenerator overrides the identifier generator inherited by
// created stores.
func WithRegistryIDGenerator(gen ids.Generator) RegistryOption {
	return func(r *Registry) {
		if gen != nil {
			r.idgen = gen
		}
	}
}

// NewRegistry creates an empty store registry.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		stores: make(map[string]*Store),
		logger: slog.Default(),
		idgen:  ids.NewUUIDGenerator(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// GetOrCreate returns the store registered under name, creating it with the
// given config on first request. The config only takes effect at creation;
// later calls for the same name return the existing store unchanged.
func (r *Registry) GetOrCreate(name string, cfg Config) (*Store, error) {
	r.mu.RLock()
	if s, exists := r.stores[name]; exists {
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check: another goroutine may have created it between locks.
	if s, exists := r.stores[name]; exists {
		return s, nil
	}

	opts := []Option{
		WithLogger(r.logger),
		WithIDGenerator(r.idgen),
		withCloseHook(r.onStoreClosed),
	}
	if r.metrics != nil {
		opts = append(opts, WithMetricsRegistry(r.metrics))
	}

	s, err := New(name, cfg, opts...)
	if err != nil {
		return nil, err
	}

	r.stores[name] = s
	if r.metrics != nil {
		r.metrics.CoreMetrics().StoresActive.Inc()
	}
	return s, nil
}

// Get returns a registered store without creating it.
func (r *Registry) Get(name string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, exists := r.stores[name]
	return s, exists
}

// Create registers a new store, failing with ErrStoreExists when the name is
// taken. Use GetOrCreate for share-on-demand semantics.
func (r *Registry) Create(name string, cfg Config) (*Store, error) {
	r.mu.RLock()
	_, exists := r.stores[name]
	r.mu.RUnlock()
	if exists {
		return nil, errors.WrapInvalid(errors.ErrStoreExists, "Registry", "Create", "store "+name)
	}
	return r.GetOrCreate(name, cfg)
}

// Destroy tears down a store: stops its sweeper, drains pending events,
// releases its items, and removes it from the registry. Returns false if no
// store is registered under the name.
func (r *Registry) Destroy(name string) bool {
	r.mu.Lock()
	s, exists := r.stores[name]
	if exists {
		delete(r.stores, name)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}

	s.destroy()
	if r.metrics != nil {
		r.metrics.CoreMetrics().StoresActive.Dec()
		r.metrics.RemoveStore(name)
	}
	return true
}

// DestroyAll tears down every registered store.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*Store)
	r.mu.Unlock()

	for name, s := range stores {
		s.destroy()
		if r.metrics != nil {
			r.metrics.CoreMetrics().StoresActive.Dec()
			r.metrics.RemoveStore(name)
		}
	}
}

// ListStores returns the registered store names in sorted order.
func (r *Registry) ListStores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered stores.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// GlobalMetrics aggregates the counter snapshots of every registered store.
func (r *Registry) GlobalMetrics() []Metrics {
	r.mu.RLock()
	stores := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	r.mu.RUnlock()

	sort.Slice(stores, func(i, j int) bool { return stores[i].name < stores[j].name })

	out := make([]Metrics, 0, len(stores))
	for _, s := range stores {
		out = append(out, s.GetMetrics())
	}
	return out
}

// onStoreClosed keeps the registry map consistent when a store is destroyed
// directly rather than through Destroy.
func (r *Registry) onStoreClosed(name string) {
	r.mu.Lock()
	delete(r.stores, name)
	r.mu.Unlock()
}
