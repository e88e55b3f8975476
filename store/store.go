package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/memstore/errors"
	"github.com/c360/memstore/metric"
	"github.com/c360/memstore/pkg/cache"
	"github.com/c360/memstore/pkg/ids"
)

// Store is a named, bounded collection of items with CRUD, querying,
// secondary indexes, an LRU read cache, expiry sweeping, and lifecycle
// events. All methods are safe for concurrent use.
//
// The store owns its items: Create and Update deep-copy inbound field maps,
// and every returned *Item is an independent snapshot. Mutating a returned
// item never affects stored state.
type Store struct {
	name string
	cfg  Config

	mu     sync.RWMutex
	items  map[string]*Item
	idx    *indexManager
	schema Schema
	closed bool

	cache   cache.Cache[*Item]
	emit    *emitter
	rec     *metricsRecorder
	sweep   *sweeper
	idgen   ids.Generator
	logger  *slog.Logger
	onClose func(name string)
}

// Option configures a Store at construction.
type Option func(*storeOptions)

type storeOptions struct {
	logger  *slog.Logger
	idgen   ids.Generator
	metrics *metric.MetricsRegistry
	onClose func(name string)
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithIDGenerator overrides the identifier generator used for items created
// without an explicit id field.
func WithIDGenerator(gen ids.Generator) Option {
	return func(o *storeOptions) {
		if gen != nil {
			o.idgen = gen
		}
	}
}

// WithMetricsRegistry mirrors the store's counters into the given Prometheus
// registry. Without it, metrics are still collected in-process and exposed
// through GetMetrics.
func WithMetricsRegistry(reg *metric.MetricsRegistry) Option {
	return func(o *storeOptions) {
		o.metrics = reg
	}
}

func withCloseHook(hook func(name string)) Option {
	return func(o *storeOptions) {
		o.onClose = hook
	}
}

// New creates a standalone store. Most callers go through a Registry, which
// deduplicates stores by name; New itself performs no deduplication.
func New(name string, cfg Config, options ...Option) (*Store, error) {
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "New", "store name cannot be empty")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &storeOptions{
		logger: slog.Default(),
		idgen:  ids.NewUUIDGenerator(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	var prom *metric.Metrics
	if opts.metrics != nil {
		prom = opts.metrics.CoreMetrics()
	}

	s := &Store{
		name:    name,
		cfg:     cfg,
		items:   make(map[string]*Item),
		idx:     newIndexManager(),
		idgen:   opts.idgen,
		logger:  opts.logger.With("store", name),
		onClose: opts.onClose,
	}
	s.rec = newMetricsRecorder(name, cfg.EnableMetrics, prom)

	if cfg.EnableCaching {
		s.cache = cache.NewLRU[*Item](cfg.CacheSize,
			cache.WithCopier[*Item]((*Item).Clone),
		)
	}
	if cfg.EnableEventEmission {
		s.emit = newEmitter(name, cfg.EventBufferSize, s.logger, s.rec)
	}
	if cfg.AutoCleanup {
		s.sweep = newSweeper(s, cfg.CleanupInterval)
		s.sweep.start()
	}

	s.logger.Info("store created",
		"max_storage_size", cfg.MaxStorageSize,
		"auto_cleanup", cfg.AutoCleanup,
		"caching", cfg.EnableCaching)
	return s, nil
}

// Name returns the store's registry name.
func (s *Store) Name() string { return s.name }

// Config returns the store's effective configuration.
func (s *Store) Config() Config { return s.cfg }

// WriteOption attaches metadata to a mutation.
type WriteOption func(*writeOptions)

type writeOptions struct {
	actor string
}

// WithActor records who performed the mutation in the item's CreatedBy or
// UpdatedBy field.
func WithActor(actor string) WriteOption {
	return func(o *writeOptions) {
		o.actor = actor
	}
}

func applyWriteOptions(options []WriteOption) *writeOptions {
	o := &writeOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Create adds a new item. An "id" string field supplies the identifier;
// otherwise one is generated. Returns a snapshot of the stored item.
//
// Fails with ErrDuplicateID when the id is taken, ErrCapacityExceeded at the
// configured size limit, and a *ValidationError when the schema rejects the
// fields.
func (s *Store) Create(fields map[string]any, options ...WriteOption) (*Item, error) {
	opts := applyWriteOptions(options)

	fieldCopy := copyFieldMap(fields)
	if fieldCopy == nil {
		fieldCopy = make(map[string]any)
	}

	id := ""
	if raw, present := fieldCopy[FieldID]; present {
		str, ok := raw.(string)
		if !ok || str == "" {
			err := errors.WrapInvalid(errors.ErrInvalidData, "Store", "Create", "id field must be a non-empty string")
			s.rec.failed(err)
			return nil, err
		}
		id = str
		delete(fieldCopy, FieldID)
	} else {
		id = s.idgen.NewID()
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, s.closedErr("Create")
	}
	if _, exists := s.items[id]; exists {
		s.mu.Unlock()
		err := errors.WrapInvalid(errors.ErrDuplicateID, "Store", "Create", fmt.Sprintf("id %q", id))
		s.rec.failed(err)
		return nil, err
	}
	if len(s.items) >= s.cfg.MaxStorageSize {
		s.mu.Unlock()
		err := errors.WrapInvalid(errors.ErrCapacityExceeded, "Store", "Create",
			fmt.Sprintf("limit %d items", s.cfg.MaxStorageSize))
		s.rec.failed(err)
		return nil, err
	}
	if s.cfg.EnableValidation {
		sanitizeFields(fieldCopy)
		if err := s.schema.Validate(fieldCopy); err != nil {
			s.mu.Unlock()
			s.rec.failed(err)
			return nil, err
		}
	}

	now := time.Now()
	item := &Item{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		CreatedBy: opts.actor,
		Fields:    fieldCopy,
	}

	s.items[id] = item
	if s.cfg.EnableIndexing {
		s.idx.add(item)
	}
	if s.cache != nil {
		_, _ = s.cache.Set(id, item)
	}
	count := len(s.items)
	snapshot := item.Clone()
	s.mu.Unlock()

	s.rec.create()
	s.rec.setItems(count)
	s.audit("item created", "id", id, "version", 1, "actor", opts.actor)
	s.publish(EventItemCreated, id, snapshot)

	return snapshot.Clone(), nil
}

// Update merges the given fields into an existing item. Top-level keys
// overwrite; the reserved "id" key is ignored. Version increments by exactly
// one per successful update. Returns a snapshot of the updated item.
func (s *Store) Update(id string, fields map[string]any, options ...WriteOption) (*Item, error) {
	opts := applyWriteOptions(options)
	fieldCopy := copyFieldMap(fields)
	delete(fieldCopy, FieldID)

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, s.closedErr("Update")
	}

	current, exists := s.items[id]
	if !exists {
		s.mu.Unlock()
		err := errors.Wrap(errors.ErrNotFound, "Store", "Update", fmt.Sprintf("id %q", id))
		s.rec.failed(err)
		return nil, err
	}

	merged := copyFieldMap(current.Fields)
	if merged == nil {
		merged = make(map[string]any)
	}
	for k, v := range fieldCopy {
		merged[k] = v
	}

	if s.cfg.EnableValidation {
		sanitizeFields(merged)
		if err := s.schema.Validate(merged); err != nil {
			s.mu.Unlock()
			s.rec.failed(err)
			return nil, err
		}
	}

	updated := &Item{
		ID:        current.ID,
		CreatedAt: current.CreatedAt,
		UpdatedAt: time.Now(),
		Version:   current.Version + 1,
		CreatedBy: current.CreatedBy,
		UpdatedBy: opts.actor,
		Fields:    merged,
	}

	s.items[id] = updated
	if s.cfg.EnableIndexing {
		s.idx.update(current, updated)
	}
	if s.cache != nil {
		_, _ = s.cache.Set(id, updated)
	}
	snapshot := updated.Clone()
	s.mu.Unlock()

	// Stored items are replaced wholesale, never mutated in place, so the
	// displaced item is safe to snapshot after the lock is released.
	s.rec.update()
	s.audit("item updated", "id", id, "version", snapshot.Version, "actor", opts.actor)
	s.publishEvent(Event{
		Store:     s.name,
		Type:      EventItemUpdated,
		ItemID:    id,
		Item:      snapshot,
		Previous:  current.Clone(),
		Timestamp: time.Now(),
	})

	return snapshot.Clone(), nil
}

// Get retrieves a snapshot of an item by id.
func (s *Store) Get(id string) (*Item, error) {
	s.mu.RLock()

	if s.closed {
		s.mu.RUnlock()
		return nil, s.closedErr("Get")
	}

	if s.cache != nil {
		if cached, hit := s.cache.Get(id); hit {
			s.mu.RUnlock()
			s.rec.get()
			s.rec.cacheHit()
			s.publish(EventItemAccessed, id, cached.Clone())
			return cached, nil
		}
		s.rec.cacheMiss()
	}

	item, exists := s.items[id]
	if !exists {
		s.mu.RUnlock()
		err := errors.Wrap(errors.ErrNotFound, "Store", "Get", fmt.Sprintf("id %q", id))
		s.rec.failed(err)
		return nil, err
	}

	// Populating the cache under the read lock keeps Remove (which holds
	// the write lock while invalidating) from interleaving with it, so a
	// removed item can never reappear from the cache.
	if s.cache != nil {
		_, _ = s.cache.Set(id, item)
	}
	snapshot := item.Clone()
	s.mu.RUnlock()

	s.rec.get()
	s.publish(EventItemAccessed, id, snapshot.Clone())
	return snapshot, nil
}

// Has reports whether an item exists without touching the cache.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	_, exists := s.items[id]
	return exists
}

// Keys returns the ids of all items, in no particular order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for id := range s.items {
		keys = append(keys, id)
	}
	return keys
}

// Size returns the current item count.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Remove deletes an item by id. Returns true if the item existed; removing
// an absent id is not an error.
func (s *Store) Remove(id string, options ...WriteOption) bool {
	opts := applyWriteOptions(options)

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return false
	}

	item, exists := s.items[id]
	if !exists {
		s.mu.Unlock()
		return false
	}

	delete(s.items, id)
	if s.cfg.EnableIndexing {
		s.idx.remove(item)
	}
	if s.cache != nil {
		_, _ = s.cache.Delete(id)
	}
	count := len(s.items)
	snapshot := item.Clone()
	s.mu.Unlock()

	s.rec.remove()
	s.rec.setItems(count)
	s.audit("item removed", "id", id, "actor", opts.actor)
	s.publish(EventItemDeleted, id, snapshot)
	return true
}

// Clear removes all items, resets the store's logical counters, and emits
// store:cleared carrying the prior item count. Returns the number removed.
// The Prometheus mirrors stay monotonic; only the items gauge resets.
func (s *Store) Clear(options ...WriteOption) int {
	opts := applyWriteOptions(options)

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return 0
	}

	removed := len(s.items)
	s.items = make(map[string]*Item)
	s.idx.clear()
	if s.cache != nil {
		_ = s.cache.Clear()
	}
	s.mu.Unlock()

	s.rec.reset()
	s.rec.setItems(0)
	s.audit("store cleared", "removed", removed, "actor", opts.actor)
	s.publishEvent(Event{
		Store:     s.name,
		Type:      EventStoreCleared,
		Count:     removed,
		Timestamp: time.Now(),
	})
	return removed
}

// List returns snapshots of all items, optionally sorted. A listing counts
// as one query against the store's metrics.
func (s *Store) List(sortSpec SortSpec) ([]*Item, error) {
	s.mu.RLock()

	if s.closed {
		s.mu.RUnlock()
		return nil, s.closedErr("List")
	}

	out := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	s.mu.RUnlock()

	s.rec.query()
	sortItems(out, sortSpec)
	return out, nil
}

// QueryOption refines a Find call.
type QueryOption func(*queryOptions)

type queryOptions struct {
	sort  SortSpec
	limit int
}

// WithSort orders results by the given spec.
func WithSort(spec SortSpec) QueryOption {
	return func(o *queryOptions) {
		o.sort = spec
	}
}

// WithLimit caps the number of results, applied after sorting.
func WithLimit(limit int) QueryOption {
	return func(o *queryOptions) {
		o.limit = limit
	}
}

// Find returns snapshots of every item matching the filter. A nil or empty
// filter matches everything. Conditions on multiple fields are AND-ed.
// Indexed equality conditions narrow the scan when indexing is enabled.
func (s *Store) Find(filter Filter, options ...QueryOption) ([]*Item, error) {
	opts := &queryOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	matches, err := s.findMatches(filter, true)
	if err != nil {
		return nil, err
	}

	sortItems(matches, opts.sort)
	if opts.limit > 0 && len(matches) > opts.limit {
		matches = matches[:opts.limit]
	}
	s.rec.query()
	return matches, nil
}

// FindOne returns the first item matching the filter, honoring the sort
// order when one is given. Fails with ErrNotFound when nothing matches.
func (s *Store) FindOne(filter Filter, options ...QueryOption) (*Item, error) {
	matches, err := s.Find(filter, options...)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.Wrap(errors.ErrNotFound, "Store", "FindOne", "no item matches filter")
	}
	return matches[0], nil
}

// FindPage filters, sorts, and paginates in one pass. Page numbers are
// 1-based; out-of-range pages return an empty page with accurate totals.
func (s *Store) FindPage(filter Filter, sortSpec SortSpec, page, pageSize int) (*Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Store", "FindPage",
			fmt.Sprintf("page %d size %d, both must be >= 1", page, pageSize))
	}

	matches, err := s.findMatches(filter, true)
	if err != nil {
		return nil, err
	}

	sortItems(matches, sortSpec)
	s.rec.query()
	return paginate(matches, page, pageSize), nil
}

// Count returns the number of items matching the filter without cloning
// them.
func (s *Store) Count(filter Filter) (int, error) {
	matches, err := s.findMatches(filter, false)
	if err != nil {
		return 0, err
	}
	s.rec.query()
	return len(matches), nil
}

// findMatches evaluates the filter under the read lock. When clone is false
// the returned items alias stored state and must not escape to callers.
func (s *Store) findMatches(filter Filter, clone bool) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, s.closedErr("Find")
	}

	collect := func(item *Item) *Item {
		if clone {
			return item.Clone()
		}
		return item
	}

	var matches []*Item

	if s.cfg.EnableIndexing && len(filter) > 0 {
		if candidateIDs, ok := s.idx.candidates(filter); ok {
			for id := range candidateIDs {
				item, exists := s.items[id]
				if !exists {
					continue
				}
				matched, err := matchItem(item, filter, s.cfg.StrictOperators)
				if err != nil {
					s.rec.failed(err)
					return nil, err
				}
				if matched {
					matches = append(matches, collect(item))
				}
			}
			return matches, nil
		}
	}

	for _, item := range s.items {
		matched, err := matchItem(item, filter, s.cfg.StrictOperators)
		if err != nil {
			s.rec.failed(err)
			return nil, err
		}
		if matched {
			matches = append(matches, collect(item))
		}
	}
	return matches, nil
}

// CreateIndex builds a secondary index on a field path and backfills it from
// existing items. Creating an index that already exists is a no-op.
func (s *Store) CreateIndex(field string) error {
	if field == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Store", "CreateIndex", "field cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.closedErr("CreateIndex")
	}
	if !s.cfg.EnableIndexing {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "CreateIndex", "indexing disabled")
	}

	if s.idx.createIndex(field, s.items) {
		s.audit("index created", "field", field)
	}
	return nil
}

// DropIndex removes a secondary index. Returns false if none exists on the
// field.
func (s *Store) DropIndex(field string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.idx.dropIndex(field)
}

// Indexes returns the indexed field paths in sorted order.
func (s *Store) Indexes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.fields()
}

// SetSchema installs the validation schema applied to subsequent Create and
// Update calls. Existing items are not revalidated. A nil schema disables
// structural validation.
func (s *Store) SetSchema(schema Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = schema.clone()
}

// Schema returns a copy of the active validation schema.
func (s *Store) Schema() Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema.clone()
}

// On subscribes a handler to an event type. Handlers run asynchronously on
// the store's dispatcher goroutine. Returns nil when event emission is
// disabled or the store is destroyed.
func (s *Store) On(event EventType, handler Handler) *Subscription {
	if s.emit == nil {
		return nil
	}
	return s.emit.on(event, handler)
}

// Off removes a subscription returned by On.
func (s *Store) Off(sub *Subscription) bool {
	if s.emit == nil {
		return false
	}
	return s.emit.off(sub)
}

// GetMetrics returns a snapshot of the store's counters.
func (s *Store) GetMetrics() Metrics {
	s.mu.RLock()
	count := len(s.items)
	s.mu.RUnlock()
	return s.rec.snapshot(count)
}

// destroy marks the store closed, stops the sweeper, drains pending events,
// and releases the items. Idempotent.
func (s *Store) destroy() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.items = make(map[string]*Item)
	s.idx = newIndexManager()
	if s.cache != nil {
		_ = s.cache.Clear()
	}
	s.mu.Unlock()

	if s.sweep != nil {
		s.sweep.stop()
	}
	if s.emit != nil {
		s.emit.publish(Event{
			Store:     s.name,
			Type:      EventStoreDestroyed,
			Timestamp: time.Now(),
		})
		s.emit.close()
	}
	if s.onClose != nil {
		s.onClose(s.name)
	}
	s.logger.Info("store destroyed")
}

// publish snapshots are taken under the lock; the event itself goes out
// after release so handlers can call back into the store.
func (s *Store) publish(event EventType, id string, item *Item) {
	s.publishEvent(Event{
		Store:     s.name,
		Type:      event,
		ItemID:    id,
		Item:      item,
		Timestamp: time.Now(),
	})
}

func (s *Store) publishEvent(event Event) {
	if s.emit == nil {
		return
	}
	s.emit.publish(event)
}

func (s *Store) audit(msg string, args ...any) {
	if s.cfg.EnableAuditLogging {
		s.logger.Info(msg, args...)
	}
}

func (s *Store) closedErr(op string) error {
	return errors.Wrap(errors.ErrStoreClosed, "Store", op, fmt.Sprintf("store %q", s.name))
}
