// Package memstore provides bounded, observable in-process object stores.
//
// # Architecture
//
// The module is organized around one domain package and a set of small
// supporting packages:
//
//   - store: named stores with CRUD, operator queries, secondary indexes,
//     schema validation, expiry sweeping, snapshots, and lifecycle events,
//     plus the Registry that shares stores by name
//   - metric: Prometheus registration and the optional /metrics endpoint
//   - errors: classified error taxonomy shared by every component
//   - pkg/cache: generic bounded LRU cache
//   - pkg/buffer: generic bounded ring buffer (event dispatch queue)
//   - pkg/timestamp: permissive timestamp coercion for expiry fields
//   - pkg/ids: item identifier generation
//
// # Usage
//
//	reg := store.NewRegistry()
//	s, _ := reg.GetOrCreate("tasks", store.DefaultConfig())
//	item, _ := s.Create(map[string]any{"title": "ship it", "priority": 3})
//	found, _ := s.Find(store.Filter{"priority": map[string]any{"$gte": 3}})
//
// Everything runs in-process; there is no network surface unless the caller
// starts the optional metrics endpoint.
package memstore
