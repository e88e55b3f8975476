// Package store implements named in-memory object stores with CRUD,
// secondary indexes, a bounded LRU read cache, schema validation, a
// query engine with operator filters, sorting, and pagination, expiry
// sweeping, backup/restore snapshots, and per-store lifecycle events.
//
// A Registry hands out one shared Store per name:
//
//	reg := store.NewRegistry()
//	s, err := reg.GetOrCreate("sessions", store.DefaultConfig())
//
// Items are open-shaped field maps plus system metadata (id, timestamps,
// version). The store deep-copies at every boundary: callers can mutate
// inbound maps and returned items freely without corrupting stored state.
//
// Queries use Mongo-style operator filters:
//
//	items, err := s.Find(store.Filter{
//		"status":           "active",
//		"details.priority": map[string]any{"$gte": 3},
//	}, store.WithSort(store.SortSpec{{Field: "createdAt", Descending: true}}))
//
// Every store feature is individually toggleable through Config.
package store
