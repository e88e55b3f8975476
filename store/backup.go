package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/c360/memstore/errors"
)

// Snapshot is a self-contained, point-in-time copy of a store: its items,
// schema, and index definitions. Snapshots are deep copies and stay valid
// after the source store mutates or is destroyed.
type Snapshot struct {
	StoreName   string    `json:"store_name"`
	CreatedAt   time.Time `json:"created_at"`
	Schema      Schema    `json:"schema,omitempty"`
	IndexFields []string  `json:"index_fields,omitempty"`
	Items       []*Item   `json:"items"`
}

// Backup captures a consistent snapshot of the store.
func (s *Store) Backup() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, s.closedErr("Backup")
	}

	snap := &Snapshot{
		StoreName:   s.name,
		CreatedAt:   time.Now(),
		Schema:      s.schema.clone(),
		IndexFields: s.idx.fields(),
		Items:       make([]*Item, 0, len(s.items)),
	}
	for _, item := range s.items {
		snap.Items = append(snap.Items, item.Clone())
	}
	return snap, nil
}

// Restore replaces the store's entire contents with a snapshot: items,
// schema, and indexes. The snapshot is validated up front and the store is
// left untouched when validation fails.
//
// A snapshot holding more items than the store's capacity, a nil snapshot,
// or duplicate or empty item ids all fail with ErrInvalidBackup.
func (s *Store) Restore(snap *Snapshot) error {
	if snap == nil {
		return errors.WrapInvalid(errors.ErrInvalidBackup, "Store", "Restore", "nil snapshot")
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return s.closedErr("Restore")
	}

	if len(snap.Items) > s.cfg.MaxStorageSize {
		s.mu.Unlock()
		err := errors.WrapInvalid(errors.ErrInvalidBackup, "Store", "Restore",
			fmt.Sprintf("snapshot holds %d items, capacity is %d", len(snap.Items), s.cfg.MaxStorageSize))
		s.rec.failed(err)
		return err
	}

	restored := make(map[string]*Item, len(snap.Items))
	for _, item := range snap.Items {
		if item == nil || item.ID == "" {
			s.mu.Unlock()
			err := errors.WrapInvalid(errors.ErrInvalidBackup, "Store", "Restore", "snapshot item missing id")
			s.rec.failed(err)
			return err
		}
		if _, dup := restored[item.ID]; dup {
			s.mu.Unlock()
			err := errors.WrapInvalid(errors.ErrInvalidBackup, "Store", "Restore",
				fmt.Sprintf("duplicate item id %q in snapshot", item.ID))
			s.rec.failed(err)
			return err
		}
		restored[item.ID] = item.Clone()
	}

	s.items = restored
	s.schema = snap.Schema.clone()

	s.idx = newIndexManager()
	if s.cfg.EnableIndexing {
		for _, field := range snap.IndexFields {
			s.idx.createIndex(field, s.items)
		}
	}
	if s.cache != nil {
		_ = s.cache.Clear()
	}
	count := len(s.items)
	s.mu.Unlock()

	s.rec.setItems(count)
	s.audit("store restored", "items", count, "snapshot_from", snap.StoreName)

	// Restore is a batch: one aggregate event, no per-item creates
	s.publishEvent(Event{
		Store:     s.name,
		Type:      EventStoreRestored,
		Count:     count,
		Timestamp: time.Now(),
	})
	return nil
}

// WriteFile serializes the snapshot to a JSON file.
func (snap *Snapshot) WriteFile(path string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "Snapshot", "WriteFile", "marshal snapshot")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapTransient(err, "Snapshot", "WriteFile", "write snapshot file")
	}
	return nil
}

// ReadSnapshotFile loads a snapshot previously written with WriteFile.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Snapshot", "ReadSnapshotFile", "read snapshot file")
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidBackup, "Snapshot", "ReadSnapshotFile",
			fmt.Sprintf("parse snapshot file: %v", err))
	}
	return &snap, nil
}
