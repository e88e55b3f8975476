package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/memstore/errors"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	src := newTestStore(t, nil)
	src.SetSchema(Schema{"title": {Required: true, Type: TypeString}})
	require.NoError(t, src.CreateIndex("status"))

	_, err := src.Create(map[string]any{"id": "a", "title": "one", "status": "open"})
	require.NoError(t, err)
	_, err = src.Create(map[string]any{"id": "b", "title": "two", "status": "done"})
	require.NoError(t, err)

	snap, err := src.Backup()
	require.NoError(t, err)
	assert.Equal(t, src.Name(), snap.StoreName)
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, []string{"status"}, snap.IndexFields)

	// Restoring replaces the destination's entire contents
	dst := newTestStore(t, nil)
	_, err = dst.Create(map[string]any{"id": "stale"})
	require.NoError(t, err)

	require.NoError(t, dst.Restore(snap))
	assert.Equal(t, 2, dst.Size())
	assert.False(t, dst.Has("stale"))

	got, err := dst.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "one", got.Fields["title"])

	// Indexes are rebuilt from the snapshot
	assert.Equal(t, []string{"status"}, dst.Indexes())
	items, err := dst.Find(Filter{"status": "open"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a"}, resultIDs(items))

	// The schema travels with the snapshot
	_, err = dst.Create(map[string]any{"status": "open"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestBackupIsDetachedFromSource(t *testing.T) {
	src := newTestStore(t, nil)
	_, err := src.Create(map[string]any{"id": "a", "n": 1})
	require.NoError(t, err)

	snap, err := src.Backup()
	require.NoError(t, err)

	// Mutations after the backup do not leak into the snapshot
	_, err = src.Update("a", map[string]any{"n": 2})
	require.NoError(t, err)
	src.Remove("a")

	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, snap.Items[0].Fields["n"])
}

func TestRestoreValidation(t *testing.T) {
	s := newTestStore(t, func(c *Config) { c.MaxStorageSize = 2 })
	_, err := s.Create(map[string]any{"id": "keep"})
	require.NoError(t, err)

	t.Run("nil snapshot", func(t *testing.T) {
		err := s.Restore(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidBackup)
	})

	t.Run("over capacity", func(t *testing.T) {
		snap := &Snapshot{Items: []*Item{
			{ID: "1"}, {ID: "2"}, {ID: "3"},
		}}
		err := s.Restore(snap)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidBackup)
	})

	t.Run("missing id", func(t *testing.T) {
		err := s.Restore(&Snapshot{Items: []*Item{{ID: ""}}})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidBackup)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		err := s.Restore(&Snapshot{Items: []*Item{{ID: "x"}, {ID: "x"}}})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidBackup)
	})

	// A failed restore leaves the store untouched
	assert.True(t, s.Has("keep"))
	assert.Equal(t, 1, s.Size())
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	src := newTestStore(t, nil)
	_, err := src.Create(map[string]any{"id": "a", "title": "persisted", "priority": 4})
	require.NoError(t, err)

	snap, err := src.Backup()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, snap.WriteFile(path))

	loaded, err := ReadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap.StoreName, loaded.StoreName)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "persisted", loaded.Items[0].Fields["title"])

	dst := newTestStore(t, nil)
	require.NoError(t, dst.Restore(loaded))

	got, err := dst.Get("a")
	require.NoError(t, err)
	// JSON round-trips numbers as float64; query equality still matches
	items, err := dst.Find(Filter{"priority": 4})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a"}, resultIDs(items))
	assert.Equal(t, "persisted", got.Fields["title"])
}

func TestReadSnapshotFileErrors(t *testing.T) {
	_, err := ReadSnapshotFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json{"), 0o600))
	_, err = ReadSnapshotFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidBackup)
}
