package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/memstore/errors"
	"github.com/c360/memstore/metric"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AutoCleanup = false
	return cfg
}

func TestGetOrCreateSharesOneStorePerName(t *testing.T) {
	reg := NewRegistry()
	t.Cleanup(reg.DestroyAll)

	a, err := reg.GetOrCreate("sessions", testConfig())
	require.NoError(t, err)

	// A differing config on a later call is ignored
	other := testConfig()
	other.MaxStorageSize = 1
	b, err := reg.GetOrCreate("sessions", other)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, testConfig().MaxStorageSize, b.Config().MaxStorageSize)

	c, err := reg.GetOrCreate("tasks", testConfig())
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()
	t.Cleanup(reg.DestroyAll)

	_, found := reg.Get("none")
	assert.False(t, found)

	created, err := reg.GetOrCreate("one", testConfig())
	require.NoError(t, err)

	got, found := reg.Get("one")
	assert.True(t, found)
	assert.Same(t, created, got)
}

func TestRegistryCreateRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	t.Cleanup(reg.DestroyAll)

	_, err := reg.Create("only", testConfig())
	require.NoError(t, err)

	_, err = reg.Create("only", testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStoreExists)
}

func TestRegistryDestroy(t *testing.T) {
	reg := NewRegistry()
	t.Cleanup(reg.DestroyAll)

	s, err := reg.GetOrCreate("doomed", testConfig())
	require.NoError(t, err)
	_, err = s.Create(map[string]any{"x": 1})
	require.NoError(t, err)

	assert.True(t, reg.Destroy("doomed"))
	assert.False(t, reg.Destroy("doomed"))

	_, found := reg.Get("doomed")
	assert.False(t, found)

	// The handle is dead: all operations fail closed
	_, err = s.Create(map[string]any{"x": 2})
	assert.ErrorIs(t, err, errors.ErrStoreClosed)

	// The name is free for a fresh store
	fresh, err := reg.GetOrCreate("doomed", testConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Size())
}

func TestRegistryDestroyAll(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"a", "b", "c"} {
		_, err := reg.GetOrCreate(name, testConfig())
		require.NoError(t, err)
	}

	reg.DestroyAll()
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.ListStores())
}

func TestRegistryListStoresSorted(t *testing.T) {
	reg := NewRegistry()
	t.Cleanup(reg.DestroyAll)

	for _, name := range []string{"zebra", "alpha", "mango"} {
		_, err := reg.GetOrCreate(name, testConfig())
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alpha", "mango", "zebra"}, reg.ListStores())
}

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	reg := NewRegistry()
	t.Cleanup(reg.DestroyAll)

	const goroutines = 16
	stores := make([]*Store, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			s, err := reg.GetOrCreate("shared", testConfig())
			if err != nil {
				t.Error(err)
				return
			}
			stores[slot] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, stores[0], stores[i])
	}
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryGlobalMetrics(t *testing.T) {
	reg := NewRegistry()
	t.Cleanup(reg.DestroyAll)

	a, err := reg.GetOrCreate("a", testConfig())
	require.NoError(t, err)
	b, err := reg.GetOrCreate("b", testConfig())
	require.NoError(t, err)

	_, err = a.Create(map[string]any{"x": 1})
	require.NoError(t, err)
	_, err = b.Create(map[string]any{"x": 1})
	require.NoError(t, err)
	_, err = b.Create(map[string]any{"x": 2})
	require.NoError(t, err)

	all := reg.GlobalMetrics()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].StoreName)
	assert.Equal(t, int64(1), all[0].Creates)
	assert.Equal(t, "b", all[1].StoreName)
	assert.Equal(t, int64(2), all[1].Creates)
}

func TestRegistryWithPrometheusMetrics(t *testing.T) {
	metrics := metric.NewMetricsRegistry()
	reg := NewRegistry(WithRegistryMetrics(metrics))
	t.Cleanup(reg.DestroyAll)

	s, err := reg.GetOrCreate("observed", testConfig())
	require.NoError(t, err)
	_, err = s.Create(map[string]any{"x": 1})
	require.NoError(t, err)

	families, err := metrics.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := make(map[string]bool)
	for _, fam := range families {
		found[fam.GetName()] = true
	}
	assert.True(t, found["memstore_registry_stores_active"])
	assert.True(t, found["memstore_store_operations_total"])

	// Destroying the store removes its label series
	require.True(t, reg.Destroy("observed"))
	families, err = metrics.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == "memstore_store_operations_total" {
			assert.Empty(t, fam.GetMetric())
		}
	}
}
