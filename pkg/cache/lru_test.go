package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[string](10)

	// Get on empty cache
	if value, exists := c.Get("key1"); exists {
		t.Errorf("expected cache miss, got value: %s", value)
	}

	// Set and Get
	isNew, err := c.Set("key1", "value1")
	if err != nil {
		t.Fatalf("unexpected error setting key: %v", err)
	}
	if !isNew {
		t.Error("expected new entry creation")
	}

	if value, exists := c.Get("key1"); !exists || value != "value1" {
		t.Errorf("expected 'value1', got value: %s, exists: %t", value, exists)
	}

	// Update
	isNew, err = c.Set("key1", "value1_updated")
	if err != nil {
		t.Fatalf("unexpected error updating key: %v", err)
	}
	if isNew {
		t.Error("expected existing entry update")
	}

	if value, exists := c.Get("key1"); !exists || value != "value1_updated" {
		t.Errorf("expected 'value1_updated', got value: %s, exists: %t", value, exists)
	}

	// Delete
	deleted, err := c.Delete("key1")
	if err != nil {
		t.Fatalf("unexpected error deleting key: %v", err)
	}
	if !deleted {
		t.Error("expected successful deletion")
	}

	deleted, _ = c.Delete("key1")
	if deleted {
		t.Error("expected deletion failure for non-existent key")
	}
}

func TestLRU_EmptyKeyRejected(t *testing.T) {
	c := NewLRU[string](10)

	if _, err := c.Set("", "value"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := c.Delete(""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestLRU_StrictEviction(t *testing.T) {
	c := NewLRU[int](3)

	for i := 1; i <= 3; i++ {
		_, _ = c.Set(fmt.Sprintf("key%d", i), i)
	}

	// Inserting capacity+1 distinct keys evicts exactly the LRU entry
	_, _ = c.Set("key4", 4)

	if _, exists := c.Get("key1"); exists {
		t.Error("key1 should have been evicted")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, exists := c.Get(k); !exists {
			t.Errorf("%s should still be present", k)
		}
	}
}

func TestLRU_TouchProtectsFromEviction(t *testing.T) {
	c := NewLRU[int](3)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	_, _ = c.Set("c", 3)

	// Touch "a" via Get; "b" becomes least recently used
	if _, exists := c.Get("a"); !exists {
		t.Fatal("a should be present")
	}

	_, _ = c.Set("d", 4)

	if _, exists := c.Get("b"); exists {
		t.Error("b should have been evicted")
	}
	if _, exists := c.Get("a"); !exists {
		t.Error("a should have been protected by the touch")
	}

	// Touch via Set also protects; "d" is now least recently used
	_, _ = c.Set("c", 33)
	_, _ = c.Set("e", 5)

	if _, exists := c.Get("d"); exists {
		t.Error("d was least recently used and should have been evicted")
	}
	if _, exists := c.Get("a"); !exists {
		t.Error("a was touched more recently than d and should survive")
	}
	if v, exists := c.Get("c"); !exists || v != 33 {
		t.Errorf("c should have survived with updated value, got %d exists=%t", v, exists)
	}
}

func TestLRU_EvictionCallback(t *testing.T) {
	var evictedKeys []string
	c := NewLRU[int](2, WithEvictionCallback[int](func(key string, _ int) {
		evictedKeys = append(evictedKeys, key)
	}))

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	_, _ = c.Set("c", 3)

	if len(evictedKeys) != 1 || evictedKeys[0] != "a" {
		t.Errorf("expected eviction callback for 'a', got %v", evictedKeys)
	}
}

func TestLRU_CopierIsolation(t *testing.T) {
	type payload struct {
		Values map[string]int
	}

	copier := func(p *payload) *payload {
		cp := &payload{Values: make(map[string]int, len(p.Values))}
		for k, v := range p.Values {
			cp.Values[k] = v
		}
		return cp
	}

	c := NewLRU[*payload](10, WithCopier(copier))

	original := &payload{Values: map[string]int{"x": 1}}
	_, _ = c.Set("k", original)

	// Mutating the original after Set must not affect the cached copy
	original.Values["x"] = 99

	got, exists := c.Get("k")
	if !exists {
		t.Fatal("expected hit")
	}
	if got.Values["x"] != 1 {
		t.Errorf("cached value was corrupted by caller mutation: %d", got.Values["x"])
	}

	// Mutating a returned value must not affect subsequent reads
	got.Values["x"] = 42
	again, _ := c.Get("k")
	if again.Values["x"] != 1 {
		t.Errorf("cached value was corrupted by reader mutation: %d", again.Values["x"])
	}
}

func TestLRU_KeysOrder(t *testing.T) {
	c := NewLRU[int](10)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	_, _ = c.Set("c", 3)
	_, _ = c.Get("a")

	keys := c.Keys()
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	if keys[0] != "a" {
		t.Errorf("most recently used key should be 'a', got %s", keys[0])
	}
}

func TestLRU_ClearAndSize(t *testing.T) {
	c := NewLRU[int](10)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}

	_ = c.Clear()
	if c.Size() != 0 {
		t.Errorf("expected size 0 after clear, got %d", c.Size())
	}
	if _, exists := c.Get("a"); exists {
		t.Error("expected miss after clear")
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[int](2)

	_, _ = c.Set("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("missing")
	_, _ = c.Set("b", 2)
	_, _ = c.Set("c", 3) // evicts

	stats := c.Stats().Summary()
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Sets != 3 {
		t.Errorf("expected 3 sets, got %d", stats.Sets)
	}
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU[int](100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key%d", i%50)
				_, _ = c.Set(key, g*1000+i)
				_, _ = c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Size() > 100 {
		t.Errorf("cache exceeded capacity: %d", c.Size())
	}
}
