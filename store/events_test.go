package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitEvent receives one event or fails the test after a timeout.
func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEventsOnCreateUpdateRemove(t *testing.T) {
	s := newTestStore(t, nil)

	ch := make(chan Event, 16)
	handler := func(ev Event) { ch <- ev }

	require.NotNil(t, s.On(EventItemCreated, handler))
	require.NotNil(t, s.On(EventItemUpdated, handler))
	require.NotNil(t, s.On(EventItemDeleted, handler))

	item, err := s.Create(map[string]any{"title": "x"})
	require.NoError(t, err)

	ev := waitEvent(t, ch)
	assert.Equal(t, EventItemCreated, ev.Type)
	assert.Equal(t, item.ID, ev.ItemID)
	assert.Equal(t, s.Name(), ev.Store)
	require.NotNil(t, ev.Item)
	assert.Equal(t, "x", ev.Item.Fields["title"])
	assert.False(t, ev.Timestamp.IsZero())

	_, err = s.Update(item.ID, map[string]any{"title": "y"})
	require.NoError(t, err)

	ev = waitEvent(t, ch)
	assert.Equal(t, EventItemUpdated, ev.Type)
	assert.Equal(t, "y", ev.Item.Fields["title"])
	assert.Equal(t, int64(2), ev.Item.Version)
	require.NotNil(t, ev.Previous, "update event carries the prior state")
	assert.Equal(t, "x", ev.Previous.Fields["title"])
	assert.Equal(t, int64(1), ev.Previous.Version)

	s.Remove(item.ID)
	ev = waitEvent(t, ch)
	assert.Equal(t, EventItemDeleted, ev.Type)
	assert.Equal(t, item.ID, ev.ItemID)
}

func TestAccessedEventOnGet(t *testing.T) {
	s := newTestStore(t, nil)

	item, err := s.Create(map[string]any{"title": "x"})
	require.NoError(t, err)

	ch := make(chan Event, 4)
	s.On(EventItemAccessed, func(ev Event) { ch <- ev })

	_, err = s.Get(item.ID)
	require.NoError(t, err)

	ev := waitEvent(t, ch)
	assert.Equal(t, EventItemAccessed, ev.Type)
	assert.Equal(t, item.ID, ev.ItemID)
	require.NotNil(t, ev.Item)

	// A failed lookup is not an access
	_, err = s.Get("missing")
	require.Error(t, err)

	_, err = s.Get(item.ID)
	require.NoError(t, err)
	ev = waitEvent(t, ch)
	assert.Equal(t, item.ID, ev.ItemID)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event %s for %s", ev.Type, ev.ItemID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRestoredEvent(t *testing.T) {
	s := newTestStore(t, nil)
	for i := 0; i < 3; i++ {
		_, err := s.Create(map[string]any{"n": i})
		require.NoError(t, err)
	}
	snap, err := s.Backup()
	require.NoError(t, err)

	dst := newTestStore(t, nil)
	ch := make(chan Event, 1)
	dst.On(EventStoreRestored, func(ev Event) { ch <- ev })

	require.NoError(t, dst.Restore(snap))

	ev := waitEvent(t, ch)
	assert.Equal(t, EventStoreRestored, ev.Type)
	assert.Equal(t, 3, ev.Count)
}

func TestEventCarriesSnapshot(t *testing.T) {
	s := newTestStore(t, nil)

	ch := make(chan Event, 1)
	s.On(EventItemCreated, func(ev Event) { ch <- ev })

	item, err := s.Create(map[string]any{"count": 1})
	require.NoError(t, err)

	ev := waitEvent(t, ch)
	// Mutating the event payload must not reach stored state
	ev.Item.Fields["count"] = 99

	got, err := s.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Fields["count"])
}

func TestOffStopsDelivery(t *testing.T) {
	s := newTestStore(t, nil)

	var mu sync.Mutex
	var seen int
	sub := s.On(EventItemCreated, func(Event) {
		mu.Lock()
		seen++
		mu.Unlock()
	})
	require.NotNil(t, sub)

	ch := make(chan Event, 16)
	s.On(EventItemCreated, func(ev Event) { ch <- ev })

	_, err := s.Create(map[string]any{"n": 1})
	require.NoError(t, err)
	waitEvent(t, ch)

	assert.True(t, s.Off(sub))
	assert.False(t, s.Off(sub), "second Off reports absence")

	_, err = s.Create(map[string]any{"n": 2})
	require.NoError(t, err)
	waitEvent(t, ch)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen)
}

func TestClearedEvent(t *testing.T) {
	s := newTestStore(t, nil)
	_, err := s.Create(map[string]any{"n": 1})
	require.NoError(t, err)

	ch := make(chan Event, 1)
	s.On(EventStoreCleared, func(ev Event) { ch <- ev })

	s.Clear()
	ev := waitEvent(t, ch)
	assert.Equal(t, EventStoreCleared, ev.Type)
	assert.Equal(t, 1, ev.Count, "cleared event reports the prior item count")
	assert.Nil(t, ev.Item)
}

func TestDestroyDrainsPendingEvents(t *testing.T) {
	s := newTestStore(t, nil)

	var mu sync.Mutex
	var seen []EventType
	s.On(EventItemCreated, func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	})
	s.On(EventStoreDestroyed, func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		_, err := s.Create(map[string]any{"n": i})
		require.NoError(t, err)
	}

	// destroy blocks until the dispatch queue is drained
	s.destroy()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 6)
	assert.Equal(t, EventStoreDestroyed, seen[5], "destroyed event delivered last")
}

func TestHandlerPanicDoesNotKillDispatcher(t *testing.T) {
	s := newTestStore(t, nil)

	s.On(EventItemCreated, func(Event) { panic("boom") })
	ch := make(chan Event, 16)
	s.On(EventItemCreated, func(ev Event) { ch <- ev })

	_, err := s.Create(map[string]any{"n": 1})
	require.NoError(t, err)
	waitEvent(t, ch)

	_, err = s.Create(map[string]any{"n": 2})
	require.NoError(t, err)
	waitEvent(t, ch)
}

func TestEventEmissionDisabled(t *testing.T) {
	s := newTestStore(t, func(c *Config) { c.EnableEventEmission = false })

	assert.Nil(t, s.On(EventItemCreated, func(Event) {}))
	assert.False(t, s.Off(nil))

	_, err := s.Create(map[string]any{"n": 1})
	assert.NoError(t, err)
}

func TestSlowSubscriberNeverBlocksMutations(t *testing.T) {
	s := newTestStore(t, func(c *Config) { c.EventBufferSize = 4 })

	release := make(chan struct{})
	s.On(EventItemCreated, func(Event) { <-release })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if _, err := s.Create(map[string]any{"n": i}); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mutations blocked behind a slow subscriber")
	}
	close(release)

	// Overflow shows up as dropped events
	assert.Eventually(t, func() bool {
		return s.GetMetrics().EventsDropped > 0
	}, 5*time.Second, 10*time.Millisecond)
}
