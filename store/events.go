package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/memstore/pkg/buffer"
)

// EventType names a store lifecycle event.
type EventType string

const (
	EventItemCreated      EventType = "item:created"
	EventItemUpdated      EventType = "item:updated"
	EventItemDeleted      EventType = "item:deleted"
	EventItemAccessed     EventType = "item:accessed"
	EventStoreCleared     EventType = "store:cleared"
	EventStoreRestored    EventType = "store:restored"
	EventStoreDestroyed   EventType = "store:destroyed"
	EventCleanupCompleted EventType = "cleanup:completed"
)

// Event carries one store mutation to subscribers. Item and Previous are
// snapshots taken at mutation time; handlers may retain or modify them
// freely. Previous is set only on item:updated. Count carries the prior
// item count on store:cleared, the restored count on store:restored, and
// the removal count on cleanup:completed; Duration is set only on
// cleanup:completed.
type Event struct {
	Store     string        `json:"store"`
	Type      EventType     `json:"type"`
	ItemID    string        `json:"item_id,omitempty"`
	Item      *Item         `json:"item,omitempty"`
	Previous  *Item         `json:"previous,omitempty"`
	Count     int           `json:"count,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Handler receives events for one subscription. Handlers run on the store's
// dispatcher goroutine; a slow handler delays later events but never blocks
// store mutations.
type Handler func(Event)

// Subscription identifies one registered handler so it can be removed.
// Handlers themselves are not comparable, so Off takes the handle returned
// by On.
type Subscription struct {
	id    uint64
	event EventType
}

// Event returns the event type the subscription listens for.
func (s *Subscription) Event() EventType {
	return s.event
}

// emitter fans store events out to subscribers through a bounded queue.
// publish never blocks: when the queue is full the oldest pending event is
// dropped and counted.
type emitter struct {
	store  string
	logger *slog.Logger
	rec    *metricsRecorder

	mu     sync.RWMutex
	subs   map[EventType]map[uint64]Handler
	nextID atomic.Uint64
	closed bool

	queue buffer.Buffer[Event]
	done  chan struct{}
}

func newEmitter(store string, bufferSize int, logger *slog.Logger, rec *metricsRecorder) *emitter {
	e := &emitter{
		store:  store,
		logger: logger,
		rec:    rec,
		subs:   make(map[EventType]map[uint64]Handler),
		done:   make(chan struct{}),
	}
	e.queue = buffer.NewRing[Event](bufferSize,
		buffer.WithOverflowPolicy[Event](buffer.DropOldest),
		buffer.WithDropCallback[Event](e.onDrop),
	)
	go e.dispatch()
	return e
}

// on registers a handler for an event type.
func (e *emitter) on(event EventType, handler Handler) *Subscription {
	if handler == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	sub := &Subscription{id: e.nextID.Add(1), event: event}
	handlers := e.subs[event]
	if handlers == nil {
		handlers = make(map[uint64]Handler)
		e.subs[event] = handlers
	}
	handlers[sub.id] = handler
	return sub
}

// off removes a subscription. Returns false if it was already removed.
func (e *emitter) off(sub *Subscription) bool {
	if sub == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	handlers, ok := e.subs[sub.event]
	if !ok {
		return false
	}
	if _, exists := handlers[sub.id]; !exists {
		return false
	}
	delete(handlers, sub.id)
	if len(handlers) == 0 {
		delete(e.subs, sub.event)
	}
	return true
}

// publish enqueues an event for asynchronous delivery. Called after the
// store mutex is released, with a snapshot taken under the lock.
func (e *emitter) publish(event Event) {
	e.mu.RLock()
	closed := e.closed
	hasSubs := len(e.subs[event.Type]) > 0
	e.mu.RUnlock()

	if closed || !hasSubs {
		return
	}
	_ = e.queue.Write(event)
}

// dispatch drains the queue and delivers events to subscribers until the
// queue is closed and empty.
func (e *emitter) dispatch() {
	defer close(e.done)

	for {
		event, ok := e.queue.Next()
		if !ok {
			return
		}

		e.mu.RLock()
		handlers := make([]Handler, 0, len(e.subs[event.Type]))
		for _, h := range e.subs[event.Type] {
			handlers = append(handlers, h)
		}
		e.mu.RUnlock()

		for _, handler := range handlers {
			e.deliver(handler, event)
		}
		if len(handlers) > 0 {
			e.rec.eventDispatched(event.Type, len(handlers))
		}
	}
}

// deliver invokes one handler, isolating the dispatcher from panics.
func (e *emitter) deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked",
				"store", e.store,
				"event", string(event.Type),
				"panic", r)
		}
	}()
	handler(event)
}

func (e *emitter) onDrop(event Event) {
	e.rec.eventDropped()
	e.logger.Warn("event dropped, dispatch queue full",
		"store", e.store,
		"event", string(event.Type),
		"item_id", event.ItemID)
}

// close stops accepting events and blocks until pending events are
// delivered.
func (e *emitter) close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	e.mu.Unlock()

	_ = e.queue.Close()
	<-e.done
}
