package buffer

import (
	"sync"

	"github.com/c360/memstore/errors"
)

// ring is a thread-safe circular buffer with configurable overflow policies.
type ring[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	stats    *Statistics
	opts     *ringOptions[T]

	notEmpty *sync.Cond
	notFull  *sync.Cond
	closed   bool
}

func newRing[T any](capacity int, opts *ringOptions[T]) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}

	r := &ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		opts:     opts,
	}
	r.notEmpty = sync.NewCond(&r.mu)
	r.notFull = sync.NewCond(&r.mu)
	return r
}

// Write adds an item to the buffer according to the overflow policy.
func (r *ring[T]) Write(item T) error {
	var dropped T
	var haveDrop bool

	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return errors.WrapInvalid(errors.ErrClosed, "Buffer", "Write", "buffer closed")
	}

	if r.size == r.capacity {
		switch r.opts.overflowPolicy {
		case DropOldest:
			dropped = r.items[r.tail]
			r.tail = (r.tail + 1) % r.capacity
			r.size--
			r.stats.Drop()
			haveDrop = true

		case DropNewest:
			r.stats.Drop()
			r.mu.Unlock()
			if r.opts.dropCallback != nil {
				r.opts.dropCallback(item)
			}
			return nil

		case Block:
			for r.size == r.capacity && !r.closed {
				r.notFull.Wait()
			}
			if r.closed {
				r.mu.Unlock()
				return errors.WrapInvalid(errors.ErrClosed, "Buffer", "Write", "buffer closed")
			}
		}
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.size++
	r.stats.Write()
	r.stats.UpdateSize(int64(r.size))

	r.notEmpty.Signal()
	r.mu.Unlock()

	// Drop callback runs outside the lock to prevent deadlock.
	if haveDrop && r.opts.dropCallback != nil {
		r.opts.dropCallback(dropped)
	}

	return nil
}

// Read retrieves and removes one item without blocking.
func (r *ring[T]) Read() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked()
}

// Next blocks until an item is available or the buffer is closed and drained.
func (r *ring[T]) Next() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.size == 0 {
		if r.closed {
			var zero T
			return zero, false
		}
		r.notEmpty.Wait()
	}
	return r.readLocked()
}

// ReadBatch retrieves and removes up to max items without blocking.
func (r *ring[T]) ReadBatch(max int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if max > r.size {
		max = r.size
	}
	if max <= 0 {
		return nil
	}

	batch := make([]T, 0, max)
	for i := 0; i < max; i++ {
		item, ok := r.readLocked()
		if !ok {
			break
		}
		batch = append(batch, item)
	}
	return batch
}

// readLocked removes and returns the oldest item. Caller holds the mutex.
func (r *ring[T]) readLocked() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}

	item := r.items[r.tail]
	var zero T
	r.items[r.tail] = zero // release reference
	r.tail = (r.tail + 1) % r.capacity
	r.size--
	r.stats.Read()
	r.stats.UpdateSize(int64(r.size))
	r.notFull.Signal()
	return item, true
}

// Size returns the current number of buffered items.
func (r *ring[T]) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the maximum number of items the buffer can hold.
func (r *ring[T]) Capacity() int {
	return r.capacity
}

// Clear removes all buffered items.
func (r *ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.tail = 0
	r.size = 0
	r.stats.UpdateSize(0)
	r.notFull.Broadcast()
}

// Stats returns buffer statistics.
func (r *ring[T]) Stats() *Statistics {
	return r.stats
}

// Close marks the buffer closed and wakes all waiters.
func (r *ring[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.notEmpty.Broadcast()
	r.notFull.Broadcast()
	return nil
}
