// Package buffer provides a generic, thread-safe bounded ring buffer with
// configurable overflow policies.
//
// Stores use it as the event dispatch queue: mutations enqueue lifecycle
// events without blocking, and a dispatcher goroutine drains the buffer and
// delivers to subscribers. The DropOldest policy bounds memory when a
// subscriber cannot keep up; drops are observable through Statistics and an
// optional drop callback.
package buffer

// Buffer is a bounded FIFO queue parameterized by item type T.
type Buffer[T any] interface {
	// Write adds an item to the buffer. Behavior when full depends on the
	// overflow policy. Returns an error only after Close.
	Write(item T) error

	// Read retrieves and removes one item without blocking.
	// Returns zero value and false if the buffer is empty.
	Read() (T, bool)

	// Next blocks until an item is available or the buffer is closed and
	// drained. Returns zero value and false only on closed-and-drained.
	Next() (T, bool)

	// ReadBatch retrieves and removes up to max items without blocking.
	ReadBatch(max int) []T

	// Size returns the current number of buffered items.
	Size() int

	// Capacity returns the maximum number of items the buffer can hold.
	Capacity() int

	// Clear removes all buffered items.
	Clear()

	// Stats returns buffer statistics. Never nil.
	Stats() *Statistics

	// Close marks the buffer closed. Pending items remain readable;
	// subsequent writes fail and Next returns false once drained.
	Close() error
}

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the buffer is full.
	DropNewest

	// Block causes Write operations to block until space is available.
	Block
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	case Block:
		return "Block"
	default:
		return "Unknown"
	}
}

// DropCallback is called with every item discarded by an overflow policy.
type DropCallback[T any] func(item T)

// Option configures buffer behavior using the functional options pattern.
type Option[T any] func(*ringOptions[T])

type ringOptions[T any] struct {
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[T]
}

// WithOverflowPolicy sets the behavior when the buffer is full.
// The default is DropOldest.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(opts *ringOptions[T]) {
		opts.overflowPolicy = policy
	}
}

// WithDropCallback registers a callback invoked with every dropped item.
// The callback runs outside the buffer lock.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *ringOptions[T]) {
		opts.dropCallback = callback
	}
}

// NewRing creates a bounded ring buffer with the given capacity.
// Capacities below 1 are clamped to 1.
func NewRing[T any](capacity int, options ...Option[T]) Buffer[T] {
	opts := &ringOptions[T]{overflowPolicy: DropOldest}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return newRing(capacity, opts)
}
