// Package ids provides collision-resistant identifier generation for store
// items. The default generator produces UUIDv4 strings; tests substitute a
// deterministic sequence generator through the Generator interface.
package ids

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique identifiers for items created without one.
type Generator interface {
	NewID() string
}

// UUIDGenerator generates random UUIDv4 identifiers.
type UUIDGenerator struct{}

// NewUUIDGenerator returns the default production generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a new random UUID string.
func (g *UUIDGenerator) NewID() string {
	return uuid.New().String()
}

// SequenceGenerator produces predictable identifiers with a fixed prefix,
// intended for tests that assert on generated IDs.
type SequenceGenerator struct {
	prefix string
	next   atomic.Int64
}

// NewSequenceGenerator returns a generator yielding "<prefix>-1",
// "<prefix>-2", and so on.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next identifier in the sequence.
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.next.Add(1))
}
