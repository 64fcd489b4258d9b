package sim

import (
	"github.com/rs/xid"
)

// A SequenceGenerator hands out monotonically increasing numbers. Each memory
// management unit owns the generators for its page IDs, pointer IDs, and disk
// addresses.
type SequenceGenerator struct {
	start uint64
	next  uint64
}

// NewSequenceGenerator creates a generator whose first number is start.
func NewSequenceGenerator(start uint64) *SequenceGenerator {
	return &SequenceGenerator{
		start: start,
		next:  start,
	}
}

// Next returns the next number and advances the generator.
func (g *SequenceGenerator) Next() uint64 {
	n := g.next
	g.next++

	return n
}

// Peek returns the number that the next call to Next will return.
func (g *SequenceGenerator) Peek() uint64 {
	return g.next
}

// Reset rewinds the generator to its starting number.
func (g *SequenceGenerator) Reset() {
	g.next = g.start
}

// GenerateRunID returns a globally unique ID for a simulation run.
func GenerateRunID() string {
	return xid.New().String()
}
