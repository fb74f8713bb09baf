// Package idgen provides ports.IDGenerator implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUID generates random version 4 UUIDs.
type UUID struct{}

// NewID returns a new random UUID string.
func (UUID) NewID() string {
	return uuid.NewString()
}

// Sequence generates prefix-counter identifiers ("n1", "n2", ...).
// It is deterministic and meant for tests, golden output and the CLI.
type Sequence struct {
	Prefix  string
	counter atomic.Uint64
}

// NewSequence creates a Sequence starting after start.
func NewSequence(prefix string, start uint64) *Sequence {
	s := &Sequence{Prefix: prefix}
	s.counter.Store(start)
	return s
}

// NewID returns the next identifier. Safe for concurrent use.
func (s *Sequence) NewID() string {
	return s.Prefix + strconv.FormatUint(s.counter.Add(1), 10)
}
