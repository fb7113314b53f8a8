package soundlake

import (
	"sync/atomic"
)

// INexter is the interface for assigning synthetic row identifiers.
type INexter interface {
	Next() uint64
	Last() uint64
}

// Nexter is a threadsafe monotonic unique id generator. Ids are unique
// within a single run only; they are not stable across reruns.
type Nexter struct {
	id *uint64
}

// NexterOption is a functional option type for Nexter.
type NexterOption func(n *Nexter)

// NexterStartFrom returns a NexterOption which sets the first id a Nexter
// will return.
func NexterStartFrom(id uint64) NexterOption {
	return func(n *Nexter) {
		*n.id = id
	}
}

// NewNexter creates a new id generator starting at 0.
func NewNexter(opts ...NexterOption) *Nexter {
	var id uint64
	n := &Nexter{
		id: &id,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Next generates a new id and returns it.
func (n *Nexter) Next() (nextID uint64) {
	nextID = atomic.AddUint64(n.id, 1)
	return nextID - 1
}

// Last returns the most recently generated id.
func (n *Nexter) Last() (lastID uint64) {
	lastID = atomic.LoadUint64(n.id) - 1
	return
}
