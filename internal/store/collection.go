// Package store holds the in-memory entity collections and the state
// container that owns them.
package store

import (
	"slices"
	"sync/atomic"

	"costbook/internal/core"
)

var versions atomic.Uint64

// nextVersion is process wide, so two collections never report the same
// version and memo keys built from versions cannot collide.
func nextVersion() uint64 {
	return versions.Add(1)
}

// Collection is an insertion ordered list of records with unique ids.
// It is not safe for concurrent use; State serializes access.
type Collection[T core.Record] struct {
	records []T
	version uint64
}

// NewCollection returns a collection holding a copy of records.
func NewCollection[T core.Record](records []T) *Collection[T] {
	return &Collection[T]{records: slices.Clone(records), version: nextVersion()}
}

// Add appends r. Uniqueness of r's id is the caller's responsibility.
func (c *Collection[T]) Add(r T) {
	c.records = append(c.records, r)
	c.version = nextVersion()
}

// UpdateByID replaces the first record with the given id by update(record).
// It returns false and leaves the collection untouched when id is unknown.
func (c *Collection[T]) UpdateByID(id string, update func(T) T) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.records[i] = update(c.records[i])
	c.version = nextVersion()
	return true
}

// DeleteByID removes the first record with the given id, keeping the order
// of the others. It returns false when id is unknown.
func (c *Collection[T]) DeleteByID(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.records = slices.Delete(c.records, i, i+1)
	c.version = nextVersion()
	return true
}

// Replace swaps the whole content, as on restore.
func (c *Collection[T]) Replace(records []T) {
	c.records = slices.Clone(records)
	c.version = nextVersion()
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.records[i], true
	}
	var zero T
	return zero, false
}

// All returns a copy of the records in insertion order.
func (c *Collection[T]) All() []T {
	return slices.Clone(c.records)
}

func (c *Collection[T]) Len() int {
	return len(c.records)
}

// Version changes every time the content changes and never otherwise.
func (c *Collection[T]) Version() uint64 {
	return c.version
}

func (c *Collection[T]) index(id string) int {
	return slices.IndexFunc(c.records, func(r T) bool { return r.Identity() == id })
}
