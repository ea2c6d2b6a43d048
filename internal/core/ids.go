package core

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces collision resistant record identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator issues prefix-1, prefix-2, ... and is meant for tests.
type SequenceGenerator struct {
	Prefix string

	mu   sync.Mutex
	next int
}

func (g *SequenceGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.Prefix + "-" + strconv.Itoa(g.next)
}
