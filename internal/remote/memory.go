package remote

import (
	"context"
	"slices"
	"sync"

	"costbook/internal/core"
)

type scope struct {
	user string
	kind core.Kind
}

// Memory is a Store held in process memory. Documents keep creation order.
type Memory struct {
	mu   sync.RWMutex
	docs map[scope][]Document
	ids  core.IDGenerator
}

// NewMemory returns an empty store. ids assigns remote ids to documents
// created without one; nil uses UUIDs.
func NewMemory(ids core.IDGenerator) *Memory {
	if ids == nil {
		ids = core.UUIDGenerator{}
	}
	return &Memory{docs: make(map[scope][]Document), ids: ids}
}

func (m *Memory) Create(ctx context.Context, user string, kind core.Kind, doc Document) (string, error) {
	if err := CheckScope(user, kind); err != nil {
		return "", err
	}
	if doc.ID == "" {
		doc.ID = m.ids.NewID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scope{user, kind}
	if i := indexOf(m.docs[key], doc.ID); i >= 0 {
		// a replayed create overwrites the stored document
		m.docs[key][i] = doc
		return doc.ID, nil
	}
	m.docs[key] = append(m.docs[key], doc)
	return doc.ID, nil
}

func (m *Memory) Update(ctx context.Context, user string, kind core.Kind, id string, doc Document) error {
	if err := CheckScope(user, kind); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scope{user, kind}
	i := indexOf(m.docs[key], id)
	if i < 0 {
		return ErrNotFound
	}
	doc.ID = id
	m.docs[key][i] = doc
	return nil
}

func (m *Memory) Delete(ctx context.Context, user string, kind core.Kind, id string) error {
	if err := CheckScope(user, kind); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scope{user, kind}
	i := indexOf(m.docs[key], id)
	if i < 0 {
		return ErrNotFound
	}
	m.docs[key] = slices.Delete(m.docs[key], i, i+1)
	return nil
}

func (m *Memory) ListAll(ctx context.Context, user string, kind core.Kind) ([]Document, error) {
	if err := CheckScope(user, kind); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.docs[scope{user, kind}]), nil
}

func indexOf(docs []Document, id string) int {
	return slices.IndexFunc(docs, func(d Document) bool { return d.ID == id })
}

var _ Store = (*Memory)(nil)
