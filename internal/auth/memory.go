package auth

import (
	"context"
	"sync"
)

// MemoryUsers is a UserStore kept in process memory.
type MemoryUsers struct {
	mu      sync.RWMutex
	byEmail map[string]User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byEmail: make(map[string]User)}
}

func (m *MemoryUsers) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrUserExists
	}
	m.byEmail[u.Email] = u
	return nil
}

func (m *MemoryUsers) UserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// MemorySessions is a SessionStore kept in process memory.
type MemorySessions struct {
	mu      sync.Mutex
	current *Session
}

func (m *MemorySessions) LoadSession(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, ErrNoSession
	}
	return *m.current, nil
}

func (m *MemorySessions) SaveSession(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &s
	return nil
}

func (m *MemorySessions) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}
