package store

import (
	"context"
	"sync"

	"github.com/socratic-labs/dialogue/internal/domain"
)

// MemoryStore keeps sessions in a process-local map. It is safe for
// concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

// GetOrCreate returns the session for id, creating it lazily.
func (m *MemoryStore) GetOrCreate(_ context.Context, id string, init InitFunc) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id, init).Clone(), nil
}

// Put overwrites the session for id.
func (m *MemoryStore) Put(_ context.Context, id string, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = session.Clone()
	return nil
}

// Update applies fn to a copy of the session and stores it when fn succeeds.
func (m *MemoryStore) Update(_ context.Context, id string, init InitFunc, fn MutateFunc) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.loadLocked(id, init).Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	m.sessions[id] = working
	return working.Clone(), nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// loadLocked returns the stored session, creating it if needed; caller must
// hold m.mu.
func (m *MemoryStore) loadLocked(id string, init InitFunc) *domain.Session {
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := init()
	m.sessions[id] = s
	return s
}
