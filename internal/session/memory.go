package session

import (
	"context"
	"sync"

	"github.com/samantaanjo/go_storefront/internal/domain"
)

// MemoryStore implements Store with in-memory storage. Used by tests and
// single-process development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	ids      map[string]domain.Identity
	pendings map[string]*domain.PendingOrder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids:      make(map[string]domain.Identity),
		pendings: make(map[string]*domain.PendingOrder),
	}
}

func (m *MemoryStore) Identity(_ context.Context, sessionID string) (domain.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ids[sessionID]
	if !ok {
		return domain.Identity{}, ErrNoIdentity
	}
	return id, nil
}

func (m *MemoryStore) SetIdentity(_ context.Context, sessionID string, id domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[sessionID] = id
	return nil
}

func (m *MemoryStore) PendingOrder(_ context.Context, sessionID string) (*domain.PendingOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	po, ok := m.pendings[sessionID]
	if !ok {
		return nil, ErrNoPendingOrder
	}
	cp := *po
	return &cp, nil
}

func (m *MemoryStore) SetPendingOrder(_ context.Context, sessionID string, po *domain.PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *po
	m.pendings[sessionID] = &cp
	return nil
}

func (m *MemoryStore) ClearPendingOrder(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pendings, sessionID)
	return nil
}
