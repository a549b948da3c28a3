package repository

import (
	"context"
	"sync"

	"github.com/fjod/marketplace/storefront/internal/domain"
)

// MemoryRepository keeps cart state in process. Used when no MongoDB is
// configured and in tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	states map[string]domain.CartState
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: make(map[string]domain.CartState)}
}

func (m *MemoryRepository) Get(_ context.Context, sessionID string) (domain.CartState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[sessionID]
	if !ok {
		return domain.CartState{}, ErrCartNotFound
	}
	return copyState(state), nil
}

func (m *MemoryRepository) Save(_ context.Context, sessionID string, state domain.CartState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[sessionID] = copyState(state)
	return nil
}

func copyState(s domain.CartState) domain.CartState {
	items := make([]domain.CartLineItem, len(s.Items))
	copy(items, s.Items)
	return domain.CartState{Items: items, Checkout: s.Checkout}
}
