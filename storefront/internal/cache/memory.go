package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/marketplace/storefront/internal/domain"
)

// NopCache never holds anything, every read is a miss.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (domain.CartState, error) {
	return domain.CartState{}, ErrCacheMiss
}

func (NopCache) Set(context.Context, string, domain.CartState) error { return nil }

func (NopCache) Delete(context.Context, string) error { return nil }

type MemoryMarkerStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	markers map[string]memoryMarker
}

type memoryMarker struct {
	marker    domain.PendingCheckout
	expiresAt time.Time
}

func NewMemoryMarkerStore(ttl time.Duration) *MemoryMarkerStore {
	return &MemoryMarkerStore{
		ttl:     ttl,
		now:     time.Now,
		markers: make(map[string]memoryMarker),
	}
}

func (m *MemoryMarkerStore) Put(_ context.Context, sessionID string, marker domain.PendingCheckout) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryMarker{marker: marker}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.markers[sessionID] = entry
	return nil
}

func (m *MemoryMarkerStore) Take(_ context.Context, sessionID string) (domain.PendingCheckout, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.markers[sessionID]
	if !ok {
		return domain.PendingCheckout{}, false, nil
	}
	delete(m.markers, sessionID)
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		return domain.PendingCheckout{}, false, nil
	}
	return entry.marker, true, nil
}

func (m *MemoryMarkerStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.markers, sessionID)
	return nil
}
