package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/marketplace/storefront/internal/cache"
	"github.com/fjod/marketplace/storefront/internal/client"
	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/fjod/marketplace/storefront/internal/journal"
	"github.com/fjod/marketplace/storefront/internal/publisher"
	"github.com/fjod/marketplace/storefront/internal/repository"
)

type mockRepository struct {
	m       sync.RWMutex
	states  map[string]domain.CartState
	getErr  error
	saveErr error
	saves   int
	loads   int
	block   chan struct{}
}

func newMockRepository() *mockRepository {
	return &mockRepository{states: make(map[string]domain.CartState)}
}

func (m *mockRepository) Get(ctx context.Context, sessionID string) (domain.CartState, error) {
	m.m.Lock()
	m.loads++
	block := m.block
	m.m.Unlock()
	if block != nil {
		<-block
	}
	if err := ctx.Err(); err != nil {
		return domain.CartState{}, err
	}

	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return domain.CartState{}, m.getErr
	}
	s, ok := m.states[sessionID]
	if !ok {
		return domain.CartState{}, repository.ErrCartNotFound
	}
	return s, nil
}

func (m *mockRepository) Save(_ context.Context, sessionID string, state domain.CartState) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.states[sessionID] = state
	return nil
}

func (m *mockRepository) loadCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.loads
}

func (m *mockRepository) state(sessionID string) domain.CartState {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.states[sessionID]
}

type mockCache struct {
	m      sync.RWMutex
	states map[string]domain.CartState
	getErr error
	setErr error
	gets   int
}

func newMockCache() *mockCache {
	return &mockCache{states: make(map[string]domain.CartState)}
}

func (m *mockCache) Get(_ context.Context, sessionID string) (domain.CartState, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.gets++
	if m.getErr != nil {
		return domain.CartState{}, m.getErr
	}
	s, ok := m.states[sessionID]
	if !ok {
		return domain.CartState{}, cache.ErrCacheMiss
	}
	return s, nil
}

func (m *mockCache) Set(_ context.Context, sessionID string, state domain.CartState) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.states[sessionID] = state
	return nil
}

func (m *mockCache) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.states, sessionID)
	return nil
}

func (m *mockCache) cached(sessionID string) (domain.CartState, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	s, ok := m.states[sessionID]
	return s, ok
}

type mockOrderAPI struct {
	m        sync.Mutex
	id       string
	err      error
	block    chan struct{}
	requests []client.OrderRequest
}

func (m *mockOrderAPI) CreateOrder(_ context.Context, req client.OrderRequest) (string, error) {
	if m.block != nil {
		<-m.block
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return m.id, nil
}

func (m *mockOrderAPI) calls() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.requests)
}

type mockPaymentAPI struct {
	m        sync.Mutex
	url      string
	err      error
	requests []client.PaymentRequest
}

func (m *mockPaymentAPI) InitiatePayment(ctx context.Context, req client.PaymentRequest) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.requests = append(m.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

type mockMarkerStore struct {
	m         sync.Mutex
	markers   map[string]domain.PendingCheckout
	putErr    error
	takeErr   error
	deleteErr error
	puts      int
	deletes   int
}

func newMockMarkerStore() *mockMarkerStore {
	return &mockMarkerStore{markers: make(map[string]domain.PendingCheckout)}
}

func (m *mockMarkerStore) Put(_ context.Context, sessionID string, marker domain.PendingCheckout) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.markers[sessionID] = marker
	return nil
}

func (m *mockMarkerStore) Take(_ context.Context, sessionID string) (domain.PendingCheckout, bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.takeErr != nil {
		return domain.PendingCheckout{}, false, m.takeErr
	}
	marker, ok := m.markers[sessionID]
	delete(m.markers, sessionID)
	return marker, ok, nil
}

func (m *mockMarkerStore) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.markers, sessionID)
	return nil
}

func (m *mockMarkerStore) get(sessionID string) (domain.PendingCheckout, bool) {
	m.m.Lock()
	defer m.m.Unlock()
	marker, ok := m.markers[sessionID]
	return marker, ok
}

type mockJournal struct {
	m        sync.Mutex
	attempts []journal.Attempt
	returned map[string]journal.Outcome
	err      error
}

func newMockJournal() *mockJournal {
	return &mockJournal{returned: make(map[string]journal.Outcome)}
}

func (m *mockJournal) RecordAttempt(_ context.Context, a *journal.Attempt) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *mockJournal) MarkReturned(_ context.Context, orderID string, outcome journal.Outcome) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.returned[orderID]; ok {
		return journal.ErrAttemptNotFound
	}
	m.returned[orderID] = outcome
	return nil
}

type mockEvents struct {
	m      sync.Mutex
	events []publisher.Event
	err    error
}

func (m *mockEvents) Publish(_ context.Context, e publisher.Event) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockEvents) types() []publisher.EventType {
	m.m.Lock()
	defer m.m.Unlock()
	out := make([]publisher.EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type mockCatalog struct {
	products map[string]client.Product
	err      error
}

func (m *mockCatalog) GetProduct(_ context.Context, productID string) (*client.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, client.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockCatalog) ListShopProducts(_ context.Context, sellerID string) ([]client.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []client.Product
	for _, p := range m.products {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	if out == nil {
		return nil, client.ErrShopNotFound
	}
	return out, nil
}

// clearFailingStore lets the cart load but fails to clear it.
type clearFailingStore struct {
	*CartService
}

func (s clearFailingStore) Clear(context.Context, string) (domain.CartState, error) {
	return domain.CartState{}, errors.New("mongo: write concern error")
}
