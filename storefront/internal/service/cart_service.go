package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/marketplace/storefront/internal/cache"
	"github.com/fjod/marketplace/storefront/internal/cart"
	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/fjod/marketplace/storefront/internal/metrics"
	"github.com/fjod/marketplace/storefront/internal/repository"
	"github.com/fjod/marketplace/storefront/internal/shipping"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const loadTimeout = 5 * time.Second

// CartService owns the cart state of every session. It loads a snapshot,
// applies a pure reducer from the cart package and saves the result.
type CartService struct {
	repo    repository.CartStateRepository
	cache   cache.CartCache
	sfg     singleflight.Group // Prevents cache stampede
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewCartService(repo repository.CartStateRepository, c cache.CartCache, m *metrics.Metrics, log logrus.FieldLogger) *CartService {
	return &CartService{
		repo:    repo,
		cache:   c,
		log:     log,
		metrics: m,
	}
}

// GetState returns the session's cart, or an empty one for a new session.
// The returned slices are shared and must not be modified in place.
//
// Concurrent loads of one session share a single read. The shared read does
// not inherit the first caller's cancellation, so one aborted request cannot
// fail the others waiting on it.
func (s *CartService) GetState(ctx context.Context, sessionID string) (domain.CartState, error) {
	ch := s.sfg.DoChan(sessionID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.load(loadCtx, sessionID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.CartState{}, res.Err
		}
		return res.Val.(domain.CartState), nil
	case <-ctx.Done():
		return domain.CartState{}, ctx.Err()
	}
}

func (s *CartService) load(ctx context.Context, sessionID string) (domain.CartState, error) {
	state, err := s.cache.Get(ctx, sessionID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// log cache error but continue
		s.log.WithError(err).WithField("session_id", sessionID).Warn("cart cache get failed")
		s.metrics.SideEffectError("cache_get")
	}

	state, err = s.repo.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCartState(), nil
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("load cart state: %w", err)
	}

	// synchronous so a stale fill cannot land after the next write
	s.setCache(sessionID, state)
	return state, nil
}

// Mutate applies fn to the current snapshot and persists the result. Two
// concurrent mutations of one session are last-write-wins.
func (s *CartService) Mutate(ctx context.Context, sessionID string, fn func(domain.CartState) domain.CartState) (domain.CartState, error) {
	state, err := s.GetState(ctx, sessionID)
	if err != nil {
		return domain.CartState{}, err
	}

	next := fn(state)
	if err := s.repo.Save(ctx, sessionID, next); err != nil {
		return domain.CartState{}, fmt.Errorf("save cart state: %w", err)
	}

	s.setCache(sessionID, next)
	return next, nil
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, item domain.CartLineItem) (domain.CartState, error) {
	return s.Mutate(ctx, sessionID, func(st domain.CartState) domain.CartState {
		return cart.AddItem(st, item)
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, key domain.LineKey, quantity int) (domain.CartState, error) {
	return s.Mutate(ctx, sessionID, func(st domain.CartState) domain.CartState {
		return cart.UpdateQuantity(st, key, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, key domain.LineKey) (domain.CartState, error) {
	return s.Mutate(ctx, sessionID, func(st domain.CartState) domain.CartState {
		return cart.RemoveItem(st, key)
	})
}

func (s *CartService) Clear(ctx context.Context, sessionID string) (domain.CartState, error) {
	return s.Mutate(ctx, sessionID, cart.Clear)
}

func (s *CartService) SetCheckoutInfo(ctx context.Context, sessionID string, patch domain.ContactPatch) (domain.CartState, error) {
	if patch.PaymentMethod != nil && !patch.PaymentMethod.Valid() {
		return domain.CartState{}, &ValidationError{
			Fields:  []string{"payment_method"},
			Message: "Please choose a supported payment method.",
		}
	}
	return s.Mutate(ctx, sessionID, func(st domain.CartState) domain.CartState {
		return cart.SetCheckoutInfo(st, patch)
	})
}

func (s *CartService) Summary(ctx context.Context, sessionID string) (shipping.Quote, error) {
	state, err := s.GetState(ctx, sessionID)
	if err != nil {
		return shipping.Quote{}, err
	}
	return shipping.Summarize(state), nil
}

// setCache writes through after a load or save. A failed write drops the
// entry instead so readers never see an older snapshot than the repository.
func (s *CartService) setCache(sessionID string, state domain.CartState) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.cache.Set(ctx, sessionID, state)
	if err == nil {
		return
	}
	s.log.WithError(err).WithField("session_id", sessionID).Warn("cart cache set failed")
	s.metrics.SideEffectError("cache_set")

	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("cart cache invalidate failed")
		s.metrics.SideEffectError("cache_invalidate")
	}
}
