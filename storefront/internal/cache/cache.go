package cache

import (
	"context"
	"errors"

	"github.com/fjod/marketplace/storefront/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type CartCache interface {
	Get(ctx context.Context, sessionID string) (domain.CartState, error)
	Set(ctx context.Context, sessionID string, state domain.CartState) error
	Delete(ctx context.Context, sessionID string) error
}

// MarkerStore holds the PendingCheckout marker of a session. Take reads and
// removes it in one step so a refreshed success page finds nothing.
type MarkerStore interface {
	Put(ctx context.Context, sessionID string, marker domain.PendingCheckout) error
	Take(ctx context.Context, sessionID string) (domain.PendingCheckout, bool, error)
	Delete(ctx context.Context, sessionID string) error
}
