package repository

import (
	"context"
	"errors"

	"github.com/fjod/marketplace/storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartStateRepository is the durable copy of a session's cart. Saves replace
// the whole snapshot: concurrent tabs of one session are last-write-wins.
type CartStateRepository interface {
	Get(ctx context.Context, sessionID string) (domain.CartState, error)
	Save(ctx context.Context, sessionID string, state domain.CartState) error
}
