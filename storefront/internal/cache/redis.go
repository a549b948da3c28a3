package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Key prefixes carry a schema version so a shape change can be rolled out
// without reading stale blobs.
const (
	cartKeyPrefix   = "storefront:cart:v1:"
	markerKeyPrefix = "storefront:pending-order:v1:"
)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, sessionID string) (domain.CartState, error) {
	data, err := r.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CartState{}, ErrCacheMiss
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("redis get failed: %w", err)
	}

	var state domain.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.CartState{}, fmt.Errorf("unmarshal cart state failed: %w", err)
	}
	if state.Items == nil {
		state.Items = []domain.CartLineItem{}
	}
	return state, nil
}

func (r *RedisCache) Set(ctx context.Context, sessionID string, state domain.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart state failed: %w", err)
	}

	// jitter spreads expiry of carts written in the same burst
	ttl := r.baseTTL + time.Duration(rand.IntN(5))*time.Minute
	if err := r.client.Set(ctx, cartKey(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

type RedisMarkerStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMarkerStore expires markers after ttl so an abandoned gateway tab
// does not pin one forever. A zero ttl keeps them until consumed.
func NewRedisMarkerStore(client *redis.Client, ttl time.Duration) *RedisMarkerStore {
	return &RedisMarkerStore{client: client, ttl: ttl}
}

func (r *RedisMarkerStore) Put(ctx context.Context, sessionID string, marker domain.PendingCheckout) error {
	data, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("marshal pending checkout failed: %w", err)
	}
	if err := r.client.Set(ctx, markerKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisMarkerStore) Take(ctx context.Context, sessionID string) (domain.PendingCheckout, bool, error) {
	data, err := r.client.GetDel(ctx, markerKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingCheckout{}, false, nil
	}
	if err != nil {
		return domain.PendingCheckout{}, false, fmt.Errorf("redis getdel failed: %w", err)
	}

	var marker domain.PendingCheckout
	if err := json.Unmarshal(data, &marker); err != nil {
		return domain.PendingCheckout{}, false, fmt.Errorf("unmarshal pending checkout failed: %w", err)
	}
	return marker, true, nil
}

func (r *RedisMarkerStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, markerKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(sessionID string) string {
	return cartKeyPrefix + sessionID
}

func markerKey(sessionID string) string {
	return markerKeyPrefix + sessionID
}
