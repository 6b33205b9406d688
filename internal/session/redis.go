package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samantaanjo/go_storefront/internal/domain"
)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    24 * time.Hour,
	}
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (r RedisStore) Identity(ctx context.Context, sessionID string) (domain.Identity, error) {
	raw, err := r.client.Get(ctx, identityKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, ErrNoIdentity
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("redis get identity failed: %w", err)
	}
	return domain.ParseIdentity(raw)
}

func (r RedisStore) SetIdentity(ctx context.Context, sessionID string, id domain.Identity) error {
	if err := r.client.Set(ctx, identityKey(sessionID), id.String(), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set identity failed: %w", err)
	}
	return nil
}

func (r RedisStore) PendingOrder(ctx context.Context, sessionID string) (*domain.PendingOrder, error) {
	data, err := r.client.Get(ctx, pendingOrderKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPendingOrder
	}
	if err != nil {
		return nil, fmt.Errorf("redis get pending order failed: %w", err)
	}

	var po domain.PendingOrder
	if err2 := json.Unmarshal(data, &po); err2 != nil {
		return nil, fmt.Errorf("unmarshal pending order failed: %w", err2)
	}
	return &po, nil
}

func (r RedisStore) SetPendingOrder(ctx context.Context, sessionID string, po *domain.PendingOrder) error {
	data, err := json.Marshal(po)
	if err != nil {
		return fmt.Errorf("marshal pending order failed: %w", err)
	}
	if err := r.client.Set(ctx, pendingOrderKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set pending order failed: %w", err)
	}
	return nil
}

func (r RedisStore) ClearPendingOrder(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, pendingOrderKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete pending order failed: %w", err)
	}
	return nil
}

func identityKey(sessionID string) string {
	return fmt.Sprintf("session:%s:identity", sessionID)
}

func pendingOrderKey(sessionID string) string {
	return fmt.Sprintf("session:%s:pending_order", sessionID)
}
