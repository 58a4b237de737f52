package register

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPendingStore is the production pending-registration store.
// Records expire via redis TTL, so unresolved registrations need no
// reaper. Take uses GETDEL so single-use holds under concurrent
// callbacks for the same token.
type RedisPendingStore struct {
	client *redis.Client
}

func NewRedisPendingStore(client *redis.Client) *RedisPendingStore {
	return &RedisPendingStore{client: client}
}

func pendingKey(token string) string {
	return "pending:" + token
}

func cooldownKey(subject string) string {
	return "pending_cooldown:" + subject
}

func (s *RedisPendingStore) Create(ctx context.Context, token string, p Pending, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("register: failed to marshal pending: %w", err)
	}
	return s.client.Set(ctx, pendingKey(token), data, ttl).Err()
}

func (s *RedisPendingStore) Take(ctx context.Context, token string) (*Pending, error) {
	val, err := s.client.GetDel(ctx, pendingKey(token)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p Pending
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("register: failed to unmarshal pending: %w", err)
	}
	return &p, nil
}

func (s *RedisPendingStore) ClaimCooldown(ctx context.Context, subject string, window time.Duration) (bool, error) {
	return s.client.SetNX(ctx, cooldownKey(subject), 1, window).Result()
}

func (s *RedisPendingStore) ReleaseCooldown(ctx context.Context, subject string) error {
	return s.client.Del(ctx, cooldownKey(subject)).Err()
}
