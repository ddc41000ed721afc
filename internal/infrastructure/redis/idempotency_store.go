package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyStore holds short-lived locks that keep two deliveries of the same
// webhook event from being processed concurrently. The database remains the
// source of truth; a lock only narrows the window.
type IdempotencyStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *goredis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func lockKey(scope, key string) string {
	return "idemp:" + scope + ":" + key
}

// TryLock returns false when another delivery already holds the lock.
func (s *IdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(scope, key), "1", s.ttl).Result()
}

func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, lockKey(scope, key)).Err()
}
