package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "rl:auth:"

// RedisStore shares fixed-window counters across instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr bumps the key's counter and stamps the window TTL on first hit. The
// INCR and EXPIRE NX pair runs in one pipeline round trip.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := counterKeyPrefix + key

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	ttl := pipe.TTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	reset := ttl.Val()
	if reset < 0 {
		reset = window
	}
	return incr.Val(), reset, nil
}
