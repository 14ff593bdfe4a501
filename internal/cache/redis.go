package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// RedisCache keeps idempotency entries in Redis so replay detection works
// across instances and restarts.
type RedisCache struct {
	client *redis.Client
}

func (r *RedisCache) Get(ctx context.Context, key string) (SessionRef, error) {
	data, err := r.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionRef{}, ErrCacheMiss
	}
	if err != nil {
		return SessionRef{}, fmt.Errorf("redis get failed: %w", err)
	}

	var ref SessionRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return SessionRef{}, fmt.Errorf("unmarshal session ref failed: %w", err)
	}
	return ref, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, ref SessionRef, ttl time.Duration) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal session ref failed: %w", err)
	}
	if err := r.client.Set(ctx, cacheKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func cacheKey(key string) string {
	return "checkout:idem:" + key
}
