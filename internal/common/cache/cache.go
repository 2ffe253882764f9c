package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gtm-backend/internal/common/logger"
)

var ErrMiss = errors.New("cache miss")

// CacheService stores JSON values in Redis. A nil service or client turns
// every call into a miss so callers can run without Redis.
type CacheService struct {
	client redis.Cmdable
	prefix string
}

func NewCacheService(client redis.Cmdable, prefix string) *CacheService {
	return &CacheService{client: client, prefix: prefix}
}

func (c *CacheService) enabled() bool {
	return c != nil && c.client != nil
}

func (c *CacheService) key(k string) string {
	return c.prefix + k
}

func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled() {
		return ErrMiss
	}
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Cache failures are logged and never fail the call.
func GetOrLoad[T any](ctx context.Context, c *CacheService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return value, nil
}
