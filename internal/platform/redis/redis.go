package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gtm-backend/internal/common/config"
	"gtm-backend/internal/common/logger"
)

// Client wraps the go-redis client shared by locks, the job stream and the stats cache.
type Client struct {
	*redis.Client
}

// Open creates a client and pings it.
func Open(ctx context.Context, addr, password string, db int) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: c}, nil
}

// OpenOptional returns nil without error when Redis is not configured.
func OpenOptional(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn().Msg("REDIS_ADDR not set; running without distributed lock, cache and job queue")
		return nil, nil
	}
	c, err := Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("redis client initialized")
	return c, nil
}
