package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gtm-backend/internal/features/giveaway/repository"
)

// Deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrNotOwner = errors.New("lock is held by another owner")

type lockRepository struct {
	client redis.Cmdable
}

func NewLockRepository(client redis.Cmdable) repository.Locker {
	return &lockRepository{client: client}
}

func (r *lockRepository) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return "", repository.ErrAlreadyLocked
	}
	return token, nil
}

func (r *lockRepository) ReleaseLock(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return ErrNotOwner
	}
	return nil
}
