package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Total int `json:"total"`
}

func newCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheService(client, "test:"), mr
}

func TestGetSetDelete(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	var out stats
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)

	require.NoError(t, c.Set(ctx, "k", stats{Total: 3}, time.Minute))
	assert.True(t, mr.Exists("test:k"))

	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, 3, out.Total)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
}

func TestGetOrLoad(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (stats, error) {
		calls++
		return stats{Total: 9}, nil
	}

	v, err := GetOrLoad(ctx, c, "s", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 9, v.Total)

	v, err = GetOrLoad(ctx, c, "s", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 9, v.Total)
	assert.Equal(t, 1, calls)
}

func TestGetOrLoad_LoadError(t *testing.T) {
	c, _ := newCache(t)
	_, err := GetOrLoad(context.Background(), c, "e", time.Minute, func(context.Context) (stats, error) {
		return stats{}, errors.New("down")
	})
	assert.Error(t, err)
}

func TestNilService(t *testing.T) {
	var c *CacheService
	ctx := context.Background()

	var out stats
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
	assert.NoError(t, c.Set(ctx, "k", out, time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))

	v, err := GetOrLoad(ctx, c, "k", time.Minute, func(context.Context) (stats, error) { return stats{Total: 1}, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v.Total)
}
