package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aihub-gateway/internal/config"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestUsageCounter(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	count, found, err := cache.GetUsageCount(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, count)

	got, err := cache.IncrementUsage(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = cache.IncrementUsage(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	count, found, err = cache.GetUsageCount(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, count)
}

func TestIncrementUsageConcurrent(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.IncrementUsage(ctx, "user_race")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, _, err := cache.GetUsageCount(ctx, "user_race")
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestGetUsageCountNotNumber(t *testing.T) {
	cache, mr := setupTestCache(t)

	require.NoError(t, mr.Set("usage:user_1", "not-a-number"))

	_, _, err := cache.GetUsageCount(context.Background(), "user_1")
	assert.Error(t, err)
}

func TestSeenAndRemember(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	seen, err := cache.Seen(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.Remember(ctx, "stripe", "evt_1", time.Hour))

	seen, err = cache.Seen(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = cache.Seen(ctx, "identity", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "sources must not share event ids")

	mr.FastForward(2 * time.Hour)
	seen, err = cache.Seen(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:9999",
		DialTimeout:  100 * time.Millisecond,
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
