package redis_test

import (
	"context"
	"testing"
	"time"

	"thirdplace-webhooks/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewRateLimitStore(client)
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := store.Allow(ctx, "10.0.0.1:events", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should be allowed", i)
			assert.Equal(t, int64(3), result.Limit)
			assert.Equal(t, 3-i, result.Remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		// 4th request should be blocked (limit is 3 from above)
		result, err := store.Allow(ctx, "10.0.0.1:events", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.Remaining)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		result, err := store.Allow(ctx, "10.0.0.2:events", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(4), result.Remaining)
	})

	t.Run("reset after window expires", func(t *testing.T) {
		result, err := store.Allow(ctx, "10.0.0.3:auth", 1, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)

		result, err = store.Allow(ctx, "10.0.0.3:auth", 1, time.Second)
		require.NoError(t, err)
		assert.False(t, result.Allowed)

		mr.FastForward(2 * time.Second)

		result, err = store.Allow(ctx, "10.0.0.3:auth", 1, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "new window should reset the counter")
	})
}

func TestHealthCheck_Ping(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	hc := redis.NewHealthCheck(client)
	assert.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, "redis", hc.Name())
}
