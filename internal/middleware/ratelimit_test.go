package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCheckRateLimit(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	rdb := newTestRedis(t)
	ctx := context.Background()

	t.Run("allows under the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := CheckRateLimit(ctx, rdb, "posts.create", "user:1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "request %d should be allowed", i+1)
		}
	})

	t.Run("blocks over the limit", func(t *testing.T) {
		ok, err := CheckRateLimit(ctx, rdb, "posts.create", "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("separate identities have separate budgets", func(t *testing.T) {
		ok, err := CheckRateLimit(ctx, rdb, "posts.create", "user:2", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("nil client errors", func(t *testing.T) {
		_, err := CheckRateLimit(ctx, nil, "posts.create", "user:1", 3, time.Minute)
		assert.Error(t, err)
	})
}

func TestCheckRateLimitDisabledOutsideProduction(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	ctx := context.Background()

	// Even with no Redis at all, non-production environments pass.
	for i := 0; i < 100; i++ {
		ok, err := CheckRateLimit(ctx, nil, "anything", "user:1", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
