package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, "login", max, window), mr
}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.Allow(ctx, "email:a@b.test"), "attempt %d", i+1)
	}
	assert.ErrorIs(t, limiter.Allow(ctx, "email:a@b.test"), ErrLimited)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Allow(ctx, "email:a@b.test"))
	assert.ErrorIs(t, limiter.Allow(ctx, "email:a@b.test"), ErrLimited)
	assert.NoError(t, limiter.Allow(ctx, "email:c@d.test"))
}

func TestLimiter_WindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Allow(ctx, "ip:10.0.0.1"))
	require.ErrorIs(t, limiter.Allow(ctx, "ip:10.0.0.1"), ErrLimited)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, limiter.Allow(ctx, "ip:10.0.0.1"))
}

func TestLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Allow(ctx, "email:a@b.test"))
	require.ErrorIs(t, limiter.Allow(ctx, "email:a@b.test"), ErrLimited)

	require.NoError(t, limiter.Reset(ctx, "email:a@b.test"))
	assert.NoError(t, limiter.Allow(ctx, "email:a@b.test"))
}

func TestLimiter_Unavailable(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	err := limiter.Allow(context.Background(), "email:a@b.test")
	assert.ErrorIs(t, err, ErrUnavailable)
}
