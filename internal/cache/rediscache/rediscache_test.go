package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Set(ctx, "intent:k1", []byte("pi_secret"), time.Minute))

	b, ok, err := c.Get(ctx, "intent:k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("pi_secret"), b)
	require.True(t, mr.Exists("parcelbox:intent:k1"))
}

func TestRedisCache_MissAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	_, ok, err := c.Get(ctx, "absent")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)
	_, ok, err = c.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_ErrorWrapped(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis get")
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })
	rl := c.RateLimiter()

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "intent:ann@example.com", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "intent:ann@example.com", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "intent:ann@example.com", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)

	// a fresh window starts after expiry
	mr.FastForward(61 * time.Second)
	ok, n, _ = rl.Allow(ctx, "intent:ann@example.com", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(1), n)
	require.True(t, mr.Exists("parcelbox:rl:intent:ann@example.com"))
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := New(mr.Addr()).RateLimiter()

	ctx := context.Background()
	ok, _, err := rl.Allow(ctx, "intent:ann@example.com", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	ok, _, _ = rl.Allow(ctx, "intent:ann@example.com", 1, time.Minute)
	require.False(t, ok)

	ok, n, err := rl.Allow(ctx, "intent:bob@example.com", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}

func TestRateLimiter_ErrorWrapped(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := New(mr.Addr()).RateLimiter()
	mr.Close()

	_, _, err := rl.Allow(context.Background(), "intent:x", 1, time.Minute)
	require.ErrorContains(t, err, "redis ratelimit intent:x")
}
