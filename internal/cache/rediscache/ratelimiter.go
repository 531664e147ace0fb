package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter sharing the cache's connection pool.
type RateLimiter struct {
	c      *redis.Client
	prefix string
}

func (r *RedisCache) RateLimiter() *RateLimiter {
	return &RateLimiter{c: r.c, prefix: r.prefix + "rl:"}
}

// Allow counts one hit against key and reports whether the count is still
// within limit. The window starts with the first hit; later hits do not
// extend it.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	k := rl.prefix + key
	var incr *redis.IntCmd
	_, err := rl.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return false, 0, errors.Wrapf(err, "redis ratelimit %s", key)
	}
	n := incr.Val()
	return n <= limit, n, nil
}
