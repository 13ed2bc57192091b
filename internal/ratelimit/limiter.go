package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLimited     = errors.New("rate limited")
	ErrUnavailable = errors.New("rate limiter unavailable")
)

// Limiter is a fixed-window attempt counter backed by redis. It guards the
// deliberately slow credential endpoints (login, forgot-password) against
// stuffing and enumeration sweeps.
type Limiter struct {
	redis  *redis.Client
	prefix string
	max    int
	window time.Duration
}

func New(client *redis.Client, prefix string, max int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  client,
		prefix: prefix,
		max:    max,
		window: window,
	}
}

// Allow counts one attempt for key and fails with ErrLimited once the
// window budget is spent. Redis outages surface as ErrUnavailable so the
// caller can decide whether to fail open.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	redisKey := l.prefix + ":" + key

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if count > int64(l.max) {
		return ErrLimited
	}
	return nil
}

// Reset clears the counter for key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, l.prefix+":"+key).Err()
}
