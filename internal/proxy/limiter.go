package proxy

import (
	"context"
	"time"

	"hackathon-gateway/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter caps concurrent uploads per caller.
type Limiter interface {
	// Acquire returns ok=false when key is at its cap. release must be
	// called once when ok is true.
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// NoopLimiter never limits.
type NoopLimiter struct{}

func (NoopLimiter) Acquire(ctx context.Context, key string) (func(), bool, error) {
	return func() {}, true, nil
}

// RedisLimiter shares the cap across gateway replicas.
type RedisLimiter struct {
	rdb   redis.Scripter
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb redis.Scripter, limit int, ttl time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 2
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) Acquire(ctx context.Context, key string) (func(), bool, error) {
	k := "uploads:inflight:" + key
	ok, err := utils.AcquireSlot(ctx, l.rdb, k, l.limit, l.ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// The request context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = utils.ReleaseSlot(ctx, l.rdb, k)
	}
	return release, true, nil
}
