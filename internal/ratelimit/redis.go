package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window entries live slightly longer than the window itself so stale
// counters are reclaimed by Redis without explicit sweeping.
const redisKeyTTL = 90 * time.Second

// RedisLimiter counts requests in fixed one-minute windows keyed by a
// minute-granularity timestamp. The counter is INCR'd atomically; the first
// increment of a window sets the TTL.
type RedisLimiter struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisLimiter(rdb redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, now: time.Now}
}

func (l *RedisLimiter) Backend() string { return "redis" }

func (l *RedisLimiter) Allow(ctx context.Context, key string, perMinute int) error {
	if perMinute <= 0 {
		return ErrRateLimited
	}

	window := l.now().UTC().Format("200601021504")
	rkey := fmt.Sprintf("rl:%s:%s", key, window)

	count, err := l.rdb.Incr(ctx, rkey).Result()
	if err != nil {
		return fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, rkey, redisKeyTTL).Err(); err != nil {
			return fmt.Errorf("setting rate limit window TTL: %w", err)
		}
	}

	if count > int64(perMinute) {
		return ErrRateLimited
	}
	return nil
}
