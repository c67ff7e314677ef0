package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"event-ticketing/internal/status"
)

// RateLimiter throttles a caller with a fixed one-minute window counter in
// Redis. Used on the booking endpoint to blunt scalper bursts.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: time.Minute,
	}
}

// Allow reports whether the identified caller may proceed. Redis being down
// fails open: throttling is protection, not correctness.
func (r *RateLimiter) Allow(ctx context.Context, identity string) error {
	if r == nil || r.redis == nil {
		return nil
	}

	key := fmt.Sprintf("ratelimit:book:%s", identity)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return nil
	}
	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}
	if count > int64(r.limit) {
		return status.ErrRateLimited
	}

	return nil
}
