// redis_ratelimit.go provides a Redis-backed rate limiter for the anonymous
// public surface. Unlike the in-memory token bucket in ratelimit.go, the
// Redis limiter is shared across all application instances, so the public
// application and view-tracking endpoints see one limit per client IP no
// matter which instance serves the request.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter wraps a redis_rate limiter with a fixed per-minute limit.
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedisRateLimiter creates a shared limiter allowing requestsPerMinute
// requests per key with the given burst.
func NewRedisRateLimiter(rdb *redis.Client, requestsPerMinute, burst int) *RedisRateLimiter {
	limit := redis_rate.PerMinute(requestsPerMinute)
	limit.Burst = burst
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		limit:   limit,
	}
}

// Middleware returns a Gin handler enforcing the limit per client IP.
// Redis errors fail open: an unreachable Redis must not take the public
// job pages down with it.
func (rl *RedisRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "public:" + c.ClientIP()

		res, err := rl.limiter.Allow(c.Request.Context(), key, rl.limit)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit.Rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
