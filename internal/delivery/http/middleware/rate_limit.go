package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go-recruitment-scheduler/internal/delivery/http/response"
	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/audit"
	"go-recruitment-scheduler/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Custom key extractor (default: user id, then IP)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis (default: "rl:sched:")
	KeyPrefix string
	// Whether to fail closed (reject) when Redis is unavailable
	FailClosed bool
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

// WriteRateLimitConfig limits booking writes per caller.
func WriteRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:      limit,
		Window:     window,
		KeyPrefix:  "rl:sched:",
		FailClosed: false, // Fail open for availability
		KeyFunc: func(c *gin.Context) string {
			if id := c.GetString(string(domain.KeyUserID)); id != "" {
				return "user:" + id
			}
			return "ip:" + c.ClientIP()
		},
	}
}

// RateLimitMiddleware uses Redis when client is non-nil and falls back to a
// per-key token bucket in this process otherwise.
func RateLimitMiddleware(client *goredis.Client, config RateLimitConfig, auditLog *audit.Logger) gin.HandlerFunc {
	fallback := newLocalLimiter(config)

	return func(c *gin.Context) {
		fullKey := config.KeyPrefix + config.KeyFunc(c)

		var (
			allowed   bool
			remaining int
			resetAt   time.Time
		)
		if client != nil {
			count, reset, err := checkRateLimitRedis(c.Request.Context(), client, fullKey, config)
			if err != nil {
				logger.Log.Warn("redis rate limit failed", "error", err)
				if config.FailClosed {
					response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", nil)
					c.Abort()
					return
				}
				allowed, remaining, resetAt = fallback.allow(fullKey)
			} else {
				allowed, remaining, resetAt = count <= config.Limit, config.Limit-count, reset
			}
		} else {
			allowed, remaining, resetAt = fallback.allow(fullKey)
		}
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			auditLog.Log(c.Request.Context(), audit.Event{
				Event:   audit.EventRateLimitTriggered,
				ActorID: c.GetString(string(domain.KeyUserID)),
				Details: map[string]interface{}{"path": c.FullPath()},
			})
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// checkRateLimitRedis checks rate limit using Redis with atomic Lua script
func checkRateLimitRedis(ctx context.Context, client *goredis.Client, key string, config RateLimitConfig) (int, time.Time, error) {
	ttlSeconds := int(config.Window.Seconds())

	result, err := client.Eval(ctx, rateLimitLuaScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), time.Now().Add(time.Duration(ttl) * time.Second), nil
}

// localLimiter keeps one token bucket per key. Buckets refill at
// Limit/Window and hold at most Limit tokens.
type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	limit    rate.Limit
	burst    int
	window   time.Duration
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiter(config RateLimitConfig) *localLimiter {
	window := config.Window
	if window <= 0 {
		window = time.Minute
	}
	burst := config.Limit
	if burst <= 0 {
		burst = 1
	}
	return &localLimiter{
		limiters: make(map[string]*localEntry),
		limit:    rate.Limit(float64(burst) / window.Seconds()),
		burst:    burst,
		window:   window,
	}
}

func (l *localLimiter) allow(key string) (bool, int, time.Time) {
	now := time.Now()

	l.mu.Lock()
	e, ok := l.limiters[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.sweep(now)
	l.mu.Unlock()

	allowed := e.limiter.AllowN(now, 1)
	remaining := int(e.limiter.TokensAt(now))
	resetAt := now.Add(time.Duration(float64(time.Second) / float64(l.limit)))
	return allowed, remaining, resetAt
}

// sweep drops buckets idle for two windows. Callers hold l.mu.
func (l *localLimiter) sweep(now time.Time) {
	if len(l.limiters) < 1024 {
		return
	}
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > 2*l.window {
			delete(l.limiters, k)
		}
	}
}
