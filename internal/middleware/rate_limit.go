package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pageza/foodgram/backend/internal/logger"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// Limiter decides whether one more request for key fits in the window.
type Limiter interface {
	IsAllowed(ctx context.Context, key string) (allowed bool, remaining int, reset time.Time, err error)
	Config() RateLimitConfig
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

func (rl *RateLimiter) Config() RateLimitConfig {
	return rl.config
}

// IsAllowed counts the request in a fixed window shared by every instance
// of the API.
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()
	windowStart := now.Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := rl.redis.TxPipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetTime := windowStart.Add(rl.config.Window)
	return count <= rl.config.Limit, remaining, resetTime, nil
}

// LocalRateLimiter is an in-process token bucket per key. It is used when
// Redis is not available, so limits are per instance.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	return &LocalRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

func (l *LocalRateLimiter) Config() RateLimitConfig {
	return l.config
}

func (l *LocalRateLimiter) IsAllowed(ctx context.Context, key string) (bool, int, time.Time, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		every := rate.Every(l.config.Window / time.Duration(l.config.Limit))
		limiter = rate.NewLimiter(every, l.config.Limit)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	now := time.Now()
	allowed := limiter.AllowN(now, 1)
	tokens := limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	reset := now
	if missing := float64(l.config.Limit) - tokens; missing > 0 {
		reset = now.Add(time.Duration(missing / float64(limiter.Limit()) * float64(time.Second)))
	}
	return allowed, remaining, reset, nil
}

// RateLimit limits authenticated callers by user ID. Errors of the limiter
// are logged and the request is let through.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	cfg := limiter.Config()
	return func(c *gin.Context) {
		actor := GetActor(c)
		if !actor.IsAuthenticated() {
			c.Next()
			return
		}

		allowed, remaining, resetTime, err := limiter.IsAllowed(c.Request.Context(), actor.UserID.String())
		if err != nil {
			logger.FromGin(c).Warn("rate limit check failed", zap.Error(err))
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetTime).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per %v", cfg.Limit, cfg.Window),
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// NewRecipeCreationLimiter limits how many recipes one user may publish per
// window. Without a Redis client the limit is kept in process.
func NewRecipeCreationLimiter(redisClient *redis.Client, limit int, window time.Duration) Limiter {
	config := RateLimitConfig{
		Window:    window,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_creation",
	}
	if redisClient == nil {
		return NewLocalRateLimiter(config)
	}
	return NewRateLimiter(redisClient, config)
}
