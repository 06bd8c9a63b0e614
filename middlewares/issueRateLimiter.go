package middlewares

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter counts hits per key in a fixed window.
type Limiter interface {
	// Hit records one hit and returns the count in the current window and
	// the time until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisLimiter keeps one counter per key with the window as its TTL.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

func NewRedisLimiter(client *redis.Client, namespace string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: namespace + ":issue-limit:"}
}

func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	userKey := l.prefix + key

	count, err := l.client.Incr(ctx, userKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("incrementing %s: %w", userKey, err)
	}
	// Set TTL only for the first increment
	if count == 1 {
		if err := l.client.Expire(ctx, userKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("setting TTL on %s: %w", userKey, err)
		}
		return count, window, nil
	}

	ttl, err := l.client.TTL(ctx, userKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("reading TTL of %s: %w", userKey, err)
	}
	return count, ttl, nil
}

// MemoryLimiter is the single-process Limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*memoryWindow), now: time.Now}
}

func (l *MemoryLimiter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// IssueRateLimiter caps the number of issues a user can submit per day.
// Requests without an authenticated user are rejected.
func IssueRateLimiter(limiter Limiter, limit int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not authenticated"})
			return
		}

		count, retryAfter, err := limiter.Hit(c.Request.Context(), userID, 24*time.Hour)
		if err != nil {
			logger.Error("rate limiter failed", zap.String("userID", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong"})
			return
		}

		if count > int64(limit) {
			seconds := int64(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "rate limit exceeded",
				"retry_after": seconds,
			})
			return
		}

		c.Next()
	}
}
