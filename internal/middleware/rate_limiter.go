package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"medident/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter decides whether one more request for key fits in a per-minute budget.
type Limiter interface {
	Allow(ctx context.Context, key string, perMinute int) (allowed bool, retryAfter time.Duration, err error)
}

// ── Redis (shared across instances) ───────────────────────────────────────────

type RedisLimiter struct{ l *redis_rate.Limiter }

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{l: redis_rate.NewLimiter(rdb)}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, perMinute int) (bool, time.Duration, error) {
	res, err := r.l.Allow(ctx, key, redis_rate.PerMinute(perMinute))
	if err != nil {
		return false, 0, err
	}
	return res.Allowed > 0, res.RetryAfter, nil
}

// ── In-process fixed window ──────────────────────────────────────────────────

type windowEntry struct {
	count     int
	windowEnd time.Time
}

// MemoryLimiter counts per key in one-minute windows. Used in tests and when
// Redis is not available.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string]*windowEntry), now: time.Now}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, perMinute int) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || now.After(e.windowEnd) {
		e = &windowEntry{windowEnd: now.Add(time.Minute)}
		m.entries[key] = e
		m.purge(now)
	}
	e.count++
	if e.count > perMinute {
		return false, e.windowEnd.Sub(now), nil
	}
	return true, 0, nil
}

// purge drops expired windows so idle IPs do not accumulate. Caller holds mu.
func (m *MemoryLimiter) purge(now time.Time) {
	for k, e := range m.entries {
		if now.After(e.windowEnd) {
			delete(m.entries, k)
		}
	}
}

// RateLimit limits requests per client IP within scope. Limiter errors fail open.
func RateLimit(l Limiter, scope string, perMinute int, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}
		key := "rate:" + scope + ":" + c.ClientIP()
		allowed, retryAfter, err := l.Allow(c.Request.Context(), key, perMinute)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			secs := int(retryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}
