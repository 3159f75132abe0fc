package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultRateLimitGroup = "DEFAULT"
)

// RateLimitRule is a fixed window: at most Limit requests per Window.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps per-principal request counters with expiring windows.
type RateLimiter struct {
	counters *gocache.Cache
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		counters: gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter()
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}
		key := principal + "|" + group
		allowed, retryAfter := cfg.Limiter.Allow(key, rule)
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "rate_limited",
			"retryAfterMs": retryAfterMs,
		})
		c.Abort()
	}
}

// Allow counts one request against the rule's window. The first request in a
// window creates a counter whose TTL is the window; later requests increment it
// until the limit is hit.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, 0
	}
	if err := l.counters.Add(key, int64(1), rule.Window); err == nil {
		return true, 0
	}
	n, err := l.counters.IncrementInt64(key, 1)
	if err != nil {
		// Counter expired between Add and Increment; start a fresh window.
		l.counters.Set(key, int64(1), rule.Window)
		return true, 0
	}
	if n <= int64(rule.Limit) {
		return true, 0
	}
	if _, expiry, ok := l.counters.GetWithExpiration(key); ok && !expiry.IsZero() {
		if wait := time.Until(expiry); wait > 0 {
			return false, wait
		}
	}
	return false, rule.Window
}
