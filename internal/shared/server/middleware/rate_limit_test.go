package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterAllowWithinLimit(t *testing.T) {
	l := NewRateLimiter()
	rule := RateLimitRule{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("u1|AUDIT", rule)
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	allowed, retryAfter := l.Allow("u1|AUDIT", rule)
	if allowed {
		t.Fatal("fourth request should be rejected")
	}
	if retryAfter <= 0 {
		t.Fatalf("retryAfter should be positive, got %v", retryAfter)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter()
	rule := RateLimitRule{Limit: 1, Window: time.Minute}

	if allowed, _ := l.Allow("u1|AUDIT", rule); !allowed {
		t.Fatal("first request for u1 should be allowed")
	}
	if allowed, _ := l.Allow("u1|AUDIT", rule); allowed {
		t.Fatal("second request for u1 should be rejected")
	}
	if allowed, _ := l.Allow("u2|AUDIT", rule); !allowed {
		t.Fatal("first request for u2 should be allowed")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	l := NewRateLimiter()
	rule := RateLimitRule{Limit: 1, Window: 30 * time.Millisecond}

	if allowed, _ := l.Allow("u1|DEFAULT", rule); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := l.Allow("u1|DEFAULT", rule); allowed {
		t.Fatal("second request should be rejected inside the window")
	}
	time.Sleep(50 * time.Millisecond)
	if allowed, _ := l.Allow("u1|DEFAULT", rule); !allowed {
		t.Fatal("request after window expiry should be allowed")
	}
}

func TestRateLimiterZeroRuleAllowsAll(t *testing.T) {
	l := NewRateLimiter()
	for i := 0; i < 10; i++ {
		if allowed, _ := l.Allow("u1|X", RateLimitRule{}); !allowed {
			t.Fatal("empty rule should never reject")
		}
	}
}

func TestRateLimitMiddlewareRejectsWithRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Limit: 1, Window: time.Minute},
		},
	}))
	r.GET("/audits/abc", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/audits/abc", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("first request: want 200, got %d", w1.Code)
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/audits/abc", nil))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: want 429, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
}

func TestRateLimitMiddlewareUnknownGroupPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		Rules: map[string]RateLimitRule{"AUDIT_START": {Limit: 1, Window: time.Minute}},
		GroupFor: func(c *gin.Context) string {
			return "NO_SUCH_GROUP"
		},
	}))
	r.GET("/manuscripts", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manuscripts", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: want 200, got %d", i+1, w.Code)
		}
	}
}
