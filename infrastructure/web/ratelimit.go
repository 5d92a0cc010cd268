package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client's limiter is remembered
const visitorTTL = 10 * time.Minute

// RateLimiter throttles form actions per client IP
type RateLimiter struct {
	visitors *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows r actions per second per client with bursts of b.
// At most size clients are tracked at once.
func NewRateLimiter(r rate.Limit, b, size int) *RateLimiter {
	if size <= 0 {
		size = 1000
	}
	if b <= 0 {
		b = 1
	}
	return &RateLimiter{
		visitors: expirable.NewLRU[string, *rate.Limiter](size, nil, visitorTTL),
		rate:     r,
		burst:    b,
	}
}

// Allow reports whether the client at ip may act now
func (rl *RateLimiter) Allow(ip string) bool {
	limiter, ok := rl.visitors.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors.Add(ip, limiter)
	}
	return limiter.Allow()
}

// Limit rejects requests over the client's budget with 429
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.String(http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again.")
			c.Abort()
			return
		}
		c.Next()
	}
}
