package httpapi

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimiter throttles requests per key (the authenticated userId, falling
// back to the client IP), grounded on the teacher's
// infrastructure/middleware.RateLimiter: one token-bucket limiter per key,
// created lazily and shared across requests for that key.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// newRateLimiter builds a limiter allowing requestsPerSecond sustained
// throughput with the given burst. requestsPerSecond <= 0 disables limiting
// (rateLimitMiddleware returns a pass-through handler in that case).
func newRateLimiter(requestsPerSecond float64, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// count reports how many per-key limiters are currently tracked, exercised
// by tests to confirm keys are bucketed independently.
func (rl *rateLimiter) count() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// rateLimitMiddleware enforces rl against each request, keyed by the
// authenticated userId (set by bearerAuth, which always runs first in the
// engine.Use chain) or the remote address when the request is
// unauthenticated. The kernel has no built-in request timeout (spec.md §5,
// "the HTTP adapter is expected to enforce one"); a per-key request budget
// is the same kind of HTTP-boundary concern, so it lives here rather than in
// the kernel core.
func rateLimitMiddleware(rl *rateLimiter) gin.HandlerFunc {
	if rl == nil || rl.rate <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := permissionContext(c).UserID
		if key == "" {
			key = c.ClientIP()
		}
		if !rl.allow(key) {
			c.Header("Retry-After", strconv.Itoa(1))
			failStatus(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
