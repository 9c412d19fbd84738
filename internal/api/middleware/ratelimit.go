package middleware

import (
	"math"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/pkg/response"
)

// rateLimitEntry tracks requests for a single client
type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

// RateLimiter implements a fixed-window in-memory rate limiter
type RateLimiter struct {
	mu             sync.Mutex
	clients        map[string]*rateLimitEntry
	requestsPerMin int
	window         time.Duration
	now            func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		clients:        make(map[string]*rateLimitEntry),
		requestsPerMin: requestsPerMinute,
		window:         time.Minute,
		now:            time.Now,
	}
}

// Allow checks if a request is allowed for the given client. When it is not,
// the second value is the time left until the window resets.
func (rl *RateLimiter) Allow(clientIP string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictExpired(now)

	entry, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &rateLimitEntry{
			count:     1,
			resetTime: now.Add(rl.window),
		}
		return true, 0
	}

	if entry.count >= rl.requestsPerMin {
		return false, entry.resetTime.Sub(now)
	}

	entry.count++
	return true, 0
}

// evictExpired drops finished windows. Callers hold mu.
func (rl *RateLimiter) evictExpired(now time.Time) {
	for key, entry := range rl.clients {
		if !now.Before(entry.resetTime) {
			delete(rl.clients, key)
		}
	}
}

// RateLimitMiddleware creates rate limiting middleware
func RateLimitMiddleware(requestsPerMinute, burst int) gin.HandlerFunc {
	effectiveLimit := requestsPerMinute
	if burst > 0 {
		effectiveLimit = requestsPerMinute + burst
	}

	limiter := NewRateLimiter(effectiveLimit)

	return func(c *gin.Context) {
		allowed, wait := limiter.Allow(c.ClientIP())
		if !allowed {
			response.TooManyRequests(c, int(math.Ceil(wait.Seconds())), "Rate limit exceeded. Please try again later.")
			return
		}

		c.Next()
	}
}
