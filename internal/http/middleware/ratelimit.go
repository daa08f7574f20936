// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a lightweight, in-memory, sliding-window rate limiter
// with per-identity windows and opportunistic garbage collection. A request
// is allowed when fewer than max requests from the same identity fall inside
// the trailing window; otherwise it is rejected with 429 and a Retry-After
// hint derived from the oldest in-window timestamp.
//
// The limiter is process-local. For horizontally scaled deployments, prefer a
// distributed limiter (e.g., Redis-backed) to enforce global limits.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// keyFunc selects the identity used to key a rate-limit window.
// Implementations should return a stable string for the duration of a
// request, e.g. "ip:203.0.113.7" or "session:<token>".
type keyFunc func(*gin.Context) string

// KeyByClientIP returns a keyFunc keyed on the client IP address. The limit
// is intentionally applied before session validation so unauthenticated
// probes are throttled too.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// SlidingWindowLimiter enforces "at most max requests per window" per key.
// Each key tracks the timestamps of its recent requests; timestamps older
// than the window are pruned on every touch. Idle keys are evicted in bulk
// after a threshold of lookups to keep memory usage bounded.
//
// This type is safe for concurrent use.
type SlidingWindowLimiter struct {
	window time.Duration
	max    int
	keyFn  keyFunc

	mu   sync.Mutex
	hits map[string][]time.Time

	cleanupN uint64
	now      func() time.Time
}

// NewSlidingWindowLimiter constructs a limiter allowing max requests per
// window, keyed by keyFn. A window <= 0 defaults to one minute and a
// max <= 0 is coerced to 1.
func NewSlidingWindowLimiter(window time.Duration, max int, keyFn keyFunc) *SlidingWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &SlidingWindowLimiter{
		window: window,
		max:    max,
		keyFn:  keyFn,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// allow records the request for key when it fits in the window and reports
// whether it was admitted, together with a retry hint when it was not.
func (rl *SlidingWindowLimiter) allow(key string) (bool, time.Duration) {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Opportunistic cleanup of idle keys after a threshold of lookups, BEFORE
	// touching the requested key so a stale entry can be evicted even when it
	// is the one being fetched.
	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, ts := range rl.hits {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(rl.hits, k)
			}
		}
		rl.cleanupN = 0
	}

	ts := rl.hits[key]
	// Drop timestamps that slid out of the window.
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	ts = ts[i:]

	if len(ts) >= rl.max {
		rl.hits[key] = ts
		// The window frees a slot when the oldest in-window hit expires.
		return false, ts[0].Add(rl.window).Sub(now)
	}

	rl.hits[key] = append(ts, now)
	return true, 0
}

// Handler returns a Gin middleware enforcing the sliding-window limit.
// Rejected requests receive HTTP 429 with a JSON body and a Retry-After
// header in whole seconds (minimum 1).
func (rl *SlidingWindowLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryIn := rl.allow(rl.keyFn(c))
		if ok {
			c.Next()
			return
		}

		secs := int(retryIn.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "too_many_requests",
			"error":      "rate limit exceeded",
		})
	}
}
