package reddit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the proactive throttle (requests per second).
	// Reddit allows 100 queries per minute per OAuth client.
	DefaultRate = 1.0

	// HeaderRateRemaining is the remaining requests header (a float, e.g. "598.0").
	HeaderRateRemaining = "X-Ratelimit-Remaining"

	// HeaderRateUsed is the used requests header.
	HeaderRateUsed = "X-Ratelimit-Used"

	// HeaderRateReset is the seconds until the window resets.
	HeaderRateReset = "X-Ratelimit-Reset"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter paces requests and tracks Reddit's rate limit window.
// It never retries: once the window is exhausted, Wait fails fast with a
// RateLimitError and the caller decides what to do.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int       // From API header, -1 until the first response
	resetTime time.Time // From API header
	bucket    *rate.Limiter
	now       func() time.Time
}

// NewRateLimiter creates a rate limiter allowing rps requests per second.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRate
	}
	return &RateLimiter{
		remaining: -1,
		bucket:    rate.NewLimiter(rate.Limit(rps), 1),
		now:       time.Now,
	}
}

// Wait blocks until the token bucket allows a request.
// It returns a RateLimitError without waiting if the API window is exhausted.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining == 0 && r.now().Before(resetTime) {
		return &RateLimitError{ResetAt: resetTime, Remaining: 0}
	}

	return r.bucket.Wait(ctx)
}

// UpdateFromResponse updates rate limit state from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.ParseFloat(remaining, 64); err == nil {
			r.remaining = int(math.Floor(val))
		}
	}

	if reset := resp.Header.Get(HeaderRateReset); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			r.resetTime = r.now().Add(time.Duration(val) * time.Second)
		}
	}
}

// CheckRateLimit updates state from resp and returns a RateLimitError for HTTP 429.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) error {
	if resp == nil {
		return nil
	}

	r.UpdateFromResponse(resp)

	if resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	r.mu.Lock()
	resetTime := r.resetTime
	r.remaining = 0
	r.mu.Unlock()

	if retryAfter := resp.Header.Get(HeaderRetryAfter); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			resetTime = r.now().Add(time.Duration(seconds) * time.Second)
			r.mu.Lock()
			r.resetTime = resetTime
			r.mu.Unlock()
		}
	}

	return &RateLimitError{ResetAt: resetTime, Remaining: 0}
}

// Remaining returns the remaining requests in the current window, or -1 if unknown.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// ResetTime returns the rate limit reset time.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}
