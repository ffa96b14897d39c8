package rest

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"
)

// RateLimitConfig holds rate limiting configuration for a provider.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimits provides conservative defaults per provider.
var DefaultRateLimits = map[string]RateLimitConfig{
	"gorgias":          {RequestsPerSecond: 2.0, BurstSize: 4},  // 40 requests per 20s window
	"primer":           {RequestsPerSecond: 5.0, BurstSize: 10},
	"tiktok_ads":       {RequestsPerSecond: 10.0, BurstSize: 10},
	"snapchat_ads":     {RequestsPerSecond: 10.0, BurstSize: 20},
	"app_store":        {RequestsPerSecond: 1.0, BurstSize: 5},  // 3600 per hour
	"google_analytics": {RequestsPerSecond: 5.0, BurstSize: 10},
}

var fallbackRateLimit = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}

// RateLimiter paces requests with a token bucket and honours the
// backoff a provider requested through Retry-After.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a rate limiter for the named provider.
func NewRateLimiter(provider string) *RateLimiter {
	cfg, ok := DefaultRateLimits[provider]
	if !ok {
		cfg = fallbackRateLimit
	}
	return NewRateLimiterWithConfig(cfg)
}

// NewRateLimiterWithConfig creates a rate limiter with custom configuration.
func NewRateLimiterWithConfig(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		sleep:   SleepContext,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It returns an error only when ctx ends first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if d := time.Until(r.RetryAt()); d > 0 {
		if err := r.sleep(ctx, d); err != nil {
			return err
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRetryAfter holds back all requests for d.
// Call this when a provider returns 429 with a Retry-After header.
func (r *RateLimiter) RecordRetryAfter(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if at := time.Now().Add(d); at.After(r.retryAt) {
		r.retryAt = at
	}
}

// RetryAt returns the time before which requests are held back.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}

// Allow checks if a request can be made immediately without blocking.
func (r *RateLimiter) Allow() bool {
	if time.Now().Before(r.RetryAt()) {
		return false
	}
	return r.limiter.Allow()
}

// ParseRetryAfter reads a Retry-After header given either as seconds or
// as an HTTP date. It returns 0 when the header is absent or invalid.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get(HeaderRetryAfter)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
