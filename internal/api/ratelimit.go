package api

import (
	"time"

	"github.com/mapleapp/maple-server/internal/ratelimit"
)

// RateLimiter limits request rates per key (client IP for auth routes).
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a rate limiter from a per-interval allowance.
// For example NewRateLimiter(20, time.Minute, 10) allows 20 requests per
// minute with bursts of up to 10.
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst)
}
