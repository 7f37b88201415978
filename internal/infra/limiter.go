package infra

import (
	"context"

	"golang.org/x/time/rate"
)

// --- Rate limiter ---

// RateLimiter throttles outbound provider calls with a token bucket.
// A nil *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows rpm requests per minute with the given burst.
// It returns nil when rpm is zero or negative, which disables throttling.
func NewRateLimiter(rpm, burst int) *RateLimiter {
	if rpm <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(float64(rpm) / 60.0)
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or the context is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	return rl.limiter.Wait(ctx)
}
