// Package bootstrap rate-limits the two synchronous RPC surfaces the
// engine falls back to outside the gRPC stream: ALT fetch on miss, and
// initial pool/vault hydration.
package bootstrap

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound RPC calls to a configured requests-per-
// second ceiling with burst equal to that rate.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter constructs a RateLimiter allowing requestsPerSecond
// sustained, bursting up to the same count.
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Wait blocks until the limiter admits the next call or ctx is canceled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// WaitWithTimeout bounds Wait by timeout, used for the bootstrap RPC
// suspension point so a stalled endpoint cannot hang ingestion forever.
func (rl *RateLimiter) WaitWithTimeout(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rl.Wait(ctx)
}

// Allow reports whether a call is permitted right now, without blocking.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// SetRate updates the limiter's sustained rate and burst together.
func (rl *RateLimiter) SetRate(requestsPerSecond int) {
	rl.limiter.SetLimit(rate.Limit(requestsPerSecond))
	rl.limiter.SetBurst(requestsPerSecond)
}
