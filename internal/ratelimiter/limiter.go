package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// SendLimiter is a token bucket shared by every in-flight send of a
// dispatcher. It sits on top of the batch size and inter-batch pause and is
// off unless a positive rate is configured.
type SendLimiter struct {
	limiter *rate.Limiter
}

// New creates a SendLimiter allowing ratePerSec sends per second.
// A non-positive rate returns a limiter that never blocks.
func New(ratePerSec int) *SendLimiter {
	if ratePerSec <= 0 {
		return &SendLimiter{}
	}
	// burst == rate: prevents any "saved up" burst above the limit
	return &SendLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Enabled reports whether the limiter actually throttles.
func (l *SendLimiter) Enabled() bool {
	return l != nil && l.limiter != nil
}

// Wait blocks until a send token is available.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *SendLimiter) Wait(ctx context.Context) error {
	if !l.Enabled() {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}
