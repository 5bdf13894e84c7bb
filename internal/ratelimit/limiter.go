package ratelimit

import (
	"context"
	"time"
)

// Limiter is the minimal allow-or-deny check. The flood guard in front of
// the meme API uses it directly; scope-aware limiting goes through
// PolicyLimiter instead.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, err error)
}

// SlidingWindowLimiter allows up to limit requests per key in a rolling
// window. It carries exactly one limit, which suits a coarse per-client
// guard; the layered budgets on /memes need PolicyLimiter.
type SlidingWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewSlidingWindowLimiter creates a limiter allowing limit requests per window.
func NewSlidingWindowLimiter(store Store, limit int64, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Record(ctx, key, l.window)
	if err != nil {
		return false, err
	}

	return count <= l.limit, nil
}
