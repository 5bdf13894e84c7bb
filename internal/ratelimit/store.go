package ratelimit

import (
	"context"
	"time"
)

// Store counts requests per key inside a sliding window. The policy limiter
// and the flood guard share one store; keys embed the scope and window so
// their counters never collide.
type Store interface {
	// Record adds one request for the key and returns how many landed inside
	// the window, pruning expired entries as a side effect.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
