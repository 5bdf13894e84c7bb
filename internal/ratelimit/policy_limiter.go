package ratelimit

import (
	"context"
	"fmt"
)

// LimitExceeded names the limit a denied request ran into, so the middleware
// can tell the client which budget it blew and log the scope.
type LimitExceeded struct {
	Scope  Scope
	Config LimitConfig
	Count  int64
}

// PolicyLimiter checks a request against every limit its scopes carry.
// Meme generation typically resolves to global+write, so one request is
// counted against the global window and both write windows.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

// NewPolicyLimiter creates a limiter enforcing the given policy.
func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{
		store:  store,
		policy: policy,
	}
}

// Allow records the request under every applicable limit and reports the
// first one exceeded, if any. Scopes without limits in the policy are
// skipped, not denied.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (bool, *LimitExceeded, error) {
	for _, scope := range scopes {
		limits, ok := l.policy.Limits[scope]
		if !ok {
			continue
		}

		for _, limit := range limits {
			key := l.buildKey(clientKey, scope, limit)

			count, err := l.store.Record(ctx, key, limit.Window)
			if err != nil {
				return false, nil, err
			}

			if count > limit.Max {
				return false, &LimitExceeded{
					Scope:  scope,
					Config: limit,
					Count:  count,
				}, nil
			}
		}
	}

	return true, nil, nil
}

// buildKey separates counters per client, scope, and window. The write scope
// has both a minute and an hour window on /memes, so the window length must
// be part of the key or the two would share a counter.
func (l *PolicyLimiter) buildKey(clientKey string, scope Scope, limit LimitConfig) string {
	return fmt.Sprintf("%s:%s:%d", clientKey, scope, limit.Window.Milliseconds())
}

// Store returns the underlying store, shared with the per-endpoint custom
// limits applied by the middleware.
func (l *PolicyLimiter) Store() Store {
	return l.store
}
