package ratelimit

import "time"

// LimitConfig is one window/max pair of a rate limit.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps request scopes to the limits that apply to them.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// PolicyBuilder builds a Policy incrementally.
type PolicyBuilder struct {
	limits map[Scope][]LimitConfig
}

// NewPolicyBuilder creates an empty policy builder.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{limits: make(map[Scope][]LimitConfig)}
}

// AddLimit adds a limit of max requests per window to the given scope.
func (b *PolicyBuilder) AddLimit(scope Scope, max int64, window time.Duration) *PolicyBuilder {
	b.limits[scope] = append(b.limits[scope], LimitConfig{Window: window, Max: max})

	return b
}

// Build returns the assembled policy.
func (b *PolicyBuilder) Build() *Policy {
	return &Policy{Limits: b.limits}
}

// DefaultPolicy returns the service-wide limits. Meme generation burns
// Imgflip and model credits, so writes are capped much tighter than reads.
func DefaultPolicy() *Policy {
	return NewPolicyBuilder().
		AddLimit(ScopeGlobal, 300, time.Minute).
		AddLimit(ScopeRead, 120, time.Minute).
		AddLimit(ScopeWrite, 10, time.Minute).
		AddLimit(ScopeWrite, 100, time.Hour).
		Build()
}
