package container_test

import (
	"testing"

	"github.com/replyguy/memegen/internal/container"
	"github.com/replyguy/memegen/internal/ratelimit"
	"github.com/replyguy/memegen/internal/store"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestInjector(options *container.Options) *do.Injector {
	injector := do.New()
	do.ProvideValue(injector, options)
	do.ProvideValue(injector, zap.NewNop())

	return injector
}

func TestRateLimitPackage(t *testing.T) {
	t.Run("uses redis counters when an address is configured", func(t *testing.T) {
		injector := newTestInjector(&container.Options{RedisAddr: "localhost:6379"})
		container.RedisPackage(injector)
		container.RateLimitPackage(injector)

		limiter := do.MustInvoke[*ratelimit.PolicyLimiter](injector)

		require.NotNil(t, limiter)
		assert.IsType(t, &store.RateLimitRedisStore{}, limiter.Store())
	})

	t.Run("falls back to process-local counters without redis", func(t *testing.T) {
		injector := newTestInjector(&container.Options{})
		container.RateLimitPackage(injector)

		limiter := do.MustInvoke[*ratelimit.PolicyLimiter](injector)

		require.NotNil(t, limiter)
		assert.IsType(t, &store.RateLimitMemoryStore{}, limiter.Store())
	})
}
