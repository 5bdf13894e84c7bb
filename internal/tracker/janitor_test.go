package tracker_test

import (
	"context"
	"testing"
	"time"

	"github.com/replyguy/memegen/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJanitor(t *testing.T) {
	t.Run("sweeps stale history periodically", func(t *testing.T) {
		now := time.Now()
		clock := now.Add(-30 * time.Hour)
		tr := tracker.NewWithSource(func() time.Time { return clock }, zeroJitter)

		tr.RecordUsage("stale", "123", "Drake Pointing")
		clock = now

		janitor := tracker.NewJanitor(tr, 10*time.Millisecond, zap.NewNop())

		require.NoError(t, janitor.Start(context.Background()))

		assert.Eventually(t, func() bool {
			return len(tr.RecentTemplateIDs("stale")) == 0
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, janitor.Shutdown())
	})

	t.Run("shutdown stops the sweep loop", func(t *testing.T) {
		tr := tracker.New()
		janitor := tracker.NewJanitor(tr, time.Hour, zap.NewNop())

		require.NoError(t, janitor.Start(context.Background()))
		require.NoError(t, janitor.Shutdown())
	})
}
