package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Janitor periodically sweeps stale history out of a Tracker. The tracker
// itself never schedules its own cleanup, so the janitor runs alongside the
// server with the same Start/Shutdown lifecycle as the message consumers.
type Janitor struct {
	tracker  *Tracker
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewJanitor creates a janitor sweeping the tracker at the given interval.
func NewJanitor(tracker *Tracker, interval time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		tracker:  tracker,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (j *Janitor) Start(ctx context.Context) error {
	ctx, j.cancel = context.WithCancel(ctx)

	go j.run(ctx)

	return nil
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned := j.tracker.Cleanup()
			if pruned > 0 {
				j.logger.Debug("pruned stale template history",
					zap.Int("entries", pruned),
				)
			}
		}
	}
}

// Shutdown stops the sweep and waits for the loop to exit.
func (j *Janitor) Shutdown() error {
	if j.cancel != nil {
		j.cancel()
	}

	<-j.done

	return nil
}
