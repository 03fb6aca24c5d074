// Package scheduler drives the decision cycle on a fixed interval. A
// tick that arrives while the previous cycle is still running is
// skipped, never queued: overlapping cycles would double-fetch and
// double-trade.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"peregrine/internal/logger"
)

type Interval struct {
	Every          time.Duration
	RunImmediately bool

	running atomic.Bool
}

func NewInterval(every time.Duration) *Interval {
	if every <= 0 {
		every = 5 * time.Minute
	}
	return &Interval{Every: every}
}

// Start blocks until ctx is done, invoking task on each tick.
func (s *Interval) Start(ctx context.Context, task func(context.Context)) {
	if task == nil {
		logger.Warnf("scheduler: nil task, exit")
		return
	}
	logger.Infof("scheduler: started, interval=%s run_immediately=%v", s.Every, s.RunImmediately)
	if s.RunImmediately {
		s.runOnce(ctx, task)
	}
	ticker := time.NewTicker(s.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("scheduler: context done, exit")
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Interval) runOnce(ctx context.Context, task func(context.Context)) {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warnf("scheduler: previous cycle still running, skipping tick")
		return
	}
	defer s.running.Store(false)
	start := time.Now()
	task(ctx)
	logger.Debugf("scheduler: cycle finished in %s", time.Since(start).Truncate(time.Millisecond))
}
