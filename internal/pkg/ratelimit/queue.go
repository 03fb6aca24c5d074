// Package ratelimit paces calls to upstream APIs that meter by request
// weight. Two admission modes: TrySlot for optional calls that should
// be skipped rather than queued, and Reserve for mandatory calls that
// wait for the next free slot.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCooldown is the pause callers apply after an upstream 429
// when the response carries no Retry-After hint.
const DefaultCooldown = 30 * time.Second

type Queue struct {
	limiter *rate.Limiter

	mu            sync.Mutex
	cooldownUntil time.Time

	nowFn func() time.Time
}

// NewQueue admits up to rps calls per second with the given burst.
func NewQueue(rps float64, burst int) *Queue {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Queue{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		nowFn:   time.Now,
	}
}

// TrySlot reports whether a slot is free right now. Callers that get
// false should skip the call for this cycle, not retry.
func (q *Queue) TrySlot() bool {
	if q.inCooldown() {
		return false
	}
	return q.limiter.Allow()
}

// Reserve blocks until a slot is free or ctx is done. A cooldown window
// extends the wait rather than failing it.
func (q *Queue) Reserve(ctx context.Context) error {
	if wait := q.cooldownRemaining(); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return q.limiter.Wait(ctx)
}

// Cooldown pauses all admissions for d, typically after an upstream
// 429. Overlapping cooldowns keep the later deadline.
func (q *Queue) Cooldown(d time.Duration) {
	if d <= 0 {
		return
	}
	until := q.nowFn().Add(d)
	q.mu.Lock()
	if until.After(q.cooldownUntil) {
		q.cooldownUntil = until
	}
	q.mu.Unlock()
}

func (q *Queue) inCooldown() bool {
	return q.cooldownRemaining() > 0
}

func (q *Queue) cooldownRemaining() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cooldownUntil.Sub(q.nowFn())
}
