package risk

import (
	"sync"
	"time"
)

// DrawdownWindow accumulates realized losses over a sliding 24-hour
// window. The window slides from the most recent loss, not a calendar
// day: once 24h pass with no new loss the accumulator reads zero.
type DrawdownWindow struct {
	mu         sync.Mutex
	total      float64
	lastLossAt time.Time
	window     time.Duration

	nowFn func() time.Time
}

func NewDrawdownWindow() *DrawdownWindow {
	return &DrawdownWindow{
		window: 24 * time.Hour,
		nowFn:  time.Now,
	}
}

// RecordLoss adds a realized loss (positive USD amount). Profits are
// not recorded; the gate only cares about downside.
func (w *DrawdownWindow) RecordLoss(amount float64) {
	if amount <= 0 {
		return
	}
	now := w.nowFn()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expiredLocked(now) {
		w.total = 0
	}
	w.total += amount
	w.lastLossAt = now
}

// Total returns the accumulated loss, resetting first when the window
// has elapsed since the last recorded loss.
func (w *DrawdownWindow) Total() float64 {
	now := w.nowFn()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expiredLocked(now) {
		w.total = 0
	}
	return w.total
}

func (w *DrawdownWindow) expiredLocked(now time.Time) bool {
	return !w.lastLossAt.IsZero() && now.Sub(w.lastLossAt) > w.window
}
