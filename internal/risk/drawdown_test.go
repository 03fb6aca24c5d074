package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDrawdownAccumulates(t *testing.T) {
	w := NewDrawdownWindow()
	now := time.Now()
	w.nowFn = func() time.Time { return now }

	w.RecordLoss(100)
	w.RecordLoss(50)
	assert.InDelta(t, 150, w.Total(), 1e-9)
}

func TestDrawdownIgnoresProfitsAndZero(t *testing.T) {
	w := NewDrawdownWindow()
	w.RecordLoss(0)
	w.RecordLoss(-200)
	assert.Zero(t, w.Total())
}

func TestDrawdownWindowSlides(t *testing.T) {
	w := NewDrawdownWindow()
	now := time.Now()
	w.nowFn = func() time.Time { return now }

	w.RecordLoss(300)
	now = now.Add(23 * time.Hour)
	assert.InDelta(t, 300, w.Total(), 1e-9)

	// A fresh loss inside the window restarts the clock from itself.
	w.RecordLoss(100)
	assert.InDelta(t, 400, w.Total(), 1e-9)

	now = now.Add(24*time.Hour + time.Minute)
	assert.Zero(t, w.Total())

	// Losses after expiry start a fresh accumulation.
	w.RecordLoss(75)
	assert.InDelta(t, 75, w.Total(), 1e-9)
}
