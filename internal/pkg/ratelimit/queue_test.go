package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrySlotConsumesBurst(t *testing.T) {
	q := NewQueue(1, 2)
	assert.True(t, q.TrySlot())
	assert.True(t, q.TrySlot())
	assert.False(t, q.TrySlot(), "burst exhausted, third slot must be denied")
}

func TestTrySlotDeniedDuringCooldown(t *testing.T) {
	q := NewQueue(100, 100)
	now := time.Now()
	q.nowFn = func() time.Time { return now }

	q.Cooldown(time.Minute)
	assert.False(t, q.TrySlot())

	now = now.Add(2 * time.Minute)
	assert.True(t, q.TrySlot())
}

func TestCooldownKeepsLaterDeadline(t *testing.T) {
	q := NewQueue(100, 100)
	now := time.Now()
	q.nowFn = func() time.Time { return now }

	q.Cooldown(time.Minute)
	q.Cooldown(time.Second) // must not shrink the window
	now = now.Add(30 * time.Second)
	assert.False(t, q.TrySlot())
}

func TestReserveWaitsForSlot(t *testing.T) {
	q := NewQueue(1000, 1)
	require.NoError(t, q.Reserve(context.Background()))
	// Second reservation waits roughly one token interval (1ms).
	start := time.Now()
	require.NoError(t, q.Reserve(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestReserveHonorsContextCancel(t *testing.T) {
	q := NewQueue(0.001, 1)
	require.NoError(t, q.Reserve(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Reserve(ctx)
	assert.Error(t, err)
}

func TestReserveHonorsContextDuringCooldown(t *testing.T) {
	q := NewQueue(100, 100)
	q.Cooldown(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Reserve(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
