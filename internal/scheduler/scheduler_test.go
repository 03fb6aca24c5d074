package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunOnceSkipsOverlap(t *testing.T) {
	s := NewInterval(time.Minute)
	var runs atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runOnce(context.Background(), func(context.Context) {
			runs.Add(1)
			<-release
		})
	}()

	// Wait for the first cycle to be in flight, then tick again.
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	s.runOnce(context.Background(), func(context.Context) { runs.Add(1) })
	assert.Equal(t, int32(1), runs.Load(), "overlapping tick must be skipped, not queued")

	close(release)
	wg.Wait()

	// With the first cycle finished the next tick runs normally.
	s.runOnce(context.Background(), func(context.Context) { runs.Add(1) })
	assert.Equal(t, int32(2), runs.Load())
}

func TestStartRunImmediately(t *testing.T) {
	s := NewInterval(time.Hour)
	s.RunImmediately = true

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		s.Start(ctx, func(context.Context) {
			runs.Add(1)
			cancel()
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
	assert.Equal(t, int32(1), runs.Load())
}

func TestStartStopsWithoutRunning(t *testing.T) {
	s := NewInterval(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx, func(context.Context) { t.Error("task must not run") })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not exit")
	}
}

func TestNewIntervalDefault(t *testing.T) {
	assert.Equal(t, 5*time.Minute, NewInterval(0).Every)
	assert.Equal(t, time.Second, NewInterval(time.Second).Every)
}
