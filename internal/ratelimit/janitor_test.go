package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_Sweep(t *testing.T) {
	clock := newFakeClock()
	windows := NewWindowStore(clock)
	violations := NewViolationTracker(5*time.Minute, 15*time.Minute, clock)

	windows.Increment("a", time.Minute)
	windows.Increment("b", time.Hour)
	violations.RecordViolation("a")
	violations.RecordViolation("blocked")
	violations.Block("blocked", time.Hour)

	j := NewJanitor(time.Minute, windows, violations)
	assert.Equal(t, 0, j.Sweep())

	clock.Advance(16 * time.Minute)
	assert.Equal(t, 2, j.Sweep())
	assert.Equal(t, 1, windows.Len())
	assert.Equal(t, 1, violations.Len())
	assert.True(t, violations.IsBlocked("blocked"))
}

func TestJanitor_StartStopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	windows := NewWindowStore(clock)
	windows.Increment("a", time.Second)
	clock.Advance(time.Second)

	j := NewJanitor(10*time.Millisecond, windows)
	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)

	require.Eventually(t, func() bool {
		return windows.Len() == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-j.Done():
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancellation")
	}
}
