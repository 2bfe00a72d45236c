package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesPoliteBump(t *testing.T) {
	l := New(2, true)
	assert.Equal(t, 3.0, l.max)
	assert.Equal(t, 3.0, l.tokens)
}

func TestNewFloorsNonPositiveRPSToOne(t *testing.T) {
	l := New(0, false)
	assert.Equal(t, 1.0, l.max)
}

func TestWaitConsumesAvailableTokenImmediately(t *testing.T) {
	l := New(5, false)
	start := time.Now()
	err := l.Wait(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.InDelta(t, 4.0, l.tokens, 0.01)
}

func TestWaitBlocksUntilRefillThenSucceeds(t *testing.T) {
	l := New(1, false)
	clock := l.last
	l.now = func() time.Time { return clock }

	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, l.tokens, 1.0)

	done := make(chan error, 1)
	go func() { done <- l.Wait(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Wait returned before the bucket refilled")
	default:
	}

	l.mu.Lock()
	clock = clock.Add(2 * time.Second)
	l.mu.Unlock()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never unblocked after refill")
	}
}

func TestWaitReturnsContextErrorWhenCancelled(t *testing.T) {
	l := New(1, false)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefillCapsAtMax(t *testing.T) {
	l := New(3, false)
	l.tokens = 0
	clock := l.last.Add(time.Hour)
	l.now = func() time.Time { return clock }

	l.mu.Lock()
	l.refill()
	l.mu.Unlock()

	assert.Equal(t, 3.0, l.tokens)
}
