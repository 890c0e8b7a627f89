package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRunsCallbacksUntilStopped(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	e.AutosaveEvery = 3

	var ticks, saves atomic.Int64
	e.OnTick = func(uint64) { ticks.Add(1) }
	e.OnAutosave = func(tick uint64) {
		assert.Zero(t, tick%3)
		saves.Add(1)
	}

	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return ticks.Load() >= 9 }, 2*time.Second, time.Millisecond)
	e.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.GreaterOrEqual(t, saves.Load(), int64(3))
	assert.Equal(t, uint64(ticks.Load()), e.CurrentTick())
}

func TestEngineStopsOnContext(t *testing.T) {
	e := NewEngine()
	e.SetSpeed(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.Equal(t, uint64(0), e.CurrentTick())
}
