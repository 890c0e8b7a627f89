// Package engine provides the water-management simulation: state, the tick
// pipeline, player actions, sessions and the loop that drives them.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutosaveEvery is the autosave cadence in ticks.
const DefaultAutosaveEvery = 30

// Engine drives the simulation forward at a fixed cadence.
type Engine struct {
	Tick          uint64        // Current tick counter (monotonic, never resets)
	Speed         float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval      time.Duration // Base tick interval (default 1 second)
	AutosaveEvery uint64        // 0 disables autosave

	// Callbacks, populated during setup.
	OnTick     func(tick uint64) // Every tick
	OnAutosave func(tick uint64) // Every AutosaveEvery ticks

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Speed:         1.0,
		Interval:      time.Second,
		AutosaveEvery: DefaultAutosaveEvery,
	}
}

// Run starts the simulation loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	slog.Info("simulation engine started", "tick", e.CurrentTick(), "speed", e.speed(), "interval", e.Interval)

	for {
		speed := e.speed()
		if speed <= 0 {
			// Paused, check again shortly.
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		e.step()

		target := time.Duration(float64(e.Interval) / speed)
		if !sleep(ctx, target-time.Since(start)) {
			break
		}
	}

	slog.Info("simulation engine stopped", "tick", e.CurrentTick())
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// SetSpeed changes the speed multiplier while running.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	e.Speed = speed
	e.mu.Unlock()
}

func (e *Engine) speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Speed
}

// step advances the simulation by one tick.
func (e *Engine) step() {
	e.mu.Lock()
	e.Tick++
	tick := e.Tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.AutosaveEvery > 0 && tick%e.AutosaveEvery == 0 && e.OnAutosave != nil {
		e.OnAutosave(tick)
	}
}

// CurrentTick returns the most recently processed tick number.
func (e *Engine) CurrentTick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Tick
}

// sleep waits for d or until ctx is done. It reports false when ctx ended.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
