package clock

import "sync/atomic"

// TickSource exposes the current simulation tick. Implementations must be
// monotonically non-decreasing.
type TickSource interface {
	CurrentTick() uint64
}

// TickFunc adapts functions into the TickSource interface.
type TickFunc func() uint64

// CurrentTick implements TickSource for TickFunc.
func (f TickFunc) CurrentTick() uint64 {
	if f == nil {
		return 0
	}
	return f()
}

// Ticker is an atomic tick counter advanced once per fixed timestep by the
// simulation loop. The zero value is ready to use at tick zero.
type Ticker struct {
	tick atomic.Uint64
}

// CurrentTick returns the most recently completed tick.
func (t *Ticker) CurrentTick() uint64 {
	if t == nil {
		return 0
	}
	return t.tick.Load()
}

// Advance moves the counter forward by one tick and returns the new value.
func (t *Ticker) Advance() uint64 {
	if t == nil {
		return 0
	}
	return t.tick.Add(1)
}
