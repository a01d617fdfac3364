// Package stress provides the core model of the directive-driven stress engine:
// timers, lifecycle hooks, directives, the report store and the error taxonomy.
package stress

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimerNotStarted is returned by Elapsed when Start was never called.
	ErrTimerNotStarted = errors.New("timer was not started")

	// ErrTimerNotStopped is returned by Elapsed when Start was called but Stop was not.
	ErrTimerNotStopped = errors.New("timer was not stopped")
)

// Clock provides time operations that can be replaced in tests.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock uses the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// FakeClock is a manually advanced clock for tests. It is safe for
// concurrent use so parallel instances can share it.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock returns a FakeClock set to start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *FakeClock) Since(t time.Time) time.Duration {
	return f.Now().Sub(t)
}

// Advance moves the clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	f.mu.Unlock()
}

// Timer measures how long one phase of one instance took.
//
// Hooks call Start and Stop around the work they want measured. Elapsed is
// strict: it fails with ErrTimerNotStarted or ErrTimerNotStopped instead of
// reporting a zero duration for an incomplete measurement.
//
// A Timer is owned by a single instance and is not safe for concurrent use.
type Timer struct {
	index    int
	clock    Clock
	started  time.Time
	stopped  time.Time
	hasStart bool
	hasStop  bool
}

// NewTimer creates a timer for the instance with the given index.
// A nil clock uses RealClock.
func NewTimer(index int, clock Clock) *Timer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Timer{index: index, clock: clock}
}

// Start records the start of the measurement. Calling it again restarts it.
func (t *Timer) Start() {
	t.started = t.clock.Now()
	t.hasStart = true
}

// Stop records the end of the measurement.
func (t *Timer) Stop() {
	t.stopped = t.clock.Now()
	t.hasStop = true
}

// Elapsed returns the time between Start and Stop.
func (t *Timer) Elapsed() (time.Duration, error) {
	if !t.hasStart {
		return 0, ErrTimerNotStarted
	}
	if !t.hasStop || t.stopped.Before(t.started) {
		return 0, ErrTimerNotStopped
	}
	return t.stopped.Sub(t.started), nil
}

// InstanceIndex returns the index of the instance owning this timer.
func (t *Timer) InstanceIndex() int {
	return t.index
}
