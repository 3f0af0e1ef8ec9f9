package mock

import (
	"sort"
	"sync"
	"time"
)

// Clock provides an interface for time operations to enable testing
// without relying on real time.
type Clock interface {
	// Now returns the current time according to this clock
	Now() time.Time
	// AfterFunc runs f once d has elapsed and returns a function that
	// cancels the timer.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// MockClock implements Clock with a controllable time value. Timers fire
// synchronously from Advance or Set, in deadline order.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*mockTimer
}

type mockTimer struct {
	at    time.Time
	f     func()
	fired bool
	done  bool
}

// NewMockClock creates a new mock clock initialized to the given time.
// If t is zero, the clock is initialized to the current time.
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		t = time.Now()
	}
	return &MockClock{current: t}
}

// Now returns the current time according to this mock clock.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// AfterFunc registers f to run once the clock reaches now+d.
func (m *MockClock) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	t := &mockTimer{at: m.current.Add(d), f: f}
	m.timers = append(m.timers, t)
	m.mu.Unlock()

	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if t.done {
			return false
		}
		t.done = true
		return true
	}
}

// PendingTimers returns the number of timers that have not fired or been
// stopped.
func (m *MockClock) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by the given duration and fires due
// timers.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.current.Add(d)
	m.mu.Unlock()
	m.Set(target)
}

// Set sets the clock to a specific time and fires due timers.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	var due []*mockTimer
	remaining := m.timers[:0]
	for _, timer := range m.timers {
		switch {
		case timer.done:
		case !timer.at.After(t):
			timer.done = true
			timer.fired = true
			due = append(due, timer)
		default:
			remaining = append(remaining, timer)
		}
	}
	m.timers = remaining
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		timer.f()
	}
}
