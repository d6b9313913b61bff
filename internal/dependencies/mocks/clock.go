package mocks

import (
	"sync"
	"time"

	"github.com/openkermesse/stallpoints/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing. Timers created
// from it fire only when Advance moves the clock past their deadline.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*mockTimer
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTimer returns a timer that fires when the mock clock reaches now+d
func (c *MockClock) NewTimer(d time.Duration) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{
		deadline: c.current.Add(d),
		ch:       make(chan time.Time, 1),
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by the given duration, firing any timer
// whose deadline has passed
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)

	remaining := c.timers[:0]
	for _, t := range c.timers {
		if t.fire(c.current) {
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining
}

// Set sets the clock to the given time without firing timers
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

type mockTimer struct {
	mu       sync.Mutex
	deadline time.Time
	ch       chan time.Time
	stopped  bool
}

func (t *mockTimer) C() <-chan time.Time { return t.ch }

func (t *mockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

// fire delivers the tick if the deadline has passed; reports whether the
// timer is finished and can be dropped.
func (t *mockTimer) fire(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return true
	}
	if now.Before(t.deadline) {
		return false
	}
	t.stopped = true
	select {
	case t.ch <- now:
	default:
	}
	return true
}
