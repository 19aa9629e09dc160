package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/blitzarena/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Timers scheduled with AfterFunc fire synchronously from Advance/Set, in deadline order.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	pending     []*mockTimer
	seq         uint64
}

type mockTimer struct {
	clock    *MockClock
	deadline time.Time
	seq      uint64
	fn       func()
	stopped  bool
	fired    bool
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// AfterFunc registers f to run once the clock has been advanced by d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &mockTimer{
		clock:    c,
		deadline: c.CurrentTime.Add(d),
		seq:      c.seq,
		fn:       f,
	}
	c.pending = append(c.pending, t)
	return t
}

// Advance moves the clock forward by the given duration, firing due timers along the way
func (c *MockClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

// Set sets the clock to the given time, firing due timers along the way.
// Timers scheduled by a firing callback also fire if they fall due before t.
func (c *MockClock) Set(t time.Time) {
	for {
		c.mu.Lock()
		next := c.nextDue(t)
		if next == nil {
			c.CurrentTime = t
			c.mu.Unlock()
			return
		}
		if next.deadline.After(c.CurrentTime) {
			c.CurrentTime = next.deadline
		}
		next.fired = true
		c.mu.Unlock()

		next.fn()
	}
}

// PendingTimers returns the number of timers that have neither fired nor been stopped
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compact()
	return len(c.pending)
}

// nextDue returns the earliest live timer due at or before t. Caller holds mu.
func (c *MockClock) nextDue(t time.Time) *mockTimer {
	c.compact()
	sort.SliceStable(c.pending, func(i, j int) bool {
		if c.pending[i].deadline.Equal(c.pending[j].deadline) {
			return c.pending[i].seq < c.pending[j].seq
		}
		return c.pending[i].deadline.Before(c.pending[j].deadline)
	})
	if len(c.pending) == 0 || c.pending[0].deadline.After(t) {
		return nil
	}
	return c.pending[0]
}

// compact drops fired and stopped timers. Caller holds mu.
func (c *MockClock) compact() {
	live := c.pending[:0]
	for _, t := range c.pending {
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
	}
	c.pending = live
}

// Stop prevents the timer from firing
func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
