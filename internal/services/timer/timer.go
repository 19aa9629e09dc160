// Package timer schedules one-shot and repeating callbacks on top of a clock.Clock.
//
// Every callback is handed to an Executor before it runs. The session
// orchestrator passes an executor that takes its lock, so timer callbacks run
// to completion exactly like inbound message handlers. A handle cancelled
// before its callback reaches the executor never runs.
package timer

import (
	"sync"
	"time"

	"github.com/mcoot/blitzarena/internal/dependencies/clock"
)

// Executor runs a fired timer callback
type Executor func(fn func())

// Inline runs the callback directly on the firing goroutine
func Inline(fn func()) {
	fn()
}

// Service creates cancellable timers
type Service struct {
	clock clock.Clock
	exec  Executor
}

// New creates a timer service. A nil executor runs callbacks inline.
func New(clk clock.Clock, exec Executor) *Service {
	if exec == nil {
		exec = Inline
	}
	return &Service{
		clock: clk,
		exec:  exec,
	}
}

// Handle identifies a scheduled callback
type Handle struct {
	mu        sync.Mutex
	timer     clock.Timer
	cancelled bool
	done      bool
}

// After schedules fn to run once after d
func (s *Service) After(d time.Duration, fn func()) *Handle {
	h := &Handle{}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.timer = s.clock.AfterFunc(d, func() {
		s.exec(func() {
			if !h.claim(true) {
				return
			}
			fn()
		})
	})
	return h
}

// Every schedules fn to run every interval until cancelled
func (s *Service) Every(interval time.Duration, fn func()) *Handle {
	h := &Handle{}

	var tick func()
	tick = func() {
		s.exec(func() {
			if !h.claim(false) {
				return
			}
			fn()
		})

		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.cancelled {
			h.timer = s.clock.AfterFunc(interval, tick)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.timer = s.clock.AfterFunc(interval, tick)
	return h
}

// Cancel stops the handle. Safe to call with nil or an already finished handle.
func (s *Service) Cancel(h *Handle) bool {
	if h == nil {
		return false
	}
	return h.Cancel()
}

// Cancel stops the timer. Returns false if it had already fired (one-shot) or been cancelled.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancelled || h.done {
		return false
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
	}
	return true
}

// Active reports whether the callback may still run
func (h *Handle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.cancelled && !h.done
}

// claim marks the handle as firing. Returns false if it was cancelled in the meantime.
func (h *Handle) claim(once bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancelled || h.done {
		return false
	}
	if once {
		h.done = true
	}
	return true
}
