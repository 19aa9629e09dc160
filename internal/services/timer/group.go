package timer

import "time"

// Group holds at most one timer per key.
//
// Starting a timer for a key always cancels the key's previous timer first.
// A callback whose entry has since been replaced or cleared does nothing.
// Group is not safe for concurrent use; callers serialize through the
// service's executor.
type Group[K comparable] struct {
	svc     *Service
	handles map[K]*Handle
}

// NewGroup creates an empty keyed timer group
func NewGroup[K comparable](svc *Service) *Group[K] {
	return &Group[K]{
		svc:     svc,
		handles: make(map[K]*Handle),
	}
}

// Start schedules fn to run once after d for key
func (g *Group[K]) Start(key K, d time.Duration, fn func()) *Handle {
	g.Clear(key)

	var h *Handle
	h = g.svc.After(d, func() {
		if g.handles[key] != h {
			return
		}
		delete(g.handles, key)
		fn()
	})
	g.handles[key] = h
	return h
}

// Every schedules fn to run every interval for key until cleared
func (g *Group[K]) Every(key K, interval time.Duration, fn func()) *Handle {
	g.Clear(key)

	var h *Handle
	h = g.svc.Every(interval, func() {
		if g.handles[key] != h {
			return
		}
		fn()
	})
	g.handles[key] = h
	return h
}

// Clear cancels the timer for key. Returns false if there was none.
func (g *Group[K]) Clear(key K) bool {
	h, ok := g.handles[key]
	if !ok {
		return false
	}
	delete(g.handles, key)
	h.Cancel()
	return true
}

// Active reports whether key has a live timer
func (g *Group[K]) Active(key K) bool {
	h, ok := g.handles[key]
	return ok && h.Active()
}

// Len returns the number of live timers
func (g *Group[K]) Len() int {
	n := 0
	for _, h := range g.handles {
		if h.Active() {
			n++
		}
	}
	return n
}

// ClearAll cancels every timer in the group
func (g *Group[K]) ClearAll() {
	for key := range g.handles {
		g.Clear(key)
	}
}
