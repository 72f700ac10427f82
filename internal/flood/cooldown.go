// Package flood provides per-key cooldown gating for repeat-prone events.
package flood

import (
	"sync"
	"time"
)

// Gate allows an event per key at most once per interval. It guards the
// radio-exhaustion retry loop and the end-of-track transition trigger, both
// of which fire repeatedly from a fast polling loop.
type Gate struct {
	last  map[string]time.Time
	mutex sync.Mutex
	now   func() time.Time
}

// New creates an empty Gate.
func New() *Gate {
	return &Gate{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Allow reports whether the event keyed by key may fire now, given that it
// must not fire more than once per every. A first call for a key always
// passes and starts its interval.
func (g *Gate) Allow(key string, every time.Duration) bool {
	now := g.now()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if last, ok := g.last[key]; ok && now.Sub(last) < every {
		return false
	}
	g.last[key] = now
	return true
}

// Reset clears the interval for key so the next Allow passes immediately.
func (g *Gate) Reset(key string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	delete(g.last, key)
}
