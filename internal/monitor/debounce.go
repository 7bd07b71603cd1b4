package monitor

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long an unchanged presence is suppressed
// before it is pushed again.
const DefaultDebounceWindow = 30 * time.Minute

// Debouncer gates presence pushes. An update goes out when forced, when
// nothing was pushed yet, when it differs from the last push, or when the
// window has elapsed since the last push.
type Debouncer struct {
	window time.Duration

	mu        sync.Mutex
	last      Presence
	lastSetAt time.Time // zero until the first successful push
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// ShouldEmit decides whether candidate should be pushed. It does not change
// state; call Record after the push succeeded.
func (d *Debouncer) ShouldEmit(candidate Presence, force bool, now time.Time) bool {
	if force {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastSetAt.IsZero() {
		return true
	}
	if candidate != d.last {
		return true
	}
	return now.Sub(d.lastSetAt) >= d.window
}

// Record stores a pushed presence. lastSetAt never moves backwards.
func (d *Debouncer) Record(p Presence, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = p
	if now.After(d.lastSetAt) {
		d.lastSetAt = now
	}
}

// Last returns the last pushed presence and when it was pushed.
func (d *Debouncer) Last() (Presence, time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.lastSetAt, !d.lastSetAt.IsZero()
}
