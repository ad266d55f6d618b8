package common

import (
	"sync"
	"time"
)

// Debouncer is a per-key time gate: Allow returns true at most once per
// interval for each key. Used to keep repeated per-item notifications from
// firing on every cycle.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval, last: make(map[string]time.Time)}
}

// Allow reports whether key may fire at now and, if so, marks it.
func (d *Debouncer) Allow(key string, now time.Time) bool {
	if d == nil || d.interval <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.last[key]; ok && now.Sub(last) < d.interval {
		return false
	}
	d.last[key] = now
	return true
}

// Reset forgets key, so the next Allow fires.
func (d *Debouncer) Reset(key string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	delete(d.last, key)
	d.mu.Unlock()
}
