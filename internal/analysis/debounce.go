package analysis

import (
	"sync"
	"time"
)

// Debouncer schedules one deferred re-analysis per user. Each trigger
// cancels and restarts that user's pending timer, so the callback fires
// once per quiet period. At most one timer exists per user at any time.
type Debouncer struct {
	quiet   time.Duration
	fire    func(userID string)
	timers  map[string]*time.Timer
	stopped bool
	mu      sync.Mutex
}

// NewDebouncer creates a debouncer that calls fire after quiet elapses
// with no further triggers for that user.
func NewDebouncer(quiet time.Duration, fire func(userID string)) *Debouncer {
	return &Debouncer{
		quiet:  quiet,
		fire:   fire,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger restarts the user's quiet-period timer.
func (d *Debouncer) Trigger(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if timer, ok := d.timers[userID]; ok {
		timer.Stop()
	}
	d.timers[userID] = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		delete(d.timers, userID)
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.fire(userID)
		}
	})
}

// Cancel drops any pending timer for the user.
func (d *Debouncer) Cancel(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[userID]; ok {
		timer.Stop()
		delete(d.timers, userID)
	}
}

// Pending reports whether a timer is currently armed for the user.
func (d *Debouncer) Pending(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[userID]
	return ok
}

// Stop cancels all pending timers. The debouncer cannot be reused.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for userID, timer := range d.timers {
		timer.Stop()
		delete(d.timers, userID)
	}
}
