// Package debounce coalesces bursts of calls into a single trailing call.
//
// A Debouncer runs the most recently supplied function once no Trigger has
// arrived for the quiet delay. When a max wait is configured, a burst that
// keeps re-triggering is still flushed once the max wait has elapsed since
// its first Trigger, so work is never starved indefinitely.
package debounce

import (
	"sync"
	"time"

	"constellation/internal/clock"
)

// Debouncer is a trailing-edge debouncer with an optional max-wait ceiling.
//
// Safe for concurrent use. The callback runs without the internal lock held.
type Debouncer struct {
	clock   clock.Clock
	delay   time.Duration
	maxWait time.Duration

	mu         sync.Mutex
	timer      clock.Timer
	fn         func()
	burstStart time.Time
	pending    bool
	gen        uint64
}

// New creates a Debouncer. A maxWait of zero disables the ceiling.
func New(c clock.Clock, delay, maxWait time.Duration) *Debouncer {
	if c == nil {
		c = clock.Real{}
	}
	return &Debouncer{clock: c, delay: delay, maxWait: maxWait}
}

// Trigger schedules fn, replacing any previously scheduled function and
// restarting the quiet period.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if !d.pending {
		d.pending = true
		d.burstStart = now
	}
	d.fn = fn
	if d.timer != nil {
		d.timer.Stop()
	}

	wait := d.delay
	if d.maxWait > 0 {
		remaining := d.burstStart.Add(d.maxWait).Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		if remaining < wait {
			wait = remaining
		}
	}

	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(wait, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	fn := d.takeLocked()
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// takeLocked clears the pending state and returns the scheduled function.
func (d *Debouncer) takeLocked() func() {
	fn := d.fn
	d.fn = nil
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return fn
}

// Flush runs the pending function immediately. It reports whether anything
// was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	fn := d.takeLocked()
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// Cancel drops the pending function without running it. It reports whether
// anything was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending {
		return false
	}
	d.takeLocked()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
