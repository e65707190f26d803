// Package listview provides the pieces behind every list screen: filters that
// become backend query parameters, page-replace and load-more pagination,
// debounced search, the combined View over the query cache and confirmed row
// actions (archive, restore, delete).
package listview

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a search is sent.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer runs a function once calls have stopped for its duration.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	seq      uint64
}

// NewDebouncer creates a debouncer. A non-positive duration uses DefaultDebounce.
func NewDebouncer(duration time.Duration) *Debouncer {
	if duration <= 0 {
		duration = DefaultDebounce
	}
	return &Debouncer{duration: duration}
}

// Duration is the quiet period.
func (d *Debouncer) Duration() time.Duration { return d.duration }

// Debounce schedules fn after the quiet period. Each call replaces the pending
// function and restarts the wait.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		// A Stop that lost the race with the timer firing must still win.
		if d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Pending reports whether a call is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Immediate cancels any pending call and runs fn now.
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}
