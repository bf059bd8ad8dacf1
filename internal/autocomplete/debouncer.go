package autocomplete

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of triggers into a single callback that fires
// only after the burst has been quiet for a full window. Each Schedule
// cancels any pending callback and starts the wait over.
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer

	// after is swapped in tests to control firing.
	after func(d time.Duration, fn func()) *time.Timer
}

// NewDebouncer returns a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window, after: time.AfterFunc}
}

// Schedule arranges for fn to run once the window elapses with no further
// Schedule or Cancel calls.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.after(d.window, fn)
}

// Cancel drops any pending callback without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
