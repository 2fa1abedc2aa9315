package live

import (
	"sync"
	"time"
)

// timerToken is an arm/cancel abstraction over a one-shot timer. Cancel
// and the fire callback are mutually exclusive: once either has won, the
// other is a no-op. This is what makes the fallback timer race-free with
// a concurrently-arriving "reached active" event.
type timerToken struct {
	mu    sync.Mutex
	timer *time.Timer
	armed bool
	done  bool
}

// Arm schedules fn after d. Arming an already-armed or already-resolved
// token is a no-op.
func (t *timerToken) Arm(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed || t.done {
		return
	}
	t.armed = true
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.done {
			// Cancelled after the timer fired but before we got the
			// lock. The cancel won; do nothing.
			t.mu.Unlock()
			return
		}
		t.armed = false
		t.done = true
		t.mu.Unlock()
		fn()
	})
}

// Cancel resolves the token so the callback can never run. Idempotent and
// safe on a never-armed token.
func (t *timerToken) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.armed = false
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Armed reports whether the timer is scheduled and unresolved.
func (t *timerToken) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed && !t.done
}
