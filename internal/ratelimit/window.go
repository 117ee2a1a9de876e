package ratelimit

import (
	"sync"
	"time"
)

// Tracker counts requests against an upstream quota over a rolling window.
// Purely advisory: callers decide whether a denied request is skipped,
// delayed, or queued.
type Tracker struct {
	window time.Duration
	quota  int

	mu    sync.Mutex
	calls []time.Time
	now   func() time.Time
}

func NewTracker(window time.Duration, quota int) *Tracker {
	if quota <= 0 {
		quota = 1
	}
	return &Tracker{
		window: window,
		quota:  quota,
		now:    time.Now,
	}
}

// Allow reports whether one more request fits in the current window and, if
// so, records it. Safe for concurrent use.
func (t *Tracker) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-t.window)

	// Prune calls that aged out of the window. The slice is ordered, so the
	// first still-valid entry bounds the prune.
	kept := 0
	for ; kept < len(t.calls); kept++ {
		if t.calls[kept].After(cutoff) {
			break
		}
	}
	if kept > 0 {
		t.calls = append(t.calls[:0], t.calls[kept:]...)
	}

	if len(t.calls) >= t.quota {
		return false
	}
	t.calls = append(t.calls, now)
	return true
}

// Remaining reports how many requests are still admissible in the current
// window without recording anything.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.window)
	n := 0
	for _, c := range t.calls {
		if c.After(cutoff) {
			n++
		}
	}
	if n >= t.quota {
		return 0
	}
	return t.quota - n
}
