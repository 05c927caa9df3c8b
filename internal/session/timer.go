package session

import (
	"sync"
	"time"
)

// TickFunc is invoked once per timer interval.
type TickFunc func()

// Timer is the per-question countdown tick source. Reset restarts ticking
// from a full interval; Stop cancels ticking deterministically so no tick
// fires after the session leaves the answering phase.
type Timer interface {
	Reset()
	Stop()
}

// TickTimer drives a TickFunc on a fixed wall-clock period.
type TickTimer struct {
	mu       sync.Mutex
	interval time.Duration
	fn       TickFunc
	quit     chan struct{}
}

// NewTickTimer creates a stopped TickTimer. Call Reset to start ticking.
func NewTickTimer(interval time.Duration, fn TickFunc) *TickTimer {
	return &TickTimer{interval: interval, fn: fn}
}

// Reset stops any running tick loop and starts a fresh one, so the first
// tick fires one full interval from now.
func (t *TickTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	quit := make(chan struct{})
	t.quit = quit

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				t.fn()
			}
		}
	}()
}

// Stop cancels the tick loop. Safe to call repeatedly.
func (t *TickTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *TickTimer) stopLocked() {
	if t.quit != nil {
		close(t.quit)
		t.quit = nil
	}
}

// nopTimer is used in tests, where ticks are injected manually.
type nopTimer struct{}

func (nopTimer) Reset() {}
func (nopTimer) Stop()  {}
