package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTickTimerFiresAfterReset(t *testing.T) {
	var ticks int64
	timer := NewTickTimer(10*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})
	defer timer.Stop()

	// Freshly built timers are stopped.
	time.Sleep(30 * time.Millisecond)
	if n := atomic.LoadInt64(&ticks); n != 0 {
		t.Fatalf("ticks before Reset = %d, want 0", n)
	}

	timer.Reset()
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&ticks) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timer never ticked after Reset")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTickTimerStopIsDeterministic(t *testing.T) {
	var ticks int64
	timer := NewTickTimer(10*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})

	timer.Reset()
	time.Sleep(35 * time.Millisecond)
	timer.Stop()

	// Let any tick that was already in flight land before sampling.
	time.Sleep(20 * time.Millisecond)
	settled := atomic.LoadInt64(&ticks)
	time.Sleep(50 * time.Millisecond)
	if after := atomic.LoadInt64(&ticks); after != settled {
		t.Fatalf("ticks advanced after Stop: %d -> %d", settled, after)
	}

	// Stop is idempotent.
	timer.Stop()
}

func TestTickTimerResetRestartsFullInterval(t *testing.T) {
	var ticks int64
	timer := NewTickTimer(200*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})
	defer timer.Stop()

	timer.Reset()
	time.Sleep(120 * time.Millisecond)
	timer.Reset() // restart before the first tick fired

	time.Sleep(120 * time.Millisecond)
	if n := atomic.LoadInt64(&ticks); n != 0 {
		t.Fatalf("ticks = %d, want 0: Reset must restart the full interval", n)
	}
}
