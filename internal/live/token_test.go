package live

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerTokenFires(t *testing.T) {
	var tok timerToken
	fired := make(chan struct{})

	tok.Arm(time.Millisecond, func() { close(fired) })
	if !tok.Armed() {
		t.Error("token not armed after Arm")
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if tok.Armed() {
		t.Error("token still armed after firing")
	}
}

func TestTimerTokenCancelBeforeFire(t *testing.T) {
	var tok timerToken
	var fired atomic.Bool

	tok.Arm(10*time.Millisecond, func() { fired.Store(true) })
	tok.Cancel()

	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Error("callback ran after cancel")
	}
	if tok.Armed() {
		t.Error("cancelled token reports armed")
	}
}

func TestTimerTokenCancelIdempotent(t *testing.T) {
	var tok timerToken
	tok.Cancel()
	tok.Cancel()

	// A resolved token must refuse to re-arm.
	tok.Arm(time.Millisecond, func() { t.Error("resolved token fired") })
	if tok.Armed() {
		t.Error("resolved token reports armed")
	}
	time.Sleep(20 * time.Millisecond)
}

func TestTimerTokenDoubleArm(t *testing.T) {
	var tok timerToken
	var count atomic.Int32

	tok.Arm(time.Millisecond, func() { count.Add(1) })
	tok.Arm(time.Millisecond, func() { count.Add(1) })

	time.Sleep(50 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("callback ran %d times, want exactly once", got)
	}
}
