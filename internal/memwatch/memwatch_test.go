package memwatch

import (
	"runtime"
	"testing"
)

func TestWatcherBasicCheck(t *testing.T) {
	w := New(1024)

	usedPercent, level := w.Check()
	if usedPercent < 0 || usedPercent > 100 {
		t.Errorf("usedPercent = %f, want between 0 and 100", usedPercent)
	}
	if level != Normal {
		t.Errorf("level = %v, want Normal", level)
	}
}

func TestWatcherThrottleLevels(t *testing.T) {
	w := New(1) // 1MB limit; the live 2MB ballast below guarantees it is exceeded
	ballast := make([]byte, 2<<20)

	_, level := w.Check()
	runtime.KeepAlive(ballast)
	if level == Normal {
		t.Error("expected throttle level > Normal with a 1MB limit")
	}
}

func TestWatcherCallbackFiresOnLevelChange(t *testing.T) {
	w := New(1024)

	var called bool
	w.SetThrottleCallback(func(level Level) { called = true })

	// Drop the limit to 1MB while a live 2MB ballast is held, so the
	// level moves from Normal to Critical on this Check.
	ballast := make([]byte, 2<<20)
	w.SetLimit(1 << 20)
	w.Check()
	runtime.KeepAlive(ballast)
	if !called {
		t.Error("expected the callback to fire when the level changed")
	}
}

func TestWatcherSetLimitUpdatesSubsequentChecks(t *testing.T) {
	w := New(1024)
	w.Check()

	w.SetLimit(2 * 1024 * 1024 * 1024)
	usedPercent, _ := w.Check()
	if usedPercent < 0 {
		t.Errorf("usedPercent = %f, want >= 0", usedPercent)
	}
}
