// Package ratelimit implements the engine's per-engine crawl-delay
// limiter (spec.md §4.4) plus an adaptive RTT-based throttle adapted
// from the teacher's crawler.AdaptiveLimiter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// clock is overridable in tests.
var now = time.Now

// Limiter enforces a minimum elapsed interval between successive fetch
// acquisitions. It is global to the engine, not per-host -- spec.md §4.4
// and §9 call this out explicitly: Reset is invoked with each newly
// discovered host's robots crawl-delay, so in practice the limiter tracks
// "whichever host was touched most recently". This is preserved exactly
// as specified rather than silently upgraded to a per-host limiter (see
// DESIGN.md's Open Question decision).
type Limiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

// New returns a Limiter with the given initial minimum interval.
func New(minInterval time.Duration) *Limiter {
	return &Limiter{minInterval: minInterval}
}

// Acquire blocks until minInterval has elapsed since the previous
// Acquire's acquisition time, which it records when it claims its slot.
// It returns early with ctx.Err() if ctx is cancelled while waiting; the
// claimed slot still counts as an acquisition.
func (l *Limiter) Acquire(ctx context.Context) error {
	// Reserve the next slot under the lock, so concurrent callers are
	// spaced minInterval apart instead of all waking together.
	l.mu.Lock()
	current := now()
	slot := current
	if !l.last.IsZero() {
		if next := l.last.Add(l.minInterval); next.After(slot) {
			slot = next
		}
	}
	l.last = slot
	l.mu.Unlock()

	if wait := slot.Sub(current); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Reset atomically replaces the minimum interval and clears the last
// acquisition time, so the very next Acquire does not wait (spec.md
// §4.4 "reset(newInterval) atomically replaces minInterval and clears
// lastAcquireTime").
func (l *Limiter) Reset(newInterval time.Duration) {
	l.mu.Lock()
	l.minInterval = newInterval
	l.last = time.Time{}
	l.mu.Unlock()
}

// MinInterval returns the currently configured minimum interval.
func (l *Limiter) MinInterval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minInterval
}
