// Package memwatch monitors process memory pressure and triggers a
// throttle callback on level changes, adapted from the teacher's
// crawler.MemoryWatcher. A large-scale crawl keeps its visited set in a
// disk-backed bloom filter (internal/queue's largeScaleVisited path),
// but the deque, per-page content bytes, and in-flight worker state are
// still heap-resident, so an engine running with LargeScaleCrawl set
// still needs pressure feedback to avoid an OOM kill.
package memwatch

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Level indicates memory pressure severity.
type Level int

const (
	// Normal indicates memory usage is within normal bounds.
	Normal Level = iota
	// Warning indicates memory usage is elevated (at least 75% and
	// below 90% of limit).
	Warning
	// Critical indicates memory usage is critical (90% of limit or more).
	Critical
)

// Watcher monitors memory pressure and triggers throttling callbacks.
// It uses runtime/debug.SetMemoryLimit for a soft memory limit (Go 1.19+).
type Watcher struct {
	mu         sync.RWMutex
	limitBytes int64
	callback   func(level Level)
	lastLevel  Level
}

// New creates a Watcher with the specified limit in MB.
func New(limitMB int64) *Watcher {
	limitBytes := limitMB * 1024 * 1024
	debug.SetMemoryLimit(limitBytes)
	return &Watcher{limitBytes: limitBytes, lastLevel: Normal}
}

// Check returns current memory usage percentage and throttle level,
// invoking the registered callback if the level has changed.
func (w *Watcher) Check() (usedPercent float64, level Level) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	usedBytes := float64(memStats.HeapAlloc)
	limitBytes := float64(w.limitBytes)
	if limitBytes <= 0 {
		return 0, Normal
	}

	usedPercent = (usedBytes / limitBytes) * 100
	switch {
	case usedPercent >= 90:
		level = Critical
	case usedPercent >= 75:
		level = Warning
	default:
		level = Normal
	}

	w.mu.RLock()
	lastLevel := w.lastLevel
	callback := w.callback
	w.mu.RUnlock()

	if level != lastLevel && callback != nil {
		w.mu.Lock()
		w.lastLevel = level
		w.mu.Unlock()
		callback(level)
	}

	return usedPercent, level
}

// SetThrottleCallback registers a callback invoked when the throttle
// level changes.
func (w *Watcher) SetThrottleCallback(cb func(level Level)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = cb
}

// SetLimit updates the memory limit in bytes.
func (w *Watcher) SetLimit(limitBytes int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.limitBytes = limitBytes
	debug.SetMemoryLimit(limitBytes)
}
