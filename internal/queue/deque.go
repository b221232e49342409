package queue

import "sync"

// Deque is a concurrency-safe double-ended queue of Items biased for two
// priority classes (spec.md §4.3): high-priority items (terminal
// sentinels, sitemaps, feeds, explicitly-flagged items) enter at the
// right and are popped next; normal items enter at the left and are only
// popped once the right side drains. Manager.Enqueue pushes through
// Push, which picks the end by Item.isPriority(); the two raw ends are
// also exposed for callers that push directly (terminal-sentinel
// injection uses PushRight).
type Deque struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []Item
}

// NewDeque returns an empty Deque.
func NewDeque() *Deque {
	d := &Deque{}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// PushRight inserts item at the right end (priority side) and wakes one
// waiting popper.
func (d *Deque) PushRight(item Item) {
	d.mu.Lock()
	d.items = append(d.items, item)
	d.mu.Unlock()
	d.cond.Signal()
}

// PushLeft inserts item at the left end (normal side) and wakes one
// waiting popper.
func (d *Deque) PushLeft(item Item) {
	d.mu.Lock()
	d.items = append([]Item{item}, d.items...)
	d.mu.Unlock()
	d.cond.Signal()
}

// Push inserts item at whichever end its priority class dictates.
func (d *Deque) Push(item Item) {
	if item.isPriority() {
		d.PushRight(item)
	} else {
		d.PushLeft(item)
	}
}

// PopRight blocks until an item is available, then removes and returns
// the rightmost one.
func (d *Deque) PopRight() Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.items) == 0 {
		d.cond.Wait()
	}
	last := len(d.items) - 1
	item := d.items[last]
	d.items = d.items[:last]
	return item
}

// Len returns the current number of queued items. Intended for
// diagnostics; the engine's termination decision uses Counters, not
// Deque length, per spec.md §4.9.
func (d *Deque) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}
