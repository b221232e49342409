package queue

import (
	"testing"
	"time"
)

func TestDequePriorityOrdering(t *testing.T) {
	d := NewDeque()

	d.PushLeft(Item{URL: "normal-1"})
	d.PushLeft(Item{URL: "normal-2"})
	d.PushRight(Item{URL: "priority-1", Kind: Feed})

	// Priority items enter at the right and are popped first.
	if got := d.PopRight().URL; got != "priority-1" {
		t.Errorf("PopRight() = %q, want %q", got, "priority-1")
	}
	// Normals pop FIFO relative to each other once the right side drains:
	// normal-1 was pushed first, so it is the new right end; normal-2 was
	// pushed last (leftmost) and pops after it.
	if got := d.PopRight().URL; got != "normal-1" {
		t.Errorf("PopRight() = %q, want %q", got, "normal-1")
	}
	if got := d.PopRight().URL; got != "normal-2" {
		t.Errorf("PopRight() = %q, want %q", got, "normal-2")
	}
}

func TestDequePushOverridesByKind(t *testing.T) {
	d := NewDeque()
	d.PushLeft(Item{URL: "normal"})
	d.Push(Item{URL: "sitemap-item", Kind: Sitemap})

	if got := d.PopRight().URL; got != "sitemap-item" {
		t.Errorf("expected sitemap item (priority) to pop first, got %q", got)
	}
}

func TestDequePopRightBlocksUntilPush(t *testing.T) {
	d := NewDeque()
	done := make(chan Item, 1)
	go func() {
		done <- d.PopRight()
	}()

	select {
	case <-done:
		t.Fatalf("PopRight returned before any item was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	d.PushRight(Item{URL: "late-item"})

	select {
	case item := <-done:
		if item.URL != "late-item" {
			t.Errorf("got %q, want %q", item.URL, "late-item")
		}
	case <-time.After(time.Second):
		t.Fatalf("PopRight did not unblock after push")
	}
}

func TestDequeLateArrivingPriorityOvertakesWaitingNormals(t *testing.T) {
	d := NewDeque()
	d.PushLeft(Item{URL: "waiting-normal"})
	// A priority item pushed after a normal is already waiting overtakes it
	// (spec.md §5 "Ordering guarantees").
	d.PushRight(Item{URL: "late-priority", Kind: Terminal})

	if got := d.PopRight().URL; got != "late-priority" {
		t.Errorf("PopRight() = %q, want %q", got, "late-priority")
	}
}
