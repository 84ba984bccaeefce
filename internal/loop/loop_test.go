package loop

import (
	"testing"
	"time"
)

func TestDispatcherStopBeforeDispatch(t *testing.T) {
	queue := make(chan func(), 4)
	d := NewDispatcher(func(fn func()) { queue <- fn })

	ran := false
	timer := d.AfterFunc(time.Millisecond, func() { ran = true })

	var fn func()
	select {
	case fn = <-queue:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never dispatched")
	}
	// The owner goroutine stops the timer before draining its queue.
	if !timer.Stop() {
		t.Fatalf("expected stop to win before the callback ran")
	}
	fn()
	if ran {
		t.Fatalf("callback ran after stop")
	}
}

func TestDispatcherRunsTimer(t *testing.T) {
	queue := make(chan func(), 4)
	d := NewDispatcher(func(fn func()) { queue <- fn })

	ran := false
	timer := d.AfterFunc(time.Millisecond, func() { ran = true })
	select {
	case fn := <-queue:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never dispatched")
	}
	if !ran {
		t.Fatalf("expected callback to run")
	}
	if timer.Stop() {
		t.Fatalf("stop after run should report false")
	}
}
