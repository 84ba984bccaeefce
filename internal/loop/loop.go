// Package loop schedules deferred work onto a single owner goroutine.
//
// Controllers in tinytalk are not safe for concurrent use. Instead of
// locking, every timer callback and background completion is handed to a
// dispatch function that runs it on the goroutine owning the controllers
// (the Bubble Tea update loop in the running program, the test goroutine
// under Manual).
package loop

import (
	"sync/atomic"
	"time"
)

// Timer is a pending callback created by AfterFunc.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already ran or was stopped.
	Stop() bool
}

// Scheduler hands out time and runs callbacks on the owner goroutine.
type Scheduler interface {
	Now() time.Time
	// Post runs fn on the owner goroutine at the next opportunity.
	Post(fn func())
	// AfterFunc runs fn on the owner goroutine once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Dispatcher implements Scheduler on top of a dispatch function that
// enqueues work for the owner goroutine.
type Dispatcher struct {
	dispatch func(func())
	now      func() time.Time
}

// NewDispatcher returns a Dispatcher using the wall clock.
func NewDispatcher(dispatch func(func())) *Dispatcher {
	return &Dispatcher{dispatch: dispatch, now: time.Now}
}

// Now implements Scheduler.
func (d *Dispatcher) Now() time.Time {
	return d.now()
}

// Post implements Scheduler. The dispatch happens on a fresh goroutine so
// posting from the owner goroutine never blocks on itself.
func (d *Dispatcher) Post(fn func()) {
	go d.dispatch(fn)
}

// Send hands fn to the owner goroutine in order with other Send calls. It
// may block, so it must only be called off the owner goroutine.
func (d *Dispatcher) Send(fn func()) {
	d.dispatch(fn)
}

// AfterFunc implements Scheduler.
func (d *Dispatcher) AfterFunc(delay time.Duration, fn func()) Timer {
	t := &dispatchTimer{}
	t.timer = time.AfterFunc(delay, func() {
		d.dispatch(func() {
			// Stop may have been called after the wall timer fired but
			// before the owner goroutine picked the callback up.
			if !t.fired.CompareAndSwap(false, true) {
				return
			}
			fn()
		})
	})
	return t
}

type dispatchTimer struct {
	timer *time.Timer
	fired atomic.Bool
}

func (t *dispatchTimer) Stop() bool {
	t.timer.Stop()
	return t.fired.CompareAndSwap(false, true)
}

// StopTimer stops t if it is non-nil. It exists so callers can keep a nil
// Timer field for "nothing scheduled".
func StopTimer(t Timer) {
	if t != nil {
		t.Stop()
	}
}
