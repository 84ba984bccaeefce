package loop

import (
	"sort"
	"time"
)

// Manual is a virtual-time Scheduler. Nothing runs until the owner calls
// Flush or Advance, which makes timer-driven controllers deterministic in
// tests.
type Manual struct {
	now    time.Time
	seq    int
	timers []*manualTimer
	posted []func()
}

type manualTimer struct {
	when    time.Time
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewManual returns a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time {
	return m.now
}

// Post implements Scheduler.
func (m *Manual) Post(fn func()) {
	m.posted = append(m.posted, fn)
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{when: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Flush runs posted callbacks until none are left.
func (m *Manual) Flush() {
	for len(m.posted) > 0 {
		fn := m.posted[0]
		m.posted = m.posted[1:]
		fn()
	}
}

// Advance moves the clock forward by d, running every timer that comes due
// in deadline order. The clock reads each timer's deadline while its
// callback runs.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	m.Flush()
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.now = t.when
		t.stopped = true
		t.fn()
		m.Flush()
	}
	m.now = target
}

// Set moves the clock to at without running timers. Use it to simulate
// wall-clock jumps such as a calendar rollover.
func (m *Manual) Set(at time.Time) {
	m.now = at
}

// Pending returns the number of timers that have not run or been stopped.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].when.Equal(m.timers[j].when) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].when.Before(m.timers[j].when)
	})
	if m.timers[0].when.After(target) {
		return nil
	}
	return m.timers[0]
}
