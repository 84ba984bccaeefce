package loop

import (
	"testing"
	"time"
)

func TestManualRunsTimersInDeadlineOrder(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m := NewManual(start)
	var got []string
	m.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	m.AfterFunc(200*time.Millisecond, func() {
		got = append(got, "b")
		if m.Now() != start.Add(200*time.Millisecond) {
			t.Fatalf("expected clock at deadline, got %v", m.Now())
		}
	})

	m.Advance(250 * time.Millisecond)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected order after first advance: %v", got)
	}
	m.Advance(time.Second)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("unexpected order after second advance: %v", got)
	}
	if m.Now() != start.Add(1250*time.Millisecond) {
		t.Fatalf("unexpected clock: %v", m.Now())
	}
}

func TestManualStoppedTimerNeverRuns(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ran := false
	timer := m.AfterFunc(time.Second, func() { ran = true })
	if !timer.Stop() {
		t.Fatalf("expected first stop to report true")
	}
	if timer.Stop() {
		t.Fatalf("expected second stop to report false")
	}
	m.Advance(2 * time.Second)
	if ran {
		t.Fatalf("stopped timer ran")
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", m.Pending())
	}
}

func TestManualTimerScheduledFromCallback(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	count := 0
	var tick func()
	tick = func() {
		count++
		m.AfterFunc(16*time.Millisecond, tick)
	}
	m.AfterFunc(16*time.Millisecond, tick)
	m.Advance(160 * time.Millisecond)
	if count != 10 {
		t.Fatalf("expected 10 ticks, got %d", count)
	}
}

func TestManualPostRunsOnFlush(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ran := 0
	m.Post(func() {
		ran++
		m.Post(func() { ran++ })
	})
	if ran != 0 {
		t.Fatalf("post ran before flush")
	}
	m.Flush()
	if ran != 2 {
		t.Fatalf("expected nested posts to run, got %d", ran)
	}
}
