package vad

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/loop"
)

type harness struct {
	clock    *loop.Manual
	input    *audio.FakeInput
	monitor  *Monitor
	attempts []Attempt
	states   []State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: loop.NewManual(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		input: audio.NewFakeInput(),
	}
	h.monitor = New(DefaultConfig(), h.input, h.clock, zerolog.Nop())
	h.monitor.OnStop(func(a Attempt) { h.attempts = append(h.attempts, a) })
	h.monitor.OnChange(func(s State) { h.states = append(h.states, s) })
	return h
}

func (h *harness) detectedTransitions() int {
	n := 0
	prev := false
	for _, s := range h.states {
		if s.Detected && !prev {
			n++
		}
		if !s.Detected && prev && s.Recording {
			n += 100
		}
		prev = s.Detected
	}
	return n
}

func TestDetectionAfterMinDurationIsSticky(t *testing.T) {
	h := newHarness(t)
	h.input.SetLevel(0.5)
	if !h.monitor.Start() {
		t.Fatalf("expected start")
	}

	h.clock.Advance(384 * time.Millisecond)
	if h.monitor.State().Detected {
		t.Fatalf("detected before min duration")
	}
	h.clock.Advance(16 * time.Millisecond)
	if !h.monitor.State().Detected {
		t.Fatalf("expected detection at 400ms, duration %v", h.monitor.State().Duration)
	}

	// A dip below threshold keeps the flag.
	h.input.SetLevel(0)
	h.clock.Advance(500 * time.Millisecond)
	if !h.monitor.State().Detected || !h.monitor.State().Recording {
		t.Fatalf("expected detection to stay set while recording")
	}
	h.input.SetLevel(0.5)
	h.clock.Advance(500 * time.Millisecond)

	h.monitor.Stop()
	if got := h.detectedTransitions(); got != 1 {
		t.Fatalf("expected exactly one detection transition, got %d", got)
	}
	if len(h.attempts) != 1 || !h.attempts[0].Detected || h.attempts[0].Reason != StopManual {
		t.Fatalf("unexpected attempts: %+v", h.attempts)
	}
}

func TestSilenceAutoStopsWithoutDetection(t *testing.T) {
	h := newHarness(t)
	h.input.SetLevel(0.5)
	h.monitor.Start()
	h.clock.Advance(192 * time.Millisecond)
	h.input.SetLevel(0)

	h.clock.Advance(1999 * time.Millisecond)
	if !h.monitor.State().Recording {
		t.Fatalf("stopped before silence timeout")
	}
	h.clock.Advance(time.Millisecond)
	if h.monitor.State().Recording {
		t.Fatalf("expected auto stop after silence")
	}
	if len(h.attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(h.attempts))
	}
	a := h.attempts[0]
	if a.Detected || a.Reason != StopSilence {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if a.Duration != 192*time.Millisecond {
		t.Fatalf("expected 192ms of speech, got %v", a.Duration)
	}
}

func TestSilenceAutoStopKeepsDetection(t *testing.T) {
	h := newHarness(t)
	h.input.SetLevel(0.5)
	h.monitor.Start()
	h.clock.Advance(608 * time.Millisecond)
	h.input.SetLevel(0)
	h.clock.Advance(3 * time.Second)

	if len(h.attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(h.attempts))
	}
	a := h.attempts[0]
	if !a.Detected || a.Reason != StopSilence {
		t.Fatalf("unexpected attempt %+v", a)
	}
	want := 128.0 / 255
	if math.Abs(a.AverageVolume-want) > 1e-9 {
		t.Fatalf("expected average %.4f, got %.4f", want, a.AverageVolume)
	}
}

func TestSilenceBeforeSpeechDoesNotStop(t *testing.T) {
	h := newHarness(t)
	h.monitor.Start()
	h.clock.Advance(5 * time.Second)
	if !h.monitor.State().Recording {
		t.Fatalf("silence before any speech must not stop the recording")
	}
}

func TestMaxDurationAlwaysStops(t *testing.T) {
	for _, level := range []float64{0, 0.5} {
		h := newHarness(t)
		h.input.SetLevel(level)
		h.monitor.Start()
		h.clock.Advance(5999 * time.Millisecond)
		if !h.monitor.State().Recording {
			t.Fatalf("level %.1f: stopped early", level)
		}
		h.clock.Advance(time.Millisecond)
		if h.monitor.State().Recording {
			t.Fatalf("level %.1f: expected stop at max duration", level)
		}
		if len(h.attempts) != 1 || h.attempts[0].Reason != StopMaxDuration {
			t.Fatalf("level %.1f: unexpected attempts %+v", level, h.attempts)
		}
		if h.clock.Pending() != 0 {
			t.Fatalf("level %.1f: expected all timers cleared, %d pending", level, h.clock.Pending())
		}
		if h.input.Active() {
			t.Fatalf("level %.1f: expected stream released", level)
		}
	}
}

func TestStopIsIdempotentAndReleasesStream(t *testing.T) {
	h := newHarness(t)
	h.monitor.Stop()
	if len(h.attempts) != 0 {
		t.Fatalf("stop while idle must not report an attempt")
	}

	h.monitor.Start()
	if h.monitor.Start() {
		t.Fatalf("second start must be a no-op")
	}
	if h.input.Opens() != 1 {
		t.Fatalf("expected a single stream, got %d opens", h.input.Opens())
	}
	h.monitor.Toggle()
	h.monitor.Stop()
	if len(h.attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(h.attempts))
	}
	if h.input.Closes() != 1 || h.clock.Pending() != 0 {
		t.Fatalf("expected stream closed and timers cleared")
	}
	if h.attempts[0].AverageVolume != 0 {
		t.Fatalf("expected zero average without samples")
	}
}

func TestRestartClearsDetection(t *testing.T) {
	h := newHarness(t)
	h.input.SetLevel(0.5)
	h.monitor.Start()
	h.clock.Advance(time.Second)
	h.monitor.Stop()
	if !h.monitor.State().Detected {
		t.Fatalf("expected detection to survive stop")
	}
	h.input.SetLevel(0)
	h.monitor.Start()
	if h.monitor.State().Detected || h.monitor.State().Duration != 0 {
		t.Fatalf("expected a fresh state on start, got %+v", h.monitor.State())
	}
}

func TestPermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.input.Err = errors.New("no device")
	if h.monitor.Start() {
		t.Fatalf("expected start to fail")
	}
	if h.monitor.Permission() != PermissionDenied {
		t.Fatalf("expected denied, got %v", h.monitor.Permission())
	}
	if h.monitor.State().Recording || h.clock.Pending() != 0 {
		t.Fatalf("expected nothing running after denial")
	}

	h.input.Err = nil
	if !h.monitor.RequestPermission() || h.monitor.Permission() != PermissionGranted {
		t.Fatalf("expected permission granted after retry")
	}
	if h.input.Active() {
		t.Fatalf("permission probe must release the stream")
	}
}
