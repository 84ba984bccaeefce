package training

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/speech"
	"github.com/verte-zerg/tinytalk/internal/vad"
)

var followPhrases = model.Phrases{
	Follow:      "请跟着说：{line}",
	FollowOK:    "很好！",
	FollowRetry: "再试一次。",
	FollowDone:  "学会了！",
}

type followHarness struct {
	clock *loop.Manual
	input *audio.FakeInput
	voice *speech.Recorder
	tones *audio.ToneRecorder
	f     *Follow
}

func newFollowHarness() *followHarness {
	h := &followHarness{
		clock: loop.NewManual(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)),
		input: audio.NewFakeInput(),
		tones: &audio.ToneRecorder{},
	}
	h.voice = speech.NewRecorder(h.clock, time.Second)
	h.f = NewFollow(FollowDeps{
		Monitor: vad.New(vad.DefaultConfig(), h.input, h.clock, zerolog.Nop()),
		Voice:   h.voice,
		Tones:   h.tones,
		Phrases: followPhrases,
		Sched:   h.clock,
		Log:     zerolog.Nop(),
	})
	return h
}

func (h *followHarness) repeat() {
	h.f.Toggle()
	h.input.SetLevel(0.5)
	h.clock.Advance(608 * time.Millisecond)
	h.input.SetLevel(0)
	h.clock.Advance(2 * time.Second)
}

func TestFollowWalksLines(t *testing.T) {
	h := newFollowHarness()
	h.f.Begin([]string{"一闪一闪亮晶晶", "满天都是小星星"})
	if h.voice.Last() != "请跟着说：一闪一闪亮晶晶" {
		t.Fatalf("expected first prompt, got %q", h.voice.Last())
	}

	h.repeat()
	if h.voice.Last() != "很好！" {
		t.Fatalf("expected praise after a heard line, got %q", h.voice.Last())
	}
	if h.tones.Count("success") != 1 {
		t.Fatalf("expected success tone")
	}
	// praise, then the pause before the next prompt
	h.clock.Advance(time.Second)
	h.clock.Advance(time.Second)
	snap := h.f.Snapshot()
	if snap.Index != 1 || h.voice.Last() != "请跟着说：满天都是小星星" {
		t.Fatalf("expected second prompt, got index %d %q", snap.Index, h.voice.Last())
	}

	h.repeat()
	snap = h.f.Snapshot()
	if !snap.Done || snap.Active {
		t.Fatalf("expected run to be done: %+v", snap)
	}
	if h.voice.Last() != "学会了！" {
		t.Fatalf("expected closing line, got %q", h.voice.Last())
	}
}

func TestFollowRetriesUnheardLine(t *testing.T) {
	h := newFollowHarness()
	h.f.Begin([]string{"a", "b"})
	h.f.Toggle()
	if !h.f.Snapshot().Recording {
		t.Fatalf("expected recording")
	}
	if h.tones.Count("start") != 1 {
		t.Fatalf("expected start tone")
	}
	h.clock.Advance(100 * time.Millisecond)
	h.f.Toggle()
	if h.voice.Last() != "再试一次。" {
		t.Fatalf("expected retry line, got %q", h.voice.Last())
	}
	if h.f.Snapshot().Index != 0 {
		t.Fatalf("expected to stay on the first line")
	}
}

func TestFollowStopCancelsPendingLine(t *testing.T) {
	h := newFollowHarness()
	h.f.Begin([]string{"a", "b"})
	h.repeat()
	h.f.Stop()
	h.clock.Advance(5 * time.Second)
	if h.f.Snapshot().Index != 0 {
		t.Fatalf("expected no advance after stop")
	}
	if h.voice.Speaking() {
		t.Fatalf("expected speech to be cancelled")
	}
}

func TestFollowStopDuringRecording(t *testing.T) {
	h := newFollowHarness()
	h.f.Begin([]string{"a"})
	h.f.Toggle()
	h.f.Stop()
	if h.input.Active() {
		t.Fatalf("expected microphone to be released")
	}
	if h.voice.Last() == followPhrases.FollowRetry {
		t.Fatalf("expected no feedback after stop")
	}
}

func TestFollowPermissionDenied(t *testing.T) {
	h := newFollowHarness()
	h.input.Err = errors.New("no device")
	h.f.Begin([]string{"a"})
	h.f.Toggle()
	snap := h.f.Snapshot()
	if snap.Recording || snap.Permission != vad.PermissionDenied {
		t.Fatalf("expected denied permission, got %+v", snap)
	}
	if h.tones.Count("start") != 0 {
		t.Fatalf("expected no start tone without a microphone")
	}
}
