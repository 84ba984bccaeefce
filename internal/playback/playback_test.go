package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type scriptedSpeaker struct {
	mu     sync.Mutex
	spoken []string
	hold   chan struct{}
	began  chan string
}

func newScriptedSpeaker(hold bool) *scriptedSpeaker {
	s := &scriptedSpeaker{began: make(chan string, 16)}
	if hold {
		s.hold = make(chan struct{})
	}
	return s
}

func (s *scriptedSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	s.began <- text
	if s.hold != nil {
		select {
		case <-s.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *scriptedSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func collect() (func(func()), chan Progress, func(Progress)) {
	events := make(chan Progress, 64)
	post := func(fn func()) { fn() }
	return post, events, func(p Progress) { events <- p }
}

func waitFor(t *testing.T, events chan Progress, match func(Progress) bool) Progress {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case p := <-events:
			if match(p) {
				return p
			}
		case <-deadline:
			t.Fatalf("timed out waiting for progress")
		}
	}
}

func TestPlayReadsItemsInOrder(t *testing.T) {
	speaker := newScriptedSpeaker(false)
	post, events, onProgress := collect()
	p := New(speaker, Options{Gap: time.Millisecond, Poll: time.Millisecond}, post, zerolog.Nop())

	p.Play(context.Background(), []string{"一", "二", "三"}, 0, onProgress)
	done := waitFor(t, events, func(p Progress) bool { return p.Done })
	p.Wait()

	if done.Total != 3 || done.Index != 2 {
		t.Fatalf("unexpected final progress %+v", done)
	}
	got := speaker.Spoken()
	if len(got) != 3 || got[0] != "一" || got[2] != "三" {
		t.Fatalf("unexpected spoken order %v", got)
	}
}

func TestPlayFromIndex(t *testing.T) {
	speaker := newScriptedSpeaker(false)
	post, events, onProgress := collect()
	p := New(speaker, Options{Gap: 0, Poll: time.Millisecond}, post, zerolog.Nop())
	p.Play(context.Background(), []string{"一", "二", "三"}, 1, onProgress)
	waitFor(t, events, func(p Progress) bool { return p.Done })
	p.Wait()
	if got := speaker.Spoken(); len(got) != 2 || got[0] != "二" {
		t.Fatalf("expected to resume from the second item, got %v", got)
	}
}

func TestStopTakesEffectAtNextCheckpoint(t *testing.T) {
	speaker := newScriptedSpeaker(true)
	post, _, onProgress := collect()
	p := New(speaker, Options{Gap: time.Millisecond, Poll: time.Millisecond}, post, zerolog.Nop())

	p.Play(context.Background(), []string{"一", "二", "三"}, 0, onProgress)
	<-speaker.began
	p.Stop()
	p.Wait()

	if got := speaker.Spoken(); len(got) != 1 {
		t.Fatalf("expected nothing after stop, got %v", got)
	}
}

func TestPauseHoldsBeforeNextItem(t *testing.T) {
	speaker := newScriptedSpeaker(true)
	post, events, onProgress := collect()
	p := New(speaker, Options{Gap: time.Millisecond, Poll: time.Millisecond}, post, zerolog.Nop())

	p.Play(context.Background(), []string{"一", "二"}, 0, onProgress)
	<-speaker.began
	p.Pause()
	speaker.hold <- struct{}{}

	paused := waitFor(t, events, func(p Progress) bool { return p.Paused })
	if paused.Index != 1 {
		t.Fatalf("expected pause before the second item, got %+v", paused)
	}
	select {
	case text := <-speaker.began:
		t.Fatalf("spoke %q while paused", text)
	case <-time.After(30 * time.Millisecond):
	}

	p.Resume()
	if text := <-speaker.began; text != "二" {
		t.Fatalf("expected second item after resume, got %q", text)
	}
	speaker.hold <- struct{}{}
	waitFor(t, events, func(p Progress) bool { return p.Done })
	p.Wait()
}

func TestReplacedRunProgressIsDropped(t *testing.T) {
	speaker := newScriptedSpeaker(true)
	post, events, onProgress := collect()
	p := New(speaker, Options{Gap: time.Millisecond, Poll: time.Millisecond}, post, zerolog.Nop())

	p.Play(context.Background(), []string{"旧"}, 0, onProgress)
	<-speaker.began
	waitFor(t, events, func(p Progress) bool { return p.Text == "旧" })
	p.Stop()
	p.Wait()

	p.Play(context.Background(), []string{"新"}, 0, onProgress)
	<-speaker.began
	speaker.hold <- struct{}{}
	final := waitFor(t, events, func(p Progress) bool { return p.Done || p.Stopped })
	if !final.Done {
		t.Fatalf("stopped progress from the replaced run leaked: %+v", final)
	}
	p.Wait()
}
