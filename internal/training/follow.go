package training

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/speech"
	"github.com/verte-zerg/tinytalk/internal/vad"
)

// nextLineDelay separates the "well done" line from the next prompt.
const nextLineDelay = time.Second

type FollowDeps struct {
	Monitor Monitor
	Voice   speech.Sayer
	Tones   audio.Tones
	Phrases model.Phrases
	Sched   loop.Scheduler
	Log     zerolog.Logger
}

// FollowSnapshot is the render-ready view of a follow-along run.
type FollowSnapshot struct {
	Active     bool
	Index      int
	Total      int
	Line       string
	Recording  bool
	Voice      vad.State
	Permission vad.Permission
	Message    string
	Done       bool
}

// Follow walks a rhyme line by line: the line is read out, the child
// repeats it, and a heard attempt moves on to the next line. Like
// Controller it runs on the scheduler's owner goroutine only.
type Follow struct {
	d FollowDeps

	lines   []string
	index   int
	active  bool
	done    bool
	message string
	next    loop.Timer

	onChange func()
}

func NewFollow(d FollowDeps) *Follow {
	f := &Follow{d: d}
	d.Monitor.OnStop(f.handleAttempt)
	d.Monitor.OnChange(func(vad.State) { f.changed() })
	return f
}

func (f *Follow) OnChange(fn func()) { f.onChange = fn }

// Begin starts at the first line and reads it out.
func (f *Follow) Begin(lines []string) {
	f.Stop()
	if len(lines) == 0 {
		return
	}
	f.lines = append([]string(nil), lines...)
	f.index = 0
	f.active = true
	f.done = false
	f.prompt()
}

func (f *Follow) prompt() {
	f.message = f.d.Phrases.FollowFor(f.lines[f.index])
	f.d.Voice.Say(f.message, nil)
	f.changed()
}

// Toggle starts a recording, or stops the one in progress.
func (f *Follow) Toggle() {
	if !f.active {
		return
	}
	if f.d.Monitor.State().Recording {
		f.d.Monitor.Stop()
		return
	}
	loop.StopTimer(f.next)
	f.next = nil
	f.d.Voice.Cancel()
	if !f.d.Monitor.Start() {
		f.changed()
		return
	}
	f.d.Tones.Start()
}

func (f *Follow) handleAttempt(a vad.Attempt) {
	if !f.active {
		return
	}
	if !a.Detected {
		f.message = f.d.Phrases.FollowRetry
		f.d.Voice.Say(f.message, nil)
		f.changed()
		return
	}
	f.d.Tones.Success()
	if f.index >= len(f.lines)-1 {
		f.active = false
		f.done = true
		f.message = f.d.Phrases.FollowDone
		f.d.Log.Info().Int("lines", len(f.lines)).Msg("rhyme follow-along finished")
		f.d.Voice.Say(f.message, nil)
		f.changed()
		return
	}
	f.message = f.d.Phrases.FollowOK
	idx := f.index
	f.d.Voice.Say(f.message, func() {
		f.next = f.d.Sched.AfterFunc(nextLineDelay, func() {
			f.next = nil
			if !f.active || f.index != idx {
				return
			}
			f.index++
			f.prompt()
		})
	})
	f.changed()
}

// Stop ends the run, cutting off any recording and speech.
func (f *Follow) Stop() {
	wasActive := f.active
	f.active = false
	loop.StopTimer(f.next)
	f.next = nil
	if f.d.Monitor.State().Recording {
		f.d.Monitor.Stop()
	}
	f.d.Voice.Cancel()
	if wasActive {
		f.changed()
	}
}

func (f *Follow) Snapshot() FollowSnapshot {
	s := FollowSnapshot{
		Active:     f.active,
		Index:      f.index,
		Total:      len(f.lines),
		Recording:  f.d.Monitor.State().Recording,
		Voice:      f.d.Monitor.State(),
		Permission: f.d.Monitor.Permission(),
		Message:    f.message,
		Done:       f.done,
	}
	if f.index < len(f.lines) {
		s.Line = f.lines[f.index]
	}
	return s
}

func (f *Follow) changed() {
	if f.onChange != nil {
		f.onChange()
	}
}
