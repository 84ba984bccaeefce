package speech

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/loop"
)

// Sayer speaks on behalf of a loop-owned controller. done runs on the loop
// after the utterance ends; a superseded or cancelled utterance never calls
// its done.
type Sayer interface {
	Say(text string, done func())
	Cancel()
}

// Voice runs a Speaker off-loop and posts completions back through the
// scheduler. Say and Cancel must be called on the loop goroutine.
type Voice struct {
	speaker Speaker
	sched   loop.Scheduler
	log     zerolog.Logger

	seq    int
	cancel context.CancelFunc
}

func NewVoice(speaker Speaker, sched loop.Scheduler, log zerolog.Logger) *Voice {
	return &Voice{speaker: speaker, sched: sched, log: log}
}

func (v *Voice) Say(text string, done func()) {
	v.Cancel()
	v.seq++
	id := v.seq
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel

	go func() {
		defer cancel()
		if err := v.speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
			v.log.Warn().Err(err).Str("text", text).Msg("speak failed")
			_ = Silent{Delay: FallbackDelay}.Speak(ctx, text)
		}
		v.sched.Post(func() {
			if id != v.seq {
				return
			}
			v.cancel = nil
			if done != nil {
				done()
			}
		})
	}()
}

// Cancel stops the current utterance without calling its done.
func (v *Voice) Cancel() {
	v.seq++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// Recorder is a Sayer for tests. Each utterance finishes after Delay on the
// scheduler.
type Recorder struct {
	Delay  time.Duration
	Spoken []string

	sched loop.Scheduler
	timer loop.Timer
}

func NewRecorder(sched loop.Scheduler, delay time.Duration) *Recorder {
	return &Recorder{sched: sched, Delay: delay}
}

func (r *Recorder) Say(text string, done func()) {
	r.Cancel()
	r.Spoken = append(r.Spoken, text)
	r.timer = r.sched.AfterFunc(r.Delay, func() {
		r.timer = nil
		if done != nil {
			done()
		}
	})
}

func (r *Recorder) Cancel() {
	loop.StopTimer(r.timer)
	r.timer = nil
}

// Speaking reports whether an utterance is in progress.
func (r *Recorder) Speaking() bool { return r.timer != nil }

// Last returns the most recent utterance, or "".
func (r *Recorder) Last() string {
	if len(r.Spoken) == 0 {
		return ""
	}
	return r.Spoken[len(r.Spoken)-1]
}
