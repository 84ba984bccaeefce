// Package training runs the per-card practice loop: demo, prompt,
// recording, feedback and on to the next card.
package training

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/speech"
	"github.com/verte-zerg/tinytalk/internal/vad"
)

// MaxAttempts is how many undetected recordings a card allows before it is
// passed anyway with full marks.
const MaxAttempts = 3

// secretTaps within secretWindow open the parent screen.
const (
	secretTaps   = 5
	secretWindow = 2 * time.Second
)

type State int

const (
	StateIdle State = iota
	StateDemoPlaying
	StatePromptHold
	StateRecording
	StateSuccessFeedback
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDemoPlaying:
		return "demoPlaying"
	case StatePromptHold:
		return "promptHold"
	case StateRecording:
		return "recording"
	case StateSuccessFeedback:
		return "successFeedback"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Timing holds the fixed delays of the card sequence.
type Timing struct {
	DemoDelay     time.Duration
	Encouragement time.Duration
	PraiseDelay   time.Duration
	CompleteDelay time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		DemoDelay:     500 * time.Millisecond,
		Encouragement: 2500 * time.Millisecond,
		PraiseDelay:   200 * time.Millisecond,
		CompleteDelay: 500 * time.Millisecond,
	}
}

// Monitor is the voice activity monitor the controller drives.
type Monitor interface {
	Start() bool
	Stop()
	State() vad.State
	Permission() vad.Permission
	OnChange(func(vad.State))
	OnStop(func(vad.Attempt))
}

// Gate is the screen-time gate.
type Gate interface {
	StartSession() bool
	EndSession()
	CanPlay() bool
	Settings() model.GateSettings
}

// Reporter receives the completed-card count of a finished run.
type Reporter interface {
	RunCompleted(completed int)
}

// ReporterFunc adapts a func to Reporter.
type ReporterFunc func(completed int)

func (f ReporterFunc) RunCompleted(completed int) { f(completed) }

// History stores finished and abandoned runs.
type History interface {
	InsertRun(ctx context.Context, run model.RunRecord, cards []model.CardResult) (int64, error)
}

type Deps struct {
	Monitor  Monitor
	Gate     Gate
	Voice    speech.Sayer
	Tones    audio.Tones
	Reporter Reporter
	// History may be nil.
	History History
	// Mode returns the persisted rating mode at grading time.
	Mode    func() model.RatingMode
	Phrases model.Phrases
	Sched   loop.Scheduler
	Rand    *rand.Rand
	Log     zerolog.Logger
	Timing  Timing
}

// Snapshot is the render-ready view of a run.
type Snapshot struct {
	State         State
	Index         int
	Total         int
	Word          model.Word
	Attempts      int
	Completed     int
	Stars         int
	Feedback      string
	Praise        string
	Encouragement string
	Forced        bool
	Voice         vad.State
	Permission    vad.Permission
	LockedOut     bool
	Exited        bool
	Reported      bool
}
