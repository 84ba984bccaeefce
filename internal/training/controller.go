package training

import (
	"context"
	"math/rand"
	"time"

	"github.com/verte-zerg/tinytalk/internal/gate"
	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/rating"
	"github.com/verte-zerg/tinytalk/internal/vad"
)

// Controller owns one training run at a time. Every method and callback runs
// on the scheduler's owner goroutine; timer callbacks check the state and
// card index they were armed for and do nothing when either has moved on.
type Controller struct {
	d Deps

	words     []model.Word
	cards     []model.CardResult
	index     int
	state     State
	attempts  int
	completed int
	result    rating.Result
	forced    bool
	praise    string
	encourage string
	reported  bool
	exited    bool
	lockedOut bool
	active    bool
	started   time.Time
	detected  bool

	demoTimer      loop.Timer
	encourageTimer loop.Timer
	praiseTimer    loop.Timer
	completeTimer  loop.Timer
	reminderTimer  loop.Timer
	tapTimer       loop.Timer
	taps           int

	onChange func()
}

func New(d Deps) *Controller {
	if d.Timing == (Timing{}) {
		d.Timing = DefaultTiming()
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(d.Sched.Now().UnixNano()))
	}
	if d.Mode == nil {
		d.Mode = func() model.RatingMode { return model.DefaultRatingMode }
	}
	c := &Controller{d: d, state: StateFinished}
	d.Monitor.OnStop(c.handleAttempt)
	d.Monitor.OnChange(c.handleVoice)
	return c
}

// OnChange registers a listener called after every state change.
func (c *Controller) OnChange(fn func()) { c.onChange = fn }

// Begin starts a run over words. It opens a gate session and reports false,
// leaving nothing running, when the gate refuses.
func (c *Controller) Begin(words []model.Word) bool {
	if c.active {
		c.Exit()
	}
	if len(words) == 0 {
		return false
	}
	if !c.d.Gate.StartSession() {
		c.d.Log.Info().Msg("training refused by gate")
		return false
	}
	c.words = append([]model.Word(nil), words...)
	c.cards = make([]model.CardResult, len(words))
	for i, w := range words {
		c.cards[i] = model.CardResult{WordID: w.ID, Word: w.Text}
	}
	c.index = 0
	c.attempts = 0
	c.completed = 0
	c.reported = false
	c.exited = false
	c.lockedOut = false
	c.active = true
	c.started = c.d.Sched.Now()
	c.d.Log.Info().Int("cards", len(words)).Msg("training run started")
	c.enterIdle()
	return true
}

// Active reports whether a run is in progress.
func (c *Controller) Active() bool { return c.active }

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:         c.state,
		Index:         c.index,
		Total:         len(c.words),
		Attempts:      c.attempts,
		Completed:     c.completed,
		Stars:         c.result.Stars,
		Feedback:      c.result.Feedback,
		Praise:        c.praise,
		Encouragement: c.encourage,
		Forced:        c.forced,
		Voice:         c.d.Monitor.State(),
		Permission:    c.d.Monitor.Permission(),
		LockedOut:     c.lockedOut,
		Exited:        c.exited,
		Reported:      c.reported,
	}
	if c.index < len(c.words) {
		s.Word = c.words[c.index]
	}
	return s
}

func (c *Controller) current() model.Word {
	return c.words[c.index]
}

func (c *Controller) setState(s State) {
	if c.state != s {
		c.d.Log.Debug().Str("from", c.state.String()).Str("to", s.String()).Int("card", c.index).Msg("training state")
	}
	c.state = s
	c.rescheduleReminder()
	c.changed()
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) enterIdle() {
	c.result = rating.Result{}
	c.forced = false
	c.praise = ""
	c.encourage = ""
	c.setState(StateIdle)
	idx := c.index
	c.demoTimer = c.d.Sched.AfterFunc(c.d.Timing.DemoDelay, func() {
		c.demoTimer = nil
		if c.state != StateIdle || c.index != idx {
			return
		}
		c.PlayDemo()
	})
}

// PlayDemo speaks the current word. It is allowed from idle and promptHold.
func (c *Controller) PlayDemo() {
	if !c.active || (c.state != StateIdle && c.state != StatePromptHold) {
		return
	}
	loop.StopTimer(c.demoTimer)
	c.demoTimer = nil
	idx := c.index
	c.setState(StateDemoPlaying)
	c.d.Voice.Say(c.current().Text, func() {
		if c.state != StateDemoPlaying || c.index != idx {
			return
		}
		c.setState(StatePromptHold)
	})
}

// ToggleRecording starts recording from promptHold or stops a recording in
// progress. Nothing happens while the gate forbids play.
func (c *Controller) ToggleRecording() {
	if !c.active || !c.d.Gate.CanPlay() {
		return
	}
	switch c.state {
	case StateRecording:
		c.d.Monitor.Stop()
	case StatePromptHold:
		c.d.Tones.Click()
		loop.StopTimer(c.encourageTimer)
		c.encourageTimer = nil
		c.encourage = ""
		c.detected = false
		c.setState(StateRecording)
		if !c.d.Monitor.Start() {
			c.d.Log.Warn().Str("permission", c.d.Monitor.Permission().String()).Msg("recording could not start")
			c.setState(StatePromptHold)
		}
	}
}

func (c *Controller) handleVoice(s vad.State) {
	if c.state != StateRecording {
		return
	}
	if s.Detected != c.detected {
		c.detected = s.Detected
		c.rescheduleReminder()
	}
	c.changed()
}

func (c *Controller) handleAttempt(a vad.Attempt) {
	if c.state != StateRecording {
		return
	}
	card := &c.cards[c.index]
	card.Attempts++
	card.AverageVolume = a.AverageVolume
	card.DurationMs = a.Duration.Milliseconds()

	if a.Detected {
		card.Detected = true
		c.enterSuccess(rating.Calculate(a.AverageVolume, a.Duration, c.d.Mode()), false)
		return
	}

	c.attempts++
	c.d.Log.Debug().Int("attempts", c.attempts).Str("reason", a.Reason.String()).Msg("attempt not detected")
	if c.attempts >= MaxAttempts {
		card.Forced = true
		c.enterSuccess(rating.Full(), true)
		return
	}

	c.encourage = c.pick(c.d.Phrases.Encouragement)
	c.setState(StatePromptHold)
	idx, shown := c.index, c.encourage
	c.encourageTimer = c.d.Sched.AfterFunc(c.d.Timing.Encouragement, func() {
		c.encourageTimer = nil
		if c.index != idx || c.encourage != shown {
			return
		}
		c.encourage = ""
		c.changed()
	})
}

func (c *Controller) enterSuccess(r rating.Result, forced bool) {
	c.result = r
	c.forced = forced
	c.attempts = 0
	c.encourage = ""
	c.cards[c.index].Stars = r.Stars
	c.setState(StateSuccessFeedback)
	c.d.Tones.Success()

	idx := c.index
	c.praiseTimer = c.d.Sched.AfterFunc(c.d.Timing.PraiseDelay, func() {
		c.praiseTimer = nil
		if c.state != StateSuccessFeedback || c.index != idx {
			return
		}
		c.praise = c.pick(c.d.Phrases.Praise)
		c.changed()
		c.d.Voice.Say(c.praise, func() {
			if c.state != StateSuccessFeedback || c.index != idx {
				return
			}
			c.completeTimer = c.d.Sched.AfterFunc(c.d.Timing.CompleteDelay, func() {
				c.completeTimer = nil
				if c.state != StateSuccessFeedback || c.index != idx {
					return
				}
				c.completeCard()
			})
		})
	})
}

func (c *Controller) completeCard() {
	c.completed++
	if c.index >= len(c.words)-1 {
		c.finish()
		return
	}
	if !c.d.Gate.CanPlay() {
		c.lockedOut = true
		c.Exit()
		return
	}
	c.index++
	c.attempts = 0
	c.enterIdle()
}

// Skip moves to the next card without a grade. The last card cannot be
// skipped.
func (c *Controller) Skip() bool {
	if !c.active || c.index >= len(c.words)-1 {
		return false
	}
	c.cancelTimers()
	wasRecording := c.state == StateRecording
	c.state = StateIdle
	if wasRecording {
		c.d.Monitor.Stop()
	}
	c.d.Voice.Cancel()
	c.cards[c.index].Skipped = true
	c.index++
	c.attempts = 0
	c.enterIdle()
	return true
}

// GateChanged reacts to a gate update. A lock ends the run, except that a
// celebration in progress finishes first and the lock applies when the card
// completes.
func (c *Controller) GateChanged(st gate.State) {
	if !c.active || !st.Locked || c.state == StateSuccessFeedback {
		return
	}
	c.lockedOut = true
	c.Exit()
}

// SecretTap counts taps on the hidden parent control. The fifth tap within
// the window ends the run and reports true.
func (c *Controller) SecretTap() bool {
	c.taps++
	loop.StopTimer(c.tapTimer)
	c.tapTimer = c.d.Sched.AfterFunc(secretWindow, func() {
		c.tapTimer = nil
		c.taps = 0
	})
	if c.taps < secretTaps {
		return false
	}
	c.taps = 0
	loop.StopTimer(c.tapTimer)
	c.tapTimer = nil
	c.Exit()
	return true
}

// Exit abandons the run. The gate session ends and nothing is reported.
func (c *Controller) Exit() {
	if !c.active {
		return
	}
	c.shutdown()
	c.exited = true
	c.d.Log.Info().Int("completed", c.completed).Int("card", c.index).Msg("training exited")
	c.saveHistory(false)
	c.changed()
}

func (c *Controller) finish() {
	c.shutdown()
	if !c.reported {
		c.reported = true
		c.d.Reporter.RunCompleted(c.completed)
	}
	c.d.Log.Info().Int("completed", c.completed).Msg("training finished")
	c.saveHistory(true)
	c.changed()
}

func (c *Controller) shutdown() {
	c.active = false
	c.cancelTimers()
	wasRecording := c.state == StateRecording
	c.state = StateFinished
	if wasRecording {
		c.d.Monitor.Stop()
	}
	c.d.Voice.Cancel()
	c.d.Gate.EndSession()
}

func (c *Controller) cancelTimers() {
	for _, t := range []*loop.Timer{&c.demoTimer, &c.encourageTimer, &c.praiseTimer, &c.completeTimer, &c.reminderTimer} {
		loop.StopTimer(*t)
		*t = nil
	}
}

func (c *Controller) saveHistory(finished bool) {
	if c.d.History == nil {
		return
	}
	attempted := 0
	stars := 0
	for _, card := range c.cards {
		if card.Attempts > 0 || card.Stars > 0 || card.Skipped {
			attempted++
		}
		stars += card.Stars
	}
	if !finished && attempted == 0 {
		return
	}
	end := c.d.Sched.Now()
	run := model.RunRecord{
		StartedAt:  c.started,
		EndedAt:    end,
		Mode:       c.d.Mode(),
		Cards:      len(c.cards),
		Completed:  c.completed,
		Finished:   finished,
		Stars:      stars,
		DurationMs: end.Sub(c.started).Milliseconds(),
	}
	if _, err := c.d.History.InsertRun(context.Background(), run, c.cards[:min(c.index+1, len(c.cards))]); err != nil {
		c.d.Log.Warn().Err(err).Msg("save run history")
	}
}

// rescheduleReminder arms the spoken nudge while the child is expected to
// speak: in promptHold, or recording with nothing detected yet.
func (c *Controller) rescheduleReminder() {
	loop.StopTimer(c.reminderTimer)
	c.reminderTimer = nil
	if !c.wantsReminder() {
		return
	}
	interval := time.Duration(c.d.Gate.Settings().ReminderIntervalSeconds) * time.Second
	if interval <= 0 {
		return
	}
	idx, st := c.index, c.state
	c.reminderTimer = c.d.Sched.AfterFunc(interval, func() {
		c.reminderTimer = nil
		if c.index != idx || c.state != st || !c.wantsReminder() {
			return
		}
		c.d.Voice.Say(c.d.Phrases.ReminderFor(c.current().Text), nil)
		c.rescheduleReminder()
	})
}

func (c *Controller) wantsReminder() bool {
	if !c.active {
		return false
	}
	return c.state == StatePromptHold || (c.state == StateRecording && !c.detected)
}

func (c *Controller) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[c.d.Rand.Intn(len(options))]
}
