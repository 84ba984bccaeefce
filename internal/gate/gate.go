package gate

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/store"
)

// Repository is the persisted state the gate reads and writes.
type Repository interface {
	Usage() (model.UsageCounters, error)
	SaveUsage(model.UsageCounters) error
	Settings() (model.GateSettings, error)
	SaveSettings(model.GateSettings) error
}

// Gate owns the active session. Counters and settings are re-read from the
// repository on every evaluation. Not safe for concurrent use.
type Gate struct {
	repo  Repository
	sched loop.Scheduler
	log   zerolog.Logger

	sessionStart *time.Time
	tick         loop.Timer
	subs         map[int]func(State)
	nextSub      int
}

func New(repo Repository, sched loop.Scheduler, log zerolog.Logger) *Gate {
	return &Gate{repo: repo, sched: sched, log: log, subs: make(map[int]func(State))}
}

// State recomputes the gate from storage and the clock.
func (g *Gate) State() State {
	return Compute(g.Settings(), g.usage(), g.sessionStart, g.sched.Now())
}

func (g *Gate) CanPlay() bool { return g.State().CanPlay }

// SessionActive reports whether a session has been started and not ended.
func (g *Gate) SessionActive() bool { return g.sessionStart != nil }

// Settings returns the stored settings, or defaults when unreadable.
func (g *Gate) Settings() model.GateSettings {
	s, err := g.repo.Settings()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			g.log.Warn().Err(err).Msg("read gate settings, using defaults")
		}
		return model.DefaultGateSettings()
	}
	return s
}

// usage reads the counters, writing back a calendar rollover.
func (g *Gate) usage() model.UsageCounters {
	now := g.sched.Now()
	c, err := g.repo.Usage()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			g.log.Warn().Err(err).Msg("read usage counters, using defaults")
		}
		c = model.UsageCounters{}
	}
	c, changed := Rollover(c, now)
	if changed {
		g.save(c)
	}
	return c
}

func (g *Gate) save(c model.UsageCounters) {
	if err := g.repo.SaveUsage(c); err != nil {
		g.log.Warn().Err(err).Msg("save usage counters")
	}
}

// StartSession opens a session if the gate allows play. It reports whether
// a session is active after the call.
func (g *Gate) StartSession() bool {
	if g.sessionStart != nil {
		return true
	}
	if !g.State().CanPlay {
		return false
	}
	now := g.sched.Now()
	g.sessionStart = &now

	c := g.usage()
	c.ParentUnlocked = false
	g.save(c)

	g.log.Info().Time("start", now).Msg("session started")
	g.scheduleTick()
	g.publish()
	return true
}

// EndSession folds the elapsed session time into today's usage. Without an
// active session it does nothing.
func (g *Gate) EndSession() {
	if g.sessionStart == nil {
		return
	}
	now := g.sched.Now()
	elapsed := wholeSeconds(now.Sub(*g.sessionStart))

	c := g.usage()
	c.TodayUsedSeconds += elapsed
	c.LastSessionEnd = &now
	c.ParentUnlocked = false
	g.save(c)

	g.sessionStart = nil
	loop.StopTimer(g.tick)
	g.tick = nil
	g.log.Info().Int("elapsed_s", elapsed).Int("today_s", c.TodayUsedSeconds).Msg("session ended")
	g.publish()
}

// ParentUnlock lifts the cooldown immediately.
func (g *Gate) ParentUnlock() {
	c := g.usage()
	c.ParentUnlocked = true
	c.LastSessionEnd = nil
	g.save(c)
	g.log.Info().Msg("parent unlock")
	g.publish()
}

// UpdateSettings validates and stores a settings change.
func (g *Gate) UpdateSettings(p model.SettingsPatch) (model.GateSettings, error) {
	current := g.Settings()
	next, err := p.Apply(current)
	if err != nil {
		return current, err
	}
	if err := g.repo.SaveSettings(next); err != nil {
		return current, fmt.Errorf("save settings: %w", err)
	}
	g.publish()
	return next, nil
}

// Subscribe registers fn for state updates. The returned func unsubscribes.
func (g *Gate) Subscribe(fn func(State)) func() {
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() { delete(g.subs, id) }
}

func (g *Gate) scheduleTick() {
	g.tick = g.sched.AfterFunc(time.Second, func() {
		if g.sessionStart == nil {
			return
		}
		g.scheduleTick()
		g.publish()
	})
}

func (g *Gate) publish() {
	if len(g.subs) == 0 {
		return
	}
	st := g.State()
	for _, fn := range g.subs {
		fn(st)
	}
}
