// Package gate enforces screen-time limits on practice sessions.
package gate

import (
	"time"

	"github.com/verte-zerg/tinytalk/internal/model"
)

type Reason string

const (
	ReasonNone     Reason = ""
	ReasonSession  Reason = "session"
	ReasonDaily    Reason = "daily"
	ReasonCooldown Reason = "cooldown"
)

// State is the derived, second-granularity gate view.
type State struct {
	Locked                   bool
	Reason                   Reason
	RemainingSessionSeconds  int
	RemainingDailySeconds    int
	CooldownRemainingSeconds int
	TodayUsedSeconds         int
	CanPlay                  bool
	SessionActive            bool
}

// Rollover resets the daily counters when they belong to another day. It
// reports whether anything changed.
func Rollover(c model.UsageCounters, now time.Time) (model.UsageCounters, bool) {
	today := model.DateKey(now)
	if c.LastDate == today {
		return c, false
	}
	c.TodayUsedSeconds = 0
	c.ParentUnlocked = false
	c.LastDate = today
	return c, true
}

// Compute derives the gate state. sessionStart is nil when no session is
// active. Lock precedence is daily, then cooldown (only between sessions),
// then session (only during one).
func Compute(s model.GateSettings, c model.UsageCounters, sessionStart *time.Time, now time.Time) State {
	c, _ = Rollover(c, now)

	elapsed := 0
	if sessionStart != nil {
		elapsed = wholeSeconds(now.Sub(*sessionStart))
	}
	used := c.TodayUsedSeconds + elapsed

	st := State{
		RemainingDailySeconds:   max(0, s.DailyLimitMinutes*60-used),
		RemainingSessionSeconds: max(0, s.SessionLimitMinutes*60-elapsed),
		TodayUsedSeconds:        used,
		SessionActive:           sessionStart != nil,
	}
	if c.LastSessionEnd != nil && !c.ParentUnlocked {
		since := wholeSeconds(now.Sub(*c.LastSessionEnd))
		st.CooldownRemainingSeconds = max(0, s.CooldownMinutes*60-since)
	}

	switch {
	case st.RemainingDailySeconds <= 0:
		st.Reason = ReasonDaily
	case st.CooldownRemainingSeconds > 0 && sessionStart == nil:
		st.Reason = ReasonCooldown
	case st.RemainingSessionSeconds <= 0 && sessionStart != nil:
		st.Reason = ReasonSession
	}
	st.Locked = st.Reason != ReasonNone
	st.CanPlay = !st.Locked
	return st
}

func wholeSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
