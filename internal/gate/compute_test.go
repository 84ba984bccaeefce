package gate

import (
	"testing"
	"time"

	"github.com/verte-zerg/tinytalk/internal/model"
)

var base = time.Date(2024, 5, 1, 15, 0, 0, 0, time.Local)

func today() model.UsageCounters {
	return model.UsageCounters{LastDate: model.DateKey(base)}
}

func TestSessionLockAtLimitNotBefore(t *testing.T) {
	s := model.DefaultGateSettings()
	start := base
	before := Compute(s, today(), &start, base.Add(8*time.Minute-time.Second))
	if before.Locked || !before.CanPlay || before.RemainingSessionSeconds != 1 {
		t.Fatalf("expected unlocked one second before the limit, got %+v", before)
	}
	at := Compute(s, today(), &start, base.Add(8*time.Minute))
	if !at.Locked || at.Reason != ReasonSession || at.CanPlay {
		t.Fatalf("expected session lock at 8 minutes, got %+v", at)
	}
	if at.TodayUsedSeconds != 480 || at.RemainingDailySeconds != 30*60-480 {
		t.Fatalf("unexpected usage figures %+v", at)
	}
}

func TestCooldownBetweenSessions(t *testing.T) {
	s := model.DefaultGateSettings()
	end := base.Add(-10 * time.Minute)
	c := today()
	c.LastSessionEnd = &end

	st := Compute(s, c, nil, base)
	if st.CooldownRemainingSeconds != 600 || st.Reason != ReasonCooldown || st.CanPlay {
		t.Fatalf("expected 600s cooldown lock, got %+v", st)
	}

	// An active session is never locked by cooldown.
	start := base
	active := Compute(s, c, &start, base)
	if active.Locked {
		t.Fatalf("cooldown must not lock an active session, got %+v", active)
	}
}

func TestParentUnlockedZeroesCooldown(t *testing.T) {
	s := model.DefaultGateSettings()
	end := base.Add(-time.Minute)
	c := today()
	c.LastSessionEnd = &end
	c.ParentUnlocked = true
	st := Compute(s, c, nil, base)
	if st.CooldownRemainingSeconds != 0 || st.Locked {
		t.Fatalf("expected no cooldown when parent unlocked, got %+v", st)
	}
}

func TestDailyTakesPrecedence(t *testing.T) {
	s := model.DefaultGateSettings()
	end := base.Add(-time.Minute)
	c := today()
	c.TodayUsedSeconds = 30 * 60
	c.LastSessionEnd = &end
	st := Compute(s, c, nil, base)
	if st.Reason != ReasonDaily || st.RemainingDailySeconds != 0 {
		t.Fatalf("expected daily lock first, got %+v", st)
	}

	c.TodayUsedSeconds = 29 * 60
	start := base
	st = Compute(s, c, &start, base.Add(time.Minute))
	if st.Reason != ReasonDaily {
		t.Fatalf("expected daily lock during a session, got %+v", st)
	}
}

func TestRolloverResetsUsage(t *testing.T) {
	for _, used := range []int{0, 1, 1799, 1800, 99999} {
		c := model.UsageCounters{TodayUsedSeconds: used, LastDate: "2024-04-30", ParentUnlocked: true}
		st := Compute(model.DefaultGateSettings(), c, nil, base)
		if st.TodayUsedSeconds != 0 || st.Locked {
			t.Fatalf("used=%d: expected fresh day, got %+v", used, st)
		}
		next, changed := Rollover(c, base)
		if !changed || next.TodayUsedSeconds != 0 || next.ParentUnlocked || next.LastDate != model.DateKey(base) {
			t.Fatalf("used=%d: unexpected rollover %+v", used, next)
		}
	}
	if _, changed := Rollover(today(), base); changed {
		t.Fatalf("same-day counters must not roll over")
	}
}
