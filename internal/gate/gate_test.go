package gate

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/store"
)

func newGate(t *testing.T) (*Gate, *store.Memory, *loop.Manual) {
	t.Helper()
	repo := store.NewMemory()
	clock := loop.NewManual(base)
	return New(repo, clock, zerolog.Nop()), repo, clock
}

func intPtr(v int) *int { return &v }

func TestStartAndEndSessionPersistUsage(t *testing.T) {
	g, repo, clock := newGate(t)
	if !g.StartSession() {
		t.Fatalf("expected session to start")
	}
	clock.Advance(90*time.Second + 500*time.Millisecond)
	if st := g.State(); st.TodayUsedSeconds != 90 || !st.SessionActive {
		t.Fatalf("expected 90s in progress, got %+v", st)
	}
	g.EndSession()
	g.EndSession()

	c, err := repo.Usage()
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if c.TodayUsedSeconds != 90 || c.LastSessionEnd == nil || !c.LastSessionEnd.Equal(clock.Now()) {
		t.Fatalf("unexpected counters after end %+v", c)
	}
	st := g.State()
	if st.Reason != ReasonCooldown || st.CooldownRemainingSeconds != 20*60 {
		t.Fatalf("expected full cooldown after session, got %+v", st)
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected tick stopped, %d timers pending", clock.Pending())
	}
}

func TestStartSessionRefusedWhileLocked(t *testing.T) {
	g, repo, _ := newGate(t)
	end := base.Add(-5 * time.Minute)
	if err := repo.SaveUsage(model.UsageCounters{LastDate: model.DateKey(base), LastSessionEnd: &end}); err != nil {
		t.Fatalf("seed usage: %v", err)
	}
	if g.StartSession() {
		t.Fatalf("expected cooldown to refuse the session")
	}
	if g.SessionActive() {
		t.Fatalf("no session should be active")
	}
}

func TestParentUnlockClearsCooldownUntilNextSession(t *testing.T) {
	g, repo, clock := newGate(t)
	end := base.Add(-time.Minute)
	if err := repo.SaveUsage(model.UsageCounters{LastDate: model.DateKey(base), LastSessionEnd: &end}); err != nil {
		t.Fatalf("seed usage: %v", err)
	}
	g.ParentUnlock()
	if st := g.State(); st.CooldownRemainingSeconds != 0 || !st.CanPlay {
		t.Fatalf("expected unlock to zero cooldown, got %+v", st)
	}
	if !g.StartSession() {
		t.Fatalf("expected session after unlock")
	}
	c, _ := repo.Usage()
	if c.ParentUnlocked {
		t.Fatalf("starting a session must clear the unlock flag")
	}
	clock.Advance(time.Minute)
	g.EndSession()
	if st := g.State(); st.Reason != ReasonCooldown {
		t.Fatalf("expected cooldown after the unlocked session, got %+v", st)
	}
}

func TestTickNotifiesSubscribersAndLocks(t *testing.T) {
	g, _, clock := newGate(t)
	var seen []State
	cancel := g.Subscribe(func(s State) { seen = append(seen, s) })
	g.StartSession()
	seen = nil

	clock.Advance(8*time.Minute - time.Second)
	if len(seen) != 479 {
		t.Fatalf("expected one update per second, got %d", len(seen))
	}
	if seen[len(seen)-1].Locked {
		t.Fatalf("locked before the session limit")
	}
	clock.Advance(time.Second)
	last := seen[len(seen)-1]
	if !last.Locked || last.Reason != ReasonSession {
		t.Fatalf("expected session lock at the limit, got %+v", last)
	}

	cancel()
	n := len(seen)
	clock.Advance(5 * time.Second)
	if len(seen) != n {
		t.Fatalf("unsubscribed listener still called")
	}
}

func TestRolloverIsWrittenBack(t *testing.T) {
	g, repo, _ := newGate(t)
	if err := repo.SaveUsage(model.UsageCounters{TodayUsedSeconds: 1700, LastDate: "2024-04-30", ParentUnlocked: true}); err != nil {
		t.Fatalf("seed usage: %v", err)
	}
	if st := g.State(); st.TodayUsedSeconds != 0 {
		t.Fatalf("expected reset usage, got %+v", st)
	}
	c, _ := repo.Usage()
	if c.TodayUsedSeconds != 0 || c.ParentUnlocked || c.LastDate != model.DateKey(base) {
		t.Fatalf("expected rollover persisted, got %+v", c)
	}
}

func TestCorruptCountersFallBackToDefaults(t *testing.T) {
	g, repo, _ := newGate(t)
	repo.SetRaw(store.KeyUsage, "garbage")
	repo.SetRaw(store.KeySettings, "{")
	st := g.State()
	if st.Locked || st.TodayUsedSeconds != 0 {
		t.Fatalf("expected default unlocked state, got %+v", st)
	}
	if g.Settings() != model.DefaultGateSettings() {
		t.Fatalf("expected default settings")
	}
}

func TestUpdateSettingsValidatesAndMerges(t *testing.T) {
	g, repo, _ := newGate(t)
	got, err := g.UpdateSettings(model.SettingsPatch{SessionLimitMinutes: intPtr(5)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := model.DefaultGateSettings()
	want.SessionLimitMinutes = 5
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if _, err := g.UpdateSettings(model.SettingsPatch{DailyLimitMinutes: intPtr(0)}); err == nil {
		t.Fatalf("expected zero daily limit to be rejected")
	}
	if stored, _ := repo.Settings(); stored != want {
		t.Fatalf("rejected update must not be stored, got %+v", stored)
	}

	repo.FailWrites = errors.New("disk full")
	if _, err := g.UpdateSettings(model.SettingsPatch{CooldownMinutes: intPtr(1)}); err == nil {
		t.Fatalf("expected write failure to surface")
	}
}
