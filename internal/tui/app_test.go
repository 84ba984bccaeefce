package tui

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/tinytalk/internal/audio"
	"github.com/verte-zerg/tinytalk/internal/content"
	"github.com/verte-zerg/tinytalk/internal/deck"
	"github.com/verte-zerg/tinytalk/internal/loop"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/speech"
	"github.com/verte-zerg/tinytalk/internal/store"
	"github.com/verte-zerg/tinytalk/internal/vad"
)

type appHarness struct {
	clock *loop.Manual
	repo  *store.Memory
	input *audio.FakeInput
	voice *speech.Recorder
	tones *audio.ToneRecorder
	lib   content.Library
	app   *App
}

func newAppHarness(t *testing.T, cards int) *appHarness {
	t.Helper()
	lib, err := content.Load()
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	h := &appHarness{
		clock: loop.NewManual(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)),
		repo:  store.NewMemory(),
		input: audio.NewFakeInput(),
		tones: &audio.ToneRecorder{},
		lib:   lib,
	}
	h.voice = speech.NewRecorder(h.clock, time.Second)
	h.app = New(Env{
		Repo:    h.repo,
		Library: lib,
		Words:   lib.Words[:cards],
		Speaker: speech.Silent{},
		Sayer:   h.voice,
		Input:   h.input,
		Tones:   h.tones,
		VAD:     vad.DefaultConfig(),
		Deck:    DeckOptions{Cards: cards},
		Dealer:  deck.NewWithRand(rand.New(rand.NewSource(1))),
		Rand:    rand.New(rand.NewSource(1)),
		Log:     zerolog.Nop(),
	}, h.clock, h.clock.Post)
	return h
}

func (h *appHarness) key(s string) {
	var msg tea.KeyMsg
	switch s {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	h.app.Update(msg)
}

func (h *appHarness) typeText(s string) {
	for _, r := range s {
		h.key(string(r))
	}
}

func (h *appHarness) expectScreen(t *testing.T, want Screen) {
	t.Helper()
	if got := h.app.Screen(); got != want {
		t.Fatalf("expected screen %d, got %d", want, got)
	}
}

func (h *appHarness) unlockParent(t *testing.T) {
	t.Helper()
	h.key("p")
	h.expectScreen(t, ScreenParent)
	h.typeText(DefaultPIN)
	h.key("enter")
	if h.app.parent.stage != parentPanel {
		t.Fatalf("expected parent panel after the right pin")
	}
}

func TestHomeNavigation(t *testing.T) {
	h := newAppHarness(t, 3)
	h.expectScreen(t, ScreenHome)
	if !strings.Contains(h.app.View(), "洋洋宝贝学说话") {
		t.Fatalf("expected title on home screen")
	}
	h.key("s")
	h.expectScreen(t, ScreenStories)
	h.key("esc")
	h.expectScreen(t, ScreenHome)

	h.key("down")
	h.key("enter")
	h.expectScreen(t, ScreenRhymes)
	if h.tones.Count("click") != 2 {
		t.Fatalf("expected a click per menu choice, got %v", h.tones.Played)
	}
}

func TestTrainingShowsCardAndDemo(t *testing.T) {
	h := newAppHarness(t, 3)
	h.key("t")
	h.expectScreen(t, ScreenTraining)
	snap := h.app.trainer.Snapshot()
	if !strings.Contains(h.app.View(), snap.Word.Text) {
		t.Fatalf("expected the card word %q in view", snap.Word.Text)
	}
	h.clock.Advance(500 * time.Millisecond)
	if h.voice.Last() != snap.Word.Text {
		t.Fatalf("expected demo of %q, got %q", snap.Word.Text, h.voice.Last())
	}
	h.key("esc")
	h.expectScreen(t, ScreenHome)
	if h.app.gate.SessionActive() {
		t.Fatalf("expected leaving training to end the session")
	}
}

func TestTrainingRunCreditsStars(t *testing.T) {
	h := newAppHarness(t, 1)
	h.key("t")
	h.clock.Advance(1500 * time.Millisecond)
	h.key(" ")
	h.input.SetLevel(0.5)
	h.clock.Advance(608 * time.Millisecond)
	h.input.SetLevel(0)
	h.clock.Advance(2 * time.Second)
	h.clock.Advance(1700 * time.Millisecond)

	if !h.app.train.finished {
		t.Fatalf("expected the run summary")
	}
	if h.app.train.earned != 1 {
		t.Fatalf("expected one completed card, got %d", h.app.train.earned)
	}
	ledger, err := h.repo.Rewards()
	if err != nil || ledger.TotalStars != 1 {
		t.Fatalf("expected one stored star, got %+v (%v)", ledger, err)
	}
	if !strings.Contains(h.app.View(), "练习完成") {
		t.Fatalf("expected summary view")
	}
	if len(h.repo.Runs()) != 1 {
		t.Fatalf("expected history to be saved")
	}
	h.key("esc")
	h.expectScreen(t, ScreenHome)
}

func TestLockedGateShowsLockScreen(t *testing.T) {
	h := newAppHarness(t, 3)
	err := h.repo.SaveUsage(model.UsageCounters{
		TodayUsedSeconds: 30 * 60,
		LastDate:         model.DateKey(h.clock.Now()),
	})
	if err != nil {
		t.Fatalf("save usage: %v", err)
	}
	h.key("t")
	h.expectScreen(t, ScreenLock)
	if !strings.Contains(h.app.View(), "今天练习完成啦！") {
		t.Fatalf("expected daily lock title, got %q", h.app.View())
	}
	h.key("enter")
	h.expectScreen(t, ScreenHome)
}

func TestSessionLimitEndsTraining(t *testing.T) {
	h := newAppHarness(t, 3)
	h.key("t")
	h.expectScreen(t, ScreenTraining)
	h.clock.Advance(8*time.Minute + time.Second)
	h.expectScreen(t, ScreenLock)
	if h.app.gateState.Reason != "session" && h.app.gateState.Reason != "cooldown" {
		t.Fatalf("expected a session or cooldown lock, got %q", h.app.gateState.Reason)
	}
	if h.app.trainer.Active() {
		t.Fatalf("expected the run to stop")
	}
}

func TestSecretTapsOpenParent(t *testing.T) {
	h := newAppHarness(t, 3)
	h.key("t")
	for i := 0; i < 4; i++ {
		h.key("p")
	}
	h.expectScreen(t, ScreenTraining)
	h.key("p")
	h.expectScreen(t, ScreenParent)
	if h.app.parent.stage != parentPIN {
		t.Fatalf("expected pin entry")
	}
}

func TestParentPIN(t *testing.T) {
	h := newAppHarness(t, 3)
	h.key("p")
	h.typeText("9999")
	h.key("enter")
	if h.app.parent.stage != parentPIN || !strings.Contains(h.app.View(), "PIN码错误，请重试") {
		t.Fatalf("expected wrong pin to be rejected")
	}
	h.typeText(DefaultPIN)
	h.key("enter")
	if h.app.parent.stage != parentPanel {
		t.Fatalf("expected panel after the right pin")
	}
	if !strings.Contains(h.app.View(), "今日统计") {
		t.Fatalf("expected today's stats in the panel")
	}
}

func TestParentSavesSettings(t *testing.T) {
	h := newAppHarness(t, 3)
	h.unlockParent(t)
	h.key("e")
	if h.app.parent.stage != parentEdit {
		t.Fatalf("expected edit form")
	}
	h.key("backspace")
	h.typeText("5")
	h.key("tab")
	h.key("backspace")
	h.key("backspace")
	h.typeText("x")
	h.key("enter")
	if h.app.parent.stage != parentEdit || h.app.parent.errMsg == "" {
		t.Fatalf("expected a validation error for a non-number")
	}
	h.key("backspace")
	h.typeText("45")
	h.key("enter")
	if h.app.parent.stage != parentPanel {
		t.Fatalf("expected to return to the panel, err %q", h.app.parent.errMsg)
	}
	s, err := h.repo.Settings()
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if s.SessionLimitMinutes != 5 || s.DailyLimitMinutes != 45 || s.CooldownMinutes != 20 {
		t.Fatalf("unexpected settings %+v", s)
	}
}

func TestParentCyclesRatingMode(t *testing.T) {
	h := newAppHarness(t, 3)
	h.unlockParent(t)
	h.key("m")
	mode, err := h.repo.RatingMode()
	if err != nil || mode != model.RatingStandard {
		t.Fatalf("expected standard mode, got %q (%v)", mode, err)
	}
	h.key("m")
	h.key("m")
	if mode, _ := h.repo.RatingMode(); mode != model.RatingEasy {
		t.Fatalf("expected to wrap back to easy, got %q", mode)
	}
}

func TestParentUnlockClearsCooldown(t *testing.T) {
	h := newAppHarness(t, 3)
	ended := h.clock.Now().Add(-time.Minute)
	h.repo.SaveUsage(model.UsageCounters{
		TodayUsedSeconds: 60,
		LastDate:         model.DateKey(h.clock.Now()),
		LastSessionEnd:   &ended,
	})
	if !h.app.gate.State().Locked {
		t.Fatalf("expected cooldown lock")
	}
	h.unlockParent(t)
	h.key("u")
	if h.app.gate.State().Locked {
		t.Fatalf("expected unlock to lift the cooldown")
	}
}

func TestParentResetNeedsConfirmation(t *testing.T) {
	h := newAppHarness(t, 3)
	h.repo.SaveRewards(model.RewardsLedger{TotalStars: 9})
	h.unlockParent(t)
	h.key("c")
	h.key("n")
	if _, ok := h.repo.Raw(store.KeyRewards); !ok {
		t.Fatalf("expected data to survive a declined reset")
	}
	h.key("c")
	h.key("y")
	if _, ok := h.repo.Raw(store.KeyRewards); ok {
		t.Fatalf("expected data to be cleared")
	}
}

func TestRewardsView(t *testing.T) {
	h := newAppHarness(t, 3)
	h.repo.SaveRewards(model.RewardsLedger{TotalStars: 12, TodayStars: 2, LastDate: model.DateKey(h.clock.Now())})
	h.key("w")
	h.expectScreen(t, ScreenRewards)
	view := h.app.View()
	if !strings.Contains(view, "一共 12 颗星星") || !strings.Contains(view, "今天得到 2 颗星星") {
		t.Fatalf("unexpected rewards view %q", view)
	}
}

func TestRhymeFollowAlong(t *testing.T) {
	h := newAppHarness(t, 3)
	h.key("r")
	h.key("enter")
	if !h.app.library.open {
		t.Fatalf("expected rhyme to open")
	}
	h.key("f")
	first := h.lib.Rhymes[0].Lines[0]
	if h.voice.Last() != h.lib.Phrases.FollowFor(first) {
		t.Fatalf("expected follow prompt for %q, got %q", first, h.voice.Last())
	}
	h.key(" ")
	if !h.input.Active() {
		t.Fatalf("expected recording to start")
	}
	h.key("esc")
	if h.input.Active() || h.app.library.following {
		t.Fatalf("expected closing the rhyme to stop follow-along")
	}
}

func TestFooterAndClock(t *testing.T) {
	if clock(75) != "1:15" || clock(-3) != "0:00" {
		t.Fatalf("unexpected clock output")
	}
	h := newAppHarness(t, 3)
	h.key("t")
	if !strings.Contains(h.app.footer(), "本次还剩 8:00") {
		t.Fatalf("expected session countdown in footer, got %q", h.app.footer())
	}
	h.app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if !strings.Contains(h.app.View(), "ctrl+c 退出") {
		t.Fatalf("expected footer in sized view")
	}
}
