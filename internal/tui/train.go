package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tinytalk/internal/content"
	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/rewards"
	"github.com/verte-zerg/tinytalk/internal/training"
	"github.com/verte-zerg/tinytalk/internal/vad"
)

type trainView struct {
	earned   int
	ledger   model.RewardsLedger
	unlocked []rewards.Achievement
	finished bool
}

func (a *App) startTraining() {
	a.train = trainView{}
	if !a.trainer.Begin(a.dealCards()) {
		a.screen = ScreenLock
		a.gateState = a.gate.State()
		return
	}
	a.screen = ScreenTraining
}

func (a *App) trainingChanged() {
	snap := a.trainer.Snapshot()
	if snap.LockedOut && a.screen == ScreenTraining {
		a.screen = ScreenLock
		a.gateState = a.gate.State()
		return
	}
	if snap.State == training.StateFinished && snap.Reported {
		a.train.finished = true
	}
}

func (a *App) runCompleted(completed int) {
	ledger, unlocked, err := a.ledger.Credit(completed)
	if err != nil {
		a.log.Warn().Err(err).Msg("credit rewards")
	}
	a.train.earned = completed
	a.train.ledger = ledger
	a.train.unlocked = unlocked
}

func (a *App) updateTraining(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.train.finished {
		switch msg.String() {
		case "enter", " ":
			a.goTo(ScreenTraining)
		case "esc", "q":
			a.goTo(ScreenHome)
		}
		return a, nil
	}
	switch msg.String() {
	case " ", "enter":
		a.trainer.ToggleRecording()
	case "d":
		a.trainer.PlayDemo()
	case "j", "down", "n":
		a.trainer.Skip()
	case "p":
		if a.trainer.SecretTap() {
			a.goTo(ScreenParent)
		}
	case "esc":
		a.goTo(ScreenHome)
	}
	return a, nil
}

func (a *App) viewTraining() string {
	if a.train.finished {
		return a.viewRunSummary()
	}
	snap := a.trainer.Snapshot()
	if snap.Total == 0 {
		return mutedStyle.Render("没有可以练习的词")
	}
	w := snap.Word
	card := strings.Join([]string{
		w.Emoji,
		"",
		wordStyle.Render(w.Text),
		pinyinStyle.Render(w.Pinyin),
		"",
		promptStyle.Render(w.Prompt),
	}, "\n")

	lines := []string{
		mutedStyle.Render(fmt.Sprintf("%s  %d / %d", content.CategoryLabel(w.Category), snap.Index+1, snap.Total)),
		cardStyle.Render(card),
		"",
		a.trainingStatus(snap),
	}
	if snap.Voice.Recording || snap.State == training.StateRecording {
		lines = append(lines, meterLine(snap.Voice))
	}
	lines = append(lines, "", footerStyle.Render("空格 录音/停止  d 听示范  j 跳过  esc 返回"))
	return strings.Join(lines, "\n")
}

func (a *App) trainingStatus(snap training.Snapshot) string {
	if snap.Permission == vad.PermissionDenied && snap.State == training.StatePromptHold {
		return warnStyle.Render("🎤 没有找到麦克风，请家长检查设备")
	}
	switch snap.State {
	case training.StateIdle, training.StateDemoPlaying:
		return promptStyle.Render("🔊 听一听…")
	case training.StatePromptHold:
		if snap.Encouragement != "" {
			return promptStyle.Render(snap.Encouragement)
		}
		if snap.Attempts > 0 {
			return promptStyle.Render(fmt.Sprintf("再试一次（%d/%d）按空格开始", snap.Attempts, training.MaxAttempts))
		}
		return promptStyle.Render("按空格，说出来！")
	case training.StateRecording:
		if snap.Voice.Detected {
			return goodStyle.Render("🎤 我听到啦！")
		}
		return promptStyle.Render("🎤 正在听…")
	case training.StateSuccessFeedback:
		line := starStyle.Render(stars(snap.Stars)) + "  " + goodStyle.Render(snap.Feedback)
		if snap.Praise != "" {
			line += "\n" + goodStyle.Render(snap.Praise)
		}
		return line
	default:
		return ""
	}
}

func meterLine(v vad.State) string {
	return fmt.Sprintf("音量 %s  %.1fs", meter(v.Volume*4, 20), v.Duration.Seconds())
}

func (a *App) viewRunSummary() string {
	lines := []string{
		titleStyle.Render("🎉 练习完成！"),
		"",
		starStyle.Render(fmt.Sprintf("这次得到 %d 颗星星", a.train.earned)),
		mutedStyle.Render(fmt.Sprintf("一共 %d 颗星星", a.train.ledger.TotalStars)),
	}
	for _, ach := range a.train.unlocked {
		lines = append(lines, goodStyle.Render(fmt.Sprintf("新徽章 %s %s", ach.Emoji, ach.Name)))
	}
	lines = append(lines, "", footerStyle.Render("回车 再来一次  esc 返回"))
	return strings.Join(lines, "\n")
}
