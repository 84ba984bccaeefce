package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tinytalk/internal/gate"
)

func lockTitle(st gate.State) string {
	switch st.Reason {
	case gate.ReasonSession:
		return "休息一下吧！"
	case gate.ReasonDaily:
		return "今天练习完成啦！"
	case gate.ReasonCooldown:
		return "休息中..."
	default:
		return "休息一下"
	}
}

func lockDetail(st gate.State) (emoji, subtitle, detail string) {
	switch st.Reason {
	case gate.ReasonSession:
		return "😊", "本次练习完成啦～", "休息一会儿再来玩！"
	case gate.ReasonDaily:
		return "🌙", "明天再来哦～", "晚安，好好睡觉！ 明天见！"
	case gate.ReasonCooldown:
		return "⏰", "还要等 " + clock(st.CooldownRemainingSeconds), "先去玩点别的吧！"
	default:
		return "😴", "", ""
	}
}

func (a *App) updateLock(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter", " ":
		a.goTo(ScreenHome)
	case "p":
		a.goTo(ScreenParent)
	}
	return a, nil
}

func (a *App) viewLock() string {
	st := a.gateState
	if st.CanPlay {
		return lockStyle.Render(strings.Join([]string{
			"🌈",
			goodStyle.Render("休息好啦，可以继续练习了！"),
			"",
			footerStyle.Render("回车 返回"),
		}, "\n"))
	}
	emoji, subtitle, detail := lockDetail(st)
	lines := []string{emoji, "", titleStyle.Render(lockTitle(st))}
	if subtitle != "" {
		lines = append(lines, subtitle)
	}
	if detail != "" {
		lines = append(lines, mutedStyle.Render(detail))
	}
	lines = append(lines, "", footerStyle.Render("回车 返回  p 家长"))
	return lockStyle.Render(strings.Join(lines, "\n"))
}
