package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type menuItem struct {
	label  string
	key    string
	screen Screen
}

var homeMenu = []menuItem{
	{label: "🎤 开始练习", key: "t", screen: ScreenTraining},
	{label: "📖 听故事", key: "s", screen: ScreenStories},
	{label: "🎵 学儿歌", key: "r", screen: ScreenRhymes},
	{label: "⭐ 我的奖励", key: "w", screen: ScreenRewards},
	{label: "🔒 家长设置", key: "p", screen: ScreenParent},
}

type homeView struct {
	cursor int
}

func (a *App) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		a.Shutdown()
		return a, tea.Quit
	case "up", "k":
		if a.home.cursor > 0 {
			a.home.cursor--
		}
	case "down", "j":
		if a.home.cursor < len(homeMenu)-1 {
			a.home.cursor++
		}
	case "enter", " ":
		a.env.Tones.Click()
		a.goTo(homeMenu[a.home.cursor].screen)
	default:
		for i, item := range homeMenu {
			if msg.String() == item.key {
				a.home.cursor = i
				a.env.Tones.Click()
				a.goTo(item.screen)
				break
			}
		}
	}
	return a, nil
}

func (a *App) viewHome() string {
	name := a.env.Library.Phrases.ChildName
	lines := []string{
		titleStyle.Render(name + "学说话"),
		"",
	}
	for i, item := range homeMenu {
		label := fmt.Sprintf("[%s] %s", item.key, item.label)
		if i == a.home.cursor {
			lines = append(lines, selectedStyle.Render("▶ "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}
	lines = append(lines, "")
	if a.gateState.Locked {
		lines = append(lines, warnStyle.Render(lockTitle(a.gateState)))
	} else {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("今天已练习 %d 分钟", a.gateState.TodayUsedSeconds/60)))
	}
	return strings.Join(lines, "\n")
}
