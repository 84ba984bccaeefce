package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tinytalk/internal/model"
	"github.com/verte-zerg/tinytalk/internal/rewards"
)

type rewardsView struct {
	ledger model.RewardsLedger
	table  table.Model
}

func (a *App) loadRewards() {
	ledger := a.ledger.Load()
	rows := make([]table.Row, 0, len(rewards.Achievements))
	for _, ach := range rewards.Achievements {
		status := fmt.Sprintf("%d/%d", min(ledger.TotalStars, ach.Stars), ach.Stars)
		if rewards.Unlocked(ledger, ach) {
			status = "✔"
		}
		rows = append(rows, table.Row{ach.Emoji, ach.Name, fmt.Sprintf("%d", ach.Stars), status})
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "", Width: 3},
			{Title: "徽章", Width: 14},
			{Title: "星星", Width: 5},
			{Title: "进度", Width: 7},
		}),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#FF8C42")).Bold(true)
	t.SetStyles(styles)
	a.rewards.ledger = ledger
	a.rewards.table = t
}

func (a *App) updateRewards(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		a.goTo(ScreenHome)
		return a, nil
	}
	var cmd tea.Cmd
	a.rewards.table, cmd = a.rewards.table.Update(msg)
	return a, cmd
}

func (a *App) viewRewards() string {
	l := a.rewards.ledger
	lines := []string{
		titleStyle.Render("⭐ 我的奖励"),
		"",
		starStyle.Render(fmt.Sprintf("一共 %d 颗星星", l.TotalStars)),
	}
	if l.TodayStars > 0 {
		lines = append(lines, goodStyle.Render(fmt.Sprintf("今天得到 %d 颗星星", l.TodayStars)))
		lines = append(lines, strings.Repeat("⭐", min(l.TodayStars, 10)))
	} else {
		lines = append(lines, mutedStyle.Render("今天还没有练习哦～"))
	}
	lines = append(lines, "", a.rewards.table.View())
	if next, ok := rewards.Next(l); ok {
		lines = append(lines, "", mutedStyle.Render(fmt.Sprintf("再得 %d 颗星星就能拿到 %s %s", next.Stars-l.TotalStars, next.Emoji, next.Name)))
	} else {
		lines = append(lines, "", goodStyle.Render("所有徽章都拿到啦！"))
	}
	lines = append(lines, "", footerStyle.Render("esc 返回"))
	return strings.Join(lines, "\n")
}
