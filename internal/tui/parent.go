package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tinytalk/internal/model"
)

// DefaultPIN guards the parent area when none is configured.
const DefaultPIN = "1234"

type parentStage int

const (
	parentPIN parentStage = iota
	parentPanel
	parentEdit
	parentConfirmReset
)

const (
	fieldSession = iota
	fieldDaily
	fieldCooldown
	fieldReminder
)

type parentView struct {
	stage   parentStage
	pin     textinput.Model
	fields  []textinput.Model
	field   int
	message string
	errMsg  string
}

func newParentView() parentView {
	pin := textinput.New()
	pin.Prompt = "PIN: "
	pin.EchoMode = textinput.EchoPassword
	pin.EchoCharacter = '•'
	pin.CharLimit = 8
	pin.Cursor.SetMode(cursor.CursorBlink)
	return parentView{
		pin: pin,
		fields: []textinput.Model{
			newNumberInput("单次训练时长（分钟）: "),
			newNumberInput("每日训练上限（分钟）: "),
			newNumberInput("冷却时间（分钟）: "),
			newNumberInput("提醒间隔（秒）: "),
		},
	}
}

func newNumberInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 4
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (p *parentView) reset() {
	p.stage = parentPIN
	p.message = ""
	p.errMsg = ""
	p.pin.SetValue("")
	p.pin.Focus()
	for i := range p.fields {
		p.fields[i].Blur()
	}
}

// forward hands non-key messages such as cursor blinks to the focused input.
func (p *parentView) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch p.stage {
	case parentPIN:
		p.pin, cmd = p.pin.Update(msg)
	case parentEdit:
		p.fields[p.field], cmd = p.fields[p.field].Update(msg)
	}
	return cmd
}

func (a *App) expectedPIN() string {
	if a.env.PIN == "" {
		return DefaultPIN
	}
	return a.env.PIN
}

func (a *App) updateParent(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &a.parent
	switch p.stage {
	case parentPIN:
		switch msg.Type {
		case tea.KeyEsc:
			a.goTo(ScreenHome)
			return a, nil
		case tea.KeyEnter:
			if strings.TrimSpace(p.pin.Value()) != a.expectedPIN() {
				p.errMsg = "PIN码错误，请重试"
				p.pin.SetValue("")
				a.log.Info().Msg("parent pin rejected")
				return a, nil
			}
			p.errMsg = ""
			p.pin.Blur()
			p.stage = parentPanel
			return a, nil
		}
		var cmd tea.Cmd
		p.pin, cmd = p.pin.Update(msg)
		return a, cmd

	case parentEdit:
		switch msg.Type {
		case tea.KeyEsc:
			p.stage = parentPanel
			p.errMsg = ""
			return a, nil
		case tea.KeyEnter:
			if err := a.applySettings(); err != nil {
				p.errMsg = err.Error()
				return a, nil
			}
			p.stage = parentPanel
			p.errMsg = ""
			p.message = "设置已保存"
			return a, nil
		case tea.KeyTab, tea.KeyDown:
			return a, p.setField(p.field + 1)
		case tea.KeyShiftTab, tea.KeyUp:
			return a, p.setField(p.field - 1)
		}
		var cmd tea.Cmd
		p.fields[p.field], cmd = p.fields[p.field].Update(msg)
		return a, cmd

	case parentConfirmReset:
		if msg.String() == "y" {
			if err := a.env.Repo.Reset(); err != nil {
				p.errMsg = fmt.Sprintf("清除失败：%v", err)
			} else {
				p.message = "本地数据已清除"
				a.log.Info().Msg("local data reset")
			}
			a.gateState = a.gate.State()
		}
		p.stage = parentPanel
		return a, nil
	}

	p.errMsg = ""
	switch msg.String() {
	case "esc", "q":
		a.goTo(ScreenHome)
	case "e", "enter":
		return a, a.startEdit()
	case "m":
		next := a.ratingMode().Next()
		if err := a.env.Repo.SaveRatingMode(next); err != nil {
			p.errMsg = err.Error()
			break
		}
		p.message = "评分模式：" + ratingLabel(next)
	case "u":
		a.gate.ParentUnlock()
		a.gateState = a.gate.State()
		p.message = "已解锁，可以继续练习"
	case "c":
		p.stage = parentConfirmReset
	}
	return a, nil
}

func (a *App) startEdit() tea.Cmd {
	p := &a.parent
	s := a.gate.Settings()
	p.fields[fieldSession].SetValue(strconv.Itoa(s.SessionLimitMinutes))
	p.fields[fieldDaily].SetValue(strconv.Itoa(s.DailyLimitMinutes))
	p.fields[fieldCooldown].SetValue(strconv.Itoa(s.CooldownMinutes))
	p.fields[fieldReminder].SetValue(strconv.Itoa(s.ReminderIntervalSeconds))
	for i := range p.fields {
		p.fields[i].CursorEnd()
	}
	p.stage = parentEdit
	p.message = ""
	return p.setField(0)
}

func (p *parentView) setField(idx int) tea.Cmd {
	count := len(p.fields)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	p.field = idx
	var cmd tea.Cmd
	for i := range p.fields {
		if i == p.field {
			cmd = p.fields[i].Focus()
		} else {
			p.fields[i].Blur()
		}
	}
	return cmd
}

func (a *App) applySettings() error {
	var patch model.SettingsPatch
	targets := []**int{
		&patch.SessionLimitMinutes,
		&patch.DailyLimitMinutes,
		&patch.CooldownMinutes,
		&patch.ReminderIntervalSeconds,
	}
	for i, input := range a.parent.fields {
		raw := strings.TrimSpace(input.Value())
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return fmt.Errorf("%s请输入正整数", strings.TrimSuffix(input.Prompt, ": "))
		}
		*targets[i] = &v
	}
	if patch.Empty() {
		return nil
	}
	if _, err := a.gate.UpdateSettings(patch); err != nil {
		return err
	}
	a.gateState = a.gate.State()
	a.log.Info().Msg("settings updated")
	return nil
}

func ratingLabel(m model.RatingMode) string {
	switch m {
	case model.RatingEasy:
		return "宽松"
	case model.RatingStandard:
		return "标准"
	case model.RatingStrict:
		return "严格"
	default:
		return string(m)
	}
}

func (a *App) viewParent() string {
	p := a.parent
	if p.stage == parentPIN {
		lines := []string{
			titleStyle.Render("🔒 家长设置"),
			"",
			"请输入家长PIN码",
			p.pin.View(),
		}
		if p.errMsg != "" {
			lines = append(lines, warnStyle.Render(p.errMsg))
		}
		lines = append(lines, "", footerStyle.Render("回车 确认  esc 返回"))
		return strings.Join(lines, "\n")
	}

	st := a.gateState
	ledger := a.ledger.Load()
	s := a.gate.Settings()
	lines := []string{
		titleStyle.Render("🔒 家长设置"),
		"",
		selectedStyle.Render("今日统计"),
		fmt.Sprintf("已练习 %d 分钟，还可以练习 %d 分钟", st.TodayUsedSeconds/60, st.RemainingDailySeconds/60),
		fmt.Sprintf("今天得到 %d 颗星星，一共 %d 颗", ledger.TodayStars, ledger.TotalStars),
	}
	if st.Locked {
		lines = append(lines, warnStyle.Render("当前状态："+lockTitle(st)))
	}
	lines = append(lines, "", selectedStyle.Render("训练设置"))

	switch p.stage {
	case parentEdit:
		for _, f := range p.fields {
			lines = append(lines, f.View())
		}
	default:
		lines = append(lines,
			fmt.Sprintf("单次训练时长  %d 分钟", s.SessionLimitMinutes),
			fmt.Sprintf("每日训练上限  %d 分钟", s.DailyLimitMinutes),
			fmt.Sprintf("冷却时间      %d 分钟", s.CooldownMinutes),
			fmt.Sprintf("提醒间隔      %d 秒", s.ReminderIntervalSeconds),
			fmt.Sprintf("评分模式      %s", ratingLabel(a.ratingMode())),
		)
	}

	if p.stage == parentConfirmReset {
		lines = append(lines, "", warnStyle.Render("确定要清除所有本地数据吗？按 y 确认，其他键取消"))
	}
	if p.errMsg != "" {
		lines = append(lines, "", warnStyle.Render(p.errMsg))
	} else if p.message != "" {
		lines = append(lines, "", goodStyle.Render(p.message))
	}

	help := "e 修改设置  m 评分模式  u 立即解锁  c 清除所有本地数据  esc 返回"
	if p.stage == parentEdit {
		help = "tab 下一项  回车 保存  esc 取消"
	}
	lines = append(lines, "", footerStyle.Render(help))
	return strings.Join(lines, "\n")
}
