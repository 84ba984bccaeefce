package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tinytalk/internal/content"
	"github.com/verte-zerg/tinytalk/internal/playback"
)

type libraryView struct {
	cursor    int
	open      bool
	current   int
	playing   bool
	paused    bool
	following bool
}

// libraryEntry is a story or rhyme as the library screen shows it.
type libraryEntry struct {
	title      string
	art        string
	difficulty string
	actions    bool
	lines      []string
	script     []string
}

func (a *App) libraryEntries() []libraryEntry {
	lib := a.env.Library
	if a.screen == ScreenStories {
		out := make([]libraryEntry, 0, len(lib.Stories))
		for _, s := range lib.Stories {
			out = append(out, libraryEntry{
				title:      s.Title,
				art:        s.Art,
				difficulty: s.Difficulty,
				lines:      s.Paragraphs,
				script:     content.StoryScript(s, lib.Phrases),
			})
		}
		return out
	}
	out := make([]libraryEntry, 0, len(lib.Rhymes))
	for _, r := range lib.Rhymes {
		out = append(out, libraryEntry{
			title:      r.Title,
			art:        r.Art,
			difficulty: r.Difficulty,
			actions:    r.HasActions,
			lines:      r.Lines,
			script:     r.Lines,
		})
	}
	return out
}

func (a *App) player() *playback.Player {
	if a.screen == ScreenStories {
		return a.stories
	}
	return a.rhymes
}

func (a *App) stopLibrary() {
	a.stories.Stop()
	a.rhymes.Stop()
	a.follow.Stop()
	a.library.playing = false
	a.library.paused = false
	a.library.following = false
	a.library.current = 0
}

func (a *App) updateLibrary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := a.libraryEntries()
	if !a.library.open {
		switch msg.String() {
		case "esc", "q":
			a.goTo(ScreenHome)
		case "up", "k":
			if a.library.cursor > 0 {
				a.library.cursor--
			}
		case "down", "j":
			if a.library.cursor < len(entries)-1 {
				a.library.cursor++
			}
		case "enter", " ":
			if len(entries) > 0 {
				a.env.Tones.Click()
				a.library.open = true
				a.library.current = 0
			}
		}
		return a, nil
	}

	entry := entries[a.library.cursor]
	switch msg.String() {
	case "esc", "q":
		a.stopLibrary()
		a.library.open = false
	case " ", "enter":
		if a.library.following {
			a.follow.Toggle()
			break
		}
		a.env.Tones.Click()
		a.togglePlayback(entry)
	case "s":
		a.env.Tones.Click()
		a.stopLibrary()
	case "f":
		if a.screen != ScreenRhymes {
			break
		}
		a.env.Tones.Click()
		if a.library.following {
			a.follow.Stop()
			a.library.following = false
			break
		}
		a.player().Stop()
		a.library.playing = false
		a.library.paused = false
		a.library.following = true
		a.follow.Begin(entry.lines)
	}
	return a, nil
}

func (a *App) togglePlayback(entry libraryEntry) {
	p := a.player()
	switch {
	case a.library.playing && a.library.paused:
		p.Resume()
		a.library.paused = false
	case a.library.playing:
		p.Pause()
		a.library.paused = true
	default:
		a.library.playing = true
		a.library.paused = false
		a.library.current = 0
		p.Play(context.Background(), entry.script, 0, a.playbackProgress)
	}
}

func (a *App) playbackProgress(pr playback.Progress) {
	a.library.current = pr.Index
	if pr.Done || pr.Stopped {
		a.library.playing = false
		a.library.paused = false
	}
}

func (a *App) viewLibrary() string {
	entries := a.libraryEntries()
	heading := "📖 听故事"
	if a.screen == ScreenRhymes {
		heading = "🎵 学儿歌"
	}
	if !a.library.open {
		lines := []string{titleStyle.Render(heading), ""}
		for i, e := range entries {
			label := fmt.Sprintf("%s %s  %s", e.art, e.title, mutedStyle.Render(content.DifficultyLabel(e.difficulty)))
			if i == a.library.cursor {
				lines = append(lines, selectedStyle.Render("▶ ")+label)
			} else {
				lines = append(lines, "  "+label)
			}
		}
		lines = append(lines, "", footerStyle.Render("回车 打开  esc 返回"))
		return strings.Join(lines, "\n")
	}

	e := entries[a.library.cursor]
	width := a.width * 7 / 10
	if width <= 0 {
		width = 60
	}
	header := e.art + " " + titleStyle.Render(e.title) + "  " + mutedStyle.Render(content.DifficultyLabel(e.difficulty))
	if e.actions {
		header += "  " + mutedStyle.Render("可以做动作")
	}
	lines := []string{header, ""}
	current := a.highlightIndex()
	for i, text := range e.lines {
		style := pendingStyle
		switch {
		case i == current && (a.library.playing || a.library.following):
			style = currentStyle
		case i < current:
			style = doneStyle
		}
		lines = append(lines, wrapText(text, width, style))
	}
	if a.screen == ScreenStories && current >= len(e.lines) && a.library.playing {
		lines = append(lines, "", currentStyle.Render(e.script[len(e.script)-1]))
	}
	lines = append(lines, "", a.libraryStatus())
	lines = append(lines, "", footerStyle.Render(a.libraryHelp()))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (a *App) highlightIndex() int {
	if a.library.following {
		return a.follow.Snapshot().Index
	}
	return a.library.current
}

func (a *App) libraryStatus() string {
	if a.library.following {
		snap := a.follow.Snapshot()
		status := promptStyle.Render(snap.Message)
		if snap.Recording {
			status += "\n" + meterLine(snap.Voice)
		}
		if snap.Done {
			status = goodStyle.Render(snap.Message)
		}
		return status
	}
	switch {
	case a.library.playing && a.library.paused:
		return mutedStyle.Render("⏸ 暂停了")
	case a.library.playing:
		return goodStyle.Render("🔊 正在播放…")
	default:
		return mutedStyle.Render("按空格开始播放")
	}
}

func (a *App) libraryHelp() string {
	if a.library.following {
		return "空格 录音/停止  f 结束跟读  esc 返回"
	}
	help := "空格 播放/暂停  s 停止  esc 返回"
	if a.screen == ScreenRhymes {
		help = "空格 播放/暂停  s 停止  f 跟读  esc 返回"
	}
	return help
}
