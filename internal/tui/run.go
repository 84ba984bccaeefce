package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tinytalk/internal/loop"
)

// programSink forwards work to a Bubble Tea program once it exists. Work
// dispatched before then waits.
type programSink struct {
	ready   chan struct{}
	program *tea.Program
}

func newProgramSink() *programSink {
	return &programSink{ready: make(chan struct{})}
}

func (s *programSink) attach(p *tea.Program) {
	s.program = p
	close(s.ready)
}

func (s *programSink) dispatch(fn func()) {
	<-s.ready
	s.program.Send(taskMsg(fn))
}

// Run starts the interactive app and blocks until it exits.
func Run(env Env) error {
	sink := newProgramSink()
	sched := loop.NewDispatcher(sink.dispatch)
	app := New(env, sched, sched.Send)

	program := tea.NewProgram(app, tea.WithAltScreen())
	sink.attach(program)
	_, err := program.Run()
	app.Shutdown()
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
