package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// App wraps the bubbletea program, the same composition root shape as the
// teacher's own internal/tui.App.
type App struct {
	program *tea.Program
}

// NewApp builds a dashboard that polls fetch once a second for a fresh
// Snapshot. fetch may hit an in-process remote.Bridge directly or call out
// to a remote okena server's HTTP API; the TUI does not care which.
func NewApp(fetch func() (Snapshot, error)) *App {
	m := newModel(fetch)
	return &App{program: tea.NewProgram(m, tea.WithAltScreen())}
}

// Run blocks until the user quits the dashboard.
func (a *App) Run() error {
	_, err := a.program.Run()
	return err
}
