// Package tui is the okena-tui operator dashboard: a bubbletea program
// showing project/terminal/service status, adapted from the teacher's
// internal/tui package (its Model/App composition and polling style) but
// pointed at a workspace snapshot instead of a single container's status.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/okena-dev/okena/internal/remote"
)

// ServiceStatus is one supervised service's display row.
type ServiceStatus struct {
	Name  string
	State string
	Ports []int
}

// Snapshot is everything the dashboard renders each refresh, collected by
// the caller-supplied fetch function so the TUI stays decoupled from
// whether it is talking to an in-process Bridge or a remote HTTP server.
type Snapshot struct {
	State    remote.StateSnapshot
	Services map[string][]ServiceStatus // project id -> its services
}

type tickMsg time.Time
type snapshotMsg Snapshot
type errMsg error

// model is the bubbletea root model for the dashboard.
type model struct {
	fetch func() (Snapshot, error)

	snapshot   Snapshot
	lastUpdate time.Time
	err        error
	connected  bool

	width  int
	height int
}

func newModel(fetch func() (Snapshot, error)) model {
	return model{fetch: fetch}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.fetch()
		if err != nil {
			return errMsg(err)
		}
		return snapshotMsg(snap)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), tickCmd())

	case snapshotMsg:
		m.snapshot = Snapshot(msg)
		m.lastUpdate = time.Now()
		m.connected = true
		m.err = nil
		return m, nil

	case errMsg:
		m.connected = false
		m.err = msg
		return m, nil
	}
	return m, nil
}
