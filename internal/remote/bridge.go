package remote

import (
	"context"
	"errors"

	"github.com/okena-dev/okena/internal/actions"
	"github.com/okena-dev/okena/internal/workspace"
)

var errUnknownCommand = errors.New("remote: unknown bridge command kind")

// CommandKind discriminates the messages network goroutines send across
// the bridge to the workspace-owning goroutine.
type CommandKind int

const (
	CmdAction CommandKind = iota
	CmdGetState
	CmdGetTerminalSizes
	CmdRenderSnapshot
)

// Command is one request crossing the bridge, paired with a reply
// channel the workspace goroutine answers on.
type Command struct {
	Kind CommandKind

	Action      actions.Request
	TerminalIDs []string
	TerminalID  string

	reply chan CommandResult
}

// CommandResult is a Command's outcome, delivered on its reply channel.
type CommandResult struct {
	Value interface{}
	Err   error
}

// StateSnapshot is GetState's wire shape.
type StateSnapshot struct {
	StateVersion      uint64                        `json:"state_version"`
	ProjectOrder      []string                       `json:"project_order"`
	Projects          map[string]*workspace.Project `json:"projects"`
	FocusedProjectID  *string                        `json:"focused_project_id,omitempty"`
	FullscreenProject *string                        `json:"fullscreen_project_id,omitempty"`
	FullscreenTermID  *string                        `json:"fullscreen_terminal_id,omitempty"`
}

// Bridge is the many-producer/single-consumer channel pair connecting
// async network tasks (HTTP handlers, WS readers) to the goroutine that
// owns workspace and dispatcher state, serialising every remote mutation
// through one execution point the same way the local UI's handlers do.
type Bridge struct {
	commands   chan Command
	dispatcher *actions.Dispatcher
	workspace  *workspace.Workspace
}

// NewBridge creates a Bridge over d and ws with a modestly buffered
// command channel; Run must be started in its own goroutine.
func NewBridge(d *actions.Dispatcher, ws *workspace.Workspace) *Bridge {
	return &Bridge{
		commands:   make(chan Command, 64),
		dispatcher: d,
		workspace:  ws,
	}
}

// Submit enqueues cmd and blocks for its result. Safe to call from any
// goroutine; the actual work runs on whichever goroutine is executing Run.
func (b *Bridge) Submit(cmd Command) CommandResult {
	cmd.reply = make(chan CommandResult, 1)
	b.commands <- cmd
	return <-cmd.reply
}

// Run drains the command channel until ctx is cancelled, executing each
// command under the workspace's own locking (commands never overlap).
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-b.commands:
			cmd.reply <- b.handle(cmd)
		}
	}
}

func (b *Bridge) handle(cmd Command) CommandResult {
	switch cmd.Kind {
	case CmdAction:
		val, err := b.dispatcher.Execute(cmd.Action)
		return CommandResult{Value: val, Err: err}
	case CmdGetState:
		return CommandResult{Value: b.snapshot()}
	case CmdGetTerminalSizes:
		return CommandResult{Value: b.terminalSizes(cmd.TerminalIDs)}
	case CmdRenderSnapshot:
		t, err := b.dispatcher.Execute(actions.Request{Kind: actions.ReadContent, TerminalID: cmd.TerminalID})
		return CommandResult{Value: t, Err: err}
	default:
		return CommandResult{Err: errUnknownCommand}
	}
}

func (b *Bridge) snapshot() StateSnapshot {
	order, projects := b.workspace.Snapshot()
	snap := StateSnapshot{
		StateVersion:     b.workspace.DataVersion(),
		ProjectOrder:     order,
		Projects:         projects,
		FocusedProjectID: b.workspace.FocusedProject(),
	}
	if fs := b.workspace.Fullscreen(); fs != nil {
		snap.FullscreenProject = &fs.ProjectID
		if fs.TerminalID != "" {
			termID := fs.TerminalID
			snap.FullscreenTermID = &termID
		}
	}
	return snap
}

func (b *Bridge) terminalSizes(ids []string) map[string][2]int {
	out := make(map[string][2]int, len(ids))
	for _, id := range ids {
		if t, ok := b.dispatcher.Registry.Get(id); ok {
			cols, rows := t.Emulator.Size()
			out[id] = [2]int{cols, rows}
		}
	}
	return out
}
