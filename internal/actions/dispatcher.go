package actions

import (
	"fmt"
	"strings"

	"github.com/okena-dev/okena/internal/errs"
	"github.com/okena-dev/okena/internal/nav"
	"github.com/okena-dev/okena/internal/pty"
	"github.com/okena-dev/okena/internal/registry"
	"github.com/okena-dev/okena/internal/terminal"
	"github.com/okena-dev/okena/internal/workspace"
)

const defaultCols, defaultRows = 80, 24

// Dispatcher is the single authoritative execute(action) entry point,
// shared identically by local UI handlers, the remote bridge receive
// loop, and tests.
type Dispatcher struct {
	Workspace *workspace.Workspace
	PTY       *pty.Manager
	Registry  *registry.Registry
	Nav       *nav.Index
}

// New creates a Dispatcher over the given workspace, PTY manager, and
// terminal registry.
func New(ws *workspace.Workspace, ptyMgr *pty.Manager, reg *registry.Registry) *Dispatcher {
	return &Dispatcher{Workspace: ws, PTY: ptyMgr, Registry: reg, Nav: nav.NewIndex()}
}

// remotePrefix, if req.TerminalID has the form "remote:<cid>:<id>",
// returns the connection id prefix (including both colons) and the
// stripped real id. Otherwise ok is false.
func remotePrefix(id string) (prefix, real string, ok bool) {
	if !strings.HasPrefix(id, "remote:") {
		return "", id, false
	}
	rest := id[len("remote:"):]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return "", id, false
	}
	return "remote:" + rest[:idx+1], rest[idx+1:], true
}

// Execute runs req against the dispatcher's workspace, returning an
// optional JSON-marshalable value on success. Remote-addressed terminal
// ids (remote:<cid>:<id>) are stripped before delegating and the returned
// value's terminal_id, if any, gets the same prefix re-added.
func (d *Dispatcher) Execute(req Request) (interface{}, error) {
	prefix, realID, hadPrefix := remotePrefix(req.TerminalID)
	if hadPrefix {
		req.TerminalID = realID
	}

	result, err := d.dispatch(req)
	if err != nil {
		return nil, err
	}

	if hadPrefix {
		if m, ok := result.(map[string]interface{}); ok {
			if id, ok := m["terminal_id"].(string); ok {
				m["terminal_id"] = prefix + id
			}
		}
	}
	return result, nil
}

func (d *Dispatcher) dispatch(req Request) (interface{}, error) {
	switch req.Kind {
	case CreateTerminal:
		return d.createTerminal(req)
	case SplitTerminal:
		return d.splitTerminal(req)
	case CloseTerminal:
		return nil, d.closeTerminal(req)
	case AddTab:
		return d.addTab(req)
	case FocusTerminal:
		return nil, d.focusTerminal(req)
	case SendText:
		return nil, d.sendText(req)
	case RunCommand:
		return nil, d.runCommand(req)
	case SendSpecialKey:
		return nil, d.sendSpecialKey(req)
	case Resize:
		return nil, d.resize(req)
	case UpdateSplitSizes:
		return nil, d.Workspace.UpdateSplitSizes(req.ProjectID, req.Path, req.Sizes)
	case ReadContent:
		return d.readContent(req)
	case ToggleMinimized:
		return nil, d.Workspace.ToggleTerminalMinimized(req.ProjectID, req.Path)
	case SetFullscreen:
		return nil, d.Workspace.SetFullscreenTerminal(req.ProjectID, req.TerminalID)
	case RenameTerminal:
		return nil, d.renameTerminal(req)
	case RegisterBounds:
		d.Nav.Register(req.ProjectID, req.Path, nav.Bounds{X: req.X, Y: req.Y, W: req.W, H: req.H})
		return nil, nil
	case FocusDirectional:
		return d.focusDirectional(req)
	case FocusSequential:
		return d.focusSequential(req)
	default:
		return nil, fmt.Errorf("unknown action kind %q", req.Kind)
	}
}

// ensureTerminal looks up id in the registry; on miss, it searches every
// project's layout for that id, finds the owning project and path, and
// reconnect-spawns a PTY for it. This is what makes the system resilient
// to remote clients addressing terminals the local UI never rendered and
// to workspaces reloaded from disk.
func (d *Dispatcher) ensureTerminal(id string) (*terminal.Terminal, error) {
	if t, ok := d.Registry.Get(id); ok {
		return t, nil
	}

	projectID, path, ok := d.Workspace.FindTerminalPathAnyProject(id)
	if !ok {
		return nil, errs.TerminalNotFound(id)
	}
	p, ok := d.Workspace.Project(projectID)
	if !ok {
		return nil, errs.TerminalNotFound(id)
	}
	shellType, err := d.Workspace.LeafShellType(projectID, path)
	if err != nil {
		return nil, err
	}

	if err := d.PTY.ReconnectTerminal(id, p.Path, shellType); err != nil {
		return nil, errs.PtySpawnFailed(err)
	}

	t := terminal.New(id, shellType, defaultCols, defaultRows)
	t.Attach(d.PTY.Transport(id))
	d.Registry.Put(t)
	return t, nil
}

// spawnUninitializedTerminals walks projectID's layout for every Terminal
// leaf with terminal_id == nil, spawns a PTY for each, fills the id, and
// registers it. Called after any action that may have introduced new
// terminal leaves (CreateTerminal, SplitTerminal, AddTab).
func (d *Dispatcher) spawnUninitializedTerminals(projectID string) error {
	paths, err := d.Workspace.UninitializedTerminals(projectID)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	p, ok := d.Workspace.Project(projectID)
	if !ok {
		return errs.InvalidLayoutPath(nil)
	}

	for _, path := range paths {
		shellType, err := d.Workspace.LeafShellType(projectID, path)
		if err != nil {
			return err
		}

		id, err := d.PTY.CreateTerminal(p.Path, shellType)
		if err != nil {
			return errs.PtySpawnFailed(err)
		}
		if err := d.Workspace.SetTerminalID(projectID, path, id); err != nil {
			return err
		}

		t := terminal.New(id, shellType, defaultCols, defaultRows)
		t.Attach(d.PTY.Transport(id))
		d.Registry.Put(t)
	}
	return nil
}

func (d *Dispatcher) createTerminal(req Request) (interface{}, error) {
	if err := d.Workspace.StartTerminal(req.ProjectID); err != nil {
		return nil, err
	}
	if err := d.spawnUninitializedTerminals(req.ProjectID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (d *Dispatcher) splitTerminal(req Request) (interface{}, error) {
	newPath, err := d.Workspace.SplitTerminal(req.ProjectID, req.Path, req.Direction)
	if err != nil {
		return nil, err
	}
	if err := d.spawnUninitializedTerminals(req.ProjectID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": []int(newPath)}, nil
}

func (d *Dispatcher) addTab(req Request) (interface{}, error) {
	newPath, err := d.Workspace.AddTab(req.ProjectID, req.Path)
	if err != nil {
		return nil, err
	}
	if err := d.spawnUninitializedTerminals(req.ProjectID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": []int(newPath)}, nil
}

func (d *Dispatcher) closeTerminal(req Request) error {
	var path workspace.Path
	var err error
	if req.TerminalID != "" {
		path, _, err = d.Workspace.FindTerminalPath(req.ProjectID, req.TerminalID)
		if err != nil {
			return err
		}
	} else {
		path = req.Path
	}

	removedID, err := d.Workspace.CloseTerminal(req.ProjectID, path)
	if err != nil {
		return err
	}
	if removedID != nil {
		if t, ok := d.Registry.Remove(*removedID); ok {
			_ = d.PTY.Kill(t.ID)
		}
	}
	return nil
}

func (d *Dispatcher) focusTerminal(req Request) error {
	path := req.Path
	if req.TerminalID != "" {
		if _, err := d.ensureTerminal(req.TerminalID); err != nil {
			return err
		}
		p, _, err := d.Workspace.FindTerminalPath(req.ProjectID, req.TerminalID)
		if err != nil {
			return err
		}
		path = p
	}
	return d.Workspace.SetFocusedTerminal(req.ProjectID, path)
}

func (d *Dispatcher) sendText(req Request) error {
	t, err := d.ensureTerminal(req.TerminalID)
	if err != nil {
		return err
	}
	return t.SendInput(req.Text)
}

func (d *Dispatcher) runCommand(req Request) error {
	t, err := d.ensureTerminal(req.TerminalID)
	if err != nil {
		return err
	}
	return t.SendInput(req.Command + "\r")
}

func (d *Dispatcher) sendSpecialKey(req Request) error {
	t, err := d.ensureTerminal(req.TerminalID)
	if err != nil {
		return err
	}
	bytes, ok := specialKeyBytes[req.Key]
	if !ok {
		return fmt.Errorf("unknown special key %q", req.Key)
	}
	return t.SendBytes(bytes)
}

func (d *Dispatcher) resize(req Request) error {
	t, err := d.ensureTerminal(req.TerminalID)
	if err != nil {
		return err
	}
	t.Emulator.Resize(req.Cols, req.Rows)
	return d.PTY.Resize(t.ID, req.Cols, req.Rows)
}

func (d *Dispatcher) readContent(req Request) (interface{}, error) {
	t, err := d.ensureTerminal(req.TerminalID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"terminal_id": t.ID,
		"content":     string(t.Emulator.Snapshot()),
	}, nil
}

func (d *Dispatcher) focusDirectional(req Request) (interface{}, error) {
	current := req.Path
	if req.TerminalID != "" {
		p, _, err := d.Workspace.FindTerminalPath(req.ProjectID, req.TerminalID)
		if err != nil {
			return nil, err
		}
		current = p
	}

	path, ok := d.Nav.FocusDirectional(req.ProjectID, current, nav.Direction(req.NavDirection))
	if !ok {
		return nil, nil
	}
	if err := d.Workspace.SetFocusedTerminal(req.ProjectID, path); err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": []int(path)}, nil
}

func (d *Dispatcher) focusSequential(req Request) (interface{}, error) {
	current := req.Path
	if req.TerminalID != "" {
		p, _, err := d.Workspace.FindTerminalPath(req.ProjectID, req.TerminalID)
		if err != nil {
			return nil, err
		}
		current = p
	}

	path, ok := d.Nav.FocusSequential(req.ProjectID, current, req.Forward)
	if !ok {
		return nil, nil
	}
	if err := d.Workspace.SetFocusedTerminal(req.ProjectID, path); err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": []int(path)}, nil
}

func (d *Dispatcher) renameTerminal(req Request) error {
	return d.Workspace.RenameTerminal(req.ProjectID, req.TerminalID, req.Name)
}
