// Package app is the daemon's composition root: it owns every long-lived
// subsystem (workspace, PTY manager, registry, action dispatcher, remote
// bridge/broadcaster/server, per-project supervisors, and the persistence
// store) and runs the single goroutine that drains PTY events, the way the
// teacher's App main loop in cmd/root.go drove its own container lifecycle
// from one place.
package app

import (
	"context"
	"sync"

	"github.com/okena-dev/okena/internal/actions"
	"github.com/okena-dev/okena/internal/config"
	"github.com/okena-dev/okena/internal/gitexec"
	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/persistence"
	"github.com/okena-dev/okena/internal/pty"
	"github.com/okena-dev/okena/internal/registry"
	"github.com/okena-dev/okena/internal/remote"
	"github.com/okena-dev/okena/internal/supervisor"
	"github.com/okena-dev/okena/internal/vcsstatus"
	"github.com/okena-dev/okena/internal/workspace"
)

// App wires together every subsystem described in the component design
// and drives the PTY event loop.
type App struct {
	Workspace   *workspace.Workspace
	PTY         *pty.Manager
	Registry    *registry.Registry
	Dispatcher  *actions.Dispatcher
	Bridge      *remote.Bridge
	Broadcaster *remote.Broadcaster
	Server      *remote.Server
	Store       *persistence.Store
	VCSStatus   *vcsstatus.Poller

	mu          sync.Mutex
	supervisors map[string]*supervisor.Supervisor // project id -> supervisor
}

// New loads persisted workspace state from store and wires the full
// subsystem graph, but does not yet start any goroutines or PTYs.
func New(store *persistence.Store) (*App, error) {
	wf, err := store.LoadWorkspace()
	if err != nil {
		return nil, err
	}

	ws := workspace.New()
	ws.Restore(wf.ProjectOrder, wf.Projects, wf.FocusedProjectID, wf.DataVersion)

	ptyMgr := pty.NewManager("")
	reg := registry.New()
	dispatcher := actions.New(ws, ptyMgr, reg)
	bridge := remote.NewBridge(dispatcher, ws)
	broadcaster := remote.NewBroadcaster()
	server := remote.NewServer(bridge, broadcaster)
	vcsPoller := vcsstatus.NewPoller(gitexec.NewGitExecutor())
	server.VCSStatus = vcsPoller

	a := &App{
		Workspace:   ws,
		PTY:         ptyMgr,
		Registry:    reg,
		Dispatcher:  dispatcher,
		Bridge:      bridge,
		Broadcaster: broadcaster,
		Server:      server,
		Store:       store,
		VCSStatus:   vcsPoller,
		supervisors: make(map[string]*supervisor.Supervisor),
	}
	server.ServiceStatuses = a.ServiceStatuses
	return a, nil
}

// Run starts the bridge command loop, the VCS status poller, the PTY
// event pump, and every project's service supervisor, then blocks until
// ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	go a.Bridge.Run(ctx)
	go a.VCSStatus.Run(ctx, a.Workspace)
	a.startSupervisors()

	notify, sub := a.Workspace.Subscribe()
	defer sub.Unsubscribe()
	savedVersion := a.Workspace.DataVersion()

	for {
		select {
		case <-ctx.Done():
			a.Shutdown()
			return
		case <-notify:
			if v := a.Workspace.DataVersion(); v != savedVersion {
				savedVersion = v
				a.saveSnapshot()
			}
		case ev, ok := <-a.PTY.Events():
			if !ok {
				return
			}
			a.handleEvent(ev)
			for drained := false; !drained; {
				select {
				case ev, ok := <-a.PTY.Events():
					if !ok {
						return
					}
					a.handleEvent(ev)
				default:
					drained = true
				}
			}
		}
	}
}

func (a *App) startSupervisors() {
	_, projects := a.Workspace.Snapshot()
	for pid, p := range projects {
		sup, err := supervisor.NewSupervisor(a.Workspace, a.PTY, pid, p.Path)
		if err != nil {
			logger.Warnf("project %s: failed to load service config: %v", pid, err)
			continue
		}
		a.mu.Lock()
		a.supervisors[pid] = sup
		a.mu.Unlock()
		sup.StartAll()
	}
}

func (a *App) handleEvent(ev pty.Event) {
	switch ev.Kind {
	case pty.Data:
		a.handleData(ev)
	case pty.Exit:
		a.handleExit(ev)
	}
}

func (a *App) handleData(ev pty.Event) {
	t, ok := a.Registry.Get(ev.TerminalID)
	if !ok {
		return
	}
	t.Emulator.ProcessOutput(ev.Bytes)
	a.Broadcaster.Publish(ev.TerminalID, ev.Bytes)
}

func (a *App) handleExit(ev pty.Event) {
	if t, ok := a.Registry.Get(ev.TerminalID); ok {
		t.Detach(ev.ExitCode)
	}

	a.mu.Lock()
	supervisors := make([]*supervisor.Supervisor, 0, len(a.supervisors))
	for _, sup := range a.supervisors {
		supervisors = append(supervisors, sup)
	}
	a.mu.Unlock()

	for _, sup := range supervisors {
		sup.HandleExit(ev.TerminalID, ev.ExitCode)
	}

	a.saveSnapshot()
}

// saveSnapshot schedules a debounced write of the current workspace state.
func (a *App) saveSnapshot() {
	a.Store.ScheduleSave(a.workspaceFile())
}

func (a *App) workspaceFile() *persistence.WorkspaceFile {
	order, projects := a.Workspace.Snapshot()
	return &persistence.WorkspaceFile{
		DataVersion:      a.Workspace.DataVersion(),
		ProjectOrder:     order,
		Projects:         projects,
		FocusedProjectID: a.Workspace.FocusedProject(),
	}
}

// Shutdown stops every supervisor and flushes the last workspace snapshot
// to disk synchronously, called once on graceful exit.
func (a *App) Shutdown() {
	a.mu.Lock()
	supervisors := make([]*supervisor.Supervisor, 0, len(a.supervisors))
	for _, sup := range a.supervisors {
		supervisors = append(supervisors, sup)
	}
	a.mu.Unlock()

	for _, sup := range supervisors {
		sup.StopAll()
	}

	if err := a.Store.SaveWorkspaceNow(a.workspaceFile()); err != nil {
		logger.Errorf("failed to save workspace.json on shutdown: %v", err)
	}
}

// ServiceStatuses returns every project's current service statuses, keyed
// by project id, for the remote services route and the status TUI.
func (a *App) ServiceStatuses() map[string][]supervisor.ServiceStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string][]supervisor.ServiceStatus, len(a.supervisors))
	for pid, sup := range a.supervisors {
		out[pid] = sup.Statuses()
	}
	return out
}

// ResolveConfigDir returns the directory the persistence Store should use,
// honoring the runtime's detected mode.
func ResolveConfigDir() string {
	return config.Runtime.ConfigDir
}
