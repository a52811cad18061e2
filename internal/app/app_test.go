package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okena-dev/okena/internal/actions"
	"github.com/okena-dev/okena/internal/persistence"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	store, err := persistence.NewStore(t.TempDir())
	require.NoError(t, err)

	a, err := New(store)
	require.NoError(t, err)
	return a
}

func TestNewLoadsEmptyWorkspaceWithNoProjects(t *testing.T) {
	a := newTestApp(t)
	order, projects := a.Workspace.Snapshot()
	require.Empty(t, order)
	require.Empty(t, projects)
}

func TestCreateTerminalWhileRunningSpawnsRootPTY(t *testing.T) {
	a := newTestApp(t)
	pid := a.Workspace.AddProject("demo", t.TempDir(), true)

	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	defer cancel()

	time.Sleep(50 * time.Millisecond)

	result, err := a.Dispatcher.Execute(actions.Request{Kind: actions.CreateTerminal, ProjectID: pid})
	require.NoError(t, err)
	_ = result

	paths, err := a.Workspace.UninitializedTerminals(pid)
	require.NoError(t, err)
	require.Empty(t, paths, "CreateTerminal should have spawned the root leaf's PTY")
}

func TestShutdownStopsSupervisorsAndSavesWorkspace(t *testing.T) {
	a := newTestApp(t)
	a.Workspace.AddProject("demo", t.TempDir(), false)
	a.startSupervisors()

	a.Shutdown()

	loaded, err := a.Store.LoadWorkspace()
	require.NoError(t, err)
	require.Len(t, loaded.ProjectOrder, 1)
}
