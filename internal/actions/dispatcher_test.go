package actions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okena-dev/okena/internal/pty"
	"github.com/okena-dev/okena/internal/registry"
	"github.com/okena-dev/okena/internal/workspace"
)

func newTestDispatcher() (*Dispatcher, string) {
	ws := workspace.New()
	pid := ws.AddProject("demo", "/tmp/demo", true)
	return New(ws, pty.NewManager("/bin/sh"), registry.New()), pid
}

func TestRemotePrefixStripAndReAdd(t *testing.T) {
	prefix, real, ok := remotePrefix("remote:conn-1:abc123")
	require.True(t, ok)
	require.Equal(t, "remote:conn-1:", prefix)
	require.Equal(t, "abc123", real)

	_, _, ok = remotePrefix("abc123")
	require.False(t, ok)
}

func TestExecuteUpdateSplitSizesAfterSplit(t *testing.T) {
	d, pid := newTestDispatcher()

	newPath, err := d.Workspace.SplitTerminal(pid, workspace.Path{}, workspace.Horizontal)
	require.NoError(t, err)
	require.Equal(t, workspace.Path{1}, newPath)

	_, err = d.Execute(Request{
		Kind:      UpdateSplitSizes,
		ProjectID: pid,
		Path:      workspace.Path{},
		Sizes:     []float64{30, 70},
	})
	require.NoError(t, err)
}

func TestExecuteToggleMinimized(t *testing.T) {
	d, pid := newTestDispatcher()

	_, err := d.Execute(Request{
		Kind:      ToggleMinimized,
		ProjectID: pid,
		Path:      workspace.Path{},
	})
	require.NoError(t, err)

	p, ok := d.Workspace.Project(pid)
	require.True(t, ok)
	require.True(t, p.Layout.Minimized)
}

func TestExecuteUnknownKindReturnsError(t *testing.T) {
	d, pid := newTestDispatcher()

	_, err := d.Execute(Request{Kind: Kind("bogus"), ProjectID: pid})
	require.Error(t, err)
}

func TestExecuteFocusDirectionalUsesRegisteredBounds(t *testing.T) {
	d, pid := newTestDispatcher()

	newPath, err := d.Workspace.SplitTerminal(pid, workspace.Path{}, workspace.Horizontal)
	require.NoError(t, err)
	require.Equal(t, workspace.Path{1}, newPath)

	_, err = d.Execute(Request{Kind: RegisterBounds, ProjectID: pid, Path: workspace.Path{0}, X: 0, Y: 0, W: 10, H: 10})
	require.NoError(t, err)
	_, err = d.Execute(Request{Kind: RegisterBounds, ProjectID: pid, Path: workspace.Path{1}, X: 10, Y: 0, W: 10, H: 10})
	require.NoError(t, err)

	result, err := d.Execute(Request{Kind: FocusDirectional, ProjectID: pid, Path: workspace.Path{0}, NavDirection: "right"})
	require.NoError(t, err)
	require.Equal(t, []int{1}, result.(map[string]interface{})["path"])

	focused := d.Workspace.FocusedTerminal()
	require.NotNil(t, focused)
	require.Equal(t, workspace.Path{1}, focused.Path)
}

func TestExecuteFocusSequentialWrapsAround(t *testing.T) {
	d, pid := newTestDispatcher()

	_, err := d.Workspace.SplitTerminal(pid, workspace.Path{}, workspace.Horizontal)
	require.NoError(t, err)

	_, err = d.Execute(Request{Kind: RegisterBounds, ProjectID: pid, Path: workspace.Path{0}, W: 1, H: 1})
	require.NoError(t, err)
	_, err = d.Execute(Request{Kind: RegisterBounds, ProjectID: pid, Path: workspace.Path{1}, W: 1, H: 1})
	require.NoError(t, err)

	result, err := d.Execute(Request{Kind: FocusSequential, ProjectID: pid, Path: workspace.Path{1}, Forward: true})
	require.NoError(t, err)
	require.Equal(t, []int{0}, result.(map[string]interface{})["path"])
}

func TestExecuteRenameTerminalSetsCustomName(t *testing.T) {
	d, pid := newTestDispatcher()
	before := d.Workspace.DataVersion()

	_, err := d.Execute(Request{
		Kind:       RenameTerminal,
		ProjectID:  pid,
		TerminalID: "term-1",
		Name:       "build",
	})
	require.NoError(t, err)

	p, ok := d.Workspace.Project(pid)
	require.True(t, ok)
	require.Equal(t, "build", p.CustomNames["term-1"])
	require.Greater(t, d.Workspace.DataVersion(), before, "rename must bump data_version for the debounced saver")
}
