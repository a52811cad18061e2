package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okena-dev/okena/internal/actions"
	"github.com/okena-dev/okena/internal/pty"
	"github.com/okena-dev/okena/internal/registry"
	"github.com/okena-dev/okena/internal/workspace"
)

func TestBridgeGetStateReflectsWorkspace(t *testing.T) {
	ws := workspace.New()
	pid := ws.AddProject("demo", "/tmp/demo", true)
	d := actions.New(ws, pty.NewManager("/bin/sh"), registry.New())
	b := NewBridge(d, ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	result := b.Submit(Command{Kind: CmdGetState})
	require.NoError(t, result.Err)

	snap, ok := result.Value.(StateSnapshot)
	require.True(t, ok)
	require.Contains(t, snap.ProjectOrder, pid)
}

func TestBridgeGetStateReflectsFocusAndFullscreen(t *testing.T) {
	ws := workspace.New()
	pid := ws.AddProject("demo", "/tmp/demo", true)
	require.NoError(t, ws.SetTerminalID(pid, workspace.Path{}, "t1"))
	require.NoError(t, ws.SetFullscreenTerminal(pid, "t1"))
	ws.SetFocusedProject(&pid)

	d := actions.New(ws, pty.NewManager("/bin/sh"), registry.New())
	b := NewBridge(d, ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	result := b.Submit(Command{Kind: CmdGetState})
	require.NoError(t, result.Err)

	snap, ok := result.Value.(StateSnapshot)
	require.True(t, ok)
	require.NotNil(t, snap.FocusedProjectID)
	require.Equal(t, pid, *snap.FocusedProjectID)
	require.NotNil(t, snap.FullscreenProject)
	require.Equal(t, pid, *snap.FullscreenProject)
	require.NotNil(t, snap.FullscreenTermID)
	require.Equal(t, "t1", *snap.FullscreenTermID)
}

func TestBridgeActionRoundTrip(t *testing.T) {
	ws := workspace.New()
	pid := ws.AddProject("demo", "/tmp/demo", true)
	d := actions.New(ws, pty.NewManager("/bin/sh"), registry.New())
	b := NewBridge(d, ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	result := b.Submit(Command{
		Kind: CmdAction,
		Action: actions.Request{
			Kind:      actions.ToggleMinimized,
			ProjectID: pid,
			Path:      workspace.Path{},
		},
	})
	require.NoError(t, result.Err)

	p, ok := ws.Project(pid)
	require.True(t, ok)
	require.True(t, p.Layout.Minimized)
}

func TestBridgeSubmitCompletesOnceRunStarts(t *testing.T) {
	ws := workspace.New()
	d := actions.New(ws, pty.NewManager("/bin/sh"), registry.New())
	b := NewBridge(d, ws)

	done := make(chan CommandResult, 1)
	go func() {
		done <- b.Submit(Command{Kind: CmdGetState})
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	defer cancel()

	select {
	case res := <-done:
		require.NoError(t, res.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not respond once Run started")
	}
}
