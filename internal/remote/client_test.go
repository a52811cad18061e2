package remote

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/okena-dev/okena/internal/actions"
	"github.com/okena-dev/okena/internal/persistence"
	"github.com/okena-dev/okena/internal/pty"
	"github.com/okena-dev/okena/internal/registry"
	"github.com/okena-dev/okena/internal/workspace"
)

// startTestServer brings up a real server on a loopback port and returns a
// RemoteConnection config already holding a redeemed bearer token.
func startTestServer(t *testing.T, ws *workspace.Workspace) (*Server, persistence.RemoteConnectionConfig) {
	t.Helper()

	d := actions.New(ws, pty.NewManager("/bin/sh"), registry.New())
	bridge := NewBridge(d, ws)
	server := NewServer(bridge, NewBroadcaster())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bridge.Run(ctx)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() { _ = server.App.Listener(ln) }()
	time.Sleep(50 * time.Millisecond)

	addr := ln.Addr().(*net.TCPAddr)
	code := server.Auth.RegeneratePairingCode()
	token, err := server.Auth.RedeemPairingCode(code)
	require.NoError(t, err)

	cfg := persistence.RemoteConnectionConfig{
		Name:       "test",
		Host:       "127.0.0.1",
		Port:       addr.Port,
		SavedToken: &token,
	}
	return server, cfg
}

func TestFetchStateIssuesAuthenticatedGET(t *testing.T) {
	ws := workspace.New()
	pid := ws.AddProject("demo", "/tmp/demo", true)
	_, cfg := startTestServer(t, ws)

	rc := NewRemoteConnection(cfg)
	state, err := rc.fetchState(*cfg.SavedToken)
	require.NoError(t, err)
	require.Contains(t, state.ProjectOrder, pid)
}

func TestSendActionExecutesRemotely(t *testing.T) {
	ws := workspace.New()
	pid := ws.AddProject("demo", "/tmp/demo", true)
	_, cfg := startTestServer(t, ws)

	rc := NewRemoteConnection(cfg)
	err := rc.SendAction(actions.Request{
		Kind:      actions.ToggleMinimized,
		ProjectID: pid,
		Path:      workspace.Path{},
	})
	require.NoError(t, err)

	p, ok := ws.Project(pid)
	require.True(t, ok)
	require.True(t, p.Layout.Minimized)
}

func TestHandleFrameRoutesBinaryPayloadToSubscribedTerminal(t *testing.T) {
	rc := NewRemoteConnection(persistence.RemoteConnectionConfig{Host: "127.0.0.1", Port: 1})

	var gotTerm string
	var gotData []byte
	rc.DataHandler = func(terminalID string, data []byte) {
		gotTerm = terminalID
		gotData = data
	}

	rc.handleFrame(websocket.TextMessage, []byte(`{"type":"subscribed","terminal_id":"t1","stream_id":7}`))
	rc.handleFrame(websocket.BinaryMessage, append([]byte("7:\x00"), []byte("hello")...))

	require.Equal(t, "t1", gotTerm)
	require.Equal(t, "hello", string(gotData))
}

func TestHandleFrameIgnoresUnknownStream(t *testing.T) {
	rc := NewRemoteConnection(persistence.RemoteConnectionConfig{Host: "127.0.0.1", Port: 1})

	called := false
	rc.DataHandler = func(string, []byte) { called = true }

	rc.handleFrame(websocket.BinaryMessage, append([]byte("99:"), []byte("hello")...))

	require.False(t, called)
}
