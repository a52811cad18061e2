package pty

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drainUntilExit(t *testing.T, m *Manager, id string, timeout time.Duration) (data []byte, exitCode *int) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-m.Events():
			if ev.TerminalID != id {
				continue
			}
			switch ev.Kind {
			case Data:
				data = append(data, ev.Bytes...)
			case Exit:
				exitCode = ev.ExitCode
				return data, exitCode
			}
		case <-deadline:
			t.Fatal("timed out waiting for pty exit event")
		}
	}
}

func TestCreateTerminalProducesOutputThenExit(t *testing.T) {
	m := NewManager("/bin/sh")
	id, err := m.CreateTerminal("", "/bin/sh")
	require.NoError(t, err)
	require.True(t, m.IsRunning(id))

	require.NoError(t, m.Write(id, []byte("echo hello-okena; exit\n")))

	data, exitCode := drainUntilExit(t, m, id, 5*time.Second)
	require.Contains(t, string(data), "hello-okena")
	require.NotNil(t, exitCode)
	require.Equal(t, 0, *exitCode)
	require.False(t, m.IsRunning(id))
}

func TestSpawnCommandRunsNonInteractiveShellCommand(t *testing.T) {
	m := NewManager("/bin/sh")
	id := "svc-1"
	require.NoError(t, m.SpawnCommand(id, "", "echo from-service", nil))

	data, exitCode := drainUntilExit(t, m, id, 5*time.Second)
	require.Contains(t, string(data), "from-service")
	require.NotNil(t, exitCode)
	require.Equal(t, 0, *exitCode)
}

func TestKillTerminatesRunningSession(t *testing.T) {
	m := NewManager("/bin/sh")
	id, err := m.CreateTerminal("", "/bin/sh")
	require.NoError(t, err)

	pid, ok := m.Pid(id)
	require.True(t, ok)
	require.Greater(t, pid, 0)

	require.NoError(t, m.Kill(id))

	_, _ = drainUntilExit(t, m, id, 5*time.Second)
	require.False(t, m.IsRunning(id))
}

func TestWriteToUnknownTerminalReturnsNotFound(t *testing.T) {
	m := NewManager("/bin/sh")
	err := m.Write("does-not-exist", []byte("hi"))
	require.Error(t, err)
}

func TestResizeAppliesWindowSize(t *testing.T) {
	m := NewManager("/bin/sh")
	id, err := m.CreateTerminal("", "/bin/sh")
	require.NoError(t, err)
	defer func() { _ = m.Kill(id) }()

	require.NoError(t, m.Resize(id, 120, 40))
}

func TestCreateOrReconnectReusesLiveSession(t *testing.T) {
	m := NewManager("/bin/sh")
	id, err := m.CreateTerminal("", "/bin/sh")
	require.NoError(t, err)
	defer func() { _ = m.Kill(id) }()

	reused, err := m.CreateOrReconnect(id, "", "/bin/sh")
	require.NoError(t, err)
	require.Equal(t, id, reused)
	require.True(t, strings.HasPrefix(reused, id))
}
