package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okena-dev/okena/internal/pty"
	"github.com/okena-dev/okena/internal/workspace"
)

func writeConfig(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "okena.yaml"), []byte(contents), 0o644))
}

func TestLoadProjectConfigMissingFileIsEmpty(t *testing.T) {
	cfg, err := LoadProjectConfig(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, cfg.Services)
}

func TestLoadProjectConfigParsesServices(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
services:
  - name: web
    command: "echo hi"
    auto_start: true
    restart_on_crash: true
    restart_delay_ms: 50
`)

	cfg, err := LoadProjectConfig(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Services, 1)
	require.Equal(t, "web", cfg.Services[0].Name)
	require.True(t, cfg.Services[0].AutoStart)
	require.True(t, cfg.Services[0].RestartOnCrash)
}

func TestSupervisorStartAllSpawnsAutoStartServices(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
services:
  - name: sleeper
    command: "sleep 5"
    auto_start: true
`)

	ws := workspace.New()
	pid := ws.AddProject("demo", dir, false)
	ptyMgr := pty.NewManager("/bin/sh")

	sup, err := NewSupervisor(ws, ptyMgr, pid, dir)
	require.NoError(t, err)
	sup.StartAll()

	svc, ok := sup.Service("sleeper")
	require.True(t, ok)
	require.Equal(t, Running, svc.State())
	require.NotEmpty(t, svc.TerminalID())

	sup.StopAll()
}

func TestSupervisorStatusesAreSortedByName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
services:
  - name: zeta
    command: "sleep 5"
  - name: alpha
    command: "sleep 5"
`)

	ws := workspace.New()
	pid := ws.AddProject("demo", dir, false)
	ptyMgr := pty.NewManager("/bin/sh")

	sup, err := NewSupervisor(ws, ptyMgr, pid, dir)
	require.NoError(t, err)

	statuses := sup.Statuses()
	require.Len(t, statuses, 2)
	require.Equal(t, "alpha", statuses[0].Name)
	require.Equal(t, "zeta", statuses[1].Name)
	require.Equal(t, Stopped.String(), statuses[0].State)
}

func TestServiceHandleExitRestartsUnderCap(t *testing.T) {
	ptyMgr := pty.NewManager("/bin/sh")
	svc := NewService("proj", "/tmp", ServiceConfig{
		Name:           "flaky",
		Command:        "true",
		RestartOnCrash: true,
		RestartDelayMs: 10,
	}, ptyMgr)

	restart, delay := svc.HandleExit("/tmp", nil)
	require.NotNil(t, restart)
	require.Equal(t, 10*time.Millisecond, delay)
	require.Equal(t, RestartingState, svc.State())
}

func TestServiceHandleExitStopsAfterMaxRestarts(t *testing.T) {
	ptyMgr := pty.NewManager("/bin/sh")
	svc := NewService("proj", "/tmp", ServiceConfig{
		Name:           "flaky",
		RestartOnCrash: true,
	}, ptyMgr)

	for i := 0; i < MaxRestartCount; i++ {
		restart, _ := svc.HandleExit("/tmp", nil)
		require.NotNil(t, restart)
	}

	restart, _ := svc.HandleExit("/tmp", nil)
	require.Nil(t, restart)
	require.Equal(t, Crashed, svc.State())
}

func TestServiceRestartResetsRestartCountAfterCrash(t *testing.T) {
	ptyMgr := pty.NewManager("/bin/sh")
	svc := NewService("proj", "/tmp", ServiceConfig{
		Name:           "flaky",
		Command:        "true",
		RestartOnCrash: true,
	}, ptyMgr)

	for i := 0; i < MaxRestartCount; i++ {
		restart, _ := svc.HandleExit("/tmp", nil)
		require.NotNil(t, restart)
	}
	restart, _ := svc.HandleExit("/tmp", nil)
	require.Nil(t, restart)
	require.Equal(t, Crashed, svc.State())

	require.NoError(t, svc.Restart("/tmp", nil))
	require.Equal(t, Running, svc.State())

	// A manual restart must reset the crash-restart cap: the very next
	// crash should be allowed to restart again instead of going straight
	// back to Crashed.
	restart, _ = svc.HandleExit("/tmp", nil)
	require.NotNil(t, restart)
	require.Equal(t, RestartingState, svc.State())
}

func TestServiceHandleExitWithoutRestartOnCrashGoesCrashed(t *testing.T) {
	ptyMgr := pty.NewManager("/bin/sh")
	svc := NewService("proj", "/tmp", ServiceConfig{Name: "oneshot"}, ptyMgr)

	restart, _ := svc.HandleExit("/tmp", nil)
	require.Nil(t, restart)
	require.Equal(t, Crashed, svc.State())
}
