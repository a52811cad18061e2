// Package pty owns OS-level pseudo-terminal file descriptors and the child
// processes behind them, the way internal/services/pty.go spawned the
// project setup shell: github.com/creack/pty starts the child, a
// per-session goroutine pumps its master fd into the shared events channel.
package pty

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/okena-dev/okena/internal/errs"
	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/terminal"
)

// readBufSize is the per-read chunk size for the PTY pump, matching the
// teacher's setup-session reader.
const readBufSize = 64 * 1024

// session is a single live PTY-backed child process.
type session struct {
	id   string
	cwd  string
	cmd  *exec.Cmd
	ptmx *os.File

	mu       sync.Mutex
	cols     int
	rows     int
	writeErr error
}

// Manager owns every live terminal's master fd and child process. All
// exported methods are safe for concurrent use; mutation of the session
// map is guarded by mu, but individual session I/O happens outside that
// lock so a slow write never stalls an unrelated terminal.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	events   chan Event
	shell    string
}

// NewManager creates an empty Manager. defaultShell is used when
// CreateTerminal is called without an explicit shell (empty string falls
// back to $SHELL, then /bin/bash).
func NewManager(defaultShell string) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		events:   make(chan Event, eventsCapacity),
		shell:    defaultShell,
	}
}

// Events returns the channel the App main loop drains Data/Exit events
// from. Ordering is per-terminal FIFO, not total across terminals.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) resolveShell(shell string) string {
	if shell != "" {
		return shell
	}
	if m.shell != "" {
		return m.shell
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/bash"
}

// CreateTerminal spawns a child process with a PTY in cwd and returns a
// fresh terminal id. shell may be empty to use the resolved default shell.
func (m *Manager) CreateTerminal(cwd, shell string) (string, error) {
	id := uuid.NewString()
	if err := m.spawn(id, cwd, shell); err != nil {
		return "", err
	}
	return id, nil
}

// CreateOrReconnect returns the existing session for id if one is already
// running, otherwise spawns a new one under that id. Used on workspace
// reload so previously-serialised terminal_ids remap cleanly.
func (m *Manager) CreateOrReconnect(id, cwd, shell string) (string, error) {
	if id != "" {
		m.mu.Lock()
		_, ok := m.sessions[id]
		m.mu.Unlock()
		if ok {
			return id, nil
		}
	} else {
		id = uuid.NewString()
	}
	if err := m.spawn(id, cwd, shell); err != nil {
		return "", err
	}
	return id, nil
}

// ReconnectTerminal is the Service Supervisor's stronger reconnect form: it
// always spawns a fresh session under the saved id when none is live,
// since this backend does not retain detached PTYs across process
// restarts.
func (m *Manager) ReconnectTerminal(id, cwd, shell string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return nil
	}
	return m.spawn(id, cwd, shell)
}

func (m *Manager) spawn(id, cwd, shell string) error {
	cmd := exec.Command(m.resolveShell(shell))
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	return m.spawnCmd(id, cwd, cmd)
}

// SpawnCommand runs command through the resolved shell's "-c" form under a
// fresh PTY, with extraEnv appended to the inherited environment. Used by
// the service supervisor, whose services are arbitrary shell commands
// rather than interactive shells.
func (m *Manager) SpawnCommand(id, cwd, command string, extraEnv []string) error {
	cmd := exec.Command(m.resolveShell(""), "-c", command)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), extraEnv...)
	return m.spawnCmd(id, cwd, cmd)
}

func (m *Manager) spawnCmd(id, cwd string, cmd *exec.Cmd) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return errs.PtySpawnFailed(fmt.Errorf("%s: %w", id, err))
	}

	s := &session{id: id, cwd: cwd, cmd: cmd, ptmx: ptmx, cols: 80, rows: 24}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	go m.pump(s)

	return nil
}

// Pid returns the PID of the process behind id's PTY, used by the
// service supervisor's port-detection poller.
func (m *Manager) Pid(id string) (int, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || s.cmd.Process == nil {
		return 0, false
	}
	return s.cmd.Process.Pid, true
}

// IsRunning reports whether id still has a live session.
func (m *Manager) IsRunning(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// pump reads the session's master fd until EOF or error, posting Data
// events, then posts a single Exit event and removes the session.
func (m *Manager) pump(s *session) {
	buf := make([]byte, readBufSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			m.post(Event{Kind: Data, TerminalID: s.id, Bytes: chunk})
		}
		if err != nil {
			if err != io.EOF {
				logger.Debugf("pty %s: read error: %v", s.id, err)
			}
			break
		}
	}

	exitCode := m.waitExitCode(s)

	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()

	m.post(Event{Kind: Exit, TerminalID: s.id, ExitCode: exitCode})
}

func (m *Manager) waitExitCode(s *session) *int {
	err := s.cmd.Wait()
	if s.cmd.ProcessState == nil {
		return nil
	}
	code := s.cmd.ProcessState.ExitCode()
	if err != nil && code < 0 {
		return nil
	}
	return &code
}

// post sends ev, dropping it rather than blocking forever if the consumer
// has stalled and the bounded channel is full.
func (m *Manager) post(ev Event) {
	select {
	case m.events <- ev:
	default:
		logger.Warnf("pty events channel full, dropping %v event for %s", ev.Kind, ev.TerminalID)
	}
}

// Kill sends SIGHUP to the child and closes the master fd. An Exit event
// is always eventually emitted by the pump goroutine, even if the process
// was already dead.
func (m *Manager) Kill(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return errs.TerminalNotFound(id)
	}

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(syscall.SIGHUP)
	}
	_ = s.ptmx.Close()
	return nil
}

// Write sends bytes to the terminal's PTY. Non-blocking: failures are
// logged but not surfaced, matching the spec's design — the pump will
// report Exit once the fd actually closes.
func (m *Manager) Write(id string, data []byte) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return errs.TerminalNotFound(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ptmx.Write(data); err != nil {
		s.writeErr = err
		logger.Debugf("pty %s: write error: %v", id, err)
	}
	return nil
}

// Resize applies the terminal window size ioctl.
func (m *Manager) Resize(id string, cols, rows int) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return errs.TerminalNotFound(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols, s.rows = cols, rows
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// sessionTransport adapts a single session's Write to terminal.Transport
// so the registry can Attach a Terminal directly to its PTY.
type sessionTransport struct {
	m  *Manager
	id string
}

func (t sessionTransport) Write(b []byte) error { return t.m.Write(t.id, b) }

// Transport returns a terminal.Transport bound to id, for Terminal.Attach.
func (m *Manager) Transport(id string) terminal.Transport {
	return sessionTransport{m: m, id: id}
}
