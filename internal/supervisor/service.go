package supervisor

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/pty"
)

// State is one service instance's lifecycle state.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Crashed
	RestartingState
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Crashed:
		return "crashed"
	case RestartingState:
		return "restarting"
	default:
		return "unknown"
	}
}

// MaxRestartCount caps automatic crash-restarts before a service is left
// Crashed for an operator to restart by hand.
const MaxRestartCount = 5

const (
	portPollInitialDelay = 2 * time.Second
	portPollInterval     = 2 * time.Second
	portPollAttempts     = 5
	killWaitTimeout       = 5 * time.Second
)

// Service is one running (or stopped) project-scoped background process.
type Service struct {
	mu sync.Mutex

	Config    ServiceConfig
	ProjectID string

	state        State
	terminalID   string
	exitCode     *int
	restartCount int
	ports        []int

	pty *pty.Manager
}

// NewService creates a Service bound to cfg, not yet started.
func NewService(projectID, projectPath string, cfg ServiceConfig, ptyMgr *pty.Manager) *Service {
	_ = projectPath
	return &Service{Config: cfg, ProjectID: projectID, state: Stopped, pty: ptyMgr}
}

// State returns the service's current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TerminalID returns the PTY terminal id backing the running service, if any.
func (s *Service) TerminalID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminalID
}

// Ports returns the most recently detected listening ports.
func (s *Service) Ports() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.ports))
	copy(out, s.ports)
	return out
}

// Start spawns the service's command under a fresh PTY if currently
// Stopped, Crashed or Restarting. The onExit argument is not called;
// process exits reach the service through Supervisor.HandleExit.
func (s *Service) Start(projectPath string, onExit func(exitCode *int)) error {
	s.mu.Lock()
	if s.state != Stopped && s.state != Crashed && s.state != RestartingState {
		s.mu.Unlock()
		return nil
	}
	s.state = Starting
	cwd := projectPath
	if s.Config.Cwd != "" {
		cwd = filepath.Join(projectPath, s.Config.Cwd)
	}
	env := make([]string, 0, len(s.Config.Env))
	for k, v := range s.Config.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	s.mu.Unlock()

	id := s.terminalID
	if id == "" {
		id = fmt.Sprintf("%s:%s", s.ProjectID, s.Config.Name)
	}

	if err := s.pty.SpawnCommand(id, cwd, s.Config.Command, env); err != nil {
		s.mu.Lock()
		s.state = Crashed
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.terminalID = id
	s.state = Running
	s.mu.Unlock()

	go s.pollPorts()
	return nil
}

// Reconnect attempts to adopt an already-live PTY session under
// savedTerminalID (e.g. after the supervising process restarted but the
// child survived, or a prior run's id is still tracked). On success the
// service goes straight to Running; on failure the caller should fall
// through to a normal Start.
func (s *Service) Reconnect(savedTerminalID string) bool {
	if !s.pty.IsRunning(savedTerminalID) {
		return false
	}
	s.mu.Lock()
	s.terminalID = savedTerminalID
	s.state = Running
	s.mu.Unlock()
	go s.pollPorts()
	return true
}

// Stop kills the PTY and resets restart bookkeeping.
func (s *Service) Stop() error {
	s.mu.Lock()
	id := s.terminalID
	s.mu.Unlock()

	if id != "" {
		if err := s.pty.Kill(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state = Stopped
	s.restartCount = 0
	s.terminalID = ""
	s.mu.Unlock()
	return nil
}

// Restart kills the process, waits briefly for it to die, then starts a
// fresh one.
func (s *Service) Restart(projectPath string, onExit func(exitCode *int)) error {
	s.mu.Lock()
	id := s.terminalID
	s.mu.Unlock()

	if id != "" {
		_ = s.pty.Kill(id)
		deadline := time.Now().Add(killWaitTimeout)
		for time.Now().Before(deadline) {
			if !s.pty.IsRunning(id) {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	s.mu.Lock()
	s.state = Stopped
	s.terminalID = ""
	s.restartCount = 0
	s.mu.Unlock()

	return s.Start(projectPath, onExit)
}

// HandleExit applies the crash-restart policy: restart if configured and
// under the cap, else transition to Crashed. Returns a function the
// caller should invoke after restartDelayMs to actually restart, or nil
// if no restart will happen.
func (s *Service) HandleExit(projectPath string, exitCode *int) (restartAfter func(), delay time.Duration) {
	s.mu.Lock()
	s.exitCode = exitCode
	s.terminalID = ""

	if !s.Config.RestartOnCrash || s.restartCount >= MaxRestartCount {
		s.state = Crashed
		s.mu.Unlock()
		logger.Warnf("service %s/%s exited (code=%v), not restarting", s.ProjectID, s.Config.Name, exitCode)
		return nil, 0
	}

	s.restartCount++
	s.state = RestartingState
	delayMs := s.Config.RestartDelayMs
	s.mu.Unlock()

	if delayMs <= 0 {
		delayMs = 1000
	}
	return func() {
		_ = s.Start(projectPath, nil)
	}, time.Duration(delayMs) * time.Millisecond
}

// pollPorts polls the backing process for newly listening TCP ports:
// an initial delay, then a fixed number of follow-up polls, matching the
// 2s/5-attempt cadence the teacher's port monitor uses for freshly
// spawned processes.
func (s *Service) pollPorts() {
	s.mu.Lock()
	id := s.terminalID
	s.mu.Unlock()

	pid, ok := s.pty.Pid(id)
	if !ok {
		return
	}

	time.Sleep(portPollInitialDelay)
	for i := 0; i < portPollAttempts; i++ {
		if ports := detectListeningPorts(pid); len(ports) > 0 {
			s.mu.Lock()
			s.ports = ports
			s.mu.Unlock()
			return
		}
		time.Sleep(portPollInterval)
	}
}

