package supervisor

import (
	"sort"
	"sync"
	"time"

	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/pty"
	"github.com/okena-dev/okena/internal/workspace"
)

// Supervisor owns the set of background services declared for one
// project's okena.yaml, starting them on project load and restarting
// them on crash per each service's policy.
type Supervisor struct {
	mu       sync.Mutex
	services map[string]*Service // name -> service

	projectID   string
	projectPath string
	ws          *workspace.Workspace
	pty         *pty.Manager
}

// NewSupervisor loads projectPath/okena.yaml and builds (but does not
// start) a Service per declared entry.
func NewSupervisor(ws *workspace.Workspace, ptyMgr *pty.Manager, projectID, projectPath string) (*Supervisor, error) {
	cfg, err := LoadProjectConfig(projectPath)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		services:    make(map[string]*Service, len(cfg.Services)),
		projectID:   projectID,
		projectPath: projectPath,
		ws:          ws,
		pty:         ptyMgr,
	}
	for _, sc := range cfg.Services {
		s.services[sc.Name] = NewService(projectID, projectPath, sc, ptyMgr)
	}
	return s, nil
}

// StartAll reconnects or starts every auto_start service, preferring a
// reconnect to a previously persisted terminal id when the project has
// one recorded for that service name.
func (s *Supervisor) StartAll() {
	s.mu.Lock()
	saved := s.savedTerminalIDsLocked()
	services := make([]*Service, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc)
	}
	s.mu.Unlock()

	for _, svc := range services {
		if !svc.Config.AutoStart {
			continue
		}
		if savedID, ok := saved[svc.Config.Name]; ok && svc.Reconnect(savedID) {
			logger.Debugf("service %s/%s reconnected to %s", s.projectID, svc.Config.Name, savedID)
			continue
		}
		if err := svc.Start(s.projectPath, nil); err != nil {
			logger.Warnf("service %s/%s failed to start: %v", s.projectID, svc.Config.Name, err)
			continue
		}
		s.persistTerminalID(svc)
	}
}

func (s *Supervisor) savedTerminalIDsLocked() map[string]string {
	p, ok := s.ws.Project(s.projectID)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(p.ServiceTerminals))
	for k, v := range p.ServiceTerminals {
		out[k] = v
	}
	return out
}

func (s *Supervisor) persistTerminalID(svc *Service) {
	id := svc.TerminalID()
	if id == "" {
		return
	}
	_ = s.ws.SyncServiceTerminals(s.projectID, map[string]string{svc.Config.Name: id})
}

// Service returns the named service, if declared.
func (s *Supervisor) Service(name string) (*Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[name]
	return svc, ok
}

// ServiceStatus is one service's display row, the wire shape consumed by
// the remote services route and the status TUI.
type ServiceStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Ports []int  `json:"ports,omitempty"`
}

// Statuses returns every declared service's current display status,
// ordered by name for stable output.
func (s *Supervisor) Statuses() []ServiceStatus {
	s.mu.Lock()
	services := make([]*Service, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc)
	}
	s.mu.Unlock()

	out := make([]ServiceStatus, len(services))
	for i, svc := range services {
		out[i] = ServiceStatus{Name: svc.Config.Name, State: svc.State().String(), Ports: svc.Ports()}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names lists every declared service name.
func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	return names
}

// StopAll stops every service, e.g. on project removal.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	services := make([]*Service, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc)
	}
	s.mu.Unlock()

	for _, svc := range services {
		if err := svc.Stop(); err != nil {
			logger.Warnf("service %s/%s failed to stop: %v", s.projectID, svc.Config.Name, err)
		}
	}
}

// Restart stops, waits, and restarts the named service, resetting its
// crash-restart count.
func (s *Supervisor) Restart(name string) error {
	svc, ok := s.Service(name)
	if !ok {
		return nil
	}
	if err := svc.Restart(s.projectPath, nil); err != nil {
		return err
	}
	s.persistTerminalID(svc)
	return nil
}

// HandleExit is invoked by the owning App when the pty manager reports an
// Exit event for a terminal id backing one of this project's services. It
// applies the crash-restart policy and, if a restart was scheduled,
// arranges for it to run after the configured delay.
func (s *Supervisor) HandleExit(terminalID string, exitCode *int) {
	svc := s.serviceByTerminalID(terminalID)
	if svc == nil {
		return
	}

	restart, delay := svc.HandleExit(s.projectPath, exitCode)
	if restart == nil {
		return
	}
	go func() {
		time.Sleep(delay)
		restart()
		s.persistTerminalID(svc)
	}()
}

func (s *Supervisor) serviceByTerminalID(terminalID string) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.TerminalID() == terminalID {
			return svc
		}
	}
	return nil
}
