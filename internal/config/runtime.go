package config

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// RuntimeMode represents the execution environment okena was started in.
type RuntimeMode string

const (
	// DockerMode indicates running inside a Docker container.
	DockerMode RuntimeMode = "docker"
	// ContainerMode indicates running inside an Apple Container.
	ContainerMode RuntimeMode = "container"
	// NativeMode indicates running directly on the host system.
	NativeMode RuntimeMode = "native"
)

// RuntimeConfig holds the resolved paths and flags for the current
// execution environment.
type RuntimeConfig struct {
	Mode               RuntimeMode
	ConfigDir          string // workspace.json / settings.json live here
	HomeDir            string
	TempDir            string
	CurrentRepo        string // native mode: git repo okena was launched from, if any
	PortMonitorEnabled bool   // whether /proc is usable for service port detection
}

var (
	// Runtime is the global runtime configuration instance.
	Runtime *RuntimeConfig
)

func init() {
	Runtime = DetectRuntime()
}

// DetectRuntime determines the current runtime environment and returns the
// appropriate configuration.
func DetectRuntime() *RuntimeConfig {
	mode := detectMode()

	cfg := &RuntimeConfig{
		Mode: mode,
	}

	switch mode {
	case DockerMode, ContainerMode:
		cfg.ConfigDir = "/volume"
		cfg.HomeDir = "/home/okena"
		cfg.TempDir = "/tmp"
		cfg.PortMonitorEnabled = true

	case NativeMode:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = os.Getenv("HOME")
			if homeDir == "" {
				homeDir = "."
			}
		}

		cfg.ConfigDir = filepath.Join(homeDir, ".okena")
		cfg.HomeDir = homeDir
		cfg.TempDir = os.TempDir()
		cfg.PortMonitorEnabled = runtime.GOOS == "linux"

		if repoRoot := detectGitRepo(); repoRoot != "" {
			cfg.CurrentRepo = filepath.Base(repoRoot)
		}

		if err := ensureDir(cfg.ConfigDir); err != nil {
			log.Printf("warning: failed to create config directory %s: %v", cfg.ConfigDir, err)
		}
	}

	return cfg
}

// detectMode determines whether okena is running in Docker, an Apple
// Container, or natively on the host.
func detectMode() RuntimeMode {
	if containerType := os.Getenv("OKENA_CONTAINER"); containerType != "" {
		switch containerType {
		case "docker":
			return DockerMode
		case "container", "apple":
			return ContainerMode
		}
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return DockerMode
	}

	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		if strings.Contains(string(data), "docker") || strings.Contains(string(data), "containerd") {
			return DockerMode
		}
	}

	if os.Getenv("container") == "apple" {
		return ContainerMode
	}

	return NativeMode
}

// detectGitRepo checks whether okena was launched from inside a git
// repository and returns its root, if any.
func detectGitRepo() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = cwd
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(output))
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}

// GetProcPath returns the /proc path for a process, used by the service
// supervisor's port scanner. Empty when port monitoring isn't available.
func (rc *RuntimeConfig) GetProcPath(pid int, subpath string) string {
	if !rc.PortMonitorEnabled {
		return ""
	}
	return fmt.Sprintf("/proc/%d/%s", pid, subpath)
}

// IsContainerized returns true if running in Docker or an Apple Container.
func (rc *RuntimeConfig) IsContainerized() bool {
	return rc.Mode == DockerMode || rc.Mode == ContainerMode
}
