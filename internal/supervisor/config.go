// Package supervisor spawns and supervises project-scoped background
// processes described by an okena.yaml file, grounded on the service
// state machine in original_source/src/services/manager.rs and on the
// teacher's port_monitor.go for port-detection polling style.
package supervisor

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/okena-dev/okena/internal/errs"
)

// ServiceConfig describes one project-scoped background process.
type ServiceConfig struct {
	Name           string            `yaml:"name"`
	Command        string            `yaml:"command"`
	Cwd            string            `yaml:"cwd"`
	Env            map[string]string `yaml:"env"`
	AutoStart      bool              `yaml:"auto_start"`
	RestartOnCrash bool              `yaml:"restart_on_crash"`
	RestartDelayMs int               `yaml:"restart_delay_ms"`
}

// ProjectConfig is the parsed shape of okena.yaml.
type ProjectConfig struct {
	Services []ServiceConfig `yaml:"services"`
}

// configFileName is the per-project config file name, read from the
// project's root directory.
const configFileName = "okena.yaml"

// LoadProjectConfig reads and parses projectPath/okena.yaml. A missing
// file is not an error: it simply means the project declares no services.
func LoadProjectConfig(projectPath string) (*ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(projectPath, configFileName))
	if os.IsNotExist(err) {
		return &ProjectConfig{}, nil
	}
	if err != nil {
		return nil, errs.ConfigParseError(configFileName, err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.ConfigParseError(configFileName, err)
	}
	return &cfg, nil
}
