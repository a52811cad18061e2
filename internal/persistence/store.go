package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okena-dev/okena/internal/errs"
	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/workspace"
)

// debounceWindow is how long the Store waits after the last ScheduleSave
// call before actually writing workspace.json.
const debounceWindow = 500 * time.Millisecond

const (
	workspaceFileName = "workspace.json"
	settingsFileName  = "settings.json"
)

// Store persists workspace.json and settings.json under a config
// directory, coalescing bursts of mutations into a single debounced
// write the way the teacher's SaveSessionState wrote one atomic file per
// session rather than one write per field change.
type Store struct {
	dir string

	mu          sync.Mutex
	timer       *time.Timer
	pending     *WorkspaceFile
	savePending bool
}

// NewStore creates a Store rooted at dir, creating dir if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.PersistenceFailed(err)
	}
	return &Store{dir: dir}, nil
}

// LoadWorkspace reads workspace.json, returning defaults if the file is
// absent or its schema_version is from the future (unknown to this
// binary).
func (s *Store) LoadWorkspace() (*WorkspaceFile, error) {
	path := filepath.Join(s.dir, workspaceFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultWorkspaceFile(), nil
		}
		return nil, errs.PersistenceFailed(err)
	}

	var wf WorkspaceFile
	if err := json.Unmarshal(data, &wf); err != nil {
		logger.Warnf("workspace.json failed to parse, falling back to defaults: %v", err)
		return defaultWorkspaceFile(), nil
	}
	if wf.SchemaVersion > SchemaVersion {
		logger.Warnf("workspace.json schema_version %d is newer than %d, falling back to defaults", wf.SchemaVersion, SchemaVersion)
		return defaultWorkspaceFile(), nil
	}
	if wf.Projects == nil {
		wf.Projects = map[string]*workspace.Project{}
	}
	return &wf, nil
}

// SaveWorkspaceNow writes wf to workspace.json immediately via
// temp-file-then-rename, bypassing the debounce window. Used at shutdown.
func (s *Store) SaveWorkspaceNow(wf *WorkspaceFile) error {
	wf.SchemaVersion = SchemaVersion
	return s.atomicWriteJSON(workspaceFileName, wf)
}

// ScheduleSave records wf as the pending snapshot and (re)starts the
// debounce timer. If 500ms elapse without another ScheduleSave call, wf is
// written. Each call supersedes the previously scheduled snapshot so only
// the latest data_version is ever written.
func (s *Store) ScheduleSave(wf *WorkspaceFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = wf
	s.savePending = true

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceWindow, s.flush)
}

func (s *Store) flush() {
	s.mu.Lock()
	wf := s.pending
	pending := s.savePending
	s.savePending = false
	s.mu.Unlock()

	if !pending || wf == nil {
		return
	}
	if err := s.SaveWorkspaceNow(wf); err != nil {
		// data_version of the last saved copy is not advanced on failure,
		// so the next ScheduleSave call retries.
		logger.Errorf("failed to save workspace.json: %v", err)
		s.mu.Lock()
		s.pending = wf
		s.savePending = true
		s.mu.Unlock()
	}
}

// Flush forces any pending debounced save to happen immediately instead of
// waiting out the debounce window; it does nothing if no save is pending.
func (s *Store) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.flush()
}

// LoadSettings reads settings.json, returning defaults if absent or from
// an unknown future schema.
func (s *Store) LoadSettings() (*SettingsFile, error) {
	path := filepath.Join(s.dir, settingsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettingsFile(), nil
		}
		return nil, errs.PersistenceFailed(err)
	}

	var sf SettingsFile
	if err := json.Unmarshal(data, &sf); err != nil {
		logger.Warnf("settings.json failed to parse, falling back to defaults: %v", err)
		return defaultSettingsFile(), nil
	}
	if sf.SchemaVersion > SchemaVersion {
		return defaultSettingsFile(), nil
	}
	return &sf, nil
}

// SaveSettings writes sf to settings.json immediately; settings changes
// (pairing a new remote connection, theme) are infrequent enough not to
// need debouncing.
func (s *Store) SaveSettings(sf *SettingsFile) error {
	sf.SchemaVersion = SchemaVersion
	return s.atomicWriteJSON(settingsFileName, sf)
}

// atomicWriteJSON marshals v and writes it to name under s.dir via a
// temp file in the same directory followed by a rename, so a reader never
// observes a partially-written file.
func (s *Store) atomicWriteJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.PersistenceFailed(err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return errs.PersistenceFailed(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.PersistenceFailed(err)
	}
	if err := tmp.Close(); err != nil {
		return errs.PersistenceFailed(err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return errs.PersistenceFailed(err)
	}
	return nil
}
