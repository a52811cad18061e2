// Package persistence loads and atomically saves the two on-disk files
// (workspace.json, settings.json) described in the external interfaces,
// following the atomic-temp-file-then-rename pattern the teacher used for
// its own per-session state files.
package persistence

import "github.com/okena-dev/okena/internal/workspace"

// SchemaVersion is written to every persisted file. A file whose
// schema_version is newer than this binary understands is rejected and
// the caller falls back to defaults, rather than risking a partial parse.
const SchemaVersion = 1

// WorkspaceFile is the on-disk shape of workspace.json.
type WorkspaceFile struct {
	SchemaVersion    int                           `json:"schema_version"`
	DataVersion      uint64                        `json:"data_version"`
	ProjectOrder     []string                      `json:"project_order"`
	Projects         map[string]*workspace.Project `json:"projects"`
	FocusedProjectID *string                       `json:"focused_project_id,omitempty"`
}

// RemoteConnectionConfig is one saved remote-server connection, including
// its bearer token and when it was obtained. No code in this repository
// refreshes a saved token; the token is reused until the server rejects it.
type RemoteConnectionConfig struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Host            string  `json:"host"`
	Port            int     `json:"port"`
	SavedToken      *string `json:"saved_token,omitempty"`
	TokenObtainedAt *int64  `json:"token_obtained_at,omitempty"` // unix seconds
}

// SettingsFile is the on-disk shape of settings.json: UI preferences,
// saved remote connections, and service-worktree defaults.
type SettingsFile struct {
	SchemaVersion      int                      `json:"schema_version"`
	Theme              string                   `json:"theme,omitempty"`
	RemoteConnections  []RemoteConnectionConfig `json:"remote_connections,omitempty"`
	DefaultShell       string                   `json:"default_shell,omitempty"`
	WorktreeAutoCreate bool                     `json:"worktree_auto_create"`
}

func defaultWorkspaceFile() *WorkspaceFile {
	return &WorkspaceFile{
		SchemaVersion: SchemaVersion,
		ProjectOrder:  []string{},
		Projects:      map[string]*workspace.Project{},
	}
}

func defaultSettingsFile() *SettingsFile {
	return &SettingsFile{SchemaVersion: SchemaVersion}
}
