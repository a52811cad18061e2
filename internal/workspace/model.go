// Package workspace is the single source of truth: projects, their
// recursive layout trees, focus and fullscreen state, and the monotonic
// versions the persistence and remote-state layers key off of. Every
// mutation is a method on *Workspace; nothing outside this package ever
// edits a Project or Layout directly.
package workspace

import "sync"

// Direction is a Split node's split axis.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// LayoutKind discriminates the Layout union.
type LayoutKind string

const (
	KindTerminal LayoutKind = "terminal"
	KindSplit    LayoutKind = "split"
	KindTabs     LayoutKind = "tabs"
)

// Path is a layout path: child indices from a project's root. An empty
// path denotes the root itself.
type Path []int

// Clone returns a copy of p so callers can retain a path across mutations
// that might otherwise alias a caller-owned slice.
func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// Equal reports whether p and other name the same path.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Layout is a recursive layout tree node: a Terminal leaf, or a Split/Tabs
// interior node. Only the fields relevant to Kind are meaningful.
type Layout struct {
	Kind LayoutKind

	// Terminal fields.
	TerminalID *string
	ShellType  string
	Minimized  bool
	Detached   bool

	// Split fields.
	Direction Direction
	Sizes     []float64

	// Tabs fields.
	ActiveTab int

	// Split/Tabs shared field.
	Children []*Layout
}

// NewTerminalLeaf creates an uninitialized Terminal leaf (terminal_id is
// nil until a PTY is spawned for it by the action dispatcher).
func NewTerminalLeaf(shellType string) *Layout {
	return &Layout{Kind: KindTerminal, ShellType: shellType}
}

// WorktreeInfo records where a project's worktree was checked out from.
type WorktreeInfo struct {
	MainRepoPath string
	Branch       string
}

// Project is one sidebar entry: a name, a filesystem path, and optionally
// a Layout. A Project with a nil Layout is a bookmark — it owns no
// terminals.
type Project struct {
	ID        string
	Name      string
	Path      string
	IsRemote  bool
	IsVisible bool
	Layout    *Layout

	CustomNames      map[string]string // terminal_id -> display name
	ServiceTerminals map[string]string // service name -> terminal_id

	Worktree *WorktreeInfo
}

func newProject(id, name, path string) *Project {
	return &Project{
		ID:               id,
		Name:             name,
		Path:             path,
		IsVisible:        true,
		CustomNames:      make(map[string]string),
		ServiceTerminals: make(map[string]string),
	}
}

// FocusedTerminal addresses a terminal leaf by project and layout path.
type FocusedTerminal struct {
	ProjectID string
	Path      Path
}

// FullscreenTerminal addresses the one terminal, if any, rendered
// fullscreen across the whole window.
type FullscreenTerminal struct {
	ProjectID  string
	TerminalID string
}

// Workspace is the top-level aggregate: every project, the focus and
// fullscreen state, and the two monotonic counters (DataVersion for
// persistable changes, the notify channel for UI-only changes) described
// in the data model. All access goes through the exported methods, which
// take mu internally.
type Workspace struct {
	mu sync.Mutex

	projects     map[string]*Project
	projectOrder []string

	focusedProjectID *string
	focusedTerminal  *FocusedTerminal
	priorFocused     *FocusedTerminal // for restore_focused_terminal
	fullscreen       *FullscreenTerminal
	detached         map[string]bool

	dataVersion uint64
	observers   []*observer
	nextObsID   uint64
}

// New creates an empty Workspace.
func New() *Workspace {
	return &Workspace{
		projects: make(map[string]*Project),
		detached: make(map[string]bool),
	}
}

// DataVersion returns the current persistable-state version.
func (w *Workspace) DataVersion() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dataVersion
}
