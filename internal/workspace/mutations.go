package workspace

import (
	"github.com/google/uuid"

	"github.com/okena-dev/okena/internal/errs"
)

func (w *Workspace) project(id string) (*Project, error) {
	p, ok := w.projects[id]
	if !ok {
		return nil, errs.InvalidLayoutPath(Path{})
	}
	return p, nil
}

func setAt(project *Project, path Path, newNode *Layout) error {
	if len(path) == 0 {
		project.Layout = newNode
		return nil
	}
	parent, idx, err := resolveParent(project.Layout, path)
	if err != nil {
		return err
	}
	parent.Children[idx] = newNode
	return nil
}

// ---- Layout edits ----

// SplitTerminal splits the leaf at path into a Split{direction} of that
// leaf and a freshly created uninitialized sibling leaf, returning the
// new sibling's path.
func (w *Workspace) SplitTerminal(projectID string, path Path, direction Direction) (Path, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return nil, err
	}
	node, err := resolve(p.Layout, path)
	if err != nil {
		return nil, err
	}
	if node.Kind != KindTerminal {
		return nil, errs.InvalidLayoutPath(path)
	}

	sibling := NewTerminalLeaf(node.ShellType)
	split := &Layout{
		Kind:      KindSplit,
		Direction: direction,
		Sizes:     []float64{50, 50},
		Children:  []*Layout{node, sibling},
	}
	if err := setAt(p, path, split); err != nil {
		return nil, err
	}

	w.bumpDataVersion()
	return append(path.Clone(), 1), nil
}

// AddTab converts the leaf at path into a Tabs node containing the
// original leaf and a fresh uninitialized sibling, focused on the new tab.
func (w *Workspace) AddTab(projectID string, path Path) (Path, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return nil, err
	}
	node, err := resolve(p.Layout, path)
	if err != nil {
		return nil, err
	}

	sibling := NewTerminalLeaf(node.ShellType)
	tabs := &Layout{
		Kind:      KindTabs,
		Children:  []*Layout{node, sibling},
		ActiveTab: 1,
	}
	if err := setAt(p, path, tabs); err != nil {
		return nil, err
	}

	w.bumpDataVersion()
	return append(path.Clone(), 1), nil
}

// AddTabToGroup appends a fresh uninitialized leaf to the Tabs node at
// groupPath and focuses it.
func (w *Workspace) AddTabToGroup(projectID string, groupPath Path) (Path, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return nil, err
	}
	node, err := resolve(p.Layout, groupPath)
	if err != nil {
		return nil, err
	}
	if node.Kind != KindTabs {
		return nil, errs.InvalidLayoutPath(groupPath)
	}

	node.Children = append(node.Children, NewTerminalLeaf(""))
	node.ActiveTab = len(node.Children) - 1

	w.bumpDataVersion()
	return append(groupPath.Clone(), node.ActiveTab), nil
}

// removeLeafAt removes the Terminal leaf at path from its parent,
// collapsing the parent if it drops to a single remaining child. Returns
// the removed leaf's terminal_id, if it had one.
func removeLeafAt(p *Project, path Path) (*string, error) {
	leaf, err := resolve(p.Layout, path)
	if err != nil {
		return nil, err
	}
	if leaf.Kind != KindTerminal {
		return nil, errs.InvalidLayoutPath(path)
	}
	removedID := leaf.TerminalID

	if len(path) == 0 {
		// Closing the sole root terminal leaves the project bookmarked.
		p.Layout = nil
		return removedID, nil
	}

	parentPath := path[:len(path)-1]
	parent, err := resolve(p.Layout, parentPath)
	if err != nil {
		return nil, err
	}
	idx := path[len(path)-1]

	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	if len(parent.Sizes) > idx {
		parent.Sizes = append(parent.Sizes[:idx], parent.Sizes[idx+1:]...)
	}

	switch parent.Kind {
	case KindSplit:
		if len(parent.Children) == 1 {
			if err := setAt(p, parentPath, parent.Children[0]); err != nil {
				return nil, err
			}
		} else {
			parent.Sizes = normalizeSizes(parent.Sizes)
		}
	case KindTabs:
		if parent.ActiveTab >= len(parent.Children) {
			parent.ActiveTab = len(parent.Children) - 1
		}
		if parent.ActiveTab < 0 {
			parent.ActiveTab = 0
		}
		if len(parent.Children) == 1 {
			if err := setAt(p, parentPath, parent.Children[0]); err != nil {
				return nil, err
			}
		}
	}

	return removedID, nil
}

// CloseTerminal removes the terminal leaf at path, collapsing its parent
// per the close-collapse rules, and moves focus off the closed leaf if it
// was focused.
func (w *Workspace) CloseTerminal(projectID string, path Path) (*string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return nil, err
	}

	wasFocused := w.focusedTerminal != nil &&
		w.focusedTerminal.ProjectID == projectID &&
		w.focusedTerminal.Path.Equal(path)

	removedID, err := removeLeafAt(p, path)
	if err != nil {
		return nil, err
	}

	if wasFocused {
		w.refocusAfterClose(projectID, p)
	}

	w.bumpDataVersion()
	return removedID, nil
}

// refocusAfterClose moves focus to the project root, or clears it if the
// project no longer owns any layout. Must be called with mu held.
func (w *Workspace) refocusAfterClose(projectID string, p *Project) {
	if p.Layout == nil {
		w.focusedTerminal = nil
		return
	}
	w.focusedTerminal = &FocusedTerminal{ProjectID: projectID, Path: Path{}}
}

// CloseTab closes the child at tabIndex within the Tabs node at groupPath.
func (w *Workspace) CloseTab(projectID string, groupPath Path, tabIndex int) (*string, error) {
	return w.CloseTerminal(projectID, append(groupPath.Clone(), tabIndex))
}

// CloseOtherTabs removes every child of the Tabs node at groupPath except
// keepIndex.
func (w *Workspace) CloseOtherTabs(projectID string, groupPath Path, keepIndex int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, groupPath)
	if err != nil {
		return err
	}
	if node.Kind != KindTabs || keepIndex < 0 || keepIndex >= len(node.Children) {
		return errs.InvalidLayoutPath(groupPath)
	}

	kept := node.Children[keepIndex]
	if err := setAt(p, groupPath, kept); err != nil {
		return err
	}

	w.bumpDataVersion()
	return nil
}

// CloseTabsToRight removes every child of the Tabs node at groupPath with
// index greater than fromIndex.
func (w *Workspace) CloseTabsToRight(projectID string, groupPath Path, fromIndex int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, groupPath)
	if err != nil {
		return err
	}
	if node.Kind != KindTabs || fromIndex < 0 || fromIndex >= len(node.Children) {
		return errs.InvalidLayoutPath(groupPath)
	}

	node.Children = node.Children[:fromIndex+1]
	if node.ActiveTab > fromIndex {
		node.ActiveTab = fromIndex
	}
	if len(node.Children) == 1 {
		if err := setAt(p, groupPath, node.Children[0]); err != nil {
			return err
		}
	}

	w.bumpDataVersion()
	return nil
}

// MoveTab reorders the Tabs node at groupPath, moving the child at from to
// index to. The tab that was active before the move stays active.
func (w *Workspace) MoveTab(projectID string, groupPath Path, from, to int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, groupPath)
	if err != nil {
		return err
	}
	if node.Kind != KindTabs || from < 0 || from >= len(node.Children) || to < 0 || to >= len(node.Children) {
		return errs.InvalidLayoutPath(groupPath)
	}

	activeChild := node.Children[node.ActiveTab]

	child := node.Children[from]
	node.Children = append(node.Children[:from], node.Children[from+1:]...)
	node.Children = append(node.Children[:to], append([]*Layout{child}, node.Children[to:]...)...)

	for i, c := range node.Children {
		if c == activeChild {
			node.ActiveTab = i
			break
		}
	}

	w.bumpDataVersion()
	return nil
}

// UpdateSplitSizes sets the Split node at path's sizes, re-normalising to
// sum to 100.
func (w *Workspace) UpdateSplitSizes(projectID string, path Path, sizes []float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, path)
	if err != nil {
		return err
	}
	if node.Kind != KindSplit || len(sizes) != len(node.Children) {
		return errs.InvalidLayoutPath(path)
	}

	node.Sizes = normalizeSizes(sizes)

	w.bumpDataVersion()
	return nil
}

// SetActiveTab sets the active child index of the Tabs node at groupPath.
func (w *Workspace) SetActiveTab(projectID string, groupPath Path, index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, groupPath)
	if err != nil {
		return err
	}
	if node.Kind != KindTabs || index < 0 || index >= len(node.Children) {
		return errs.InvalidLayoutPath(groupPath)
	}

	node.ActiveTab = index

	w.notifyOnly()
	return nil
}

// ---- Terminal leaf mutations ----

// SetTerminalID fills in a just-spawned PTY's id on an uninitialized leaf.
func (w *Workspace) SetTerminalID(projectID string, path Path, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, path)
	if err != nil {
		return err
	}
	if node.Kind != KindTerminal {
		return errs.InvalidLayoutPath(path)
	}

	node.TerminalID = &id

	w.bumpDataVersion()
	return nil
}

// SetTerminalShell records the shell_type used to spawn a leaf's PTY.
func (w *Workspace) SetTerminalShell(projectID string, path Path, shell string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, path)
	if err != nil {
		return err
	}
	if node.Kind != KindTerminal {
		return errs.InvalidLayoutPath(path)
	}

	node.ShellType = shell

	w.bumpDataVersion()
	return nil
}

// ToggleTerminalMinimized flips a leaf's minimized display flag.
func (w *Workspace) ToggleTerminalMinimized(projectID string, path Path) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, path)
	if err != nil {
		return err
	}
	if node.Kind != KindTerminal {
		return errs.InvalidLayoutPath(path)
	}

	node.Minimized = !node.Minimized

	w.bumpDataVersion()
	return nil
}

// DetachTerminal marks a leaf detached, moving it to a separate render
// surface. It stays in the layout tree (so re-attach has somewhere to put
// it back) but is tracked in the workspace-level detached set too.
func (w *Workspace) DetachTerminal(projectID string, path Path) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	node, err := resolve(p.Layout, path)
	if err != nil {
		return err
	}
	if node.Kind != KindTerminal {
		return errs.InvalidLayoutPath(path)
	}

	node.Detached = true
	if node.TerminalID != nil {
		w.detached[*node.TerminalID] = true
	}

	w.bumpDataVersion()
	return nil
}

// AttachTerminal re-attaches a previously detached terminal, searching
// every project for the leaf that owns terminalID.
func (w *Workspace) AttachTerminal(terminalID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.projects {
		if path, ok := findTerminalPath(p.Layout, terminalID); ok {
			node, err := resolve(p.Layout, path)
			if err != nil {
				return err
			}
			node.Detached = false
			delete(w.detached, terminalID)
			w.bumpDataVersion()
			return nil
		}
	}
	return errs.TerminalNotFound(terminalID)
}

// ---- Project-level ----

// AddProject creates a new project, optionally with a single uninitialized
// root Terminal leaf, and returns its id.
func (w *Workspace) AddProject(name, path string, withTerminal bool) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := uuid.NewString()
	p := newProject(id, name, path)
	if withTerminal {
		p.Layout = NewTerminalLeaf("")
	}

	w.projects[id] = p
	w.projectOrder = append(w.projectOrder, id)

	w.bumpDataVersion()
	return id
}

// DeleteProject removes a project and every terminal_id it owned.
func (w *Workspace) DeleteProject(id string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(id)
	if err != nil {
		return nil, err
	}
	ids := collectTerminalIDs(p.Layout)

	delete(w.projects, id)
	for i, pid := range w.projectOrder {
		if pid == id {
			w.projectOrder = append(w.projectOrder[:i], w.projectOrder[i+1:]...)
			break
		}
	}
	if w.focusedProjectID != nil && *w.focusedProjectID == id {
		w.focusedProjectID = nil
	}

	w.bumpDataVersion()
	return ids, nil
}

// MoveProject relocates project id to newIndex within project_order.
func (w *Workspace) MoveProject(id string, newIndex int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.project(id); err != nil {
		return err
	}

	idx := -1
	for i, pid := range w.projectOrder {
		if pid == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return errs.InvalidLayoutPath(Path{})
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(w.projectOrder) {
		newIndex = len(w.projectOrder) - 1
	}

	w.projectOrder = append(w.projectOrder[:idx], w.projectOrder[idx+1:]...)
	tail := append([]string{id}, w.projectOrder[newIndex:]...)
	w.projectOrder = append(w.projectOrder[:newIndex], tail...)

	w.bumpDataVersion()
	return nil
}

// ToggleProjectVisibility flips a project's sidebar visibility.
func (w *Workspace) ToggleProjectVisibility(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(id)
	if err != nil {
		return err
	}
	p.IsVisible = !p.IsVisible

	w.bumpDataVersion()
	return nil
}

// RenameProject sets a project's display name.
func (w *Workspace) RenameProject(id, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(id)
	if err != nil {
		return err
	}
	p.Name = name

	w.bumpDataVersion()
	return nil
}

// StartTerminal ensures a bookmark project gains a root Terminal leaf so
// the action dispatcher's lazy PTY pass has something to materialise.
func (w *Workspace) StartTerminal(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(id)
	if err != nil {
		return err
	}
	if p.Layout == nil {
		p.Layout = NewTerminalLeaf("")
		w.bumpDataVersion()
	}
	return nil
}

// RenameTerminal sets a terminal's custom display name, overriding the
// shell-derived default shown in tab/split titles.
func (w *Workspace) RenameTerminal(projectID, terminalID, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	if p.CustomNames == nil {
		p.CustomNames = make(map[string]string)
	}
	p.CustomNames[terminalID] = name

	w.bumpDataVersion()
	return nil
}

// ---- Service integration ----

// SyncServiceTerminals merges the supervisor's service_name -> terminal_id
// map into the project's persisted record, used for reconnection after
// restart.
func (w *Workspace) SyncServiceTerminals(projectID string, serviceTerminals map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	for name, id := range serviceTerminals {
		p.ServiceTerminals[name] = id
	}

	w.bumpDataVersion()
	return nil
}

// ---- Path resolution ----

// FindTerminalPath walks projectID's layout looking for terminalID.
func (w *Workspace) FindTerminalPath(projectID, terminalID string) (Path, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return nil, false, err
	}
	path, ok := findTerminalPath(p.Layout, terminalID)
	return path, ok, nil
}

// FindTerminalPathAnyProject searches every project for terminalID,
// returning the owning project id and path.
func (w *Workspace) FindTerminalPathAnyProject(terminalID string) (projectID string, path Path, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, pid := range w.projectOrder {
		p := w.projects[pid]
		if path, ok := findTerminalPath(p.Layout, terminalID); ok {
			return pid, path, true
		}
	}
	return "", nil, false
}

// LeafShellType returns the shell_type recorded on the Terminal leaf at
// path, used by the action dispatcher when it needs to (re)spawn a PTY
// for an existing leaf.
func (w *Workspace) LeafShellType(projectID string, path Path) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return "", err
	}
	node, err := resolve(p.Layout, path)
	if err != nil {
		return "", err
	}
	if node.Kind != KindTerminal {
		return "", errs.InvalidLayoutPath(path)
	}
	return node.ShellType, nil
}

// UninitializedTerminals returns the paths of every Terminal leaf in
// projectID awaiting PTY materialisation.
func (w *Workspace) UninitializedTerminals(projectID string) ([]Path, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return nil, err
	}
	return collectUninitializedTerminals(p.Layout), nil
}

// Snapshot returns project order and a shallow copy of the projects map
// for read-only consumers (persistence, remote state responses).
func (w *Workspace) Snapshot() (order []string, projects map[string]*Project) {
	w.mu.Lock()
	defer w.mu.Unlock()

	order = make([]string, len(w.projectOrder))
	copy(order, w.projectOrder)
	projects = make(map[string]*Project, len(w.projects))
	for id, p := range w.projects {
		projects[id] = p
	}
	return order, projects
}
