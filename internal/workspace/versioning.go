package workspace

// Restore replaces the workspace's project set wholesale, used once at
// startup by the persistence loader. It does not bump DataVersion — the
// loaded value becomes the baseline.
func (w *Workspace) Restore(order []string, projects map[string]*Project, focusedProjectID *string, dataVersion uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.projectOrder = order
	w.projects = projects
	w.focusedProjectID = focusedProjectID
	w.dataVersion = dataVersion
}

// Project returns a project by id for read-only callers (persistence,
// remote state serialisation) outside the package.
func (w *Workspace) Project(id string) (*Project, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.projects[id]
	return p, ok
}
