package workspace

import "github.com/okena-dev/okena/internal/errs"

// SetFocusedProject sets or clears (nil) the focused project.
func (w *Workspace) SetFocusedProject(id *string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focusedProjectID = id
	w.notifyOnly()
}

// FocusedProject returns the currently focused project id, if any.
func (w *Workspace) FocusedProject() *string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focusedProjectID
}

// SetFocusedTerminal focuses the leaf at path within projectID.
func (w *Workspace) SetFocusedTerminal(projectID string, path Path) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	if _, err := resolve(p.Layout, path); err != nil {
		return err
	}

	w.focusedTerminal = &FocusedTerminal{ProjectID: projectID, Path: path.Clone()}
	w.focusedProjectID = &projectID

	w.notifyOnly()
	return nil
}

// FocusedTerminal returns the currently focused terminal addressing, if
// any.
func (w *Workspace) FocusedTerminal() *FocusedTerminal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focusedTerminal
}

// ClearFocusedTerminal clears terminal focus, saving it as the "prior"
// focus so a subsequent RestoreFocusedTerminal (used when a modal
// opens/closes) can put it back.
func (w *Workspace) ClearFocusedTerminal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.priorFocused = w.focusedTerminal
	w.focusedTerminal = nil
	w.notifyOnly()
}

// RestoreFocusedTerminal restores the focus saved by the most recent
// ClearFocusedTerminal call, if the addressed leaf still exists.
func (w *Workspace) RestoreFocusedTerminal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.priorFocused == nil {
		return
	}
	if p, ok := w.projects[w.priorFocused.ProjectID]; ok {
		if _, err := resolve(p.Layout, w.priorFocused.Path); err == nil {
			w.focusedTerminal = w.priorFocused
		}
	}
	w.priorFocused = nil
	w.notifyOnly()
}

// SetFullscreenTerminal fullscreens terminalID within projectID. The
// terminal must currently be a live leaf in that project's layout.
func (w *Workspace) SetFullscreenTerminal(projectID, terminalID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.project(projectID)
	if err != nil {
		return err
	}
	if _, ok := findTerminalPath(p.Layout, terminalID); !ok {
		return errs.TerminalNotFound(terminalID)
	}

	w.fullscreen = &FullscreenTerminal{ProjectID: projectID, TerminalID: terminalID}
	w.notifyOnly()
	return nil
}

// ClearFullscreen exits terminal or project fullscreen.
func (w *Workspace) ClearFullscreen() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fullscreen = nil
	w.notifyOnly()
}

// Fullscreen returns the current fullscreen terminal addressing, if any.
func (w *Workspace) Fullscreen() *FullscreenTerminal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullscreen
}

// FullscreenProject fullscreens every terminal of projectID as a single
// maximised project view (no single terminal_id is distinguished).
func (w *Workspace) FullscreenProject(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.project(id); err != nil {
		return err
	}
	w.fullscreen = &FullscreenTerminal{ProjectID: id}
	w.notifyOnly()
	return nil
}
