// Package actions is the single authoritative mutation entry point: local
// UI handlers, the remote bridge, detached-window views, and programmatic
// callers (auto-start hooks, tests) all call Execute instead of touching
// the workspace directly. Grounded directly on the original execute_action
// dispatch this spec was distilled from, reimplemented without an actor
// context object: a *Dispatcher holds the workspace/pty/registry handles a
// gpui::Context would have carried.
package actions

import "github.com/okena-dev/okena/internal/workspace"

// Kind discriminates the ActionRequest union. Values match the wire
// protocol's "type" discriminant.
type Kind string

const (
	CreateTerminal   Kind = "create_terminal"
	SplitTerminal    Kind = "split_terminal"
	CloseTerminal    Kind = "close_terminal"
	AddTab           Kind = "add_tab"
	FocusTerminal    Kind = "focus_terminal"
	SendText         Kind = "send_text"
	RunCommand       Kind = "run_command"
	SendSpecialKey   Kind = "send_special_key"
	Resize           Kind = "resize"
	UpdateSplitSizes Kind = "update_split_sizes"
	ReadContent      Kind = "read_content"
	ToggleMinimized  Kind = "toggle_minimized"
	SetFullscreen    Kind = "set_fullscreen"
	RenameTerminal   Kind = "rename_terminal"
	RegisterBounds   Kind = "register_bounds"
	FocusDirectional Kind = "focus_directional"
	FocusSequential  Kind = "focus_sequential"
)

// Request is the closed tagged union of every workspace mutation. Only
// the fields relevant to Kind are meaningful; Execute validates which
// apply.
type Request struct {
	Kind Kind `json:"type"`

	ProjectID  string          `json:"project_id,omitempty"`
	Path       workspace.Path  `json:"path,omitempty"`
	GroupPath  workspace.Path  `json:"group_path,omitempty"`
	TerminalID string          `json:"terminal_id,omitempty"`
	Direction  workspace.Direction `json:"direction,omitempty"`

	Text    string `json:"text,omitempty"`
	Command string `json:"command,omitempty"`
	Key     string `json:"key,omitempty"` // special key name, e.g. "ctrl-c"

	Cols int `json:"cols,omitempty"`
	Rows int `json:"rows,omitempty"`

	Sizes []float64 `json:"sizes,omitempty"`
	Name  string    `json:"name,omitempty"`

	// Navigation fields: RegisterBounds carries X/Y/W/H; FocusDirectional
	// carries NavDirection; FocusSequential carries Forward.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	W float64 `json:"w,omitempty"`
	H float64 `json:"h,omitempty"`

	NavDirection string `json:"nav_direction,omitempty"`
	Forward      bool   `json:"forward,omitempty"`
}

// specialKeyBytes maps the wire protocol's named special keys to the byte
// sequence a terminal expects, the keys a local keybinding layer would
// otherwise translate itself.
var specialKeyBytes = map[string][]byte{
	"enter":      {'\r'},
	"tab":        {'\t'},
	"escape":     {0x1b},
	"backspace":  {0x7f},
	"ctrl-c":     {0x03},
	"ctrl-d":     {0x04},
	"ctrl-z":     {0x1a},
	"up":         {0x1b, '[', 'A'},
	"down":       {0x1b, '[', 'B'},
	"right":      {0x1b, '[', 'C'},
	"left":       {0x1b, '[', 'D'},
}
