// Package terminal wraps a vt10x grid emulator with the ownership and
// dirty-tracking layer the workspace and remote broadcaster need: a
// terminal is written to by the PTY pump, read by the UI poll loop, and
// peeked by the remote broadcaster, all without serialising on I/O.
package terminal

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/hinshun/vt10x"
)

// oscTitleRe matches an OSC 0/2 "set window title" escape sequence
// terminated by BEL or ST, the same pattern the PTY session handler used
// to recover a pane's title for display.
var oscTitleRe = regexp.MustCompile("\x1b\\][02];([^\x07\x1b]*)(\x07|\x1b\\\\)")

// Attribute mode bits, mirrored from vt10x's internal cell mode flags.
const (
	attrBold      = 1 << 0
	attrUnderline = 1 << 1
	attrBlink     = 1 << 2
	attrReverse   = 1 << 3
	attrItalic    = 1 << 4
)

// Emulator wraps vt10x.Terminal and adds the dirty/bell flags the
// workspace's ~120 Hz UI poll and OSC-title/bell handling depend on.
// Operations are serialised by mu, which is held only across single
// emulator calls, never across I/O.
type Emulator struct {
	mu       sync.Mutex
	terminal vt10x.Terminal
	cols     int
	rows     int
	dirty    bool
	bell     bool
	title    string
}

// NewEmulator creates a vt10x-backed emulator sized to cols x rows.
func NewEmulator(cols, rows int) *Emulator {
	vt := vt10x.New(vt10x.WithSize(cols, rows))
	return &Emulator{terminal: vt, cols: cols, rows: rows}
}

// ProcessOutput feeds PTY bytes into the emulator. The grid mutates,
// scrollback may grow, an OSC window title may update, a BEL sets the
// unread-bell flag, and the dirty flag is set.
func (e *Emulator) ProcessOutput(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.terminal.Write(data)
	e.dirty = true
	if bytes.IndexByte(data, 0x07) >= 0 {
		e.bell = true
	}
	if m := oscTitleRe.FindSubmatch(data); m != nil {
		e.title = string(m[1])
	}
}

// TakeDirty atomically returns and clears the dirty flag.
func (e *Emulator) TakeDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.dirty
	e.dirty = false
	return d
}

// TakeBell atomically returns and clears the unread-bell flag.
func (e *Emulator) TakeBell() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.bell
	e.bell = false
	return b
}

// Title returns the most recent OSC window title, if any was set.
func (e *Emulator) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title
}

// Resize resizes the grid. Callers implementing drag-resize coalescing
// should only call this on drag-release; the emulator itself applies the
// resize immediately.
func (e *Emulator) Resize(cols, rows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cols = cols
	e.rows = rows
	e.terminal.Resize(cols, rows)
	e.dirty = true
}

// Size returns the current grid dimensions.
func (e *Emulator) Size() (cols, rows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cols, e.rows
}

// Snapshot returns an ANSI-reconstructed rendering of the current screen,
// including cursor position, for a remote client joining mid-session.
func (e *Emulator) Snapshot() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return []byte(e.renderLocked(true))
}

// RenderForReconnection is like Snapshot but omits the trailing cursor
// positioning escape, used when handing a buffer to a freshly-attached
// local PTY consumer that will position its own cursor.
func (e *Emulator) RenderForReconnection() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return []byte(e.renderLocked(false))
}

func (e *Emulator) renderLocked(includeCursor bool) string {
	var buf bytes.Buffer

	cursor := e.terminal.Cursor()
	cursorVisible := e.terminal.CursorVisible()

	var lastFg, lastBg vt10x.Color
	var lastMode int16
	resetNeeded := false

	for row := 0; row < e.rows; row++ {
		if row > 0 {
			buf.WriteString("\n")
		}

		for col := 0; col < e.cols; col++ {
			cell := e.terminal.Cell(col, row)

			if cell.FG != lastFg || cell.BG != lastBg || cell.Mode != lastMode {
				if resetNeeded {
					buf.WriteString("\033[0m")
				}

				if cell.Mode&attrBold != 0 {
					buf.WriteString("\033[1m")
				}
				if cell.Mode&attrUnderline != 0 {
					buf.WriteString("\033[4m")
				}
				if cell.Mode&attrReverse != 0 {
					buf.WriteString("\033[7m")
				}

				if cell.FG != vt10x.DefaultFG {
					switch {
					case cell.FG < 8:
						buf.WriteString(fmt.Sprintf("\033[%dm", 30+cell.FG))
					case cell.FG < 16:
						buf.WriteString(fmt.Sprintf("\033[%dm", 90+(cell.FG-8)))
					case cell.FG < 256:
						buf.WriteString(fmt.Sprintf("\033[38;5;%dm", cell.FG))
					default:
						r := (cell.FG >> 16) & 0xFF
						g := (cell.FG >> 8) & 0xFF
						b := cell.FG & 0xFF
						buf.WriteString(fmt.Sprintf("\033[38;2;%d;%d;%dm", r, g, b))
					}
				}

				if cell.BG != vt10x.DefaultBG {
					switch {
					case cell.BG < 8:
						buf.WriteString(fmt.Sprintf("\033[%dm", 40+cell.BG))
					case cell.BG < 16:
						buf.WriteString(fmt.Sprintf("\033[%dm", 100+(cell.BG-8)))
					case cell.BG < 256:
						buf.WriteString(fmt.Sprintf("\033[48;5;%dm", cell.BG))
					default:
						r := (cell.BG >> 16) & 0xFF
						g := (cell.BG >> 8) & 0xFF
						b := cell.BG & 0xFF
						buf.WriteString(fmt.Sprintf("\033[48;2;%d;%d;%dm", r, g, b))
					}
				}

				lastFg = cell.FG
				lastBg = cell.BG
				lastMode = cell.Mode
				resetNeeded = true
			}

			switch {
			case includeCursor && cursorVisible && row == cursor.Y && col == cursor.X:
				buf.WriteString("\033[7m")
				if cell.Char == 0 || cell.Char == ' ' {
					buf.WriteRune(' ')
				} else {
					buf.WriteRune(cell.Char)
				}
				buf.WriteString("\033[27m")
			case cell.Char == 0:
				buf.WriteRune(' ')
			case cell.Char == '�':
				buf.WriteRune(' ')
			default:
				buf.WriteRune(cell.Char)
			}
		}
	}

	if resetNeeded {
		buf.WriteString("\033[0m")
	}

	output := buf.String()
	lines := strings.Split(output, "\n")

	lastNonEmpty := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			lastNonEmpty = i
			break
		}
	}
	if lastNonEmpty >= 0 {
		lines = lines[:lastNonEmpty+1]
		output = strings.Join(lines, "\n")
	}

	if includeCursor {
		cursorRow, cursorCol := cursor.Y+1, cursor.X+1
		if cursorVisible && (cursor.Y < lastNonEmpty || (cursor.Y == lastNonEmpty && cursor.X > 0)) {
			output += fmt.Sprintf("\033[%d;%dH", cursorRow, cursorCol)
		}
	}

	return output
}

// CursorPosition returns the current cursor row/col.
func (e *Emulator) CursorPosition() (row, col int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cursor := e.terminal.Cursor()
	return cursor.Y, cursor.X
}

// Clear resets the screen, equivalent to a client sending a clear sequence.
func (e *Emulator) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.terminal.Write([]byte("\033[2J\033[H"))
	e.dirty = true
}

// cellAt returns the rune at (col, row), used by selection primitives.
func (e *Emulator) cellAt(col, row int) rune {
	e.mu.Lock()
	defer e.mu.Unlock()
	if col < 0 || row < 0 || col >= e.cols || row >= e.rows {
		return 0
	}
	return e.terminal.Cell(col, row).Char
}
