package terminal

import (
	"sync"

	"github.com/okena-dev/okena/internal/errs"
)

// Transport is the write side of a terminal's backing PTY, implemented by
// the PTY manager. It is deliberately narrow: Terminal never reaches into
// PTY internals, it only ever writes bytes or learns the fd is gone.
type Transport interface {
	Write(data []byte) error
}

// Terminal is a registry entry: the emulator, selection state, and the
// runtime fields (shell type, last exit code) that ride alongside a
// terminal_id in the layout tree but aren't persisted as layout data.
type Terminal struct {
	ID        string
	ShellType string

	mu           sync.Mutex
	Emulator     *Emulator
	Selection    *Selection
	transport    Transport
	lastExitCode *int
}

// New creates a registry entry for id, sized to cols x rows.
func New(id, shellType string, cols, rows int) *Terminal {
	emu := NewEmulator(cols, rows)
	return &Terminal{
		ID:        id,
		ShellType: shellType,
		Emulator:  emu,
		Selection: NewSelection(emu),
	}
}

// Attach binds the terminal to a live PTY transport, enabling SendInput.
func (t *Terminal) Attach(transport Transport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transport = transport
	t.lastExitCode = nil
}

// Detach marks the terminal as transport-less, recording the exit code the
// PTY manager observed (nil if killed rather than exited).
func (t *Terminal) Detach(exitCode *int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transport = nil
	t.lastExitCode = exitCode
}

// LastExitCode returns the exit code from the most recent detach, if any.
func (t *Terminal) LastExitCode() *int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastExitCode
}

// SendInput writes text to the backing PTY. Returns an error wrapping
// errs.ErrTransportClosed when the transport is disconnected.
func (t *Terminal) SendInput(text string) error {
	return t.SendBytes([]byte(text))
}

// SendBytes writes raw bytes to the backing PTY transport.
func (t *Terminal) SendBytes(b []byte) error {
	t.mu.Lock()
	transport := t.transport
	t.mu.Unlock()

	if transport == nil {
		return errs.TransportClosed(t.ID)
	}
	return transport.Write(b)
}
