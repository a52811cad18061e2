// Package errs defines the error kinds shared across okena's workspace,
// action dispatcher, remote plane, and supervisor layers so callers can
// branch on kind with errors.Is/As instead of string matching.
package errs

import "fmt"

// Sentinel kinds. Wrap with fmt.Errorf("%w: ...", KindX) to attach context.
var (
	// ErrTerminalNotFound means the addressed terminal exists in neither
	// the registry nor the project layout.
	ErrTerminalNotFound = fmt.Errorf("terminal not found")

	// ErrInvalidLayoutPath means a layout path does not resolve within
	// the addressed project.
	ErrInvalidLayoutPath = fmt.Errorf("invalid layout path")

	// ErrPtySpawnFailed means allocating a child process or PTY failed.
	ErrPtySpawnFailed = fmt.Errorf("pty spawn failed")

	// ErrPersistenceFailed means a workspace or settings save failed.
	ErrPersistenceFailed = fmt.Errorf("persistence failed")

	// ErrPairingFailed means a pairing code was invalid, expired, or
	// already consumed.
	ErrPairingFailed = fmt.Errorf("pairing failed")

	// ErrAuthRejected means a bearer token failed validation.
	ErrAuthRejected = fmt.Errorf("auth rejected")

	// ErrTokenExpired means a bearer token's expiry has passed.
	ErrTokenExpired = fmt.Errorf("token expired")

	// ErrTransportClosed means a remote or PTY transport closed
	// unexpectedly.
	ErrTransportClosed = fmt.Errorf("transport closed")

	// ErrConfigParse means an okena.yaml service config failed to parse.
	ErrConfigParse = fmt.Errorf("config parse error")
)

// TerminalNotFound wraps ErrTerminalNotFound with the offending id.
func TerminalNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrTerminalNotFound, id)
}

// InvalidLayoutPath wraps ErrInvalidLayoutPath with the offending path.
func InvalidLayoutPath(path interface{}) error {
	return fmt.Errorf("%w: %v", ErrInvalidLayoutPath, path)
}

// PtySpawnFailed wraps ErrPtySpawnFailed with the underlying cause.
func PtySpawnFailed(reason error) error {
	return fmt.Errorf("%w: %v", ErrPtySpawnFailed, reason)
}

// PersistenceFailed wraps ErrPersistenceFailed with the underlying I/O cause.
func PersistenceFailed(reason error) error {
	return fmt.Errorf("%w: %v", ErrPersistenceFailed, reason)
}

// TransportClosed wraps ErrTransportClosed with the terminal id whose
// transport is gone.
func TransportClosed(id string) error {
	return fmt.Errorf("%w: terminal %s", ErrTransportClosed, id)
}

// ConfigParseError wraps ErrConfigParse with the config path and cause.
func ConfigParseError(path string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrConfigParse, path, reason)
}
