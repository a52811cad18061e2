// Package remote is the control plane that makes a workspace addressable
// by remote operators: pairing/token issuance, a bridge between the
// network goroutines and the workspace-owning goroutine, a per-terminal
// broadcaster, and the fiber-based HTTP/WebSocket server and gorilla
// client that speak to it. Adapted from the teacher's static-secret JWT
// middleware into a time-boxed pairing-code plus long-lived bearer token
// scheme.
package remote

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/okena-dev/okena/internal/errs"
)

const (
	pairingCodeExpiry  = 60 * time.Second
	tokenRefreshWindow = 20 * time.Hour
)

type tokenRecord struct {
	issuedAt time.Time
}

// AuthStore issues short-lived pairing codes and the bearer tokens they
// redeem into. It is in-memory only: a server restart revokes every
// outstanding token, matching spec's "revocable by server restart" rule.
type AuthStore struct {
	mu sync.Mutex

	code       string
	codeExpiry time.Time

	tokens map[string]tokenRecord
}

// NewAuthStore creates an AuthStore with a freshly generated pairing code.
func NewAuthStore() *AuthStore {
	s := &AuthStore{tokens: make(map[string]tokenRecord)}
	s.RegeneratePairingCode()
	return s
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// RegeneratePairingCode replaces the current pairing code, resetting its
// 60s expiry. Used at server start and by the `pair` CLI subcommand.
func (s *AuthStore) RegeneratePairingCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.code = randomHex(4)
	s.codeExpiry = time.Now().Add(pairingCodeExpiry)
	return s.code
}

// RedeemPairingCode validates code and, on success, issues a new bearer
// token bound to this server instance.
func (s *AuthStore) RedeemPairingCode(code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.code == "" || code != s.code || time.Now().After(s.codeExpiry) {
		return "", errs.ErrPairingFailed
	}

	token := randomHex(32)
	s.tokens[token] = tokenRecord{issuedAt: time.Now()}
	s.code = "" // single use
	return token, nil
}

// ValidateToken reports whether token is currently issued. Issued tokens
// do not expire.
func (s *AuthStore) ValidateToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return errs.ErrAuthRejected
	}
	// Tokens don't hard-expire server-side; the refresh window only
	// governs when the *client* pre-emptively asks for a new one.
	_ = rec
	return nil
}

// NeedsRefresh reports whether token is older than the refresh window.
// Nothing in this repository calls it: the client runs no token-refresh
// loop.
func (s *AuthStore) NeedsRefresh(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return true
	}
	return time.Since(rec.issuedAt) > tokenRefreshWindow
}

// Revoke removes token, e.g. on explicit client sign-out.
func (s *AuthStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}
