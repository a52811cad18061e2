package remote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairingCodeRedeemedOnce(t *testing.T) {
	s := NewAuthStore()
	code := s.RegeneratePairingCode()

	token, err := s.RedeemPairingCode(code)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = s.RedeemPairingCode(code)
	require.Error(t, err)
}

func TestValidateTokenRejectsUnknown(t *testing.T) {
	s := NewAuthStore()
	require.Error(t, s.ValidateToken("nonsense"))
}

func TestValidateTokenAcceptsIssued(t *testing.T) {
	s := NewAuthStore()
	code := s.RegeneratePairingCode()
	token, err := s.RedeemPairingCode(code)
	require.NoError(t, err)
	require.NoError(t, s.ValidateToken(token))
}

func TestRedeemWrongCodeFails(t *testing.T) {
	s := NewAuthStore()
	s.RegeneratePairingCode()
	_, err := s.RedeemPairingCode("wrong-code")
	require.Error(t, err)
}
