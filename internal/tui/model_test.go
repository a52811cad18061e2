package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/okena-dev/okena/internal/remote"
)

func TestUpdateSnapshotMsgMarksConnected(t *testing.T) {
	m := newModel(func() (Snapshot, error) { return Snapshot{}, nil })

	snap := Snapshot{State: remote.StateSnapshot{StateVersion: 3}}
	updated, cmd := m.Update(snapshotMsg(snap))
	mm := updated.(model)

	require.Nil(t, cmd)
	require.True(t, mm.connected)
	require.Nil(t, mm.err)
	require.Equal(t, uint64(3), mm.snapshot.State.StateVersion)
}

func TestUpdateErrMsgMarksDisconnected(t *testing.T) {
	m := newModel(func() (Snapshot, error) { return Snapshot{}, nil })
	m.connected = true

	updated, _ := m.Update(errMsg(errors.New("boom")))
	mm := updated.(model)

	require.False(t, mm.connected)
	require.Error(t, mm.err)
}

func TestUpdateQuitKeyReturnsQuitCmd(t *testing.T) {
	m := newModel(func() (Snapshot, error) { return Snapshot{}, nil })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
}

func TestUpdateWindowSizeMsgStoresDimensions(t *testing.T) {
	m := newModel(func() (Snapshot, error) { return Snapshot{}, nil })
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	mm := updated.(model)
	require.Equal(t, 100, mm.width)
	require.Equal(t, 40, mm.height)
}
