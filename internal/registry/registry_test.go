package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okena-dev/okena/internal/terminal"
)

func TestPutThenGetReturnsTheSameTerminal(t *testing.T) {
	r := New()
	term := terminal.New("t1", "bash", 80, 24)
	r.Put(term)

	got, ok := r.Get("t1")
	require.True(t, ok)
	require.Same(t, term, got)
}

func TestGetUnknownIDReturnsFalse(t *testing.T) {
	r := New()
	_, ok := r.Get("missing")
	require.False(t, ok)
}

func TestPutReplacesExistingEntryForSameID(t *testing.T) {
	r := New()
	first := terminal.New("t1", "bash", 80, 24)
	second := terminal.New("t1", "zsh", 100, 30)
	r.Put(first)
	r.Put(second)

	got, ok := r.Get("t1")
	require.True(t, ok)
	require.Same(t, second, got)
}

func TestRemoveReturnsAndDropsTheTerminal(t *testing.T) {
	r := New()
	term := terminal.New("t1", "bash", 80, 24)
	r.Put(term)

	removed, ok := r.Remove("t1")
	require.True(t, ok)
	require.Same(t, term, removed)
	require.False(t, r.Has("t1"))
}

func TestRemoveUnknownIDReturnsFalse(t *testing.T) {
	r := New()
	_, ok := r.Remove("missing")
	require.False(t, ok)
}

func TestIDsReturnsEveryRegisteredID(t *testing.T) {
	r := New()
	r.Put(terminal.New("t1", "bash", 80, 24))
	r.Put(terminal.New("t2", "bash", 80, 24))

	ids := r.IDs()
	require.ElementsMatch(t, []string{"t1", "t2"}, ids)
}
