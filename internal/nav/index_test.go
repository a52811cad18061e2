package nav

import (
	"testing"

	"github.com/okena-dev/okena/internal/workspace"
	"github.com/stretchr/testify/require"
)

func TestFocusDirectionalPicksNearestInDirection(t *testing.T) {
	idx := NewIndex()
	left := workspace.Path{0}
	right := workspace.Path{1}
	farRight := workspace.Path{2}

	idx.Register("p1", left, Bounds{X: 0, Y: 0, W: 10, H: 10})
	idx.Register("p1", right, Bounds{X: 10, Y: 0, W: 10, H: 10})
	idx.Register("p1", farRight, Bounds{X: 30, Y: 0, W: 10, H: 10})

	got, ok := idx.FocusDirectional("p1", left, Right)
	require.True(t, ok)
	require.Equal(t, right, got)
}

func TestFocusDirectionalTieBreaksOnOrthogonalAxis(t *testing.T) {
	idx := NewIndex()
	current := workspace.Path{0}
	top := workspace.Path{1}
	bottom := workspace.Path{2}

	idx.Register("p1", current, Bounds{X: 0, Y: 10, W: 10, H: 10})
	idx.Register("p1", top, Bounds{X: 20, Y: 0, W: 10, H: 10})
	idx.Register("p1", bottom, Bounds{X: 20, Y: 40, W: 10, H: 10})

	got, ok := idx.FocusDirectional("p1", current, Right)
	require.True(t, ok)
	require.Equal(t, top, got, "top pane's centre is closer to current's on the Y axis")
}

func TestFocusDirectionalNoneInDirection(t *testing.T) {
	idx := NewIndex()
	current := workspace.Path{0}
	idx.Register("p1", current, Bounds{X: 0, Y: 0, W: 10, H: 10})

	_, ok := idx.FocusDirectional("p1", current, Left)
	require.False(t, ok)
}

func TestFocusSequentialWrapsAround(t *testing.T) {
	idx := NewIndex()
	a := workspace.Path{0}
	b := workspace.Path{1}
	c := workspace.Path{2}

	idx.Register("p1", c, Bounds{})
	idx.Register("p1", a, Bounds{})
	idx.Register("p1", b, Bounds{})

	next, ok := idx.FocusSequential("p1", c, true)
	require.True(t, ok)
	require.Equal(t, a, next, "forward from the last pane wraps to the first")

	prev, ok := idx.FocusSequential("p1", a, false)
	require.True(t, ok)
	require.Equal(t, c, prev, "backward from the first pane wraps to the last")
}

func TestClearProjectRemovesPanes(t *testing.T) {
	idx := NewIndex()
	p := workspace.Path{0}
	idx.Register("p1", p, Bounds{W: 1, H: 1})
	idx.ClearProject("p1")

	_, ok := idx.Get("p1", p)
	require.False(t, ok)
}
