package workspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T, w *Workspace) string {
	t.Helper()
	return w.AddProject("demo", "/tmp/demo", true)
}

func TestSplitThenClose(t *testing.T) {
	w := New()
	pid := newTestProject(t, w)

	p, ok := w.Project(pid)
	require.True(t, ok)
	require.Equal(t, KindTerminal, p.Layout.Kind)

	t1 := "t1"
	require.NoError(t, w.SetTerminalID(pid, Path{}, t1))

	newPath, err := w.SplitTerminal(pid, Path{}, Horizontal)
	require.NoError(t, err)
	require.Equal(t, Path{1}, newPath)

	p, _ = w.Project(pid)
	require.Equal(t, KindSplit, p.Layout.Kind)
	require.Equal(t, []float64{50, 50}, p.Layout.Sizes)
	require.Len(t, p.Layout.Children, 2)

	t2 := "t2"
	require.NoError(t, w.SetTerminalID(pid, newPath, t2))

	versionBeforeClose := w.DataVersion()
	removed, err := w.CloseTerminal(pid, newPath)
	require.NoError(t, err)
	require.Equal(t, &t2, removed)
	require.Greater(t, w.DataVersion(), versionBeforeClose)

	p, _ = w.Project(pid)
	require.Equal(t, KindTerminal, p.Layout.Kind)
	require.Equal(t, &t1, p.Layout.TerminalID)
}

func TestTabsReorderKeepsActiveChildFocused(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)

	require.NoError(t, w.SetTerminalID(pid, Path{}, "a"))
	tabPath, err := w.AddTab(pid, Path{})
	require.NoError(t, err)
	require.NoError(t, w.SetTerminalID(pid, tabPath, "b"))
	groupPath := Path{}
	_, err = w.AddTabToGroup(pid, groupPath)
	require.NoError(t, err)

	p, _ := w.Project(pid)
	require.NoError(t, w.SetTerminalID(pid, Path{2}, "c"))
	require.NoError(t, w.SetActiveTab(pid, Path{}, 1))

	require.NoError(t, w.MoveTab(pid, Path{}, 0, 2))

	p, _ = w.Project(pid)
	require.Equal(t, "a", *p.Layout.Children[2].TerminalID)
	require.Equal(t, 0, p.Layout.ActiveTab) // "b" stays focused at its new index
	require.Equal(t, "b", *p.Layout.Children[p.Layout.ActiveTab].TerminalID)
}

func TestFindTerminalPathRoundTrip(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)
	require.NoError(t, w.SetTerminalID(pid, Path{}, "root-term"))

	path, ok, err := w.FindTerminalPath(pid, "root-term")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Path{}, path)

	p, _ := w.Project(pid)
	node, err := resolve(p.Layout, path)
	require.NoError(t, err)
	require.Equal(t, "root-term", *node.TerminalID)
}

func TestUniqueTerminalIDsAcrossWorkspace(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)
	require.NoError(t, w.SetTerminalID(pid, Path{}, "shared"))

	_, err := w.SplitTerminal(pid, Path{}, Vertical)
	require.NoError(t, err)

	p, _ := w.Project(pid)
	ids := collectTerminalIDs(p.Layout)
	seen := map[string]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "duplicate terminal id %s", id)
		seen[id] = true
	}
}

func TestUIOnlyMutationDoesNotBumpDataVersion(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)
	before := w.DataVersion()

	w.SetFocusedProject(&pid)

	require.Equal(t, before, w.DataVersion())
}

func TestCloseOtherTabsKeepsOnlyTheGivenIndex(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)
	require.NoError(t, w.SetTerminalID(pid, Path{}, "a"))
	_, err := w.AddTab(pid, Path{})
	require.NoError(t, err)
	require.NoError(t, w.SetTerminalID(pid, Path{1}, "b"))
	_, err = w.AddTabToGroup(pid, Path{})
	require.NoError(t, err)
	require.NoError(t, w.SetTerminalID(pid, Path{2}, "c"))

	require.NoError(t, w.CloseOtherTabs(pid, Path{}, 1))

	p, _ := w.Project(pid)
	require.Equal(t, KindTerminal, p.Layout.Kind)
	require.Equal(t, "b", *p.Layout.TerminalID)
}

func TestCloseTabsToRightDropsTrailingTabs(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)
	require.NoError(t, w.SetTerminalID(pid, Path{}, "a"))
	_, err := w.AddTab(pid, Path{})
	require.NoError(t, err)
	require.NoError(t, w.SetTerminalID(pid, Path{1}, "b"))
	_, err = w.AddTabToGroup(pid, Path{})
	require.NoError(t, err)
	require.NoError(t, w.SetTerminalID(pid, Path{2}, "c"))

	require.NoError(t, w.CloseTabsToRight(pid, Path{}, 0))

	p, _ := w.Project(pid)
	require.Equal(t, KindTerminal, p.Layout.Kind)
	require.Equal(t, "a", *p.Layout.TerminalID)
}

func TestDeleteProjectReturnsOwnedTerminalIDs(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)
	require.NoError(t, w.SetTerminalID(pid, Path{}, "a"))
	_, err := w.SplitTerminal(pid, Path{}, Horizontal)
	require.NoError(t, err)
	require.NoError(t, w.SetTerminalID(pid, Path{1}, "b"))

	ids, err := w.DeleteProject(pid)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, ids)

	_, ok := w.Project(pid)
	require.False(t, ok)
}

func TestMoveProjectReordersProjectOrder(t *testing.T) {
	w := New()
	a := w.AddProject("a", "/tmp/a", false)
	b := w.AddProject("b", "/tmp/b", false)
	c := w.AddProject("c", "/tmp/c", false)

	require.NoError(t, w.MoveProject(a, 2))

	order, _ := w.Snapshot()
	require.Equal(t, []string{b, c, a}, order)
}

func TestToggleProjectVisibilityFlipsFlag(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", false)

	p, _ := w.Project(pid)
	before := p.IsVisible

	require.NoError(t, w.ToggleProjectVisibility(pid))

	p, _ = w.Project(pid)
	require.Equal(t, !before, p.IsVisible)
}

func TestRenameProjectUpdatesName(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", false)

	require.NoError(t, w.RenameProject(pid, "renamed"))

	p, _ := w.Project(pid)
	require.Equal(t, "renamed", p.Name)
}

func TestDetachThenAttachTerminalRoundTrips(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)
	require.NoError(t, w.SetTerminalID(pid, Path{}, "a"))

	require.NoError(t, w.DetachTerminal(pid, Path{}))
	p, _ := w.Project(pid)
	require.True(t, p.Layout.Detached)

	require.NoError(t, w.AttachTerminal("a"))
	p, _ = w.Project(pid)
	require.False(t, p.Layout.Detached)
}

func TestUninitializedTerminalsListsEmptyLeaf(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)

	paths, err := w.UninitializedTerminals(pid)
	require.NoError(t, err)
	require.Equal(t, []Path{{}}, paths)

	require.NoError(t, w.SetTerminalID(pid, Path{}, "a"))
	paths, err = w.UninitializedTerminals(pid)
	require.NoError(t, err)
	require.Empty(t, paths)
}

func TestCloseOnlyChildOfTabsCollapses(t *testing.T) {
	w := New()
	pid := w.AddProject("demo", "/tmp/demo", true)
	require.NoError(t, w.SetTerminalID(pid, Path{}, "a"))
	tabPath, err := w.AddTab(pid, Path{})
	require.NoError(t, err)
	require.NoError(t, w.SetTerminalID(pid, tabPath, "b"))

	_, err = w.CloseTerminal(pid, tabPath)
	require.NoError(t, err)

	p, _ := w.Project(pid)
	require.Equal(t, KindTerminal, p.Layout.Kind)
	require.Equal(t, "a", *p.Layout.TerminalID)
}
