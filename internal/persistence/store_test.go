package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduleSaveDebouncesBursts(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		wf := defaultWorkspaceFile()
		wf.DataVersion = uint64(i)
		store.ScheduleSave(wf)
	}

	_, err = store.LoadWorkspace()
	require.NoError(t, err)

	store.Flush()

	loaded, err := store.LoadWorkspace()
	require.NoError(t, err)
	require.Equal(t, uint64(19), loaded.DataVersion)
}

func TestAtomicWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveSettings(defaultSettingsFile()))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestLoadWorkspaceFallsBackOnFutureSchema(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	wf := defaultWorkspaceFile()
	wf.SchemaVersion = SchemaVersion + 1
	require.NoError(t, store.atomicWriteJSON(workspaceFileName, wf))

	loaded, err := store.LoadWorkspace()
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, loaded.SchemaVersion)
}

func TestFlushIsANoopWithoutPendingSave(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	store.Flush()
	time.Sleep(10 * time.Millisecond)
}
