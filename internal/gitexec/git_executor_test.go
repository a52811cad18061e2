package gitexec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, repoDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(repoDir, 0755))

	fallback := NewShellExecutor()
	_, err := fallback.ExecuteGitWithWorkingDir(repoDir, "init")
	require.NoError(t, err)
	_, err = fallback.ExecuteGitWithWorkingDir(repoDir, "config", "user.name", "Test User")
	require.NoError(t, err)
	_, err = fallback.ExecuteGitWithWorkingDir(repoDir, "config", "user.email", "test@example.com")
	require.NoError(t, err)

	readmePath := filepath.Join(repoDir, "README.md")
	require.NoError(t, os.WriteFile(readmePath, []byte("# Test\n"), 0644))
	_, err = fallback.ExecuteGitWithWorkingDir(repoDir, "add", "README.md")
	require.NoError(t, err)
	_, err = fallback.ExecuteGitWithWorkingDir(repoDir, "commit", "-m", "Initial commit")
	require.NoError(t, err)
}

func TestGitExecutorRevParseAbbrevRefUsesGoGit(t *testing.T) {
	repoDir := filepath.Join(t.TempDir(), "repo")
	initRepo(t, repoDir)

	exec := NewGitExecutor()
	output, err := exec.ExecuteGitWithWorkingDir(repoDir, "rev-parse", "--abbrev-ref", "HEAD")
	require.NoError(t, err)
	assert.Contains(t, []string{"main\n", "master\n"}, string(output))
}

func TestGitExecutorCachesRepositoryAcrossCalls(t *testing.T) {
	repoDir := filepath.Join(t.TempDir(), "repo")
	initRepo(t, repoDir)

	exec := NewGitExecutor().(*GitExecutor)
	_, err := exec.ExecuteGitWithWorkingDir(repoDir, "rev-parse", "--abbrev-ref", "HEAD")
	require.NoError(t, err)

	absPath, err := filepath.Abs(repoDir)
	require.NoError(t, err)
	exec.cacheMutex.RLock()
	_, cached := exec.repositoryCache[absPath]
	exec.cacheMutex.RUnlock()
	assert.True(t, cached, "repository should be cached after first rev-parse")

	// Second call reuses the cached *gogit.Repository instead of reopening it.
	output, err := exec.ExecuteGitWithWorkingDir(repoDir, "rev-parse", "--abbrev-ref", "HEAD")
	require.NoError(t, err)
	assert.Contains(t, []string{"main\n", "master\n"}, string(output))
}

func TestGitExecutorFallsBackForUnimplementedCommands(t *testing.T) {
	repoDir := filepath.Join(t.TempDir(), "repo")
	initRepo(t, repoDir)

	exec := NewGitExecutor()

	output, err := exec.ExecuteGitWithWorkingDir(repoDir, "diff", "--shortstat", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "", strings.TrimSpace(string(output)))

	output, err = exec.ExecuteGitWithWorkingDir(repoDir, "rev-parse", "HEAD")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(string(output)), 40)
}

func TestGitExecutorRevParseFallsBackOutsideRepo(t *testing.T) {
	exec := NewGitExecutor()
	_, err := exec.ExecuteGitWithWorkingDir(t.TempDir(), "rev-parse", "--abbrev-ref", "HEAD")
	assert.Error(t, err) // not a git repo, shell git reports the same failure
}

func TestGitExecutorExecuteCommandDelegatesToFallback(t *testing.T) {
	exec := NewGitExecutor()
	_, err := exec.ExecuteCommand("echo", "hello")
	assert.NoError(t, err)
}

func TestGitExecutorImplementsCommandExecutor(t *testing.T) {
	var _ CommandExecutor = (*GitExecutor)(nil)

	exec := NewGitExecutor()
	_, ok := exec.(*GitExecutor)
	assert.True(t, ok)
}
