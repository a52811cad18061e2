package vcsstatus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okena-dev/okena/internal/workspace"
)

// fakeExecutor is a minimal gitexec.CommandExecutor stand-in that returns
// scripted output per command, without shelling out to a real git/jj
// binary — the same role the teacher's InMemoryExecutor plays, narrowed
// to the git and jj commands this package actually issues.
type fakeExecutor struct {
	calls    []string
	response map[string][]byte
	err      map[string]error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{response: map[string][]byte{}, err: map[string]error{}}
}

func (f *fakeExecutor) key(args []string) string {
	s := ""
	for _, a := range args {
		s += a + " "
	}
	return s
}

func (f *fakeExecutor) Execute(dir string, args ...string) ([]byte, error) { return nil, nil }
func (f *fakeExecutor) ExecuteWithEnv(dir string, env []string, args ...string) ([]byte, error) {
	return nil, nil
}
func (f *fakeExecutor) ExecuteGitWithWorkingDir(workingDir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, "git "+f.key(args))
	k := f.key(args)
	if err, ok := f.err[k]; ok {
		return nil, err
	}
	return f.response[k], nil
}
func (f *fakeExecutor) ExecuteCommand(command string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, command+" "+f.key(args))
	k := f.key(args)
	if err, ok := f.err[k]; ok {
		return nil, err
	}
	return f.response[k], nil
}
func (f *fakeExecutor) ExecuteGitWithStdErr(workingDir string, args ...string) ([]byte, []byte, error) {
	out, err := f.ExecuteGitWithWorkingDir(workingDir, args...)
	return out, nil, err
}

func TestGitStatusParsesBranchAndShortstat(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	exec := newFakeExecutor()
	exec.response["rev-parse --abbrev-ref HEAD "] = []byte("feature/foo\n")
	exec.response["diff --shortstat HEAD "] = []byte(" 3 files changed, 12 insertions(+), 4 deletions(-)\n")

	p := NewPoller(exec)
	status := p.computeStatus(root)

	require.Equal(t, "feature/foo", status.Branch)
	require.Equal(t, 12, status.LinesAdded)
	require.Equal(t, 4, status.LinesRemoved)
}

func TestJJWinsOnColocatedRepo(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, ".jj"), 0o755))

	exec := newFakeExecutor()
	exec.response["jj -R "+root+" log -r @ --no-graph -T bookmarks.join(\",\") "] = []byte("main\n")
	exec.response["jj -R "+root+" diff --stat "] = []byte("1 file changed, 2 insertions(+), 0 deletions(-)\n")

	p := NewPoller(exec)
	status := p.computeStatus(root)

	require.Equal(t, "main", status.Branch)
	require.Equal(t, 2, status.LinesAdded)
	require.Equal(t, 0, status.LinesRemoved)
}

func TestRefreshRespectsCacheTTL(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	exec := newFakeExecutor()
	exec.response["rev-parse --abbrev-ref HEAD "] = []byte("main\n")
	exec.response["diff --shortstat HEAD "] = []byte("")

	p := NewPoller(exec)
	require.True(t, p.refresh(root))
	require.False(t, p.refresh(root), "second refresh within TTL should be a no-op")

	calls := 0
	for _, c := range exec.calls {
		if c == "git rev-parse --abbrev-ref HEAD " {
			calls++
		}
	}
	require.Equal(t, 1, calls)
}

func TestSubscribeNotifiedOnChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	exec := newFakeExecutor()
	exec.response["rev-parse --abbrev-ref HEAD "] = []byte("main\n")
	exec.response["diff --shortstat HEAD "] = []byte("")

	p := NewPoller(exec)
	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	ws := workspace.New()
	ws.AddProject("demo", root, false)
	p.pollOnce(ws)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a notification after a status change")
	}
}
