package gitexec

import (
	"fmt"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
)

// GitExecutor answers the handful of read-only git queries the VCS status
// poller issues on every tick (branch name resolution) using the go-git
// library against a cached, per-repository *gogit.Repository instead of
// spawning a shell git process each time, and falls back to the shell
// executor for every other command (diff --shortstat and anything not
// implemented here).
type GitExecutor struct {
	fallbackExecutor CommandExecutor
	repositoryCache  map[string]*gogit.Repository
	cacheMutex       sync.RWMutex
	operationMutexes map[string]*sync.Mutex
	mutexMapMutex    sync.RWMutex
}

// NewGitExecutor creates a go-git-backed command executor with a shell
// fallback for unimplemented commands.
func NewGitExecutor() CommandExecutor {
	return &GitExecutor{
		fallbackExecutor: NewShellExecutor(),
		repositoryCache:  make(map[string]*gogit.Repository),
		operationMutexes: make(map[string]*sync.Mutex),
	}
}

func (e *GitExecutor) Execute(dir string, args ...string) ([]byte, error) {
	return e.ExecuteGitWithWorkingDir(dir, args...)
}

func (e *GitExecutor) ExecuteWithEnv(dir string, env []string, args ...string) ([]byte, error) {
	return e.fallbackExecutor.ExecuteWithEnv(dir, env, args...)
}

// ExecuteGitWithWorkingDir handles "rev-parse --abbrev-ref HEAD" (the
// poller's branch-name query) via go-git; every other command falls
// through to the shell executor.
func (e *GitExecutor) ExecuteGitWithWorkingDir(workingDir string, args ...string) ([]byte, error) {
	if len(args) >= 3 && args[0] == "rev-parse" && args[1] == "--abbrev-ref" && args[2] == "HEAD" {
		if out, ok := e.currentBranch(workingDir); ok {
			return out, nil
		}
	}
	return e.fallbackExecutor.ExecuteGitWithWorkingDir(workingDir, args...)
}

func (e *GitExecutor) ExecuteCommand(command string, args ...string) ([]byte, error) {
	return e.fallbackExecutor.ExecuteCommand(command, args...)
}

func (e *GitExecutor) ExecuteGitWithStdErr(workingDir string, args ...string) ([]byte, []byte, error) {
	return e.fallbackExecutor.ExecuteGitWithStdErr(workingDir, args...)
}

func (e *GitExecutor) getRepositoryMutex(absPath string) *sync.Mutex {
	e.mutexMapMutex.RLock()
	if mutex, exists := e.operationMutexes[absPath]; exists {
		e.mutexMapMutex.RUnlock()
		return mutex
	}
	e.mutexMapMutex.RUnlock()

	e.mutexMapMutex.Lock()
	defer e.mutexMapMutex.Unlock()
	if mutex, exists := e.operationMutexes[absPath]; exists {
		return mutex
	}
	mutex := &sync.Mutex{}
	e.operationMutexes[absPath] = mutex
	return mutex
}

// getRepository opens repoPath once and caches it, since the poller
// revisits the same project paths every tick.
func (e *GitExecutor) getRepository(repoPath string) (*gogit.Repository, error) {
	if repoPath == "" {
		repoPath = "."
	}
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	e.cacheMutex.RLock()
	if repo, exists := e.repositoryCache[absPath]; exists {
		e.cacheMutex.RUnlock()
		return repo, nil
	}
	e.cacheMutex.RUnlock()

	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()
	if repo, exists := e.repositoryCache[absPath]; exists {
		return repo, nil
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", absPath, err)
	}
	e.repositoryCache[absPath] = repo
	return repo, nil
}

// currentBranch returns ("", false) on any failure so the caller falls
// back to shelling out, mirroring how a real "rev-parse" would report a
// detached HEAD or a missing repository as a non-zero exit rather than a
// panic.
func (e *GitExecutor) currentBranch(workingDir string) ([]byte, bool) {
	absWorkingDir, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, false
	}

	mutex := e.getRepositoryMutex(absWorkingDir)
	mutex.Lock()
	defer mutex.Unlock()

	repo, err := e.getRepository(workingDir)
	if err != nil {
		return nil, false
	}

	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return nil, false
	}
	return []byte(head.Name().Short() + "\n"), true
}
