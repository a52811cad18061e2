// Package vcsstatus periodically computes a branch name and working-tree
// line-diff summary for every visible project, the way the teacher's own
// port monitor periodically polls a child process: a ticking goroutine
// that refreshes a mutex-guarded cache, with callers reading through Get
// or subscribing for change notifications.
package vcsstatus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okena-dev/okena/internal/gitexec"
	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/workspace"
)

// pollInterval is how often the poller re-walks visible projects.
const pollInterval = 5 * time.Second

// cacheTTL is how long a cached Status is served without recomputation,
// matching the 5s TTL described for per-path entries.
const cacheTTL = 5 * time.Second

// Status is one project's VCS summary.
type Status struct {
	Branch       string `json:"branch"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	Err          string `json:"error,omitempty"`
}

type cacheEntry struct {
	status    Status
	fetchedAt time.Time
}

// Poller owns the per-path status cache and the observer list that lets
// the remote watch channel push updates as soon as a poll cycle changes
// anything.
type Poller struct {
	executor gitexec.CommandExecutor

	mu        sync.Mutex
	cache     map[string]cacheEntry
	observers []chan struct{}
}

// NewPoller creates a Poller backed by executor. Pass gitexec.NewGitExecutor()
// in production, so repeated polls reuse a cached repository instead of
// re-shelling every tick; tests supply a fake executor.
func NewPoller(executor gitexec.CommandExecutor) *Poller {
	return &Poller{
		executor: executor,
		cache:    make(map[string]cacheEntry),
	}
}

// Subscribe registers a channel that receives a (non-blocking, coalesced)
// ping after every poll cycle that changed at least one project's status.
func (p *Poller) Subscribe() (<-chan struct{}, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{}, 1)
	p.observers = append(p.observers, ch)
	return ch, func() { p.unsubscribe(ch) }
}

func (p *Poller) unsubscribe(ch chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, o := range p.observers {
		if o == ch {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

func (p *Poller) notify() {
	for _, o := range p.observers {
		select {
		case o <- struct{}{}:
		default:
		}
	}
}

// Get returns the cached status for path, if any has been computed yet.
func (p *Poller) Get(path string) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[path]
	if !ok {
		return Status{}, false
	}
	return entry.status, true
}

// Snapshot returns a copy of every cached status, keyed by project path.
func (p *Poller) Snapshot() map[string]Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]Status, len(p.cache))
	for path, entry := range p.cache {
		out[path] = entry.status
	}
	return out
}

// Run polls ws's visible, non-remote projects every pollInterval until ctx
// is cancelled. Each project's path is refreshed at most once per cacheTTL
// window, so a burst of Run ticks never re-shells out more than the TTL
// allows.
func (p *Poller) Run(ctx context.Context, ws *workspace.Workspace) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ws)
		}
	}
}

func (p *Poller) pollOnce(ws *workspace.Workspace) {
	_, projects := ws.Snapshot()
	changed := false
	for _, proj := range projects {
		if proj == nil || !proj.IsVisible || proj.IsRemote {
			continue
		}
		if p.refresh(proj.Path) {
			changed = true
		}
	}
	if changed {
		p.notify()
	}
}

// refresh recomputes path's status if its cache entry is missing or
// stale, reporting whether the cached value changed.
func (p *Poller) refresh(path string) bool {
	p.mu.Lock()
	entry, ok := p.cache[path]
	fresh := ok && time.Since(entry.fetchedAt) < cacheTTL
	p.mu.Unlock()
	if fresh {
		return false
	}

	status := p.computeStatus(path)

	p.mu.Lock()
	defer p.mu.Unlock()
	prev, had := p.cache[path]
	p.cache[path] = cacheEntry{status: status, fetchedAt: time.Now()}
	return !had || prev.status != status
}

// computeStatus decides jj vs git (jj wins when a repo is colocated,
// i.e. both .jj/ and .git/ are present at the same root) and delegates.
func (p *Poller) computeStatus(path string) Status {
	if jjRoot, ok := findJJRoot(path); ok {
		return p.jjStatus(jjRoot)
	}
	if gitRoot, ok := findGitRoot(path); ok {
		return p.gitStatus(gitRoot)
	}
	return Status{Err: "not a git or jj repository"}
}

func findJJRoot(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".jj")); err == nil && info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// findGitRoot walks up from startDir looking for a .git directory (a
// normal repo) or a .git file pointing at one (a worktree checkout).
func findGitRoot(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}

	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil {
			if info.IsDir() {
				return dir, true
			}
			if content, err := os.ReadFile(gitDir); err == nil && strings.HasPrefix(string(content), "gitdir: ") {
				return dir, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (p *Poller) gitStatus(root string) Status {
	branchOut, err := p.executor.ExecuteGitWithWorkingDir(root, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		logger.Debugf("vcsstatus: git branch lookup failed for %s: %v", root, err)
		return Status{Err: err.Error()}
	}

	statOut, err := p.executor.ExecuteGitWithWorkingDir(root, "diff", "--shortstat", "HEAD")
	if err != nil {
		// A repo with no commits yet has no HEAD to diff against; branch
		// name alone is still useful.
		return Status{Branch: trimLine(branchOut)}
	}

	added, removed := parseShortstat(statOut)
	return Status{Branch: trimLine(branchOut), LinesAdded: added, LinesRemoved: removed}
}

func (p *Poller) jjStatus(root string) Status {
	branchOut, err := p.executor.ExecuteCommand("jj", "-R", root, "log", "-r", "@", "--no-graph", "-T", "bookmarks.join(\",\")")
	if err != nil {
		logger.Debugf("vcsstatus: jj branch lookup failed for %s: %v", root, err)
		return Status{Err: err.Error()}
	}

	statOut, err := p.executor.ExecuteCommand("jj", "-R", root, "diff", "--stat")
	if err != nil {
		return Status{Branch: trimLine(branchOut)}
	}

	added, removed := parseJJDiffStat(statOut)
	return Status{Branch: trimLine(branchOut), LinesAdded: added, LinesRemoved: removed}
}
