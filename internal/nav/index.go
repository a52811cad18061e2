// Package nav tracks where each project's panes were last painted and
// answers directional/sequential focus queries against that layout, the
// way the teacher's port monitor (internal/services/port_monitor.go)
// keeps a small mutex-guarded map fed by an external prepaint/poll loop
// and read back out by callers on other goroutines.
package nav

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/okena-dev/okena/internal/workspace"
)

// Bounds is a pane's last-known screen rectangle, in whatever coordinate
// space the caller renders (cells, pixels — the index only compares
// bounds within the same project, so the unit doesn't matter as long as
// it's consistent).
type Bounds struct {
	X, Y, W, H float64
}

func (b Bounds) centerX() float64 { return b.X + b.W/2 }
func (b Bounds) centerY() float64 { return b.Y + b.H/2 }

// Direction is a directional focus query.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
	Down  Direction = "down"
)

type pane struct {
	path   workspace.Path
	bounds Bounds
}

// Index is the process-wide (project_id, layout_path) -> Bounds map.
type Index struct {
	mu    sync.Mutex
	panes map[string]map[string]pane // project id -> path key -> pane
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{panes: make(map[string]map[string]pane)}
}

func pathKey(p workspace.Path) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Register records path's bounds within projectID, updated during pane
// prepaint. Safe to call from any goroutine.
func (idx *Index) Register(projectID string, path workspace.Path, b Bounds) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	byPath, ok := idx.panes[projectID]
	if !ok {
		byPath = make(map[string]pane)
		idx.panes[projectID] = byPath
	}
	byPath[pathKey(path)] = pane{path: path.Clone(), bounds: b}
}

// ClearProject drops every registered pane for projectID, for example
// when its layout is torn down or the project is deleted.
func (idx *Index) ClearProject(projectID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.panes, projectID)
}

// Get returns path's last registered bounds within projectID.
func (idx *Index) Get(projectID string, path workspace.Path) (Bounds, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	byPath, ok := idx.panes[projectID]
	if !ok {
		return Bounds{}, false
	}
	p, ok := byPath[pathKey(path)]
	return p.bounds, ok
}

func (idx *Index) sortedPanes(projectID string) []pane {
	idx.mu.Lock()
	byPath := idx.panes[projectID]
	panes := make([]pane, 0, len(byPath))
	for _, p := range byPath {
		panes = append(panes, p)
	}
	idx.mu.Unlock()

	sort.Slice(panes, func(i, j int) bool { return lessPath(panes[i].path, panes[j].path) })
	return panes
}

// lessPath orders two layout paths lexicographically.
func lessPath(a, b workspace.Path) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// FocusDirectional finds the nearest pane from current in the requested
// direction: candidates are panes whose centre lies strictly past
// current's centre on the primary axis, ranked by distance on that axis
// with ties broken by the closest centre on the orthogonal axis.
func (idx *Index) FocusDirectional(projectID string, current workspace.Path, dir Direction) (workspace.Path, bool) {
	currentBounds, ok := idx.Get(projectID, current)
	if !ok {
		return nil, false
	}

	panes := idx.sortedPanes(projectID)

	var best *pane
	var bestPrimary, bestSecondary float64

	for i := range panes {
		p := &panes[i]
		if p.path.Equal(current) {
			continue
		}

		var primary float64
		var candidate bool
		switch dir {
		case Right:
			primary = p.bounds.centerX() - currentBounds.centerX()
			candidate = primary > 0
		case Left:
			primary = currentBounds.centerX() - p.bounds.centerX()
			candidate = primary > 0
		case Down:
			primary = p.bounds.centerY() - currentBounds.centerY()
			candidate = primary > 0
		case Up:
			primary = currentBounds.centerY() - p.bounds.centerY()
			candidate = primary > 0
		}
		if !candidate {
			continue
		}

		var secondary float64
		if dir == Left || dir == Right {
			secondary = abs(p.bounds.centerY() - currentBounds.centerY())
		} else {
			secondary = abs(p.bounds.centerX() - currentBounds.centerX())
		}

		if best == nil || primary < bestPrimary || (primary == bestPrimary && secondary < bestSecondary) {
			best = p
			bestPrimary = primary
			bestSecondary = secondary
		}
	}

	if best == nil {
		return nil, false
	}
	return best.path, true
}

// FocusSequential orders every registered pane in projectID
// lexicographically by layout path and returns the next (forward=true)
// or previous (forward=false) one after current, wrapping around.
func (idx *Index) FocusSequential(projectID string, current workspace.Path, forward bool) (workspace.Path, bool) {
	panes := idx.sortedPanes(projectID)
	if len(panes) == 0 {
		return nil, false
	}

	currentIdx := -1
	for i, p := range panes {
		if p.path.Equal(current) {
			currentIdx = i
			break
		}
	}
	if currentIdx == -1 {
		return panes[0].path, true
	}

	var next int
	if forward {
		next = (currentIdx + 1) % len(panes)
	} else {
		next = (currentIdx - 1 + len(panes)) % len(panes)
	}
	return panes[next].path, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
