package workspace

import "github.com/okena-dev/okena/internal/errs"

// resolve walks root by path and returns the node at that path. The empty
// path returns root itself. This is the "index" half of index-and-rewrite:
// paths are resolved fresh on every call instead of being cached via
// parent pointers.
func resolve(root *Layout, path Path) (*Layout, error) {
	node := root
	for _, idx := range path {
		if node == nil || idx < 0 || idx >= len(node.Children) {
			return nil, errs.InvalidLayoutPath(path)
		}
		node = node.Children[idx]
	}
	if node == nil {
		return nil, errs.InvalidLayoutPath(path)
	}
	return node, nil
}

// resolveParent walks root by path[:len-1] and returns that parent node
// plus the final index, so callers can splice path's child slot — the
// "rewrite" half of index-and-rewrite. path must be non-empty.
func resolveParent(root *Layout, path Path) (parent *Layout, index int, err error) {
	if len(path) == 0 {
		return nil, 0, errs.InvalidLayoutPath(path)
	}
	parent, err = resolve(root, path[:len(path)-1])
	if err != nil {
		return nil, 0, err
	}
	index = path[len(path)-1]
	if index < 0 || index >= len(parent.Children) {
		return nil, 0, errs.InvalidLayoutPath(path)
	}
	return parent, index, nil
}

// findTerminalPath walks root depth-first looking for the Terminal leaf
// whose TerminalID equals id. Invariant (4) (terminal_id appears at most
// once) guarantees the result, if any, is unique.
func findTerminalPath(root *Layout, id string) (Path, bool) {
	if root == nil {
		return nil, false
	}
	var walk func(node *Layout, prefix Path) (Path, bool)
	walk = func(node *Layout, prefix Path) (Path, bool) {
		if node.Kind == KindTerminal {
			if node.TerminalID != nil && *node.TerminalID == id {
				return prefix.Clone(), true
			}
			return nil, false
		}
		for i, child := range node.Children {
			if p, ok := walk(child, append(prefix.Clone(), i)); ok {
				return p, true
			}
		}
		return nil, false
	}
	return walk(root, Path{})
}

// collectUninitializedTerminals returns the paths of every Terminal leaf
// in root whose TerminalID is still nil — freshly created or split leaves
// awaiting PTY materialisation by the action dispatcher.
func collectUninitializedTerminals(root *Layout) []Path {
	var out []Path
	if root == nil {
		return out
	}
	var walk func(node *Layout, prefix Path)
	walk = func(node *Layout, prefix Path) {
		if node.Kind == KindTerminal {
			if node.TerminalID == nil {
				out = append(out, prefix.Clone())
			}
			return
		}
		for i, child := range node.Children {
			walk(child, append(prefix.Clone(), i))
		}
	}
	walk(root, Path{})
	return out
}

// normalizeSizes clamps non-positive entries to a small epsilon and
// rescales the slice so it sums to 100, tolerating the caller's input not
// already summing to 100 (per the Split.sizes invariant's render-time
// re-normalisation allowance).
func normalizeSizes(sizes []float64) []float64 {
	const epsilon = 0.01
	out := make([]float64, len(sizes))
	var sum float64
	for i, s := range sizes {
		if s <= 0 {
			s = epsilon
		}
		out[i] = s
		sum += s
	}
	if sum <= 0 {
		for i := range out {
			out[i] = 100 / float64(len(out))
		}
		return out
	}
	for i := range out {
		out[i] = out[i] / sum * 100
	}
	return out
}

// evenSizes returns n sizes each of 100/n, used when a new Split/Tabs
// child is inserted without explicit sizing.
func evenSizes(n int) []float64 {
	if n <= 0 {
		return nil
	}
	sizes := make([]float64, n)
	for i := range sizes {
		sizes[i] = 100 / float64(n)
	}
	return sizes
}

// collectTerminalIDs returns every non-nil terminal_id present in root, in
// depth-first order. Used to validate invariant (4) in tests and to know
// which registry entries a project removal must also evict.
func collectTerminalIDs(root *Layout) []string {
	var out []string
	if root == nil {
		return out
	}
	var walk func(node *Layout)
	walk = func(node *Layout) {
		if node.Kind == KindTerminal {
			if node.TerminalID != nil {
				out = append(out, *node.TerminalID)
			}
			return
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(root)
	return out
}
