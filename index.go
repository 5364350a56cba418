package vdiff

import (
	"errors"
	"fmt"
)

// NodePath represents the traversal steps from the root to a target node.
// Example: [0, 1, 3] means root -> child[0] -> child[1] -> child[3]
type NodePath []int

// Preorder numbers the tree under root depth-first, parent before children,
// one position per node of any kind. It is the numbering Diff assigns and
// Patch resolves, so a position always addresses the same logical node in
// both. Returning false from visit stops the walk.
func Preorder[N any](root N, children func(N) []N, visit func(pos int, n, parent N, hasParent bool) bool) {
	pos := 0
	var zero N
	var walk func(n, parent N, hasParent bool) bool
	walk = func(n, parent N, hasParent bool) bool {
		if !visit(pos, n, parent, hasParent) {
			return false
		}
		pos++
		for _, c := range children(n) {
			if !walk(c, n, true) {
				return false
			}
		}
		return true
	}
	walk(root, zero, false)
}

// Positions returns the nodes of a virtual tree indexed by position.
func Positions(root Node) []Node {
	if root == nil {
		return nil
	}
	nodes := make([]Node, 0, 1+Count(root))
	Preorder(root, childrenOf, func(_ int, n, _ Node, _ bool) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// Lookup traverses the tree using the provided path to find a specific node.
func Lookup(root Node, path NodePath) (Node, error) {
	current := root
	for i, index := range path {
		children := childrenOf(current)
		if index < 0 || index >= len(children) {
			return nil, fmt.Errorf("node not found at path %v (failed at index %d, step %d)", path, index, i)
		}
		current = children[index]
	}
	return current, nil
}

// PathOf converts a position into the child-index path from root.
// It descends by skipping whole sibling subtrees using their counts.
func PathOf(root Node, pos int) (NodePath, error) {
	if root == nil || pos < 0 || pos > Count(root) {
		return nil, fmt.Errorf("position %d out of range", pos)
	}
	path := NodePath{}
	current, at := root, 0
	for at != pos {
		next := at + 1
		found := false
		for i, c := range childrenOf(current) {
			if pos < next+1+Count(c) {
				path = append(path, i)
				current, at = c, next
				found = true
				break
			}
			next += 1 + Count(c)
		}
		if !found {
			return nil, errors.New("integrity error: position not covered by children")
		}
	}
	return path, nil
}

// contains reports whether position q lies strictly inside the subtree rooted
// at position p of node n.
func contains(p int, n Node, q int) bool {
	return q > p && q <= p+Count(n)
}
