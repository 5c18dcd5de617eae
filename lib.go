package pathtree

import "fmt"

// pathEntry records a branch visited on the way to a target, and the key
// followed out of it.
type pathEntry struct {
	node *Node
	key  Key
}

// findPath descends from node along path, recording the branches passed
// through. When a step is missing, or lands on a leaf that must be
// descended through, an empty branch of the kind the next key needs stands
// in for it. The returned node is the current occupant of the target, or
// nil.
func findPath(node *Node, path Path) ([]pathEntry, *Node, error) {
	entries := make([]pathEntry, 0, len(path))
	for i, k := range path {
		if node == nil || !node.IsBranch() {
			node = emptyBranchFor(k)
		} else if node.kind == Array && !k.isIndex || node.kind == Object && k.isIndex {
			return nil, nil, fmt.Errorf("%w: %v at %v is %v", ErrInvalidPath, k, path[:i], node.kind)
		}
		entries = append(entries, pathEntry{node, k})
		child, ok := node.Child(k)
		if !ok {
			child = nil
		}
		node = child
	}
	return entries, node, nil
}

// savePath rebuilds the recorded branches bottom-up with replacement at the
// far end, sharing every child that is off the path.
func savePath(entries []pathEntry, replacement *Node) (*Node, error) {
	node := replacement
	for i := len(entries) - 1; i >= 0; i-- {
		var err error
		node, err = entries[i].node.with(entries[i].key, node)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

func assoc(root *Node, path Path, value *Node) (*Node, error) {
	entries, _, err := findPath(root, path)
	if err != nil {
		return nil, err
	}
	return savePath(entries, value)
}

// dissoc removes the last key of path, which must resolve.
func dissoc(root *Node, path Path) *Node {
	entries, _, err := findPath(root, path)
	if err != nil {
		panic(fmt.Sprintf("dissoc of resolved path %v: %v", path, err))
	}
	last := entries[len(entries)-1]
	i, ok := last.node.find(last.key)
	if !ok {
		panic(fmt.Sprintf("dissoc of missing key %v", last.key))
	}
	parent := last.node.without(i)
	node, err := savePath(entries[:len(entries)-1], parent)
	if err != nil {
		panic(fmt.Sprintf("dissoc save %v: %v", path, err))
	}
	return node
}
