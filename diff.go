package pathtree

import (
	"errors"
	"fmt"
)

// Change describes one difference between two trees. Added with Removed
// signifies a value that changed in place; Old and New hold the nodes on
// either side, and a whole added or removed subtree is reported once at its
// root.
type Change struct {
	Path    Path
	Added   bool
	Removed bool
	Old     *Node
	New     *Node
}

var errStopDiff = errors.New("stop")

// Diff invokes the given callback for every difference between old and t.
// Subtrees the two trees share are skipped without being visited, so the
// cost follows the size of the change rather than of the trees. The
// iteration stops if the callback returns keepGoing==false or an error.
func (t *Tree) Diff(old *Tree, f func(Change) (keepGoing bool, err error)) error {
	var oldRoot *Node
	if old != nil {
		oldRoot = old.root
	}
	err := diffNodes(Path{}, oldRoot, t.root, f)
	if errors.Is(err, errStopDiff) {
		return nil
	}
	return err
}

func diffNodes(path Path, o, n *Node, f func(Change) (bool, error)) error {
	if o == n {
		return nil
	}
	emit := func(c Change) error {
		keepGoing, err := f(c)
		if err != nil {
			return fmt.Errorf("callback: %w", err)
		}
		if !keepGoing {
			return errStopDiff
		}
		return nil
	}
	switch {
	case o == nil:
		return emit(Change{Path: path, Added: true, New: n})
	case n == nil:
		return emit(Change{Path: path, Removed: true, Old: o})
	case o.kind != n.kind:
		return emit(Change{Path: path, Added: true, Removed: true, Old: o, New: n})
	case !n.IsBranch():
		if scalarsEqual(o, n) {
			return nil
		}
		return emit(Change{Path: path, Added: true, Removed: true, Old: o, New: n})
	case n.kind == Array:
		for i := 0; i < len(n.children) || i < len(o.children); i++ {
			var oc, nc *Node
			if i < len(o.children) {
				oc = o.children[i]
			}
			if i < len(n.children) {
				nc = n.children[i]
			}
			if err := diffNodes(path.Append(Index(i)), oc, nc, f); err != nil {
				return err
			}
		}
		return nil
	}
	for i, k := range n.keys {
		oc, _ := o.Child(Field(k))
		if err := diffNodes(path.Append(Field(k)), oc, n.children[i], f); err != nil {
			return err
		}
	}
	for i, k := range o.keys {
		if _, ok := n.Child(Field(k)); ok {
			continue
		}
		if err := diffNodes(path.Append(Field(k)), o.children[i], nil, f); err != nil {
			return err
		}
	}
	return nil
}
