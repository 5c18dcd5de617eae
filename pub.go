package pathtree

import (
	"fmt"
)

// Tree is an immutable version of a nested structure. Updates return new
// Trees that share every subtree not on the updated path with the original.
// A Tree may be read from any number of goroutines.
type Tree struct {
	root *Node
}

// New returns a tree whose root is an empty object.
func New() *Tree {
	return &Tree{root: newObject(nil, nil)}
}

// FromNode returns a tree rooted at n.
func FromNode(n *Node) *Tree {
	if n == nil {
		n = newLeaf(Null, nil)
	}
	return &Tree{root: n}
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// GetIn returns the node at the given path. It returns false if the path
// passes through a leaf, names a missing child, or uses a key of the wrong
// kind for a branch along the way. An empty path returns the root.
func (t *Tree) GetIn(path Path) (*Node, bool) {
	node := t.root
	for _, k := range path {
		var ok bool
		node, ok = node.Child(k)
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Has indicates the path resolves to a node, which may be a null leaf.
func (t *Tree) Has(path Path) bool {
	_, ok := t.GetIn(path)
	return ok
}

// SetIn returns a tree with the value at the given path replaced. Only the
// branches from the root to the target are copied. Missing or leaf
// intermediates are replaced by new empty branches: an array when the next
// key is an index, otherwise an object. Writing past the end of an array
// pads it with nulls, up to MaxArrayPad of them.
//
// The value may be a scalar, plain data as accepted by FromPlain, a *Node
// or a *Tree, whose nodes are attached by reference.
func (t *Tree) SetIn(path Path, value interface{}) (*Tree, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if err := path.validate(); err != nil {
		return nil, err
	}
	leaf, err := nodeFromPlain(value)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	if existing, ok := t.GetIn(path); ok && sameValue(existing, leaf) {
		return t, nil
	}
	root, err := assoc(t.root, path, leaf)
	if err != nil {
		return nil, fmt.Errorf("set %v: %w", path, err)
	}
	return &Tree{root: root}, nil
}

// UpdateIn calls f with the node at path, or false if there is none, and
// sets the path to the returned value.
func (t *Tree) UpdateIn(path Path, f func(*Node, bool) (interface{}, error)) (*Tree, error) {
	current, ok := t.GetIn(path)
	value, err := f(current, ok)
	if err != nil {
		return nil, fmt.Errorf("update %v: %w", path, err)
	}
	return t.SetIn(path, value)
}

// DeleteIn returns a tree without the node at path. Later elements of an
// array shift down. Deleting a path that does not resolve returns t.
func (t *Tree) DeleteIn(path Path) (*Tree, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if err := path.validate(); err != nil {
		return nil, err
	}
	if !t.Has(path) {
		return t, nil
	}
	return &Tree{root: dissoc(t.root, path)}, nil
}

// ToPlain converts the tree to plain Go data; see Node.Plain. The result
// shares nothing with the tree.
func (t *Tree) ToPlain() interface{} {
	return t.root.Plain()
}

// ToDoc converts the tree to plain Go data with objects as ordered Docs.
func (t *Tree) ToDoc() interface{} {
	return t.root.Doc()
}

// Equal reports whether two trees hold the same data.
func (t *Tree) Equal(o *Tree) bool {
	if o == nil {
		return false
	}
	return t.root.Equal(o.root)
}

func (t *Tree) String() string {
	return t.root.String()
}

// sameValue reports whether replacing a with b would change nothing.
func sameValue(a, b *Node) bool {
	if a == b {
		return true
	}
	return !a.IsBranch() && !b.IsBranch() && a.kind == b.kind && a.scalar == b.scalar
}
