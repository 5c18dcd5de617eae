package pathtree

import "fmt"

// PatchOp names the kind of write a Patch records.
type PatchOp string

const (
	// OpAdd sets a path that did not resolve before the write.
	OpAdd PatchOp = "add"
	// OpReplace sets a path that already resolved. An empty path replaces
	// the root.
	OpReplace PatchOp = "replace"
	// OpRemove deletes a path.
	OpRemove PatchOp = "remove"
)

// Patch is one recorded write. Value is attached by reference when the
// patch is applied.
type Patch struct {
	Op    PatchOp
	Path  Path
	Value *Node
}

func (p Patch) String() string {
	if p.Op == OpRemove {
		return fmt.Sprintf("%s %v", p.Op, p.Path)
	}
	return fmt.Sprintf("%s %v = %v", p.Op, p.Path, p.Value.Plain())
}

// Draft records writes made by a Produce recipe. Each write is applied to a
// working tree with SetIn or DeleteIn, so reads through the draft observe
// earlier writes, while the base tree is untouched.
type Draft struct {
	base    *Tree
	current *Tree
	patches []Patch
	inverse []Patch
}

// Base returns the tree the draft started from.
func (d *Draft) Base() *Tree {
	return d.base
}

// Current returns the tree as of the latest write.
func (d *Draft) Current() *Tree {
	return d.current
}

// Get returns the node at path as of the latest write.
func (d *Draft) Get(path Path) (*Node, bool) {
	return d.current.GetIn(path)
}

// Has indicates the path resolves as of the latest write.
func (d *Draft) Has(path Path) bool {
	return d.current.Has(path)
}

// Set writes value at path, as Tree.SetIn.
func (d *Draft) Set(path Path, value interface{}) error {
	next, err := d.current.SetIn(path, value)
	if err != nil {
		return err
	}
	if next == d.current {
		return nil
	}
	written, _ := next.GetIn(path)
	op := OpAdd
	if d.current.Has(path) {
		op = OpReplace
	}
	d.patches = append(d.patches, Patch{op, path.clone(), written})
	d.inverse = append(d.inverse, inverseOfSet(d.current, path))
	d.current = next
	return nil
}

// Delete removes the node at path, as Tree.DeleteIn.
func (d *Draft) Delete(path Path) error {
	next, err := d.current.DeleteIn(path)
	if err != nil {
		return err
	}
	if next == d.current {
		return nil
	}
	parentPath := path[:len(path)-1].clone()
	parent, _ := d.current.GetIn(parentPath)
	d.patches = append(d.patches, Patch{OpRemove, path.clone(), nil})
	d.inverse = append(d.inverse, Patch{OpReplace, parentPath, parent})
	d.current = next
	return nil
}

// Append adds value to the end of the array at path. A missing or leaf
// node at path becomes a one-element array.
func (d *Draft) Append(path Path, value interface{}) error {
	i := 0
	if n, ok := d.current.GetIn(path); ok && n.kind == Array {
		i = n.Len()
	}
	return d.Set(path.Append(Index(i)), value)
}

// inverseOfSet returns the patch undoing SetIn(path) on t. If path did not
// resolve, the topmost node the write would create is removed when that
// leaves its parent as it was; otherwise the deepest existing ancestor is
// restored whole.
func inverseOfSet(t *Tree, path Path) Patch {
	if old, ok := t.GetIn(path); ok {
		return Patch{OpReplace, path.clone(), old}
	}
	k := 0
	ancestor := t.root
	for ; k < len(path); k++ {
		child, ok := ancestor.Child(path[k])
		if !ok {
			break
		}
		ancestor = child
	}
	key := path[k]
	if ancestor.kind == Object || ancestor.kind == Array && key.index == ancestor.Len() {
		return Patch{OpRemove, path[:k+1].clone(), nil}
	}
	return Patch{OpReplace, path[:k].clone(), ancestor}
}

// Produce runs recipe against a draft of t and returns the resulting tree.
// If the recipe fails, t is returned with the error.
func (t *Tree) Produce(recipe func(*Draft) error) (*Tree, error) {
	next, _, _, err := t.ProduceWithPatches(recipe)
	return next, err
}

// ProduceWithPatches is like Produce but also returns the patches recorded
// by the recipe, and the inverse patches that turn the result back into t.
func (t *Tree) ProduceWithPatches(recipe func(*Draft) error) (*Tree, []Patch, []Patch, error) {
	d := &Draft{base: t, current: t}
	if err := recipe(d); err != nil {
		return t, nil, nil, fmt.Errorf("recipe: %w", err)
	}
	inverse := make([]Patch, len(d.inverse))
	for i, p := range d.inverse {
		inverse[len(inverse)-1-i] = p
	}
	return d.current, d.patches, inverse, nil
}

// ApplyPatches applies patches in order.
func (t *Tree) ApplyPatches(patches []Patch) (*Tree, error) {
	cur := t
	for i, p := range patches {
		var err error
		switch p.Op {
		case OpAdd, OpReplace:
			if len(p.Path) == 0 && p.Op == OpReplace {
				cur = FromNode(p.Value)
				continue
			}
			cur, err = cur.SetIn(p.Path, p.Value)
		case OpRemove:
			cur, err = cur.DeleteIn(p.Path)
		default:
			err = fmt.Errorf("unknown op %q", p.Op)
		}
		if err != nil {
			return nil, fmt.Errorf("patch %d (%v): %w", i, p.Op, err)
		}
	}
	return cur, nil
}

func (p Path) clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}
