package pathtree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies what a Node holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// objects at least this wide get a field index at construction
const indexThreshold = 8

// MaxArrayPad is the most null elements a single write may add past the end
// of an array.
const MaxArrayPad = 1 << 16

// Node is a leaf scalar or a branch of children. Nodes are never modified
// once constructed, so they may be shared freely between trees and
// goroutines.
type Node struct {
	kind     Kind
	scalar   interface{}
	keys     []string
	children []*Node
	index    map[string]int
}

// Doc is an Object in plain form whose member order is significant.
type Doc []Member

// Member is one field of a Doc.
type Member struct {
	Key   string
	Value interface{}
}

// Kind returns the node's kind.
func (n *Node) Kind() Kind {
	return n.kind
}

// IsBranch indicates the node is an Object or an Array.
func (n *Node) IsBranch() bool {
	return n.kind == Object || n.kind == Array
}

// Scalar returns a leaf's value, or nil for branches.
func (n *Node) Scalar() interface{} {
	return n.scalar
}

// Len returns the number of children of a branch, or 0 for leaves.
func (n *Node) Len() int {
	return len(n.children)
}

// Keys returns the keys of a branch's children in order.
func (n *Node) Keys() []Key {
	keys := make([]Key, len(n.children))
	for i := range n.children {
		keys[i] = n.keyAt(i)
	}
	return keys
}

func (n *Node) keyAt(i int) Key {
	if n.kind == Array {
		return Index(i)
	}
	return Field(n.keys[i])
}

// Child returns the child at the given key. Keys of the wrong kind for the
// branch, and any key on a leaf, are not found.
func (n *Node) Child(k Key) (*Node, bool) {
	i, ok := n.find(k)
	if !ok {
		return nil, false
	}
	return n.children[i], true
}

func (n *Node) find(k Key) (int, bool) {
	switch n.kind {
	case Array:
		if !k.isIndex || k.index < 0 || k.index >= len(n.children) {
			return 0, false
		}
		return k.index, true
	case Object:
		if k.isIndex {
			return 0, false
		}
		if n.index != nil {
			i, ok := n.index[k.field]
			return i, ok
		}
		for i, f := range n.keys {
			if f == k.field {
				return i, true
			}
		}
	}
	return 0, false
}

// Range invokes f for each child in order until f returns false.
func (n *Node) Range(f func(Key, *Node) bool) {
	for i, c := range n.children {
		if !f(n.keyAt(i), c) {
			return
		}
	}
}

func newLeaf(kind Kind, v interface{}) *Node {
	return &Node{kind: kind, scalar: v}
}

func newObject(keys []string, children []*Node) *Node {
	n := &Node{kind: Object, keys: keys, children: children}
	if len(keys) >= indexThreshold {
		n.index = make(map[string]int, len(keys))
		for i, k := range keys {
			n.index[k] = i
		}
	}
	return n
}

func newArray(children []*Node) *Node {
	return &Node{kind: Array, children: children}
}

func emptyBranchFor(k Key) *Node {
	if k.isIndex {
		return newArray(nil)
	}
	return newObject(nil, nil)
}

// with returns a copy of the branch with the child at k replaced or
// added. All other children are shared with n.
func (n *Node) with(k Key, child *Node) (*Node, error) {
	switch n.kind {
	case Object:
		if k.isIndex {
			return nil, fmt.Errorf("%w: index %d into object", ErrInvalidPath, k.index)
		}
		i, ok := n.find(k)
		keys := n.keys
		children := make([]*Node, len(n.children), len(n.children)+1)
		copy(children, n.children)
		if ok {
			children[i] = child
		} else {
			keys = make([]string, len(n.keys), len(n.keys)+1)
			copy(keys, n.keys)
			keys = append(keys, k.field)
			children = append(children, child)
		}
		return newObject(keys, children), nil
	case Array:
		if !k.isIndex {
			return nil, fmt.Errorf("%w: field %q into array", ErrInvalidPath, k.field)
		}
		if k.index-len(n.children) > MaxArrayPad {
			return nil, fmt.Errorf("%w: index %d is more than %d past the end of a %d element array",
				ErrInvalidPath, k.index, MaxArrayPad, len(n.children))
		}
		size := len(n.children)
		if k.index >= size {
			size = k.index + 1
		}
		children := make([]*Node, size)
		copy(children, n.children)
		for i := len(n.children); i < k.index; i++ {
			children[i] = newLeaf(Null, nil)
		}
		children[k.index] = child
		return newArray(children), nil
	}
	return nil, fmt.Errorf("%w: %v is not a branch", ErrInvalidPath, n.kind)
}

// without returns a copy of the branch lacking its i'th child.
func (n *Node) without(i int) *Node {
	children := make([]*Node, 0, len(n.children)-1)
	children = append(children, n.children[:i]...)
	children = append(children, n.children[i+1:]...)
	if n.kind == Array {
		return newArray(children)
	}
	keys := make([]string, 0, len(n.keys)-1)
	keys = append(keys, n.keys[:i]...)
	keys = append(keys, n.keys[i+1:]...)
	return newObject(keys, children)
}

// Equal reports whether two nodes hold the same data. Shared subtrees are
// not descended into.
func (n *Node) Equal(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil || n.kind != o.kind || len(n.children) != len(o.children) {
		return false
	}
	switch n.kind {
	case Null:
		return true
	case Bool, Number, String:
		return scalarsEqual(n, o)
	case Object:
		for i, k := range n.keys {
			c, ok := o.Child(Field(k))
			if !ok || !n.children[i].Equal(c) {
				return false
			}
		}
		return true
	case Array:
		for i := range n.children {
			if !n.children[i].Equal(o.children[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Plain converts the node to plain Go values: map[string]interface{} for
// objects, []interface{} for arrays and the raw scalar for leaves.
func (n *Node) Plain() interface{} {
	switch n.kind {
	case Object:
		m := make(map[string]interface{}, len(n.children))
		for i, k := range n.keys {
			m[k] = n.children[i].Plain()
		}
		return m
	case Array:
		a := make([]interface{}, len(n.children))
		for i, c := range n.children {
			a[i] = c.Plain()
		}
		return a
	}
	return n.scalar
}

// Doc is like Plain but represents objects as Docs, keeping member order.
func (n *Node) Doc() interface{} {
	switch n.kind {
	case Object:
		d := make(Doc, len(n.children))
		for i, k := range n.keys {
			d[i] = Member{k, n.children[i].Doc()}
		}
		return d
	case Array:
		a := make([]interface{}, len(n.children))
		for i, c := range n.children {
			a[i] = c.Doc()
		}
		return a
	}
	return n.scalar
}

func (n *Node) String() string {
	var b strings.Builder
	n.dump(&b, "")
	return b.String()
}

func (n *Node) dump(b *strings.Builder, indent string) {
	switch n.kind {
	case Object, Array:
		if n.kind == Object {
			b.WriteString("{\n")
		} else {
			b.WriteString("[\n")
		}
		for i, c := range n.children {
			b.WriteString(indent + "   ")
			b.WriteString(n.keyAt(i).String())
			b.WriteString(": ")
			c.dump(b, indent+"   ")
		}
		b.WriteString(indent)
		if n.kind == Object {
			b.WriteString("}\n")
		} else {
			b.WriteString("]\n")
		}
	case String:
		fmt.Fprintf(b, "%q\n", n.scalar)
	case Null:
		b.WriteString("null\n")
	default:
		fmt.Fprintf(b, "%v\n", n.scalar)
	}
}

// scalarsEqual compares two leaves of the same kind. Numbers compare by
// value regardless of their Go type.
func scalarsEqual(a, b *Node) bool {
	if a.kind != Number {
		return a.scalar == b.scalar
	}
	x, err := normalizeNumber(a.scalar)
	if err != nil {
		return false
	}
	y, err := normalizeNumber(b.scalar)
	if err != nil {
		return false
	}
	switch xv := x.(type) {
	case int64:
		switch yv := y.(type) {
		case int64:
			return xv == yv
		case uint64:
			return xv >= 0 && uint64(xv) == yv
		}
	case uint64:
		switch yv := y.(type) {
		case int64:
			return yv >= 0 && uint64(yv) == xv
		case uint64:
			return xv == yv
		}
	}
	return toFloat(x) == toFloat(y)
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return v.(float64)
}

// scalarKind classifies a plain scalar, reporting false for anything that is
// not one.
func scalarKind(v interface{}) (Kind, bool) {
	switch v.(type) {
	case nil:
		return Null, true
	case bool:
		return Bool, true
	case string:
		return String, true
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return Number, true
	}
	return 0, false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
