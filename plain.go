package pathtree

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// FromPlain builds a tree from plain Go data: scalars, slices, maps with
// string keys and Docs. Map members are added in sorted key order since Go
// maps have none of their own; use a Doc to choose the order. A *Node or
// *Tree is used as-is.
func FromPlain(v interface{}) (*Tree, error) {
	n, err := nodeFromPlain(v)
	if err != nil {
		return nil, err
	}
	return &Tree{root: n}, nil
}

// MustFromPlain is like FromPlain but panics on error.
func MustFromPlain(v interface{}) *Tree {
	t, err := FromPlain(v)
	if err != nil {
		panic(err)
	}
	return t
}

func nodeFromPlain(v interface{}) (*Node, error) {
	if kind, ok := scalarKind(v); ok {
		if num, isNum := v.(json.Number); isNum {
			if _, err := normalizeNumber(num); err != nil {
				return nil, fmt.Errorf("%w: number %q", ErrUnsupportedValue, string(num))
			}
		}
		return newLeaf(kind, v), nil
	}
	switch d := v.(type) {
	case *Node:
		if d == nil {
			return newLeaf(Null, nil), nil
		}
		return d, nil
	case *Tree:
		if d == nil {
			return newLeaf(Null, nil), nil
		}
		return d.root, nil
	case Doc:
		keys := make([]string, 0, len(d))
		children := make([]*Node, 0, len(d))
		seen := make(map[string]struct{}, len(d))
		for _, m := range d {
			if _, dup := seen[m.Key]; dup {
				return nil, fmt.Errorf("%w: duplicate member %q", ErrUnsupportedValue, m.Key)
			}
			seen[m.Key] = struct{}{}
			c, err := nodeFromPlain(m.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", escapeField(m.Key), err)
			}
			keys = append(keys, m.Key)
			children = append(children, c)
		}
		return newObject(keys, children), nil
	case map[string]interface{}:
		keys := sortedKeys(d)
		children := make([]*Node, len(keys))
		for i, k := range keys {
			c, err := nodeFromPlain(d[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", escapeField(k), err)
			}
			children[i] = c
		}
		return newObject(keys, children), nil
	case []interface{}:
		children := make([]*Node, len(d))
		for i, e := range d {
			c, err := nodeFromPlain(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			children[i] = c
		}
		return newArray(children), nil
	}
	return nodeFromReflected(reflect.ValueOf(v))
}

func nodeFromReflected(rv reflect.Value) (*Node, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		children := make([]*Node, rv.Len())
		for i := range children {
			c, err := nodeFromPlain(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			children[i] = c
		}
		return newArray(children), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map with %v keys", ErrUnsupportedValue, rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		children := make([]*Node, len(keys))
		for i, k := range keys {
			c, err := nodeFromPlain(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", escapeField(k), err)
			}
			children[i] = c
		}
		return newObject(keys, children), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, rv.Type())
}
