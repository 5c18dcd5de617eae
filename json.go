package pathtree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// FromJSON decodes a JSON document into a tree, keeping object members in
// document order. Integral numbers become int64 and others float64.
func FromJSON(data []byte) (*Tree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeJSONNode(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrUnsupportedValue)
	}
	return &Tree{root: n}, nil
}

func decodeJSONNode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			var keys []string
			var children []*Node
			seen := map[string]struct{}{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key := kt.(string)
				if _, dup := seen[key]; dup {
					return nil, fmt.Errorf("duplicate member %q", key)
				}
				seen[key] = struct{}{}
				c, err := decodeJSONNode(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", escapeField(key), err)
				}
				keys = append(keys, key)
				children = append(children, c)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return newObject(keys, children), nil
		case '[':
			var children []*Node
			for dec.More() {
				c, err := decodeJSONNode(dec)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", len(children), err)
				}
				children = append(children, c)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return newArray(children), nil
		}
		return nil, fmt.Errorf("unexpected %v", v)
	case json.Number:
		if i, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return newLeaf(Number, i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return newLeaf(Number, f), nil
	case nil:
		return newLeaf(Null, nil), nil
	case bool:
		return newLeaf(Bool, v), nil
	case string:
		return newLeaf(String, v), nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

// MarshalJSON encodes the tree with object members in tree order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return t.root.MarshalJSON()
}

// MarshalJSON encodes the node with object members in node order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encodeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encodeJSON(buf *bytes.Buffer) error {
	switch n.kind {
	case Object:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := n.children[i].encodeJSON(buf); err != nil {
				return fmt.Errorf("%s: %w", escapeField(k), err)
			}
		}
		buf.WriteByte('}')
		return nil
	case Array:
		buf.WriteByte('[')
		for i, c := range n.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := c.encodeJSON(buf); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	}
	b, err := json.Marshal(n.scalar)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
