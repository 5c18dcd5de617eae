package pathtree

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FromYAML decodes a single YAML document into a tree, keeping mapping
// order. Aliases are expanded; mapping keys must be scalars.
func FromYAML(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	if doc.Kind == 0 {
		return &Tree{root: newLeaf(Null, nil)}, nil
	}
	n, err := nodeFromYAML(&doc)
	if err != nil {
		return nil, err
	}
	return &Tree{root: n}, nil
}

func nodeFromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return newLeaf(Null, nil), nil
		}
		return nodeFromYAML(y.Content[0])
	case yaml.AliasNode:
		return nodeFromYAML(y.Alias)
	case yaml.MappingNode:
		keys := make([]string, 0, len(y.Content)/2)
		children := make([]*Node, 0, len(y.Content)/2)
		seen := make(map[string]struct{}, len(y.Content)/2)
		for i := 0; i+1 < len(y.Content); i += 2 {
			k := y.Content[i]
			if k.Kind == yaml.AliasNode {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: line %d: non-scalar mapping key", ErrUnsupportedValue, k.Line)
			}
			if _, dup := seen[k.Value]; dup {
				return nil, fmt.Errorf("%w: line %d: duplicate key %q", ErrUnsupportedValue, k.Line, k.Value)
			}
			seen[k.Value] = struct{}{}
			c, err := nodeFromYAML(y.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", escapeField(k.Value), err)
			}
			keys = append(keys, k.Value)
			children = append(children, c)
		}
		return newObject(keys, children), nil
	case yaml.SequenceNode:
		children := make([]*Node, len(y.Content))
		for i, e := range y.Content {
			c, err := nodeFromYAML(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			children[i] = c
		}
		return newArray(children), nil
	case yaml.ScalarNode:
		var v interface{}
		if err := y.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrUnsupportedValue, y.Line, err)
		}
		kind, ok := scalarKind(v)
		if !ok {
			// anything without a plain kind keeps its source text
			return newLeaf(String, y.Value), nil
		}
		return newLeaf(kind, v), nil
	}
	return nil, fmt.Errorf("%w: line %d: yaml node kind %v", ErrUnsupportedValue, y.Line, y.Kind)
}

// ToYAML encodes the tree as a YAML document with mappings in tree order.
func (t *Tree) ToYAML() ([]byte, error) {
	y, err := t.root.yamlNode()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(y)
}

func (n *Node) yamlNode() (*yaml.Node, error) {
	switch n.kind {
	case Object:
		y := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, k := range n.keys {
			c, err := n.children[i].yamlNode()
			if err != nil {
				return nil, err
			}
			y.Content = append(y.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, c)
		}
		return y, nil
	case Array:
		y := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, c := range n.children {
			cy, err := c.yamlNode()
			if err != nil {
				return nil, err
			}
			y.Content = append(y.Content, cy)
		}
		return y, nil
	case Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.scalar.(bool))}, nil
	case String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.scalar.(string)}, nil
	}
	return yamlNumber(n.scalar)
}

func yamlNumber(v interface{}) (*yaml.Node, error) {
	var f float64
	switch x := v.(type) {
	case float32:
		f = float64(x)
	case float64:
		f = x
	default:
		// integers and json.Number keep their decimal text
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: numberTag(v), Value: fmt.Sprint(v)}, nil
	}
	switch {
	case math.IsNaN(f):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".nan"}, nil
	case math.IsInf(f, 1):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".inf"}, nil
	case math.IsInf(f, -1):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "-.inf"}, nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}, nil
}

func numberTag(v interface{}) string {
	if s, ok := v.(interface{ String() string }); ok {
		if _, err := strconv.ParseInt(s.String(), 10, 64); err != nil {
			return "!!float"
		}
	}
	return "!!int"
}
