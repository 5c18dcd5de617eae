package pathtree

import (
	"fmt"
	"strconv"
	"strings"
)

// A Key addresses one child of a branch: a field name of an Object or an
// index into an Array.
type Key struct {
	field   string
	index   int
	isIndex bool
}

// Field returns a Key naming an Object member.
func Field(name string) Key {
	return Key{field: name}
}

// Index returns a Key addressing an Array element. Negative indices are
// representable but rejected by every operation with ErrInvalidPath.
func Index(i int) Key {
	return Key{index: i, isIndex: true}
}

// IsIndex indicates the key addresses an Array element.
func (k Key) IsIndex() bool {
	return k.isIndex
}

// Name returns the field name; it is empty for index keys.
func (k Key) Name() string {
	return k.field
}

// Position returns the array index; it is zero for field keys.
func (k Key) Position() int {
	return k.index
}

func (k Key) valid() bool {
	return !k.isIndex || k.index >= 0
}

// Order returns -1 if the argument sorts after this key, 1 if before, and 0
// if equal. Index keys sort before field keys.
func (k Key) Order(o Key) int {
	switch {
	case k.isIndex && !o.isIndex:
		return -1
	case !k.isIndex && o.isIndex:
		return 1
	case k.isIndex:
		if k.index < o.index {
			return -1
		} else if k.index > o.index {
			return 1
		}
		return 0
	}
	return strings.Compare(k.field, o.field)
}

func (k Key) String() string {
	if k.isIndex {
		return "[" + strconv.Itoa(k.index) + "]"
	}
	return escapeField(k.field)
}

// Path is an ordered sequence of keys locating a node by successive descent
// from the root.
type Path []Key

// PathOf builds a Path from strings, Go integers and Keys.
func PathOf(segments ...interface{}) (Path, error) {
	path := make(Path, 0, len(segments))
	for i, s := range segments {
		var k Key
		switch v := s.(type) {
		case Key:
			k = v
		case string:
			k = Field(v)
		case int:
			k = Index(v)
		case int8:
			k = Index(int(v))
		case int16:
			k = Index(int(v))
		case int32:
			k = Index(int(v))
		case int64:
			k = Index(int(v))
		case uint:
			k = Index(int(v))
		case uint8:
			k = Index(int(v))
		case uint16:
			k = Index(int(v))
		case uint32:
			k = Index(int(v))
		case uint64:
			k = Index(int(v))
		default:
			return nil, fmt.Errorf("%w: segment %d has type %T", ErrInvalidPath, i, s)
		}
		if !k.valid() {
			return nil, fmt.Errorf("%w: segment %d is negative index %d", ErrInvalidPath, i, k.index)
		}
		path = append(path, k)
	}
	return path, nil
}

// MustPath is like PathOf but panics on error.
func MustPath(segments ...interface{}) Path {
	p, err := PathOf(segments...)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePath parses dotted field names with bracketed indices, e.g.
// "todos[1].done". A backslash escapes the next character, so a field
// containing '.', '[' or '\' can be written as "a\.b".
func ParsePath(s string) (Path, error) {
	var path Path
	if s == "" {
		return path, nil
	}
	var field strings.Builder
	pendingField := false
	afterIndex := false
	flush := func() {
		if pendingField {
			path = append(path, Field(field.String()))
			field.Reset()
			pendingField = false
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("%w: trailing escape in %q", ErrInvalidPath, s)
			}
			i++
			field.WriteByte(s[i])
			pendingField = true
			afterIndex = false
		case '.':
			if !pendingField && !afterIndex {
				return nil, fmt.Errorf("%w: empty field at offset %d in %q", ErrInvalidPath, i, s)
			}
			flush()
			afterIndex = false
			if i == len(s)-1 {
				return nil, fmt.Errorf("%w: trailing '.' in %q", ErrInvalidPath, s)
			}
		case '[':
			flush()
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated index at offset %d in %q", ErrInvalidPath, i, s)
			}
			n, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad index %q in %q", ErrInvalidPath, s[i+1:i+end], s)
			}
			path = append(path, Index(n))
			i += end
			afterIndex = true
		default:
			if afterIndex {
				return nil, fmt.Errorf("%w: missing '.' after index at offset %d in %q", ErrInvalidPath, i, s)
			}
			field.WriteByte(c)
			pendingField = true
		}
	}
	flush()
	return path, nil
}

func (p Path) String() string {
	var b strings.Builder
	for i, k := range p {
		if i > 0 && !k.isIndex {
			b.WriteByte('.')
		}
		b.WriteString(k.String())
	}
	return b.String()
}

// HasPrefix reports whether q is a prefix of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Append returns a new path with k appended, never sharing p's backing array.
func (p Path) Append(k Key) Path {
	n := make(Path, len(p), len(p)+1)
	copy(n, p)
	return append(n, k)
}

func (p Path) validate() error {
	for i, k := range p {
		if !k.valid() {
			return fmt.Errorf("%w: segment %d is negative index %d", ErrInvalidPath, i, k.index)
		}
	}
	return nil
}

func escapeField(s string) string {
	if !strings.ContainsAny(s, `.[]\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
