package pathtree

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// NodeFormat selects how branches are serialized for persistence.
type NodeFormat uint8

const (
	// BinaryFormat is a compact varint-length-prefixed encoding.
	BinaryFormat NodeFormat = iota
	// ProtoFormat encodes nodes as deterministic protobuf ListValues.
	ProtoFormat
)

func (f NodeFormat) String() string {
	switch f {
	case BinaryFormat:
		return "binary"
	case ProtoFormat:
		return "proto"
	}
	return fmt.Sprintf("NodeFormat(%d)", uint8(f))
}

// a codec encodes one persisted record: a branch whose leaf children are
// inline and whose branch children are links, or a lone leaf at the root.
type codec interface {
	encode(n *Node, link func(*Node) (string, error)) ([]byte, error)
	decode(b []byte, resolve func(string) (*Node, error)) (*Node, error)
}

func codecFor(f NodeFormat) (codec, error) {
	switch f {
	case BinaryFormat:
		return binaryCodec{}, nil
	case ProtoFormat:
		return protoCodec{}, nil
	}
	return nil, fmt.Errorf("unknown node format %v", f)
}

// normalizeNumber maps a number scalar to the int64, uint64 or float64 it
// is persisted as.
func normalizeNumber(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", x, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("not a number: %T", v)
}

const (
	binaryLink  = 0xff
	numberInt   = 'i'
	numberUint  = 'u'
	numberFloat = 'f'
)

type binaryCodec struct{}

func appendLength(buf []byte, n int) []byte {
	var tmpbuf [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(tmpbuf[:], uint64(n))
	return append(buf, tmpbuf[:l]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendLength(buf, len(s))
	return append(buf, s...)
}

func (binaryCodec) encode(n *Node, link func(*Node) (string, error)) ([]byte, error) {
	buf := []byte{byte(n.kind)}
	if !n.IsBranch() {
		return appendScalar(buf, n)
	}
	buf = appendLength(buf, len(n.children))
	for i, c := range n.children {
		if n.kind == Object {
			buf = appendString(buf, n.keys[i])
		}
		var err error
		if c.IsBranch() {
			var l string
			l, err = link(c)
			if err != nil {
				return nil, err
			}
			buf = append(buf, binaryLink)
			buf = appendString(buf, l)
		} else {
			buf = append(buf, byte(c.kind))
			buf, err = appendScalar(buf, c)
			if err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

func appendScalar(buf []byte, n *Node) ([]byte, error) {
	switch n.kind {
	case Null:
		return buf, nil
	case Bool:
		if n.scalar.(bool) {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case String:
		return appendString(buf, n.scalar.(string)), nil
	case Number:
		v, err := normalizeNumber(n.scalar)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case int64:
			buf = append(buf, numberInt)
			return binary.AppendVarint(buf, x), nil
		case uint64:
			buf = append(buf, numberUint)
			return binary.AppendUvarint(buf, x), nil
		case float64:
			buf = append(buf, numberFloat)
			return binary.BigEndian.AppendUint64(buf, math.Float64bits(x)), nil
		}
	}
	return nil, fmt.Errorf("cannot encode %v leaf", n.kind)
}

var errShort = errors.New("short buffer")

type binaryReader struct {
	buf []byte
}

func (r *binaryReader) readByte() (byte, error) {
	if len(r.buf) == 0 {
		return 0, errShort
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b, nil
}

func (r *binaryReader) readLength() (int, error) {
	k, l := binary.Uvarint(r.buf)
	if l <= 0 || k > uint64(len(r.buf)) {
		return 0, errors.New("bad length")
	}
	r.buf = r.buf[l:]
	return int(k), nil
}

func (r *binaryReader) readString() (string, error) {
	n, err := r.readLength()
	if err != nil {
		return "", err
	}
	if len(r.buf) < n {
		return "", errShort
	}
	s := string(r.buf[:n])
	r.buf = r.buf[n:]
	return s, nil
}

func (r *binaryReader) readScalar(kind Kind) (*Node, error) {
	switch kind {
	case Null:
		return newLeaf(Null, nil), nil
	case Bool:
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		return newLeaf(Bool, b != 0), nil
	case String:
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		return newLeaf(String, s), nil
	case Number:
		tag, err := r.readByte()
		if err != nil {
			return nil, err
		}
		switch tag {
		case numberInt:
			v, l := binary.Varint(r.buf)
			if l <= 0 {
				return nil, errors.New("bad varint")
			}
			r.buf = r.buf[l:]
			return newLeaf(Number, v), nil
		case numberUint:
			v, l := binary.Uvarint(r.buf)
			if l <= 0 {
				return nil, errors.New("bad uvarint")
			}
			r.buf = r.buf[l:]
			return newLeaf(Number, v), nil
		case numberFloat:
			if len(r.buf) < 8 {
				return nil, errShort
			}
			v := math.Float64frombits(binary.BigEndian.Uint64(r.buf))
			r.buf = r.buf[8:]
			return newLeaf(Number, v), nil
		}
		return nil, fmt.Errorf("bad number tag %#x", tag)
	}
	return nil, fmt.Errorf("bad leaf kind %d", kind)
}

func (binaryCodec) decode(b []byte, resolve func(string) (*Node, error)) (*Node, error) {
	r := &binaryReader{b}
	k, err := r.readByte()
	if err != nil {
		return nil, err
	}
	kind := Kind(k)
	if kind != Object && kind != Array {
		n, err := r.readScalar(kind)
		if err != nil {
			return nil, err
		}
		if len(r.buf) != 0 {
			return nil, errors.New("trailing bytes")
		}
		return n, nil
	}
	count, err := r.readLength()
	if err != nil {
		return nil, err
	}
	var keys []string
	if kind == Object {
		keys = make([]string, count)
	}
	children := make([]*Node, count)
	for i := 0; i < count; i++ {
		if kind == Object {
			keys[i], err = r.readString()
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", i, err)
			}
		}
		tag, err := r.readByte()
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		if tag == binaryLink {
			l, err := r.readString()
			if err != nil {
				return nil, fmt.Errorf("child %d link: %w", i, err)
			}
			children[i], err = resolve(l)
			if err != nil {
				return nil, err
			}
			continue
		}
		children[i], err = r.readScalar(Kind(tag))
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
	}
	if len(r.buf) != 0 {
		return nil, errors.New("trailing bytes")
	}
	if kind == Array {
		return newArray(children), nil
	}
	return newObject(keys, children), nil
}

type protoCodec struct{}

func (protoCodec) encode(n *Node, link func(*Node) (string, error)) ([]byte, error) {
	v, err := protoRecord(n, link, true)
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func protoList(values ...*structpb.Value) *structpb.ListValue {
	return &structpb.ListValue{Values: values}
}

func protoRecord(n *Node, link func(*Node) (string, error), top bool) (*structpb.ListValue, error) {
	if n.IsBranch() && !top {
		l, err := link(n)
		if err != nil {
			return nil, err
		}
		return protoList(structpb.NewStringValue("link"), structpb.NewStringValue(l)), nil
	}
	tag := structpb.NewStringValue(n.kind.String())
	switch n.kind {
	case Null:
		return protoList(tag), nil
	case Bool:
		return protoList(tag, structpb.NewBoolValue(n.scalar.(bool))), nil
	case String:
		return protoList(tag, structpb.NewStringValue(n.scalar.(string))), nil
	case Number:
		v, err := normalizeNumber(n.scalar)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case int64:
			return protoList(structpb.NewStringValue("int"), structpb.NewStringValue(strconv.FormatInt(x, 10))), nil
		case uint64:
			return protoList(structpb.NewStringValue("uint"), structpb.NewStringValue(strconv.FormatUint(x, 10))), nil
		default:
			return protoList(structpb.NewStringValue("float"), structpb.NewNumberValue(x.(float64))), nil
		}
	}
	l := protoList(tag)
	for i, c := range n.children {
		if n.kind == Object {
			l.Values = append(l.Values, structpb.NewStringValue(n.keys[i]))
		}
		cl, err := protoRecord(c, link, false)
		if err != nil {
			return nil, err
		}
		l.Values = append(l.Values, structpb.NewListValue(cl))
	}
	return l, nil
}

func (protoCodec) decode(b []byte, resolve func(string) (*Node, error)) (*Node, error) {
	var l structpb.ListValue
	if err := proto.Unmarshal(b, &l); err != nil {
		return nil, err
	}
	return protoNode(&l, resolve)
}

func protoNode(l *structpb.ListValue, resolve func(string) (*Node, error)) (*Node, error) {
	vals := l.GetValues()
	if len(vals) == 0 {
		return nil, errors.New("empty record")
	}
	arg := func(i int) *structpb.Value {
		if i < len(vals) {
			return vals[i]
		}
		return nil
	}
	switch tag := vals[0].GetStringValue(); tag {
	case "link":
		return resolve(arg(1).GetStringValue())
	case "null":
		return newLeaf(Null, nil), nil
	case "bool":
		return newLeaf(Bool, arg(1).GetBoolValue()), nil
	case "string":
		return newLeaf(String, arg(1).GetStringValue()), nil
	case "int":
		i, err := strconv.ParseInt(arg(1).GetStringValue(), 10, 64)
		if err != nil {
			return nil, err
		}
		return newLeaf(Number, i), nil
	case "uint":
		u, err := strconv.ParseUint(arg(1).GetStringValue(), 10, 64)
		if err != nil {
			return nil, err
		}
		return newLeaf(Number, u), nil
	case "float":
		return newLeaf(Number, arg(1).GetNumberValue()), nil
	case "array":
		children := make([]*Node, 0, len(vals)-1)
		for i, v := range vals[1:] {
			c, err := protoNode(v.GetListValue(), resolve)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			children = append(children, c)
		}
		return newArray(children), nil
	case "object":
		if len(vals)%2 != 1 {
			return nil, errors.New("odd object record")
		}
		keys := make([]string, 0, len(vals)/2)
		children := make([]*Node, 0, len(vals)/2)
		for i := 1; i < len(vals); i += 2 {
			k := vals[i].GetStringValue()
			c, err := protoNode(vals[i+1].GetListValue(), resolve)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", escapeField(k), err)
			}
			keys = append(keys, k)
			children = append(children, c)
		}
		return newObject(keys, children), nil
	default:
		return nil, fmt.Errorf("bad record tag %q", tag)
	}
}
