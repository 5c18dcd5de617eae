package pathtree

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultGopterParameters = gopter.DefaultTestParameters()

func newExampleState() *Tree {
	return MustFromPlain(map[string]interface{}{
		"foo":       1,
		"notChange": map[string]interface{}{"hey": "hey"},
		"inner":     map[string]interface{}{"bar": 10},
	})
}

func mustGet(t *testing.T, tree *Tree, path Path) *Node {
	t.Helper()
	n, ok := tree.GetIn(path)
	require.True(t, ok, "no node at %v", path)
	return n
}

func TestSetInSharesUntouchedSubtrees(t *testing.T) {
	t.Parallel()
	state := newExampleState()
	next, err := state.SetIn(MustPath("inner", "bar"), 11)
	require.NoError(t, err)

	assert.Equal(t, 11, mustGet(t, next, MustPath("inner", "bar")).Scalar())
	assert.Equal(t, 10, mustGet(t, state, MustPath("inner", "bar")).Scalar())

	assert.Same(t, mustGet(t, state, MustPath("notChange")), mustGet(t, next, MustPath("notChange")))
	assert.Same(t, mustGet(t, state, MustPath("foo")), mustGet(t, next, MustPath("foo")))
	assert.NotSame(t, mustGet(t, state, MustPath("inner")), mustGet(t, next, MustPath("inner")))
	assert.NotSame(t, state.Root(), next.Root())

	assert.Equal(t, map[string]interface{}{
		"foo":       1,
		"notChange": map[string]interface{}{"hey": "hey"},
		"inner":     map[string]interface{}{"bar": 11},
	}, next.ToPlain())
}

func TestSetInSameValueReturnsSameTree(t *testing.T) {
	t.Parallel()
	state := newExampleState()
	next, err := state.SetIn(MustPath("foo"), 1)
	require.NoError(t, err)
	assert.Same(t, state, next)

	sub := mustGet(t, state, MustPath("notChange"))
	next, err = state.SetIn(MustPath("notChange"), sub)
	require.NoError(t, err)
	assert.Same(t, state, next)

	// a different type is a different value
	next, err = state.SetIn(MustPath("foo"), int64(1))
	require.NoError(t, err)
	assert.NotSame(t, state, next)
}

func TestSetInCreatesIntermediates(t *testing.T) {
	t.Parallel()
	tree, err := New().SetIn(MustPath("todos", 2, "done"), true)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"todos": []interface{}{nil, nil, map[string]interface{}{"done": true}},
	}, tree.ToPlain())
	assert.Equal(t, Null, mustGet(t, tree, MustPath("todos", 0)).Kind())

	tree, err = tree.SetIn(MustPath("todos", 3), "appended")
	require.NoError(t, err)
	assert.Equal(t, 4, mustGet(t, tree, MustPath("todos")).Len())

	tree, err = tree.SetIn(MustPath("todos", 0, 1), "nested")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{nil, "nested"}, mustGet(t, tree, MustPath("todos", 0)).Plain())
}

func TestSetInReplacesLeafIntermediate(t *testing.T) {
	t.Parallel()
	tree := MustFromPlain(map[string]interface{}{"a": 1, "b": 2})
	next, err := tree.SetIn(MustPath("a", "b"), 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": map[string]interface{}{"b": 2}, "b": 2}, next.ToPlain())
	assert.Same(t, mustGet(t, tree, MustPath("b")), mustGet(t, next, MustPath("b")))
}

func TestSetInOnLeafRoot(t *testing.T) {
	t.Parallel()
	tree := MustFromPlain("scalar")
	next, err := tree.SetIn(MustPath(0), "x")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x"}, next.ToPlain())
	assert.Equal(t, "scalar", tree.ToPlain())
}

func TestSetInInvalidPaths(t *testing.T) {
	t.Parallel()
	tree := MustFromPlain(map[string]interface{}{"list": []interface{}{1}})
	for _, path := range []Path{
		nil,
		{},
		MustPath("list", "x"),
		MustPath(0),
		{Field("list"), Index(-1)},
	} {
		next, err := tree.SetIn(path, 1)
		assert.True(t, errors.Is(err, ErrInvalidPath), "%v: %v", path, err)
		assert.Nil(t, next)
	}
}

func TestSetInLimitsArrayPadding(t *testing.T) {
	t.Parallel()
	for _, path := range []Path{
		{Field("a"), Index(math.MaxInt)},
		{Field("a"), Index(MaxArrayPad + 1)},
		{Index(1 << 40)},
	} {
		next, err := New().SetIn(path, 1)
		assert.True(t, errors.Is(err, ErrInvalidPath), "%v: %v", path, err)
		assert.Nil(t, next)
	}

	tree, err := New().SetIn(MustPath("a", 2), "x")
	require.NoError(t, err)
	_, err = tree.SetIn(MustPath("a", 3+MaxArrayPad), "y")
	require.NoError(t, err, "padding is measured from the end of the array")
	_, err = tree.SetIn(MustPath("a", 4+MaxArrayPad), "y")
	assert.True(t, errors.Is(err, ErrInvalidPath))

	next, err := New().SetIn(MustPath("a", MaxArrayPad), 1)
	require.NoError(t, err)
	assert.Equal(t, MaxArrayPad+1, mustGet(t, next, MustPath("a")).Len())
}

func TestEqualNil(t *testing.T) {
	t.Parallel()
	assert.False(t, New().Equal(nil))
	assert.True(t, New().Equal(New()))
}

func TestSetInUnsupportedValue(t *testing.T) {
	t.Parallel()
	_, err := New().SetIn(MustPath("a"), struct{}{})
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}

func TestSetInAttachesNodesByReference(t *testing.T) {
	t.Parallel()
	sub := MustFromPlain(map[string]interface{}{"x": 1})
	tree, err := New().SetIn(MustPath("s"), sub)
	require.NoError(t, err)
	assert.Same(t, sub.Root(), mustGet(t, tree, MustPath("s")))

	tree, err = tree.SetIn(MustPath("t"), sub.Root())
	require.NoError(t, err)
	assert.Same(t, sub.Root(), mustGet(t, tree, MustPath("t")))
}

func TestNullIsNotAbsent(t *testing.T) {
	t.Parallel()
	tree := MustFromPlain(map[string]interface{}{"a": nil})
	n, ok := tree.GetIn(MustPath("a"))
	require.True(t, ok)
	assert.Equal(t, Null, n.Kind())
	assert.True(t, tree.Has(MustPath("a")))
	assert.False(t, tree.Has(MustPath("b")))
}

func TestGetInNotFound(t *testing.T) {
	t.Parallel()
	tree := MustFromPlain(map[string]interface{}{
		"leaf": 1,
		"list": []interface{}{"x"},
	})
	for _, path := range []Path{
		MustPath("missing"),
		MustPath("leaf", "below"),
		MustPath("list", 1),
		MustPath("list", "0"),
		MustPath(0),
		{Field("list"), Index(-1)},
	} {
		n, ok := tree.GetIn(path)
		assert.False(t, ok, "%v", path)
		assert.Nil(t, n)
	}
	assert.Same(t, tree.Root(), mustGet(t, tree, nil))
}

func TestDeleteIn(t *testing.T) {
	t.Parallel()
	tree := MustFromPlain(map[string]interface{}{
		"keep": map[string]interface{}{"x": 1},
		"list": []interface{}{"a", "b", "c"},
		"gone": true,
	})
	next, err := tree.DeleteIn(MustPath("gone"))
	require.NoError(t, err)
	assert.False(t, next.Has(MustPath("gone")))
	assert.True(t, tree.Has(MustPath("gone")))
	assert.Same(t, mustGet(t, tree, MustPath("keep")), mustGet(t, next, MustPath("keep")))

	next, err = next.DeleteIn(MustPath("list", 1))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "c"}, mustGet(t, next, MustPath("list")).Plain())

	same, err := next.DeleteIn(MustPath("nope", "deeper"))
	require.NoError(t, err)
	assert.Same(t, next, same)

	_, err = next.DeleteIn(nil)
	assert.True(t, errors.Is(err, ErrInvalidPath))
	_, err = next.DeleteIn(Path{Index(-1)})
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestUpdateIn(t *testing.T) {
	t.Parallel()
	incr := func(n *Node, ok bool) (interface{}, error) {
		if !ok {
			return 1, nil
		}
		return n.Scalar().(int) + 1, nil
	}
	tree := New()
	var err error
	for i := 0; i < 3; i++ {
		tree, err = tree.UpdateIn(MustPath("count"), incr)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, mustGet(t, tree, MustPath("count")).Scalar())

	boom := errors.New("boom")
	_, err = tree.UpdateIn(MustPath("count"), func(*Node, bool) (interface{}, error) {
		return nil, boom
	})
	assert.True(t, errors.Is(err, boom))
}

func TestFromNodeNil(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Null, FromNode(nil).Root().Kind())
}

// fieldPathGen yields one to three field names. It is built with Map so
// it carries no length sieve, and slices of it do not discard.
func fieldPathGen() gopter.Gen {
	return gopter.CombineGens(gen.IntRange(1, 3), gen.SliceOfN(3, gen.OneConstOf("a", "b", "c"))).
		Map(func(v []interface{}) []string {
			return v[1].([]string)[:v[0].(int)]
		})
}

// mixedPathGen yields paths shaped field, index, field, truncated to one to
// three keys. Every path agrees on the branch kind at each depth, so writes
// never mismatch an existing branch.
func mixedPathGen() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 3),
		gen.OneConstOf("a", "b", "c"),
		gen.IntRange(0, 3),
		gen.OneConstOf("a", "b", "c"),
	).Map(func(v []interface{}) Path {
		p := Path{Field(v[1].(string)), Index(v[2].(int)), Field(v[3].(string))}
		return p[:v[0].(int)]
	})
}

func toFieldPath(names []string) Path {
	p := make(Path, len(names))
	for i, n := range names {
		p[i] = Field(n)
	}
	return p
}

type setOp struct {
	path  Path
	value uint
}

func opsGen() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(fieldPathGen(), gen.UIntRange(0, 9)).Map(func(v []interface{}) setOp {
		return setOp{toFieldPath(v[0].([]string)), v[1].(uint)}
	}))
}

func mixedOpsGen() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(mixedPathGen(), gen.UIntRange(0, 9)).Map(func(v []interface{}) setOp {
		return setOp{v[0].(Path), v[1].(uint)}
	}))
}

// siblingsShared reports whether every node off the written path is the
// same node in both versions.
func siblingsShared(tree, next *Tree, path Path) bool {
	old := tree.Root()
	cur := next.Root()
	for _, k := range path {
		if old == nil || !old.IsBranch() || cur == nil {
			return true
		}
		ok := true
		old.Range(func(sk Key, sibling *Node) bool {
			if sk == k {
				return true
			}
			c, found := cur.Child(sk)
			ok = found && c == sibling
			return ok
		})
		if !ok {
			return false
		}
		old, _ = old.Child(k)
		cur, _ = cur.Child(k)
	}
	return true
}

func buildTree(t *testing.T, ops []setOp) *Tree {
	tree := New()
	for _, op := range ops {
		var err error
		tree, err = tree.SetIn(op.path, op.value)
		require.NoError(t, err)
	}
	return tree
}

func TestSetInProperties(t *testing.T) {
	t.Parallel()
	properties := gopter.NewProperties(defaultGopterParameters)

	properties.Property("get returns what was set", prop.ForAll(
		func(ops []setOp, target []string, v uint) bool {
			tree := buildTree(t, ops)
			next, err := tree.SetIn(toFieldPath(target), v)
			if err != nil {
				return false
			}
			n, ok := next.GetIn(toFieldPath(target))
			return ok && n.Scalar() == v
		},
		opsGen(), fieldPathGen(), gen.UIntRange(0, 9)))

	properties.Property("the original is unchanged", prop.ForAll(
		func(ops []setOp, target []string, v uint) bool {
			tree := buildTree(t, ops)
			before := tree.ToPlain()
			_, err := tree.SetIn(toFieldPath(target), v)
			return err == nil && reflect.DeepEqual(before, tree.ToPlain())
		},
		opsGen(), fieldPathGen(), gen.UIntRange(0, 9)))

	properties.Property("siblings off the path are shared", prop.ForAll(
		func(ops []setOp, target []string, v uint) bool {
			tree := buildTree(t, ops)
			path := toFieldPath(target)
			next, err := tree.SetIn(path, v)
			return err == nil && siblingsShared(tree, next, path)
		},
		opsGen(), fieldPathGen(), gen.UIntRange(0, 9)))

	properties.Property("plain round trip", prop.ForAll(
		func(ops []setOp) bool {
			tree := buildTree(t, ops)
			again, err := FromPlain(tree.ToPlain())
			return err == nil && tree.Equal(again) && reflect.DeepEqual(tree.ToPlain(), again.ToPlain())
		},
		opsGen()))

	properties.Property("delete removes only the target", prop.ForAll(
		func(ops []setOp, target []string) bool {
			tree := buildTree(t, ops)
			path := toFieldPath(target)
			next, err := tree.DeleteIn(path)
			if err != nil || next.Has(path) {
				return false
			}
			if !tree.Has(path) {
				return next == tree
			}
			restored, err := next.SetIn(path, mustNode(tree, path))
			return err == nil && restored.Equal(tree)
		},
		opsGen(), fieldPathGen()))

	properties.TestingRun(t)
}

func mustNode(tree *Tree, path Path) *Node {
	n, ok := tree.GetIn(path)
	if !ok {
		panic("no node at " + path.String())
	}
	return n
}

func TestSetInArrayProperties(t *testing.T) {
	t.Parallel()
	properties := gopter.NewProperties(defaultGopterParameters)

	properties.Property("get returns what was set", prop.ForAll(
		func(ops []setOp, path Path, v uint) bool {
			tree := buildTree(t, ops)
			next, err := tree.SetIn(path, v)
			if err != nil {
				return false
			}
			n, ok := next.GetIn(path)
			return ok && n.Scalar() == v
		},
		mixedOpsGen(), mixedPathGen(), gen.UIntRange(0, 9)))

	properties.Property("the original is unchanged", prop.ForAll(
		func(ops []setOp, path Path, v uint) bool {
			tree := buildTree(t, ops)
			before := tree.ToPlain()
			_, err := tree.SetIn(path, v)
			return err == nil && reflect.DeepEqual(before, tree.ToPlain())
		},
		mixedOpsGen(), mixedPathGen(), gen.UIntRange(0, 9)))

	properties.Property("siblings off the path are shared", prop.ForAll(
		func(ops []setOp, path Path, v uint) bool {
			tree := buildTree(t, ops)
			next, err := tree.SetIn(path, v)
			return err == nil && siblingsShared(tree, next, path)
		},
		mixedOpsGen(), mixedPathGen(), gen.UIntRange(0, 9)))

	properties.Property("plain round trip", prop.ForAll(
		func(ops []setOp) bool {
			tree := buildTree(t, ops)
			again, err := FromPlain(tree.ToPlain())
			return err == nil && tree.Equal(again) && reflect.DeepEqual(tree.ToPlain(), again.ToPlain())
		},
		mixedOpsGen()))

	properties.Property("delete leaves earlier elements alone", prop.ForAll(
		func(ops []setOp, path Path) bool {
			tree := buildTree(t, ops)
			next, err := tree.DeleteIn(path)
			if err != nil {
				return false
			}
			if !tree.Has(path) {
				return next == tree
			}
			parent := path[:len(path)-1]
			last := path[len(path)-1]
			before := mustNode(tree, parent)
			after := mustNode(next, parent)
			if !last.IsIndex() {
				return !next.Has(path) && after.Len() == before.Len()-1
			}
			if after.Len() != before.Len()-1 {
				return false
			}
			for i := 0; i < last.Position(); i++ {
				b, _ := before.Child(Index(i))
				a, _ := after.Child(Index(i))
				if a != b {
					return false
				}
			}
			return true
		},
		mixedOpsGen(), mixedPathGen()))

	properties.TestingRun(t)
}
