package pathtree

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()
	in := `{"b":1,"a":[true,null,2.5,"s"],"c":{"d":-3},"e":{},"f":[]}`
	tree, err := FromJSON([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, []Key{Field("b"), Field("a"), Field("c"), Field("e"), Field("f")}, tree.Root().Keys())
	assert.Equal(t, int64(1), mustGet(t, tree, MustPath("b")).Scalar())
	assert.Equal(t, 2.5, mustGet(t, tree, MustPath("a", 2)).Scalar())
	assert.Equal(t, Null, mustGet(t, tree, MustPath("a", 1)).Kind())

	out, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestJSONAfterUpdate(t *testing.T) {
	t.Parallel()
	tree, err := FromJSON([]byte(`{"z":1,"a":2}`))
	require.NoError(t, err)
	tree, err = tree.SetIn(MustPath("m"), Doc{{"q\"uote", "v"}})
	require.NoError(t, err)
	out, err := tree.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2,"m":{"q\"uote":"v"}}`, string(out))
}

func TestJSONLargeNumbers(t *testing.T) {
	t.Parallel()
	tree, err := FromJSON([]byte(`[9223372036854775807, 18446744073709551616, 1e3]`))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), mustGet(t, tree, MustPath(0)).Scalar())
	assert.IsType(t, float64(0), mustGet(t, tree, MustPath(1)).Scalar())
	assert.Equal(t, float64(1000), mustGet(t, tree, MustPath(2)).Scalar())
}

func TestJSONScalarDocument(t *testing.T) {
	t.Parallel()
	tree, err := FromJSON([]byte(` "just a string" `))
	require.NoError(t, err)
	assert.Equal(t, "just a string", tree.ToPlain())
}

func TestJSONErrors(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		``,
		`{"a":1,"a":2}`,
		`{"a":1} {"b":2}`,
		`[1,`,
		`{"a":}`,
	} {
		_, err := FromJSON([]byte(in))
		assert.True(t, errors.Is(err, ErrUnsupportedValue), "%q: %v", in, err)
	}
}

func TestJSONUnencodable(t *testing.T) {
	t.Parallel()
	tree := MustFromPlain(map[string]interface{}{"x": math.NaN()})
	_, err := json.Marshal(tree)
	assert.Error(t, err)
}
