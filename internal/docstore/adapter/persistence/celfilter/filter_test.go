package celfilter

import (
	"testing"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, text string, params ...model.QueryParameter) *Filter {
	t.Helper()
	c, err := NewCompiler()
	require.NoError(t, err)
	f, err := c.Compile(model.NewQuery(text, params...))
	require.NoError(t, err)
	return f
}

func TestFilter_SelectAll(t *testing.T) {
	f := compile(t, model.SelectAll)
	assert.Equal(t, "true", f.Source())
	assert.True(t, f.Match(model.Document{"id": "1"}))
}

func TestFilter_Equality(t *testing.T) {
	f := compile(t, "SELECT * FROM c WHERE c.id = @id", model.Param("id", "1"))
	assert.True(t, f.Match(model.Document{"id": "1"}))
	assert.False(t, f.Match(model.Document{"id": "2"}))
	assert.False(t, f.Match(model.Document{"other": "1"}), "missing field is no match")
}

func TestFilter_NumbersCompareAcrossGoTypes(t *testing.T) {
	f := compile(t, "SELECT * FROM c WHERE c.amount = 42")
	assert.True(t, f.Match(model.Document{"amount": 42}))
	assert.True(t, f.Match(model.Document{"amount": int64(42)}))
	assert.True(t, f.Match(model.Document{"amount": 42.0}))
	assert.False(t, f.Match(model.Document{"amount": "42"}))

	g := compile(t, "SELECT * FROM c WHERE c.amount > @min AND c.amount <= 100", model.Param("min", 10))
	assert.True(t, g.Match(model.Document{"amount": 42}))
	assert.False(t, g.Match(model.Document{"amount": 10}))
	assert.False(t, g.Match(model.Document{"amount": 101.5}))
}

func TestFilter_LogicalOperators(t *testing.T) {
	f := compile(t, "SELECT * FROM c WHERE (c.a = 'x' OR c.b = 'y') AND NOT c.deleted")
	assert.True(t, f.Match(model.Document{"a": "x", "deleted": false}))
	assert.True(t, f.Match(model.Document{"b": "y", "deleted": false}))
	assert.False(t, f.Match(model.Document{"a": "x", "deleted": true}))
	assert.False(t, f.Match(model.Document{"a": "z", "b": "z", "deleted": false}))
	// one side of OR erroring on a missing field does not hide a match on the other side
	assert.True(t, f.Match(model.Document{"b": "y", "deleted": false}))
}

func TestFilter_NestedPathsAndNull(t *testing.T) {
	f := compile(t, `SELECT * FROM c WHERE c.address.zip = "1000" AND c["first-name"] != null`)
	assert.True(t, f.Match(model.Document{
		"address":    map[string]interface{}{"zip": "1000"},
		"first-name": "Ada",
	}))
	assert.False(t, f.Match(model.Document{
		"address":    map[string]interface{}{"zip": "1000"},
		"first-name": nil,
	}))
}

func TestFilter_StringEscapes(t *testing.T) {
	f := compile(t, `SELECT * FROM c WHERE c.name = 'say "hi"\n'`)
	assert.True(t, f.Match(model.Document{"name": "say \"hi\"\n"}))
}

func TestCompile_Errors(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	_, err = c.Compile(model.NewQuery("DELETE FROM c"))
	assert.True(t, errors.IsValidation(err))

	_, err = c.Compile(model.NewQuery("SELECT * FROM c WHERE c.id = @id"))
	assert.True(t, errors.IsValidation(err), "unbound parameter")
}

func TestNormalize(t *testing.T) {
	out := normalize(map[string]interface{}{
		"i":    3,
		"list": []interface{}{int32(1), "s"},
		"doc":  model.Document{"u": uint8(2)},
	}).(map[string]interface{})

	assert.Equal(t, float64(3), out["i"])
	assert.Equal(t, []interface{}{float64(1), "s"}, out["list"])
	assert.Equal(t, map[string]interface{}{"u": float64(2)}, out["doc"])
}
