package occurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsDefinitionSetsFacetAndLocation(t *testing.T) {
	o := New("f", 1, CtxFunction, "src/", "a.go")
	loc := SourceLocation{StartLine: 1, StartCol: 1, EndLine: 3, EndCol: 2}
	o = o.AsDefinition(loc)

	require.True(t, o.IsDefinition())
	assert.Equal(t, "1", o.Facet("definition"))
	assert.Equal(t, "1:1-3:2", o.SourceLocation.String())
}

func TestFacetDefaultsEmpty(t *testing.T) {
	o := New("f", 1, CtxCall, "src/", "a.go")
	assert.False(t, o.IsDefinition())
	assert.Equal(t, "", o.Facet("definition"))
	assert.Equal(t, "", o.Facet("parent"))
}

func TestSetFacetRoundTripsAndClearsOnEmpty(t *testing.T) {
	o := New("f", 1, CtxCall, "src/", "a.go")
	o.SetFacet("parent", "w")
	assert.Equal(t, "w", o.Facet("parent"))

	o.SetFacet("parent", "")
	assert.Equal(t, "", o.Facet("parent"))
}

func TestSetFacetPanicsOnUndeclaredColumn(t *testing.T) {
	o := New("f", 1, CtxCall, "src/", "a.go")
	assert.Panics(t, func() { o.SetFacet("no_such_column", "x") },
		"a facet absent from Columns must fail at the write site, not vanish at insert time")
}

func TestKeyIsCompositeOfIdentityColumns(t *testing.T) {
	o := New("f", 12, CtxFunction, "src/", "a.go")
	assert.Equal(t, [5]string{"src/", "a.go", "12", "f", "function"}, o.Key())
}

func TestColumnNamesMatchesDeclarationOrder(t *testing.T) {
	names := ColumnNames()
	require.Len(t, names, len(Columns))
	assert.Equal(t, "parent", names[0])
	assert.Equal(t, "definition", names[len(names)-1])
}
