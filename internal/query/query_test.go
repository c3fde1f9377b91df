package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/store"
)

func openEngine(t *testing.T) (*Engine, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	st, err := store.Open(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewEngine(st), st, dir
}

func seedSample(t *testing.T, st *store.Store, dir string) {
	t.Helper()
	ctx := context.Background()

	src := "func Add(a, b int) int {\n\treturn a + b\n}\n\nfunc Sub(a, b int) int {\n\treturn helper(a, b)\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(src), 0o644))

	add := occurrence.New("Add", 1, occurrence.CtxFunction, dir+"/", "a.go")
	add = add.AsDefinition(occurrence.SourceLocation{StartLine: 1, StartCol: 1, EndLine: 3, EndCol: 1})
	add.SetFacet("type", "int")

	sub := occurrence.New("Sub", 5, occurrence.CtxFunction, dir+"/", "a.go")
	sub = sub.AsDefinition(occurrence.SourceLocation{StartLine: 5, StartCol: 1, EndLine: 7, EndCol: 1})
	sub.SetFacet("type", "int")

	call := occurrence.New("helper", 6, occurrence.CtxCall, dir+"/", "a.go")
	call.SetFacet("parent", "Sub")

	require.NoError(t, st.ReplaceFile(ctx, dir+"/", "a.go", []occurrence.Occurrence{add, sub, call}))
}

func TestResolveContextAcceptsAliasesCaseInsensitively(t *testing.T) {
	c, err := ResolveContext("Func")
	require.NoError(t, err)
	assert.Equal(t, occurrence.CtxFunction, c)

	c, err = ResolveContext("enumcase")
	require.NoError(t, err)
	assert.Equal(t, occurrence.CtxEnumCase, c)
}

func TestResolveContextRejectsUnknownKind(t *testing.T) {
	_, err := ResolveContext("bogus")
	require.Error(t, err)
	var compile *CompileError
	require.ErrorAs(t, err, &compile)
	assert.Contains(t, compile.Error(), "bogus")
}

func TestRunFiltersByPatternAndIncludeContext(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{
		Patterns: []string{"%"},
		Include:  []occurrence.Context{occurrence.CtxFunction},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	for _, r := range res.Rows {
		assert.Equal(t, string(occurrence.CtxFunction), r.Context)
	}
}

func TestRunDefFlagRestrictsToDefinitions(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"%"}, Def: true})
	require.NoError(t, err)
	for _, r := range res.Rows {
		assert.Equal(t, "1", r.Facet("definition"))
	}

	res, err = e.Run(context.Background(), Config{Patterns: []string{"%"}, Usage: true})
	require.NoError(t, err)
	for _, r := range res.Rows {
		assert.NotEqual(t, "1", r.Facet("definition"))
	}
}

func TestRunWithinRestrictsToDefinitionSpan(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"helper"}, Within: "Sub"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "helper", res.Rows[0].Symbol)

	// A --within name with no matching definition forces an empty result
	// rather than silently falling back to ignoring the flag.
	res, err = e.Run(context.Background(), Config{Patterns: []string{"helper"}, Within: "NoSuchFunc"})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestRunAndWithinFindsPatternsOnNearbyLines(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"Sub", "helper"}, AndWithin: 2})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Sub", res.Rows[0].Symbol)
}

func TestRunFileFilterAppliesPathBoundary(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"%"}, File: "a.go"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Rows)

	res, err = e.Run(context.Background(), Config{Patterns: []string{"%"}, File: "xyz.go"})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestRunTOCListsOnlyDefinitionsSortedByLine(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"%"}, TOC: true})
	require.NoError(t, err)
	require.Len(t, res.TOC, 2)
	assert.Equal(t, "Add", res.TOC[0].Name)
	assert.Equal(t, "Sub", res.TOC[1].Name)
	assert.Equal(t, 1, res.TOC[0].Line)
	assert.Equal(t, 3, res.TOC[0].EndLine)
}

func TestRunFilesReturnsDistinctSortedPaths(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)
	require.NoError(t, st.ReplaceFile(context.Background(), dir+"/", "z.go", []occurrence.Occurrence{
		occurrence.New("Z", 1, occurrence.CtxFunction, dir+"/", "z.go"),
	}))

	res, err := e.Run(context.Background(), Config{Patterns: []string{"%"}, Files: true})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, res.Files[0], dir+"/a.go")
	assert.Equal(t, res.Files[1], dir+"/z.go")
}

func TestRunLimitAndLimitPerFile(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"%"}, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)

	res, err = e.Run(context.Background(), Config{Patterns: []string{"%"}, LimitPerFile: 2})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestRunColumnsWhitelist(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"%"}, Columns: []string{"symbol", "type"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol", "type"}, res.Columns)

	_, err = e.Run(context.Background(), Config{Patterns: []string{"%"}, Columns: []string{"bogus"}})
	require.Error(t, err)
	var compile *CompileError
	require.ErrorAs(t, err, &compile)
}

func TestRunColumnsAllColsOverridesExplicitList(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"%"}, Columns: []string{"symbol"}, AllCols: true})
	require.NoError(t, err)
	assert.Equal(t, allColumns, res.Columns)
}

func TestRunExpandSplicesDefinitionSpan(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"Add"}, Expand: true})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Contains(t, res.Rows[0].Spliced, "func Add")
	assert.Contains(t, res.Rows[0].Spliced, "return a + b")
}

func TestRunContextSplicesSurroundingLines(t *testing.T) {
	e, st, dir := openEngine(t)
	seedSample(t, st, dir)

	res, err := e.Run(context.Background(), Config{Patterns: []string{"helper"}, Context: 1})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	// helper's call site is line 6; +/-1 line must include Sub's signature.
	assert.Contains(t, res.Rows[0].Spliced, "func Sub")
}

func TestTOCEntryStringFormat(t *testing.T) {
	entry := TOCEntry{File: "a.go", Line: 1, EndLine: 3, Kind: "function", Name: "Add"}
	assert.Equal(t, "a.go:1-3\tfunction\tAdd", entry.String())
}
