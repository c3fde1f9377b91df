package python

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceminder/sourceminder/internal/buffer"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker"
)

func indexSource(t *testing.T, src string) []occurrence.Occurrence {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.py")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	front := parsefrontend.New(Language())
	pf, err := front.Parse(context.Background(), path)
	require.NoError(t, err)
	defer pf.Close()

	w := New(pf.Symbols)
	buf := buffer.New(0)
	ctx := &walker.Context{Buf: buf, Source: pf.Source, Directory: "src/", Filename: "sample.py"}
	w.VisitNode(ctx, pf.Root)
	return buf.Items()
}

func findOne(t *testing.T, items []occurrence.Occurrence, symbol string, ctxKind occurrence.Context) occurrence.Occurrence {
	t.Helper()
	for _, o := range items {
		if o.Symbol == symbol && o.Context == ctxKind {
			return o
		}
	}
	t.Fatalf("no occurrence found for symbol=%q context=%q among %d occurrences", symbol, ctxKind, len(items))
	return occurrence.Occurrence{}
}

const decoratedAsyncMethodSample = "class S:\n    @staticmethod\n    async def run(x: int) -> str:\n        return str(x)\n"

func TestClassDefinitionEmitsDefinitionAtDeclarationLine(t *testing.T) {
	items := indexSource(t, decoratedAsyncMethodSample)

	cls := findOne(t, items, "S", occurrence.CtxType)
	assert.True(t, cls.IsDefinition())
	assert.Equal(t, 1, cls.Line)
}

func TestDecoratedAsyncMethodCarriesModifierParentAndClue(t *testing.T) {
	items := indexSource(t, decoratedAsyncMethodSample)

	fn := findOne(t, items, "run", occurrence.CtxFunction)
	assert.True(t, fn.IsDefinition())
	assert.Equal(t, "S", fn.Facet("parent"))
	assert.Equal(t, "async", fn.Facet("modifier"))
	assert.Equal(t, "@staticmethod", fn.Facet("clue"))
	assert.Equal(t, "str", fn.Facet("type"))
}

func TestAnnotatedArgumentEmitsDefinitionWithType(t *testing.T) {
	items := indexSource(t, decoratedAsyncMethodSample)

	x := findOne(t, items, "x", occurrence.CtxArgument)
	assert.Equal(t, "int", x.Facet("type"))
	assert.True(t, x.IsDefinition())
}

func TestCallWithArgumentCarriesCalleeNameAsClue(t *testing.T) {
	items := indexSource(t, decoratedAsyncMethodSample)

	findOne(t, items, "str", occurrence.CtxCall)
	// The parameter x is also an argument occurrence (a definition); the
	// call-site argument is the non-definition one.
	var arg occurrence.Occurrence
	for _, o := range items {
		if o.Symbol == "x" && o.Context == occurrence.CtxArgument && !o.IsDefinition() {
			arg = o
		}
	}
	assert.Equal(t, "str", arg.Facet("clue"))
}

func TestInstanceAttributeAssignmentEmitsPropertyWithSelfParent(t *testing.T) {
	src := "class C:\n    def __init__(self):\n        self.value = 1\n"
	items := indexSource(t, src)

	prop := findOne(t, items, "value", occurrence.CtxProperty)
	assert.Equal(t, "self", prop.Facet("parent"))
	assert.True(t, prop.IsDefinition())
}

func TestModuleLevelAllCapsAssignmentIsConst(t *testing.T) {
	src := "MAX_SIZE = 1024\n"
	items := indexSource(t, src)

	v := findOne(t, items, "MAX_SIZE", occurrence.CtxVariable)
	assert.Equal(t, "const", v.Facet("modifier"))
}

func TestImportFromStatementCarriesModuleNamespace(t *testing.T) {
	src := "from os import path\n"
	items := indexSource(t, src)

	imp := findOne(t, items, "path", occurrence.CtxImport)
	assert.Equal(t, "os", imp.Facet("namespace"))
}

func TestWildcardImportEmitsWildcardClue(t *testing.T) {
	src := "from os import *\n"
	items := indexSource(t, src)

	imp := findOne(t, items, "*", occurrence.CtxImport)
	assert.Equal(t, "wildcard", imp.Facet("clue"))
}

func TestMemberCallSetsParentWithNoSeparatePropertyOccurrence(t *testing.T) {
	src := "def f(w):\n    w.handle(1)\n"
	items := indexSource(t, src)

	call := findOne(t, items, "handle", occurrence.CtxCall)
	assert.Equal(t, "w", call.Facet("parent"))

	for _, o := range items {
		assert.False(t, o.Context == occurrence.CtxProperty && o.Symbol == "handle",
			"Python member calls must not also emit a property occurrence on the called name")
	}
}

func TestCommentEmitsCleanedWords(t *testing.T) {
	src := "# fixes bug #123, see docs/readme.md\ndef f():\n    pass\n"
	items := indexSource(t, src)

	found := map[string]bool{}
	for _, o := range items {
		if o.Context == occurrence.CtxComment {
			found[o.Symbol] = true
		}
	}
	assert.True(t, found["fixes"])
	assert.True(t, found["docs/readme.md"])
}

func TestModuleNamespaceDerivedFromFilename(t *testing.T) {
	items := indexSource(t, "class S:\n    pass\n")

	class := findOne(t, items, "S", occurrence.CtxType)
	assert.Equal(t, "sample", class.Facet("namespace"))
}
