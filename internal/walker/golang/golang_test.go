package golang

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
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	front := parsefrontend.New(Language())
	pf, err := front.Parse(context.Background(), path)
	require.NoError(t, err)
	defer pf.Close()

	w := New(pf.Symbols)
	buf := buffer.New(0)
	ctx := &walker.Context{Buf: buf, Source: pf.Source, Directory: "src/", Filename: "sample.go"}
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

func TestFunctionDeclarationEmitsDefinitionWithTypeAndScope(t *testing.T) {
	items := indexSource(t, "package p\n\nfunc Add(a int, b int) int {\n\treturn a + b\n}\n")

	fn := findOne(t, items, "Add", occurrence.CtxFunction)
	assert.True(t, fn.IsDefinition())
	assert.Equal(t, "int", fn.Facet("type"))
	assert.Equal(t, "public", fn.Facet("scope"))
	assert.Equal(t, "p", fn.Facet("namespace"))

	a := findOne(t, items, "a", occurrence.CtxArgument)
	assert.Equal(t, "int", a.Facet("type"))
	assert.True(t, a.IsDefinition())
}

func TestMethodDeclarationSetsParentToReceiverType(t *testing.T) {
	src := "package p\n\ntype Worker struct{}\n\nfunc (w *Worker) Loop(done chan bool) {\n}\n"
	items := indexSource(t, src)

	method := findOne(t, items, "Loop", occurrence.CtxFunction)
	assert.Equal(t, "Worker", method.Facet("parent"))
	assert.Equal(t, "public", method.Facet("scope"))
}

func TestCallWithMemberReceiverSetsParentNoSeparateProperty(t *testing.T) {
	src := "package p\n\nfunc F(w *W) {\n\tw.handle(1)\n}\n"
	items := indexSource(t, src)

	call := findOne(t, items, "handle", occurrence.CtxCall)
	assert.Equal(t, "w", call.Facet("parent"))

	for _, o := range items {
		assert.False(t, o.Context == occurrence.CtxProperty && o.Symbol == "handle",
			"Go member calls must not also emit a property occurrence on the called name")
	}
}

func TestGoStatementTagsWrappedCallWithClue(t *testing.T) {
	src := "package p\n\nfunc F() {\n\tgo work()\n}\n"
	items := indexSource(t, src)

	call := findOne(t, items, "work", occurrence.CtxCall)
	assert.Equal(t, "go", call.Facet("clue"))
}

func TestDeferStatementTagsWrappedCallWithClue(t *testing.T) {
	src := "package p\n\nfunc F() {\n\tdefer cleanup()\n}\n"
	items := indexSource(t, src)

	call := findOne(t, items, "cleanup", occurrence.CtxCall)
	assert.Equal(t, "defer", call.Facet("clue"))
}

func TestStructFieldsEmitPropertyWithParent(t *testing.T) {
	src := "package p\n\ntype Point struct {\n\tX int\n\tY int\n}\n"
	items := indexSource(t, src)

	x := findOne(t, items, "X", occurrence.CtxProperty)
	assert.Equal(t, "Point", x.Facet("parent"))
	assert.Equal(t, "int", x.Facet("type"))
}

func TestImportSpecMarksBlankAndDotImports(t *testing.T) {
	src := "package p\n\nimport (\n\t_ \"a/b\"\n\t. \"c/d\"\n\t\"fmt\"\n)\n"
	items := indexSource(t, src)

	blank := findOne(t, items, "a/b", occurrence.CtxImport)
	assert.Equal(t, "blank", blank.Facet("clue"))

	dot := findOne(t, items, "c/d", occurrence.CtxImport)
	assert.Equal(t, "dot", dot.Facet("clue"))

	plain := findOne(t, items, "fmt", occurrence.CtxImport)
	assert.Equal(t, "", plain.Facet("clue"))
}

func TestGotoAndLabelEmitDistinctContexts(t *testing.T) {
	src := "package p\n\nfunc F() {\n\tgoto done\ndone:\n\treturn\n}\n"
	items := indexSource(t, src)

	findOne(t, items, "done", occurrence.CtxGoto)
	label := findOne(t, items, "done", occurrence.CtxLabel)
	assert.True(t, label.IsDefinition())
}

func TestSelectReceiveBindingTagsVariableWithSelectClue(t *testing.T) {
	src := "package p\n\nfunc F(ch chan int) {\n\tselect {\n\tcase v := <-ch:\n\t\t_ = v\n\t}\n}\n"
	items := indexSource(t, src)

	v := findOne(t, items, "v", occurrence.CtxVariable)
	assert.Equal(t, "select", v.Facet("clue"))
	assert.True(t, v.IsDefinition())

	recv := findOne(t, items, "ch", occurrence.CtxVariable)
	assert.Equal(t, "receive", recv.Facet("clue"))
}

func TestSelectBareReceiveTagsChannelWithReceiveClue(t *testing.T) {
	src := "package p\n\nfunc F(done chan bool) {\n\tselect {\n\tcase <-done:\n\t}\n}\n"
	items := indexSource(t, src)

	done := findOne(t, items, "done", occurrence.CtxVariable)
	assert.Equal(t, "receive", done.Facet("clue"))
}

func TestSelectSendCaseTagsChannelWithSendClue(t *testing.T) {
	src := "package p\n\nfunc F(out chan int) {\n\tselect {\n\tcase out <- 1:\n\t}\n}\n"
	items := indexSource(t, src)

	out := findOne(t, items, "out", occurrence.CtxVariable)
	assert.Equal(t, "send", out.Facet("clue"))
}

func TestSendStatementOutsideSelectTagsChannelWithSendClue(t *testing.T) {
	src := "package p\n\nfunc F(ch chan int) {\n\tch <- 1\n}\n"
	items := indexSource(t, src)

	ch := findOne(t, items, "ch", occurrence.CtxVariable)
	assert.Equal(t, "send", ch.Facet("clue"))
}

func TestSendStatementOnSelectorRoutesThroughPropertyHandlerWithSendClue(t *testing.T) {
	src := "package p\n\ntype Worker struct {\n\tout chan int\n}\n\nfunc (w *Worker) Loop() {\n\tw.out <- 1\n}\n"
	items := indexSource(t, src)

	// The struct field declaration on line 4 is also an "out" property; the
	// send use site is on line 8.
	var prop occurrence.Occurrence
	for _, o := range items {
		if o.Symbol == "out" && o.Context == occurrence.CtxProperty && o.Line == 8 {
			prop = o
		}
	}
	assert.Equal(t, "w", prop.Facet("parent"))
	assert.Equal(t, "send", prop.Facet("clue"))
}

func TestCommentEmitsCleanedWords(t *testing.T) {
	src := "package p\n\n// fixes bug #123, see docs/readme.md\nfunc F() {}\n"
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

func TestRangeClauseBindsVariablesWithRangeClue(t *testing.T) {
	src := "package p\n\nfunc F(xs []int) {\n\tfor i, v := range xs {\n\t\t_ = i\n\t\t_ = v\n\t}\n}\n"
	items := indexSource(t, src)

	i := findOne(t, items, "i", occurrence.CtxVariable)
	assert.Equal(t, "range", i.Facet("clue"))
	assert.True(t, i.IsDefinition())

	v := findOne(t, items, "v", occurrence.CtxVariable)
	assert.Equal(t, "range", v.Facet("clue"))
}

func TestStringLiteralEmitsCleanedWords(t *testing.T) {
	src := "package p\n\nfunc F() {\n\tprintln(\"open config/app.yaml first\")\n}\n"
	items := indexSource(t, src)

	w := findOne(t, items, "config/app.yaml", occurrence.CtxString)
	assert.False(t, w.IsDefinition())
	findOne(t, items, "open", occurrence.CtxString)
}
