package walker

import (
	"context"
	"os"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	golanglang "github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/require"

	"github.com/sourceminder/sourceminder/internal/buffer"
	"github.com/sourceminder/sourceminder/internal/classify"
	"github.com/sourceminder/sourceminder/internal/filter"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
)

func parse(t *testing.T, src string) (*sitter.Node, []byte, *parsefrontend.SymbolTable) {
	t.Helper()
	f := parsefrontend.New(golanglang.GetLanguage())
	path := t.TempDir() + "/sample.go"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	pf, err := f.Parse(context.Background(), path)
	require.NoError(t, err)
	return pf.Root, pf.Source, pf.Symbols
}

func TestVisitNodeDispatchesRegisteredHandler(t *testing.T) {
	root, source, symbols := parse(t, "package p\nfunc F() {}\n")
	w := New(symbols)

	var seen []string
	w.RegisterNode("function_declaration", func(w *Walker, ctx *Context, n *sitter.Node) {
		seen = append(seen, FieldText(ctx.Source, n, "name"))
	})

	ctx := &Context{Buf: buffer.New(0), Source: source}
	w.VisitNode(ctx, root)

	require.Equal(t, []string{"F"}, seen)
}

func TestVisitNodeFallsBackToProcessChildren(t *testing.T) {
	root, source, symbols := parse(t, "package p\nfunc F() {}\nfunc G() {}\n")
	w := New(symbols)

	var names []string
	w.RegisterNode("function_declaration", func(w *Walker, ctx *Context, n *sitter.Node) {
		names = append(names, FieldText(ctx.Source, n, "name"))
	})

	ctx := &Context{Buf: buffer.New(0), Source: source}
	w.VisitNode(ctx, root) // root has no handler, so it falls back and visits both funcs

	require.Equal(t, []string{"F", "G"}, names)
}

func TestHandlerOwnsSubtreeNoDoubleVisit(t *testing.T) {
	root, source, symbols := parse(t, "package p\nfunc F() { x := 1; _ = x }\n")
	w := New(symbols)

	var funcVisits, blockVisits int
	w.RegisterNode("function_declaration", func(w *Walker, ctx *Context, n *sitter.Node) {
		funcVisits++
		// Handler owns the subtree: it deliberately does not recurse into
		// the body, to prove visit_node never re-enters it afterward.
	})
	w.RegisterNode("block", func(w *Walker, ctx *Context, n *sitter.Node) {
		blockVisits++
	})

	ctx := &Context{Buf: buffer.New(0), Source: source}
	w.VisitNode(ctx, root)

	require.Equal(t, 1, funcVisits)
	require.Equal(t, 0, blockVisits, "block handler must not run: the function handler owned the subtree and chose not to recurse")
}

func TestEmitAppendsToBuffer(t *testing.T) {
	ctx := &Context{Buf: buffer.New(0)}
	ctx.Emit(occurrence.New("f", 1, occurrence.CtxFunction, "src/", "a.go"))
	require.Equal(t, 1, ctx.Buf.Len())
}

func TestEmitFilteredDropsRejectedSymbol(t *testing.T) {
	f := filter.NewSet(nil)
	ctx := &Context{Buf: buffer.New(0), Filter: f}
	ctx.EmitFiltered(occurrence.New("x", 1, occurrence.CtxCall, "src/", "a.go"))
	require.Equal(t, 0, ctx.Buf.Len(), "single-character symbol must be rejected by the default min length")

	ctx.EmitFiltered(occurrence.New("handle", 1, occurrence.CtxCall, "src/", "a.go"))
	require.Equal(t, 1, ctx.Buf.Len())
}

func TestEmitFilteredPassesThroughWithNoFilter(t *testing.T) {
	ctx := &Context{Buf: buffer.New(0)}
	ctx.EmitFiltered(occurrence.New("x", 1, occurrence.CtxCall, "src/", "a.go"))
	require.Equal(t, 1, ctx.Buf.Len(), "a Context with no Filter configured must not drop anything")
}

func TestVisitNodeTracesRegisteredHandlerLocation(t *testing.T) {
	root, source, symbols := parse(t, "package p\nfunc F() {}\n")
	w := New(symbols)
	w.RegisterNode("function_declaration", func(w *Walker, ctx *Context, n *sitter.Node) {})

	var gotType, gotFile string
	var gotLine, gotSrcLine int
	ctx := &Context{Buf: buffer.New(0), Source: source, Tracer: func(nodeType, file string, line, srcLine int) {
		gotType, gotFile, gotLine, gotSrcLine = nodeType, file, line, srcLine
	}}
	w.VisitNode(ctx, root)

	require.Equal(t, "function_declaration", gotType)
	require.Contains(t, gotFile, "walker_test.go")
	require.Positive(t, gotLine)
	require.Equal(t, 2, gotSrcLine, "the traced source position must be the handled node's line")
}

// minimalGoClassifier covers only "type_identifier" as a simple type, a
// narrower table than golang.newClassifier's full one — enough to exercise
// both ExtractType's success path and its drift path against a real parse.
func minimalGoClassifier() *classify.Classifier {
	return classify.NewClassifier("go",
		[]string{"type_identifier"},
		nil, nil, nil, nil,
		nil, nil,
	)
}

func TestExtractTypeReturnsTextOnSimpleMatch(t *testing.T) {
	root, source, symbols := parse(t, "package p\nvar x int\n")
	w := New(symbols)
	classifier := minimalGoClassifier()

	var gotType string
	w.RegisterNode("var_spec", func(w *Walker, ctx *Context, n *sitter.Node) {
		gotType = ExtractType(ctx, classifier, n.ChildByFieldName("type"))
	})

	ctx := &Context{Buf: buffer.New(0), Source: source}
	w.VisitNode(ctx, root)

	require.Equal(t, "int", gotType)
	require.NoError(t, ctx.DriftErr)
}

func TestExtractTypeRecordsDriftErrorWithoutPanicking(t *testing.T) {
	root, source, symbols := parse(t, "package p\nvar x []int\n")
	w := New(symbols)
	classifier := minimalGoClassifier()

	var gotType string
	w.RegisterNode("var_spec", func(w *Walker, ctx *Context, n *sitter.Node) {
		gotType = ExtractType(ctx, classifier, n.ChildByFieldName("type"))
	})

	ctx := &Context{Buf: buffer.New(0), Source: source, Filename: "sample.go"}
	w.VisitNode(ctx, root)

	require.Equal(t, "", gotType, "a drift should surface as an empty type, not a guessed one")
	require.Error(t, ctx.DriftErr)

	var drift *classify.DriftError
	require.ErrorAs(t, ctx.DriftErr, &drift)
	require.Equal(t, "slice_type", drift.NodeType)
}

func TestExtractTypeKeepsFirstDriftOnRepeatedCalls(t *testing.T) {
	root, source, symbols := parse(t, "package p\nfunc F(a []int, b map[string]int) {}\n")
	w := New(symbols)
	classifier := minimalGoClassifier()

	ctx := &Context{Buf: buffer.New(0), Source: source}
	w.RegisterNode("function_declaration", func(w *Walker, ctx *Context, n *sitter.Node) {
		params := n.ChildByFieldName("parameters")
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			ExtractType(ctx, classifier, p.ChildByFieldName("type"))
		}
	})
	w.VisitNode(ctx, root)

	require.Error(t, ctx.DriftErr)
	var drift *classify.DriftError
	require.ErrorAs(t, ctx.DriftErr, &drift)
	require.Equal(t, "slice_type", drift.NodeType, "the first drift (a []int) must stick, not the second (b map[string]int)")
}

func TestEnclosingOfTypeFindsAncestor(t *testing.T) {
	root, _, _ := parse(t, "package p\nfunc F() { x := 1; _ = x }\n")
	var assign *sitter.Node
	var find func(n *sitter.Node)
	find = func(n *sitter.Node) {
		if n.Type() == "short_var_declaration" {
			assign = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			find(n.Child(i))
		}
	}
	find(root)
	require.NotNil(t, assign)

	fn := EnclosingOfType(assign, "function_declaration")
	require.NotNil(t, fn)
	require.Equal(t, "function_declaration", fn.Type())
}
