// Package c implements the C language walker: function/variable
// declarations built around C's declarator trees (pointer/array/init
// declarators), control flow, labels/goto, and preprocessor directives.
package c

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	clang "github.com/smacker/go-tree-sitter/c"

	"github.com/sourceminder/sourceminder/internal/classify"
	"github.com/sourceminder/sourceminder/internal/filter"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker"
)

// Language returns the tree-sitter grammar for C.
func Language() *sitter.Language {
	return clang.GetLanguage()
}

func newClassifier() *classify.Classifier {
	return classify.NewClassifier("c",
		[]string{"primitive_type", "type_identifier", "sized_type_specifier"},
		nil,
		nil,
		nil,
		nil,
		map[string]string{
			"struct_specifier": "struct",
			"union_specifier":  "union",
			"enum_specifier":   "enum",
		},
		nil,
	)
}

// New builds a C walker bound to symbols.
func New(symbols *parsefrontend.SymbolTable) *walker.Walker {
	w := walker.New(symbols)
	classifier := newClassifier()

	w.RegisterNode("function_definition", makeFunctionHandler(classifier))
	w.RegisterNode("declaration", makeDeclarationHandler(classifier))
	w.RegisterNode("labeled_statement", handleLabeledStatement)
	w.RegisterNode("goto_statement", handleGotoStatement)
	w.RegisterNode("preproc_include", handlePreprocInclude)
	w.RegisterNode("preproc_def", handlePreprocDef)
	w.RegisterNode("preproc_function_def", handlePreprocFunctionDef)
	w.RegisterNode("preproc_ifdef", handlePreprocIfdef)
	w.RegisterNode("preproc_if", handlePreprocIf)
	w.RegisterNode("comment", handleComment)
	w.RegisterNode("if_statement", makeConditionRecurser())
	w.RegisterNode("while_statement", makeConditionRecurser())
	w.RegisterNode("for_statement", makeConditionRecurser())
	w.RegisterNode("expression_statement", handleExpressionStatement)
	w.RegisterNode("return_statement", handleExpressionStatement)

	w.RegisterExpr("call_expression", makeCallExprHandler())
	w.RegisterExpr("string_literal", handleStringWords)
	w.RegisterExpr("identifier", func(*walker.Walker, *walker.Context, *sitter.Node) {})

	return w
}

// decompose walks a declarator subtree (init_declarator / pointer_declarator
// / array_declarator / identifier) and returns the identifier it ultimately
// names, how many pointer levels wrap it, and — for init_declarator — the
// initializer expression.
func decompose(n *sitter.Node) (ident *sitter.Node, pointerLevels int, value *sitter.Node) {
	if n == nil {
		return nil, 0, nil
	}
	switch n.Type() {
	case "init_declarator":
		value = n.ChildByFieldName("value")
		inner := n.ChildByFieldName("declarator")
		ident, pointerLevels, _ = decompose(inner)
		return ident, pointerLevels, value
	case "pointer_declarator":
		inner := n.ChildByFieldName("declarator")
		ident, pointerLevels, _ = decompose(inner)
		return ident, pointerLevels + 1, nil
	case "array_declarator":
		inner := n.ChildByFieldName("declarator")
		ident, pointerLevels, _ = decompose(inner)
		return ident, pointerLevels, nil
	case "identifier", "field_identifier":
		return n, 0, nil
	default:
		if inner := n.ChildByFieldName("declarator"); inner != nil {
			return decompose(inner)
		}
		return nil, 0, nil
	}
}

func typeText(ctx *walker.Context, classifier *classify.Classifier, typeNode *sitter.Node, pointerLevels int) string {
	base := walker.ExtractType(ctx, classifier, typeNode)
	if pointerLevels == 0 {
		return base
	}
	return base + " " + strings.Repeat("*", pointerLevels)
}

func storageModifier(source []byte, n *sitter.Node) string {
	var mods []string
	for _, child := range walker.NamedChildren(n) {
		switch child.Type() {
		case "storage_class_specifier", "type_qualifier":
			mods = append(mods, walker.TextOf(source, child))
		}
	}
	return strings.Join(mods, ",")
}

func makeDeclarationHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		typeNode := n.ChildByFieldName("type")
		modifier := storageModifier(ctx.Source, n)

		declarators := fieldOccurrences(n, ctx.Source, "declarator")
		for _, d := range declarators {
			ident, ptrLevels, value := decompose(d)
			if ident == nil {
				continue
			}
			name := walker.TextOf(ctx.Source, ident)
			o := occurrence.New(name, walker.LineOf(ident), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
			o.SetFacet("type", typeText(ctx, classifier, typeNode, ptrLevels))
			o.SetFacet("modifier", modifier)
			o = o.AsDefinition(walker.LocationOf(ident))
			ctx.Emit(o)

			if value != nil {
				w.VisitExpression(ctx, value)
			}
		}
	}
}

func fieldOccurrences(n *sitter.Node, source []byte, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

func findFunctionDeclarator(n *sitter.Node) (declarator *sitter.Node, pointerLevels int) {
	cur := n
	for cur != nil {
		switch cur.Type() {
		case "function_declarator":
			return cur, pointerLevels
		case "pointer_declarator":
			pointerLevels++
			cur = cur.ChildByFieldName("declarator")
		default:
			next := cur.ChildByFieldName("declarator")
			if next == nil {
				return nil, pointerLevels
			}
			cur = next
		}
	}
	return nil, pointerLevels
}

func makeFunctionHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		typeNode := n.ChildByFieldName("type")
		declarator := n.ChildByFieldName("declarator")
		if declarator == nil {
			w.ProcessChildren(ctx, n)
			return
		}
		fnDeclarator, ptrLevels := findFunctionDeclarator(declarator)
		if fnDeclarator == nil {
			w.ProcessChildren(ctx, n)
			return
		}
		nameNode := fnDeclarator.ChildByFieldName("declarator")
		if nameNode == nil {
			w.ProcessChildren(ctx, n)
			return
		}
		name := walker.TextOf(ctx.Source, nameNode)

		o := occurrence.New(name, walker.LineOf(n), occurrence.CtxFunction, ctx.Directory, ctx.Filename)
		o.SetFacet("type", typeText(ctx, classifier, typeNode, ptrLevels))
		o.SetFacet("modifier", storageModifier(ctx.Source, n))
		o = o.AsDefinition(walker.LocationOf(n))
		ctx.Emit(o)

		if params := fnDeclarator.ChildByFieldName("parameters"); params != nil {
			for _, p := range walker.NamedChildren(params) {
				if p.Type() != "parameter_declaration" {
					continue
				}
				paramType := p.ChildByFieldName("type")
				paramDeclarator := p.ChildByFieldName("declarator")
				ident, lvl, _ := decompose(paramDeclarator)
				if ident == nil {
					continue
				}
				pname := walker.TextOf(ctx.Source, ident)
				po := occurrence.New(pname, walker.LineOf(ident), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
				po.SetFacet("type", typeText(ctx, classifier, paramType, lvl))
				po = po.AsDefinition(walker.LocationOf(ident))
				ctx.Emit(po)
			}
		}

		if body := n.ChildByFieldName("body"); body != nil {
			w.VisitNode(ctx, body)
		}
	}
}

func handleLabeledStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	label := n.NamedChild(0)
	if label != nil {
		o := occurrence.New(walker.TextOf(ctx.Source, label), walker.LineOf(label), occurrence.CtxLabel, ctx.Directory, ctx.Filename)
		o = o.AsDefinition(walker.LocationOf(label))
		ctx.Emit(o)
	}
	count := int(n.NamedChildCount())
	for i := 1; i < count; i++ {
		w.VisitNode(ctx, n.NamedChild(i))
	}
}

func handleGotoStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	label := n.NamedChild(0)
	if label == nil {
		return
	}
	ctx.Emit(occurrence.New(walker.TextOf(ctx.Source, label), walker.LineOf(label), occurrence.CtxGoto, ctx.Directory, ctx.Filename))
}

// handlePreprocInclude emits the included path as an import occurrence;
// system headers (<stdio.h>) and local headers ("util.h") both emit, the
// former tagged clue=system.
func handlePreprocInclude(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	path := strings.Trim(walker.TextOf(ctx.Source, pathNode), "\"<>")
	o := occurrence.New(path, walker.LineOf(n), occurrence.CtxImport, ctx.Directory, ctx.Filename)
	if pathNode.Type() == "system_lib_string" {
		o.SetFacet("clue", "system")
	}
	ctx.Emit(o)
}

func handlePreprocDef(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	o := occurrence.New(walker.TextOf(ctx.Source, nameNode), walker.LineOf(n), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
	o.SetFacet("clue", "macro")
	o = o.AsDefinition(walker.LocationOf(n))
	ctx.Emit(o)
}

func handlePreprocFunctionDef(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := walker.TextOf(ctx.Source, nameNode)
	o := occurrence.New(name, walker.LineOf(n), occurrence.CtxFunction, ctx.Directory, ctx.Filename)
	o.SetFacet("clue", "macro")
	o = o.AsDefinition(walker.LocationOf(n))
	ctx.Emit(o)

	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range walker.NamedChildren(params) {
			if p.Type() != "identifier" {
				continue
			}
			po := occurrence.New(walker.TextOf(ctx.Source, p), walker.LineOf(p), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
			po.SetFacet("clue", name)
			po = po.AsDefinition(walker.LocationOf(p))
			ctx.Emit(po)
		}
	}
}

func handlePreprocIfdef(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	// Both #ifdef and #ifndef parse as preproc_ifdef; the directive token
	// itself is the only way to tell them apart.
	clue := "ifdef"
	if first := n.Child(0); first != nil && walker.TextOf(ctx.Source, first) == "#ifndef" {
		clue = "ifndef"
	}
	o := occurrence.New(walker.TextOf(ctx.Source, nameNode), walker.LineOf(n), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
	o.SetFacet("clue", clue)
	ctx.Emit(o)
	for _, child := range walker.NamedChildren(n) {
		if child != nameNode {
			w.VisitNode(ctx, child)
		}
	}
}

func handlePreprocIf(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	cond := n.ChildByFieldName("condition")
	if cond != nil {
		emitIdentifiersWithClue(ctx, cond, "if")
	}
	for _, child := range walker.NamedChildren(n) {
		if child != cond {
			w.VisitNode(ctx, child)
		}
	}
}

func emitIdentifiersWithClue(ctx *walker.Context, n *sitter.Node, clue string) {
	if n.Type() == "identifier" {
		ctx.Emit(func() occurrence.Occurrence {
			o := occurrence.New(walker.TextOf(ctx.Source, n), walker.LineOf(n), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
			o.SetFacet("clue", clue)
			return o
		}())
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		emitIdentifiersWithClue(ctx, n.Child(i), clue)
	}
}

func makeConditionRecurser() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		cond := n.ChildByFieldName("condition")
		if cond != nil {
			w.VisitExpression(ctx, cond)
		}
		for _, child := range walker.NamedChildren(n) {
			if child != cond {
				w.VisitNode(ctx, child)
			}
		}
	}
}

func handleExpressionStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		w.VisitExpression(ctx, child)
	}
}

func makeCallExprHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return
		}
		name := walker.TextOf(ctx.Source, fn)
		parent := ""
		switch fn.Type() {
		case "identifier":
		case "field_expression":
			name = walker.FieldText(ctx.Source, fn, "field")
			if arg := fn.ChildByFieldName("argument"); arg != nil && arg.Type() != "call_expression" {
				parent = walker.TextOf(ctx.Source, arg)
			} else {
				w.VisitExpression(ctx, arg)
			}
		default:
			w.VisitExpression(ctx, fn)
			name = ""
		}
		if name != "" {
			o := occurrence.New(name, walker.LineOf(n), occurrence.CtxCall, ctx.Directory, ctx.Filename)
			o.SetFacet("parent", parent)
			ctx.EmitFiltered(o)
		}

		args := n.ChildByFieldName("arguments")
		if args == nil {
			return
		}
		for _, arg := range walker.NamedChildren(args) {
			if arg.Type() == "identifier" {
				o := occurrence.New(walker.TextOf(ctx.Source, arg), walker.LineOf(arg), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
				o.SetFacet("clue", name)
				ctx.Emit(o)
				continue
			}
			w.VisitExpression(ctx, arg)
		}
	}
}

func handleComment(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	emitWords(ctx, n, occurrence.CtxComment)
}

func handleStringWords(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	emitWords(ctx, n, occurrence.CtxString)
}

func emitWords(ctx *walker.Context, n *sitter.Node, kind occurrence.Context) {
	text := walker.TextOf(ctx.Source, n)
	line := walker.LineOf(n)
	for _, raw := range filter.SplitWords(text) {
		cleaned := filter.CleanStringSymbol(raw)
		if cleaned == "" {
			continue
		}
		ctx.Emit(occurrence.New(cleaned, line, kind, ctx.Directory, ctx.Filename))
	}
}
