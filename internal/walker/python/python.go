// Package python implements the Python language walker: functions/methods
// (including decorated and async defs), classes, module- and
// instance-level assignments, imports, and calls. Member calls resolve
// call-only with parent set, matching the Go/C policy rather than
// TypeScript's emit-both policy.
package python

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	pythonlang "github.com/smacker/go-tree-sitter/python"

	"github.com/sourceminder/sourceminder/internal/classify"
	"github.com/sourceminder/sourceminder/internal/filter"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker"
)

// Language returns the tree-sitter grammar for Python.
func Language() *sitter.Language {
	return pythonlang.GetLanguage()
}

func newClassifier() *classify.Classifier {
	return classify.NewClassifier("python",
		[]string{"identifier", "none", "true", "false"},
		[]string{"attribute"},
		nil,
		[]string{"generic_type", "type"},
		nil,
		map[string]string{
			"subscript":  "",
			"tuple":      "tuple",
			"list":       "list",
			"dictionary": "dict",
			"union_type": "",
			"string":     "str",
		},
		nil,
	)
}

// New builds a Python walker bound to symbols.
func New(symbols *parsefrontend.SymbolTable) *walker.Walker {
	w := walker.New(symbols)
	classifier := newClassifier()

	w.RegisterNode("module", handleModule)
	w.RegisterNode("class_definition", makeClassHandler(classifier))
	w.RegisterNode("function_definition", makeFunctionHandler(classifier, ""))
	w.RegisterNode("decorated_definition", handleDecoratedDefinition(classifier))
	w.RegisterNode("assignment", makeAssignmentHandler(classifier, true))
	w.RegisterNode("augmented_assignment", makeAssignmentHandler(classifier, false))
	w.RegisterNode("import_statement", handleImportStatement)
	w.RegisterNode("import_from_statement", handleImportFromStatement)
	w.RegisterNode("expression_statement", handleExpressionStatement)
	w.RegisterNode("return_statement", handleExpressionStatement)
	w.RegisterNode("comment", handleComment)
	w.RegisterNode("string", handleStringWords)
	w.RegisterNode("if_statement", makeConditionRecurser())
	w.RegisterNode("while_statement", makeConditionRecurser())
	w.RegisterNode("for_statement", makeForRecurser())

	w.RegisterExpr("call", makeCallHandler())
	w.RegisterExpr("assignment", makeAssignmentHandler(classifier, true))
	w.RegisterExpr("augmented_assignment", makeAssignmentHandler(classifier, false))
	w.RegisterExpr("string", handleStringWords)
	w.RegisterExpr("identifier", func(*walker.Walker, *walker.Context, *sitter.Node) {})

	return w
}

func scopeOf(name string) string {
	if strings.HasPrefix(name, "__") && !strings.HasSuffix(name, "__") {
		return "private"
	}
	if strings.HasPrefix(name, "_") {
		return "protected"
	}
	return "public"
}

const capLen = 40

func capText(s string) string {
	if len(s) > capLen {
		return s[:capLen]
	}
	return s
}

// handleModule owns the tree root: Python's module name is the file's base
// name, not anything in the AST, so it is derived here before the walk
// descends.
func handleModule(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	ctx.Namespace = strings.TrimSuffix(ctx.Filename, filepath.Ext(ctx.Filename))
	w.ProcessChildren(ctx, n)
}

// decoratorClues, keyed by the function/class node about to be visited, is
// a side-channel set by handleDecoratedDefinition so the nested handler can
// read the joined "@name,@name" clue without threading an extra parameter
// through every HandlerFunc. A sync.Map rather than a plain map: files may
// be walked in parallel, and distinct goroutines would otherwise race on
// the same map even though no two ever share a key.
var decoratorClues sync.Map

func handleDecoratedDefinition(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		var names []string
		var def *sitter.Node
		for _, child := range walker.NamedChildren(n) {
			if child.Type() == "decorator" {
				expr := child.NamedChild(0)
				if expr != nil {
					names = append(names, "@"+walker.TextOf(ctx.Source, expr))
				}
				continue
			}
			def = child
		}
		if def == nil {
			return
		}
		clue := strings.Join(names, ",")
		decoratorClues.Store(def, clue)
		defer decoratorClues.Delete(def)

		switch def.Type() {
		case "function_definition":
			makeFunctionHandler(classifier, clue)(w, ctx, def)
		case "class_definition":
			makeClassHandler(classifier)(w, ctx, def)
		default:
			w.VisitNode(ctx, def)
		}
	}
}

func makeClassHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		nameNode := n.ChildByFieldName("name")
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "" {
			w.ProcessChildren(ctx, n)
			return
		}

		o := occurrence.New(name, walker.LineOf(n), occurrence.CtxType, ctx.Directory, ctx.Filename)
		o.SetFacet("namespace", ctx.Namespace)
		o = o.AsDefinition(walker.LocationOf(n))
		ctx.Emit(o)

		if body := n.ChildByFieldName("body"); body != nil {
			w.VisitNode(ctx, body)
		}
	}
}

func makeFunctionHandler(classifier *classify.Classifier, clue string) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		nameNode := n.ChildByFieldName("name")
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "" {
			w.ProcessChildren(ctx, n)
			return
		}

		o := occurrence.New(name, walker.LineOf(n), occurrence.CtxFunction, ctx.Directory, ctx.Filename)
		o.SetFacet("namespace", ctx.Namespace)
		o.SetFacet("scope", scopeOf(name))
		if c := clue; c != "" {
			o.SetFacet("clue", c)
		} else if stored, ok := decoratorClues.Load(n); ok {
			o.SetFacet("clue", stored.(string))
		}

		if first := n.Child(0); first != nil && walker.TextOf(ctx.Source, first) == "async" {
			o.SetFacet("modifier", "async")
		}

		if parent := walker.EnclosingOfType(n, "class_definition"); parent != nil {
			if parentName := parent.ChildByFieldName("name"); parentName != nil {
				o.SetFacet("parent", walker.TextOf(ctx.Source, parentName))
			}
		}

		if ret := n.ChildByFieldName("return_type"); ret != nil {
			if t := walker.ExtractType(ctx, classifier, ret); t != "" {
				o.SetFacet("type", t)
			}
		}

		o = o.AsDefinition(walker.LocationOf(n))
		ctx.Emit(o)

		if params := n.ChildByFieldName("parameters"); params != nil {
			emitParameters(ctx, classifier, params)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			w.VisitNode(ctx, body)
		}
	}
}

func emitParameters(ctx *walker.Context, classifier *classify.Classifier, params *sitter.Node) {
	for _, p := range walker.NamedChildren(params) {
		var nameNode, typeNode *sitter.Node
		switch p.Type() {
		case "identifier":
			nameNode = p
		case "typed_parameter":
			nameNode = p.NamedChild(0)
			typeNode = p.ChildByFieldName("type")
		case "default_parameter", "typed_default_parameter":
			nameNode = p.ChildByFieldName("name")
			typeNode = p.ChildByFieldName("type")
		case "list_splat_pattern", "dictionary_splat_pattern":
			nameNode = p.NamedChild(0)
		default:
			continue
		}
		if nameNode == nil {
			continue
		}
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "" {
			continue
		}
		o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
		if typeNode != nil {
			if t := walker.ExtractType(ctx, classifier, typeNode); t != "" {
				o.SetFacet("type", t)
			}
		}
		o = o.AsDefinition(walker.LocationOf(nameNode))
		ctx.Emit(o)
	}
}

func makeAssignmentHandler(classifier *classify.Classifier, isDefinition bool) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if left != nil {
			emitAssignmentTarget(ctx, classifier, left, n, isDefinition)
		}
		if right != nil {
			w.VisitExpression(ctx, right)
		}
	}
}

func emitAssignmentTarget(ctx *walker.Context, classifier *classify.Classifier, left, stmt *sitter.Node, isDefinition bool) {
	switch left.Type() {
	case "identifier":
		name := walker.TextOf(ctx.Source, left)
		o := occurrence.New(name, walker.LineOf(left), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
		if name == strings.ToUpper(name) && name != "" {
			o.SetFacet("modifier", "const")
		}
		if annotated := stmt.ChildByFieldName("type"); annotated != nil {
			if t := walker.ExtractType(ctx, classifier, annotated); t != "" {
				o.SetFacet("type", t)
			}
		}
		if isDefinition {
			o = o.AsDefinition(walker.LocationOf(left))
		}
		ctx.Emit(o)
	case "attribute":
		object := left.ChildByFieldName("object")
		attr := left.ChildByFieldName("attribute")
		if attr == nil {
			return
		}
		o := occurrence.New(walker.TextOf(ctx.Source, attr), walker.LineOf(attr), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
		if object != nil {
			o.SetFacet("parent", capText(walker.TextOf(ctx.Source, object)))
		}
		if isDefinition {
			o = o.AsDefinition(walker.LocationOf(attr))
		}
		ctx.Emit(o)
	case "pattern_list", "tuple_pattern":
		for _, child := range walker.NamedChildren(left) {
			emitAssignmentTarget(ctx, classifier, child, stmt, isDefinition)
		}
	}
}

func handleImportStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		switch child.Type() {
		case "dotted_name":
			ctx.Emit(occurrence.New(walker.TextOf(ctx.Source, child), walker.LineOf(child), occurrence.CtxImport, ctx.Directory, ctx.Filename))
		case "aliased_import":
			name := child.ChildByFieldName("name")
			if name == nil {
				continue
			}
			o := occurrence.New(walker.TextOf(ctx.Source, name), walker.LineOf(child), occurrence.CtxImport, ctx.Directory, ctx.Filename)
			o.SetFacet("clue", "alias")
			ctx.Emit(o)
		}
	}
}

func handleImportFromStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	module := ""
	if moduleNode != nil {
		module = walker.TextOf(ctx.Source, moduleNode)
	}
	for _, child := range walker.NamedChildren(n) {
		if child == moduleNode {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			o := occurrence.New(walker.TextOf(ctx.Source, child), walker.LineOf(child), occurrence.CtxImport, ctx.Directory, ctx.Filename)
			o.SetFacet("namespace", module)
			ctx.Emit(o)
		case "aliased_import":
			name := child.ChildByFieldName("name")
			if name == nil {
				continue
			}
			o := occurrence.New(walker.TextOf(ctx.Source, name), walker.LineOf(child), occurrence.CtxImport, ctx.Directory, ctx.Filename)
			o.SetFacet("namespace", module)
			o.SetFacet("clue", "alias")
			ctx.Emit(o)
		case "wildcard_import":
			o := occurrence.New("*", walker.LineOf(child), occurrence.CtxImport, ctx.Directory, ctx.Filename)
			o.SetFacet("namespace", module)
			o.SetFacet("clue", "wildcard")
			ctx.Emit(o)
		}
	}
}

func handleExpressionStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		w.VisitExpression(ctx, child)
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

func makeForRecurser() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		if left := n.ChildByFieldName("left"); left != nil {
			for _, nameNode := range walker.NamedChildren(left) {
				if nameNode.Type() == "identifier" {
					o := occurrence.New(walker.TextOf(ctx.Source, nameNode), walker.LineOf(nameNode), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
					o.SetFacet("clue", "for")
					ctx.Emit(o)
				}
			}
			if left.Type() == "identifier" {
				o := occurrence.New(walker.TextOf(ctx.Source, left), walker.LineOf(left), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
				o.SetFacet("clue", "for")
				ctx.Emit(o)
			}
		}
		if right := n.ChildByFieldName("right"); right != nil {
			w.VisitExpression(ctx, right)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			w.VisitNode(ctx, body)
		}
	}
}

func makeCallHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return
		}

		var name, parent string
		switch fn.Type() {
		case "identifier":
			name = walker.TextOf(ctx.Source, fn)
		case "attribute":
			attr := fn.ChildByFieldName("attribute")
			name = walker.TextOf(ctx.Source, attr)
			if object := fn.ChildByFieldName("object"); object != nil && object.Type() != "call" {
				parent = capText(walker.TextOf(ctx.Source, object))
			}
		default:
			w.VisitExpression(ctx, fn)
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
			switch arg.Type() {
			case "identifier":
				argName := walker.TextOf(ctx.Source, arg)
				o := occurrence.New(argName, walker.LineOf(arg), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
				o.SetFacet("clue", name)
				ctx.Emit(o)
			case "keyword_argument":
				if value := arg.ChildByFieldName("value"); value != nil {
					w.VisitExpression(ctx, value)
				}
			default:
				w.VisitExpression(ctx, arg)
			}
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
