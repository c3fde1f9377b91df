// Package php implements the PHP language walker: functions, methods,
// classes/interfaces/traits, properties and constants, namespaces and
// use-imports, and calls. Member calls resolve call-only with parent set,
// matching the Go/C/Python policy rather than TypeScript's emit-both.
package php

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	phplang "github.com/smacker/go-tree-sitter/php"

	"github.com/sourceminder/sourceminder/internal/classify"
	"github.com/sourceminder/sourceminder/internal/filter"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker"
)

// Language returns the tree-sitter grammar for PHP.
func Language() *sitter.Language {
	return phplang.GetLanguage()
}

func newClassifier() *classify.Classifier {
	return classify.NewClassifier("php",
		[]string{"primitive_type", "name"},
		[]string{"qualified_name", "namespace_name"},
		nil,
		[]string{"optional_type"},
		nil,
		map[string]string{
			"union_type":                   "",
			"bottom_type":                  "",
			"disjunctive_normal_form_type": "",
		},
		nil,
	)
}

// New builds a PHP walker bound to symbols.
func New(symbols *parsefrontend.SymbolTable) *walker.Walker {
	w := walker.New(symbols)
	classifier := newClassifier()

	w.RegisterNode("namespace_definition", handleNamespaceDefinition)
	w.RegisterNode("namespace_use_declaration", handleNamespaceUseDeclaration)
	w.RegisterNode("class_declaration", makeTypeDeclHandler(occurrence.CtxType))
	w.RegisterNode("interface_declaration", makeTypeDeclHandler(occurrence.CtxType))
	w.RegisterNode("trait_declaration", makeTypeDeclHandler(occurrence.CtxType))
	w.RegisterNode("enum_declaration", makeTypeDeclHandler(occurrence.CtxEnum))
	w.RegisterNode("function_definition", makeFunctionHandler(classifier))
	w.RegisterNode("method_declaration", makeFunctionHandler(classifier))
	w.RegisterNode("property_declaration", makePropertyDeclHandler(classifier))
	w.RegisterNode("const_declaration", handleConstDeclaration)
	w.RegisterNode("expression_statement", handleExpressionStatement)
	w.RegisterNode("return_statement", handleExpressionStatement)
	w.RegisterNode("assignment_expression", makeAssignmentHandler())
	w.RegisterNode("comment", handleComment)
	w.RegisterNode("if_statement", makeConditionRecurser())
	w.RegisterNode("while_statement", makeConditionRecurser())
	w.RegisterNode("foreach_statement", makeForeachRecurser())

	w.RegisterExpr("function_call_expression", makeFunctionCallHandler())
	w.RegisterExpr("member_call_expression", makeMemberCallHandler())
	w.RegisterExpr("scoped_call_expression", makeScopedCallHandler())
	w.RegisterExpr("member_access_expression", makeMemberAccessHandler())
	w.RegisterExpr("assignment_expression", makeAssignmentHandler())
	w.RegisterExpr("string", handleStringWords)
	w.RegisterExpr("encapsed_string", handleStringWords)
	w.RegisterExpr("variable_name", func(*walker.Walker, *walker.Context, *sitter.Node) {})

	return w
}

const capLen = 40

func capText(s string) string {
	if len(s) > capLen {
		return s[:capLen]
	}
	return s
}

// stripSigil removes PHP's leading "$" variable sigil, so the stored symbol
// is the bare name ("x" rather than "$x").
func stripSigil(s string) string {
	return strings.TrimPrefix(s, "$")
}

// modifiersOf scans n's immediate children for PHP member modifier
// keywords (visibility, static, abstract, final, readonly) and returns
// them joined, using source to read token text since tree-sitter nodes
// carry no text of their own.
func modifiersOf(source []byte, n *sitter.Node) (scope, modifier string) {
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			scope = walker.TextOf(source, child)
		case "static_modifier":
			mods = append(mods, "static")
		case "abstract_modifier":
			mods = append(mods, "abstract")
		case "final_modifier":
			mods = append(mods, "final")
		case "readonly_modifier":
			mods = append(mods, "readonly")
		}
	}
	if scope == "" {
		scope = "public"
	}
	return scope, strings.Join(mods, ",")
}

func handleNamespaceDefinition(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode != nil {
		name := walker.TextOf(ctx.Source, nameNode)
		ctx.Namespace = name
		o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxNamespace, ctx.Directory, ctx.Filename)
		o = o.AsDefinition(walker.LocationOf(nameNode))
		ctx.Emit(o)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		w.VisitNode(ctx, body)
	} else {
		for _, child := range walker.NamedChildren(n) {
			if child != nameNode {
				w.VisitNode(ctx, child)
			}
		}
	}
}

func handleNamespaceUseDeclaration(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		if child.Type() != "namespace_use_clause" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		aliasNode := child.ChildByFieldName("alias")
		target := nameNode
		clue := ""
		if aliasNode != nil {
			target = aliasNode
			clue = "alias"
		}
		if target == nil {
			continue
		}
		o := occurrence.New(walker.TextOf(ctx.Source, target), walker.LineOf(child), occurrence.CtxImport, ctx.Directory, ctx.Filename)
		o.SetFacet("clue", clue)
		if nameNode != nil {
			o.SetFacet("namespace", walker.TextOf(ctx.Source, nameNode))
		}
		ctx.Emit(o)
	}
}

func makeTypeDeclHandler(kind occurrence.Context) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		nameNode := n.ChildByFieldName("name")
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "" {
			w.ProcessChildren(ctx, n)
			return
		}

		o := occurrence.New(name, walker.LineOf(n), kind, ctx.Directory, ctx.Filename)
		o.SetFacet("namespace", ctx.Namespace)
		o = o.AsDefinition(walker.LocationOf(n))
		ctx.Emit(o)

		if body := n.ChildByFieldName("body"); body != nil {
			w.VisitNode(ctx, body)
		}
	}
}

func makeFunctionHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		nameNode := n.ChildByFieldName("name")
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "" {
			w.ProcessChildren(ctx, n)
			return
		}

		o := occurrence.New(name, walker.LineOf(n), occurrence.CtxFunction, ctx.Directory, ctx.Filename)
		o.SetFacet("namespace", ctx.Namespace)
		scope, modifier := modifiersOf(ctx.Source, n)
		o.SetFacet("scope", scope)
		o.SetFacet("modifier", modifier)

		if parent := walker.EnclosingOfType(n, "class_declaration", "interface_declaration", "trait_declaration"); parent != nil {
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
			emitParameters(ctx, classifier, params, name)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			w.VisitNode(ctx, body)
		}
	}
}

func emitParameters(ctx *walker.Context, classifier *classify.Classifier, params *sitter.Node, clue string) {
	for _, p := range walker.NamedChildren(params) {
		var nameNode, typeNode *sitter.Node
		switch p.Type() {
		case "simple_parameter":
			nameNode = p.ChildByFieldName("name")
			typeNode = p.ChildByFieldName("type")
		case "variadic_parameter":
			nameNode = p.ChildByFieldName("name")
			typeNode = p.ChildByFieldName("type")
		case "property_promotion_parameter":
			nameNode = p.ChildByFieldName("name")
			typeNode = p.ChildByFieldName("type")
		default:
			continue
		}
		if nameNode == nil {
			continue
		}
		name := stripSigil(walker.TextOf(ctx.Source, nameNode))
		if name == "" {
			continue
		}
		o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
		o.SetFacet("clue", clue)
		if typeNode != nil {
			if t := walker.ExtractType(ctx, classifier, typeNode); t != "" {
				o.SetFacet("type", t)
			}
		}
		o = o.AsDefinition(walker.LocationOf(nameNode))
		ctx.Emit(o)
	}
}

func makePropertyDeclHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		scope, modifier := modifiersOf(ctx.Source, n)
		var typeNode *sitter.Node
		for _, child := range walker.NamedChildren(n) {
			if child.Type() != "property_element" {
				if typeNode == nil && child.Type() != "visibility_modifier" && child.Type() != "static_modifier" &&
					child.Type() != "abstract_modifier" && child.Type() != "final_modifier" && child.Type() != "readonly_modifier" {
					typeNode = child
				}
				continue
			}

			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = child.NamedChild(0)
			}
			if nameNode == nil {
				continue
			}

			o := occurrence.New(stripSigil(walker.TextOf(ctx.Source, nameNode)), walker.LineOf(nameNode), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
			o.SetFacet("scope", scope)
			o.SetFacet("modifier", modifier)
			if parent := walker.EnclosingOfType(n, "class_declaration", "trait_declaration"); parent != nil {
				if parentName := parent.ChildByFieldName("name"); parentName != nil {
					o.SetFacet("parent", walker.TextOf(ctx.Source, parentName))
				}
			}
			if typeNode != nil {
				if t := walker.ExtractType(ctx, classifier, typeNode); t != "" {
					o.SetFacet("type", t)
				}
			}
			o = o.AsDefinition(walker.LocationOf(nameNode))
			ctx.Emit(o)

			if value := child.ChildByFieldName("default_value"); value != nil {
				w.VisitExpression(ctx, value)
			}
		}
	}
}

func handleConstDeclaration(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		if child.Type() != "const_element" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		o := occurrence.New(walker.TextOf(ctx.Source, nameNode), walker.LineOf(nameNode), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
		o.SetFacet("modifier", "const")
		if parent := walker.EnclosingOfType(n, "class_declaration", "interface_declaration"); parent != nil {
			if parentName := parent.ChildByFieldName("name"); parentName != nil {
				o.SetFacet("parent", walker.TextOf(ctx.Source, parentName))
			}
		}
		o = o.AsDefinition(walker.LocationOf(nameNode))
		ctx.Emit(o)

		if value := child.ChildByFieldName("value"); value != nil {
			w.VisitExpression(ctx, value)
		}
	}
}

func handleExpressionStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		w.VisitExpression(ctx, child)
	}
}

func makeAssignmentHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if left != nil {
			switch left.Type() {
			case "variable_name":
				name := stripSigil(walker.TextOf(ctx.Source, left))
				o := occurrence.New(name, walker.LineOf(left), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
				if name == strings.ToUpper(name) && name != "" {
					o.SetFacet("modifier", "const")
				}
				o = o.AsDefinition(walker.LocationOf(left))
				ctx.Emit(o)
			default:
				w.VisitExpression(ctx, left)
			}
		}
		if right != nil {
			w.VisitExpression(ctx, right)
		}
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

func makeForeachRecurser() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		if value := n.ChildByFieldName("value"); value != nil && value.Type() == "variable_name" {
			o := occurrence.New(stripSigil(walker.TextOf(ctx.Source, value)), walker.LineOf(value), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
			o.SetFacet("clue", "foreach")
			ctx.Emit(o)
		}
		if key := n.ChildByFieldName("key"); key != nil && key.Type() == "variable_name" {
			o := occurrence.New(stripSigil(walker.TextOf(ctx.Source, key)), walker.LineOf(key), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
			o.SetFacet("clue", "foreach")
			ctx.Emit(o)
		}
		if array := n.ChildByFieldName("array"); array != nil {
			w.VisitExpression(ctx, array)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			w.VisitNode(ctx, body)
		}
	}
}

func makeFunctionCallHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		fn := n.ChildByFieldName("function")
		if fn == nil {
			w.ProcessExpressionChildren(ctx, n)
			return
		}
		name := walker.TextOf(ctx.Source, fn)
		if name != "" {
			o := occurrence.New(name, walker.LineOf(n), occurrence.CtxCall, ctx.Directory, ctx.Filename)
			ctx.EmitFiltered(o)
		}
		emitCallArguments(w, ctx, n, name)
	}
}

func makeMemberCallHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		object := n.ChildByFieldName("object")
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			w.ProcessExpressionChildren(ctx, n)
			return
		}
		name := walker.TextOf(ctx.Source, nameNode)
		parent := ""
		if object != nil {
			objText := walker.TextOf(ctx.Source, object)
			if objText == "$this" {
				parent = "this"
			} else {
				parent = capText(stripSigil(objText))
			}
			if object.Type() != "variable_name" {
				w.VisitExpression(ctx, object)
			}
		}
		if name != "" {
			o := occurrence.New(name, walker.LineOf(n), occurrence.CtxCall, ctx.Directory, ctx.Filename)
			o.SetFacet("parent", parent)
			ctx.EmitFiltered(o)
		}
		emitCallArguments(w, ctx, n, name)
	}
}

func makeScopedCallHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		scope := n.ChildByFieldName("scope")
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			w.ProcessExpressionChildren(ctx, n)
			return
		}
		name := walker.TextOf(ctx.Source, nameNode)
		parent := ""
		if scope != nil {
			parent = capText(walker.TextOf(ctx.Source, scope))
		}
		if name != "" {
			o := occurrence.New(name, walker.LineOf(n), occurrence.CtxCall, ctx.Directory, ctx.Filename)
			o.SetFacet("parent", parent)
			ctx.EmitFiltered(o)
		}
		emitCallArguments(w, ctx, n, name)
	}
}

func emitCallArguments(w *walker.Walker, ctx *walker.Context, n *sitter.Node, clue string) {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for _, arg := range walker.NamedChildren(args) {
		switch arg.Type() {
		case "argument":
			if value := arg.NamedChild(0); value != nil {
				if value.Type() == "variable_name" {
					o := occurrence.New(stripSigil(walker.TextOf(ctx.Source, value)), walker.LineOf(value), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
					o.SetFacet("clue", clue)
					ctx.Emit(o)
				} else {
					w.VisitExpression(ctx, value)
				}
			}
		case "variable_name":
			o := occurrence.New(stripSigil(walker.TextOf(ctx.Source, arg)), walker.LineOf(arg), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
			o.SetFacet("clue", clue)
			ctx.Emit(o)
		default:
			w.VisitExpression(ctx, arg)
		}
	}
}

func makeMemberAccessHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		object := n.ChildByFieldName("object")
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			w.ProcessExpressionChildren(ctx, n)
			return
		}
		name := walker.TextOf(ctx.Source, nameNode)
		parent := ""
		if object != nil {
			objText := walker.TextOf(ctx.Source, object)
			if objText == "$this" {
				parent = "this"
			} else {
				parent = capText(stripSigil(objText))
				if object.Type() != "variable_name" {
					w.VisitExpression(ctx, object)
				}
			}
		}
		o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
		o.SetFacet("parent", parent)
		ctx.EmitFiltered(o)
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
