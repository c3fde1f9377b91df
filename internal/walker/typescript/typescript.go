// Package typescript implements the TypeScript/JavaScript language walker.
// One dispatch table serves both grammars: JavaScript source simply never
// produces the type-annotation node types this walker also understands.
// Member calls resolve emit-both: a member_expression and its wrapping
// call_expression are treated as distinct mapped kinds, each producing its
// own occurrence — unlike the call-only-with-parent policy the Go, C, and
// Python walkers use.
package typescript

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	javascriptlang "github.com/smacker/go-tree-sitter/javascript"
	typescriptlang "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/sourceminder/sourceminder/internal/classify"
	"github.com/sourceminder/sourceminder/internal/filter"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker"
)

// Language returns the tree-sitter grammar for TypeScript (.ts, .tsx).
func Language() *sitter.Language {
	return typescriptlang.GetLanguage()
}

// LanguageJS returns the tree-sitter grammar for plain JavaScript (.js,
// .jsx, .mjs), driven by the same Walker built by New.
func LanguageJS() *sitter.Language {
	return javascriptlang.GetLanguage()
}

func newClassifier() *classify.Classifier {
	return classify.NewClassifier("typescript",
		[]string{"predefined_type", "type_identifier"},
		[]string{"nested_type_identifier"},
		nil,
		[]string{"type_annotation", "parenthesized_type"},
		nil,
		map[string]string{
			"array_type":         "",
			"tuple_type":         "tuple",
			"union_type":         "",
			"intersection_type":  "",
			"function_type":      "",
			"generic_type":       "",
			"object_type":        "object",
			"literal_type":       "",
			"type_query":         "",
			"conditional_type":   "",
			"index_type_query":   "",
			"mapped_type_clause": "",
		},
		nil,
	)
}

// New builds a TypeScript/JavaScript walker bound to symbols.
func New(symbols *parsefrontend.SymbolTable) *walker.Walker {
	w := walker.New(symbols)
	classifier := newClassifier()

	w.RegisterNode("class_declaration", makeClassHandler(classifier))
	w.RegisterNode("interface_declaration", makeInterfaceHandler(classifier))
	w.RegisterNode("type_alias_declaration", makeTypeAliasHandler(classifier))
	w.RegisterNode("enum_declaration", handleEnumDeclaration)
	w.RegisterNode("function_declaration", makeFunctionHandler(classifier, ""))
	w.RegisterNode("generator_function_declaration", makeFunctionHandler(classifier, "generator"))
	w.RegisterNode("method_definition", makeFunctionHandler(classifier, ""))
	w.RegisterNode("property_signature", makePropertySignatureHandler(classifier))
	w.RegisterNode("method_signature", makeFunctionHandler(classifier, ""))
	w.RegisterNode("public_field_definition", makeFieldHandler(classifier))
	w.RegisterNode("field_definition", makeFieldHandler(classifier))
	w.RegisterNode("lexical_declaration", makeVariableHandler(classifier, true))
	w.RegisterNode("variable_declaration", makeVariableHandler(classifier, false))
	w.RegisterNode("import_statement", handleImportStatement)
	w.RegisterNode("expression_statement", handleExpressionStatement)
	w.RegisterNode("return_statement", handleExpressionStatement)
	w.RegisterNode("assignment_expression", makeAssignmentHandler(true))
	w.RegisterNode("augmented_assignment_expression", makeAssignmentHandler(false))
	w.RegisterNode("decorator", handleDecorator)
	w.RegisterNode("comment", handleComment)
	w.RegisterNode("if_statement", makeConditionRecurser())
	w.RegisterNode("while_statement", makeConditionRecurser())
	w.RegisterNode("for_statement", makeForStatementRecurser())
	w.RegisterNode("arrow_function", makeArrowFunctionHandler(classifier))

	w.RegisterExpr("call_expression", makeCallExprHandler())
	w.RegisterExpr("member_expression", makeMemberExprHandler())
	w.RegisterExpr("assignment_expression", makeAssignmentHandler(true))
	w.RegisterExpr("augmented_assignment_expression", makeAssignmentHandler(false))
	w.RegisterExpr("arrow_function", makeArrowFunctionHandler(classifier))
	w.RegisterExpr("string", handleComment)
	w.RegisterExpr("template_string", handleComment)
	w.RegisterExpr("identifier", func(*walker.Walker, *walker.Context, *sitter.Node) {})

	return w
}

const capLen = 40

func capText(s string) string {
	if len(s) > capLen {
		return s[:capLen]
	}
	return s
}

// unhash strips the leading '#' tree-sitter keeps on the token text of a
// private_property_identifier, so the stored symbol is the bare name
// ("#b" indexes as "b").
func unhash(s string) string {
	return strings.TrimPrefix(s, "#")
}

func scopeOfMember(nameNode *sitter.Node, owner *sitter.Node, source []byte) string {
	if nameNode != nil && nameNode.Type() == "private_property_identifier" {
		return "private"
	}
	for i := 0; i < int(owner.ChildCount()); i++ {
		child := owner.Child(i)
		if child.Type() != "accessibility_modifier" {
			continue
		}
		return walker.TextOf(source, child)
	}
	return "public"
}

func collectModifiers(source []byte, n *sitter.Node) string {
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		text := walker.TextOf(source, n.Child(i))
		switch text {
		case "static", "async", "readonly", "abstract", "get", "set":
			mods = append(mods, text)
		}
	}
	return strings.Join(mods, ",")
}

func handleDecorator(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		w.VisitExpression(ctx, child)
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

		for _, child := range walker.NamedChildren(n) {
			if child == nameNode {
				continue
			}
			w.VisitNode(ctx, child)
		}
	}
}

func makeInterfaceHandler(classifier *classify.Classifier) walker.HandlerFunc {
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

func makeTypeAliasHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		nameNode := n.ChildByFieldName("name")
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "" {
			return
		}

		o := occurrence.New(name, walker.LineOf(n), occurrence.CtxType, ctx.Directory, ctx.Filename)
		o.SetFacet("namespace", ctx.Namespace)
		if value := n.ChildByFieldName("value"); value != nil {
			if t := walker.ExtractType(ctx, classifier, value); t != "" {
				o.SetFacet("type", t)
			}
		}
		o = o.AsDefinition(walker.LocationOf(n))
		ctx.Emit(o)
	}
}

func handleEnumDeclaration(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	name := walker.TextOf(ctx.Source, nameNode)
	if name == "" {
		return
	}

	o := occurrence.New(name, walker.LineOf(n), occurrence.CtxEnum, ctx.Directory, ctx.Filename)
	o.SetFacet("namespace", ctx.Namespace)
	o = o.AsDefinition(walker.LocationOf(n))
	ctx.Emit(o)

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for _, member := range walker.NamedChildren(body) {
		var memberName *sitter.Node
		switch member.Type() {
		case "property_identifier":
			memberName = member
		case "enum_assignment":
			memberName = member.ChildByFieldName("name")
		default:
			continue
		}
		if memberName == nil {
			continue
		}
		co := occurrence.New(walker.TextOf(ctx.Source, memberName), walker.LineOf(memberName), occurrence.CtxEnumCase, ctx.Directory, ctx.Filename)
		co.SetFacet("parent", name)
		co = co.AsDefinition(walker.LocationOf(memberName))
		ctx.Emit(co)
	}
}

func makeFunctionHandler(classifier *classify.Classifier, modifierClue string) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		nameNode := n.ChildByFieldName("name")
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "" {
			w.ProcessChildren(ctx, n)
			return
		}

		o := occurrence.New(name, walker.LineOf(n), occurrence.CtxFunction, ctx.Directory, ctx.Filename)
		o.SetFacet("namespace", ctx.Namespace)
		o.SetFacet("scope", scopeOfMember(nameNode, n, ctx.Source))

		mods := collectModifiers(ctx.Source, n)
		switch {
		case modifierClue != "" && mods != "":
			o.SetFacet("modifier", modifierClue + "," + mods)
		case modifierClue != "":
			o.SetFacet("modifier", modifierClue)
		default:
			o.SetFacet("modifier", mods)
		}

		if parent := walker.EnclosingOfType(n, "class_declaration", "interface_declaration"); parent != nil {
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

func makeArrowFunctionHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		if params := n.ChildByFieldName("parameters"); params != nil {
			emitParameters(ctx, classifier, params)
		} else if p := n.ChildByFieldName("parameter"); p != nil && p.Type() == "identifier" {
			o := occurrence.New(walker.TextOf(ctx.Source, p), walker.LineOf(p), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
			o = o.AsDefinition(walker.LocationOf(p))
			ctx.Emit(o)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Type() == "statement_block" {
				w.VisitNode(ctx, body)
			} else {
				w.VisitExpression(ctx, body)
			}
		}
	}
}

func emitParameters(ctx *walker.Context, classifier *classify.Classifier, params *sitter.Node) {
	for _, p := range walker.NamedChildren(params) {
		var nameNode, typeNode *sitter.Node
		switch p.Type() {
		case "identifier":
			nameNode = p
		case "required_parameter", "optional_parameter":
			nameNode = p.ChildByFieldName("pattern")
			typeNode = p.ChildByFieldName("type")
		case "rest_parameter":
			nameNode = p.NamedChild(0)
		default:
			continue
		}
		if nameNode == nil || nameNode.Type() != "identifier" {
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

func makePropertySignatureHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := unhash(walker.TextOf(ctx.Source, nameNode))
		o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
		o.SetFacet("scope", scopeOfMember(nameNode, n, ctx.Source))
		if parent := walker.EnclosingOfType(n, "interface_declaration"); parent != nil {
			if parentName := parent.ChildByFieldName("name"); parentName != nil {
				o.SetFacet("parent", walker.TextOf(ctx.Source, parentName))
			}
		}
		if t := n.ChildByFieldName("type"); t != nil {
			if tv := walker.ExtractType(ctx, classifier, t); tv != "" {
				o.SetFacet("type", tv)
			}
		}
		o = o.AsDefinition(walker.LocationOf(nameNode))
		ctx.Emit(o)
	}
}

func makeFieldHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		propNode := n.ChildByFieldName("property")
		if propNode == nil {
			propNode = n.ChildByFieldName("name")
		}
		if propNode == nil {
			w.ProcessChildren(ctx, n)
			return
		}

		name := unhash(walker.TextOf(ctx.Source, propNode))
		o := occurrence.New(name, walker.LineOf(propNode), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
		o.SetFacet("scope", scopeOfMember(propNode, n, ctx.Source))
		o.SetFacet("modifier", collectModifiers(ctx.Source, n))

		if parent := walker.EnclosingOfType(n, "class_declaration"); parent != nil {
			if parentName := parent.ChildByFieldName("name"); parentName != nil {
				o.SetFacet("parent", walker.TextOf(ctx.Source, parentName))
			}
		}
		if t := n.ChildByFieldName("type"); t != nil {
			if tv := walker.ExtractType(ctx, classifier, t); tv != "" {
				o.SetFacet("type", tv)
			}
		}

		o = o.AsDefinition(walker.LocationOf(propNode))
		ctx.Emit(o)

		if value := n.ChildByFieldName("value"); value != nil {
			w.VisitExpression(ctx, value)
		}
	}
}

func makeVariableHandler(classifier *classify.Classifier, checkConstKind bool) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		isConst := false
		if checkConstKind && n.Child(0) != nil {
			isConst = walker.TextOf(ctx.Source, n.Child(0)) == "const"
		}
		for _, child := range walker.NamedChildren(n) {
			if child.Type() != "variable_declarator" {
				continue
			}
			emitDeclarator(w, ctx, classifier, child, isConst)
		}
	}
}

func emitDeclarator(w *walker.Walker, ctx *walker.Context, classifier *classify.Classifier, n *sitter.Node, isConst bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	switch nameNode.Type() {
	case "identifier":
		o := occurrence.New(walker.TextOf(ctx.Source, nameNode), walker.LineOf(nameNode), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
		if isConst {
			o.SetFacet("modifier", "const")
		}
		if t := n.ChildByFieldName("type"); t != nil {
			if tv := walker.ExtractType(ctx, classifier, t); tv != "" {
				o.SetFacet("type", tv)
			}
		}
		o = o.AsDefinition(walker.LocationOf(nameNode))
		ctx.Emit(o)
	case "object_pattern", "array_pattern":
		for _, el := range walker.NamedChildren(nameNode) {
			if el.Type() == "identifier" || el.Type() == "shorthand_property_identifier_pattern" {
				o := occurrence.New(walker.TextOf(ctx.Source, el), walker.LineOf(el), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
				if isConst {
					o.SetFacet("modifier", "const")
				}
				ctx.Emit(o)
			}
		}
	}

	if value := n.ChildByFieldName("value"); value != nil {
		w.VisitExpression(ctx, value)
	}
}

func handleImportStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	sourceNode := n.ChildByFieldName("source")
	module := ""
	if sourceNode != nil {
		module = strings.Trim(walker.TextOf(ctx.Source, sourceNode), `"'`)
	}

	clause := n.ChildByFieldName("import")
	if clause == nil {
		for _, child := range walker.NamedChildren(n) {
			if child.Type() == "import_clause" {
				clause = child
				break
			}
		}
	}
	if clause == nil {
		return
	}

	emit := func(nameNode *sitter.Node, clue string) {
		if nameNode == nil {
			return
		}
		o := occurrence.New(walker.TextOf(ctx.Source, nameNode), walker.LineOf(nameNode), occurrence.CtxImport, ctx.Directory, ctx.Filename)
		o.SetFacet("namespace", module)
		o.SetFacet("clue", clue)
		ctx.Emit(o)
	}

	for _, child := range walker.NamedChildren(clause) {
		switch child.Type() {
		case "identifier":
			emit(child, "default")
		case "namespace_import":
			emit(child.NamedChild(0), "namespace")
		case "named_imports":
			for _, spec := range walker.NamedChildren(child) {
				if spec.Type() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				alias := spec.ChildByFieldName("alias")
				if alias != nil {
					emit(alias, "alias")
				} else {
					emit(name, "")
				}
			}
		}
	}
}

func handleExpressionStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		w.VisitExpression(ctx, child)
	}
}

func makeAssignmentHandler(isDefinition bool) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if left != nil {
			switch left.Type() {
			case "identifier":
				name := walker.TextOf(ctx.Source, left)
				o := occurrence.New(name, walker.LineOf(left), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
				if name == strings.ToUpper(name) && name != "" {
					o.SetFacet("modifier", "const")
				}
				if isDefinition {
					o = o.AsDefinition(walker.LocationOf(left))
				}
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

func makeForStatementRecurser() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		for _, child := range walker.NamedChildren(n) {
			switch child.Type() {
			case "lexical_declaration", "variable_declaration":
				w.VisitNode(ctx, child)
			default:
				w.VisitExpression(ctx, child)
			}
		}
	}
}

func makeCallExprHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		fn := n.ChildByFieldName("function")
		if fn == nil {
			w.ProcessExpressionChildren(ctx, n)
			return
		}

		var name, parent string
		switch fn.Type() {
		case "identifier":
			name = walker.TextOf(ctx.Source, fn)
		case "member_expression":
			name, parent = emitMemberAsProperty(w, ctx, fn)
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
			default:
				w.VisitExpression(ctx, arg)
			}
		}
	}
}

// emitMemberAsProperty emits n (a member_expression) as a property
// occurrence and returns its name/parent for the caller's call occurrence:
// a member call like `a.b()` indexes both `a.b` as a property reference
// and `b` as the call.
func emitMemberAsProperty(w *walker.Walker, ctx *walker.Context, n *sitter.Node) (name, parent string) {
	propNode := n.ChildByFieldName("property")
	objNode := n.ChildByFieldName("object")
	if propNode == nil {
		w.VisitExpression(ctx, n)
		return "", ""
	}

	name = unhash(walker.TextOf(ctx.Source, propNode))
	if objNode != nil {
		if objNode.Type() == "this" {
			parent = "this"
		} else {
			parent = capText(walker.TextOf(ctx.Source, objNode))
		}
	}

	o := occurrence.New(name, walker.LineOf(propNode), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
	o.SetFacet("parent", parent)
	if propNode.Type() == "private_property_identifier" {
		o.SetFacet("scope", "private")
	}
	ctx.EmitFiltered(o)

	if objNode != nil && objNode.Type() != "this" && objNode.Type() != "identifier" {
		w.VisitExpression(ctx, objNode)
	}
	return name, parent
}

func makeMemberExprHandler() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		emitMemberAsProperty(w, ctx, n)
	}
}

func handleComment(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	text := walker.TextOf(ctx.Source, n)
	line := walker.LineOf(n)
	kind := occurrence.CtxComment
	if n.Type() != "comment" {
		kind = occurrence.CtxString
	}
	for _, raw := range filter.SplitWords(text) {
		cleaned := filter.CleanStringSymbol(raw)
		if cleaned == "" {
			continue
		}
		ctx.Emit(occurrence.New(cleaned, line, kind, ctx.Directory, ctx.Filename))
	}
}
