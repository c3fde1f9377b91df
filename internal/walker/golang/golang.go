// Package golang implements the Go language walker. It builds a
// walker.Walker whose dispatch table covers package/function/type/variable
// declarations, calls, member access, and Go's concurrency constructs
// (goroutines, defers, channel operations, select).
package golang

import (
	"strconv"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	golanglang "github.com/smacker/go-tree-sitter/golang"

	"github.com/sourceminder/sourceminder/internal/classify"
	"github.com/sourceminder/sourceminder/internal/filter"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker"
)

// Language returns the tree-sitter grammar for Go.
func Language() *sitter.Language {
	return golanglang.GetLanguage()
}

func newClassifier() *classify.Classifier {
	return classify.NewClassifier("go",
		[]string{"type_identifier", "field_identifier"},
		[]string{"qualified_type"},
		[]string{"pointer_type"},
		[]string{"parenthesized_type"},
		nil,
		map[string]string{
			"struct_type":    "struct",
			"interface_type": "interface",
			"slice_type":     "",
			"array_type":     "",
			"map_type":       "map",
			"channel_type":   "",
			"function_type":  "",
			"generic_type":   "",
		},
		map[string]string{"pointer_type": "", "parenthesized_type": ""},
	)
}

// New builds a Go walker bound to symbols (the SymbolTable shared with the
// Frontend parsing .go files).
func New(symbols *parsefrontend.SymbolTable) *walker.Walker {
	w := walker.New(symbols)
	classifier := newClassifier()

	w.RegisterNode("package_clause", handlePackageClause)
	w.RegisterNode("import_spec", handleImportSpec)
	w.RegisterNode("function_declaration", makeFuncHandler(classifier))
	w.RegisterNode("method_declaration", makeFuncHandler(classifier))
	w.RegisterNode("type_spec", makeTypeSpecHandler(classifier))
	w.RegisterNode("var_spec", makeVarSpecHandler(classifier, "var"))
	w.RegisterNode("const_spec", makeConstSpecHandler(classifier))
	w.RegisterNode("short_var_declaration", makeShortVarHandler(classifier))
	w.RegisterNode("assignment_statement", handleAssignment)
	w.RegisterNode("expression_statement", handleExpressionStatement)
	w.RegisterNode("return_statement", handleExpressionStatement)
	w.RegisterNode("go_statement", makeWrapHandler("go"))
	w.RegisterNode("defer_statement", makeWrapHandler("defer"))
	w.RegisterNode("send_statement", handleSendStatement)
	w.RegisterNode("labeled_statement", handleLabeledStatement)
	w.RegisterNode("goto_statement", handleGotoStatement)
	w.RegisterNode("communication_case", handleCommunicationCase)
	w.RegisterNode("range_clause", handleRangeClause)
	w.RegisterNode("comment", handleComment)
	w.RegisterNode("if_statement", makeConditionRecurser())
	w.RegisterNode("for_statement", makeConditionRecurser())
	w.RegisterNode("expression_switch_statement", makeConditionRecurser())

	w.RegisterExpr("call_expression", makeCallExprHandler(classifier))
	w.RegisterExpr("selector_expression", handleSelectorExpression)
	w.RegisterExpr("unary_expression", handleUnaryExpression)
	w.RegisterExpr("interpreted_string_literal", handleStringWords)
	w.RegisterExpr("raw_string_literal", handleStringWords)
	w.RegisterExpr("identifier", func(*walker.Walker, *walker.Context, *sitter.Node) {})

	return w
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return r >= 'A' && r <= 'Z'
}

func scopeOf(name string) string {
	if isExported(name) {
		return "public"
	}
	return "private"
}

const capLen = 40

func capText(s string) string {
	if len(s) > capLen {
		return s[:capLen]
	}
	return s
}

func handlePackageClause(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	name := n.NamedChild(0)
	if name != nil {
		ctx.Namespace = walker.TextOf(ctx.Source, name)
	}
}

// unquote strips Go string-literal quoting from an import path without
// failing the whole file on a malformed literal.
func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, "\"`")
}

func handleImportSpec(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	path := unquote(walker.TextOf(ctx.Source, pathNode))

	o := occurrence.New(path, walker.LineOf(n), occurrence.CtxImport, ctx.Directory, ctx.Filename)
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		switch {
		case nameNode.Type() == "blank_identifier":
			o.SetFacet("clue", "blank")
		case walker.TextOf(ctx.Source, nameNode) == ".":
			o.SetFacet("clue", "dot")
		default:
			o.SetFacet("clue", "alias")
		}
	}
	o.SetFacet("namespace", ctx.Namespace)
	ctx.Emit(o)
}

func makeFuncHandler(classifier *classify.Classifier) walker.HandlerFunc {
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

		if recv := n.ChildByFieldName("receiver"); recv != nil {
			emitParamGroups(ctx, classifier, recv)
			if recvType := firstParamType(recv); recvType != nil {
				if t := walker.ExtractType(ctx, classifier, recvType); t != "" {
					o.SetFacet("parent", strings.TrimPrefix(t, "*"))
				}
			}
		}

		if result := n.ChildByFieldName("result"); result != nil {
			if result.Type() == "parameter_list" {
				o.SetFacet("type", capText(walker.TextOf(ctx.Source, result)))
			} else if t := walker.ExtractType(ctx, classifier, result); t != "" {
				o.SetFacet("type", t)
			}
		}

		o = o.AsDefinition(walker.LocationOf(n))
		ctx.Emit(o)

		if params := n.ChildByFieldName("parameters"); params != nil {
			emitParamGroups(ctx, classifier, params)
		}

		if body := n.ChildByFieldName("body"); body != nil {
			w.VisitNode(ctx, body)
		}
	}
}

// firstParamType returns the declared type of the first parameter in a
// parameter_list — used to read a method receiver's type.
func firstParamType(paramList *sitter.Node) *sitter.Node {
	for _, child := range walker.NamedChildren(paramList) {
		if t := child.ChildByFieldName("type"); t != nil {
			return t
		}
	}
	return nil
}

// emitParamGroups emits one argument occurrence per parameter name in
// paramList (a method receiver or a parameter_list). A parameter_declaration
// can carry several comma-separated names sharing one type ("a, b int");
// each gets its own occurrence. Unnamed parameters (interface method
// signatures, bare func types) contribute nothing.
func emitParamGroups(ctx *walker.Context, classifier *classify.Classifier, paramList *sitter.Node) {
	for _, decl := range walker.NamedChildren(paramList) {
		typeNode := decl.ChildByFieldName("type")
		var typeText string
		if typeNode != nil {
			if t := walker.ExtractType(ctx, classifier, typeNode); t != "" {
				typeText = t
			}
		}
		for _, nameNode := range fieldOccurrences(decl, ctx.Source, "name") {
			name := walker.TextOf(ctx.Source, nameNode)
			if name == "" || name == "_" {
				continue
			}
			o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
			o.SetFacet("type", typeText)
			o = o.AsDefinition(walker.LocationOf(nameNode))
			ctx.Emit(o)
		}
	}
}

// fieldOccurrences returns every child of n whose tree-sitter field name is
// field — tree-sitter allows a field name to repeat for comma-separated
// declarations ("a, b int").
func fieldOccurrences(n *sitter.Node, source []byte, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

func makeTypeSpecHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		nameNode := n.ChildByFieldName("name")
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "" {
			w.ProcessChildren(ctx, n)
			return
		}
		typeNode := n.ChildByFieldName("type")

		o := occurrence.New(name, walker.LineOf(n), occurrence.CtxType, ctx.Directory, ctx.Filename)
		o.SetFacet("namespace", ctx.Namespace)
		o.SetFacet("scope", scopeOf(name))
		if typeNode != nil {
			if t := walker.ExtractType(ctx, classifier, typeNode); t != "" {
				o.SetFacet("type", t)
			}
		}
		o = o.AsDefinition(walker.LocationOf(n))
		ctx.Emit(o)

		if typeNode == nil {
			return
		}
		switch typeNode.Type() {
		case "struct_type":
			emitStructFields(ctx, classifier, typeNode, name)
		case "interface_type":
			emitInterfaceMethods(ctx, classifier, typeNode, name)
		}
	}
}

func emitStructFields(ctx *walker.Context, classifier *classify.Classifier, structType *sitter.Node, parent string) {
	fieldList := structType.NamedChild(0)
	if fieldList == nil {
		return
	}
	for _, field := range walker.NamedChildren(fieldList) {
		if field.Type() != "field_declaration" {
			continue
		}
		typeNode := field.ChildByFieldName("type")
		var typeText string
		if typeNode != nil {
			if t := walker.ExtractType(ctx, classifier, typeNode); t != "" {
				typeText = t
			}
		}
		names := fieldOccurrences(field, ctx.Source, "name")
		if len(names) == 0 && typeNode != nil {
			// Embedded field: no explicit name, the type name is the symbol.
			o := occurrence.New(walker.TextOf(ctx.Source, typeNode), walker.LineOf(field), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
			o.SetFacet("parent", parent)
			o.SetFacet("clue", "embedded")
			o = o.AsDefinition(walker.LocationOf(field))
			ctx.Emit(o)
			continue
		}
		for _, nameNode := range names {
			o := occurrence.New(walker.TextOf(ctx.Source, nameNode), walker.LineOf(nameNode), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
			o.SetFacet("parent", parent)
			o.SetFacet("type", typeText)
			o.SetFacet("scope", scopeOf(walker.TextOf(ctx.Source, nameNode)))
			o = o.AsDefinition(walker.LocationOf(nameNode))
			ctx.Emit(o)
		}
	}
}

func emitInterfaceMethods(ctx *walker.Context, classifier *classify.Classifier, interfaceType *sitter.Node, parent string) {
	for _, member := range walker.NamedChildren(interfaceType) {
		switch member.Type() {
		case "method_spec":
			nameNode := member.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			o := occurrence.New(walker.TextOf(ctx.Source, nameNode), walker.LineOf(member), occurrence.CtxFunction, ctx.Directory, ctx.Filename)
			o.SetFacet("parent", parent)
			o = o.AsDefinition(walker.LocationOf(member))
			ctx.Emit(o)
		case "type_identifier", "qualified_type":
			o := occurrence.New(walker.TextOf(ctx.Source, member), walker.LineOf(member), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
			o.SetFacet("parent", parent)
			o.SetFacet("clue", "embedded")
			ctx.Emit(o)
		}
	}
}

func makeVarSpecHandler(classifier *classify.Classifier, modifier string) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		typeNode := n.ChildByFieldName("type")
		var typeText string
		if typeNode != nil {
			if t := walker.ExtractType(ctx, classifier, typeNode); t != "" {
				typeText = t
			}
		}
		names := fieldOccurrences(n, ctx.Source, "name")
		for _, nameNode := range names {
			name := walker.TextOf(ctx.Source, nameNode)
			if name == "_" {
				continue
			}
			o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
			o.SetFacet("type", typeText)
			o.SetFacet("modifier", modifier)
			o.SetFacet("scope", scopeOf(name))
			o = o.AsDefinition(walker.LocationOf(nameNode))
			ctx.Emit(o)
		}
		if value := n.ChildByFieldName("value"); value != nil {
			w.VisitExpression(ctx, value)
		}
	}
}

func makeConstSpecHandler(classifier *classify.Classifier) walker.HandlerFunc {
	base := makeVarSpecHandler(classifier, "const")
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		if value := n.ChildByFieldName("value"); value != nil && walker.TextOf(ctx.Source, value) == "iota" {
			names := fieldOccurrences(n, ctx.Source, "name")
			for _, nameNode := range names {
				name := walker.TextOf(ctx.Source, nameNode)
				if name == "_" {
					continue
				}
				o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
				o.SetFacet("modifier", "const")
				o.SetFacet("clue", "iota")
				o.SetFacet("scope", scopeOf(name))
				o = o.AsDefinition(walker.LocationOf(nameNode))
				ctx.Emit(o)
			}
			return
		}
		base(w, ctx, n)
	}
}

// isCompositeLiteralish reports whether n is a composite literal or an
// address-of a composite literal ("&T{...}") — the only right-hand-side
// shapes short-declaration type inference covers.
func isCompositeLiteralish(n *sitter.Node) (*sitter.Node, bool) {
	switch n.Type() {
	case "composite_literal":
		return n, true
	case "unary_expression":
		if first := n.Child(0); first == nil || first.Type() != "&" {
			return nil, false
		}
		if operand := n.ChildByFieldName("operand"); operand != nil && operand.Type() == "composite_literal" {
			return operand, true
		}
	}
	return nil, false
}

func makeShortVarHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if left == nil {
			return
		}

		names := walker.NamedChildren(left)
		var values []*sitter.Node
		if right != nil {
			values = walker.NamedChildren(right)
		}

		for i, nameNode := range names {
			if nameNode.Type() != "identifier" {
				continue
			}
			name := walker.TextOf(ctx.Source, nameNode)
			if name == "_" {
				continue
			}
			o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
			if i < len(values) {
				if lit, ok := isCompositeLiteralish(values[i]); ok {
					if t := walker.ExtractType(ctx, classifier, lit.ChildByFieldName("type")); t != "" {
						o.SetFacet("type", t)
					}
				}
			}
			o.SetFacet("scope", scopeOf(name))
			o = o.AsDefinition(walker.LocationOf(nameNode))
			ctx.Emit(o)
		}

		for _, v := range values {
			w.VisitExpression(ctx, v)
		}
	}
}

func handleAssignment(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	if left := n.ChildByFieldName("left"); left != nil {
		w.VisitExpression(ctx, left)
	}
	if right := n.ChildByFieldName("right"); right != nil {
		w.VisitExpression(ctx, right)
	}
}

func handleExpressionStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		w.VisitExpression(ctx, child)
	}
}

func makeWrapHandler(clue string) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		inner := n.NamedChild(0)
		if inner == nil {
			return
		}
		prev := pendingClueFor(ctx)
		setPendingClue(ctx, clue)
		w.VisitExpression(ctx, inner)
		setPendingClue(ctx, prev)
	}
}

// pendingClues is a tiny side-channel for go/defer to tag the call they
// wrap, keyed off the Context pointer since walker.Context carries no
// language-specific fields. Files may be walked in parallel, each owning a
// distinct *walker.Context, so the map itself (not just its entries) needs
// synchronization — a plain map here would race even though no two
// goroutines ever touch the same key.
var pendingClues sync.Map

func pendingClueFor(ctx *walker.Context) string {
	if v, ok := pendingClues.Load(ctx); ok {
		return v.(string)
	}
	return ""
}

func setPendingClue(ctx *walker.Context, clue string) {
	if clue == "" {
		pendingClues.Delete(ctx)
		return
	}
	pendingClues.Store(ctx, clue)
}

// handleSendStatement emits the channel operand's occurrence tagged
// clue=send. An identifier channel ("ch <- x") emits a variable occurrence
// directly; a selector channel ("w.out <- x") is routed through
// VisitExpression so the normal property handler fires, with "send" carried
// through the same pendingClue side-channel go/defer use.
func handleSendStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	if ch := n.ChildByFieldName("channel"); ch != nil {
		switch ch.Type() {
		case "identifier":
			o := occurrence.New(walker.TextOf(ctx.Source, ch), walker.LineOf(ch), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
			o.SetFacet("clue", "send")
			ctx.EmitFiltered(o)
		default:
			prev := pendingClueFor(ctx)
			setPendingClue(ctx, "send")
			w.VisitExpression(ctx, ch)
			setPendingClue(ctx, prev)
		}
	}
	if v := n.ChildByFieldName("value"); v != nil {
		w.VisitExpression(ctx, v)
	}
}

func handleLabeledStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	if label := n.ChildByFieldName("label"); label != nil {
		o := occurrence.New(walker.TextOf(ctx.Source, label), walker.LineOf(label), occurrence.CtxLabel, ctx.Directory, ctx.Filename)
		o = o.AsDefinition(walker.LocationOf(label))
		ctx.Emit(o)
	}
	for _, child := range walker.NamedChildren(n) {
		if child.Type() != "identifier" {
			w.VisitNode(ctx, child)
		}
	}
}

func handleGotoStatement(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	label := n.NamedChild(0)
	if label == nil {
		return
	}
	o := occurrence.New(walker.TextOf(ctx.Source, label), walker.LineOf(label), occurrence.CtxGoto, ctx.Directory, ctx.Filename)
	ctx.Emit(o)
}

// handleCommunicationCase owns one `case` arm of a select statement. It
// recognizes the three communication shapes (`v := <-ch`, `<-ch`, `ch <- v`)
// and routes every remaining child — the case body — through VisitNode, so
// no child of the arm is silently skipped.
func handleCommunicationCase(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	for _, child := range walker.NamedChildren(n) {
		switch child.Type() {
		case "short_var_declaration":
			handleSelectReceiveBinding(w, ctx, child, true)
		case "assignment_statement":
			handleSelectReceiveBinding(w, ctx, child, false)
		case "unary_expression":
			emitReceiveOperand(w, ctx, child)
		case "receive_statement":
			if child.ChildByFieldName("left") != nil {
				defines := false
				for i := 0; i < int(child.ChildCount()); i++ {
					if child.Child(i).Type() == ":=" {
						defines = true
					}
				}
				handleSelectReceiveBinding(w, ctx, child, defines)
			}
			if right := child.ChildByFieldName("right"); right != nil {
				emitReceiveOperand(w, ctx, right)
			}
		case "send_statement":
			w.VisitNode(ctx, child)
		default:
			w.VisitNode(ctx, child)
		}
	}
}

func handleSelectReceiveBinding(w *walker.Walker, ctx *walker.Context, n *sitter.Node, isDefinition bool) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	for _, nameNode := range walker.NamedChildren(left) {
		if nameNode.Type() != "identifier" {
			continue
		}
		name := walker.TextOf(ctx.Source, nameNode)
		if name == "_" {
			continue
		}
		o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
		o.SetFacet("clue", "select")
		if isDefinition {
			o = o.AsDefinition(walker.LocationOf(nameNode))
		}
		ctx.Emit(o)
	}
	for _, v := range walker.NamedChildren(right) {
		emitReceiveOperand(w, ctx, v)
	}
}

// emitReceiveOperand handles a bare `<-ch` expression: n may be the
// unary_expression itself or something else entirely (defensive no-op). An
// identifier channel emits a variable occurrence directly; a selector
// channel ("<-w.in") is routed through VisitExpression so the property
// handler fires, tagged clue=receive via the pendingClue side-channel.
func emitReceiveOperand(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	if n.Type() != "unary_expression" {
		return
	}
	operand := n.ChildByFieldName("operand")
	if operand == nil {
		return
	}
	if operand.Type() != "identifier" {
		prev := pendingClueFor(ctx)
		setPendingClue(ctx, "receive")
		w.VisitExpression(ctx, operand)
		setPendingClue(ctx, prev)
		return
	}
	o := occurrence.New(walker.TextOf(ctx.Source, operand), walker.LineOf(operand), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
	o.SetFacet("clue", "receive")
	ctx.EmitFiltered(o)
}

// handleRangeClause owns `i, v := range xs` inside a for statement: each
// bound name is a variable definition tagged clue=range, and the ranged
// expression is an ordinary reference.
func handleRangeClause(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	if left := n.ChildByFieldName("left"); left != nil {
		for _, nameNode := range walker.NamedChildren(left) {
			if nameNode.Type() != "identifier" {
				w.VisitExpression(ctx, nameNode)
				continue
			}
			name := walker.TextOf(ctx.Source, nameNode)
			if name == "_" {
				continue
			}
			o := occurrence.New(name, walker.LineOf(nameNode), occurrence.CtxVariable, ctx.Directory, ctx.Filename)
			o.SetFacet("clue", "range")
			o = o.AsDefinition(walker.LocationOf(nameNode))
			ctx.Emit(o)
		}
	}
	if right := n.ChildByFieldName("right"); right != nil {
		w.VisitExpression(ctx, right)
	}
}

func makeConditionRecurser() walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		if cond := n.ChildByFieldName("condition"); cond != nil {
			w.VisitExpression(ctx, cond)
		}
		for _, child := range walker.NamedChildren(n) {
			if child.Type() == "block" {
				w.VisitNode(ctx, child)
			} else if child != n.ChildByFieldName("condition") {
				w.VisitNode(ctx, child)
			}
		}
	}
}

func handleComment(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	emitWordOccurrences(ctx, n, occurrence.CtxComment)
}

func handleStringWords(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	emitWordOccurrences(ctx, n, occurrence.CtxString)
}

func emitWordOccurrences(ctx *walker.Context, n *sitter.Node, kind occurrence.Context) {
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

func makeCallExprHandler(classifier *classify.Classifier) walker.HandlerFunc {
	return func(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return
		}

		var name, parent string
		switch fn.Type() {
		case "identifier":
			name = walker.TextOf(ctx.Source, fn)
		case "selector_expression":
			fieldNode := fn.ChildByFieldName("field")
			name = walker.TextOf(ctx.Source, fieldNode)
			operand := fn.ChildByFieldName("operand")
			if operand != nil && operand.Type() != "call_expression" {
				parent = capText(walker.TextOf(ctx.Source, operand))
			}
		default:
			w.VisitExpression(ctx, fn)
		}

		if name != "" {
			o := occurrence.New(name, walker.LineOf(n), occurrence.CtxCall, ctx.Directory, ctx.Filename)
			o.SetFacet("parent", parent)
			if clue := pendingClueFor(ctx); clue != "" {
				o.SetFacet("clue", clue)
			}
			ctx.EmitFiltered(o)
		}

		args := n.ChildByFieldName("arguments")
		if args == nil {
			return
		}
		for _, arg := range walker.NamedChildren(args) {
			if arg.Type() == "identifier" {
				argName := walker.TextOf(ctx.Source, arg)
				o := occurrence.New(argName, walker.LineOf(arg), occurrence.CtxArgument, ctx.Directory, ctx.Filename)
				o.SetFacet("clue", name)
				ctx.Emit(o)
				continue
			}
			w.VisitExpression(ctx, arg)
		}
	}
}

// handleSelectorExpression is reached only when a selector is NOT the
// function of a call_expression (that case is handled inline above, per
// the Go member-call decision in the open-question ledger: call-only with
// parent, no separate property occurrence). A bare `a.b` reference — not
// a call — does emit a property occurrence.
func handleSelectorExpression(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	fieldNode := n.ChildByFieldName("field")
	operand := n.ChildByFieldName("operand")
	if fieldNode == nil {
		return
	}
	o := occurrence.New(walker.TextOf(ctx.Source, fieldNode), walker.LineOf(fieldNode), occurrence.CtxProperty, ctx.Directory, ctx.Filename)
	if clue := pendingClueFor(ctx); clue != "" {
		o.SetFacet("clue", clue)
	}
	if operand != nil {
		o.SetFacet("parent", capText(walker.TextOf(ctx.Source, operand)))
		if operand.Type() != "identifier" && operand.Type() != "selector_expression" {
			w.VisitExpression(ctx, operand)
		}
	}
	ctx.EmitFiltered(o)
}

func handleUnaryExpression(w *walker.Walker, ctx *walker.Context, n *sitter.Node) {
	operand := n.ChildByFieldName("operand")
	if operand == nil {
		return
	}
	firstChild := n.Child(0)
	if firstChild != nil && walker.TextOf(ctx.Source, firstChild) == "<-" {
		emitReceiveOperand(w, ctx, n)
		return
	}
	w.VisitExpression(ctx, operand)
}

