// Package walker provides the shared contract every per-language walker
// builds on: a node-type-keyed dispatch table, the handler ownership
// discipline ("when visit_node invokes a handler, the handler owns the
// entire subtree"), and the common node-reading helpers every handler
// needs (text extraction, source locations, ancestor search).
//
// A concrete language package (internal/walker/golang, .../python, ...)
// builds a *Walker, registers one handler per node type it understands via
// RegisterNode/RegisterExpr, and calls VisitNode on the parsed root.
package walker

import (
	"runtime"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sourceminder/sourceminder/internal/buffer"
	"github.com/sourceminder/sourceminder/internal/classify"
	"github.com/sourceminder/sourceminder/internal/filter"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
)

// Context carries everything a handler needs to turn an AST node into
// occurrences: where to put them, the file's bytes, and the shared
// filtering/classification services. One Context is created per file.
type Context struct {
	Buf        *buffer.Buffer
	Source     []byte
	Directory  string
	Filename   string
	Namespace  string
	Filter     *filter.Set
	Classifier *classify.Classifier

	// DriftErr records the first DriftError the type classifier returned
	// during the walk: a handler stores it here instead of panicking, the
	// walk itself carries on, and the caller driving the walk checks it
	// after Visit returns. indexcli treats a non-nil DriftErr as fatal for
	// the whole indexing run.
	DriftErr error

	// Tracer, when set, is called once per handler dispatch with the node
	// type, the registering call's source location, and the line of the
	// node being handled (used for --debug handler tracing). Threaded
	// through the context explicitly rather than read from a global debug
	// flag.
	Tracer func(nodeType, handlerFile string, handlerLine, srcLine int)
}

// Trace invokes c.Tracer if one is set; a no-op otherwise.
func (c *Context) Trace(nodeType, handlerFile string, handlerLine, srcLine int) {
	if c.Tracer != nil {
		c.Tracer(nodeType, handlerFile, handlerLine, srcLine)
	}
}

// ExtractType classifies node through classifier and returns its textual
// type form, recording the first *classify.DriftError encountered on
// ctx.DriftErr instead of swallowing it. An unclassified type-bearing node
// is fatal once the caller checks ctx.DriftErr — every handler that needs a type
// string goes through this instead of inspecting classifier.ExtractType's
// error directly, so no call site can silently treat a drift as "no type"
// the way a bare `err == nil` check would. A nil node, or a node the
// classifier legitimately resolves to an empty string (its skip strategy),
// also returns "" but leaves ctx.DriftErr untouched — both are ordinary,
// not drift.
func ExtractType(ctx *Context, classifier *classify.Classifier, node *sitter.Node) string {
	t, err := classifier.ExtractType(node, ctx.Source, ctx.Filename)
	if err != nil {
		if ctx.DriftErr == nil {
			ctx.DriftErr = err
		}
		return ""
	}
	return t
}

// Emit appends an occurrence to the buffer unconditionally. Handlers use it
// for definitions, declarations, and arguments — positions that bypass the
// Symbol Filter (an identifier repurposed as an argument is indexed even
// when it would otherwise fail the filter).
func (c *Context) Emit(o occurrence.Occurrence) {
	c.Buf.Append(o)
}

// EmitFiltered appends o only if its Symbol passes the Symbol Filter, or
// unconditionally when no Filter is configured (e.g. in tests exercising a
// single handler in isolation). Handlers use it for reference positions —
// call targets, member-access/property reads, bare variable reads — the
// identifier contexts the filter governs.
func (c *Context) EmitFiltered(o occurrence.Occurrence) {
	if c.Filter != nil && !c.Filter.Accept(o.Symbol) {
		return
	}
	c.Buf.Append(o)
}

// HandlerFunc is a dispatch table entry. It receives the Walker so it can
// recurse via VisitNode/VisitExpression, the per-file Context, and the node
// it owns.
type HandlerFunc func(w *Walker, ctx *Context, n *sitter.Node)

// handlerEntry pairs a HandlerFunc with the source location of the
// RegisterNode/RegisterExpr call that installed it, captured once at
// registration time so VisitNode/VisitExpression can report it to
// ctx.Trace without every HandlerFunc needing to know its own location.
type handlerEntry struct {
	fn   HandlerFunc
	file string
	line int
}

// Walker holds one language's dispatch tables. Node handlers and
// expression handlers are kept separate: the same node type can mean
// "define this" in statement position and "reference this" in expression
// position (most visibly identifiers).
type Walker struct {
	symbols *parsefrontend.SymbolTable

	nodeHandlers map[int32]handlerEntry
	exprHandlers map[int32]handlerEntry
}

// New creates a Walker keyed against symbols, which must be the same
// SymbolTable the Frontend parsing this language's files uses, so that IDs
// assigned at registration time match the IDs produced while walking.
func New(symbols *parsefrontend.SymbolTable) *Walker {
	return &Walker{
		symbols:      symbols,
		nodeHandlers: make(map[int32]handlerEntry, 64),
		exprHandlers: make(map[int32]handlerEntry, 32),
	}
}

// RegisterNode installs h as the statement-position handler for nodeType.
func (w *Walker) RegisterNode(nodeType string, h HandlerFunc) {
	_, file, line, _ := runtime.Caller(1)
	w.nodeHandlers[w.symbols.ID(nodeType)] = handlerEntry{fn: h, file: file, line: line}
}

// RegisterExpr installs h as the expression-position handler for nodeType.
func (w *Walker) RegisterExpr(nodeType string, h HandlerFunc) {
	_, file, line, _ := runtime.Caller(1)
	w.exprHandlers[w.symbols.ID(nodeType)] = handlerEntry{fn: h, file: file, line: line}
}

// VisitNode dispatches n to its statement-position handler. Per the
// ownership discipline, the handler is responsible for the entire subtree;
// VisitNode does nothing further once a handler runs. When no handler is
// registered for n's type, VisitNode falls back to ProcessChildren.
func (w *Walker) VisitNode(ctx *Context, n *sitter.Node) {
	if n == nil {
		return
	}
	if e, ok := w.nodeHandlers[w.symbols.ID(n.Type())]; ok {
		ctx.Trace(n.Type(), e.file, e.line, LineOf(n))
		e.fn(w, ctx, n)
		return
	}
	w.ProcessChildren(ctx, n)
}

// VisitExpression dispatches n to its expression-position handler, falling
// back to ProcessExpressionChildren when none is registered.
func (w *Walker) VisitExpression(ctx *Context, n *sitter.Node) {
	if n == nil {
		return
	}
	if e, ok := w.exprHandlers[w.symbols.ID(n.Type())]; ok {
		ctx.Trace(n.Type(), e.file, e.line, LineOf(n))
		e.fn(w, ctx, n)
		return
	}
	w.ProcessExpressionChildren(ctx, n)
}

// ProcessChildren visits every child of n via VisitNode. This is the
// fallback path for unrecognized node types: unknown node types get a
// silent fallback rather than an error.
func (w *Walker) ProcessChildren(ctx *Context, n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		w.VisitNode(ctx, n.Child(i))
	}
}

// ProcessExpressionChildren visits every child of n via VisitExpression.
func (w *Walker) ProcessExpressionChildren(ctx *Context, n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		w.VisitExpression(ctx, n.Child(i))
	}
}

// TextOf returns the verbatim source text spanned by n.
func TextOf(source []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(source[n.StartByte():n.EndByte()])
}

// FieldText returns the text of n's child field named field, or "" if the
// field is absent.
func FieldText(source []byte, n *sitter.Node, field string) string {
	return TextOf(source, n.ChildByFieldName(field))
}

// LocationOf converts n's tree-sitter span into an occurrence.SourceLocation.
func LocationOf(n *sitter.Node) occurrence.SourceLocation {
	start := n.StartPoint()
	end := n.EndPoint()
	return occurrence.SourceLocation{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}

// LineOf returns n's 1-based starting line.
func LineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// EnclosingOfType walks n's ancestors and returns the nearest one whose
// node type is in types, or nil if the root is reached first. Adapted from
// the scope-ascent pattern common to tree-sitter walkers: ascend via
// Parent() comparing node.Type(), rather than tracking scope out-of-band.
func EnclosingOfType(n *sitter.Node, types ...string) *sitter.Node {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if want[cur.Type()] {
			return cur
		}
	}
	return nil
}

// NamedChildren returns n's named children in order, skipping anonymous
// (punctuation/keyword) nodes — useful for handlers that iterate
// comma-separated lists (parameters, multi-name declarations).
func NamedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}
