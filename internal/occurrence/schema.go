// Package occurrence contains pure language-agnostic data structures for
// SourceMinder. These contracts define the uniform row that every language
// walker produces and every downstream component (occurrence buffer,
// storage engine, query engine) consumes.
//
// This file holds only the schema declaration, with no behavior: it is
// the single source of truth for the occurrence table's shape. The
// storage engine's DDL and prepared inserts, and the query engine's
// selectable/filterable column whitelist, are both generated from Columns
// below. No other package hard-codes a list of extensible columns.
package occurrence

// Context is the closed enum of occurrence kinds an Occurrence may carry.
// Languages may omit kinds they never emit, but may not invent new ones.
type Context string

const (
	CtxFunction  Context = "function"
	CtxVariable  Context = "variable"
	CtxArgument  Context = "argument"
	CtxType      Context = "type"
	CtxProperty  Context = "property"
	CtxCall      Context = "call"
	CtxImport    Context = "import"
	CtxEnum      Context = "enum"
	CtxEnumCase  Context = "enum_case"
	CtxLabel     Context = "label"
	CtxGoto      Context = "goto"
	CtxLambda    Context = "lambda"
	CtxException Context = "exception"
	CtxNamespace Context = "namespace"
	CtxComment   Context = "comment"
	CtxString    Context = "string"
	CtxFilename  Context = "filename"
)

// Column describes one extensible column in the schema-of-record. Name is
// also the facet key handlers write through Occurrence.SetFacet.
type Column struct {
	Name     string
	SQLType  string
	Nullable bool
}

// Columns is the extensible-column declaration table. The storage engine's
// DDL and prepared INSERT values, the query engine's scan targets and
// filterable-column whitelist, and qi's column rendering are all built by
// ranging over this slice — adding a column means adding one entry here,
// nothing else.
var Columns = []Column{
	{Name: "parent", SQLType: "TEXT", Nullable: true},
	{Name: "scope", SQLType: "TEXT", Nullable: true},
	{Name: "modifier", SQLType: "TEXT", Nullable: true},
	{Name: "clue", SQLType: "TEXT", Nullable: true},
	{Name: "namespace", SQLType: "TEXT", Nullable: true},
	{Name: "type", SQLType: "TEXT", Nullable: true},
	{Name: "definition", SQLType: "TEXT", Nullable: true},
}

// ColumnNames returns the extensible column names in declaration order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}
