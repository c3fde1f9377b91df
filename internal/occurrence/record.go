package occurrence

import (
	"fmt"
	"strconv"
)

// SourceLocation is the byte/line-column range populated on definitions so
// the query engine's -e flag can splice the literal span back out of the
// source file.
type SourceLocation struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String renders the compact "startLine:startCol-endLine:endCol" form used
// in the source_location column.
func (l SourceLocation) String() string {
	if l.StartLine == 0 && l.EndLine == 0 {
		return ""
	}
	return strconv.Itoa(l.StartLine) + ":" + strconv.Itoa(l.StartCol) + "-" + strconv.Itoa(l.EndLine) + ":" + strconv.Itoa(l.EndCol)
}

// validFacet is built from Columns so SetFacet can reject names that were
// never declared: a facet that exists nowhere in the schema would otherwise
// vanish silently between here and the database.
var validFacet = func() map[string]bool {
	m := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		m[c.Name] = true
	}
	return m
}()

// Occurrence is a single indexed appearance of a symbol in source, with all
// its facets. Key columns are required and form identity; extensible
// columns live in the facet map, keyed by their Columns declaration, so no
// consumer needs per-column code.
type Occurrence struct {
	// Key columns.
	Symbol         string
	Line           int
	Context        Context
	Directory      string
	Filename       string
	SourceLocation SourceLocation

	// facets holds the extensible-column values, keyed by column name.
	// Absent keys read as "", which the storage engine persists as SQL
	// NULL. Allocated lazily on the first SetFacet.
	facets map[string]string
}

// New builds the key-column skeleton of an Occurrence. Callers attach
// extensible columns via SetFacet.
func New(symbol string, line int, ctx Context, directory, filename string) Occurrence {
	return Occurrence{
		Symbol:    symbol,
		Line:      line,
		Context:   ctx,
		Directory: directory,
		Filename:  filename,
	}
}

// Facet returns the value stored for the extensible column name, or "" if
// the facet was never set.
func (o Occurrence) Facet(name string) string {
	return o.facets[name]
}

// SetFacet records value under the extensible column name; an empty value
// clears the facet. A name not declared in Columns panics: it indicates a
// handler writing a facet the schema cannot store, which must fail at the
// write site rather than disappear between here and the insert.
func (o *Occurrence) SetFacet(name, value string) {
	if !validFacet[name] {
		panic(fmt.Sprintf("occurrence: facet %q is not declared in Columns", name))
	}
	if value == "" {
		delete(o.facets, name)
		return
	}
	if o.facets == nil {
		o.facets = make(map[string]string, 4)
	}
	o.facets[name] = value
}

// AsDefinition marks the occurrence as a definition and attaches its span:
// a definition has definition="1" and a populated SourceLocation.
func (o Occurrence) AsDefinition(loc SourceLocation) Occurrence {
	o.SetFacet("definition", "1")
	o.SourceLocation = loc
	return o
}

// IsDefinition reports whether the definition facet is set.
func (o Occurrence) IsDefinition() bool {
	return o.Facet("definition") == "1"
}

// Key returns the composite-primary-key tuple used for uniqueness and for
// the DDL primary key.
func (o Occurrence) Key() [5]string {
	return [5]string{o.Directory, o.Filename, strconv.Itoa(o.Line), o.Symbol, string(o.Context)}
}
