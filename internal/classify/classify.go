// Package classify implements the type extraction subsystem: every
// language walker calls ExtractType on a type-bearing node to produce the
// short textual form stored in the occurrence table's type column.
//
// Classification is a closed enumeration of strategies. An AST node that
// falls outside all of them is a grammar drift, not a "best effort" case —
// ExtractType returns a *DriftError instead of guessing, so an incompatible
// grammar upgrade is caught at index time instead of silently corrupting the
// type column.
package classify

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// DriftError reports a type-bearing node whose node type is not covered by
// any classification strategy. It is fatal: callers must not recover from
// it by falling back to an empty type — failure on an unclassified node is
// non-negotiable, since silently guessing would mask a grammar upgrade.
type DriftError struct {
	NodeType string
	File     string
	Line     int
	Column   int
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("%s:%d:%d: unclassified type-bearing node %q (grammar drift)", e.File, e.Line, e.Column, e.NodeType)
}

// literalSizeBound caps how much literal node text the "complex" strategy
// will echo verbatim; longer text collapses to the node type name.
const literalSizeBound = 64

// Classifier dispatches an AST node to its extraction strategy. The maps
// are built once per language walker at package-init time and are
// read-only afterward, loaded once at startup like any other shared
// resource.
type Classifier struct {
	lang string

	simple    map[string]bool
	qualified map[string]bool
	pointer   map[string]bool
	complex   map[string]string // node type -> placeholder, "" means echo literal text
	recurse   map[string]bool
	skip      map[string]bool

	// innerField names the child field holding the recursion target for a
	// pointer/recurse node, when field-based access applies to it.
	innerField map[string]string
}

// NewClassifier builds a Classifier for lang from the strategy tables.
// Each table maps a tree-sitter node type string to its place in the
// closed strategy enumeration.
func NewClassifier(lang string, simple, qualified, pointer, recurse, skip []string, complexKinds map[string]string, innerField map[string]string) *Classifier {
	c := &Classifier{
		lang:       lang,
		simple:     toSet(simple),
		qualified:  toSet(qualified),
		pointer:    toSet(pointer),
		complex:    complexKinds,
		recurse:    toSet(recurse),
		skip:       toSet(skip),
		innerField: innerField,
	}
	return c
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// ExtractType classifies node and returns its textual type form. source is
// the full file content node positions are relative to; file is used only
// to annotate a DriftError.
func (c *Classifier) ExtractType(node *sitter.Node, source []byte, file string) (string, error) {
	if node == nil {
		return "", nil
	}
	nt := node.Type()

	switch {
	case c.skip[nt]:
		return "", nil

	case c.simple[nt]:
		return node.Content(source), nil

	case c.qualified[nt]:
		return node.Content(source), nil

	case c.pointer[nt]:
		inner := c.innerChild(node)
		if inner == nil {
			return "*", nil
		}
		innerType, err := c.ExtractType(inner, source, file)
		if err != nil {
			return "", err
		}
		return "*" + innerType, nil

	case c.recurse[nt]:
		inner := c.innerChild(node)
		if inner == nil {
			return "", nil
		}
		return c.ExtractType(inner, source, file)

	default:
		if placeholder, ok := c.complex[nt]; ok {
			if placeholder != "" {
				return placeholder, nil
			}
			text := node.Content(source)
			if len(text) > literalSizeBound {
				return nt, nil
			}
			return text, nil
		}
	}

	return "", &DriftError{
		NodeType: nt,
		File:     file,
		Line:     int(node.StartPoint().Row) + 1,
		Column:   int(node.StartPoint().Column) + 1,
	}
}

// innerChild returns the node's designated recursion target: the field
// named in innerField if one is registered for this node type, else the
// first named child.
func (c *Classifier) innerChild(node *sitter.Node) *sitter.Node {
	if field, ok := c.innerField[node.Type()]; ok {
		if child := node.ChildByFieldName(field); child != nil {
			return child
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		return node.NamedChild(i)
	}
	return nil
}
