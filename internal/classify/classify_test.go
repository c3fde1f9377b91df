package classify

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	golanglang "github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/require"
)

func parseGo(t *testing.T, src string) (*sitter.Node, []byte) {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(golanglang.GetLanguage())
	source := []byte(src)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	require.NoError(t, err)
	return tree.RootNode(), source
}

func findFirst(node *sitter.Node, nodeType string) *sitter.Node {
	if node.Type() == nodeType {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := findFirst(node.Child(i), nodeType); found != nil {
			return found
		}
	}
	return nil
}

func goClassifier() *Classifier {
	return NewClassifier("go",
		[]string{"type_identifier", "identifier"},
		[]string{"qualified_type"},
		[]string{"pointer_type"},
		nil,
		nil,
		map[string]string{
			"struct_type":    "struct",
			"interface_type": "interface",
			"slice_type":     "",
			"array_type":     "",
			"map_type":       "map",
			"channel_type":   "",
			"function_type":  "",
		},
		map[string]string{"pointer_type": "type"},
	)
}

func TestExtractTypeSimpleIdentifier(t *testing.T) {
	root, source := parseGo(t, "package p\nvar x int\n")
	varDecl := findFirst(root, "var_declaration")
	require.NotNil(t, varDecl)
	typeNode := findFirst(varDecl, "type_identifier")
	require.NotNil(t, typeNode)

	c := goClassifier()
	got, err := c.ExtractType(typeNode, source, "a.go")
	require.NoError(t, err)
	require.Equal(t, "int", got)
}

func TestExtractTypePointerRecursesAndPrefixes(t *testing.T) {
	root, source := parseGo(t, "package p\nvar x *Foo\n")
	ptr := findFirst(root, "pointer_type")
	require.NotNil(t, ptr)

	c := goClassifier()
	got, err := c.ExtractType(ptr, source, "a.go")
	require.NoError(t, err)
	require.Equal(t, "*Foo", got)
}

func TestExtractTypeComplexStructCollapsesToPlaceholder(t *testing.T) {
	root, source := parseGo(t, "package p\nvar x struct{ A int }\n")
	st := findFirst(root, "struct_type")
	require.NotNil(t, st)

	c := goClassifier()
	got, err := c.ExtractType(st, source, "a.go")
	require.NoError(t, err)
	require.Equal(t, "struct", got)
}

func TestExtractTypeUnclassifiedNodeIsFatal(t *testing.T) {
	root, source := parseGo(t, "package p\nfunc f() {}\n")
	fn := findFirst(root, "function_declaration")
	require.NotNil(t, fn)

	c := goClassifier()
	_, err := c.ExtractType(fn, source, "a.go")
	require.Error(t, err)

	var drift *DriftError
	require.ErrorAs(t, err, &drift)
	require.Equal(t, "function_declaration", drift.NodeType)
	require.Equal(t, "a.go", drift.File)
}

func TestExtractTypeNilNodeIsEmpty(t *testing.T) {
	c := goClassifier()
	got, err := c.ExtractType(nil, []byte(""), "a.go")
	require.NoError(t, err)
	require.Equal(t, "", got)
}
