package parsefrontend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	golanglang "github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseReturnsRootAndSource(t *testing.T) {
	path := writeTempFile(t, "package p\n\nfunc F() {}\n")
	f := New(golanglang.GetLanguage())

	pf, err := f.Parse(context.Background(), path)
	require.NoError(t, err)
	defer pf.Close()

	require.Equal(t, path, pf.Path)
	require.Equal(t, "package p\n\nfunc F() {}\n", string(pf.Source))
	require.Equal(t, "source_file", pf.Root.Type())
}

func TestParseMissingFileReportsError(t *testing.T) {
	f := New(golanglang.GetLanguage())
	_, err := f.Parse(context.Background(), "/nonexistent/does-not-exist.go")
	require.Error(t, err)
}

func TestSymbolTableSharedAcrossParses(t *testing.T) {
	pathA := writeTempFile(t, "package p\nfunc A() {}\n")
	f := New(golanglang.GetLanguage())

	pfA, err := f.Parse(context.Background(), pathA)
	require.NoError(t, err)
	defer pfA.Close()

	id1 := pfA.Symbols.ID("function_declaration")
	id2 := pfA.Symbols.ID("function_declaration")
	require.Equal(t, id1, id2)

	otherFile := writeTempFile(t, "package p\nfunc B() {}\n")
	pfB, err := f.Parse(context.Background(), otherFile)
	require.NoError(t, err)
	defer pfB.Close()

	require.Same(t, pfA.Symbols, pfB.Symbols)
	require.Equal(t, id1, pfB.Symbols.ID("function_declaration"))
}

func TestSymbolTableAssignsDistinctIDs(t *testing.T) {
	st := NewSymbolTable()
	a := st.ID("function_declaration")
	b := st.ID("var_declaration")
	require.NotEqual(t, a, b)
}
