package php

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceminder/sourceminder/internal/buffer"
	"github.com/sourceminder/sourceminder/internal/occurrence"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker"
)

func indexSource(t *testing.T, src string) []occurrence.Occurrence {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.php")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	front := parsefrontend.New(Language())
	pf, err := front.Parse(context.Background(), path)
	require.NoError(t, err)
	defer pf.Close()

	w := New(pf.Symbols)
	buf := buffer.New(0)
	ctx := &walker.Context{Buf: buf, Source: pf.Source, Directory: "src/", Filename: "sample.php"}
	w.VisitNode(ctx, pf.Root)
	return buf.Items()
}

func findOne(t *testing.T, items []occurrence.Occurrence, symbol string, ctxKind occurrence.Context) occurrence.Occurrence {
	t.Helper()
	for _, o := range items {
		if o.Symbol == symbol && o.Context == ctxKind {
			return o
		}
	}
	t.Fatalf("no occurrence found for symbol=%q context=%q among %d occurrences", symbol, ctxKind, len(items))
	return occurrence.Occurrence{}
}

func findAll(items []occurrence.Occurrence, symbol string, ctxKind occurrence.Context) []occurrence.Occurrence {
	var out []occurrence.Occurrence
	for _, o := range items {
		if o.Symbol == symbol && o.Context == ctxKind {
			out = append(out, o)
		}
	}
	return out
}

func TestClassWithMethodAndProperty(t *testing.T) {
	src := "<?php\nclass User {\n    private string $name;\n    public function getName(): string {\n        return $this->name;\n    }\n}\n"
	items := indexSource(t, src)

	cls := findOne(t, items, "User", occurrence.CtxType)
	assert.True(t, cls.IsDefinition())

	prop := findOne(t, items, "name", occurrence.CtxProperty)
	assert.True(t, prop.IsDefinition())
	assert.Equal(t, "private", prop.Facet("scope"))
	assert.Equal(t, "string", prop.Facet("type"))
	assert.Equal(t, "User", prop.Facet("parent"))

	fn := findOne(t, items, "getName", occurrence.CtxFunction)
	assert.True(t, fn.IsDefinition())
	assert.Equal(t, "public", fn.Facet("scope"))
	assert.Equal(t, "string", fn.Facet("type"))
	assert.Equal(t, "User", fn.Facet("parent"))

	// the this->name read is a property use, not a second declaration.
	uses := findAll(items, "name", occurrence.CtxProperty)
	require.Len(t, uses, 2)
	var sawThisParent bool
	for _, u := range uses {
		if u.Facet("parent") == "this" {
			sawThisParent = true
			assert.False(t, u.IsDefinition())
		}
	}
	assert.True(t, sawThisParent)
}

func TestFunctionParameterTypes(t *testing.T) {
	src := "<?php\nfunction add(int $a, int $b): int {\n    return $a + $b;\n}\n"
	items := indexSource(t, src)

	fn := findOne(t, items, "add", occurrence.CtxFunction)
	assert.Equal(t, "int", fn.Facet("type"))

	a := findOne(t, items, "a", occurrence.CtxArgument)
	assert.Equal(t, "int", a.Facet("type"))
	assert.True(t, a.IsDefinition())
}

func TestNamespaceUseImport(t *testing.T) {
	src := "<?php\nnamespace App\\Models;\n\nuse App\\Contracts\\Arrayable as Arr;\n"
	items := indexSource(t, src)

	ns := findOne(t, items, "App\\Models", occurrence.CtxNamespace)
	assert.True(t, ns.IsDefinition())

	imp := findOne(t, items, "Arr", occurrence.CtxImport)
	assert.Equal(t, "alias", imp.Facet("clue"))
	assert.Equal(t, "App\\Contracts\\Arrayable", imp.Facet("namespace"))
}

func TestMemberCallSetsParentOnly(t *testing.T) {
	src := "<?php\nclass C {\n    public function run() {\n        $this->helper();\n    }\n    public function helper() {}\n}\n"
	items := indexSource(t, src)

	call := findOne(t, items, "helper", occurrence.CtxCall)
	assert.Equal(t, "this", call.Facet("parent"))

	// PHP follows the call-only member policy: no parallel property
	// occurrence on the call target itself.
	for _, o := range items {
		if o.Symbol == "helper" && o.Context == occurrence.CtxProperty {
			t.Fatalf("unexpected property occurrence emitted for a member call target: %+v", o)
		}
	}
}

func TestNamespaceDefinitionSetsNamespaceOnLaterDeclarations(t *testing.T) {
	src := "<?php\nnamespace App\\Models;\n\nclass User {\n    public function save(): bool {\n        return true;\n    }\n}\n"
	items := indexSource(t, src)

	ns := findOne(t, items, "App\\Models", occurrence.CtxNamespace)
	assert.True(t, ns.IsDefinition())

	class := findOne(t, items, "User", occurrence.CtxType)
	assert.Equal(t, "App\\Models", class.Facet("namespace"))

	method := findOne(t, items, "save", occurrence.CtxFunction)
	assert.Equal(t, "App\\Models", method.Facet("namespace"))
}

func TestStringLiteralEmitsCleanedWords(t *testing.T) {
	src := "<?php\nfunction f() {\n    return fopen('data/users.csv', 'r');\n}\n"
	items := indexSource(t, src)

	findOne(t, items, "data/users.csv", occurrence.CtxString)
}
