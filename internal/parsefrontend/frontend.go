// Package parsefrontend implements the parse frontend: it turns a file
// path into a parsed tree, its source bytes, and a node-type symbol table
// shared across every file parsed with the same language.
package parsefrontend

import (
	"context"
	"fmt"
	"os"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// SymbolTable interns AST node-type strings to small integers, computed
// once per process and cached, so handler dispatch tables compare integers
// rather than strings. This is load-bearing for dispatch performance.
type SymbolTable struct {
	mu   sync.Mutex
	ids  map[string]int32
	next int32
}

// NewSymbolTable creates an empty, ready-to-use table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{ids: make(map[string]int32, 128)}
}

// ID returns the integer identifier for nodeType, assigning one on first
// use. Safe for concurrent use across files parsed with the same Frontend.
func (t *SymbolTable) ID(nodeType string) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[nodeType]; ok {
		return id
	}
	id := t.next
	t.ids[nodeType] = id
	t.next++
	return id
}

// ParsedFile is the result of parsing one file: its raw bytes, the
// tree-sitter tree and root node, and the language-wide symbol table that
// handlers use for dispatch.
type ParsedFile struct {
	Path    string
	Source  []byte
	Tree    *sitter.Tree
	Root    *sitter.Node
	Symbols *SymbolTable
}

// Frontend wraps a tree-sitter language, lazily creating one Parser per
// Parse call (sitter.Parser is not safe for concurrent reuse) while sharing
// a single SymbolTable across every file.
type Frontend struct {
	language *sitter.Language
	symbols  *SymbolTable
}

// New creates a Frontend bound to language.
func New(language *sitter.Language) *Frontend {
	return &Frontend{language: language, symbols: NewSymbolTable()}
}

// Symbols returns the Frontend's SymbolTable, so callers can build the
// matching Walker (internal/walker/<language>.New(symbols)) keyed against
// the exact same table this Frontend assigns node-type IDs from.
func (f *Frontend) Symbols() *SymbolTable {
	return f.symbols
}

// Parse reads path, parses it, and returns the resulting tree. I/O errors
// and parse errors are returned to the caller rather than panicking: both
// are per-file failures that must not abort the rest of an indexing run.
func (f *Frontend) Parse(ctx context.Context, path string) (*ParsedFile, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(f.language)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parse %s: tree-sitter returned no root node", path)
	}

	return &ParsedFile{
		Path:    path,
		Source:  source,
		Tree:    tree,
		Root:    root,
		Symbols: f.symbols,
	}, nil
}

// Close releases the tree-sitter tree's native resources. Callers must call
// it once they are done walking a ParsedFile.
func (pf *ParsedFile) Close() {
	if pf.Tree != nil {
		pf.Tree.Close()
	}
}
