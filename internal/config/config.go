// Package config loads SourceMinder's per-language keyword/stopword/
// extension lists and the .env-sourced defaults (database file, config
// directory) for the index-*/qi binaries.
//
// One function builds a typed config from an external source, the same
// way across every list: on-disk, flat, newline-delimited files rather
// than environment variables, since the keyword lists every walker's
// symbol filter depends on are meant to be edited by hand.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultKeywords are the built-in reserved-word sets for each language
// SourceMinder indexes, used when no --keywords file overrides them. They
// are deliberately the core reserved words a grammar's parser itself
// treats specially, not every standard-library identifier.
var DefaultKeywords = map[string][]string{
	"c": {
		"auto", "break", "case", "char", "const", "continue", "default", "do",
		"double", "else", "enum", "extern", "float", "for", "goto", "if",
		"inline", "int", "long", "register", "restrict", "return", "short",
		"signed", "sizeof", "static", "struct", "switch", "typedef", "union",
		"unsigned", "void", "volatile", "while",
	},
	"go": {
		"break", "case", "chan", "const", "continue", "default", "defer",
		"else", "fallthrough", "for", "func", "go", "goto", "if", "import",
		"interface", "map", "package", "range", "return", "select", "struct",
		"switch", "type", "var",
	},
	"python": {
		"and", "as", "assert", "async", "await", "break", "class", "continue",
		"def", "del", "elif", "else", "except", "finally", "for", "from",
		"global", "if", "import", "in", "is", "lambda", "nonlocal", "not",
		"or", "pass", "raise", "return", "try", "while", "with", "yield",
	},
	"typescript": {
		"any", "as", "boolean", "break", "case", "catch", "class", "const",
		"continue", "debugger", "declare", "default", "delete", "do", "else",
		"enum", "export", "extends", "false", "finally", "for", "from",
		"function", "if", "implements", "import", "in", "instanceof",
		"interface", "let", "new", "number", "object", "of", "private",
		"protected", "public", "readonly", "return", "static", "string",
		"super", "switch", "this", "throw", "true", "try", "type", "typeof",
		"unknown", "var", "void", "while", "yield",
	},
	"php": {
		"abstract", "and", "array", "as", "break", "callable", "case",
		"catch", "class", "clone", "const", "continue", "declare", "default",
		"do", "echo", "else", "elseif", "enddeclare", "endfor", "endforeach",
		"endif", "endswitch", "endwhile", "enum", "extends", "final",
		"finally", "fn", "for", "foreach", "function", "global", "goto", "if",
		"implements", "include", "instanceof", "insteadof", "interface",
		"match", "namespace", "new", "or", "print", "private", "protected",
		"public", "readonly", "require", "return", "static", "switch",
		"throw", "trait", "try", "use", "var", "while", "xor", "yield",
	},
}

// LoadKeywordFile reads a flat keyword list: one keyword per line, blank
// lines and lines starting with "#" ignored.
func LoadKeywordFile(path string) ([]string, error) {
	return loadLines(path)
}

// LoadStopwordFile reads a flat stopword-override list in the same format.
// An empty returned slice is valid: the caller falls back to
// filter.Stopwords unmodified.
func LoadStopwordFile(path string) ([]string, error) {
	return loadLines(path)
}

// ExtensionSet maps a language identifier to the file extensions
// index-<language> should accept for it.
type ExtensionSet map[string][]string

// DefaultExtensions are the built-in extension-to-language mappings used
// when no --extensions file overrides them.
var DefaultExtensions = ExtensionSet{
	"c":          {".c", ".h"},
	"go":         {".go"},
	"python":     {".py", ".pyi"},
	"typescript": {".ts", ".tsx", ".mts", ".cts"},
	"javascript": {".js", ".jsx", ".mjs", ".cjs"},
	"php":        {".php", ".phtml", ".php4", ".php5", ".phps"},
}

// LoadExtensionFile reads a "language: .ext .ext2" per-line override file
// and returns it merged over DefaultExtensions (file entries replace the
// default list for that language; languages absent from the file keep
// their default).
func LoadExtensionFile(path string) (ExtensionSet, error) {
	out := make(ExtensionSet, len(DefaultExtensions))
	for k, v := range DefaultExtensions {
		out[k] = v
	}

	lines, err := loadRawLines(path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		lang, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("config: malformed extension line %q, want \"language: .ext ...\"", line)
		}
		lang = strings.TrimSpace(lang)
		exts := strings.Fields(rest)
		if lang == "" || len(exts) == 0 {
			continue
		}
		out[lang] = exts
	}
	return out, nil
}

func loadLines(path string) ([]string, error) {
	return loadRawLines(path)
}

func loadRawLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return out, nil
}

// Env holds the .env-sourced defaults for the index-*/qi binaries, loaded
// once at process start via godotenv.
type Env struct {
	DBFile    string
	ConfigDir string
}

// LoadEnv loads a .env file at path (if present — a missing file is not an
// error, matching godotenv's own "optional" convention elsewhere in the
// pack) and returns the defaults it sets, falling back to os.Getenv for
// variables already present in the process environment.
func LoadEnv(path string) (*Env, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: loading env file %s: %w", path, err)
		}
	}
	return &Env{
		DBFile:    os.Getenv("SOURCEMINDER_DB_FILE"),
		ConfigDir: os.Getenv("SOURCEMINDER_CONFIG_DIR"),
	}, nil
}
