// Package filter implements the symbol filter: the per-language predicate
// deciding whether a textual symbol is worth indexing.
package filter

import (
	"strconv"
	"strings"
)

// Stopwords is the shared stopword list applied to every language in
// addition to its own keyword list. Short, extremely common tokens that
// would otherwise flood every index.
var Stopwords = map[string]bool{
	"this": true, "self": true, "true": true, "false": true,
	"null": true, "nil": true, "none": true, "undefined": true,
}

// Set is a per-language keyword set loaded once at startup and treated as
// immutable for the process lifetime.
type Set struct {
	Keywords  map[string]bool
	MinLength int
}

// NewSet builds a Set from a keyword slice, defaulting MinLength to 2.
func NewSet(keywords []string) *Set {
	s := &Set{Keywords: make(map[string]bool, len(keywords)), MinLength: 2}
	for _, k := range keywords {
		s.Keywords[k] = true
	}
	return s
}

// Accept decides whether a candidate symbol should be retained. It never
// consults the caller's semantic role — handlers that need to bypass the
// filter skip calling Accept entirely rather than asking it to
// special-case them.
func (s *Set) Accept(symbol string) bool {
	return s.AcceptMinLength(symbol, s.MinLength)
}

// AcceptMinLength is Accept with a caller-supplied minimum length, used by
// handlers that relax the default to 1 for specific contexts. It reads
// s.Keywords/Stopwords but never mutates shared Set state, so it is safe
// to call concurrently from multiple files' walkers.
func (s *Set) AcceptMinLength(symbol string, minLength int) bool {
	if symbol == "" {
		return false
	}
	if _, err := strconv.ParseInt(symbol, 10, 64); err == nil {
		return false
	}
	if _, err := strconv.ParseFloat(symbol, 64); err == nil {
		return false
	}
	if minLength <= 0 {
		minLength = 2
	}
	if len(symbol) < minLength {
		return false
	}
	if s.Keywords[symbol] {
		return false
	}
	if Stopwords[symbol] {
		return false
	}
	return true
}

// CleanStringSymbol takes a raw word extracted from a string or comment
// and normalizes it, trimming surrounding punctuation while preserving
// path-like characters.
func CleanStringSymbol(word string) string {
	isPathSafe := func(r rune) bool {
		return r == '/' || r == '.' || r == '_' || r == '-'
	}
	isIdentSafe := func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || isPathSafe(r)
	}

	start := 0
	end := len(word)
	for start < end && !isIdentSafe(rune(word[start])) {
		start++
	}
	for end > start && !isIdentSafe(rune(word[end-1])) {
		end--
	}
	if start >= end {
		return ""
	}
	cleaned := word[start:end]

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if isIdentSafe(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitWords splits comment/string content on whitespace, ready for
// CleanStringSymbol.
func SplitWords(content string) []string {
	return strings.Fields(content)
}
