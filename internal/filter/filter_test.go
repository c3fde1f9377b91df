package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptRejectsIntegerLiterals(t *testing.T) {
	s := NewSet(nil)
	assert.False(t, s.Accept("10"))
	assert.False(t, s.Accept("-42"))
}

func TestAcceptRejectsShortSymbols(t *testing.T) {
	s := NewSet(nil)
	assert.False(t, s.Accept("x"))
	assert.True(t, s.Accept("xy"))
}

func TestAcceptRejectsKeywordsAndStopwords(t *testing.T) {
	s := NewSet([]string{"func", "return"})
	assert.False(t, s.Accept("func"))
	assert.False(t, s.Accept("this"))
	assert.True(t, s.Accept("myFunc"))
}

func TestAcceptMinLengthOverridesDefault(t *testing.T) {
	s := NewSet(nil)
	assert.False(t, s.Accept("a"))
	assert.True(t, s.AcceptMinLength("a", 1))
	assert.Equal(t, 2, s.MinLength, "override must not leak into later calls")
}

func TestCleanStringSymbolTrimsPunctuationKeepsPaths(t *testing.T) {
	assert.Equal(t, "foo/bar.go", CleanStringSymbol("(foo/bar.go),"))
	assert.Equal(t, "", CleanStringSymbol("!!!"))
	assert.Equal(t, "a-b_c", CleanStringSymbol("\"a-b_c\""))
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, SplitWords("  hello   world  "))
}
