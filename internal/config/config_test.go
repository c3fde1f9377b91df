package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadKeywordFileSkipsBlankAndCommentLines(t *testing.T) {
	path := writeTemp(t, "keywords.txt", "# reserved words\nfoo\n\nbar\n  \n")
	words, err := LoadKeywordFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, words)
}

func TestLoadKeywordFileMissingFileErrors(t *testing.T) {
	_, err := LoadKeywordFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestLoadExtensionFileOverridesOnlyNamedLanguages(t *testing.T) {
	path := writeTemp(t, "ext.txt", "go: .go .gotmpl\n# comment\nphp: .php\n")
	set, err := LoadExtensionFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{".go", ".gotmpl"}, set["go"])
	assert.Equal(t, []string{".php"}, set["php"])
	// Languages absent from the override file keep their built-in default.
	assert.Equal(t, DefaultExtensions["c"], set["c"])
}

func TestLoadExtensionFileRejectsMalformedLine(t *testing.T) {
	path := writeTemp(t, "ext.txt", "not-a-valid-line\n")
	_, err := LoadExtensionFile(path)
	require.Error(t, err)
}

func TestLoadEnvReadsDotEnvFile(t *testing.T) {
	path := writeTemp(t, ".env", "SOURCEMINDER_DB_FILE=/tmp/code.db\nSOURCEMINDER_CONFIG_DIR=/tmp/cfg\n")
	env, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/code.db", env.DBFile)
	assert.Equal(t, "/tmp/cfg", env.ConfigDir)
}

func TestLoadEnvMissingFileIsNotAnError(t *testing.T) {
	env, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.NotNil(t, env)
}

func TestDefaultKeywordsCoverAllSupportedLanguages(t *testing.T) {
	for _, lang := range []string{"c", "go", "python", "typescript", "php"} {
		assert.NotEmpty(t, DefaultKeywords[lang], "language %q must have a default keyword set", lang)
	}
}
