package code_analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, source string) *models.ParsedModule {
	t.Helper()
	parsed, err := NewSourceParser().ParseSource(context.Background(), []byte(source))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	return parsed
}

func TestParseSource_ImportStatements(t *testing.T) {
	parsed := parse(t, "import os\nimport a.b as ab, c\n")

	require.False(t, parsed.ParseFailed)
	assert.Equal(t, []models.ImportRef{
		{Module: "os"},
		{Module: "a.b", Alias: "ab"},
		{Module: "c"},
	}, parsed.Imports)
}

func TestParseSource_FromImports(t *testing.T) {
	parsed := parse(t, "from pkg.sub import one, two as second\nfrom x import (y, z)\n")

	require.Len(t, parsed.Imports, 2)
	assert.Equal(t, models.ImportRef{
		Module:     "pkg.sub",
		FromImport: true,
		Names:      []models.ImportedName{{Name: "one"}, {Name: "two", Alias: "second"}},
	}, parsed.Imports[0])
	assert.Equal(t, "x", parsed.Imports[1].Module)
	assert.Equal(t, []models.ImportedName{{Name: "y"}, {Name: "z"}}, parsed.Imports[1].Names)
}

func TestParseSource_SkipsRelativeAndStarImports(t *testing.T) {
	parsed := parse(t, "from . import sibling\nfrom .pkg import thing\nfrom pkg import *\nimport real\n")

	assert.Equal(t, []models.ImportRef{{Module: "real"}}, parsed.Imports)
}

func TestParseSource_NestedImports(t *testing.T) {
	parsed := parse(t, `
def load():
    import json
    try:
        from yaml import safe_load
    except ImportError:
        pass
`)

	require.Len(t, parsed.Imports, 2)
	assert.Equal(t, "json", parsed.Imports[0].Module)
	assert.Equal(t, "yaml", parsed.Imports[1].Module)
}

func TestParseSource_Calls(t *testing.T) {
	parsed := parse(t, `
import foo
foo.hello()
bar()
a.b.c(1)
items[0].run()
make().go()
`)

	assert.Equal(t, []string{"foo.hello", "bar", "a.b.c", "make"}, parsed.Calls)
}

func TestParseSource_DynamicImportIsOnlyACall(t *testing.T) {
	parsed := parse(t, "import importlib\nmod = importlib.import_module('a.b')\n__import__('c')\n")

	assert.Equal(t, []models.ImportRef{{Module: "importlib"}}, parsed.Imports)
	assert.Contains(t, parsed.Calls, "importlib.import_module")
}

func TestParseSource_SyntaxError(t *testing.T) {
	parsed := parse(t, "def broken(:\n    import os\n")

	assert.True(t, parsed.ParseFailed)
	assert.Empty(t, parsed.Imports)
}

func TestParseSource_Python2Statements(t *testing.T) {
	for _, source := range []string{
		"import core\nprint 'hi'\n",
		"import core\nexec \"x = 1\"\n",
	} {
		parsed := parse(t, source)

		assert.True(t, parsed.ParseFailed, source)
		assert.Empty(t, parsed.Imports, source)
	}
}

func TestParseSource_PrintFunctionIsACall(t *testing.T) {
	parsed := parse(t, "import core\nprint('hi')\n")

	assert.False(t, parsed.ParseFailed)
	assert.Equal(t, []models.ImportRef{{Module: "core"}}, parsed.Imports)
	assert.Contains(t, parsed.Calls, "print")
}

func TestParseSource_Empty(t *testing.T) {
	parsed := parse(t, "")

	assert.False(t, parsed.ParseFailed)
	assert.Empty(t, parsed.Imports)
	assert.Empty(t, parsed.Calls)
}

func TestParseFile_Binary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.py")
	require.NoError(t, os.WriteFile(path, []byte("import os\x00\x01\x02"), 0o644))

	parsed, err := NewSourceParser().ParseFile(context.Background(), path)

	assert.ErrorIs(t, err, ErrBinarySource)
	assert.True(t, parsed.ParseFailed)
}

func TestParseFile_Missing(t *testing.T) {
	parsed, err := NewSourceParser().ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.py"))

	assert.Error(t, err)
	assert.True(t, parsed.ParseFailed)
}

func TestIsSourceFile(t *testing.T) {
	assert.True(t, IsSourceFile("pkg/mod.py"))
	assert.True(t, IsSourceFile("MOD.PY"))
	assert.False(t, IsSourceFile("README.md"))
	assert.False(t, IsSourceFile("mod.pyc"))
	assert.False(t, IsSourceFile("Makefile"))
}
