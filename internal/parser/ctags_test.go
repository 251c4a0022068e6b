package parser

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/symindex/pkg/types"
)

func TestParseCtagsOutput(t *testing.T) {
	source := []byte("int add(int a, int b);\n\nint add(int a, int b) {\n  return a + b;\n}\n")
	out := []byte(`{"_type": "ptag", "name": "JSON_OUTPUT_VERSION"}
{"_type": "tag", "name": "add", "path": "a.c", "line": 1, "kind": "prototype"}
{"_type": "tag", "name": "add", "path": "a.c", "line": 3, "kind": "function"}
`)

	items, err := parseCtagsOutput(out, lineOffsets(source))

	require.NoError(t, err)
	assert.Equal(t, []types.Item{
		{Kind: types.Declaration, Name: "add", Location: 0},
		{Kind: types.Definition, Name: "add", Location: 24},
	}, items)
}

func TestParseCtagsOutput_Malformed(t *testing.T) {
	_, err := parseCtagsOutput([]byte("not json\n"), []int{0})
	assert.Error(t, err)
}

func TestLineStart_OutOfRange(t *testing.T) {
	offsets := lineOffsets([]byte("a\nb\n"))

	assert.Equal(t, []int{0, 2}, offsets)
	assert.Equal(t, types.Location(2), lineStart(offsets, 2))
	assert.Equal(t, types.Location(0), lineStart(offsets, 0))
	assert.Equal(t, types.Location(0), lineStart(offsets, 99))
}

func TestCtagsStrategy_DeclinesUnclaimedExtension(t *testing.T) {
	s := NewCtagsStrategy("ctags", []string{"c", ".h"})

	items, err := s.TryParse(context.Background(), "/p/readme.md")

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, ExternalTool, s.Method())
}

func TestCtagsStrategy_MissingBinaryFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.c", "int x;\n")
	s := NewCtagsStrategy(filepath.Join(dir, "no-such-ctags"), []string{".c"})

	assert.False(t, s.Available())
	_, err := s.TryParse(context.Background(), path)
	assert.Error(t, err)
}

func TestCtagsStrategy_RealBinary(t *testing.T) {
	s := NewCtagsStrategy("ctags", []string{".c"})
	if !s.Available() {
		t.Skip("ctags not installed")
	}
	path := writeFile(t, t.TempDir(), "a.c", "int add(int a, int b) {\n  return a + b;\n}\n")

	items, err := s.TryParse(context.Background(), path)
	if err != nil {
		// Exuberant ctags has no JSON output
		t.Skipf("ctags without JSON support: %v", err)
	}
	assert.Contains(t, byName(items), "add")
}
