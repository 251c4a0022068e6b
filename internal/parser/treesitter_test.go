package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/symindex/pkg/types"
)

func kindsByName(items []types.Item) map[string][]types.ItemKind {
	m := make(map[string][]types.ItemKind)
	for _, it := range items {
		m[it.Name] = append(m[it.Name], it.Kind)
	}
	return m
}

func TestTreeSitterStrategy_C(t *testing.T) {
	content := `#define MAX_NODES 64
#define SQUARE(x) ((x) * (x))

struct node;

typedef struct list {
    struct node *head;
} list_t;

enum color { RED, GREEN };

extern int verbose;
int counter = 0;

int list_len(const list_t *l);

int list_len(const list_t *l) {
    int n = 0;
    return n;
}
`
	path := writeFile(t, t.TempDir(), "list.c", content)

	items, err := NewTreeSitterStrategy().TryParse(context.Background(), path)
	require.NoError(t, err)

	got := kindsByName(items)
	assert.Equal(t, []types.ItemKind{types.Definition}, got["MAX_NODES"])
	assert.Equal(t, []types.ItemKind{types.Definition}, got["SQUARE"])
	assert.Equal(t, []types.ItemKind{types.Declaration}, got["node"])
	assert.Equal(t, []types.ItemKind{types.Definition}, got["list"])
	assert.Equal(t, []types.ItemKind{types.Definition}, got["list_t"])
	assert.Equal(t, []types.ItemKind{types.Definition}, got["color"])
	assert.Equal(t, []types.ItemKind{types.Definition}, got["RED"])
	assert.Equal(t, []types.ItemKind{types.Declaration}, got["verbose"])
	assert.Equal(t, []types.ItemKind{types.Definition}, got["counter"])
	assert.Equal(t, []types.ItemKind{types.Declaration, types.Definition}, got["list_len"])
	assert.NotContains(t, got, "n", "locals inside function bodies are skipped")

	for _, it := range items {
		if it.Name == "counter" {
			assert.Equal(t, types.Location(strings.Index(content, "counter")), it.Location)
		}
	}
}

func TestTreeSitterStrategy_Python(t *testing.T) {
	content := "class Shape:\n    def area(self):\n        return 0\n\ndef main():\n    pass\n"
	path := writeFile(t, t.TempDir(), "shapes.py", content)

	items, err := NewTreeSitterStrategy().TryParse(context.Background(), path)
	require.NoError(t, err)

	got := kindsByName(items)
	assert.Equal(t, []types.ItemKind{types.Definition}, got["Shape"])
	assert.Equal(t, []types.ItemKind{types.Definition}, got["area"])
	assert.Equal(t, []types.ItemKind{types.Definition}, got["main"])
}

func TestTreeSitterStrategy_DeclinesUnknownAndEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewTreeSitterStrategy()

	items, err := s.TryParse(context.Background(), writeFile(t, dir, "a.rb", "def x; end\n"))
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = s.TryParse(context.Background(), writeFile(t, dir, "empty.c", ""))
	require.NoError(t, err)
	assert.Empty(t, items)
}
