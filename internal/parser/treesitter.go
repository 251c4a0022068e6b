package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/dshills/symindex/pkg/types"
)

// tsLanguage holds tree-sitter configuration for one supported language
type tsLanguage struct {
	name    string
	lang    *sitter.Language
	extract func(root *sitter.Node, source []byte) []types.Item
	parsers sync.Pool
}

// newParser returns a pooled parser; parsers are not safe for concurrent use
func (l *tsLanguage) newParser() *sitter.Parser {
	if p, ok := l.parsers.Get().(*sitter.Parser); ok {
		return p
	}
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// TreeSitterStrategy extracts items from C and Python sources
type TreeSitterStrategy struct {
	byExt map[string]*tsLanguage
}

// NewTreeSitterStrategy creates a strategy covering every built-in grammar
func NewTreeSitterStrategy() *TreeSitterStrategy {
	cLang := &tsLanguage{name: "c", lang: c.GetLanguage(), extract: extractC}
	pyLang := &tsLanguage{name: "python", lang: python.GetLanguage(), extract: extractPython}
	return &TreeSitterStrategy{
		byExt: map[string]*tsLanguage{
			".c":   cLang,
			".h":   cLang,
			".py":  pyLang,
			".pyi": pyLang,
		},
	}
}

// Name returns the strategy name
func (t *TreeSitterStrategy) Name() string { return "tree-sitter" }

// Method returns Structured
func (t *TreeSitterStrategy) Method() Method { return Structured }

// TryParse parses the file with the grammar registered for its extension
func (t *TreeSitterStrategy) TryParse(ctx context.Context, path string) ([]types.Item, error) {
	lang, ok := t.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(source) == 0 {
		return nil, nil
	}

	p := lang.newParser()
	defer lang.parsers.Put(p)

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%s parse: %w", lang.name, err)
	}
	defer tree.Close()

	return lang.extract(tree.RootNode(), source), nil
}

// extractC walks a C translation unit. Function bodies are not descended.
func extractC(root *sitter.Node, source []byte) []types.Item {
	var items []types.Item
	add := func(kind types.ItemKind, name *sitter.Node) {
		// error recovery inserts zero-width MISSING nodes
		if name == nil || name.StartByte() == name.EndByte() {
			return
		}
		items = append(items, types.Item{
			Kind:     kind,
			Name:     name.Content(source),
			Location: types.Location(name.StartByte()),
		})
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition":
			add(types.Definition, declaratorName(n.ChildByFieldName("declarator")))
			return
		case "declaration":
			extractCDeclaration(n, source, add)
		case "type_definition":
			add(types.Definition, declaratorName(n.ChildByFieldName("declarator")))
		case "struct_specifier", "union_specifier", "enum_specifier":
			name := n.ChildByFieldName("name")
			if n.ChildByFieldName("body") != nil {
				add(types.Definition, name)
			} else if isForwardDeclaration(n) {
				add(types.Declaration, name)
			}
		case "enumerator", "preproc_def", "preproc_function_def":
			add(types.Definition, n.ChildByFieldName("name"))
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return items
}

// extractCDeclaration handles prototypes, extern variables and file-scope variables
func extractCDeclaration(n *sitter.Node, source []byte, add func(types.ItemKind, *sitter.Node)) {
	isExtern := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "storage_class_specifier" && child.Content(source) == "extern" {
			isExtern = true
		}
	}
	fileScope := n.Parent() != nil && n.Parent().Type() == "translation_unit"

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "identifier" && !strings.HasSuffix(child.Type(), "declarator") {
			continue
		}
		switch {
		case isFunctionDeclarator(child):
			add(types.Declaration, declaratorName(child))
		case isExtern:
			add(types.Declaration, declaratorName(child))
		case fileScope:
			add(types.Definition, declaratorName(child))
		}
	}
}

// isForwardDeclaration reports whether a body-less specifier stands alone,
// as in "struct node;".
func isForwardDeclaration(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil || parent.Type() != "declaration" {
		return false
	}
	return parent.ChildByFieldName("declarator") == nil
}

func isFunctionDeclarator(n *sitter.Node) bool {
	for n != nil {
		switch n.Type() {
		case "function_declarator":
			return true
		case "pointer_declarator", "parenthesized_declarator", "attributed_declarator":
			n = n.ChildByFieldName("declarator")
		default:
			return false
		}
	}
	return false
}

// declaratorName unwraps nested declarators down to the declared identifier
func declaratorName(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return n
		}
		next := n.ChildByFieldName("declarator")
		if next == nil && n.NamedChildCount() > 0 {
			next = n.NamedChild(0)
		}
		n = next
	}
	return nil
}

// extractPython collects classes and functions at any depth
func extractPython(root *sitter.Node, source []byte) []types.Item {
	var items []types.Item
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "class_definition":
			if name := n.ChildByFieldName("name"); name != nil && name.StartByte() < name.EndByte() {
				items = append(items, types.Item{
					Kind:     types.Definition,
					Name:     name.Content(source),
					Location: types.Location(name.StartByte()),
				})
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return items
}
