package parser

import (
	"context"
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"os"
	"path/filepath"

	"github.com/dshills/symindex/pkg/types"
)

// GoStrategy extracts items from Go source files using go/ast
type GoStrategy struct{}

// NewGoStrategy creates a new GoStrategy instance
func NewGoStrategy() *GoStrategy {
	return &GoStrategy{}
}

// Name returns the strategy name
func (g *GoStrategy) Name() string { return "go-ast" }

// Method returns Structured
func (g *GoStrategy) Method() Method { return Structured }

// TryParse parses a Go file. Files with syntax errors still yield whatever
// the partial AST contains; only a missing AST is a failure.
func (g *GoStrategy) TryParse(_ context.Context, path string) ([]types.Item, error) {
	if filepath.Ext(path) != ".go" {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Each call gets its own FileSet so the strategy is safe for concurrent use
	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, path, content, goparser.SkipObjectResolution)
	if file == nil {
		return nil, fmt.Errorf("syntax error: %w", err)
	}

	extractor := &itemExtractor{fset: fset}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			extractor.extractFunction(d)
		case *ast.GenDecl:
			extractor.extractGenDecl(d)
		}
	}
	return extractor.items, nil
}

// itemExtractor collects items from top-level declarations
type itemExtractor struct {
	fset  *token.FileSet
	items []types.Item
}

func (e *itemExtractor) add(kind types.ItemKind, ident *ast.Ident) {
	if ident == nil || ident.Name == "_" || ident.Name == "" {
		return
	}
	e.items = append(e.items, types.Item{
		Kind:     kind,
		Name:     ident.Name,
		Location: e.offset(ident.Pos()),
	})
}

// extractFunction extracts function and method declarations.
// A function without a body (implemented in assembly or via linkname) is a declaration.
func (e *itemExtractor) extractFunction(funcDecl *ast.FuncDecl) {
	if funcDecl.Body == nil {
		e.add(types.Declaration, funcDecl.Name)
		return
	}
	e.add(types.Definition, funcDecl.Name)
}

// extractGenDecl extracts type, const, and var declarations
func (e *itemExtractor) extractGenDecl(genDecl *ast.GenDecl) {
	for _, spec := range genDecl.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			e.extractTypeSpec(s)
		case *ast.ValueSpec:
			for _, name := range s.Names {
				e.add(types.Definition, name)
			}
		}
	}
}

// extractTypeSpec extracts a type plus its struct fields or interface methods
func (e *itemExtractor) extractTypeSpec(typeSpec *ast.TypeSpec) {
	e.add(types.Definition, typeSpec.Name)

	switch t := typeSpec.Type.(type) {
	case *ast.StructType:
		if t.Fields == nil {
			return
		}
		for _, field := range t.Fields.List {
			for _, name := range field.Names {
				e.add(types.Definition, name)
			}
		}
	case *ast.InterfaceType:
		if t.Methods == nil {
			return
		}
		for _, method := range t.Methods.List {
			if _, ok := method.Type.(*ast.FuncType); !ok {
				continue // embedded interface or type constraint
			}
			for _, name := range method.Names {
				e.add(types.Declaration, name)
			}
		}
	}
}

// offset converts a token position to a byte offset within the file
func (e *itemExtractor) offset(pos token.Pos) types.Location {
	return types.Location(e.fset.Position(pos).Offset)
}
