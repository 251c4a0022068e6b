package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/symindex/pkg/types"
)

// RegexRule maps files to a pattern. Extensions may also hold a literal
// base name such as "Makefile". The pattern must capture the symbol name in
// a group called "name", or in its first group.
type RegexRule struct {
	Extensions []string       `mapstructure:"extensions"`
	Pattern    string         `mapstructure:"pattern"`
	Kind       types.ItemKind `mapstructure:"kind"`
}

type compiledRule struct {
	re    *regexp.Regexp
	group int
	kind  types.ItemKind
}

// RegexStrategy is the least precise, universal fallback strategy
type RegexStrategy struct {
	rules map[string][]compiledRule
}

// DefaultRegexRules returns the built-in rules for languages without a
// structured parser.
func DefaultRegexRules() []RegexRule {
	const ident = `[A-Za-z_][A-Za-z0-9_]*`
	const jsIdent = `[A-Za-z_$][A-Za-z0-9_$]*`
	return []RegexRule{
		{
			Extensions: []string{".sh", ".bash", ".zsh"},
			Pattern:    `(?m)^\s*(?:function\s+)?(?P<name>` + ident + `)\s*\(\)\s*\{`,
			Kind:       types.Definition,
		},
		{
			Extensions: []string{".rs"},
			Pattern:    `(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+(?P<name>` + ident + `)`,
			Kind:       types.Definition,
		},
		{
			Extensions: []string{".rs"},
			Pattern:    `(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|union|type|mod)\s+(?P<name>` + ident + `)`,
			Kind:       types.Definition,
		},
		{
			Extensions: []string{".js", ".mjs", ".cjs", ".ts", ".tsx", ".jsx"},
			Pattern:    `(?m)^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>` + jsIdent + `)`,
			Kind:       types.Definition,
		},
		{
			Extensions: []string{".js", ".mjs", ".cjs", ".ts", ".tsx", ".jsx"},
			Pattern:    `(?m)^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(?P<name>` + jsIdent + `)`,
			Kind:       types.Definition,
		},
		{
			Extensions: []string{".ts", ".tsx", ".d.ts"},
			Pattern:    `(?m)^\s*(?:export\s+)?declare\s+(?:function|class|const|let|var)\s+(?P<name>` + jsIdent + `)`,
			Kind:       types.Declaration,
		},
		{
			Extensions: []string{"Makefile", "makefile", "GNUmakefile", ".mk"},
			Pattern:    `(?m)^(?P<name>[A-Za-z0-9_.\-/]+)\s*:(?:[^=]|$)`,
			Kind:       types.Definition,
		},
	}
}

// NewRegexStrategy compiles rules into a strategy
func NewRegexStrategy(rules []RegexRule) (*RegexStrategy, error) {
	s := &RegexStrategy{rules: make(map[string][]compiledRule)}
	for i, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("regex rule %d: %w", i, err)
		}
		group := re.SubexpIndex("name")
		if group < 0 {
			if re.NumSubexp() < 1 {
				return nil, fmt.Errorf("regex rule %d: pattern has no capture group", i)
			}
			group = 1
		}
		kind := rule.Kind
		if kind == "" {
			kind = types.Definition
		}
		if err := (types.Item{Kind: kind, Name: "x"}).ValidateKind(); err != nil {
			return nil, fmt.Errorf("regex rule %d: %w", i, err)
		}
		for _, ext := range rule.Extensions {
			s.rules[ext] = append(s.rules[ext], compiledRule{re: re, group: group, kind: kind})
		}
	}
	return s, nil
}

// Name returns the strategy name
func (s *RegexStrategy) Name() string { return "regex" }

// Method returns Regex
func (s *RegexStrategy) Method() Method { return Regex }

// TryParse applies every rule registered for the file's extension or base name
func (s *RegexStrategy) TryParse(_ context.Context, path string) ([]types.Item, error) {
	rules := s.rulesFor(path)
	if len(rules) == 0 {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var items []types.Item
	for _, rule := range rules {
		for _, m := range rule.re.FindAllSubmatchIndex(content, -1) {
			start, end := m[2*rule.group], m[2*rule.group+1]
			if start < 0 || start == end {
				continue
			}
			items = append(items, types.Item{
				Kind:     rule.kind,
				Name:     string(content[start:end]),
				Location: types.Location(start),
			})
		}
	}
	return items, nil
}

func (s *RegexStrategy) rulesFor(path string) []compiledRule {
	base := filepath.Base(path)
	if rules, ok := s.rules[base]; ok {
		return rules
	}
	// ".d.ts" style compound extensions take precedence over the plain one
	if i := strings.Index(base, "."); i > 0 {
		if rules, ok := s.rules[strings.ToLower(base[i:])]; ok {
			return rules
		}
	}
	return s.rules[strings.ToLower(filepath.Ext(base))]
}
