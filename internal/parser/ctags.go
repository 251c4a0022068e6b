package parser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dshills/symindex/pkg/types"
)

// ctagsDeclarationKinds are universal-ctags kinds that only declare a name
var ctagsDeclarationKinds = map[string]bool{
	"prototype":   true,
	"externvar":   true,
	"declaration": true,
}

// CtagsStrategy runs universal-ctags on each file it claims
type CtagsStrategy struct {
	path       string
	extensions map[string]bool
}

// NewCtagsStrategy creates a strategy that runs the ctags binary at path
// for files with one of the given extensions.
func NewCtagsStrategy(path string, extensions []string) *CtagsStrategy {
	if path == "" {
		path = "ctags"
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = true
	}
	return &CtagsStrategy{path: path, extensions: exts}
}

// Available reports whether the ctags binary can be found
func (c *CtagsStrategy) Available() bool {
	_, err := exec.LookPath(c.path)
	return err == nil
}

// Name returns the strategy name
func (c *CtagsStrategy) Name() string { return "ctags" }

// Method returns ExternalTool
func (c *CtagsStrategy) Method() Method { return ExternalTool }

// ctagsTag is one JSON line of universal-ctags output
type ctagsTag struct {
	Type string `json:"_type"`
	Name string `json:"name"`
	Line int    `json:"line"`
	Kind string `json:"kind"`
}

// TryParse invokes ctags and converts its tags into items
func (c *CtagsStrategy) TryParse(ctx context.Context, path string) ([]types.Item, error) {
	if !c.extensions[strings.ToLower(filepath.Ext(path))] {
		return nil, nil
	}

	cmd := exec.CommandContext(ctx, c.path, "--output-format=json", "--fields=+nK", "-f", "-", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ctags failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ctags failed: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return parseCtagsOutput(out, lineOffsets(content))
}

func parseCtagsOutput(out []byte, lines []int) ([]types.Item, error) {
	var items []types.Item
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var tag ctagsTag
		if err := json.Unmarshal(line, &tag); err != nil {
			return nil, fmt.Errorf("malformed ctags output: %w", err)
		}
		if tag.Type != "tag" || tag.Name == "" {
			continue
		}
		kind := types.Definition
		if ctagsDeclarationKinds[tag.Kind] {
			kind = types.Declaration
		}
		items = append(items, types.Item{
			Kind:     kind,
			Name:     tag.Name,
			Location: lineStart(lines, tag.Line),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ctags output: %w", err)
	}
	return items, nil
}

// lineOffsets returns the byte offset at which each line starts
func lineOffsets(content []byte) []int {
	offsets := []int{0}
	for i, b := range content {
		if b == '\n' && i+1 < len(content) {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// lineStart converts a 1-based line number into a byte offset
func lineStart(offsets []int, line int) types.Location {
	if line < 1 || line > len(offsets) {
		return 0
	}
	return types.Location(offsets[line-1])
}
