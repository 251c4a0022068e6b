package index

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/symindex/pkg/types"
)

// DumpLines renders idx for diagnostics: a "<kind>:" header followed by one
// line per name, sorted by name, listing every occurrence as file:location.
// An empty index renders as no lines.
func DumpLines(kind string, idx types.NameIndex) []string {
	if len(idx) == 0 {
		return []string{}
	}

	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, kind+":")
	for _, name := range names {
		occs := idx[name]
		parts := make([]string, len(occs))
		for i, occ := range occs {
			parts[i] = filepath.Base(occ.Path) + ":" + occ.Location.String()
		}
		lines = append(lines, "   "+name+"  "+strings.Join(parts, ", "))
	}
	return lines
}
