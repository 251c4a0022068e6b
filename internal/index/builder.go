package index

import "github.com/dshills/symindex/pkg/types"

// Build folds every item of snap, in snapshot order, into a declarations
// index and a definitions index. Occurrences of a name accumulate in the
// order they are encountered; nothing is deduplicated.
func Build(snap *types.ProjectSnapshot) (decls, defs types.NameIndex) {
	decls = make(types.NameIndex)
	defs = make(types.NameIndex)

	for _, file := range snap.Files() {
		for _, item := range file.Items {
			occ := types.Occurrence{Path: file.Path, Location: item.Location}
			switch item.Kind {
			case types.Declaration:
				decls[item.Name] = append(decls[item.Name], occ)
			case types.Definition:
				defs[item.Name] = append(defs[item.Name], occ)
			}
		}
	}

	return decls, defs
}
