// Package types provides shared type definitions for symindex.
//
// This package defines the value types exchanged between the parser
// strategies, the file scanner, the index builder and the scan coordinator.
// Every type here is treated as immutable once produced: snapshots are
// replaced wholesale, never edited in place.
//
// # Items
//
// An Item is a single symbol occurrence discovered by a parser strategy:
//
//	item := types.Item{
//	    Kind:     types.Definition,
//	    Name:     "ParseFile",
//	    Location: 1042, // byte offset of the name within its file
//	}
//
// Declarations mark where a name is declared (a prototype, an interface
// method, a forward reference). Definitions mark where it is fully defined.
//
// # Snapshots
//
// FileSnapshot caches the items of one file together with the modification
// time observed when they were produced. ProjectSnapshot is the ordered,
// whole-project collection of FileSnapshots built by one scan:
//
//	snap := types.NewProjectSnapshot(files)
//	if prior, ok := snap.Lookup("/src/a.c"); ok {
//	    fmt.Println(len(prior.Items))
//	}
//
// A nil *ProjectSnapshot is valid and behaves as an empty snapshot, which is
// how the first scan of a project is expressed.
//
// # Name Indexes
//
// NameIndex maps a symbol name to its occurrences in fold order. Two indexes
// are derived per project, one for declarations and one for definitions.
package types
