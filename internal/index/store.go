package index

import "github.com/dshills/symindex/pkg/types"

// entry is the published state of one open project
type entry struct {
	snapshot *types.ProjectSnapshot
	decls    types.NameIndex
	defs     types.NameIndex
}

// Store holds, per open project root, the latest published snapshot and the
// indexes derived from it. It is not safe for concurrent use.
type Store struct {
	projects map[string]*entry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{projects: make(map[string]*entry)}
}

// Open registers root with an empty snapshot. Opening an already open root
// keeps its current contents.
func (s *Store) Open(root string) {
	if _, ok := s.projects[root]; ok {
		return
	}
	s.projects[root] = &entry{
		snapshot: types.NewProjectSnapshot(nil),
		decls:    types.NameIndex{},
		defs:     types.NameIndex{},
	}
}

// Close drops everything held for root
func (s *Store) Close(root string) {
	delete(s.projects, root)
}

// IsOpen reports whether root is open
func (s *Store) IsOpen(root string) bool {
	_, ok := s.projects[root]
	return ok
}

// Publish replaces the snapshot and both indexes of root in one step.
// It returns false, storing nothing, when root is not open.
func (s *Store) Publish(root string, snap *types.ProjectSnapshot, decls, defs types.NameIndex) bool {
	e, ok := s.projects[root]
	if !ok {
		return false
	}
	e.snapshot = snap
	e.decls = decls
	e.defs = defs
	return true
}

// Snapshot returns the published snapshot of root, or nil if root is not open
func (s *Store) Snapshot(root string) *types.ProjectSnapshot {
	if e, ok := s.projects[root]; ok {
		return e.snapshot
	}
	return nil
}

// Declarations returns the declaration occurrences of name in root
func (s *Store) Declarations(root, name string) []types.Occurrence {
	if e, ok := s.projects[root]; ok {
		return e.decls.Lookup(name)
	}
	return nil
}

// Definitions returns the definition occurrences of name in root
func (s *Store) Definitions(root, name string) []types.Occurrence {
	if e, ok := s.projects[root]; ok {
		return e.defs.Lookup(name)
	}
	return nil
}

// Indexes returns both published indexes of root
func (s *Store) Indexes(root string) (decls, defs types.NameIndex, ok bool) {
	e, ok := s.projects[root]
	if !ok {
		return nil, nil, false
	}
	return e.decls, e.defs, true
}
