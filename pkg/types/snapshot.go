package types

import (
	"encoding/binary"
	"time"

	"github.com/zeebo/xxh3"
)

// FileSnapshot is the cached parse result for one file.
// ModTime is the on-disk modification time observed when Items was produced.
type FileSnapshot struct {
	Path    string
	ModTime time.Time
	Items   []Item
}

// IsCurrent reports whether the cached items are still valid for a file
// whose on-disk modification time is modTime.
func (f FileSnapshot) IsCurrent(modTime time.Time) bool {
	return !modTime.After(f.ModTime)
}

// ProjectSnapshot is an immutable, ordered set of FileSnapshots produced by
// one complete scan. Iteration order is the order files were encountered.
type ProjectSnapshot struct {
	files  []FileSnapshot
	byPath map[string]int
}

// NewProjectSnapshot builds a snapshot from files in encounter order.
// When a path appears more than once the first entry wins.
func NewProjectSnapshot(files []FileSnapshot) *ProjectSnapshot {
	s := &ProjectSnapshot{
		files:  make([]FileSnapshot, 0, len(files)),
		byPath: make(map[string]int, len(files)),
	}
	for _, f := range files {
		if _, dup := s.byPath[f.Path]; dup {
			continue
		}
		s.byPath[f.Path] = len(s.files)
		s.files = append(s.files, f)
	}
	return s
}

// Lookup returns the FileSnapshot for path
func (s *ProjectSnapshot) Lookup(path string) (FileSnapshot, bool) {
	if s == nil {
		return FileSnapshot{}, false
	}
	i, ok := s.byPath[path]
	if !ok {
		return FileSnapshot{}, false
	}
	return s.files[i], true
}

// Files returns the file snapshots in encounter order.
// The returned slice must not be modified.
func (s *ProjectSnapshot) Files() []FileSnapshot {
	if s == nil {
		return nil
	}
	return s.files
}

// Len returns the number of files in the snapshot
func (s *ProjectSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.files)
}

// ItemCount returns the total number of items across all files
func (s *ProjectSnapshot) ItemCount() int {
	n := 0
	for _, f := range s.Files() {
		n += len(f.Items)
	}
	return n
}

// Fingerprint returns a digest of every path, modification time and item.
// Two snapshots with equal fingerprints index identically.
func (s *ProjectSnapshot) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, f := range s.Files() {
		_, _ = h.WriteString(f.Path)
		binary.LittleEndian.PutUint64(buf[:], uint64(f.ModTime.UnixNano()))
		_, _ = h.Write(buf[:])
		for _, it := range f.Items {
			_, _ = h.WriteString(string(it.Kind))
			_, _ = h.WriteString(it.Name)
			binary.LittleEndian.PutUint64(buf[:], uint64(it.Location))
			_, _ = h.Write(buf[:])
		}
	}
	return h.Sum64()
}
