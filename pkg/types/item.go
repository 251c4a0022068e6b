package types

import "strconv"

// ItemKind distinguishes declarations from definitions
type ItemKind string

const (
	Declaration ItemKind = "declaration"
	Definition  ItemKind = "definition"
)

// Location is the byte offset of an item within its file.
// The indexing core never interprets it.
type Location int

// String formats the location the way it is printed in dumps
func (l Location) String() string {
	return strconv.Itoa(int(l))
}

// Item is a symbol occurrence produced by a parser strategy
type Item struct {
	Kind     ItemKind
	Name     string
	Location Location
}

// ValidateKind checks if the item kind is valid
func (i Item) ValidateKind() error {
	switch i.Kind {
	case Declaration, Definition:
		return nil
	default:
		return ErrInvalidKind
	}
}

// Validate performs validation of the item
func (i Item) Validate() error {
	if i.Name == "" {
		return ErrEmptyName
	}
	if i.Location < 0 {
		return ErrNegativeLoc
	}
	return i.ValidateKind()
}

// Occurrence is one (path, location) entry of a NameIndex
type Occurrence struct {
	Path     string
	Location Location
}

// String formats the occurrence as path:location
func (o Occurrence) String() string {
	return o.Path + ":" + o.Location.String()
}

// NameIndex maps a symbol name to its occurrences in fold order
type NameIndex map[string][]Occurrence

// Lookup returns the occurrences for name, or nil when absent
func (n NameIndex) Lookup(name string) []Occurrence {
	if n == nil {
		return nil
	}
	return n[name]
}
