package tsvdb

import "fmt"

// enumEntry locates one entity name: its row index and the table that owns
// it. Predefined external enumerations have an empty table name.
type enumEntry struct {
	row   int
	table string
}

// enumerationSpace is the global entity-name space. Any INT field in any
// table may reference any registered name, so registration enforces global
// uniqueness. Growth is append-only; a mod table may add new names to its
// target's enumeration but never reassign an existing one.
type enumerationSpace struct {
	entries map[string]enumEntry
}

func newEnumerationSpace() *enumerationSpace {
	return &enumerationSpace{entries: make(map[string]enumEntry)}
}

// register adds one entity name. A name already present anywhere in the
// space is fatal.
func (e *enumerationSpace) register(name, table string, row int) error {
	if prev, ok := e.entries[name]; ok {
		prevOwner := prev.table
		if prevOwner == "" {
			prevOwner = "predefined enumeration"
		}
		return fmt.Errorf("%w: %q already declared by %s", ErrDuplicateName, name, prevOwner)
	}
	e.entries[name] = enumEntry{row: row, table: table}
	return nil
}

// lookup returns the entry for an entity name.
func (e *enumerationSpace) lookup(name string) (enumEntry, bool) {
	entry, ok := e.entries[name]
	return entry, ok
}
