package tsvdb

import (
	"path/filepath"
	"strings"
)

// fieldSpec is one column's declared metadata.
type fieldSpec struct {
	// name is the field name from the header row.
	name string
	// typ is the declared type.
	typ FieldType
	// unit is the declared unit symbol; FLOAT fields only.
	unit string
	// def is the preprocessed Default value, rawEmpty when none declared.
	def rawValue
	// prefix is prepended to this field's non-empty text cells.
	prefix string
}

// intermediateTable is the output of preprocessing one source file. It is
// immutable after parsing and is consumed, then discarded, by the
// postprocessor.
type intermediateTable struct {
	format TableFormat
	name   string
	// modifies is the target table name; DB_ENTITIES_MOD only.
	modifies string
	// entityPrefix is prepended to every row name.
	entityPrefix string
	fields       []fieldSpec
	// rowNames is empty iff the table is anonymous.
	rowNames []string
	// cells is rows x fields, indexed in file order.
	cells [][]rawValue

	// ENUM_X_ENUM only: axis names, value grid and the single shared
	// type/unit/default for the whole grid.
	gridRowNames []string
	gridColNames []string
	grid         [][]rawValue
	gridField    fieldSpec

	in *interner
}

// fieldIndex returns the position of a field by name, or -1.
func (t *intermediateTable) fieldIndex(name string) int {
	for i := range t.fields {
		if t.fields[i].name == name {
			return i
		}
	}
	return -1
}

// tableNameFromPath derives the table name from a source path, stripping
// compression extensions first.
func tableNameFromPath(path string) string {
	fileName := filepath.Base(path)
	for _, ext := range []string{extGZ, extBZ2, extXZ, extZSTD} {
		if strings.HasSuffix(fileName, ext) {
			fileName = strings.TrimSuffix(fileName, ext)
			break
		}
	}
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
