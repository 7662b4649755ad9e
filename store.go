package tsvdb

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind discriminates resolved values.
type ValueKind int

const (
	// KindBool is a resolved BOOL value.
	KindBool ValueKind = iota
	// KindInt is a resolved INT value (literal or entity row index).
	KindInt
	// KindFloat is a resolved, unit-converted FLOAT value.
	KindFloat
	// KindString is resolved, escape-decoded text.
	KindString
	// KindStringName is resolved symbol text.
	KindStringName
	// KindArray is a resolved typed sequence.
	KindArray
)

// String returns a short name for the kind.
func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindStringName:
		return "string_name"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a resolved cell value. Values are immutable; Array returns a
// copy of the element slice.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	a    []Value
}

func boolValue(b bool) Value         { return Value{kind: KindBool, b: b} }
func intValue(i int64) Value         { return Value{kind: KindInt, i: i} }
func floatValue(f float64) Value     { return Value{kind: KindFloat, f: f} }
func stringValue(s string) Value     { return Value{kind: KindString, s: s} }
func stringNameValue(s string) Value { return Value{kind: KindStringName, s: s} }
func arrayValue(elems []Value) Value { return Value{kind: KindArray, a: elems} }

// Kind returns the value kind.
func (v Value) Kind() ValueKind { return v.kind }

// Bool returns the boolean value; false for other kinds.
func (v Value) Bool() bool { return v.b }

// Int returns the integer value; 0 for other kinds.
func (v Value) Int() int64 { return v.i }

// Float returns the float value; 0 for other kinds.
func (v Value) Float() float64 { return v.f }

// Text returns the text for string kinds; "" for other kinds.
func (v Value) Text() string { return v.s }

// Array returns a copy of the elements for array values.
func (v Value) Array() []Value {
	if v.a == nil {
		return nil
	}
	out := make([]Value, len(v.a))
	copy(out, v.a)
	return out
}

// Len returns the element count for array values, 0 otherwise.
func (v Value) Len() int { return len(v.a) }

// String formats the value for display and export.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString, KindStringName:
		return v.s
	case KindArray:
		parts := make([]string, len(v.a))
		for i, elem := range v.a {
			parts[i] = elem.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

// missingValue returns the per-type sentinel used when a field is absent or
// a cell has no value: false, -1, NaN, "", or an empty sequence.
func missingValue(typ FieldType) Value {
	if typ.Array {
		return arrayValue(nil)
	}
	switch typ.Scalar {
	case TypeBool:
		return boolValue(false)
	case TypeInt:
		return intValue(-1)
	case TypeFloat:
		return floatValue(math.NaN())
	case TypeStringName:
		return stringNameValue("")
	default:
		return stringValue("")
	}
}

// kindForType maps a declared field type to its resolved value kind.
func kindForType(typ FieldType) ValueKind {
	if typ.Array {
		return KindArray
	}
	switch typ.Scalar {
	case TypeBool:
		return KindBool
	case TypeInt:
		return KindInt
	case TypeFloat:
		return KindFloat
	case TypeStringName:
		return KindStringName
	default:
		return KindString
	}
}

// column is one finalized field: its declared metadata, its resolved default
// (imputed into rows a mod table appends) and one value slot per row.
type column struct {
	name   string
	typ    FieldType
	unit   string
	def    Value
	values []Value
}

// Table is one finalized table. All field slices have equal length; the
// struct is read-only once postprocessing finishes.
type Table struct {
	name     string
	format   TableFormat
	prefix   string
	rowCount int
	names    []string
	index    map[string]int
	columns  map[string]*column
	order    []string

	// ENUM_X_ENUM only: the grid and the tables owning each axis.
	grid    [][]Value
	rowAxis string
	colAxis string
}

// Store is the finalized, immutable output of one postprocess run. It is
// safe for unsynchronized concurrent reads.
type Store struct {
	tables    map[string]*Table
	order     []string
	enums     *enumerationSpace
	wiki      map[string]string
	precision map[string]map[string][]int
}

// HasTable reports whether a table exists.
func (s *Store) HasTable(table string) bool {
	_, ok := s.tables[table]
	return ok
}

// TableNames returns the table names in processing order.
func (s *Store) TableNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// table resolves a table name; missing tables are an error.
func (s *Store) table(name string) (*Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// RowCount returns the number of rows, including rows appended by mods.
func (s *Store) RowCount(table string) (int, error) {
	t, err := s.table(table)
	if err != nil {
		return 0, err
	}
	return t.rowCount, nil
}

// Prefix returns the table's entity-name prefix.
func (s *Store) Prefix(table string) (string, error) {
	t, err := s.table(table)
	if err != nil {
		return "", err
	}
	return t.prefix, nil
}

// EntityNames returns the table's entity names in row order; empty for
// anonymous tables.
func (s *Store) EntityNames(table string) ([]string, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out, nil
}

// EntityName returns the entity name at a row.
func (s *Store) EntityName(table string, row int) (string, error) {
	t, err := s.table(table)
	if err != nil {
		return "", err
	}
	if row < 0 || row >= len(t.names) {
		return "", fmt.Errorf("%w: %s[%d]", ErrRowOutOfRange, table, row)
	}
	return t.names[row], nil
}

// EntityIndex resolves an entity name through the global enumeration space.
func (s *Store) EntityIndex(entity string) (int, bool) {
	entry, ok := s.enums.lookup(entity)
	if !ok {
		return -1, false
	}
	return entry.row, true
}

// EntityTable returns the name of the table that declares an entity, or ""
// for predefined enumerations.
func (s *Store) EntityTable(entity string) (string, bool) {
	entry, ok := s.enums.lookup(entity)
	if !ok {
		return "", false
	}
	return entry.table, true
}

// HasField reports whether a table has a field.
func (s *Store) HasField(table, field string) bool {
	t, ok := s.tables[table]
	if !ok {
		return false
	}
	_, ok = t.columns[field]
	return ok
}

// FieldNames returns a table's field names in declaration order.
func (s *Store) FieldNames(table string) ([]string, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out, nil
}

// FieldType returns the declared type of a field.
func (s *Store) FieldType(table, field string) (FieldType, bool) {
	t, ok := s.tables[table]
	if !ok {
		return FieldType{}, false
	}
	col, ok := t.columns[field]
	if !ok {
		return FieldType{}, false
	}
	return col.typ, true
}

// rowByName resolves an entity name to this table's row index. An entity
// the table does not declare is an error, matching the contract that a
// missing entity is fatal while a missing field is not.
func (t *Table) rowByName(entity string) (int, error) {
	row, ok := t.index[entity]
	if !ok {
		return -1, fmt.Errorf("%w: %q in table %q", ErrUnknownEntity, entity, t.name)
	}
	return row, nil
}

// value fetches one slot, substituting the per-type missing sentinel when
// the field does not exist.
func (t *Table) value(field string, row int, want ValueKind) (Value, error) {
	col, ok := t.columns[field]
	if !ok {
		return missingValueForKind(want), nil
	}
	if kindForType(col.typ) != want {
		return Value{}, fmt.Errorf("%w: field %q is %v", ErrTypeMismatch, field, col.typ)
	}
	if row < 0 || row >= len(col.values) {
		return Value{}, fmt.Errorf("%w: %s.%s[%d]", ErrRowOutOfRange, t.name, field, row)
	}
	return col.values[row], nil
}

// missingValueForKind returns the sentinel for a kind.
func missingValueForKind(kind ValueKind) Value {
	switch kind {
	case KindBool:
		return boolValue(false)
	case KindInt:
		return intValue(-1)
	case KindFloat:
		return floatValue(math.NaN())
	case KindStringName:
		return stringNameValue("")
	case KindArray:
		return arrayValue(nil)
	default:
		return stringValue("")
	}
}

// GetValue returns the value at (table, field, row). The boolean reports
// whether the field exists; a missing field is not an error.
func (s *Store) GetValue(table, field string, row int) (Value, bool, error) {
	t, err := s.table(table)
	if err != nil {
		return Value{}, false, err
	}
	col, ok := t.columns[field]
	if !ok {
		return Value{}, false, nil
	}
	if row < 0 || row >= len(col.values) {
		return Value{}, true, fmt.Errorf("%w: %s.%s[%d]", ErrRowOutOfRange, table, field, row)
	}
	return col.values[row], true, nil
}

// GetBool returns a BOOL field slot; false when the field is absent.
func (s *Store) GetBool(table, field string, row int) (bool, error) {
	t, err := s.table(table)
	if err != nil {
		return false, err
	}
	v, err := t.value(field, row, KindBool)
	return v.Bool(), err
}

// GetInt returns an INT field slot; -1 when the field is absent.
func (s *Store) GetInt(table, field string, row int) (int64, error) {
	t, err := s.table(table)
	if err != nil {
		return -1, err
	}
	v, err := t.value(field, row, KindInt)
	return v.Int(), err
}

// GetFloat returns a FLOAT field slot; NaN when the field is absent.
func (s *Store) GetFloat(table, field string, row int) (float64, error) {
	t, err := s.table(table)
	if err != nil {
		return math.NaN(), err
	}
	v, err := t.value(field, row, KindFloat)
	if err != nil {
		return math.NaN(), err
	}
	return v.Float(), nil
}

// GetString returns a STRING field slot; "" when the field is absent.
func (s *Store) GetString(table, field string, row int) (string, error) {
	t, err := s.table(table)
	if err != nil {
		return "", err
	}
	v, err := t.value(field, row, KindString)
	return v.Text(), err
}

// GetStringName returns a STRING_NAME field slot; "" when the field is
// absent.
func (s *Store) GetStringName(table, field string, row int) (string, error) {
	t, err := s.table(table)
	if err != nil {
		return "", err
	}
	v, err := t.value(field, row, KindStringName)
	return v.Text(), err
}

// GetArray returns an ARRAY field slot as a copied element slice; empty
// when the field is absent.
func (s *Store) GetArray(table, field string, row int) ([]Value, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}
	v, err := t.value(field, row, KindArray)
	if err != nil {
		return nil, err
	}
	return v.Array(), nil
}

// GetBoolOr returns a BOOL field slot, substituting fallback when the field
// is absent. BOOL cells always hold a value, so no sentinel check applies.
func (s *Store) GetBoolOr(table, field string, row int, fallback bool) (bool, error) {
	t, err := s.table(table)
	if err != nil {
		return fallback, err
	}
	if _, ok := t.columns[field]; !ok {
		return fallback, nil
	}
	return s.GetBool(table, field, row)
}

// GetIntOr returns an INT field slot, substituting fallback when the field
// is absent or the slot holds the -1 sentinel.
func (s *Store) GetIntOr(table, field string, row int, fallback int64) (int64, error) {
	v, err := s.GetInt(table, field, row)
	if err != nil {
		return fallback, err
	}
	if v == -1 {
		return fallback, nil
	}
	return v, nil
}

// GetFloatOr returns a FLOAT field slot, substituting fallback when the
// field is absent or the slot holds NaN.
func (s *Store) GetFloatOr(table, field string, row int, fallback float64) (float64, error) {
	v, err := s.GetFloat(table, field, row)
	if err != nil {
		return fallback, err
	}
	if math.IsNaN(v) {
		return fallback, nil
	}
	return v, nil
}

// GetStringOr returns a STRING field slot, substituting fallback when the
// field is absent or the slot is empty.
func (s *Store) GetStringOr(table, field string, row int, fallback string) (string, error) {
	v, err := s.GetString(table, field, row)
	if err != nil {
		return fallback, err
	}
	if v == "" {
		return fallback, nil
	}
	return v, nil
}

// GetBoolByName is GetBool addressed by entity name.
func (s *Store) GetBoolByName(table, field, entity string) (bool, error) {
	row, err := s.entityRow(table, entity)
	if err != nil {
		return false, err
	}
	return s.GetBool(table, field, row)
}

// GetIntByName is GetInt addressed by entity name.
func (s *Store) GetIntByName(table, field, entity string) (int64, error) {
	row, err := s.entityRow(table, entity)
	if err != nil {
		return -1, err
	}
	return s.GetInt(table, field, row)
}

// GetFloatByName is GetFloat addressed by entity name.
func (s *Store) GetFloatByName(table, field, entity string) (float64, error) {
	row, err := s.entityRow(table, entity)
	if err != nil {
		return math.NaN(), err
	}
	return s.GetFloat(table, field, row)
}

// GetStringByName is GetString addressed by entity name.
func (s *Store) GetStringByName(table, field, entity string) (string, error) {
	row, err := s.entityRow(table, entity)
	if err != nil {
		return "", err
	}
	return s.GetString(table, field, row)
}

// GetStringNameByName is GetStringName addressed by entity name.
func (s *Store) GetStringNameByName(table, field, entity string) (string, error) {
	row, err := s.entityRow(table, entity)
	if err != nil {
		return "", err
	}
	return s.GetStringName(table, field, row)
}

// GetArrayByName is GetArray addressed by entity name.
func (s *Store) GetArrayByName(table, field, entity string) ([]Value, error) {
	row, err := s.entityRow(table, entity)
	if err != nil {
		return nil, err
	}
	return s.GetArray(table, field, row)
}

func (s *Store) entityRow(table, entity string) (int, error) {
	t, err := s.table(table)
	if err != nil {
		return -1, err
	}
	return t.rowByName(entity)
}

// RowMap projects one row into a field-name-to-value map. Fields whose slot
// holds the missing sentinel are still included; absent fields cannot occur
// since the projection iterates the table's own fields.
func (s *Store) RowMap(table string, row int) (map[string]Value, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= t.rowCount {
		return nil, fmt.Errorf("%w: %s[%d]", ErrRowOutOfRange, table, row)
	}
	out := make(map[string]Value, len(t.order)+1)
	if len(t.names) > 0 {
		out["name"] = stringNameValue(t.names[row])
	}
	for _, field := range t.order {
		out[field] = t.columns[field].values[row]
	}
	return out, nil
}

// RowMapByName is RowMap addressed by entity name.
func (s *Store) RowMapByName(table, entity string) (map[string]Value, error) {
	row, err := s.entityRow(table, entity)
	if err != nil {
		return nil, err
	}
	return s.RowMap(table, row)
}

// Precision returns the significant-digit count recorded for a FLOAT field
// slot, or -1 when unknown (missing cells, constants, infinities, or
// precision tracking disabled).
func (s *Store) Precision(table, field string, row int) (int, error) {
	t, err := s.table(table)
	if err != nil {
		return -1, err
	}
	fields, ok := s.precision[table]
	if !ok {
		return -1, nil
	}
	counts, ok := fields[field]
	if !ok {
		return -1, nil
	}
	if row < 0 || row >= len(counts) {
		return -1, fmt.Errorf("%w: %s.%s[%d]", ErrRowOutOfRange, t.name, field, row)
	}
	return counts[row], nil
}

// PrecisionByName is Precision addressed by entity name.
func (s *Store) PrecisionByName(table, field, entity string) (int, error) {
	row, err := s.entityRow(table, entity)
	if err != nil {
		return -1, err
	}
	return s.Precision(table, field, row)
}

// WikiTitle returns the localized wiki title recorded for a key.
func (s *Store) WikiTitle(key string) (string, bool) {
	title, ok := s.wiki[key]
	return title, ok
}

// GridSize returns an ENUM_X_ENUM table's dimensions.
func (s *Store) GridSize(table string) (rows, cols int, err error) {
	t, err := s.table(table)
	if err != nil {
		return 0, 0, err
	}
	if t.format != FormatEnumXEnum {
		return 0, 0, fmt.Errorf("%w: %q is not ENUM_X_ENUM", ErrTypeMismatch, table)
	}
	if len(t.grid) == 0 {
		return 0, 0, nil
	}
	return len(t.grid), len(t.grid[0]), nil
}

// GridAt returns an ENUM_X_ENUM cell by enumeration indices.
func (s *Store) GridAt(table string, row, col int) (Value, error) {
	t, err := s.table(table)
	if err != nil {
		return Value{}, err
	}
	if t.format != FormatEnumXEnum {
		return Value{}, fmt.Errorf("%w: %q is not ENUM_X_ENUM", ErrTypeMismatch, table)
	}
	if row < 0 || row >= len(t.grid) || col < 0 || col >= len(t.grid[row]) {
		return Value{}, fmt.Errorf("%w: %s[%d][%d]", ErrRowOutOfRange, table, row, col)
	}
	return t.grid[row][col], nil
}

// GridValue returns an ENUM_X_ENUM cell addressed by the two entity names.
// Each entity must belong to the enumeration owning its axis, so swapped
// arguments fail instead of addressing the wrong cell.
func (s *Store) GridValue(table, rowEntity, colEntity string) (Value, error) {
	t, err := s.table(table)
	if err != nil {
		return Value{}, err
	}
	if t.format != FormatEnumXEnum {
		return Value{}, fmt.Errorf("%w: %q is not ENUM_X_ENUM", ErrTypeMismatch, table)
	}
	rowEntry, err := s.axisEntry(t, rowEntity, t.rowAxis)
	if err != nil {
		return Value{}, err
	}
	colEntry, err := s.axisEntry(t, colEntity, t.colAxis)
	if err != nil {
		return Value{}, err
	}
	return s.GridAt(table, rowEntry.row, colEntry.row)
}

// axisEntry resolves one grid axis entity and checks its owner enumeration.
func (s *Store) axisEntry(t *Table, entity, axis string) (enumEntry, error) {
	entry, ok := s.enums.lookup(entity)
	if !ok {
		return enumEntry{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	if entry.table != axis {
		owner := entry.table
		if owner == "" {
			owner = "predefined enumeration"
		}
		return enumEntry{}, fmt.Errorf("%w: %q belongs to %s, not the axis enumeration of %q",
			ErrUnknownEntity, entity, owner, t.name)
	}
	return entry, nil
}
