package tsvdb

import (
	"fmt"
	"strings"
)

// Directive keywords.
const (
	directiveModifies    = "MODIFIES"
	directiveDataType    = "DATA_TYPE"
	directiveTableType   = "TABLE_TYPE" // legacy alias of DATA_TYPE
	directiveDataDefault = "DATA_DEFAULT"
	directiveDataUnit    = "DATA_UNIT"
	directiveTranspose   = "TRANSPOSE"
	directiveDontParse   = "DONT_PARSE"
)

// Header row keywords, DB-style formats only.
const (
	headerType    = "Type"
	headerUnit    = "Unit"
	headerDefault = "Default"
	headerPrefix  = "Prefix"
)

// directives collects the directive lines of one source file.
type directives struct {
	format      *TableFormat
	formatArg   string
	modifies    string
	dataType    string
	dataDefault string
	dataUnit    string
	transpose   bool
	dontParse   bool
}

// preprocess parses one tokenized source into an intermediate table.
// It returns (nil, nil) when the source opts out with @DONT_PARSE.
func preprocess(src source) (*intermediateTable, error) {
	contentRows, dirs, err := scanLines(src)
	if err != nil {
		return nil, err
	}
	if dirs.dontParse {
		return nil, nil
	}
	if len(contentRows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyData, src.name)
	}

	contentRows, err = removeCommentColumns(contentRows, src.name)
	if err != nil {
		return nil, err
	}

	format := inferFormat(dirs, contentRows)
	if err := validateDirectives(dirs, format, src.name); err != nil {
		return nil, err
	}

	t := &intermediateTable{
		format:   format,
		name:     src.name,
		modifies: dirs.modifies,
		in:       newInterner(),
	}
	if dirs.formatArg != "" {
		t.name = dirs.formatArg
	}

	if format == FormatEnumXEnum {
		err = t.parseEnumXEnum(contentRows, dirs)
	} else {
		err = t.parseDBStyle(contentRows)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// scanLines strips comment lines and splits directives from content. Every
// content row must have the leading row's width; a mismatch either way is a
// schema error.
func scanLines(src source) ([][]string, directives, error) {
	var dirs directives
	var contentRows [][]string
	width := -1

	for _, row := range src.rows {
		first := stripCell(row[0])
		if strings.HasPrefix(first, commentPrefix) {
			continue
		}
		if strings.HasPrefix(first, directivePrefix) {
			if err := parseDirectiveLine(row, &dirs, src.name); err != nil {
				return nil, dirs, err
			}
			continue
		}
		if width < 0 {
			width = len(row)
		}
		if len(row) != width {
			return nil, dirs, fmt.Errorf("%w: %s: row has %d cells, expected %d",
				ErrSchema, src.name, len(row), width)
		}
		contentRows = append(contentRows, row)
	}
	return contentRows, dirs, nil
}

// parseDirectiveLine parses "@NAME", "@NAME=value", or the legacy two-cell
// form with the argument in the second cell.
func parseDirectiveLine(row []string, dirs *directives, sourceName string) error {
	cell := stripCell(row[0])
	name := strings.TrimPrefix(cell, directivePrefix)
	value := ""
	if eq := strings.IndexByte(name, '='); eq >= 0 {
		value = name[eq+1:]
		name = name[:eq]
	} else if len(row) > 1 {
		value = stripCell(row[1])
	}

	if format, ok := tableFormatFromKeyword(name); ok {
		if dirs.format != nil {
			return fmt.Errorf("%w: %s: multiple format directives", ErrDirective, sourceName)
		}
		dirs.format = &format
		dirs.formatArg = value
		return nil
	}

	switch name {
	case directiveModifies:
		if value == "" {
			return fmt.Errorf("%w: %s: MODIFIES requires a table name", ErrDirective, sourceName)
		}
		dirs.modifies = value
	case directiveDataType, directiveTableType:
		if value == "" {
			return fmt.Errorf("%w: %s: %s requires a type", ErrDirective, sourceName, name)
		}
		dirs.dataType = value
	case directiveDataDefault:
		dirs.dataDefault = value
	case directiveDataUnit:
		dirs.dataUnit = value
	case directiveTranspose:
		dirs.transpose = true
	case directiveDontParse:
		dirs.dontParse = true
	default:
		return fmt.Errorf("%w: %s: @%s", ErrDirective, sourceName, name)
	}
	return nil
}

// inferFormat applies the format inference rules when no format directive is
// present: a MODIFIES directive implies DB_ENTITIES_MOD, a single-column
// table is an ENUMERATION, anything else is DB_ENTITIES.
func inferFormat(dirs directives, contentRows [][]string) TableFormat {
	if dirs.format != nil {
		return *dirs.format
	}
	if dirs.modifies != "" {
		return FormatDBEntitiesMod
	}
	if len(contentRows) > 0 && len(contentRows[0]) == 1 {
		return FormatEnumeration
	}
	return FormatDBEntities
}

// validateDirectives checks that the directive set is legal for the format
// and that required directives are present.
func validateDirectives(dirs directives, format TableFormat, sourceName string) error {
	isMod := format == FormatDBEntitiesMod
	isGrid := format == FormatEnumXEnum

	if dirs.modifies != "" && !isMod {
		return fmt.Errorf("%w: %s: MODIFIES is illegal for %v", ErrDirective, sourceName, format)
	}
	if isMod && dirs.modifies == "" {
		return fmt.Errorf("%w: %s: DB_ENTITIES_MOD requires MODIFIES", ErrDirective, sourceName)
	}
	if !isGrid {
		if dirs.dataType != "" || dirs.dataDefault != "" || dirs.dataUnit != "" || dirs.transpose {
			return fmt.Errorf("%w: %s: ENUM_X_ENUM directives are illegal for %v",
				ErrDirective, sourceName, format)
		}
		return nil
	}
	if dirs.dataType == "" {
		return fmt.Errorf("%w: %s: ENUM_X_ENUM requires DATA_TYPE", ErrDirective, sourceName)
	}
	return nil
}

// removeCommentColumns drops every column whose header cell starts with '#'.
// The removed column set is fixed by the first content row.
func removeCommentColumns(rows [][]string, sourceName string) ([][]string, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	keep := make([]bool, len(rows[0]))
	removed := 0
	for i, cell := range rows[0] {
		keep[i] = !strings.HasPrefix(stripCell(cell), commentPrefix)
		if !keep[i] {
			removed++
		}
	}
	if removed == 0 {
		return rows, nil
	}
	out := make([][]string, len(rows))
	for r, row := range rows {
		if len(row) != len(keep) {
			return nil, fmt.Errorf("%w: %s: row has %d cells, expected %d",
				ErrSchema, sourceName, len(row), len(keep))
		}
		kept := make([]string, 0, len(row)-removed)
		for i, cell := range row {
			if keep[i] {
				kept = append(kept, cell)
			}
		}
		out[r] = kept
	}
	return out, nil
}

// stripCell normalizes a raw cell: surrounding whitespace, then matching
// double quotes, then one leading single quote.
func stripCell(cell string) string {
	cell = strings.TrimSpace(cell)
	if len(cell) >= 2 && cell[0] == '"' && cell[len(cell)-1] == '"' {
		cell = cell[1 : len(cell)-1]
	}
	if len(cell) > 0 && cell[0] == '\'' {
		cell = cell[1:]
	}
	return cell
}

// parseDBStyle parses the shared DB-style layout: an optional field-name
// header row, the Type/Unit/Default/Prefix header rows in any order, then
// content rows.
func (t *intermediateTable) parseDBStyle(rows [][]string) error {
	rowIndex := 0
	var fieldNames []string

	if t.format == FormatEnumeration {
		// A lone "name" header cell is accepted and skipped.
		if len(rows[0]) == 1 && stripCell(rows[0][0]) == "name" {
			rowIndex = 1
		}
		if len(rows[0]) != 1 {
			return fmt.Errorf("%w: %s: ENUMERATION tables have exactly one column", ErrSchema, t.name)
		}
	} else {
		headerRow := rows[0]
		if len(headerRow) < 2 {
			return fmt.Errorf("%w: %s: missing field-name header row", ErrSchema, t.name)
		}
		for _, cell := range headerRow[1:] {
			fieldNames = append(fieldNames, stripCell(cell))
		}
		if err := validateColumnNames(fieldNames); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		rowIndex = 1
	}

	types, units, defaults, prefixes, entityPrefix, consumed, err :=
		t.parseHeaderRows(rows[rowIndex:], len(fieldNames))
	if err != nil {
		return err
	}
	rowIndex += consumed
	t.entityPrefix = entityPrefix

	typeRequired := t.format != FormatEnumeration && t.format != FormatWikiLookup
	if typeRequired && types == nil {
		return fmt.Errorf("%w: %s: missing Type header row", ErrSchema, t.name)
	}

	t.fields = make([]fieldSpec, len(fieldNames))
	for i, name := range fieldNames {
		spec := fieldSpec{name: name, typ: FieldType{Scalar: TypeString}}
		if types != nil {
			if types[i] == "" {
				return fmt.Errorf("%w: %s: field %q has no declared type", ErrSchema, t.name, name)
			}
			typ, err := parseFieldType(types[i])
			if err != nil {
				return fmt.Errorf("%s: field %q: %w", t.name, name, err)
			}
			spec.typ = typ
		}
		if units != nil && units[i] != "" {
			if spec.typ.Scalar != TypeFloat {
				return fmt.Errorf("%w: %s: Unit on non-FLOAT field %q", ErrSchema, t.name, name)
			}
			spec.unit = units[i]
		}
		if prefixes != nil {
			spec.prefix = prefixes[i]
		}
		if defaults != nil && defaults[i] != "" {
			def, err := preprocessCell(defaults[i], spec.typ, spec.prefix, t.in)
			if err != nil {
				return fmt.Errorf("%s: Default for field %q: %w", t.name, name, err)
			}
			spec.def = def
		}
		t.fields[i] = spec
	}

	return t.parseContentRows(rows[rowIndex:])
}

// parseHeaderRows consumes Type/Unit/Default/Prefix rows until the first row
// whose leading cell is not a header keyword. The rows are order-independent
// and each may appear at most once.
func (t *intermediateTable) parseHeaderRows(rows [][]string, fieldCount int) (
	types, units, defaults, prefixes []string, entityPrefix string, consumed int, err error) {

	cellsOf := func(row []string) ([]string, error) {
		if len(row) != fieldCount+1 {
			return nil, fmt.Errorf("%w: %s: header row has %d cells, expected %d",
				ErrSchema, t.name, len(row), fieldCount+1)
		}
		out := make([]string, fieldCount)
		for i, cell := range row[1:] {
			out[i] = stripCell(cell)
		}
		return out, nil
	}

	for _, row := range rows {
		key := stripCell(row[0])
		switch {
		case key == headerType:
			if types, err = cellsOf(row); err != nil {
				return
			}
		case key == headerUnit:
			if units, err = cellsOf(row); err != nil {
				return
			}
		case key == headerDefault:
			if defaults, err = cellsOf(row); err != nil {
				return
			}
		case key == headerPrefix || strings.HasPrefix(key, headerPrefix+prefixHeaderSeparator):
			if value, found := strings.CutPrefix(key, headerPrefix+prefixHeaderSeparator); found {
				entityPrefix = value
			}
			if prefixes, err = cellsOf(row); err != nil {
				return
			}
		default:
			return
		}
		consumed++
	}
	return
}

// parseContentRows parses the data rows, enforcing uniform row-name presence
// and the per-format row-name requirements.
func (t *intermediateTable) parseContentRows(rows [][]string) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s: no content rows", ErrEmptyData, t.name)
	}

	hasNames := stripCell(rows[0][0]) != ""
	switch t.format {
	case FormatDBEntitiesMod, FormatEnumeration, FormatWikiLookup:
		if !hasNames {
			return fmt.Errorf("%w: %s: %v requires row names", ErrSchema, t.name, t.format)
		}
	case FormatDBAnonymousRows:
		if hasNames {
			return fmt.Errorf("%w: %s: DB_ANONYMOUS_ROWS must not have row names", ErrSchema, t.name)
		}
	}

	seen := make(map[string]bool, len(rows))
	t.cells = make([][]rawValue, 0, len(rows))
	for _, row := range rows {
		name := stripCell(row[0])
		if (name != "") != hasNames {
			return fmt.Errorf("%w: %s: row-name presence must be uniform", ErrSchema, t.name)
		}
		if hasNames {
			name = t.entityPrefix + name
			if seen[name] {
				return fmt.Errorf("%w: %s declares %q twice", ErrDuplicateName, t.name, name)
			}
			seen[name] = true
			t.rowNames = append(t.rowNames, name)
		}

		values := make([]rawValue, len(t.fields))
		for i := range t.fields {
			spec := &t.fields[i]
			raw, err := preprocessCell(stripCell(row[i+1]), spec.typ, spec.prefix, t.in)
			if err != nil {
				return fmt.Errorf("%s: row %q: %w", t.name, name, err)
			}
			if raw.isEmpty() && !spec.def.isEmpty() {
				raw = spec.def
			}
			values[i] = raw
		}
		t.cells = append(t.cells, values)
	}
	return nil
}

// parseEnumXEnum parses the 2-D grid layout. The corner cell optionally
// carries "ROWPREFIX\COLPREFIX"; TRANSPOSE swaps the grid and the prefixes
// before any further processing.
func (t *intermediateTable) parseEnumXEnum(rows [][]string, dirs directives) error {
	typ, err := parseFieldType(dirs.dataType)
	if err != nil {
		return fmt.Errorf("%s: DATA_TYPE: %w", t.name, err)
	}
	if dirs.dataUnit != "" && typ.Scalar != TypeFloat {
		return fmt.Errorf("%w: %s: DATA_UNIT on non-FLOAT grid", ErrSchema, t.name)
	}

	var rowPrefix, colPrefix string
	if corner := stripCell(rows[0][0]); corner != "" {
		rowPrefix, colPrefix, _ = strings.Cut(corner, enumXEnumPrefixSeparator)
	}
	if dirs.transpose {
		rows = transpose(rows)
		rowPrefix, colPrefix = colPrefix, rowPrefix
	}
	if len(rows) < 2 || len(rows[0]) < 2 {
		return fmt.Errorf("%w: %s: ENUM_X_ENUM needs at least one row and one column", ErrSchema, t.name)
	}

	t.gridField = fieldSpec{name: t.name, typ: typ, unit: dirs.dataUnit}
	if dirs.dataDefault != "" {
		def, err := preprocessCell(dirs.dataDefault, typ, "", t.in)
		if err != nil {
			return fmt.Errorf("%s: DATA_DEFAULT: %w", t.name, err)
		}
		t.gridField.def = def
	}

	for _, cell := range rows[0][1:] {
		name := stripCell(cell)
		if name == "" {
			return fmt.Errorf("%w: %s: empty column name", ErrSchema, t.name)
		}
		t.gridColNames = append(t.gridColNames, colPrefix+name)
	}

	t.grid = make([][]rawValue, 0, len(rows)-1)
	for _, row := range rows[1:] {
		name := stripCell(row[0])
		if name == "" {
			return fmt.Errorf("%w: %s: empty row name", ErrSchema, t.name)
		}
		t.gridRowNames = append(t.gridRowNames, rowPrefix+name)

		values := make([]rawValue, len(t.gridColNames))
		for i := range t.gridColNames {
			raw, err := preprocessCell(stripCell(row[i+1]), typ, "", t.in)
			if err != nil {
				return fmt.Errorf("%s: row %q: %w", t.name, name, err)
			}
			values[i] = raw
		}
		t.grid = append(t.grid, values)
	}
	return nil
}

// transpose flips a cell matrix around its diagonal. Rows already have
// uniform width, enforced by scanLines.
func transpose(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	out := make([][]string, len(rows[0]))
	for i := range out {
		out[i] = make([]string, len(rows))
		for j := range rows {
			out[i][j] = rows[j][i]
		}
	}
	return out
}
