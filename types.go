package tsvdb

import (
	"fmt"
	"strings"
)

// Source file syntax constants.
const (
	// cellDelimiter separates cells within a line.
	cellDelimiter = "\t"
	// commentPrefix marks comment lines and comment columns.
	commentPrefix = "#"
	// directivePrefix marks directive lines.
	directivePrefix = "@"
	// arrayElementDelimiter separates ARRAY cell elements.
	arrayElementDelimiter = ","
	// prefixHeaderSeparator splits "Prefix/<value>" header keys.
	prefixHeaderSeparator = "/"
	// enumXEnumPrefixSeparator splits "ROW_\COL_" in the corner cell.
	enumXEnumPrefixSeparator = "\\"
)

// FLOAT cell markers.
const (
	// floatInfinity maps to +Inf.
	floatInfinity = "?"
	// floatNegInfinity maps to -Inf.
	floatNegInfinity = "-?"
	// floatZeroPrecisionMarker marks a value with no significant digits.
	floatZeroPrecisionMarker = '~'
)

// TableFormat identifies the six source table formats.
type TableFormat int

const (
	// FormatDBEntities is the default row/column table with named entities.
	FormatDBEntities TableFormat = iota
	// FormatDBEntitiesMod extends or overwrites a previously loaded table.
	FormatDBEntitiesMod
	// FormatDBAnonymousRows is a row/column table without entity names.
	FormatDBAnonymousRows
	// FormatEnumeration declares entity names only, with no data columns.
	FormatEnumeration
	// FormatWikiLookup maps keys to localized wiki titles.
	FormatWikiLookup
	// FormatEnumXEnum is a 2-D grid indexed by two enumerations.
	FormatEnumXEnum
)

// String returns the directive keyword for the format.
func (f TableFormat) String() string {
	switch f {
	case FormatDBEntities:
		return "DB_ENTITIES"
	case FormatDBEntitiesMod:
		return "DB_ENTITIES_MOD"
	case FormatDBAnonymousRows:
		return "DB_ANONYMOUS_ROWS"
	case FormatEnumeration:
		return "ENUMERATION"
	case FormatWikiLookup:
		return "WIKI_LOOKUP"
	case FormatEnumXEnum:
		return "ENUM_X_ENUM"
	default:
		return "UNKNOWN"
	}
}

// tableFormatFromKeyword maps a directive keyword to its format.
func tableFormatFromKeyword(keyword string) (TableFormat, bool) {
	switch keyword {
	case "DB_ENTITIES":
		return FormatDBEntities, true
	case "DB_ENTITIES_MOD":
		return FormatDBEntitiesMod, true
	case "DB_ANONYMOUS_ROWS":
		return FormatDBAnonymousRows, true
	case "ENUMERATION":
		return FormatEnumeration, true
	case "WIKI_LOOKUP":
		return FormatWikiLookup, true
	case "ENUM_X_ENUM":
		return FormatEnumXEnum, true
	default:
		return 0, false
	}
}

// ScalarType is the element type of a field.
type ScalarType int

const (
	// TypeBool holds true/false values.
	TypeBool ScalarType = iota
	// TypeInt holds literal integers or entity-name references.
	TypeInt
	// TypeFloat holds unit-converted floating point values.
	TypeFloat
	// TypeString holds escape-decoded text.
	TypeString
	// TypeStringName holds symbol text with no escape decoding.
	TypeStringName
)

// String returns the source keyword for the scalar type.
func (t ScalarType) String() string {
	switch t {
	case TypeBool:
		return "BOOL"
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return "STRING"
	case TypeStringName:
		return "STRING_NAME"
	default:
		return "UNKNOWN"
	}
}

// scalarTypeFromKeyword maps a Type header keyword to its scalar type.
func scalarTypeFromKeyword(keyword string) (ScalarType, bool) {
	switch keyword {
	case "BOOL":
		return TypeBool, true
	case "INT":
		return TypeInt, true
	case "FLOAT":
		return TypeFloat, true
	case "STRING":
		return TypeString, true
	case "STRING_NAME":
		return TypeStringName, true
	default:
		return 0, false
	}
}

// FieldType is a field's declared type: a scalar, optionally wrapped in
// ARRAY[...]. Nested arrays are not representable.
type FieldType struct {
	Scalar ScalarType
	Array  bool
}

// String returns the source keyword for the field type.
func (t FieldType) String() string {
	if t.Array {
		return "ARRAY[" + t.Scalar.String() + "]"
	}
	return t.Scalar.String()
}

const (
	arrayTypePrefix = "ARRAY["
	arrayTypeSuffix = "]"
)

// parseFieldType parses a Type header cell such as "FLOAT" or "ARRAY[INT]".
// The ARRAY element type must itself be a scalar.
func parseFieldType(keyword string) (FieldType, error) {
	if strings.HasPrefix(keyword, arrayTypePrefix) && strings.HasSuffix(keyword, arrayTypeSuffix) {
		elem := keyword[len(arrayTypePrefix) : len(keyword)-len(arrayTypeSuffix)]
		scalar, ok := scalarTypeFromKeyword(elem)
		if !ok {
			return FieldType{}, fmt.Errorf("%w: ARRAY element type %q", ErrInvalidType, elem)
		}
		return FieldType{Scalar: scalar, Array: true}, nil
	}
	scalar, ok := scalarTypeFromKeyword(keyword)
	if !ok {
		return FieldType{}, fmt.Errorf("%w: %q", ErrInvalidType, keyword)
	}
	return FieldType{Scalar: scalar}, nil
}

// validateColumnNames rejects empty or duplicate field names within a table.
func validateColumnNames(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		trimmed := strings.TrimSpace(col)
		if trimmed == "" {
			return fmt.Errorf("%w: empty field name", ErrSchema)
		}
		if seen[trimmed] {
			return fmt.Errorf("%w: duplicate field name %q", ErrSchema, col)
		}
		seen[trimmed] = true
	}
	return nil
}
