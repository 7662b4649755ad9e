package tsvdb

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tsvdb/tsvdb/unit"
)

// resolver converts preprocessed raw values into final typed values. It
// carries the global enumeration space for INT entity references and the
// unit registry for FLOAT conversion.
type resolver struct {
	enums *enumerationSpace
	units *unit.Registry
}

// resolve converts one raw value according to the declared type and unit.
func (r *resolver) resolve(raw rawValue, typ FieldType, unitSymbol string, in *interner) (Value, error) {
	if typ.Array {
		if raw.isEmpty() {
			return arrayValue(nil), nil
		}
		scalar := FieldType{Scalar: typ.Scalar}
		elems := make([]Value, len(raw.elems))
		for i, elem := range raw.elems {
			resolved, err := r.resolve(elem, scalar, unitSymbol, in)
			if err != nil {
				return Value{}, err
			}
			elems[i] = resolved
		}
		return arrayValue(elems), nil
	}

	switch typ.Scalar {
	case TypeBool:
		if raw.isEmpty() {
			return boolValue(false), nil
		}
		return boolValue(raw.n == 1), nil
	case TypeFloat:
		return r.resolveFloat(raw, unitSymbol)
	case TypeString:
		if raw.isEmpty() {
			return stringValue(""), nil
		}
		return stringValue(decodeEscapes(in.lookup(raw.n))), nil
	case TypeStringName:
		if raw.isEmpty() {
			return stringNameValue(""), nil
		}
		return stringNameValue(in.lookup(raw.n)), nil
	case TypeInt:
		return r.resolveInt(raw, in)
	default:
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidType, typ)
	}
}

// resolveFloat parses the preprocessed numeric string and applies unit
// conversion. "?" and "-?" are the infinities; a leading '~' marks zero
// precision and does not affect the magnitude.
func (r *resolver) resolveFloat(raw rawValue, unitSymbol string) (Value, error) {
	if raw.isEmpty() {
		return floatValue(math.NaN()), nil
	}
	text := raw.s
	switch text {
	case "":
		return floatValue(math.NaN()), nil
	case floatInfinity:
		return floatValue(math.Inf(1)), nil
	case floatNegInfinity:
		return floatValue(math.Inf(-1)), nil
	}
	if text[0] == floatZeroPrecisionMarker {
		text = text[1:]
	}
	x, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q", ErrMalformedFloat, raw.s)
	}
	x, err = r.units.Convert(x, unitSymbol, true)
	if err != nil {
		return Value{}, err
	}
	return floatValue(x), nil
}

// resolveInt resolves a literal integer or an entity-name reference. Any
// entity name from any table is a valid symbolic constant here.
func (r *resolver) resolveInt(raw rawValue, in *interner) (Value, error) {
	if raw.isEmpty() {
		return intValue(-1), nil
	}
	text := in.lookup(raw.n)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return intValue(i), nil
	}
	entry, ok := r.enums.lookup(text)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownEntity, text)
	}
	return intValue(int64(entry.row)), nil
}

// decodeEscapes rewrites backslash escapes in STRING cells, including
// \uXXXX sequences up to U+FFFF.
func decodeEscapes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		case 'u':
			if i+5 < len(s) {
				if code, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					b.WriteRune(rune(code))
					i += 5
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
