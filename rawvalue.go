package tsvdb

import (
	"fmt"
	"strings"
)

// rawKind discriminates preprocessed cell representations. Cells are stored
// in a form cheaper than their final type: bools as 0/1, floats as a
// digit-preserving numeric string, text as an interned index, arrays as
// nested preprocessed sequences.
type rawKind uint8

const (
	// rawEmpty is the "no value" sentinel resolved to the type default.
	rawEmpty rawKind = iota
	// rawBool holds 0 or 1 in n.
	rawBool
	// rawFloat holds the preprocessed numeric string in s, including a
	// leading '~' marker and the original significant digits.
	rawFloat
	// rawText holds an interned string index in n (STRING, STRING_NAME
	// and INT cells).
	rawText
	// rawArray holds nested preprocessed elements.
	rawArray
)

// rawValue is the tagged union produced by cell preprocessing.
type rawValue struct {
	kind  rawKind
	n     int32
	s     string
	elems []rawValue
}

// isEmpty reports whether the cell had no value and no default.
func (v rawValue) isEmpty() bool {
	return v.kind == rawEmpty
}

// preprocessCell converts one raw cell into its preprocessed representation.
// prefix is the per-field prefix applied to non-empty text cells. The default
// substitution for empty cells happens in the caller, which knows the field's
// preprocessed default.
func preprocessCell(cell string, typ FieldType, prefix string, in *interner) (rawValue, error) {
	if typ.Array {
		if cell == "" {
			return rawValue{}, nil
		}
		parts := strings.Split(cell, arrayElementDelimiter)
		elems := make([]rawValue, 0, len(parts))
		scalar := FieldType{Scalar: typ.Scalar}
		for _, part := range parts {
			elem, err := preprocessCell(strings.TrimSpace(part), scalar, prefix, in)
			if err != nil {
				return rawValue{}, err
			}
			elems = append(elems, elem)
		}
		return rawValue{kind: rawArray, elems: elems}, nil
	}

	if cell == "" {
		return rawValue{}, nil
	}

	switch typ.Scalar {
	case TypeBool:
		switch strings.ToUpper(cell) {
		case "TRUE":
			return rawValue{kind: rawBool, n: 1}, nil
		case "FALSE":
			return rawValue{kind: rawBool, n: 0}, nil
		default:
			return rawValue{}, fmt.Errorf("%w: BOOL cell %q", ErrSchema, cell)
		}
	case TypeFloat:
		// Kept as text so the postprocessor can derive significant-digit
		// precision before parsing the magnitude.
		return rawValue{kind: rawFloat, s: cell}, nil
	case TypeInt, TypeString, TypeStringName:
		if prefix != "" {
			cell = prefix + cell
		}
		return rawValue{kind: rawText, n: in.intern(cell)}, nil
	default:
		return rawValue{}, fmt.Errorf("%w: %v", ErrInvalidType, typ)
	}
}
