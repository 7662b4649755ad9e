package tsvdb

import "fmt"

// precisionUnknown marks slots with no derivable precision: missing cells,
// infinities, and rows imputed from defaults by a mod table.
const precisionUnknown = -1

// floatPrecision counts the significant digits of a preprocessed FLOAT
// string. Digits after the decimal point always count, including trailing
// zeros; trailing zeros before the point count only when a decimal point is
// present. Counting stops at the exponent marker. A leading '~' declares
// zero precision explicitly.
func floatPrecision(text string) (int, error) {
	switch text {
	case "", floatInfinity, floatNegInfinity:
		return precisionUnknown, nil
	}
	if text[0] == floatZeroPrecisionMarker {
		return 0, nil
	}

	count := 0
	pendingZeros := 0
	started := false
	decimal := false
scan:
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '-':
			// Sign of the mantissa; a sign after 'e' never reaches here.
		case c == '.':
			decimal = true
			count += pendingZeros
			pendingZeros = 0
		case c == 'e' || c == 'E':
			break scan
		case c == '0':
			if !started {
				break
			}
			if decimal {
				count++
			} else {
				pendingZeros++
			}
		case c >= '1' && c <= '9':
			started = true
			count += pendingZeros + 1
			pendingZeros = 0
		default:
			return 0, fmt.Errorf("%w: unexpected character %q in %q", ErrMalformedFloat, c, text)
		}
	}
	return count, nil
}
