package unit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Compound unit grammar:
//
//	expr   := term (('/' | ' ') term)*
//	term   := factor ('^' factor)?
//	factor := NUMBER | SYMBOL | '(' expr ')'
//
// '^' binds tighter than '/' and ' ' (space multiplies). The evaluator splits
// at the rightmost top-level operator of the lowest precedence class so that
// division is left-associative, then recurses on both sides.

// parseExpression evaluates a compound unit expression to its linear SI
// multiplier.
func (r *Registry) parseExpression(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("%w: empty operand", ErrMalformedUnit)
	}

	inner, unwrapped, err := unwrapParens(expr)
	if err != nil {
		return 0, err
	}
	if unwrapped {
		return r.parseExpression(inner)
	}

	// Lowest precedence first: rightmost top-level '/' or ' '.
	if i, op, err := lastTopLevel(expr, "/ "); err != nil {
		return 0, err
	} else if i >= 0 {
		left, err := r.parseExpression(expr[:i])
		if err != nil {
			return 0, err
		}
		right, err := r.parseExpression(expr[i+1:])
		if err != nil {
			return 0, err
		}
		if op == '/' {
			return left / right, nil
		}
		return left * right, nil
	}

	// Then exponentiation.
	if i, _, err := lastTopLevel(expr, "^"); err != nil {
		return 0, err
	} else if i >= 0 {
		base, err := r.parseExpression(expr[:i])
		if err != nil {
			return 0, err
		}
		exponent, err := r.parseExpression(expr[i+1:])
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exponent), nil
	}

	return r.parseLeaf(expr)
}

// parseLeaf resolves a single factor: a registered linear symbol or a number.
func (r *Registry) parseLeaf(leaf string) (float64, error) {
	if m, ok := r.multipliers[leaf]; ok {
		return m, nil
	}
	if v, err := strconv.ParseFloat(leaf, 64); err == nil {
		return v, nil
	}
	if _, ok := r.conversions[leaf]; ok {
		return 0, fmt.Errorf("%w: nonlinear symbol %q in compound expression", ErrMalformedUnit, leaf)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, leaf)
}

// lastTopLevel returns the index and operator of the rightmost occurrence of
// any operator in ops outside parentheses, or -1 if none. Unbalanced
// parentheses are an error.
func lastTopLevel(expr string, ops string) (int, byte, error) {
	depth := 0
	index := -1
	var op byte
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; {
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return 0, 0, fmt.Errorf("%w: unmatched ')' in %q", ErrMalformedUnit, expr)
			}
		case depth == 0 && strings.IndexByte(ops, c) >= 0:
			index = i
			op = c
		}
	}
	if depth != 0 {
		return 0, 0, fmt.Errorf("%w: unmatched '(' in %q", ErrMalformedUnit, expr)
	}
	return index, op, nil
}

// unwrapParens strips one pair of parentheses enclosing the whole expression.
// "(m s)" unwraps to "m s", but "(a)/(b)" is left alone.
func unwrapParens(expr string) (string, bool, error) {
	if len(expr) < 2 || expr[0] != '(' {
		return expr, false, nil
	}
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "", false, fmt.Errorf("%w: unmatched ')' in %q", ErrMalformedUnit, expr)
			}
			if depth == 0 && i < len(expr)-1 {
				// The opening paren closes before the end, so the
				// parentheses do not enclose the whole expression.
				return expr, false, nil
			}
		}
	}
	if depth != 0 {
		return "", false, fmt.Errorf("%w: unmatched '(' in %q", ErrMalformedUnit, expr)
	}
	inner := strings.TrimSpace(expr[1 : len(expr)-1])
	if inner == "" {
		return "", false, fmt.Errorf("%w: empty parentheses", ErrMalformedUnit)
	}
	return inner, true, nil
}
