// Package unit converts numeric quantities between the unit symbols used in
// source tables and the internal SI representation (meters, seconds,
// kilograms, radians, kelvins).
//
// A Registry holds linear multipliers for simple symbols and forward/inverse
// function pairs for nonlinear symbols such as Celsius and Fahrenheit.
// Symbols that are not registered directly can still be resolved when they
// form a compound expression such as "m^3/(kg s^2)" or "d^-1".
//
// Registries are plain values with no process-global state, so independent
// datasets can carry independent unit tables.
package unit

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownUnit indicates a unit symbol that is not registered and
	// cannot be parsed as a compound expression.
	ErrUnknownUnit = errors.New("unit: unknown unit symbol")

	// ErrMalformedUnit indicates a compound unit expression that cannot be
	// parsed (unbalanced parentheses, empty operand, and so on).
	ErrMalformedUnit = errors.New("unit: malformed unit expression")
)

// Conversion is a forward/inverse function pair for a nonlinear unit.
// ToInternal converts a value expressed in the unit into the internal
// representation; FromInternal is its inverse.
type Conversion struct {
	ToInternal   func(float64) float64
	FromInternal func(float64) float64
}

// Registry maps unit symbols to conversions.
type Registry struct {
	multipliers map[string]float64
	conversions map[string]Conversion
}

// NewRegistry returns a registry preloaded with the standard SI-based
// multiplier table and the Celsius/Fahrenheit conversions.
func NewRegistry() *Registry {
	r := &Registry{
		multipliers: make(map[string]float64, len(defaultMultipliers)),
		conversions: make(map[string]Conversion, 2),
	}
	for symbol, m := range defaultMultipliers {
		r.multipliers[symbol] = m
	}
	r.conversions["degC"] = Conversion{
		ToInternal:   func(x float64) float64 { return x + 273.15 },
		FromInternal: func(x float64) float64 { return x - 273.15 },
	}
	r.conversions["degF"] = Conversion{
		ToInternal:   func(x float64) float64 { return (x-32.0)*5.0/9.0 + 273.15 },
		FromInternal: func(x float64) float64 { return (x-273.15)*9.0/5.0 + 32.0 },
	}
	return r
}

// Physical constants used by the default multiplier table.
const (
	secondsPerDay  = 86400.0
	secondsPerYear = 365.25 * secondsPerDay // Julian year
	metersPerAU    = 1.495978707e11
	metersPerLY    = 9.4607304725808e15
	metersPerPC    = 3.0856775814913673e16
	speedOfLight   = 299792458.0
)

// defaultMultipliers maps symbols to their SI multiplier. Internal units are
// seconds, meters, kilograms, radians, kelvins and their derived combinations.
var defaultMultipliers = map[string]float64{
	// time
	"s":   1.0,
	"min": 60.0,
	"h":   3600.0,
	"d":   secondsPerDay,
	"y":   secondsPerYear,
	"yr":  secondsPerYear,
	"Cy":  100.0 * secondsPerYear,

	// length
	"mm": 1e-3,
	"cm": 1e-2,
	"m":  1.0,
	"km": 1e3,
	"au": metersPerAU,
	"ly": metersPerLY,
	"pc": metersPerPC,

	// mass
	"g":  1e-3,
	"kg": 1.0,
	"t":  1e3,

	// angle
	"rad":    1.0,
	"deg":    math.Pi / 180.0,
	"arcmin": math.Pi / 10800.0,
	"arcsec": math.Pi / 648000.0,

	// speed
	"c": speedOfLight,

	// frequency
	"Hz": 1.0,

	// force, pressure, energy, power
	"N":   1.0,
	"Pa":  1.0,
	"bar": 1e5,
	"atm": 101325.0,
	"J":   1.0,
	"kJ":  1e3,
	"MJ":  1e6,
	"GJ":  1e9,
	"W":   1.0,
	"kW":  1e3,
	"MW":  1e6,
	"GW":  1e9,

	// temperature (linear only; degC/degF are nonlinear conversions)
	"K": 1.0,

	// dimensionless
	"%": 0.01,
}

// SetMultiplier registers or overrides a linear multiplier for symbol.
func (r *Registry) SetMultiplier(symbol string, multiplier float64) {
	r.multipliers[symbol] = multiplier
}

// SetConversion registers or overrides a nonlinear conversion for symbol.
func (r *Registry) SetConversion(symbol string, conv Conversion) {
	r.conversions[symbol] = conv
}

// Convert converts x between the given unit and the internal representation.
// An empty unit is a no-op passthrough, which is distinct from an unknown
// unit. When toInternal is false the inverse conversion is applied.
//
// Exact symbol matches are tried first (linear, then nonlinear); otherwise
// the unit is parsed as a compound expression of linear symbols.
func (r *Registry) Convert(x float64, unitSymbol string, toInternal bool) (float64, error) {
	if unitSymbol == "" {
		return x, nil
	}
	if m, ok := r.multipliers[unitSymbol]; ok {
		if toInternal {
			return x * m, nil
		}
		return x / m, nil
	}
	if conv, ok := r.conversions[unitSymbol]; ok {
		if toInternal {
			return conv.ToInternal(x), nil
		}
		return conv.FromInternal(x), nil
	}
	m, err := r.parseExpression(unitSymbol)
	if err != nil {
		return math.NaN(), err
	}
	if toInternal {
		return x * m, nil
	}
	return x / m, nil
}

// IsValid reports whether unitSymbol resolves, either as a registered symbol
// or as a parseable compound expression. The empty unit is valid.
func (r *Registry) IsValid(unitSymbol string) bool {
	_, err := r.Convert(1.0, unitSymbol, true)
	return err == nil
}

// Multiplier returns the linear multiplier for a unit expression. Nonlinear
// symbols have no multiplier and are rejected.
func (r *Registry) Multiplier(unitSymbol string) (float64, error) {
	if unitSymbol == "" {
		return 1.0, nil
	}
	if m, ok := r.multipliers[unitSymbol]; ok {
		return m, nil
	}
	if _, ok := r.conversions[unitSymbol]; ok {
		return 0, fmt.Errorf("%w: %q is nonlinear", ErrMalformedUnit, unitSymbol)
	}
	return r.parseExpression(unitSymbol)
}
