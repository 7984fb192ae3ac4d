// Package units provides the UnitService collaborator named in spec.md §9
// Design Notes ("duck-typed unit handling"): a minimal, dependency-free
// implementation covering the dimensions the canonical parametric variables
// need, standing in for the external quantity-arithmetic service the core
// treats as out of scope (spec.md §1).
package units

import "fmt"

// Quantity is a magnitude paired with its unit string.
type Quantity struct {
	Magnitude float64
	Unit      string
}

// UnitService parses a magnitude/unit pair and converts between units within
// the same dimension (spec.md §9: "parse (magnitude, unit_string) →
// Quantity" and "convert Quantity → target_unit → magnitude or UnitError").
type UnitService interface {
	Parse(magnitude float64, unit string) (Quantity, error)
	Convert(q Quantity, targetUnit string) (float64, error)
}

// unitEntry records a unit's dimension and its multiplicative factor to that
// dimension's SI base unit.
type unitEntry struct {
	dimension string
	toBase    float64
}

// Builtin is the built-in UnitService covering mass, power, data rate,
// money, percent, and dimensionless quantities, plus SI passthrough for any
// unit already expressed in its dimension's base unit.
type Builtin struct {
	units map[string]unitEntry
}

// NewBuiltin constructs the default UnitService.
func NewBuiltin() *Builtin {
	return &Builtin{
		units: map[string]unitEntry{
			"":    {dimension: "dimensionless", toBase: 1},
			"kg":  {dimension: "mass", toBase: 1},
			"g":   {dimension: "mass", toBase: 0.001},
			"mg":  {dimension: "mass", toBase: 0.000001},
			"lb":  {dimension: "mass", toBase: 0.45359237},
			"W":   {dimension: "power", toBase: 1},
			"kW":  {dimension: "power", toBase: 1000},
			"mW":  {dimension: "power", toBase: 0.001},
			"bps": {dimension: "data_rate", toBase: 1},
			"kbps": {dimension: "data_rate", toBase: 1e3},
			"Mbps": {dimension: "data_rate", toBase: 1e6},
			"Gbps": {dimension: "data_rate", toBase: 1e9},
			"USD":  {dimension: "money", toBase: 1},
			"%":    {dimension: "percent", toBase: 0.01},
		},
	}
}

// Parse resolves a (magnitude, unit) pair into a Quantity, failing if the
// unit is not registered.
func (b *Builtin) Parse(magnitude float64, unit string) (Quantity, error) {
	if _, ok := b.units[unit]; !ok {
		return Quantity{}, fmt.Errorf("unrecognized unit %q", unit)
	}
	return Quantity{Magnitude: magnitude, Unit: unit}, nil
}

// Convert converts q into targetUnit, failing if either unit is unknown or
// the two units belong to different dimensions.
func (b *Builtin) Convert(q Quantity, targetUnit string) (float64, error) {
	from, ok := b.units[q.Unit]
	if !ok {
		return 0, fmt.Errorf("unrecognized unit %q", q.Unit)
	}
	to, ok := b.units[targetUnit]
	if !ok {
		return 0, fmt.Errorf("unrecognized unit %q", targetUnit)
	}
	if from.dimension != to.dimension {
		return 0, fmt.Errorf("incompatible dimensions: %s (%s) vs %s (%s)", q.Unit, from.dimension, targetUnit, to.dimension)
	}
	base := q.Magnitude * from.toBase
	return base / to.toBase, nil
}

// DimensionOf returns the dimension a unit belongs to, and whether the unit
// is registered.
func (b *Builtin) DimensionOf(unit string) (string, bool) {
	e, ok := b.units[unit]
	if !ok {
		return "", false
	}
	return e.dimension, true
}

// ToSI converts magnitude from unit to its dimension's SI base unit,
// returning the converted value only (not the base-unit name).
func (b *Builtin) ToSI(magnitude float64, unit string) (float64, error) {
	e, ok := b.units[unit]
	if !ok {
		return 0, fmt.Errorf("unrecognized unit %q", unit)
	}
	return magnitude * e.toBase, nil
}
