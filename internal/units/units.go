// Package units converts ingredient quantities between kitchen measurement
// units. Arithmetic goes through shopspring/decimal so the multiply-then-round
// chain used by stock deduction never accumulates binary float error.
package units

import "github.com/shopspring/decimal"

// Unit is a measurement unit as stored on inventory and recipe records.
type Unit string

const (
	UnitMilligram  Unit = "mg"
	UnitGram       Unit = "gm"
	UnitKilogram   Unit = "kg"
	UnitMillilitre Unit = "ml"
	UnitLitre      Unit = "ltr"
	// UnitLitreAlt is a legacy spelling that appears on imported records.
	UnitLitreAlt Unit = "litre"
	UnitPiece    Unit = "pcs"
)

// Class groups units that may be converted into each other.
type Class string

const (
	ClassWeight  Class = "weight"
	ClassVolume  Class = "volume"
	ClassCount   Class = "count"
	ClassUnknown Class = "unknown"
)

// factors map each unit onto its family base (gm for weight, ltr for volume).
var factors = map[Unit]decimal.Decimal{
	UnitMilligram:  decimal.New(1, -3),
	UnitGram:       decimal.New(1, 0),
	UnitKilogram:   decimal.New(1, 3),
	UnitMillilitre: decimal.New(1, -3),
	UnitLitre:      decimal.New(1, 0),
	UnitLitreAlt:   decimal.New(1, 0),
	UnitPiece:      decimal.New(1, 0),
}

var classes = map[Unit]Class{
	UnitMilligram:  ClassWeight,
	UnitGram:       ClassWeight,
	UnitKilogram:   ClassWeight,
	UnitMillilitre: ClassVolume,
	UnitLitre:      ClassVolume,
	UnitLitreAlt:   ClassVolume,
	UnitPiece:      ClassCount,
}

// ClassOf classifies a unit. Unrecognised units map to ClassUnknown.
func ClassOf(u Unit) Class {
	if c, ok := classes[u]; ok {
		return c
	}
	return ClassUnknown
}

// Compatible reports whether a quantity in unit a can be expressed in unit b.
func Compatible(a, b Unit) bool {
	ca, cb := ClassOf(a), ClassOf(b)
	if ca == ClassUnknown || cb == ClassUnknown {
		return false
	}
	return ca == cb
}

// Convert expresses qty (given in from) in the to unit, rounded to two
// decimals. Incompatible pairs return the input unchanged; callers are
// expected to gate on Compatible first.
func Convert(qty float64, from, to Unit) float64 {
	if from == to {
		return Round2(qty)
	}
	if !Compatible(from, to) {
		return qty
	}
	d := decimal.NewFromFloat(qty).Mul(factors[from]).Div(factors[to])
	result, _ := d.Round(2).Float64()
	return result
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	r, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return r
}

// Mul multiplies a recipe quantity by a sold count without float drift. The
// product keeps full precision; rounding happens once, after any unit
// conversion, so sub-0.01 recipe quantities survive the multiply-then-convert
// chain.
func Mul(perUnit float64, count int) float64 {
	d := decimal.NewFromFloat(perUnit).Mul(decimal.NewFromInt(int64(count)))
	result, _ := d.Float64()
	return result
}

// Sub subtracts b from a at two-decimal precision.
func Sub(a, b float64) float64 {
	r, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).Float64()
	return r
}

// Add adds b to a at two-decimal precision.
func Add(a, b float64) float64 {
	r, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).Float64()
	return r
}
