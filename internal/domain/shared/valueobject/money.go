package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is a monetary amount in minor currency units. All arithmetic inside
// the billing core is integer-only in this unit; decimal conversion happens
// exclusively at the API boundary.
type Cents int64

// Zero is the zero monetary amount
const Zero Cents = 0

// CentsFromDecimal converts a major-unit decimal amount to Cents.
// Amounts with more than two decimal places are rejected rather than rounded:
// the boundary must never silently gain or lose money.
func CentsFromDecimal(d decimal.Decimal) (Cents, error) {
	minor := d.Mul(decimal.NewFromInt(100))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", d.String())
	}
	return Cents(minor.IntPart()), nil
}

// CentsFromMajorString parses a major-unit string (e.g. "3450.00") into Cents
func CentsFromMajorString(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount string: %w", err)
	}
	return CentsFromDecimal(d)
}

// Decimal returns the amount in major units as a decimal
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 returns the amount in major units as a float64.
// Boundary/display use only, never for arithmetic.
func (c Cents) Float64() float64 {
	return c.Decimal().InexactFloat64()
}

// Abs returns the absolute value
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// IsZero returns true if the amount is zero
func (c Cents) IsZero() bool {
	return c == 0
}

// IsPositive returns true if the amount is strictly positive
func (c Cents) IsPositive() bool {
	return c > 0
}

// IsNegative returns true if the amount is strictly negative
func (c Cents) IsNegative() bool {
	return c < 0
}

// String returns the amount formatted in major units, e.g. "3450.00"
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}
