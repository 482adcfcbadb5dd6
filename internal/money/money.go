package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// MaxScale matches the NUMERIC(30, 8) columns used for every monetary value.
const MaxScale = 8

// Parse converts a decimal string into an amount. Amounts travel as strings
// end-to-end; floats are never accepted.
func Parse(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if value.Exponent() < -MaxScale {
		return decimal.Zero, ErrTooManyDecimals
	}
	return value, nil
}

// ParsePositive parses an amount and requires it to be strictly greater than zero.
func ParsePositive(input string) (decimal.Decimal, error) {
	value, err := Parse(input)
	if err != nil {
		return decimal.Zero, err
	}
	if value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

// Format renders an amount with two decimal places for display.
func Format(value decimal.Decimal) string {
	return value.StringFixedBank(2)
}

// Clamp floors a derived balance at zero.
func Clamp(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
