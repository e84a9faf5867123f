package backend

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// least decimal places kept by the price division
	minDivisionPlaces = 20
	// significant digits kept in the final rate, rounded toward zero
	significantDigits = 15
)

var one = decimal.NewFromInt(1)

// deriveRate converts a pair of unit prices into a rate
// between minimum units of the two assets, net of spread:
//
//	truncate15(sourcePrice / destPrice * 10^(destScale-sourceScale) * (1-spread))
//
// The scale shift and spread are exact, so the division is the only
// inexact step. Its quotient is cut toward zero past the last kept digit.
func deriveRate(sourcePrice, destPrice decimal.Decimal, sourceScale, destScale int, spread decimal.Decimal) (decimal.Decimal, error) {
	if destPrice.IsZero() {
		return decimal.Zero, ErrZeroPrice
	}

	amount := sourcePrice.
		Shift(int32(destScale - sourceScale)).
		Mul(one.Sub(spread))

	rate, _ := amount.QuoRem(destPrice, divisionPlaces(amount, destPrice))

	return truncateSignificant(rate, significantDigits), nil
}

// divisionPlaces returns enough decimal places for a/b
// to carry every significant digit kept in the rate
func divisionPlaces(a, b decimal.Decimal) int32 {
	// a/b > 10^(leadingDigit(a)-leadingDigit(b)-1), one guard digit
	places := leadingDigit(b) - leadingDigit(a) + significantDigits + 1

	return int32(max(places, minDivisionPlaces))
}

// truncateSignificant keeps the first n significant digits
// of d and drops the rest, rounding toward zero.
func truncateSignificant(d decimal.Decimal, n int) decimal.Decimal {
	if d.IsZero() {
		return d
	}

	return d.RoundDown(int32(n - leadingDigit(d) - 1))
}

// leadingDigit returns the power of ten
// of the most significant digit of d
func leadingDigit(d decimal.Decimal) int {
	digits := len(new(big.Int).Abs(d.Coefficient()).String())

	return digits + int(d.Exponent()) - 1
}
