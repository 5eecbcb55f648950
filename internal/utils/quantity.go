package utils

import "math"

// QuantityEpsilon is the tolerance used when comparing float quantities.
// Positions with an absolute quantity below this are considered flat.
const QuantityEpsilon = 1e-6

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// IsFlat reports whether a quantity is zero within QuantityEpsilon.
func IsFlat(quantity float64) bool {
	return math.Abs(quantity) < QuantityEpsilon
}

// Min returns the smaller of two float64 values.
func Min(a, b float64) float64 {
	if a < b {
		return a
	}

	return b
}
