// Package utils holds small numeric helpers shared across packages.
package utils

import "math"

// RoundToDecimalPrecision rounds a quantity down to the given decimal
// precision. Rounding is always toward zero: rounding an order quantity up
// could exceed the account's buying power.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}
