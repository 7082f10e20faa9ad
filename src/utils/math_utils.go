package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// MinFloat returns the smaller of two floats.
func MinFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// RoundCurrency rounds a monetary amount to two decimal places using
// decimal arithmetic, so aggregated totals stay reproducible.
func RoundCurrency(val float64) float64 {
	rounded, _ := decimal.NewFromFloat(val).Round(2).Float64()
	return rounded
}

// FormatCurrency renders a monetary amount with exactly two decimals.
func FormatCurrency(val float64) string {
	return decimal.NewFromFloat(val).StringFixed(2)
}
