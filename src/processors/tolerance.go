package processors

import "math"

// Tolerances for matching monetary and quantity values across repeated
// imports. These absorb floating-point and rounding noise introduced by
// upstream statement parsing; they are matching slop, not domain tolerance,
// and must stay exactly these values for duplicate decisions to be
// reproducible.
const (
	AmountEpsilon   = 0.01
	QuantityEpsilon = 0.0001
)

// WithinTolerance reports whether |a - b| <= epsilon.
func WithinTolerance(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
