package common

import (
	"math"

	"github.com/shopspring/decimal"
)

// NearlyEqual compares two non-negative distances with a relative tolerance.
// Path lengths summed in different orders differ in their last bits,
// so exact float comparison can't be used to detect ties.
func NearlyEqual(a, b float64) bool {
	if a == b {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

// DecimalToFixed rounds num to precision decimal places, half away from zero.
func DecimalToFixed(num float64, precision int) float64 {
	return decimal.NewFromFloat(num).Round(int32(precision)).InexactFloat64()
}
