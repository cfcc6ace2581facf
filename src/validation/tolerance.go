package validation

import (
	"math"

	"sectorsguard/src/model"
)

// Tolerance is the materiality band for a comparison: the larger of a share of
// the base and an absolute floor.
func Tolerance(base, rel, floor float64) float64 {
	return math.Max(math.Abs(base)*rel, floor)
}

// Exceeds reports whether the gap between actual and expected is beyond tolerance.
func Exceeds(actual, expected, tol float64) bool {
	return math.Abs(actual-expected) > tol
}

// SeverityForDeviation tiers a percentage deviation: 11 and above is an error,
// 5 and above a warning, anything smaller informational.
func SeverityForDeviation(pct float64) model.Severity {
	pct = math.Abs(pct)
	switch {
	case pct >= 11.0:
		return model.SeverityError
	case pct >= 5.0:
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

// PercentOf returns |diff| as a percentage of |base|. A zero base counts as 1.
func PercentOf(diff, base float64) float64 {
	if base == 0 {
		base = 1
	}
	return math.Abs(diff) / math.Abs(base) * 100.0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
