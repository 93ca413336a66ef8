package sanitizer

import "math"

// NormalizePrice rounds to cents. Negative input is returned untouched so a
// tiny negative never rounds up to zero; NaN and infinities become -1. Both
// are left for validation to reject.
func NormalizePrice(price float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return -1
	}
	if price < 0 {
		return price
	}
	rounded := math.Round(price*100) / 100
	if rounded == 0 {
		return 0
	}
	return rounded
}

// NormalizeDuration substitutes fallback only for an unset (zero) duration.
// Negative values pass through for validation to reject.
func NormalizeDuration(minutes, fallback int) int {
	if minutes == 0 {
		return fallback
	}
	return minutes
}
