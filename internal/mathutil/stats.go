package mathutil

import (
	"math"
	"sort"
)

// Clamp bounds value to [low, high].
func Clamp(value, low, high float64) float64 {
	return math.Max(low, math.Min(high, value))
}

// RoundTo rounds value to the given number of decimal places.
func RoundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

// Median returns the median of values, ok=false for an empty slice.
// The input is not modified.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	ordered := append([]float64(nil), values...)
	sort.Float64s(ordered)
	mid := len(ordered) / 2
	if len(ordered)%2 == 1 {
		return ordered[mid], true
	}
	return (ordered[mid-1] + ordered[mid]) / 2.0, true
}

// Quantile computes the linearly-interpolated q-quantile of an already
// sorted slice, matching the common "linear" interpolation convention.
func Quantile(sorted []float64, q float64) (float64, bool) {
	if len(sorted) == 0 {
		return 0, false
	}
	if q <= 0 {
		return sorted[0], true
	}
	if q >= 1 {
		return sorted[len(sorted)-1], true
	}
	pos := q * float64(len(sorted)-1)
	lower := int(pos)
	upper := lower + 1
	if upper > len(sorted)-1 {
		upper = len(sorted) - 1
	}
	if lower == upper {
		return sorted[lower], true
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1.0-frac) + sorted[upper]*frac, true
}

// IQR returns the interquartile range (Q3 - Q1) of values.
// The input is not modified.
func IQR(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	ordered := append([]float64(nil), values...)
	sort.Float64s(ordered)
	q1, _ := Quantile(ordered, 0.25)
	q3, _ := Quantile(ordered, 0.75)
	return q3 - q1, true
}
