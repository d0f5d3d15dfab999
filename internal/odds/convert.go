package odds

import "math"

// ImpliedFromAmerican converts American odds to implied probability.
// Example: -150 → 0.6 (60%), +150 → 0.4 (40%)
// A zero price carries no information; ok is false.
func ImpliedFromAmerican(price int) (float64, bool) {
	if price == 0 {
		return 0, false
	}

	if price > 0 {
		// Underdog: probability = 100 / (price + 100)
		return 100.0 / (float64(price) + 100.0), true
	}
	// Favorite: probability = |price| / (|price| + 100)
	abs := math.Abs(float64(price))
	return abs / (abs + 100.0), true
}

// AmericanToDecimal converts American odds to decimal odds.
// Example: -150 → 1.667, +150 → 2.5
func AmericanToDecimal(price int) (float64, bool) {
	if price == 0 {
		return 0, false
	}
	if price > 0 {
		return 1.0 + (float64(price) / 100.0), true
	}
	return 1.0 + (100.0 / math.Abs(float64(price))), true
}

// DecimalToAmerican converts decimal odds back to the nearest American price.
// Decimal odds at or below 1.0 are invalid. The 2.0 boundary maps to the
// positive branch (+100).
func DecimalToAmerican(decimalOdds float64) (int, bool) {
	if decimalOdds <= 1.0 || math.IsNaN(decimalOdds) || math.IsInf(decimalOdds, 0) {
		return 0, false
	}
	if decimalOdds >= 2.0 {
		return int(math.Round((decimalOdds - 1.0) * 100.0)), true
	}
	return int(math.Round(-100.0 / (decimalOdds - 1.0))), true
}

// NormalizeProbPair removes the vig from an over/under implied-probability
// pair by proportional normalization, so the outputs sum to 1.0.
// A non-positive total degrades to (0.5, 0.5) instead of dividing by zero.
func NormalizeProbPair(overProb, underProb float64) (float64, float64) {
	total := overProb + underProb
	if total <= 0 {
		return 0.5, 0.5
	}
	return overProb / total, underProb / total
}

// Hold is the bookmaker edge built into a two-way market: the sum of the raw
// implied probabilities minus 1.0.
func Hold(overProb, underProb float64) float64 {
	return (overProb + underProb) - 1.0
}
