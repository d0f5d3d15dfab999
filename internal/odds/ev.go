package odds

import "math"

// EVFromProbAndPrice computes the 1-unit expected value of a bet with hit
// probability prob at an American price.
// EV = p*(d-1) - (1-p) where d is the decimal odds.
// Probabilities outside (0,1) and invalid prices produce no estimate.
func EVFromProbAndPrice(prob float64, price int) (float64, bool) {
	if math.IsNaN(prob) || prob <= 0 || prob >= 1 {
		return 0, false
	}
	decimalOdds, ok := AmericanToDecimal(price)
	if !ok || decimalOdds <= 1.0 {
		return 0, false
	}
	return (prob * (decimalOdds - 1.0)) - (1.0 - prob), true
}

// KellyFraction computes the Kelly criterion stake fraction for a bet with
// hit probability prob at an American price, scaled by fraction
// (e.g. 0.25 for quarter Kelly).
// f* = (p*d - 1) / (d - 1), floored at 0 and capped at 1 before scaling.
func KellyFraction(prob float64, price int, fraction float64) float64 {
	decimalOdds, ok := AmericanToDecimal(price)
	if !ok || decimalOdds <= 1.0 || prob <= 0 || prob >= 1 {
		return 0
	}

	kelly := (prob*decimalOdds - 1.0) / (decimalOdds - 1.0)
	kelly = math.Max(0, kelly)
	kelly = math.Min(kelly, 1.0)

	return kelly * fraction
}
