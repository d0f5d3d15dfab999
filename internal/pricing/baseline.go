package pricing

// BaselineSelection is the resolved fair-probability baseline for one line:
// which policy produced it and where the line estimate came from. POverFair
// and PUnderFair are complementary whenever present.
type BaselineSelection struct {
	POverFair           *float64
	PUnderFair          *float64
	Hold                *float64
	BaselineUsed        string
	ReferenceLineMethod string
	LineSource          string
}

// BaselineInputs carries the candidates for baseline resolution: the
// best-sides de-vig values, the per-book median at the exact point, and the
// reference-curve estimate for the target point.
type BaselineInputs struct {
	BaselineMethod   string
	BaselineFallback string
	POverFairBest    *float64
	PUnderFairBest   *float64
	HoldBest         *float64
	POverBookMedian  *float64
	HoldBookMedian   *float64
	Reference        ReferenceEstimate
}

// LineSourceForBaseline maps baseline policy outcomes to stable line-source
// provenance labels.
func LineSourceForBaseline(baselineUsed string) string {
	switch baselineUsed {
	case "median_book":
		return "exact_point_pairs"
	case "median_book_interpolated":
		return "reference_curve"
	case "best_sides", "best_sides_fallback":
		return "best_sides"
	case "missing":
		return "missing"
	}
	return "unknown"
}

// ResolveBaseline picks the fair-probability baseline for one line.
// Under the "median_book" method the exact per-book median wins, then the
// reference-curve estimate, then the configured fallback; any other method
// keeps the best-sides values. The complement is always 1 - p_over exactly.
func ResolveBaseline(in BaselineInputs) BaselineSelection {
	pOverFair := in.POverFairBest
	pUnderFair := in.PUnderFairBest
	hold := in.HoldBest
	baselineUsed := "best_sides"
	referenceLineMethod := in.Reference.Method

	if in.BaselineMethod == "median_book" {
		switch {
		case in.POverBookMedian != nil && in.HoldBookMedian != nil:
			p := *in.POverBookMedian
			q := 1.0 - p
			pOverFair, pUnderFair = &p, &q
			hold = in.HoldBookMedian
			baselineUsed = "median_book"
			referenceLineMethod = "exact"
		case in.Reference.POver != nil:
			p := *in.Reference.POver
			q := 1.0 - p
			pOverFair, pUnderFair = &p, &q
			hold = in.Reference.Hold
			baselineUsed = "median_book_interpolated"
		case in.BaselineFallback == "best_sides":
			baselineUsed = "best_sides_fallback"
		default:
			pOverFair, pUnderFair, hold = nil, nil, nil
			baselineUsed = "missing"
		}
	}

	return BaselineSelection{
		POverFair:           pOverFair,
		PUnderFair:          pUnderFair,
		Hold:                hold,
		BaselineUsed:        baselineUsed,
		ReferenceLineMethod: referenceLineMethod,
		LineSource:          LineSourceForBaseline(baselineUsed),
	}
}
