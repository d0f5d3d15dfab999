package pricing

import (
	"math"
	"testing"
)

func TestResolveBaselineProvenance(t *testing.T) {
	reference := ReferenceEstimate{POver: fptr(0.53), Hold: fptr(0.04), Method: "interpolated", PointsUsed: 2}

	t.Run("exact median wins", func(t *testing.T) {
		got := ResolveBaseline(BaselineInputs{
			BaselineMethod:   "median_book",
			BaselineFallback: "best_sides",
			POverFairBest:    fptr(0.5),
			PUnderFairBest:   fptr(0.5),
			HoldBest:         fptr(0.05),
			POverBookMedian:  fptr(0.54),
			HoldBookMedian:   fptr(0.03),
			Reference:        reference,
		})

		if got.BaselineUsed != "median_book" || got.ReferenceLineMethod != "exact" || got.LineSource != "exact_point_pairs" {
			t.Fatalf("provenance = %s/%s/%s", got.BaselineUsed, got.ReferenceLineMethod, got.LineSource)
		}
		if *got.POverFair != 0.54 || math.Abs(*got.PUnderFair-0.46) > 1e-9 || *got.Hold != 0.03 {
			t.Errorf("values = %v/%v/%v", *got.POverFair, *got.PUnderFair, *got.Hold)
		}
	})

	t.Run("reference curve second", func(t *testing.T) {
		got := ResolveBaseline(BaselineInputs{
			BaselineMethod:   "median_book",
			BaselineFallback: "best_sides",
			POverFairBest:    fptr(0.5),
			PUnderFairBest:   fptr(0.5),
			HoldBest:         fptr(0.05),
			Reference:        reference,
		})

		if got.BaselineUsed != "median_book_interpolated" || got.LineSource != "reference_curve" {
			t.Fatalf("provenance = %s/%s", got.BaselineUsed, got.LineSource)
		}
		if *got.POverFair != 0.53 || math.Abs(*got.PUnderFair-0.47) > 1e-9 {
			t.Errorf("values = %v/%v", *got.POverFair, *got.PUnderFair)
		}
	})

	t.Run("fallback to best sides", func(t *testing.T) {
		got := ResolveBaseline(BaselineInputs{
			BaselineMethod:   "median_book",
			BaselineFallback: "best_sides",
			POverFairBest:    fptr(0.51),
			PUnderFairBest:   fptr(0.49),
			HoldBest:         fptr(0.05),
			Reference:        ReferenceEstimate{Method: "missing"},
		})

		if got.BaselineUsed != "best_sides_fallback" || got.LineSource != "best_sides" {
			t.Fatalf("provenance = %s/%s", got.BaselineUsed, got.LineSource)
		}
		if *got.POverFair != 0.51 {
			t.Errorf("p_over_fair = %v", *got.POverFair)
		}
	})

	t.Run("missing when nothing resolves", func(t *testing.T) {
		got := ResolveBaseline(BaselineInputs{
			BaselineMethod:   "median_book",
			BaselineFallback: "none",
			POverFairBest:    fptr(0.5),
			PUnderFairBest:   fptr(0.5),
			HoldBest:         fptr(0.05),
			Reference:        ReferenceEstimate{Method: "missing"},
		})

		if got.BaselineUsed != "missing" || got.LineSource != "missing" {
			t.Fatalf("provenance = %s/%s", got.BaselineUsed, got.LineSource)
		}
		if got.POverFair != nil || got.PUnderFair != nil || got.Hold != nil {
			t.Errorf("missing baseline should carry no values: %+v", got)
		}
	})
}

// Whenever a baseline resolves, the pair must be exactly complementary.
func TestResolveBaselineComplement(t *testing.T) {
	cases := []BaselineInputs{
		{BaselineMethod: "median_book", POverBookMedian: fptr(0.61), HoldBookMedian: fptr(0.05)},
		{BaselineMethod: "median_book", Reference: ReferenceEstimate{POver: fptr(0.47), Hold: fptr(0.04), Method: "clamped_low"}},
	}

	for _, in := range cases {
		got := ResolveBaseline(in)
		if got.POverFair == nil || got.PUnderFair == nil {
			t.Fatalf("expected resolved baseline, got %+v", got)
		}
		if sum := *got.POverFair + *got.PUnderFair; sum != 1.0 {
			t.Errorf("p_over + p_under = %v, want exactly 1.0", sum)
		}
	}
}
