package pricing

import "testing"

func TestBuildReferenceCurveEnforcesMonotoneProbability(t *testing.T) {
	points := []ReferencePoint{
		{Point: 20.5, POver: 0.56, Hold: fptr(0.05), Weight: 2.0},
		{Point: 21.5, POver: 0.60, Hold: fptr(0.05), Weight: 2.0},
		{Point: 22.5, POver: 0.52, Hold: fptr(0.04), Weight: 2.0},
	}

	curve := BuildReferenceCurve(points)

	if len(curve) != 3 {
		t.Fatalf("curve has %d points, want 3", len(curve))
	}
	for i := 1; i < len(curve); i++ {
		if curve[i-1].POver < curve[i].POver {
			t.Errorf("p_over increases at index %d: %.4f < %.4f", i, curve[i-1].POver, curve[i].POver)
		}
	}
}

func TestBuildReferenceCurveMonotoneForAnyInputOrder(t *testing.T) {
	points := []ReferencePoint{
		{Point: 25.5, POver: 0.62, Weight: 1.0},
		{Point: 19.5, POver: 0.44, Weight: 1.0},
		{Point: 22.5, POver: 0.80, Weight: 1.0},
		{Point: 21.5, POver: 0.30, Weight: 3.0},
	}

	curve := BuildReferenceCurve(points)

	for i := 1; i < len(curve); i++ {
		if curve[i].Point <= curve[i-1].Point {
			t.Errorf("points out of order at %d", i)
		}
		if curve[i-1].POver < curve[i].POver {
			t.Errorf("p_over increases at index %d", i)
		}
	}
}

func TestEstimateReferenceProbabilityInterpolates(t *testing.T) {
	points := []ReferencePoint{
		{Point: 20.5, POver: 0.58, Hold: fptr(0.055), Weight: 2.0},
		{Point: 24.5, POver: 0.46, Hold: fptr(0.06), Weight: 2.0},
	}

	estimate := EstimateReferenceProbability(points, 22.5)

	if estimate.Method != "interpolated" {
		t.Fatalf("method = %q, want interpolated", estimate.Method)
	}
	if estimate.PointsUsed != 2 {
		t.Errorf("points_used = %d, want 2", estimate.PointsUsed)
	}
	if estimate.POver == nil || *estimate.POver <= 0.50 || *estimate.POver >= 0.55 {
		t.Errorf("p_over = %v, want in (0.50, 0.55)", estimate.POver)
	}
	if estimate.Hold == nil {
		t.Error("hold is nil, want interpolated value")
	}
}

func TestEstimateReferenceProbabilityClampsOutsideRange(t *testing.T) {
	points := []ReferencePoint{
		{Point: 21.5, POver: 0.57, Hold: fptr(0.05), Weight: 1.0},
		{Point: 23.5, POver: 0.49, Hold: fptr(0.05), Weight: 1.0},
	}

	low := EstimateReferenceProbability(points, 19.5)
	high := EstimateReferenceProbability(points, 25.5)

	if low.Method != "clamped_low" {
		t.Errorf("low method = %q, want clamped_low", low.Method)
	}
	if high.Method != "clamped_high" {
		t.Errorf("high method = %q, want clamped_high", high.Method)
	}
	if low.POver == nil || high.POver == nil || *low.POver <= *high.POver {
		t.Errorf("clamped values not ordered: low=%v high=%v", low.POver, high.POver)
	}
}

func TestEstimateReferenceProbabilityThinCurveIsMissing(t *testing.T) {
	single := []ReferencePoint{{Point: 21.5, POver: 0.55, Weight: 1.0}}

	estimate := EstimateReferenceProbability(single, 21.5)

	if estimate.Method != "missing" {
		t.Fatalf("method = %q, want missing", estimate.Method)
	}
	if estimate.POver != nil || estimate.Hold != nil || estimate.PointsUsed != 0 {
		t.Errorf("missing estimate should carry no values: %+v", estimate)
	}
}
