package projection

import (
	"math"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestMinutesUsageV0Baselines(t *testing.T) {
	tests := []struct {
		market   string
		baseline float64
	}{
		{"player_points", 31.0},
		{"player_rebounds", 30.0},
		{"player_assists", 31.0},
		{"player_threes", 30.0},
		{"player_points_rebounds_assists", 32.0},
		{"player_turnovers", 30.0},
	}
	for _, tt := range tests {
		t.Run(tt.market, func(t *testing.T) {
			got := MinutesUsageV0(tt.market, "available", "active", StatusCounts{}, nil)
			if got.BaselineMinutes != tt.baseline {
				t.Errorf("baseline = %v, want %v", got.BaselineMinutes, tt.baseline)
			}
			if got.ProjectedMinutes != tt.baseline || got.MinutesDelta != 0 || got.UsageDelta != 0 {
				t.Errorf("healthy player should project at baseline, got %+v", got)
			}
		})
	}
}

func TestMinutesUsageV0QuestionableWithTeammatesOut(t *testing.T) {
	// Two teammates out and one doubtful boost minutes by 2.7; questionable
	// costs 3.0 and the 9-point spread another 1.0: 31 + 2.7 - 3 - 1 = 29.7.
	got := MinutesUsageV0(
		"player_points",
		"questionable",
		"active",
		StatusCounts{"out": 1, "out_for_season": 1, "doubtful": 1},
		fptr(9.0),
	)
	if got.BaselineMinutes != 31.0 {
		t.Fatalf("baseline = %v, want 31.0", got.BaselineMinutes)
	}
	if got.ProjectedMinutes != 29.7 {
		t.Errorf("projected = %v, want 29.7", got.ProjectedMinutes)
	}
	if got.MinutesDelta != -1.3 {
		t.Errorf("minutes_delta = %v, want -1.3", got.MinutesDelta)
	}
	// usage: 2*0.012 + 1*0.006 - 0.01 questionable penalty
	if got.UsageDelta != 0.02 {
		t.Errorf("usage_delta = %v, want 0.02", got.UsageDelta)
	}
}

func TestMinutesUsageV0TeammateBoostCapped(t *testing.T) {
	got := MinutesUsageV0("player_points", "available", "active", StatusCounts{"out": 10}, nil)
	if got.ProjectedMinutes != 35.0 {
		t.Errorf("projected = %v, want 35.0 (boost capped at 4)", got.ProjectedMinutes)
	}
	if got.UsageDelta != 0.09 {
		t.Errorf("usage_delta = %v, want 0.09 (clamped)", got.UsageDelta)
	}
}

func TestMinutesUsageV0Clamps(t *testing.T) {
	low := MinutesUsageV0("player_points", "doubtful", "unknown_roster", StatusCounts{}, fptr(14.0))
	// 31 - 6 - 1.5 - 1 - 1 = 21.5
	if low.ProjectedMinutes != 21.5 {
		t.Errorf("projected = %v, want 21.5", low.ProjectedMinutes)
	}
	if low.UsageDelta != -0.01 {
		t.Errorf("usage_delta = %v, want -0.01", low.UsageDelta)
	}
}

func TestMarketSideAdjustment(t *testing.T) {
	proj := MinutesUsage{MinutesDelta: -1.3, UsageDelta: 0.014}
	got := MarketSideAdjustment("player_points", proj, StatusCounts{"out": 1})
	want := -1.3*0.008 + 0.014*0.65 + 1*0.006
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("adjustment = %v, want %v", got, want)
	}
}

func TestMarketSideAdjustmentClamped(t *testing.T) {
	proj := MinutesUsage{MinutesDelta: 30.0, UsageDelta: 0.09}
	if got := MarketSideAdjustment("player_points_rebounds_assists", proj, StatusCounts{}); got != 0.12 {
		t.Errorf("adjustment = %v, want clamp at 0.12", got)
	}
	proj = MinutesUsage{MinutesDelta: -30.0, UsageDelta: -0.08}
	if got := MarketSideAdjustment("player_points_rebounds_assists", proj, StatusCounts{}); got != -0.12 {
		t.Errorf("adjustment = %v, want clamp at -0.12", got)
	}
}

func TestMarketSideAdjustmentDefaultWeights(t *testing.T) {
	proj := MinutesUsage{MinutesDelta: 1.0, UsageDelta: 0.01}
	got := MarketSideAdjustment("player_double_double", proj, StatusCounts{"out": 2})
	want := 1.0*0.007 + 0.01*0.4 + 2*0.003
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("adjustment = %v, want %v", got, want)
	}
}

func TestProbabilityAdjustmentHardOverrides(t *testing.T) {
	tests := []struct {
		name   string
		injury string
		roster string
	}{
		{"roster inactive", "available", "inactive"},
		{"not on roster", "available", "not_on_roster"},
		{"injury out", "out", "active"},
		{"out for season", "out_for_season", "active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProbabilityAdjustment(tt.injury, tt.roster, StatusCounts{"out": 3}, StatusCounts{"out": 3}, fptr(15.0))
			if got != -0.49 {
				t.Errorf("adjustment = %v, want -0.49", got)
			}
		})
	}
}

func TestProbabilityAdjustmentComposite(t *testing.T) {
	got := ProbabilityAdjustment(
		"questionable",
		"active",
		StatusCounts{"out": 1, "doubtful": 1},
		StatusCounts{"out": 1},
		fptr(9.0),
	)
	want := -0.06 + (0.015 + 0.01) + 0.008 - 0.015
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("adjustment = %v, want %v", got, want)
	}
}

func TestProbabilityAdjustmentBoostCaps(t *testing.T) {
	got := ProbabilityAdjustment("available", "active", StatusCounts{"out": 10}, StatusCounts{"out": 10}, nil)
	if math.Abs(got-(0.05+0.03)) > 1e-9 {
		t.Errorf("adjustment = %v, want 0.08 (both boosts capped)", got)
	}
}

func TestProbabilityAdjustmentSpreadTiers(t *testing.T) {
	if got := ProbabilityAdjustment("available", "active", StatusCounts{}, StatusCounts{}, fptr(8.0)); got != -0.015 {
		t.Errorf("spread 8 adjustment = %v, want -0.015", got)
	}
	if got := ProbabilityAdjustment("available", "active", StatusCounts{}, StatusCounts{}, fptr(12.0)); got != -0.025 {
		t.Errorf("spread 12 adjustment = %v, want -0.025", got)
	}
}
