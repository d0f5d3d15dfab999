package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMapInSample(t *testing.T) {
	rows := map[string][]ScoredOutcome{
		"s001": {
			{Day: "2026-02-01", Probability: 0.52, Won: true},
			{Day: "2026-02-01", Probability: 0.54, Won: false},
			{Day: "2026-02-02", Probability: 0.62, Won: true},
		},
	}
	m, err := BuildMap(rows, 0.05, "in_sample", "ds1")
	require.NoError(t, err)
	assert.Equal(t, MapSchemaVersion, m.SchemaVersion)

	payload := m.Strategies["s001"]
	assert.Equal(t, 3, payload.RowsScored)
	require.Len(t, payload.Bins, 2)
	assert.Equal(t, 0.5, payload.Bins[0].Low)
	assert.Equal(t, 0.55, payload.Bins[0].High)
	assert.Equal(t, 2, payload.Bins[0].Count)
	assert.InDelta(t, 0.53, payload.Bins[0].AvgP, 1e-9)
	assert.InDelta(t, 0.5, payload.Bins[0].HitRate, 1e-9)
	assert.Nil(t, payload.ByDay)
}

func TestBuildMapWalkForward(t *testing.T) {
	rows := map[string][]ScoredOutcome{
		"s010": {
			{Day: "2026-02-01", Probability: 0.55, Won: true},
			{Day: "2026-02-02", Probability: 0.56, Won: false},
			{Day: "2026-02-03", Probability: 0.57, Won: true},
		},
	}
	m, err := BuildMap(rows, 0.05, "walk_forward", "")
	require.NoError(t, err)
	payload := m.Strategies["s010"]
	require.Contains(t, payload.ByDay, "2026-02-01")
	require.Contains(t, payload.ByDay, "2026-02-03")

	// First day sees no history; later days only strictly earlier rows.
	assert.Equal(t, 0, payload.ByDay["2026-02-01"].RowsScored)
	assert.Equal(t, 2, payload.ByDay["2026-02-03"].RowsScored)

	bins := m.BinsFor("s010", "2026-02-03")
	require.Len(t, bins, 1)
	assert.Equal(t, 2, bins[0].Count)

	// Unknown day falls back to the full-sample bins.
	full := m.BinsFor("s010", "2026-03-01")
	require.Len(t, full, 1)
	assert.Equal(t, 3, full[0].Count)
}

func TestBuildMapRejectsBadInputs(t *testing.T) {
	_, err := BuildMap(nil, 0.05, "bogus", "")
	assert.Error(t, err)
	_, err = BuildMap(map[string][]ScoredOutcome{"s001": {{Day: "2026-02-01", Probability: 0.5, Won: true}}}, 0.6, "in_sample", "")
	assert.Error(t, err)
}

func TestCalibratedProbability(t *testing.T) {
	bins := []Bin{
		{Low: 0.5, High: 0.55, Count: 10, HitRate: 0.52},
		{Low: 0.95, High: 1.0, Count: 4, HitRate: 0.9},
	}
	hit, bin := CalibratedProbability(bins, 0.53)
	require.NotNil(t, bin)
	assert.InDelta(t, 0.52, hit, 1e-9)

	// 1.0 lands in the closed last bucket.
	hit, bin = CalibratedProbability(bins, 1.0)
	require.NotNil(t, bin)
	assert.InDelta(t, 0.9, hit, 1e-9)

	_, bin = CalibratedProbability(bins, 0.7)
	assert.Nil(t, bin)
}

func TestConfidenceTier(t *testing.T) {
	if tier := ConfidenceTier(nil, fptr(0.9), fptr(0.01)); tier != "unrated" {
		t.Errorf("tier = %q, want unrated", tier)
	}
	if tier := ConfidenceTier(fptr(0.6), fptr(0.8), fptr(0.03)); tier != "high" {
		t.Errorf("tier = %q, want high", tier)
	}
	if tier := ConfidenceTier(fptr(0.54), fptr(0.6), fptr(0.07)); tier != "medium" {
		t.Errorf("tier = %q, want medium", tier)
	}
	if tier := ConfidenceTier(fptr(0.51), fptr(0.9), fptr(0.01)); tier != "low" {
		t.Errorf("tier = %q, want low", tier)
	}
	if tier := ConfidenceTier(fptr(math.Inf(1)), nil, nil); tier != "low" {
		t.Errorf("tier with missing quality/uncertainty = %q, want low", tier)
	}
}
