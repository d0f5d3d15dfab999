package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan() Plan {
	price := -110
	return Plan{
		SchemaVersion:  PlanSchemaVersion,
		SnapshotID:     "snap-001",
		GeneratedAtUTC: "2026-02-11T14:00:00Z",
		Constraints:    Constraints{MaxPicks: 2, MaxPerPlayer: 1, MaxPerGame: 2},
		Counts:         PlanCounts{Eligible: 2, Selected: 1, Excluded: 1},
		Selected: []PlanRow{
			{Rank: 1, EventID: "e1", Market: "points", Player: "a one", Side: "over", Point: 20.5, Book: "draftkings", Price: &price},
		},
		Excluded: []PlanRow{
			{EventID: "e2", Market: "assists", Player: "b two", Side: "under", Point: 6.5, PortfolioReason: ReasonDailyCap},
		},
		ExclusionReasonCount: map[string]int{ReasonDailyCap: 1},
	}
}

func TestValidatePlanClean(t *testing.T) {
	assert.Empty(t, ValidatePlan(validPlan()))
	require.NoError(t, AssertPlan(validPlan()))
}

func TestValidatePlanMissingKeysAndVersion(t *testing.T) {
	plan := validPlan()
	plan.SnapshotID = ""
	plan.GeneratedAtUTC = ""
	plan.SchemaVersion = 2
	codes := ValidatePlan(plan)
	assert.Contains(t, codes, "missing_keys:snapshot_id,generated_at_utc")
	assert.Contains(t, codes, "invalid_schema_version:2")
}

func TestValidatePlanCountMismatches(t *testing.T) {
	plan := validPlan()
	plan.Counts.Selected = 5
	plan.Counts.Excluded = 0
	codes := ValidatePlan(plan)
	assert.Contains(t, codes, "selected_count_mismatch")
	assert.Contains(t, codes, "excluded_count_mismatch")
}

func TestValidatePlanRankInvariants(t *testing.T) {
	plan := validPlan()
	plan.Constraints = Constraints{}
	plan.Selected = append(plan.Selected,
		PlanRow{Rank: 1, EventID: "e3", Player: "c three"},
		PlanRow{EventID: "e4", Player: "d four", PortfolioReason: ReasonGameCap},
	)
	plan.Counts.Selected = 3
	codes := ValidatePlan(plan)
	assert.Contains(t, codes, "selected_rank_duplicate")
	assert.Contains(t, codes, "selected_rank_missing")
	assert.Contains(t, codes, "selected_has_portfolio_reason")
}

func TestValidatePlanCapViolations(t *testing.T) {
	plan := validPlan()
	plan.Constraints = Constraints{MaxPicks: 1, MaxPerPlayer: 1, MaxPerGame: 1}
	plan.Selected = []PlanRow{
		{Rank: 1, EventID: "e1", Player: "a one"},
		{Rank: 2, EventID: "e1", Player: "a one"},
	}
	plan.Counts.Selected = 2
	codes := ValidatePlan(plan)
	assert.Contains(t, codes, "selected_exceeds_max_picks")
	assert.Contains(t, codes, "selected_exceeds_player_cap")
	assert.Contains(t, codes, "selected_exceeds_game_cap")
}

func TestValidatePlanExcludedReasonRequired(t *testing.T) {
	plan := validPlan()
	plan.Excluded[0].PortfolioReason = ""
	assert.Contains(t, ValidatePlan(plan), "excluded_missing_portfolio_reason")
	assert.Error(t, AssertPlan(plan))
}

func TestValidatePlanSortedDeduped(t *testing.T) {
	plan := validPlan()
	plan.SchemaVersion = 0
	plan.SnapshotID = ""
	codes := ValidatePlan(plan)
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
}
