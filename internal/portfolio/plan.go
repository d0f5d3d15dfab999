package portfolio

import (
	"fmt"
	"sort"
	"strings"
)

// PlanSchemaVersion is the execution-plan artifact version downstream
// tooling asserts on.
const PlanSchemaVersion = 1

// PlanRow is one line of the execution-plan artifact. Selected rows carry a
// positive rank and no portfolio reason; excluded rows carry a reason and no
// rank.
type PlanRow struct {
	Rank            int      `json:"rank,omitempty"`
	EventID         string   `json:"event_id"`
	Market          string   `json:"market"`
	Player          string   `json:"player"`
	Side            string   `json:"side"`
	Point           float64  `json:"point"`
	Book            string   `json:"book"`
	Price           *int     `json:"price"`
	BestEV          *float64 `json:"best_ev"`
	EVLow           *float64 `json:"ev_low"`
	QualityScore    *float64 `json:"quality_score"`
	PlayToAmerican  *int     `json:"play_to_american"`
	PortfolioReason string   `json:"portfolio_reason,omitempty"`
}

// PlanCounts summarizes the plan by disposition.
type PlanCounts struct {
	Eligible int `json:"eligible"`
	Selected int `json:"selected"`
	Excluded int `json:"excluded"`
}

// Plan is the execution-plan artifact attached to a strategy report.
type Plan struct {
	SchemaVersion        int            `json:"schema_version"`
	SnapshotID           string         `json:"snapshot_id"`
	GeneratedAtUTC       string         `json:"generated_at_utc"`
	Constraints          Constraints    `json:"constraints"`
	Counts               PlanCounts     `json:"counts"`
	Selected             []PlanRow      `json:"selected"`
	Excluded             []PlanRow      `json:"excluded"`
	ExclusionReasonCount map[string]int `json:"exclusion_reason_counts"`
}

// ValidatePlan checks the plan invariants and returns a sorted, deduplicated
// list of violation codes. An empty slice means the plan is valid.
func ValidatePlan(plan Plan) []string {
	seen := map[string]bool{}
	add := func(code string) {
		seen[code] = true
	}

	var missing []string
	if plan.SnapshotID == "" {
		missing = append(missing, "snapshot_id")
	}
	if plan.GeneratedAtUTC == "" {
		missing = append(missing, "generated_at_utc")
	}
	if len(missing) > 0 {
		add("missing_keys:" + strings.Join(missing, ","))
	}
	if plan.SchemaVersion != PlanSchemaVersion {
		add(fmt.Sprintf("invalid_schema_version:%d", plan.SchemaVersion))
	}

	if plan.Constraints.MaxPicks > 0 && len(plan.Selected) > plan.Constraints.MaxPicks {
		add("selected_exceeds_max_picks")
	}
	if plan.Counts.Selected != len(plan.Selected) {
		add("selected_count_mismatch")
	}
	if plan.Counts.Excluded != len(plan.Excluded) {
		add("excluded_count_mismatch")
	}

	ranks := map[int]int{}
	playerCounts := map[string]int{}
	gameCounts := map[string]int{}
	for _, row := range plan.Selected {
		if row.Rank <= 0 {
			add("selected_rank_missing")
		} else {
			ranks[row.Rank]++
		}
		if row.PortfolioReason != "" {
			add("selected_has_portfolio_reason")
		}
		if row.Player != "" {
			playerCounts[row.Player]++
		}
		if row.EventID != "" {
			gameCounts[row.EventID]++
		}
	}
	for _, count := range ranks {
		if count > 1 {
			add("selected_rank_duplicate")
			break
		}
	}
	if plan.Constraints.MaxPerPlayer > 0 {
		for _, count := range playerCounts {
			if count > plan.Constraints.MaxPerPlayer {
				add("selected_exceeds_player_cap")
				break
			}
		}
	}
	if plan.Constraints.MaxPerGame > 0 {
		for _, count := range gameCounts {
			if count > plan.Constraints.MaxPerGame {
				add("selected_exceeds_game_cap")
				break
			}
		}
	}
	for _, row := range plan.Excluded {
		if row.PortfolioReason == "" {
			add("excluded_missing_portfolio_reason")
			break
		}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// AssertPlan returns an error naming every violation, or nil when the plan
// satisfies the contract.
func AssertPlan(plan Plan) error {
	if codes := ValidatePlan(plan); len(codes) > 0 {
		return fmt.Errorf("execution plan contract violated: %s", strings.Join(codes, "; "))
	}
	return nil
}
