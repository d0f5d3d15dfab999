// Package projection provides deterministic minutes/usage projections and
// the probability adjustments layered on top of fair market prices.
package projection

import "nba-props-engine/internal/mathutil"

// StatusCounts tallies players by injury status for one team.
type StatusCounts map[string]int

// OutLike returns the number of players ruled out for the game or season.
func (c StatusCounts) OutLike() int {
	return c["out"] + c["out_for_season"]
}

// MinutesUsage is the v0 deterministic minutes/usage projection for one line.
type MinutesUsage struct {
	BaselineMinutes  float64 `json:"baseline_minutes"`
	ProjectedMinutes float64 `json:"projected_minutes"`
	MinutesDelta     float64 `json:"minutes_delta"`
	UsageDelta       float64 `json:"usage_delta"`
}

var baselineMinutesByMarket = map[string]float64{
	"player_points":                  31.0,
	"player_rebounds":                30.0,
	"player_assists":                 31.0,
	"player_threes":                  30.0,
	"player_points_rebounds_assists": 32.0,
}

// MinutesUsageV0 projects minutes and usage from injury/roster context and
// the game spread. spreadAbs is the absolute point spread when known.
func MinutesUsageV0(market, injuryStatus, rosterStatus string, teammates StatusCounts, spreadAbs *float64) MinutesUsage {
	baseline, ok := baselineMinutesByMarket[market]
	if !ok {
		baseline = 30.0
	}
	projected := baseline

	out := float64(teammates.OutLike())
	doubtful := float64(teammates["doubtful"])
	boost := out*1.1 + doubtful*0.5
	if boost > 4.0 {
		boost = 4.0
	}
	projected += boost

	switch injuryStatus {
	case "doubtful":
		projected -= 6.0
	case "questionable":
		projected -= 3.0
	case "day_to_day":
		projected -= 2.0
	case "probable":
		projected -= 0.5
	}

	if rosterStatus == "unknown_roster" || rosterStatus == "unknown_event" {
		projected -= 1.5
	}

	if spreadAbs != nil && *spreadAbs >= 8.0 {
		projected -= 1.0
	}
	if spreadAbs != nil && *spreadAbs >= 12.0 {
		projected -= 1.0
	}

	projected = mathutil.Clamp(projected, 10.0, 40.0)

	usage := mathutil.Clamp(out*0.012+doubtful*0.006, -0.08, 0.09)
	if injuryStatus == "questionable" || injuryStatus == "doubtful" {
		usage -= 0.01
	}

	return MinutesUsage{
		BaselineMinutes:  mathutil.RoundTo(baseline, 2),
		ProjectedMinutes: mathutil.RoundTo(projected, 2),
		MinutesDelta:     mathutil.RoundTo(projected-baseline, 2),
		UsageDelta:       mathutil.RoundTo(usage, 4),
	}
}

var sideMinutesWeights = map[string]float64{
	"player_points":                  0.008,
	"player_rebounds":                0.007,
	"player_assists":                 0.008,
	"player_threes":                  0.006,
	"player_points_rebounds_assists": 0.009,
	"player_turnovers":               0.005,
	"player_blocks":                  0.004,
	"player_steals":                  0.004,
	"player_blocks_steals":           0.004,
}

var sideUsageWeights = map[string]float64{
	"player_points":                  0.65,
	"player_rebounds":                0.35,
	"player_assists":                 0.45,
	"player_threes":                  0.5,
	"player_points_rebounds_assists": 0.75,
	"player_turnovers":               0.4,
	"player_blocks":                  0.2,
	"player_steals":                  0.2,
	"player_blocks_steals":           0.2,
}

var sideOpponentWeights = map[string]float64{
	"player_points":                  0.006,
	"player_rebounds":                0.004,
	"player_assists":                 0.004,
	"player_threes":                  0.003,
	"player_points_rebounds_assists": 0.007,
	"player_turnovers":               -0.005,
	"player_blocks":                  -0.003,
	"player_steals":                  -0.003,
	"player_blocks_steals":           -0.003,
}

func weightFor(table map[string]float64, market string, fallback float64) float64 {
	if w, ok := table[market]; ok {
		return w
	}
	return fallback
}

// MarketSideAdjustment converts a minutes/usage projection plus opponent
// absences into a probability delta for the over side, clamped to +/-0.12.
func MarketSideAdjustment(market string, proj MinutesUsage, opponents StatusCounts) float64 {
	delta := proj.MinutesDelta*weightFor(sideMinutesWeights, market, 0.007) +
		proj.UsageDelta*weightFor(sideUsageWeights, market, 0.4)
	delta += float64(opponents.OutLike()) * weightFor(sideOpponentWeights, market, 0.003)
	return mathutil.Clamp(delta, -0.12, 0.12)
}

// ProbabilityAdjustment maps injury/roster context onto an additive
// probability delta for the over side. A player confirmed out (or off the
// roster) gets a -0.49 override that forces the modeled probability to the
// floor regardless of other signals.
func ProbabilityAdjustment(injuryStatus, rosterStatus string, teammates, opponents StatusCounts, spreadAbs *float64) float64 {
	if rosterStatus == "inactive" || rosterStatus == "not_on_roster" {
		return -0.49
	}
	if injuryStatus == "out" || injuryStatus == "out_for_season" {
		return -0.49
	}

	adjustment := 0.0
	switch injuryStatus {
	case "doubtful":
		adjustment -= 0.12
	case "questionable":
		adjustment -= 0.06
	case "day_to_day":
		adjustment -= 0.04
	case "probable":
		adjustment -= 0.02
	}

	teammateBoost := float64(teammates["out"])*0.015 +
		float64(teammates["out_for_season"])*0.015 +
		float64(teammates["doubtful"])*0.01 +
		float64(teammates["questionable"])*0.005
	opponentBoost := float64(opponents["out"])*0.008 +
		float64(opponents["out_for_season"])*0.008 +
		float64(opponents["doubtful"])*0.005
	if teammateBoost > 0.05 {
		teammateBoost = 0.05
	}
	if opponentBoost > 0.03 {
		opponentBoost = 0.03
	}
	adjustment += teammateBoost + opponentBoost

	if spreadAbs != nil && *spreadAbs >= 8.0 {
		adjustment -= 0.015
	}
	if spreadAbs != nil && *spreadAbs >= 12.0 {
		adjustment -= 0.01
	}
	return adjustment
}
