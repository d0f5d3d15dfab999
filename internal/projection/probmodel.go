package projection

import (
	"fmt"
	"strings"

	"nba-props-engine/internal/mathutil"
	"nba-props-engine/internal/names"
)

// MinutesProfile is one probabilistic minutes estimate for a player, keyed
// either to a specific event+market or to the player alone.
type MinutesProfile struct {
	MinutesP50      *float64 `json:"minutes_p50"`
	MinutesP10      *float64 `json:"minutes_p10"`
	MinutesP90      *float64 `json:"minutes_p90"`
	PActive         *float64 `json:"p_active"`
	ConfidenceScore *float64 `json:"confidence_score"`
}

// Band returns the p10..p90 minutes band width when both quantiles are known.
func (p MinutesProfile) Band() *float64 {
	if p.MinutesP10 == nil || p.MinutesP90 == nil || *p.MinutesP90 < *p.MinutesP10 {
		return nil
	}
	band := mathutil.RoundTo(*p.MinutesP90-*p.MinutesP10, 6)
	return &band
}

// MinutesModel holds probabilistic minutes profiles. Exact entries are keyed
// "event|player|market" with the player name normalized; Player entries are
// keyed by normalized player name and apply to any event.
type MinutesModel struct {
	Exact  map[string]MinutesProfile `json:"exact"`
	Player map[string]MinutesProfile `json:"player"`
}

// ExactKey builds the exact-lookup key for an event/player/market triple.
func ExactKey(eventID, player, market string) string {
	return fmt.Sprintf("%s|%s|%s", eventID, names.Person(player), strings.ToLower(strings.TrimSpace(market)))
}

// Lookup resolves the profile for a line, preferring an exact event+market
// entry over the per-player fallback.
func (m *MinutesModel) Lookup(eventID, player, market string) (MinutesProfile, bool) {
	if m == nil {
		return MinutesProfile{}, false
	}
	playerNorm := names.Person(player)
	if playerNorm == "" {
		return MinutesProfile{}, false
	}
	if profile, ok := m.Exact[ExactKey(eventID, player, market)]; ok {
		return profile, true
	}
	if profile, ok := m.Player[playerNorm]; ok {
		return profile, true
	}
	return MinutesProfile{}, false
}

// marketMinutesWeight extends the per-market minutes weights with the combo
// markets the probabilistic model covers.
func marketMinutesWeight(market string) float64 {
	switch market {
	case "player_points_rebounds":
		return 0.008
	case "player_points_assists":
		return 0.008
	case "player_rebounds_assists":
		return 0.007
	}
	return weightFor(sideMinutesWeights, market, 0.007)
}

// MinutesProbAdjustmentOver blends a probabilistic minutes profile into an
// over-side probability delta. The delta scales with the profile's
// confidence and is clamped to +/-0.08; unknown minutes contribute nothing.
func MinutesProbAdjustmentOver(market string, projectedMinutes *float64, profile MinutesProfile) float64 {
	if projectedMinutes == nil || profile.MinutesP50 == nil {
		return 0.0
	}
	minutesDelta := (*profile.MinutesP50 - *projectedMinutes) * marketMinutesWeight(market) * 0.75
	pActive := 1.0
	if profile.PActive != nil {
		pActive = *profile.PActive
	}
	activePenalty := (pActive - 1.0) * 0.2
	confidence := 0.0
	if profile.ConfidenceScore != nil {
		confidence = mathutil.Clamp(*profile.ConfidenceScore, 0.0, 1.0)
	}
	scale := confidence
	if scale < 0.1 {
		scale = 0.1
	}
	return mathutil.Clamp((minutesDelta+activePenalty)*scale, -0.08, 0.08)
}
