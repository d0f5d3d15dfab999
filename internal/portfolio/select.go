// Package portfolio turns eligible strategy candidates into one
// deterministic daily ticket under hard exposure caps, and validates the
// resulting execution-plan artifact.
package portfolio

import (
	"fmt"
	"sort"

	"nba-props-engine/internal/mathutil"
	"nba-props-engine/internal/names"
)

// Exclusion reasons attached to eligible rows that did not make the ticket.
const (
	ReasonDailyCap  = "portfolio_cap_daily"
	ReasonPlayerCap = "portfolio_cap_player"
	ReasonGameCap   = "portfolio_cap_game"
)

// Ranking selects the primary ordering signal for the greedy pass.
type Ranking string

const (
	RankingDefault           Ranking = "default"
	RankingBestEV            Ranking = "best_ev"
	RankingEVLowQuality      Ranking = "ev_low_quality_weighted"
	RankingCalibratedEVLow   Ranking = "calibrated_ev_low"
	historicalPriorWeight            = 0.25
	calibrationBlendCeiling          = 0.3
)

// ValidRanking reports whether the ranking name is recognized.
func ValidRanking(r Ranking) bool {
	switch r {
	case RankingDefault, RankingBestEV, RankingEVLowQuality, RankingCalibratedEVLow:
		return true
	}
	return false
}

// Constraints are the hard caps for one daily ticket. A cap of zero means
// that dimension is unlimited.
type Constraints struct {
	MaxPicks     int `json:"max_picks"`
	MaxPerPlayer int `json:"max_per_player"`
	MaxPerGame   int `json:"max_per_game"`
}

// Entry is the selection view of one eligible candidate line.
type Entry struct {
	EventID               string
	Player                string
	Market                string
	Point                 float64
	Side                  string
	EVLow                 *float64
	EVLowCalibrated       *float64
	BestEV                *float64
	QualityScore          *float64
	QuoteAgeMinutes       *float64
	PriorDelta            float64
	CalibrationConfidence float64
}

// Decision records the portfolio outcome for one entry, in the original
// slice order.
type Decision struct {
	Selected bool
	Reason   string
	Rank     int // 1-based among selected rows, 0 otherwise
}

func primarySignal(entry Entry, ranking Ranking) float64 {
	priorTilt := entry.PriorDelta * historicalPriorWeight
	evLow := -1.0
	if entry.EVLow != nil {
		evLow = *entry.EVLow
	}
	switch ranking {
	case RankingBestEV:
		best := -1.0
		if entry.BestEV != nil {
			best = *entry.BestEV
		}
		return best + priorTilt
	case RankingCalibratedEVLow:
		confidence := mathutil.Clamp(entry.CalibrationConfidence, 0.0, 1.0)
		calibrated := evLow
		if entry.EVLowCalibrated != nil {
			calibrated = *entry.EVLowCalibrated
		}
		weight := calibrationBlendCeiling * confidence
		return (1.0-weight)*evLow + weight*calibrated + priorTilt
	case RankingEVLowQuality:
		quality := 0.0
		if entry.QualityScore != nil {
			quality = *entry.QualityScore
		}
		return evLow*(0.5+0.5*quality) + priorTilt
	}
	return evLow + priorTilt
}

func sortKeyLess(a, b Entry, ranking Ranking) bool {
	pa, pb := primarySignal(a, ranking), primarySignal(b, ranking)
	if pa != pb {
		return pa > pb
	}
	qa, qb := -1.0, -1.0
	if a.QualityScore != nil {
		qa = *a.QualityScore
	}
	if b.QualityScore != nil {
		qb = *b.QualityScore
	}
	if qa != qb {
		return qa > qb
	}
	ba, bb := -1.0, -1.0
	if a.BestEV != nil {
		ba = *a.BestEV
	}
	if b.BestEV != nil {
		bb = *b.BestEV
	}
	if ba != bb {
		return ba > bb
	}
	const maxAge = 1_000_000.0
	aa, ab := maxAge, maxAge
	if a.QuoteAgeMinutes != nil {
		aa = *a.QuoteAgeMinutes
	}
	if b.QuoteAgeMinutes != nil {
		ab = *b.QuoteAgeMinutes
	}
	if aa != ab {
		return aa < ab
	}
	if a.EventID != b.EventID {
		return a.EventID < b.EventID
	}
	na, nb := names.Person(a.Player), names.Person(b.Player)
	if na != nb {
		return na < nb
	}
	if a.Market != b.Market {
		return a.Market < b.Market
	}
	if a.Point != b.Point {
		return a.Point < b.Point
	}
	return a.Side < b.Side
}

// Select runs the deterministic greedy pass: entries are ranked, then taken
// in order unless a cap blocks them. Decisions line up index-for-index with
// the input slice. Caps of zero are unlimited; the daily cap is attributed
// before the player cap, which beats the game cap.
func Select(entries []Entry, constraints Constraints, ranking Ranking) ([]Decision, error) {
	if !ValidRanking(ranking) {
		return nil, fmt.Errorf("invalid portfolio ranking: %s", ranking)
	}
	maxPicks := constraints.MaxPicks
	maxPerPlayer := constraints.MaxPerPlayer
	maxPerGame := constraints.MaxPerGame
	if maxPicks < 0 {
		maxPicks = 0
	}
	if maxPerPlayer < 0 {
		maxPerPlayer = 0
	}
	if maxPerGame < 0 {
		maxPerGame = 0
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sortKeyLess(entries[order[i]], entries[order[j]], ranking)
	})

	decisions := make([]Decision, len(entries))
	playerCounts := map[string]int{}
	gameCounts := map[string]int{}
	selected := 0
	for _, idx := range order {
		entry := entries[idx]
		playerKey := names.Person(entry.Player)
		reason := ""
		switch {
		case maxPicks > 0 && selected >= maxPicks:
			reason = ReasonDailyCap
		case maxPerPlayer > 0 && playerKey != "" && playerCounts[playerKey] >= maxPerPlayer:
			reason = ReasonPlayerCap
		case maxPerGame > 0 && entry.EventID != "" && gameCounts[entry.EventID] >= maxPerGame:
			reason = ReasonGameCap
		}
		if reason != "" {
			decisions[idx] = Decision{Reason: reason}
			continue
		}
		selected++
		decisions[idx] = Decision{Selected: true, Rank: selected}
		if playerKey != "" {
			playerCounts[playerKey]++
		}
		if entry.EventID != "" {
			gameCounts[entry.EventID]++
		}
	}
	return decisions, nil
}
