// Package settlement grades backtest seed rows against fetched box-score
// results. Grading is a pure transformation: the same seed rows and results
// payload always produce the same graded output.
package settlement

import (
	"strings"

	"nba-props-engine/internal/names"
	"nba-props-engine/internal/pricing"
)

// Results are the terminal dispositions for one grading pass. Pending rows
// are re-evaluated on the next pass until the game goes final.
const (
	ResultWin        = "win"
	ResultLoss       = "loss"
	ResultPush       = "push"
	ResultPending    = "pending"
	ResultUnresolved = "unresolved"
)

// Reason codes attached to every graded row.
const (
	ReasonFinalSettled      = "final_settled"
	ReasonInProgressPending = "in_progress_pending"
	ReasonScheduledPending  = "scheduled_pending"
	ReasonGameNotFound      = "game_not_found"
	ReasonGameStatusUnknown = "game_status_unknown"
	ReasonUnsupportedMarket = "unsupported_market"
	ReasonUnsupportedSide   = "unsupported_side"
	ReasonLineMissing       = "line_missing"
	ReasonPlayerStatMissing = "player_stat_missing"
)

// SeedRow is one persisted pick awaiting settlement.
type SeedRow struct {
	TicketKey    string   `json:"ticket_key"`
	Day          string   `json:"day"`
	SnapshotID   string   `json:"snapshot_id"`
	StrategyID   string   `json:"strategy_id"`
	EventID      string   `json:"event_id"`
	HomeTeam     string   `json:"home_team"`
	AwayTeam     string   `json:"away_team"`
	Player       string   `json:"player"`
	Market       string   `json:"market"`
	Point        *float64 `json:"point"`
	Side         string   `json:"side"`
	Book         string   `json:"book"`
	Price        int      `json:"price"`
	ModelPHit    *float64 `json:"model_p_hit,omitempty"`
	Result       string   `json:"result"`
	ResultReason string   `json:"result_reason,omitempty"`
	ActualValue  *float64 `json:"actual_value,omitempty"`
}

// PlayerLine is one player's box score within a game result.
type PlayerLine struct {
	Name       string             `json:"name"`
	Statistics map[string]float64 `json:"statistics"`
}

// GameResult is one game from the results payload.
type GameResult struct {
	GameID         string                `json:"game_id"`
	HomeTeam       string                `json:"home_team"`
	AwayTeam       string                `json:"away_team"`
	GameStatus     string                `json:"game_status"`
	GameStatusText string                `json:"game_status_text,omitempty"`
	Players        map[string]PlayerLine `json:"players"`
}

// ResultsPayload is the collaborator contract for one results fetch.
type ResultsPayload struct {
	Status string       `json:"status"`
	Games  []GameResult `json:"games"`
	Errors []string     `json:"errors,omitempty"`
}

// Box-score stat keys as the results feed reports them.
const (
	statPoints   = "points"
	statRebounds = "reboundsTotal"
	statAssists  = "assists"
	statThrees   = "threePointersMade"
)

var marketStatKeys = map[string][]string{
	"player_points":                  {statPoints},
	"player_rebounds":                {statRebounds},
	"player_assists":                 {statAssists},
	"player_threes":                  {statThrees},
	"player_points_rebounds_assists": {statPoints, statRebounds, statAssists},
}

// SupportedMarket reports whether the statistics extractor can grade the
// market.
func SupportedMarket(market string) bool {
	_, ok := marketStatKeys[strings.ToLower(strings.TrimSpace(market))]
	return ok
}

// StatForMarket extracts the graded statistic for one market from a box
// score, summing component stats for combo markets. Returns false when any
// required component is absent.
func StatForMarket(market string, statistics map[string]float64) (float64, bool) {
	keys, ok := marketStatKeys[strings.ToLower(strings.TrimSpace(market))]
	if !ok || statistics == nil {
		return 0, false
	}
	total := 0.0
	for _, key := range keys {
		value, present := statistics[key]
		if !present {
			return 0, false
		}
		total += value
	}
	return total, true
}

type gameKey struct {
	home, away string
}

// GameIndex resolves seed rows to games by canonical team names, accepting
// swapped home/away attribution from the feed.
type GameIndex struct {
	byTeams map[gameKey]*GameResult
}

// NewGameIndex builds the lookup from a results payload.
func NewGameIndex(payload *ResultsPayload) *GameIndex {
	index := &GameIndex{byTeams: map[gameKey]*GameResult{}}
	if payload == nil {
		return index
	}
	for i := range payload.Games {
		game := &payload.Games[i]
		home := names.CanonicalTeam(game.HomeTeam)
		away := names.CanonicalTeam(game.AwayTeam)
		if home == "" || away == "" {
			continue
		}
		index.byTeams[gameKey{home, away}] = game
	}
	return index
}

// Find returns the game for a home/away pairing, trying the swapped order
// before giving up.
func (g *GameIndex) Find(homeTeam, awayTeam string) (*GameResult, bool) {
	home := names.CanonicalTeam(homeTeam)
	away := names.CanonicalTeam(awayTeam)
	if game, ok := g.byTeams[gameKey{home, away}]; ok {
		return game, true
	}
	if game, ok := g.byTeams[gameKey{away, home}]; ok {
		return game, true
	}
	return nil, false
}

func findPlayerLine(game *GameResult, player string) (PlayerLine, bool) {
	targets := map[string]bool{}
	for _, alias := range names.Aliases(player) {
		targets[alias] = true
	}
	if line, ok := game.Players[names.Person(player)]; ok {
		return line, true
	}
	for key, line := range game.Players {
		if targets[names.Person(key)] || targets[names.Person(line.Name)] {
			return line, true
		}
	}
	return PlayerLine{}, false
}

func gradeFinal(side string, actual, point float64) (string, bool) {
	if actual == point {
		return ResultPush, true
	}
	switch pricing.ParseSide(side) {
	case "over":
		if actual > point {
			return ResultWin, true
		}
		return ResultLoss, true
	case "under":
		if actual < point {
			return ResultWin, true
		}
		return ResultLoss, true
	}
	return "", false
}

// GradeRow settles one seed row against the game index. The returned row is
// a copy with Result, ResultReason, and ActualValue populated; the input is
// never mutated.
//
// The game comes first: a ticket for an unlocatable or unfinished game stays
// game_not_found or pending even when its market or side is malformed, so
// the morning re-run gets another look at it.
func GradeRow(row SeedRow, index *GameIndex) SeedRow {
	graded := row
	graded.ActualValue = nil

	game, ok := index.Find(row.HomeTeam, row.AwayTeam)
	if !ok {
		graded.Result, graded.ResultReason = ResultUnresolved, ReasonGameNotFound
		return graded
	}

	switch strings.ToLower(strings.TrimSpace(game.GameStatus)) {
	case "final":
	case "in_progress", "live", "halftime":
		graded.Result, graded.ResultReason = ResultPending, ReasonInProgressPending
		return graded
	case "scheduled", "pregame":
		graded.Result, graded.ResultReason = ResultPending, ReasonScheduledPending
		return graded
	default:
		graded.Result, graded.ResultReason = ResultUnresolved, ReasonGameStatusUnknown
		return graded
	}

	if !SupportedMarket(row.Market) {
		graded.Result, graded.ResultReason = ResultUnresolved, ReasonUnsupportedMarket
		return graded
	}
	if pricing.ParseSide(row.Side) == "" {
		graded.Result, graded.ResultReason = ResultUnresolved, ReasonUnsupportedSide
		return graded
	}
	if row.Point == nil {
		graded.Result, graded.ResultReason = ResultUnresolved, ReasonLineMissing
		return graded
	}

	line, ok := findPlayerLine(game, row.Player)
	if !ok {
		graded.Result, graded.ResultReason = ResultUnresolved, ReasonPlayerStatMissing
		return graded
	}
	actual, ok := StatForMarket(row.Market, line.Statistics)
	if !ok {
		graded.Result, graded.ResultReason = ResultUnresolved, ReasonPlayerStatMissing
		return graded
	}

	result, ok := gradeFinal(row.Side, actual, *row.Point)
	if !ok {
		graded.Result, graded.ResultReason = ResultUnresolved, ReasonUnsupportedSide
		return graded
	}
	graded.Result = result
	graded.ResultReason = ReasonFinalSettled
	graded.ActualValue = &actual
	return graded
}
