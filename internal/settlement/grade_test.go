package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func finalGame() GameResult {
	return GameResult{
		GameID:     "g1",
		HomeTeam:   "Boston Celtics",
		AwayTeam:   "Miami Heat",
		GameStatus: "final",
		Players: map[string]PlayerLine{
			"jaysontatum": {
				Name: "Jayson Tatum",
				Statistics: map[string]float64{
					"points":            31,
					"reboundsTotal":     8,
					"assists":           5,
					"threePointersMade": 4,
				},
			},
		},
	}
}

func seedRow(player, market, side string, point float64) SeedRow {
	return SeedRow{
		TicketKey: "t1",
		Day:       "2026-02-10",
		HomeTeam:  "Boston Celtics",
		AwayTeam:  "Miami Heat",
		Player:    player,
		Market:    market,
		Point:     &point,
		Side:      side,
		Price:     -110,
	}
}

func TestGradeRowFinalOutcomes(t *testing.T) {
	payload := &ResultsPayload{Status: "ok", Games: []GameResult{finalGame()}}
	index := NewGameIndex(payload)

	cases := []struct {
		name   string
		row    SeedRow
		result string
		reason string
		actual *float64
	}{
		{"over win", seedRow("Jayson Tatum", "player_points", "over", 29.5), ResultWin, ReasonFinalSettled, fptr(31)},
		{"over loss", seedRow("Jayson Tatum", "player_points", "over", 32.5), ResultLoss, ReasonFinalSettled, fptr(31)},
		{"under win", seedRow("Jayson Tatum", "player_rebounds", "under", 9.5), ResultWin, ReasonFinalSettled, fptr(8)},
		{"push on exact line", seedRow("Jayson Tatum", "player_assists", "over", 5), ResultPush, ReasonFinalSettled, fptr(5)},
		{"combo sums components", seedRow("Jayson Tatum", "player_points_rebounds_assists", "over", 43.5), ResultWin, ReasonFinalSettled, fptr(44)},
		{"threes", seedRow("Jayson Tatum", "player_threes", "under", 3.5), ResultLoss, ReasonFinalSettled, fptr(4)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			graded := GradeRow(tc.row, index)
			assert.Equal(t, tc.result, graded.Result)
			assert.Equal(t, tc.reason, graded.ResultReason)
			require.NotNil(t, graded.ActualValue)
			assert.Equal(t, *tc.actual, *graded.ActualValue)
		})
	}
}

func TestGradeRowNonFinalStatuses(t *testing.T) {
	game := finalGame()
	game.GameStatus = "in_progress"
	index := NewGameIndex(&ResultsPayload{Games: []GameResult{game}})
	graded := GradeRow(seedRow("Jayson Tatum", "player_points", "over", 29.5), index)
	assert.Equal(t, ResultPending, graded.Result)
	assert.Equal(t, ReasonInProgressPending, graded.ResultReason)

	game.GameStatus = "scheduled"
	index = NewGameIndex(&ResultsPayload{Games: []GameResult{game}})
	graded = GradeRow(seedRow("Jayson Tatum", "player_points", "over", 29.5), index)
	assert.Equal(t, ResultPending, graded.Result)
	assert.Equal(t, ReasonScheduledPending, graded.ResultReason)

	game.GameStatus = "postponed"
	index = NewGameIndex(&ResultsPayload{Games: []GameResult{game}})
	graded = GradeRow(seedRow("Jayson Tatum", "player_points", "over", 29.5), index)
	assert.Equal(t, ResultUnresolved, graded.Result)
	assert.Equal(t, ReasonGameStatusUnknown, graded.ResultReason)
}

func TestGradeRowUnresolvedReasons(t *testing.T) {
	index := NewGameIndex(&ResultsPayload{Games: []GameResult{finalGame()}})

	graded := GradeRow(seedRow("Jayson Tatum", "player_steals", "over", 1.5), index)
	assert.Equal(t, ReasonUnsupportedMarket, graded.ResultReason)

	graded = GradeRow(seedRow("Jayson Tatum", "player_points", "middle", 29.5), index)
	assert.Equal(t, ReasonUnsupportedSide, graded.ResultReason)

	row := seedRow("Jayson Tatum", "player_points", "over", 0)
	row.Point = nil
	graded = GradeRow(row, index)
	assert.Equal(t, ReasonLineMissing, graded.ResultReason)

	row = seedRow("Jayson Tatum", "player_points", "over", 29.5)
	row.HomeTeam, row.AwayTeam = "Denver Nuggets", "Utah Jazz"
	graded = GradeRow(row, index)
	assert.Equal(t, ReasonGameNotFound, graded.ResultReason)

	graded = GradeRow(seedRow("Missing Player", "player_points", "over", 29.5), index)
	assert.Equal(t, ReasonPlayerStatMissing, graded.ResultReason)
	assert.Equal(t, ResultUnresolved, graded.Result)
}

func TestGradeRowGameLookupBeforeMarketChecks(t *testing.T) {
	// A malformed ticket for a game the feed does not carry reports the
	// missing game, not its market problems.
	empty := NewGameIndex(&ResultsPayload{})
	graded := GradeRow(seedRow("Jayson Tatum", "player_steals", "over", 1.5), empty)
	assert.Equal(t, ResultUnresolved, graded.Result)
	assert.Equal(t, ReasonGameNotFound, graded.ResultReason)

	// And while the game is still running, it stays pending for the re-run.
	live := finalGame()
	live.GameStatus = "in_progress"
	index := NewGameIndex(&ResultsPayload{Games: []GameResult{live}})
	graded = GradeRow(seedRow("Jayson Tatum", "player_steals", "over", 1.5), index)
	assert.Equal(t, ResultPending, graded.Result)
	assert.Equal(t, ReasonInProgressPending, graded.ResultReason)
}

func TestGameIndexSwappedTeams(t *testing.T) {
	index := NewGameIndex(&ResultsPayload{Games: []GameResult{finalGame()}})
	row := seedRow("Jayson Tatum", "player_points", "over", 29.5)
	row.HomeTeam, row.AwayTeam = "Miami Heat", "Boston Celtics"
	graded := GradeRow(row, index)
	assert.Equal(t, ResultWin, graded.Result)
}

func TestGradeRowDiacriticInsensitiveName(t *testing.T) {
	game := finalGame()
	game.Players["nikolajokic"] = PlayerLine{
		Name:       "Nikola Jokić",
		Statistics: map[string]float64{"points": 28},
	}
	index := NewGameIndex(&ResultsPayload{Games: []GameResult{game}})
	graded := GradeRow(seedRow("Nikola Jokic", "player_points", "over", 26.5), index)
	assert.Equal(t, ResultWin, graded.Result)
}

func TestSettleRowsStatus(t *testing.T) {
	payload := &ResultsPayload{Games: []GameResult{finalGame()}}
	rows := []SeedRow{
		seedRow("Jayson Tatum", "player_points", "over", 29.5),
		seedRow("Jayson Tatum", "player_rebounds", "under", 9.5),
	}
	outcome := SettleRows(rows, payload)
	assert.Equal(t, StatusComplete, outcome.Status)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, Counts{Total: 2, Win: 2}, outcome.Counts)

	// A pending game turns the run partial with exit code 1.
	inProgress := finalGame()
	inProgress.GameStatus = "in_progress"
	outcome = SettleRows(rows, &ResultsPayload{Games: []GameResult{inProgress}})
	assert.Equal(t, StatusPartial, outcome.Status)
	assert.Equal(t, 1, outcome.ExitCode)
	assert.Equal(t, 2, outcome.Counts.Pending)
}

func TestSettleRowsIdempotent(t *testing.T) {
	payload := &ResultsPayload{Games: []GameResult{finalGame()}}
	rows := []SeedRow{
		seedRow("Jayson Tatum", "player_points", "over", 29.5),
		seedRow("Someone Else", "player_points", "under", 10.5),
	}
	first := SettleRows(rows, payload)
	second := SettleRows(rows, payload)
	assert.Equal(t, first, second)
	// Input rows are untouched.
	assert.Empty(t, rows[0].Result)
}
