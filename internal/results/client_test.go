package results

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nba-props-engine/internal/settlement"
)

const boxScoreFixture = `{
  "data": [
    {
      "id": 18444564,
      "status": "Final",
      "home_team": {
        "full_name": "Boston Celtics",
        "players": [
          {
            "player": {"first_name": "Jayson", "last_name": "Tatum"},
            "pts": 31, "reb": 8, "ast": 5, "fg3m": 4, "min": "36"
          }
        ]
      },
      "visitor_team": {
        "full_name": "Miami Heat",
        "players": [
          {
            "player": {"first_name": "Bam", "last_name": "Adebayo"},
            "pts": 22, "reb": 11, "ast": 4, "fg3m": 0, "min": "34"
          }
        ]
      }
    }
  ]
}`

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestFetchBoxScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/box_scores", r.URL.Path)
		assert.Equal(t, "2026-02-10", r.URL.Query().Get("date"))
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		w.Write([]byte(boxScoreFixture))
	}))
	defer server.Close()

	client := NewClient("test-key", testLogger(), WithBaseURL(server.URL))
	payload, err := client.FetchBoxScores(context.Background(), "2026-02-10")
	require.NoError(t, err)

	require.Len(t, payload.Games, 1)
	game := payload.Games[0]
	assert.Equal(t, "final", game.GameStatus)
	assert.Equal(t, "Boston Celtics", game.HomeTeam)
	assert.Equal(t, "Miami Heat", game.AwayTeam)

	tatum, ok := game.Players["jaysontatum"]
	require.True(t, ok)
	assert.Equal(t, 31.0, tatum.Statistics["points"])
	assert.Equal(t, 8.0, tatum.Statistics["reboundsTotal"])
	assert.Equal(t, 4.0, tatum.Statistics["threePointersMade"])

	// The payload slots straight into grading.
	point := 29.5
	outcome := settlement.SettleRows([]settlement.SeedRow{{
		HomeTeam: "Boston Celtics", AwayTeam: "Miami Heat",
		Player: "Jayson Tatum", Market: "player_points",
		Point: &point, Side: "over", Day: "2026-02-10",
	}}, payload)
	assert.Equal(t, settlement.StatusComplete, outcome.Status)
	assert.Equal(t, settlement.ResultWin, outcome.Rows[0].Result)
}

func TestFetchBoxScoresRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", testLogger(), WithBaseURL(server.URL))
	payload, err := client.FetchBoxScores(context.Background(), "2026-02-10")
	require.NoError(t, err)
	assert.Empty(t, payload.Games)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchBoxScoresClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", testLogger(), WithBaseURL(server.URL))
	_, err := client.FetchBoxScores(context.Background(), "2026-02-10")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNormalizeGameStatus(t *testing.T) {
	assert.Equal(t, "final", normalizeGameStatus("Final"))
	assert.Equal(t, "unknown", normalizeGameStatus(""))
	assert.Equal(t, "scheduled", normalizeGameStatus("2099-01-01T00:30:00Z"))
	assert.Equal(t, "in_progress", normalizeGameStatus("2020-01-01T00:30:00Z"))
	assert.Equal(t, "in_progress", normalizeGameStatus("3rd Qtr 5:21"))
}
