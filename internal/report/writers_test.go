package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nba-props-engine/internal/portfolio"
	"nba-props-engine/internal/settlement"
)

func fptr(v float64) *float64 { return &v }

func sampleOutcome() settlement.Outcome {
	point := 29.5
	actual := 31.0
	return settlement.Outcome{
		Status: settlement.StatusComplete,
		Counts: settlement.Counts{Total: 1, Win: 1},
		Rows: []settlement.SeedRow{{
			TicketKey:    "abcd1234",
			Day:          "2026-02-10",
			SnapshotID:   "snap-1",
			StrategyID:   "s010",
			EventID:      "evt1",
			Player:       "Jayson Tatum",
			Market:       "player_points",
			Point:        &point,
			Side:         "over",
			Book:         "draftkings",
			Price:        -110,
			ModelPHit:    fptr(0.55),
			Result:       settlement.ResultWin,
			ResultReason: settlement.ReasonFinalSettled,
			ActualValue:  &actual,
		}},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "settlement.json")
	outcome := sampleOutcome()
	require.NoError(t, WriteJSON(path, outcome))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded settlement.Outcome
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, outcome.Status, decoded.Status)
	assert.Equal(t, outcome.Counts, decoded.Counts)
	require.Len(t, decoded.Rows, 1)
	assert.Equal(t, "Jayson Tatum", decoded.Rows[0].Player)
}

func TestWriteSeedCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeedCSV(&buf, sampleOutcome().Rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ticket_key,day,snapshot_id")
	assert.Contains(t, lines[1], "Jayson Tatum")
	assert.Contains(t, lines[1], "29.5")
	assert.Contains(t, lines[1], "win,final_settled,31.0")
}

func TestWriteSettlementMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSettlementMarkdown(&buf, "2026-02-10", sampleOutcome()))
	out := buf.String()
	assert.Contains(t, out, "# Settlement 2026-02-10")
	assert.Contains(t, out, "Status: **complete**")
	assert.Contains(t, out, "| win | 1 |")
	assert.Contains(t, out, "| Jayson Tatum | player_points | over | 29.5 | 31.0 | win | final_settled |")
}

func TestPrintPlan(t *testing.T) {
	price := -110
	plan := portfolio.Plan{
		SchemaVersion: portfolio.PlanSchemaVersion,
		SnapshotID:    "snap-1",
		Counts:        portfolio.PlanCounts{Eligible: 2, Selected: 1, Excluded: 1},
		Selected: []portfolio.PlanRow{{
			Rank: 1, Player: "jaysontatum", Market: "player_points", Side: "over",
			Point: 29.5, Book: "draftkings", Price: &price, EVLow: fptr(0.021),
		}},
		Excluded: []portfolio.PlanRow{{
			Player: "derrickwhite", Market: "player_assists", Side: "under",
			PortfolioReason: portfolio.ReasonDailyCap,
		}},
	}
	var buf bytes.Buffer
	PrintPlan(&buf, plan)
	out := buf.String()
	assert.Contains(t, out, "1 selected")
	assert.Contains(t, out, "jaysontatum")
	assert.Contains(t, out, "portfolio_cap_daily")
}

func TestPrintSettlement(t *testing.T) {
	var buf bytes.Buffer
	PrintSettlement(&buf, sampleOutcome())
	assert.Contains(t, buf.String(), "1 graded (1W-0L-0P)")
	assert.Contains(t, buf.String(), "final_settled")
}
