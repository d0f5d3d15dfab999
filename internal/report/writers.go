package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"nba-props-engine/internal/settlement"
)

// WriteJSON writes any artifact as indented JSON, creating parent
// directories as needed.
func WriteJSON(path string, artifact any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

// WriteSeedCSV writes graded seed rows in the flat layout the backtest
// notebooks consume.
func WriteSeedCSV(w io.Writer, rows []settlement.SeedRow) error {
	writer := csv.NewWriter(w)
	header := []string{
		"ticket_key", "day", "snapshot_id", "strategy_id", "event_id",
		"player", "market", "point", "side", "book", "price",
		"model_p_hit", "result", "result_reason", "actual_value",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.TicketKey, row.Day, row.SnapshotID, row.StrategyID, row.EventID,
			row.Player, row.Market, floatField(row.Point, 1), row.Side, row.Book,
			strconv.Itoa(row.Price),
			floatField(row.ModelPHit, 6), row.Result, row.ResultReason,
			floatField(row.ActualValue, 1),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func floatField(value *float64, places int) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', places, 64)
}

// WriteSettlementMarkdown writes the human settlement summary.
func WriteSettlementMarkdown(w io.Writer, day string, outcome settlement.Outcome) error {
	fmt.Fprintf(w, "# Settlement %s\n\n", day)
	fmt.Fprintf(w, "Status: **%s**\n\n", outcome.Status)
	fmt.Fprintf(w, "| Result | Count |\n|---|---|\n")
	fmt.Fprintf(w, "| win | %d |\n", outcome.Counts.Win)
	fmt.Fprintf(w, "| loss | %d |\n", outcome.Counts.Loss)
	fmt.Fprintf(w, "| push | %d |\n", outcome.Counts.Push)
	fmt.Fprintf(w, "| pending | %d |\n", outcome.Counts.Pending)
	fmt.Fprintf(w, "| unresolved | %d |\n\n", outcome.Counts.Unresolved)

	fmt.Fprintf(w, "| Day | Player | Market | Side | Point | Actual | Result | Reason |\n")
	fmt.Fprintf(w, "|---|---|---|---|---|---|---|---|\n")
	for _, row := range outcome.Rows {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			row.Day, row.Player, row.Market, row.Side,
			floatField(row.Point, 1), floatField(row.ActualValue, 1),
			row.Result, row.ResultReason)
	}
	if len(outcome.Errors) > 0 {
		fmt.Fprintf(w, "\n## Fetch errors\n\n")
		for _, msg := range outcome.Errors {
			fmt.Fprintf(w, "- %s\n", msg)
		}
	}
	return nil
}
