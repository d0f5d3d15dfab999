// Package report renders strategy and settlement artifacts: console tables
// for humans, JSON/CSV/Markdown files for the pipeline.
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"nba-props-engine/internal/portfolio"
	"nba-props-engine/internal/settlement"
	"nba-props-engine/internal/strategy"
)

func formatPrice(price *int) string {
	if price == nil {
		return "-"
	}
	if *price > 0 {
		return fmt.Sprintf("+%d", *price)
	}
	return fmt.Sprintf("%d", *price)
}

func formatFloat(value *float64, places int) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", places, *value)
}

// PrintPlan renders the execution plan's selected and excluded rows.
func PrintPlan(w io.Writer, plan portfolio.Plan) {
	fmt.Fprintf(w, "Execution plan %s: %d eligible, %d selected, %d excluded\n",
		plan.SnapshotID, plan.Counts.Eligible, plan.Counts.Selected, plan.Counts.Excluded)

	table := tablewriter.NewWriter(w)
	table.Header("#", "Player", "Market", "Side", "Point", "Book", "Price", "EV low", "Play to")
	for _, row := range plan.Selected {
		table.Append(
			fmt.Sprintf("%d", row.Rank),
			row.Player,
			row.Market,
			row.Side,
			fmt.Sprintf("%.1f", row.Point),
			row.Book,
			formatPrice(row.Price),
			formatFloat(row.EVLow, 4),
			formatPrice(row.PlayToAmerican),
		)
	}
	table.Render()

	if len(plan.Excluded) == 0 {
		return
	}
	fmt.Fprintln(w, "Excluded:")
	excluded := tablewriter.NewWriter(w)
	excluded.Header("Player", "Market", "Side", "Reason")
	for _, row := range plan.Excluded {
		excluded.Append(row.Player, row.Market, row.Side, row.PortfolioReason)
	}
	excluded.Render()
}

// PrintRankedPlays renders the report's board.
func PrintRankedPlays(w io.Writer, report *strategy.Report) {
	fmt.Fprintf(w, "Strategy %s [%s] %s: %d candidates, %d eligible\n",
		report.StrategyID, report.StrategyMode, report.ModeledDay,
		report.Summary.Candidates, report.Summary.Eligible)

	table := tablewriter.NewWriter(w)
	table.Header("#", "Player", "Team", "Market", "Side", "Point", "Book", "Price", "Tier", "Model p", "Best EV")
	for _, cand := range report.RankedPlays {
		table.Append(
			fmt.Sprintf("%d", cand.Rank),
			cand.Player,
			cand.TeamAbbrev,
			cand.Market,
			cand.Side,
			fmt.Sprintf("%.1f", cand.Point),
			cand.Book,
			formatPrice(cand.Price),
			cand.Tier,
			formatFloat(cand.ModelPHit, 4),
			formatFloat(cand.BestEV, 4),
		)
	}
	table.Render()
}

// PrintSettlement renders one settlement pass.
func PrintSettlement(w io.Writer, outcome settlement.Outcome) {
	fmt.Fprintf(w, "Settlement %s: %d graded (%dW-%dL-%dP), %d pending, %d unresolved\n",
		outcome.Status, outcome.Counts.Total,
		outcome.Counts.Win, outcome.Counts.Loss, outcome.Counts.Push,
		outcome.Counts.Pending, outcome.Counts.Unresolved)

	table := tablewriter.NewWriter(w)
	table.Header("Day", "Player", "Market", "Side", "Point", "Actual", "Result", "Reason")
	for _, row := range outcome.Rows {
		table.Append(
			row.Day,
			row.Player,
			row.Market,
			row.Side,
			formatFloat(row.Point, 1),
			formatFloat(row.ActualValue, 0),
			row.Result,
			row.ResultReason,
		)
	}
	table.Render()
}
