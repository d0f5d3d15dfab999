package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"nba-props-engine/internal/config"
	"nba-props-engine/internal/report"
	"nba-props-engine/internal/results"
	"nba-props-engine/internal/settlement"
	"nba-props-engine/internal/store"
)

const fetchTimeout = 2 * time.Minute

// main only translates run's outcome into an exit code so the deferred
// store close inside run always executes.
func main() {
	os.Exit(run())
}

func run() int {
	day := flag.String("day", time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"), "day to settle (YYYY-MM-DD)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		return 1
	}
	if cfg.ResultsAPIKey == "" {
		log.Error("BALLDONTLIE_API_KEY is required")
		return 1
	}

	seedStore, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Errorf("Opening seed store: %v", err)
		return 1
	}
	defer seedStore.Close()

	rows, err := seedStore.SeedsForDay(*day)
	if err != nil {
		log.Errorf("Loading seeds: %v", err)
		return 1
	}
	if len(rows) == 0 {
		log.WithField("day", *day).Info("No seeds to settle")
		return 0
	}

	var opts []results.Option
	if cfg.ResultsBaseURL != "" {
		opts = append(opts, results.WithBaseURL(cfg.ResultsBaseURL))
	}
	client := results.NewClient(cfg.ResultsAPIKey, log, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	payload, err := client.FetchBoxScores(ctx, *day)
	if err != nil {
		log.Errorf("Fetching box scores: %v", err)
		return 1
	}

	outcome := settlement.SettleRows(rows, payload)

	if err := seedStore.RecordResults(outcome.Rows); err != nil {
		log.Errorf("Recording results: %v", err)
		return 1
	}

	jsonPath := filepath.Join(cfg.ArtifactsDir, fmt.Sprintf("settlement_%s.json", *day))
	if err := report.WriteJSON(jsonPath, outcome); err != nil {
		log.Errorf("Writing settlement json: %v", err)
	}
	if err := writeMarkdown(cfg.ArtifactsDir, *day, outcome); err != nil {
		log.Errorf("Writing settlement markdown: %v", err)
	}

	report.PrintSettlement(os.Stdout, outcome)

	log.WithFields(logrus.Fields{
		"day":        *day,
		"status":     outcome.Status,
		"total":      outcome.Counts.Total,
		"win":        outcome.Counts.Win,
		"loss":       outcome.Counts.Loss,
		"push":       outcome.Counts.Push,
		"pending":    outcome.Counts.Pending,
		"unresolved": outcome.Counts.Unresolved,
	}).Info("Settlement complete")

	return outcome.ExitCode
}

func writeMarkdown(dir, day string, outcome settlement.Outcome) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifacts dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("settlement_%s.md", day))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return report.WriteSettlementMarkdown(f, day, outcome)
}
