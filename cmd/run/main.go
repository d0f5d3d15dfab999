package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"nba-props-engine/internal/calibration"
	"nba-props-engine/internal/config"
	"nba-props-engine/internal/execution"
	"nba-props-engine/internal/report"
	"nba-props-engine/internal/settlement"
	"nba-props-engine/internal/store"
	"nba-props-engine/internal/strategy"
)

func main() {
	optionsPath := flag.String("options", "run.yaml", "run options yaml file")
	day := flag.String("day", time.Now().UTC().Format("2006-01-02"), "modeled day (YYYY-MM-DD)")
	snapshotID := flag.String("snapshot", "", "snapshot id (defaults to a new uuid)")
	strategyID := flag.String("strategy", "", "strategy id override")
	freshOdds := flag.String("fresh-odds", "", "fresh odds snapshot for execution-time re-projection")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	opts, err := config.LoadRunOptions(*optionsPath)
	if err != nil {
		log.Fatalf("Invalid run options: %v", err)
	}
	cfg = cfg.Apply(opts)
	if *strategyID != "" {
		cfg.StrategyID = *strategyID
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	registry, err := strategy.BuiltinRegistry()
	if err != nil {
		log.Fatalf("Strategy registry: %v", err)
	}
	def, err := registry.Get(cfg.StrategyID)
	if err != nil {
		log.Fatalf("Unknown strategy %q: %v", cfg.StrategyID, err)
	}
	settings, err := def.Recipe.Resolve()
	if err != nil {
		log.Fatalf("Strategy %s: %v", def.ID, err)
	}

	snapshot := *snapshotID
	if snapshot == "" {
		snapshot = uuid.NewString()
	}

	seedStore, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Warnf("Seed store disabled: %v", err)
		seedStore = nil
	} else {
		defer seedStore.Close()
	}

	now := time.Now().UTC()
	in, err := loadInputs(opts, *day, snapshot, now)
	if err != nil {
		log.Fatalf("Loading inputs: %v", err)
	}
	in.Priors = loadPriors(log, seedStore, def.ID, settings, *day)

	runCfg := strategy.DefaultRunConfig()
	if cfg.TopN > 0 {
		runCfg.TopN = cfg.TopN
	}
	runCfg.MinEV = cfg.MinEV
	runCfg.AllowTierB = cfg.AllowTierB
	runCfg.RequireOfficialInjuries = cfg.RequireOfficialInjuries
	runCfg.RequireFreshContext = cfg.RequireFreshContext
	runCfg.ContextStaleHours = float64(cfg.ContextStaleHours)
	runCfg.StaleQuoteMinutes = cfg.StaleQuoteMinutes
	runCfg.MaxPicks = cfg.MaxPicks
	runCfg.MaxPerPlayer = cfg.MaxPerPlayer
	runCfg.MaxPerGame = cfg.MaxPerGame
	runCfg.ExcludeBooks = opts.ExcludeBooks

	log.WithFields(logrus.Fields{
		"strategy": def.ID,
		"day":      *day,
		"snapshot": snapshot,
		"rows":     len(in.Rows),
	}).Info("Evaluating board")

	rep, err := strategy.BuildReport(def, runCfg, in)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}

	reportPath := filepath.Join(cfg.ArtifactsDir, fmt.Sprintf("report_%s_%s.json", *day, def.ID))
	if err := report.WriteJSON(reportPath, rep); err != nil {
		log.Fatalf("Writing report: %v", err)
	}

	report.PrintRankedPlays(os.Stdout, rep)
	report.PrintPlan(os.Stdout, rep.ExecutionPlan)

	seeds := seedRows(rep)
	if seedStore != nil && len(seeds) > 0 {
		if err := seedStore.UpsertSeeds(seeds); err != nil {
			log.Errorf("Persisting seeds: %v", err)
		}
	}
	if len(seeds) > 0 {
		if err := writeSeedCSV(cfg.ArtifactsDir, *day, def.ID, seeds); err != nil {
			log.Errorf("Writing seed csv: %v", err)
		}
	}

	if *freshOdds != "" {
		runExecution(log, cfg, opts, rep, *freshOdds, *day)
	}

	log.WithFields(logrus.Fields{
		"status":   rep.StrategyStatus,
		"mode":     rep.StrategyMode,
		"eligible": rep.Summary.Eligible,
		"ranked":   len(rep.RankedPlays),
		"selected": rep.ExecutionPlan.Counts.Selected,
		"report":   reportPath,
	}).Info("Run complete")
}

// loadPriors builds the rolling market+side priors from settled history when
// the strategy asks for them. A missing store just means no tilt.
func loadPriors(log *logrus.Logger, seedStore *store.SeedStore, strategyID string, settings strategy.Settings, asOfDay string) *calibration.RollingPriors {
	if !settings.UseRollingPriors || seedStore == nil {
		return nil
	}
	source := settings.RollingPriorsSourceStrategyID
	if source == "" {
		source = strategyID
	}
	rows, err := seedStore.SettledRows(source)
	if err != nil {
		log.Warnf("Priors disabled: %v", err)
		return nil
	}
	outcomes := make([]calibration.SettledOutcome, 0, len(rows))
	for _, row := range rows {
		outcomes = append(outcomes, calibration.SettledOutcome{
			Day:    row.Day,
			Market: row.Market,
			Side:   row.Side,
			Result: row.Result,
		})
	}
	priors := calibration.BuildRollingPriors(outcomes, asOfDay,
		calibration.DefaultWindowDays, calibration.DefaultMinSamples, calibration.DefaultMaxAbsDelta)
	log.WithFields(logrus.Fields{
		"source": source,
		"rows":   len(outcomes),
		"keys":   len(priors.Adjustments),
	}).Info("Rolling priors loaded")
	return &priors
}

// seedRows converts the ranked board into graded-later seed rows.
func seedRows(rep *strategy.Report) []settlement.SeedRow {
	rows := make([]settlement.SeedRow, 0, len(rep.RankedPlays))
	for _, cand := range rep.RankedPlays {
		if cand.Price == nil {
			continue
		}
		point := cand.Point
		row := settlement.SeedRow{
			Day:        rep.ModeledDay,
			SnapshotID: rep.SnapshotID,
			StrategyID: rep.StrategyID,
			EventID:    cand.EventID,
			HomeTeam:   cand.HomeTeam,
			AwayTeam:   cand.AwayTeam,
			Player:     cand.Player,
			Market:     cand.Market,
			Point:      &point,
			Side:       cand.Side,
			Book:       cand.Book,
			Price:      *cand.Price,
			ModelPHit:  cand.ModelPHit,
		}
		row.TicketKey = store.TicketKey(row)
		rows = append(rows, row)
	}
	return rows
}

func writeSeedCSV(dir, day, strategyID string, rows []settlement.SeedRow) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifacts dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("seeds_%s_%s.csv", day, strategyID))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return report.WriteSeedCSV(f, rows)
}

// runExecution re-projects the evening board against fresh quotes and sizes
// stakes for whatever survives.
func runExecution(log *logrus.Logger, cfg config.Config, opts config.RunOptions, rep *strategy.Report, freshPath, day string) {
	rows, err := loadQuoteRows(freshPath)
	if err != nil {
		log.Errorf("Loading fresh odds: %v", err)
		return
	}

	execCfg := execution.DefaultConfig(opts.Bookmakers)
	projected := execution.ProjectReport(rep, rows, execCfg, time.Now().UTC())

	execPath := filepath.Join(cfg.ArtifactsDir, fmt.Sprintf("execution_%s_%s.json", day, rep.StrategyID))
	if err := report.WriteJSON(execPath, projected); err != nil {
		log.Errorf("Writing execution report: %v", err)
	}

	stakes := execution.SizeStakes(projected.RankedPlays,
		decimal.NewFromFloat(cfg.Bankroll), decimal.NewFromFloat(cfg.MaxStake))
	for _, stake := range stakes {
		log.WithFields(logrus.Fields{
			"player": stake.Player,
			"market": stake.Market,
			"side":   stake.Side,
			"book":   stake.Book,
			"amount": stake.Amount.StringFixed(2),
		}).Info("Stake")
	}
	log.WithFields(logrus.Fields{
		"mode":     projected.StrategyMode,
		"ranked":   len(projected.RankedPlays),
		"total":    execution.TotalStaked(stakes).StringFixed(2),
		"max_bet":  config.FormatMaxStake(cfg.MaxStake),
		"artifact": execPath,
	}).Info("Execution projection complete")
}
