package main

import (
	"flag"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"nba-props-engine/internal/calibration"
	"nba-props-engine/internal/config"
	"nba-props-engine/internal/report"
	"nba-props-engine/internal/store"
)

func main() {
	mode := flag.String("mode", "walk_forward", "calibration mode: walk_forward or in_sample")
	binSize := flag.Float64("bin-size", 0.05, "probability bin width")
	datasetID := flag.String("dataset", "seeds", "dataset id recorded in the map")
	out := flag.String("out", "", "output path (defaults to <artifacts>/calibration_map.json)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	seedStore, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Opening seed store: %v", err)
	}
	defer seedStore.Close()

	ids, err := seedStore.Strategies()
	if err != nil {
		log.Fatalf("Listing strategies: %v", err)
	}

	rowsByStrategy := map[string][]calibration.ScoredOutcome{}
	for _, id := range ids {
		rows, err := seedStore.SettledRows(id)
		if err != nil {
			log.Fatalf("Loading settled rows for %s: %v", id, err)
		}
		for _, row := range rows {
			if row.ModelPHit == nil {
				continue
			}
			rowsByStrategy[id] = append(rowsByStrategy[id], calibration.ScoredOutcome{
				Day:         row.Day,
				Probability: *row.ModelPHit,
				Won:         row.Result == "win",
			})
		}
	}

	calMap, err := calibration.BuildMap(rowsByStrategy, *binSize, *mode, *datasetID)
	if err != nil {
		log.Fatalf("Building calibration map: %v", err)
	}

	path := *out
	if path == "" {
		path = filepath.Join(cfg.ArtifactsDir, "calibration_map.json")
	}
	if err := report.WriteJSON(path, calMap); err != nil {
		log.Fatalf("Writing calibration map: %v", err)
	}

	scored := 0
	for _, rows := range rowsByStrategy {
		scored += len(rows)
	}
	log.WithFields(logrus.Fields{
		"strategies": len(rowsByStrategy),
		"rows":       scored,
		"mode":       *mode,
		"artifact":   path,
	}).Info("Calibration map written")
}
