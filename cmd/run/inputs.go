package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"nba-props-engine/internal/calibration"
	"nba-props-engine/internal/config"
	"nba-props-engine/internal/pricing"
	"nba-props-engine/internal/projection"
	"nba-props-engine/internal/strategy"
)

// Context file wire formats. The fetchers that produce these snapshots run
// out of band; this binary only reads them.

type injuryFeedFile struct {
	Ready     bool                 `json:"ready"`
	FetchedAt time.Time            `json:"fetched_at"`
	Rows      []strategy.InjuryRow `json:"rows"`
}

type injuriesFile struct {
	Official  injuryFeedFile `json:"official"`
	Secondary injuryFeedFile `json:"secondary"`
}

type rosterFile struct {
	Ready     bool                           `json:"ready"`
	FetchedAt time.Time                      `json:"fetched_at"`
	Teams     map[string]strategy.RosterTeam `json:"teams"`
}

type gameLineFile struct {
	EventID string  `json:"event_id"`
	Market  string  `json:"market"`
	Name    string  `json:"name"`
	Point   float64 `json:"point"`
}

type identityFile struct {
	Aliases map[string][]string `json:"aliases"`
	Teams   map[string][]string `json:"teams"`
}

func loadJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// loadInputs assembles one snapshot's evaluation inputs from the files the
// run options point at. The odds snapshot is required; everything else
// degrades to absent context, which the gates then surface.
func loadInputs(opts config.RunOptions, day, snapshotID string, now time.Time) (strategy.Inputs, error) {
	in := strategy.Inputs{
		SnapshotID: snapshotID,
		ModeledDay: day,
		Now:        now,
	}

	if opts.OddsSnapshot == "" {
		return in, fmt.Errorf("run options must name an odds_snapshot file")
	}
	if err := loadJSON(opts.OddsSnapshot, &in.Rows); err != nil {
		return in, err
	}

	if opts.InjuriesFile != "" {
		var file injuriesFile
		if err := loadJSON(opts.InjuriesFile, &file); err != nil {
			return in, err
		}
		in.Injuries = &strategy.InjuryFeeds{
			Official: strategy.InjuryFeed{
				Ready:     file.Official.Ready,
				FetchedAt: file.Official.FetchedAt,
				Rows:      file.Official.Rows,
			},
			Secondary: strategy.InjuryFeed{
				Ready:     file.Secondary.Ready,
				FetchedAt: file.Secondary.FetchedAt,
				Rows:      file.Secondary.Rows,
			},
		}
	}

	if opts.RosterFile != "" {
		var file rosterFile
		if err := loadJSON(opts.RosterFile, &file); err != nil {
			return in, err
		}
		in.Roster = &strategy.RosterSnapshot{
			Ready:     file.Ready,
			FetchedAt: file.FetchedAt,
			Teams:     file.Teams,
		}
	}

	if opts.EventsFile != "" {
		if err := loadJSON(opts.EventsFile, &in.Events); err != nil {
			return in, err
		}
	}

	if opts.GameLinesFile != "" {
		var lines []gameLineFile
		if err := loadJSON(opts.GameLinesFile, &lines); err != nil {
			return in, err
		}
		in.GameLines = make([]strategy.GameLineRow, len(lines))
		for i, line := range lines {
			in.GameLines[i] = strategy.GameLineRow{
				EventID: line.EventID,
				Market:  line.Market,
				Name:    line.Name,
				Point:   line.Point,
			}
		}
	}

	if opts.IdentityFile != "" {
		var file identityFile
		if err := loadJSON(opts.IdentityFile, &file); err != nil {
			return in, err
		}
		in.Identity = &strategy.IdentityMap{Aliases: file.Aliases, Teams: file.Teams}
	}

	if opts.MinutesFile != "" {
		var model projection.MinutesModel
		if err := loadJSON(opts.MinutesFile, &model); err != nil {
			return in, err
		}
		in.MinutesModel = &model
	}

	if opts.CalibrationFile != "" {
		var cmap calibration.Map
		if err := loadJSON(opts.CalibrationFile, &cmap); err != nil {
			return in, err
		}
		in.Calibration = &cmap
	}

	return in, nil
}

func loadQuoteRows(path string) ([]pricing.QuoteRow, error) {
	var rows []pricing.QuoteRow
	if err := loadJSON(path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
