package calibration

import (
	"fmt"
	"sort"
	"strings"

	"nba-props-engine/internal/mathutil"
)

// MapSchemaVersion identifies the calibration map artifact layout.
const MapSchemaVersion = 1

// ScoredOutcome is one settled ticket with its modeled hit probability.
type ScoredOutcome struct {
	Day         string
	Probability float64
	Won         bool
}

// Bin is one reliability bucket: modeled-probability range against the
// realized hit rate of tickets that landed in it.
type Bin struct {
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Count   int     `json:"count"`
	AvgP    float64 `json:"avg_p"`
	HitRate float64 `json:"hit_rate"`
}

// DayBins is the reliability table available on one modeled day. In
// walk-forward mode it only sees strictly earlier history.
type DayBins struct {
	RowsScored int   `json:"rows_scored"`
	Bins       []Bin `json:"bins"`
}

// StrategyCalibration holds the full-sample bins plus, in walk-forward mode,
// per-day bins built from history before each day.
type StrategyCalibration struct {
	RowsScored int                `json:"rows_scored"`
	Bins       []Bin              `json:"bins"`
	ByDay      map[string]DayBins `json:"by_day,omitempty"`
}

// Map is the calibration artifact for a set of strategies.
type Map struct {
	SchemaVersion int                            `json:"schema_version"`
	DatasetID     string                         `json:"dataset_id"`
	Mode          string                         `json:"mode"` // in_sample or walk_forward
	BinSize       float64                        `json:"bin_size"`
	Strategies    map[string]StrategyCalibration `json:"strategies"`
}

type probOutcome struct {
	probability float64
	won         bool
}

func buildBins(points []probOutcome, binSize float64) ([]Bin, error) {
	if binSize <= 0 || binSize > 0.5 {
		return nil, fmt.Errorf("bin size must be in (0, 0.5], got %v", binSize)
	}
	maxIndex := int(1.0 / binSize)
	buckets := map[int][]probOutcome{}
	for _, point := range points {
		index := int(point.probability / binSize)
		if index < 0 {
			index = 0
		}
		if index > maxIndex {
			index = maxIndex
		}
		buckets[index] = append(buckets[index], point)
	}
	indexes := make([]int, 0, len(buckets))
	for index := range buckets {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	bins := make([]Bin, 0, len(indexes))
	for _, index := range indexes {
		items := buckets[index]
		var probSum, hitSum float64
		for _, item := range items {
			probSum += item.probability
			if item.won {
				hitSum++
			}
		}
		count := len(items)
		low := mathutil.RoundTo(float64(index)*binSize, 6)
		high := low + binSize
		if high > 1.0 {
			high = 1.0
		}
		bins = append(bins, Bin{
			Low:     low,
			High:    mathutil.RoundTo(high, 6),
			Count:   count,
			AvgP:    mathutil.RoundTo(probSum/float64(count), 6),
			HitRate: mathutil.RoundTo(hitSum/float64(count), 6),
		})
	}
	return bins, nil
}

func normalizedOutcomes(rows []ScoredOutcome) []ScoredOutcome {
	out := make([]ScoredOutcome, 0, len(rows))
	for _, row := range rows {
		if row.Probability < 0 || row.Probability > 1 {
			continue
		}
		if strings.TrimSpace(row.Day) == "" {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		if out[i].Probability != out[j].Probability {
			return out[i].Probability < out[j].Probability
		}
		return !out[i].Won && out[j].Won
	})
	return out
}

// BuildMap bins settled outcomes per strategy. In walk_forward mode each
// modeled day additionally gets bins built only from earlier days, so
// rescoring a day never sees its own outcomes.
func BuildMap(rowsByStrategy map[string][]ScoredOutcome, binSize float64, mode, datasetID string) (Map, error) {
	if mode != "in_sample" && mode != "walk_forward" {
		return Map{}, fmt.Errorf("invalid calibration mode: %s", mode)
	}
	out := Map{
		SchemaVersion: MapSchemaVersion,
		DatasetID:     datasetID,
		Mode:          mode,
		BinSize:       binSize,
		Strategies:    map[string]StrategyCalibration{},
	}
	ids := make([]string, 0, len(rowsByStrategy))
	for id := range rowsByStrategy {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		normalized := normalizedOutcomes(rowsByStrategy[id])
		points := make([]probOutcome, len(normalized))
		for i, row := range normalized {
			points[i] = probOutcome{probability: row.Probability, won: row.Won}
		}
		bins, err := buildBins(points, binSize)
		if err != nil {
			return Map{}, err
		}
		payload := StrategyCalibration{RowsScored: len(points), Bins: bins}
		if mode == "walk_forward" {
			payload.ByDay = map[string]DayBins{}
			daySet := map[string]bool{}
			for _, row := range normalized {
				daySet[row.Day] = true
			}
			days := make([]string, 0, len(daySet))
			for day := range daySet {
				days = append(days, day)
			}
			sort.Strings(days)
			for _, day := range days {
				var history []probOutcome
				for _, row := range normalized {
					if row.Day < day {
						history = append(history, probOutcome{probability: row.Probability, won: row.Won})
					}
				}
				dayBins, err := buildBins(history, binSize)
				if err != nil {
					return Map{}, err
				}
				payload.ByDay[day] = DayBins{RowsScored: len(history), Bins: dayBins}
			}
		}
		out.Strategies[id] = payload
	}
	return out, nil
}

// BinsFor resolves the bins to score with for one strategy and modeled day:
// walk-forward maps prefer that day's history bins, falling back to the
// full-sample bins.
func (m Map) BinsFor(strategyID, modeledDay string) []Bin {
	payload, ok := m.Strategies[strategyID]
	if !ok {
		return nil
	}
	if m.Mode == "walk_forward" && modeledDay != "" {
		if day, ok := payload.ByDay[modeledDay]; ok {
			return day.Bins
		}
	}
	return payload.Bins
}

// CalibratedProbability looks up the bucket containing the conservative
// probability and returns its realized hit rate. The last bucket is closed
// on the right so 1.0 still resolves.
func CalibratedProbability(bins []Bin, conservative float64) (float64, *Bin) {
	for i := range bins {
		bin := bins[i]
		inBucket := bin.Low <= conservative && conservative < bin.High
		lastBucket := bin.High >= 1.0 && conservative <= bin.High
		if !inBucket && !lastBucket {
			continue
		}
		return bin.HitRate, &bin
	}
	return 0, nil
}

// ConfidenceTier grades one pick from its calibrated probability, quote
// quality, and uncertainty band.
func ConfidenceTier(calibrated *float64, qualityScore, uncertaintyBand *float64) string {
	if calibrated == nil {
		return "unrated"
	}
	quality := 0.0
	if qualityScore != nil {
		quality = mathutil.Clamp(*qualityScore, 0.0, 1.0)
	}
	uncertainty := 1.0
	if uncertaintyBand != nil {
		uncertainty = *uncertaintyBand
		if uncertainty < 0 {
			uncertainty = 0
		}
	}
	switch {
	case *calibrated >= 0.57 && quality >= 0.7 && uncertainty <= 0.05:
		return "high"
	case *calibrated >= 0.53 && quality >= 0.55 && uncertainty <= 0.08:
		return "medium"
	}
	return "low"
}
