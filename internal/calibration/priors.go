// Package calibration builds settled-outcome feedback for strategy ranking:
// rolling market/side hit-rate priors and walk-forward calibration maps.
package calibration

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"nba-props-engine/internal/mathutil"
)

// Defaults for the rolling prior window.
const (
	DefaultWindowDays  = 21
	DefaultMinSamples  = 25
	DefaultMaxAbsDelta = 0.02
)

// SettledOutcome is one graded ticket used as prior evidence.
type SettledOutcome struct {
	Day    string // ISO date the ticket was modeled for
	Market string
	Side   string
	Result string // "win" or "loss"; anything else is skipped
}

// PriorAdjustment is the per market+side tilt derived from settled history.
type PriorAdjustment struct {
	SampleSize       int     `json:"sample_size"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	HitRate          float64 `json:"hit_rate"`
	PosteriorHitRate float64 `json:"posterior_hit_rate"`
	Delta            float64 `json:"delta"`
}

// RollingPriors holds market+side adjustments built from a trailing window
// of settled outcomes strictly before the as-of day.
type RollingPriors struct {
	AsOfDay     string                     `json:"as_of_day"`
	WindowDays  int                        `json:"window_days"`
	MinSamples  int                        `json:"min_samples"`
	MaxAbsDelta float64                    `json:"max_abs_delta"`
	RowsUsed    int                        `json:"rows_used"`
	Adjustments map[string]PriorAdjustment `json:"adjustments"`
}

// PriorKey builds the adjustment map key for a market+side pair.
func PriorKey(market, side string) string {
	return fmt.Sprintf("%s::%s", strings.ToLower(strings.TrimSpace(market)), strings.ToLower(strings.TrimSpace(side)))
}

// Adjustment looks up the prior tilt for a market+side pair.
func (p *RollingPriors) Adjustment(market, side string) (PriorAdjustment, bool) {
	if p == nil || p.Adjustments == nil {
		return PriorAdjustment{}, false
	}
	adj, ok := p.Adjustments[PriorKey(market, side)]
	return adj, ok
}

func normalizeResult(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "w", "win":
		return "win"
	case "l", "loss":
		return "loss"
	}
	return ""
}

// BuildRollingPriors aggregates settled outcomes from the window
// [asOfDay-windowDays, asOfDay) into capped market+side deltas. The delta is
// the posterior hit rate's distance from a coin flip, shrunk by sample
// coverage so thin buckets barely move the ranking.
func BuildRollingPriors(outcomes []SettledOutcome, asOfDay string, windowDays, minSamples int, maxAbsDelta float64) RollingPriors {
	out := RollingPriors{
		AsOfDay:     asOfDay,
		WindowDays:  windowDays,
		Adjustments: map[string]PriorAdjustment{},
	}
	asOf, err := time.Parse("2006-01-02", strings.TrimSpace(asOfDay))
	if err != nil {
		return out
	}
	if windowDays < 1 {
		windowDays = 1
	}
	if minSamples < 1 {
		minSamples = 1
	}
	if maxAbsDelta < 0 {
		maxAbsDelta = 0
	}
	out.AsOfDay = asOf.Format("2006-01-02")
	out.WindowDays = windowDays
	out.MinSamples = minSamples
	out.MaxAbsDelta = maxAbsDelta
	start := asOf.AddDate(0, 0, -windowDays)

	type bucket struct{ wins, losses int }
	buckets := map[string]*bucket{}
	for _, row := range outcomes {
		day, err := time.Parse("2006-01-02", strings.TrimSpace(row.Day))
		if err != nil {
			continue
		}
		if day.Before(start) || !day.Before(asOf) {
			continue
		}
		result := normalizeResult(row.Result)
		if result == "" {
			continue
		}
		market := strings.ToLower(strings.TrimSpace(row.Market))
		side := strings.ToLower(strings.TrimSpace(row.Side))
		if market == "" || (side != "over" && side != "under") {
			continue
		}
		key := PriorKey(market, side)
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		if result == "win" {
			b.wins++
		} else {
			b.losses++
		}
		out.RowsUsed++
	}

	for key, b := range buckets {
		sample := b.wins + b.losses
		if sample <= 0 {
			continue
		}
		hitRate := float64(b.wins) / float64(sample)
		posterior := (float64(b.wins) + 1.0) / float64(sample+2)
		coverage := float64(sample) / float64(minSamples)
		if coverage > 1.0 {
			coverage = 1.0
		}
		delta := mathutil.Clamp((posterior-0.5)*coverage, -maxAbsDelta, maxAbsDelta)
		out.Adjustments[key] = PriorAdjustment{
			SampleSize:       sample,
			Wins:             b.wins,
			Losses:           b.losses,
			HitRate:          mathutil.RoundTo(hitRate, 6),
			PosteriorHitRate: mathutil.RoundTo(posterior, 6),
			Delta:            mathutil.RoundTo(delta, 6),
		}
	}
	return out
}

// Feedback is the calibration signal for one modeled probability.
type Feedback struct {
	PCalibrated *float64
	Delta       *float64
	Confidence  float64
	SampleSize  int
	Source      string
}

// CalibrationFeedback tilts a modeled probability by the settled-history
// prior for its market+side. Confidence is the prior's sample coverage, so
// downstream blending fades out when history is thin.
func CalibrationFeedback(priors *RollingPriors, market, side string, modelProbability *float64) Feedback {
	if priors == nil || modelProbability == nil {
		return Feedback{Source: "none"}
	}
	adj, ok := priors.Adjustment(market, side)
	if !ok || adj.SampleSize <= 0 {
		return Feedback{Source: "none"}
	}
	minSamples := priors.MinSamples
	if minSamples < 1 {
		minSamples = DefaultMinSamples
	}
	confidence := float64(adj.SampleSize) / float64(minSamples)
	if confidence > 1.0 {
		confidence = 1.0
	}
	calibrated := mathutil.RoundTo(mathutil.Clamp(*modelProbability+adj.Delta, 0.01, 0.99), 6)
	delta := adj.Delta
	return Feedback{
		PCalibrated: &calibrated,
		Delta:       &delta,
		Confidence:  mathutil.RoundTo(confidence, 6),
		SampleSize:  adj.SampleSize,
		Source:      "rolling_priors",
	}
}

// SortedKeys returns adjustment keys in deterministic order for reporting.
func (p *RollingPriors) SortedKeys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.Adjustments))
	for key := range p.Adjustments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
