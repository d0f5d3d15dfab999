// Package strategy composes tunable recipes into named strategies and runs
// the per-line gate engine that turns quote rows plus context into a ranked,
// portfolio-annotated report.
package strategy

import (
	"fmt"
	"strings"

	"nba-props-engine/internal/portfolio"
)

// Recipe is one layer of strategy tuning. Every field is optional; nil means
// "inherit from whatever this recipe is composed on top of". Recipes are
// value types and never mutated after construction.
type Recipe struct {
	ForceAllowTierB                 *bool
	MarketBaselineMethod            *string
	MarketBaselineFallback          *string
	ExcludeSelectedBookFromBaseline *bool
	TierBMinOtherBooksForBaseline   *int
	MinBookPairs                    *int
	HoldCap                         *float64
	POverIQRCap                     *float64
	MinQualityScore                 *float64
	MinEVLow                        *float64
	MaxUncertaintyBand              *float64
	UseRollingPriors                *bool
	RollingPriorsSourceStrategyID   *string
	PortfolioRanking                *string
	ProbabilisticProfile            *string
	MinProbConfidence               *float64
	MaxMinutesBand                  *float64
}

// Compose left-folds the given recipes: later recipes override only the
// fields they explicitly set. Compose() returns the zero recipe.
func Compose(recipes ...Recipe) Recipe {
	var out Recipe
	for _, r := range recipes {
		if r.ForceAllowTierB != nil {
			out.ForceAllowTierB = r.ForceAllowTierB
		}
		if r.MarketBaselineMethod != nil {
			out.MarketBaselineMethod = r.MarketBaselineMethod
		}
		if r.MarketBaselineFallback != nil {
			out.MarketBaselineFallback = r.MarketBaselineFallback
		}
		if r.ExcludeSelectedBookFromBaseline != nil {
			out.ExcludeSelectedBookFromBaseline = r.ExcludeSelectedBookFromBaseline
		}
		if r.TierBMinOtherBooksForBaseline != nil {
			out.TierBMinOtherBooksForBaseline = r.TierBMinOtherBooksForBaseline
		}
		if r.MinBookPairs != nil {
			out.MinBookPairs = r.MinBookPairs
		}
		if r.HoldCap != nil {
			out.HoldCap = r.HoldCap
		}
		if r.POverIQRCap != nil {
			out.POverIQRCap = r.POverIQRCap
		}
		if r.MinQualityScore != nil {
			out.MinQualityScore = r.MinQualityScore
		}
		if r.MinEVLow != nil {
			out.MinEVLow = r.MinEVLow
		}
		if r.MaxUncertaintyBand != nil {
			out.MaxUncertaintyBand = r.MaxUncertaintyBand
		}
		if r.UseRollingPriors != nil {
			out.UseRollingPriors = r.UseRollingPriors
		}
		if r.RollingPriorsSourceStrategyID != nil {
			out.RollingPriorsSourceStrategyID = r.RollingPriorsSourceStrategyID
		}
		if r.PortfolioRanking != nil {
			out.PortfolioRanking = r.PortfolioRanking
		}
		if r.ProbabilisticProfile != nil {
			out.ProbabilisticProfile = r.ProbabilisticProfile
		}
		if r.MinProbConfidence != nil {
			out.MinProbConfidence = r.MinProbConfidence
		}
		if r.MaxMinutesBand != nil {
			out.MaxMinutesBand = r.MaxMinutesBand
		}
	}
	return out
}

// Settings is the fully-resolved view of a recipe with defaults applied.
type Settings struct {
	ForceAllowTierB               bool
	BaselineMethod                string
	BaselineFallback              string
	ExcludeSelectedBook           bool
	TierBMinOtherBooksForBaseline int
	MinBookPairs                  int
	HoldCap                       *float64
	POverIQRCap                   *float64
	MinQualityScore               *float64
	MinEVLow                      *float64
	MaxUncertaintyBand            *float64
	UseRollingPriors              bool
	RollingPriorsSourceStrategyID string
	PortfolioRanking              portfolio.Ranking
	ProbabilisticProfile          string
	MinProbConfidence             *float64
	MaxMinutesBand                *float64
}

// Resolve applies defaults to the composed recipe and validates the
// enumerated fields.
func (r Recipe) Resolve() (Settings, error) {
	s := Settings{
		BaselineMethod:                "best_sides",
		BaselineFallback:              "best_sides",
		TierBMinOtherBooksForBaseline: 1,
		MinBookPairs:                  1,
		PortfolioRanking:              portfolio.RankingDefault,
		ProbabilisticProfile:          "off",
	}
	if r.ForceAllowTierB != nil {
		s.ForceAllowTierB = *r.ForceAllowTierB
	}
	if r.MarketBaselineMethod != nil {
		s.BaselineMethod = *r.MarketBaselineMethod
	}
	if r.MarketBaselineFallback != nil {
		s.BaselineFallback = *r.MarketBaselineFallback
	}
	if r.ExcludeSelectedBookFromBaseline != nil {
		s.ExcludeSelectedBook = *r.ExcludeSelectedBookFromBaseline
	}
	if r.TierBMinOtherBooksForBaseline != nil {
		s.TierBMinOtherBooksForBaseline = *r.TierBMinOtherBooksForBaseline
	}
	if r.MinBookPairs != nil {
		s.MinBookPairs = *r.MinBookPairs
	}
	s.HoldCap = r.HoldCap
	s.POverIQRCap = r.POverIQRCap
	s.MinQualityScore = r.MinQualityScore
	s.MinEVLow = r.MinEVLow
	s.MaxUncertaintyBand = r.MaxUncertaintyBand
	if r.UseRollingPriors != nil {
		s.UseRollingPriors = *r.UseRollingPriors
	}
	if r.RollingPriorsSourceStrategyID != nil {
		s.RollingPriorsSourceStrategyID = *r.RollingPriorsSourceStrategyID
	}
	if r.PortfolioRanking != nil {
		s.PortfolioRanking = portfolio.Ranking(*r.PortfolioRanking)
	}
	if r.ProbabilisticProfile != nil {
		s.ProbabilisticProfile = *r.ProbabilisticProfile
	}
	s.MinProbConfidence = r.MinProbConfidence
	s.MaxMinutesBand = r.MaxMinutesBand

	switch s.BaselineMethod {
	case "best_sides", "median_book":
	default:
		return Settings{}, fmt.Errorf("unknown market baseline method: %s", s.BaselineMethod)
	}
	if !portfolio.ValidRanking(s.PortfolioRanking) {
		return Settings{}, fmt.Errorf("unknown portfolio ranking: %s", s.PortfolioRanking)
	}
	switch s.ProbabilisticProfile {
	case "off", "minutes_v1":
	default:
		return Settings{}, fmt.Errorf("unknown probabilistic profile: %s", s.ProbabilisticProfile)
	}
	if s.MinBookPairs < 1 {
		return Settings{}, fmt.Errorf("min book pairs must be >= 1, got %d", s.MinBookPairs)
	}
	return s, nil
}

// NormalizeID canonicalizes a strategy identifier: lowercase, hyphens become
// underscores, and only [a-z0-9_] survive. Anything else is an error.
func NormalizeID(id string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(id))
	trimmed = strings.ReplaceAll(trimmed, "-", "_")
	if trimmed == "" {
		return "", fmt.Errorf("empty strategy id")
	}
	for _, r := range trimmed {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", fmt.Errorf("invalid strategy id: %q", id)
		}
	}
	return trimmed, nil
}

func boolPtr(v bool) *bool          { return &v }
func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func stringPtr(v string) *string    { return &v }
