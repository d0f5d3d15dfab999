package strategy

import (
	"fmt"
	"sort"
)

// Definition ties a normalized strategy id to its composed recipe.
type Definition struct {
	ID          string
	Description string
	Recipe      Recipe
}

// Registry holds the named strategies. Lookup is literal: an id resolves
// only to itself, never through aliases. Shared behavior between strategies
// is expressed by composing the same recipe fragments, not by registry
// indirection.
type Registry struct {
	byID map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]Definition{}}
}

// Register adds a definition, normalizing its id. Duplicate ids fail fast.
func (r *Registry) Register(def Definition) error {
	id, err := NormalizeID(def.ID)
	if err != nil {
		return err
	}
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("duplicate strategy id: %s", id)
	}
	def.ID = id
	r.byID[id] = def
	return nil
}

// Get resolves a strategy by id, applying the same normalization used at
// registration time.
func (r *Registry) Get(id string) (Definition, error) {
	normalized, err := NormalizeID(id)
	if err != nil {
		return Definition{}, err
	}
	def, ok := r.byID[normalized]
	if !ok {
		return Definition{}, fmt.Errorf("unknown strategy: %s", normalized)
	}
	return def, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Shared recipe fragments for the built-in strategy ladder.
var (
	recipeTierB = Recipe{ForceAllowTierB: boolPtr(true)}

	recipeMedianBaseline = Recipe{
		MarketBaselineMethod:   stringPtr("median_book"),
		MarketBaselineFallback: stringPtr("best_sides"),
	}

	recipeTwoBookPairs = Recipe{MinBookPairs: intPtr(2)}

	recipeHoldCap = Recipe{HoldCap: floatPtr(0.08)}

	recipeDispersionCap = Recipe{POverIQRCap: floatPtr(0.08)}

	recipeQualityFloor = Recipe{
		MinQualityScore:    floatPtr(0.55),
		MinEVLow:           floatPtr(0.01),
		MaxUncertaintyBand: floatPtr(0.08),
	}
)

// BuiltinRegistry returns the standard strategy ladder. Strategies compose
// the shared fragments; several ids intentionally share effective recipes.
func BuiltinRegistry() (*Registry, error) {
	s010 := Compose(recipeTierB, recipeHoldCap, recipeDispersionCap, recipeQualityFloor)

	defs := []Definition{
		{ID: "s001", Description: "board baseline, no extra filters"},
		{ID: "s002", Description: "single-book lines allowed", Recipe: recipeTierB},
		{ID: "s003", Description: "median-book baseline", Recipe: recipeMedianBaseline},
		{ID: "s004", Description: "two independent book pairs required", Recipe: recipeTwoBookPairs},
		{ID: "s005", Description: "hold cap 8 percent", Recipe: recipeHoldCap},
		{ID: "s006", Description: "dispersion cap 8 points", Recipe: recipeDispersionCap},
		{ID: "s007", Description: "median baseline + depth + hold cap",
			Recipe: Compose(recipeMedianBaseline, recipeTwoBookPairs, recipeHoldCap)},
		{ID: "s009", Description: "strict quality ladder with rolling priors",
			Recipe: Compose(recipeMedianBaseline, recipeTwoBookPairs, recipeHoldCap,
				recipeDispersionCap, recipeQualityFloor,
				Recipe{UseRollingPriors: boolPtr(true)})},
		{ID: "s010", Description: "tier-B quality ladder", Recipe: s010},
		{ID: "s012", Description: "tier-B ranked by best EV",
			Recipe: Compose(recipeTierB, Recipe{PortfolioRanking: stringPtr("best_ev")})},
		{ID: "s013", Description: "tier-B ranked by quality-weighted EV",
			Recipe: Compose(recipeTierB, Recipe{PortfolioRanking: stringPtr("ev_low_quality_weighted")})},
		{ID: "s014", Description: "median baseline with tier-B",
			Recipe: Compose(recipeMedianBaseline, recipeTierB)},
		{ID: "s015", Description: "tier-B quality ladder with calibrated ranking",
			Recipe: Compose(s010, Recipe{
				UseRollingPriors:              boolPtr(true),
				RollingPriorsSourceStrategyID: stringPtr("s010"),
				PortfolioRanking:              stringPtr("calibrated_ev_low"),
			})},
		{ID: "s017", Description: "tier-B with leave-one-out baseline independence",
			Recipe: Compose(recipeTierB, recipeMedianBaseline, recipeHoldCap,
				recipeDispersionCap, recipeQualityFloor, Recipe{
					ExcludeSelectedBookFromBaseline: boolPtr(true),
					TierBMinOtherBooksForBaseline:   intPtr(2),
				})},
		{ID: "s018", Description: "quality ladder with minutes probability profile",
			Recipe: Compose(recipeMedianBaseline, recipeTwoBookPairs, recipeHoldCap,
				recipeDispersionCap, recipeQualityFloor, Recipe{
					ProbabilisticProfile: stringPtr("minutes_v1"),
					MinProbConfidence:    floatPtr(0.5),
					MaxMinutesBand:       floatPtr(22.0),
				})},
		{ID: "s019", Description: "quality ladder without median baseline",
			Recipe: Compose(recipeTwoBookPairs, recipeHoldCap, recipeDispersionCap,
				recipeQualityFloor)},
	}

	registry := NewRegistry()
	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
