package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeLaterFieldsWin(t *testing.T) {
	base := Recipe{
		MinBookPairs: intPtr(1),
		HoldCap:      floatPtr(0.10),
	}
	override := Recipe{
		HoldCap:         floatPtr(0.08),
		MinQualityScore: floatPtr(0.55),
	}
	composed := Compose(base, override)
	require.NotNil(t, composed.MinBookPairs)
	assert.Equal(t, 1, *composed.MinBookPairs)
	require.NotNil(t, composed.HoldCap)
	assert.Equal(t, 0.08, *composed.HoldCap)
	require.NotNil(t, composed.MinQualityScore)
	assert.Equal(t, 0.55, *composed.MinQualityScore)
}

func TestComposeUnsetFieldsInherit(t *testing.T) {
	composed := Compose(recipeTierB, Recipe{})
	require.NotNil(t, composed.ForceAllowTierB)
	assert.True(t, *composed.ForceAllowTierB)
}

func TestComposeEmptyIsZero(t *testing.T) {
	assert.Equal(t, Recipe{}, Compose())
}

func TestResolveDefaults(t *testing.T) {
	settings, err := Recipe{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "best_sides", settings.BaselineMethod)
	assert.Equal(t, "best_sides", settings.BaselineFallback)
	assert.Equal(t, 1, settings.MinBookPairs)
	assert.Equal(t, 1, settings.TierBMinOtherBooksForBaseline)
	assert.Equal(t, "off", settings.ProbabilisticProfile)
	assert.False(t, settings.ForceAllowTierB)
	assert.Nil(t, settings.HoldCap)
}

func TestResolveRejectsBadEnums(t *testing.T) {
	_, err := Recipe{MarketBaselineMethod: stringPtr("mean_book")}.Resolve()
	assert.Error(t, err)
	_, err = Recipe{PortfolioRanking: stringPtr("ev_max")}.Resolve()
	assert.Error(t, err)
	_, err = Recipe{ProbabilisticProfile: stringPtr("minutes_v9")}.Resolve()
	assert.Error(t, err)
	_, err = Recipe{MinBookPairs: intPtr(0)}.Resolve()
	assert.Error(t, err)
}

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"s010", "s010", true},
		{"  S010 ", "s010", true},
		{"my-strategy", "my_strategy", true},
		{"bad id", "", false},
		{"", "", false},
		{"s010!", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeID(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}
