package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDifficultyFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category DifficultyCategory
		want     float64
	}{
		{DifficultyStandard, 1.0},
		{DifficultyHighCeilings, 1.2},
		{DifficultyOccupiedPremises, 1.3},
		{DifficultyConfinedSpace, 1.5},
		{DifficultyCategory("ROOFTOP"), 1.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, tt.category.Factor(), 0.0001)
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	t.Parallel()

	c, ok := ParseDifficulty("HIGH_CEILINGS")
	assert.True(t, ok)
	assert.Equal(t, DifficultyHighCeilings, c)

	c, ok = ParseDifficulty("NORMAL")
	assert.False(t, ok)
	assert.Equal(t, DifficultyDefault, c)

	// Case matters: the table is a closed set of exact names.
	c, ok = ParseDifficulty("high_ceilings")
	assert.False(t, ok)
	assert.Equal(t, DifficultyStandard, c)
}

func TestDifficultyCategories_AllKnown(t *testing.T) {
	t.Parallel()

	prev := 0.0
	for _, c := range DifficultyCategories() {
		_, ok := ParseDifficulty(string(c))
		assert.True(t, ok, "category %s should parse", c)
		assert.GreaterOrEqual(t, c.Factor(), 1.0)
		assert.Greater(t, c.Factor(), prev)
		prev = c.Factor()
	}
}

func TestBidLines_ReturnsCopy(t *testing.T) {
	t.Parallel()

	b := &Bid{Items: []LineItem{{SKU: "ASM-SW-1P", Quantity: 2}}}
	lines := b.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 2, b.Items[0].Quantity)
}

func TestOutcomeValid(t *testing.T) {
	t.Parallel()

	assert.True(t, OutcomeWon.Valid())
	assert.True(t, OutcomeLost.Valid())
	assert.False(t, Outcome("WITHDRAWN").Valid())
}

func TestHistoricalBid_CompetitorName(t *testing.T) {
	t.Parallel()

	rival := "ZENITH ELECTRIC"
	assert.Equal(t, "ZENITH ELECTRIC", HistoricalBid{Competitor: &rival}.CompetitorName())
	assert.Empty(t, HistoricalBid{}.CompetitorName())
}
