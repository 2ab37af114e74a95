package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-cli/internal/archive"
	"github.com/sells-group/bid-cli/internal/config"
)

func TestDefaultScorerConfig_Valid(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateConfig(DefaultScorerConfig()))
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.ScorerConfig)
		want   string
	}{
		{"base too low", func(c *config.ScorerConfig) { c.BaseScore = 0 }, "base_score"},
		{"base too high", func(c *config.ScorerConfig) { c.BaseScore = 100 }, "base_score"},
		{"strong rate over one", func(c *config.ScorerConfig) { c.StrongClientWinRate = 1.5 }, "strong_client_win_rate"},
		{"poor above strong", func(c *config.ScorerConfig) { c.PoorClientWinRate = 0.9 }, "poor_client_win_rate must be <="},
		{"negative bonus", func(c *config.ScorerConfig) { c.SectorBonus = -1 }, "sector_bonus must be >= 0"},
		{"zero sector wins", func(c *config.ScorerConfig) { c.SectorMinWins = 0 }, "sector_min_wins"},
		{"inverted sweet spot", func(c *config.ScorerConfig) { c.SweetSpotMax = 5_000 }, "sweet_spot_max"},
		{"high risk inside sweet spot", func(c *config.ScorerConfig) { c.HighRiskValue = 100_000 }, "high_risk_value"},
		{"red above green", func(c *config.ScorerConfig) { c.RedBelow = 80 }, "red_below"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultScorerConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewPredictor_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultScorerConfig()
	cfg.BaseScore = -4

	p, err := NewPredictor(archive.New(nil), cfg)
	require.Error(t, err)
	assert.Nil(t, p)
}
