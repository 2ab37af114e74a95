// Package scorer estimates the probability of winning a prospective bid from
// archived results.
package scorer

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-cli/internal/config"
)

// DefaultScorerConfig returns the standard scoring rules.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		BaseScore: 50,

		// Client relationship.
		StrongClientWinRate: 0.7,
		PoorClientWinRate:   0.3,
		StrongClientBonus:   20,
		PoorClientPenalty:   15,

		// Sector expertise.
		SectorMinWins: 2,
		SectorBonus:   15,

		// Value bands.
		SweetSpotMin:    10_000,
		SweetSpotMax:    500_000,
		SweetSpotBonus:  10,
		HighRiskValue:   2_000_000,
		HighRiskPenalty: 20,

		// Traffic light.
		GreenAbove: 75,
		RedBelow:   30,
	}
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	if c.BaseScore < minScore || c.BaseScore > maxScore {
		errs = append(errs, "base_score must be between 1 and 99")
	}

	// Win rates are fractions.
	if c.StrongClientWinRate < 0 || c.StrongClientWinRate > 1 {
		errs = append(errs, "strong_client_win_rate must be between 0 and 1")
	}
	if c.PoorClientWinRate < 0 || c.PoorClientWinRate > 1 {
		errs = append(errs, "poor_client_win_rate must be between 0 and 1")
	}
	if c.PoorClientWinRate > c.StrongClientWinRate {
		errs = append(errs, "poor_client_win_rate must be <= strong_client_win_rate")
	}

	points := map[string]int{
		"strong_client_bonus": c.StrongClientBonus,
		"poor_client_penalty": c.PoorClientPenalty,
		"sector_bonus":        c.SectorBonus,
		"sweet_spot_bonus":    c.SweetSpotBonus,
		"high_risk_penalty":   c.HighRiskPenalty,
	}
	for name, p := range points {
		if p < 0 {
			errs = append(errs, name+" must be >= 0")
		}
	}
	if c.SectorMinWins < 1 {
		errs = append(errs, "sector_min_wins must be >= 1")
	}

	// Value bands.
	if c.SweetSpotMin < 0 {
		errs = append(errs, "sweet_spot_min must be >= 0")
	}
	if c.SweetSpotMax < c.SweetSpotMin {
		errs = append(errs, "sweet_spot_max must be >= sweet_spot_min")
	}
	if c.HighRiskValue < c.SweetSpotMax {
		errs = append(errs, "high_risk_value must be >= sweet_spot_max")
	}

	if c.RedBelow > c.GreenAbove {
		errs = append(errs, "red_below must be <= green_above")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
