// Package strategy turns a win probability into a margin recommendation.
package strategy

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/cost"
	"github.com/sells-group/bid-cli/internal/model"
)

// ErrInvalidBaseCost is returned for a negative or non-finite base cost.
var ErrInvalidBaseCost = eris.New("base cost must be a finite value >= 0")

// Tier maps a minimum probability score to a target margin.
type Tier struct {
	MinScore int
	Margin   float64
	Note     string
}

// Tiers are evaluated top-down; the first tier whose MinScore the report
// meets wins. The bottom tier deliberately prices high: a bid we expect to
// lose is submitted as a courtesy at a margin worth winning.
var Tiers = []Tier{
	{MinScore: 80, Margin: 20, Note: "Dominant position. Increase margin to 20%; the client pays for quality."},
	{MinScore: 50, Margin: 15, Note: "Standard play. Hold 15% and don't leave money on the table."},
	{MinScore: 30, Margin: 10, Note: "Weak position. Cut to 10% only if the crew needs the work; otherwise walk away."},
	{MinScore: math.MinInt, Margin: 25, Note: "Do not bid. Probability too low; submit a high courtesy bid only."},
}

// TierFor returns the tier for a probability score.
func TierFor(score int) Tier {
	for _, t := range Tiers {
		if score >= t.MinScore {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

// Recommend suggests a margin for baseCost given a probability report. Sell
// price is grossed up so the margin is a share of sell price, not of cost.
func Recommend(baseCost float64, report model.ProbabilityReport) (model.StrategyRecommendation, error) {
	if baseCost < 0 || math.IsNaN(baseCost) || math.IsInf(baseCost, 0) {
		return model.StrategyRecommendation{}, eris.Wrapf(ErrInvalidBaseCost, "strategy: base cost %f", baseCost)
	}

	tier := TierFor(report.Score)
	sell := baseCost / (1 - tier.Margin/100)

	rec := model.StrategyRecommendation{
		SuggestedMarginPercent: tier.Margin,
		SellPrice:              cost.RoundCents(sell),
		Profit:                 cost.RoundCents(sell - baseCost),
		StrategyNote:           tier.Note,
	}

	zap.L().Debug("strategy: recommendation",
		zap.Int("score", report.Score),
		zap.Float64("base_cost", baseCost),
		zap.Float64("margin_pct", rec.SuggestedMarginPercent),
		zap.Float64("sell_price", rec.SellPrice),
	)
	return rec, nil
}
