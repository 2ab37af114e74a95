package scorer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/config"
	"github.com/sells-group/bid-cli/internal/model"
)

const (
	minScore = 1
	maxScore = 99
)

// HistorySource supplies an immutable view of archived results.
type HistorySource interface {
	Snapshot() []model.HistoricalBid
}

// Predictor scores prospects against the archive.
type Predictor struct {
	history HistorySource
	cfg     config.ScorerConfig
}

// NewPredictor creates a predictor. The config is validated up front.
func NewPredictor(history HistorySource, cfg config.ScorerConfig) (*Predictor, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Predictor{history: history, cfg: cfg}, nil
}

// Predict scores a prospective bid for client, jobType and value. Client and
// job type match archived records without regard to case. The history is
// read once per call, so a concurrent append never splits a score.
func (p *Predictor) Predict(client, jobType string, value float64) model.ProbabilityReport {
	client = strings.ToUpper(strings.TrimSpace(client))
	jobType = strings.ToUpper(strings.TrimSpace(jobType))
	records := p.history.Snapshot()
	cfg := p.cfg

	score := cfg.BaseScore
	factors := make([]string, 0, 3)

	// Client relationship.
	var clientWins, clientTotal int
	for _, r := range records {
		if strings.EqualFold(r.Client, client) {
			clientTotal++
			if r.Outcome == model.OutcomeWon {
				clientWins++
			}
		}
	}
	if clientTotal > 0 {
		rate := float64(clientWins) / float64(clientTotal)
		switch {
		case rate > cfg.StrongClientWinRate:
			score += cfg.StrongClientBonus
			factors = append(factors, fmt.Sprintf("Strong Client Relationship (+%d)", cfg.StrongClientBonus))
		case rate < cfg.PoorClientWinRate:
			score -= cfg.PoorClientPenalty
			factors = append(factors, fmt.Sprintf("Poor Client History (-%d)", cfg.PoorClientPenalty))
		}
	} else {
		factors = append(factors, "New Client (Neutral)")
	}

	// Sector expertise.
	var sectorWins int
	for _, r := range records {
		if strings.EqualFold(r.JobType, jobType) && r.Outcome == model.OutcomeWon {
			sectorWins++
		}
	}
	if sectorWins >= cfg.SectorMinWins {
		score += cfg.SectorBonus
		factors = append(factors, fmt.Sprintf("Expertise in %s (+%d)", jobType, cfg.SectorBonus))
	}

	// Value band.
	switch {
	case value >= cfg.SweetSpotMin && value <= cfg.SweetSpotMax:
		score += cfg.SweetSpotBonus
		factors = append(factors, fmt.Sprintf("Value in Sweet Spot (+%d)", cfg.SweetSpotBonus))
	case value > cfg.HighRiskValue:
		score -= cfg.HighRiskPenalty
		factors = append(factors, fmt.Sprintf("High Value / High Risk (-%d)", cfg.HighRiskPenalty))
	}

	score = clamp(score)
	report := model.ProbabilityReport{
		Score:   score,
		Status:  status(score, cfg),
		Factors: factors,
	}

	zap.L().Debug("scorer: prediction",
		zap.String("client", client),
		zap.String("job_type", jobType),
		zap.Float64("value", value),
		zap.Int("score", report.Score),
		zap.String("status", string(report.Status)),
		zap.Strings("factors", report.Factors),
	)
	return report
}

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func status(score int, cfg config.ScorerConfig) model.TrafficLight {
	switch {
	case score > cfg.GreenAbove:
		return model.TrafficGreen
	case score < cfg.RedBelow:
		return model.TrafficRed
	default:
		return model.TrafficYellow
	}
}
