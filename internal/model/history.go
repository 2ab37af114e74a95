package model

import "time"

// Outcome is the real-world result of a submitted bid.
type Outcome string

const (
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeWon || o == OutcomeLost
}

// HistoricalBid is an archived bid result. Records are append-only.
type HistoricalBid struct {
	ID            string    `json:"id"`
	Client        string    `json:"client"`
	JobType       string    `json:"job_type"`
	Value         float64   `json:"value"`
	MarginPercent float64   `json:"margin_percent"`
	Outcome       Outcome   `json:"outcome"`
	Competitor    *string   `json:"competitor,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// CompetitorName returns the competitor or "" when none was recorded.
func (h HistoricalBid) CompetitorName() string {
	if h.Competitor == nil {
		return ""
	}
	return *h.Competitor
}

// TrafficLight summarizes a win probability for at-a-glance review.
type TrafficLight string

const (
	TrafficGreen  TrafficLight = "GREEN"
	TrafficYellow TrafficLight = "YELLOW"
	TrafficRed    TrafficLight = "RED"
)

// ProbabilityReport is the explainable win-probability score for a prospect.
// Factors lists every scoring rule that fired, in evaluation order.
type ProbabilityReport struct {
	Score   int          `json:"probability"`
	Status  TrafficLight `json:"status"`
	Factors []string     `json:"factors"`
}

// StrategyRecommendation is a suggested margin and the resulting price.
type StrategyRecommendation struct {
	SuggestedMarginPercent float64 `json:"suggested_margin"`
	SellPrice              float64 `json:"sell_price"`
	Profit                 float64 `json:"profit"`
	StrategyNote           string  `json:"strategy_note"`
}
