// Package archive holds historical bid results and the analytics derived
// from them.
package archive

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/model"
	"github.com/sells-group/bid-cli/internal/monitoring"
)

// ErrInvalidRecord is returned for a history record that fails validation.
var ErrInvalidRecord = eris.New("invalid history record")

// Archive is an append-only set of historical bids. Readers get copies, so a
// snapshot never changes underneath a scorer. Safe for concurrent use.
type Archive struct {
	mu       sync.RWMutex
	records  []model.HistoricalBid
	notifier monitoring.Notifier
	now      func() time.Time
}

// New creates an archive seeded with records. A nil notifier discards events.
func New(notifier monitoring.Notifier, records ...model.HistoricalBid) *Archive {
	if notifier == nil {
		notifier = monitoring.Nop{}
	}
	a := &Archive{
		records:  make([]model.HistoricalBid, 0, len(records)),
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
	a.records = append(a.records, records...)
	return a
}

// Validate checks a record before it is archived.
func Validate(rec model.HistoricalBid) error {
	switch {
	case strings.TrimSpace(rec.Client) == "":
		return eris.Wrap(ErrInvalidRecord, "archive: client is required")
	case strings.TrimSpace(rec.JobType) == "":
		return eris.Wrap(ErrInvalidRecord, "archive: job type is required")
	case !rec.Outcome.Valid():
		return eris.Wrapf(ErrInvalidRecord, "archive: outcome %q must be WON or LOST", rec.Outcome)
	case !nonNegative(rec.Value):
		return eris.Wrapf(ErrInvalidRecord, "archive: value %.2f must be a finite value >= 0", rec.Value)
	case !nonNegative(rec.MarginPercent):
		return eris.Wrapf(ErrInvalidRecord, "archive: margin %.2f must be a finite value >= 0", rec.MarginPercent)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

// Prepare normalizes a record and fills in a missing ID and RecordedAt.
func (a *Archive) Prepare(rec model.HistoricalBid) (model.HistoricalBid, error) {
	rec.Client = strings.ToUpper(strings.TrimSpace(rec.Client))
	rec.JobType = strings.ToUpper(strings.TrimSpace(rec.JobType))
	rec.Outcome = model.Outcome(strings.ToUpper(string(rec.Outcome)))
	if rec.Competitor != nil {
		name := strings.TrimSpace(*rec.Competitor)
		if name == "" || strings.EqualFold(name, "N/A") {
			rec.Competitor = nil
		} else {
			rec.Competitor = &name
		}
	}
	if err := Validate(rec); err != nil {
		return rec, err
	}
	if rec.ID == "" {
		rec.ID = "H-" + strings.ToUpper(uuid.New().String()[:8])
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = a.now()
	}
	return rec, nil
}

// Append validates and archives a result. A WON result emits a bid_won event.
func (a *Archive) Append(rec model.HistoricalBid) (model.HistoricalBid, error) {
	rec, err := a.Prepare(rec)
	if err != nil {
		return rec, err
	}
	a.add(rec)
	return rec, nil
}

func (a *Archive) add(rec model.HistoricalBid) {
	a.mu.Lock()
	a.records = append(a.records, rec)
	a.mu.Unlock()

	zap.L().Info("archive: bid result recorded",
		zap.String("id", rec.ID),
		zap.String("client", rec.Client),
		zap.String("outcome", string(rec.Outcome)),
	)

	if rec.Outcome == model.OutcomeWon {
		a.notifier.Notify(monitoring.Event{
			Kind:    monitoring.EventBidWon,
			Context: "archive.append",
			Message: fmt.Sprintf("Won %s for %s (%s).", rec.ID, rec.Client, rec.JobType),
			Details: map[string]any{
				"id":     rec.ID,
				"client": rec.Client,
				"value":  rec.Value,
			},
			Timestamp: rec.RecordedAt,
		})
	}
}

// Snapshot returns a copy of every record in insertion order.
func (a *Archive) Snapshot() []model.HistoricalBid {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.HistoricalBid, len(a.records))
	copy(out, a.records)
	return out
}

// Len returns the number of archived records.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

// DefaultHistory returns the built-in sample history.
func DefaultHistory() []model.HistoricalBid {
	zenith := "ZENITH ELECTRIC"
	budget := "BUDGET ELECTRIC"
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.HistoricalBid{
		{ID: "B-001", Client: "MERCY HEALTH", JobType: "HOSPITAL", Value: 150_000, MarginPercent: 15, Outcome: model.OutcomeWon, RecordedAt: at},
		{ID: "B-002", Client: "MERCY HEALTH", JobType: "CLINIC", Value: 45_000, MarginPercent: 18, Outcome: model.OutcomeWon, RecordedAt: at},
		{ID: "B-003", Client: "OHIO STATE", JobType: "SCHOOL", Value: 2_500_000, MarginPercent: 10, Outcome: model.OutcomeLost, Competitor: &zenith, RecordedAt: at},
		{ID: "B-004", Client: "TARGET CORP", JobType: "RETAIL", Value: 85_000, MarginPercent: 12, Outcome: model.OutcomeLost, Competitor: &budget, RecordedAt: at},
		{ID: "B-005", Client: "MERCY HEALTH", JobType: "HOSPITAL", Value: 300_000, MarginPercent: 14, Outcome: model.OutcomeWon, RecordedAt: at},
		{ID: "B-006", Client: "OHIO STATE", JobType: "DORM", Value: 1_200_000, MarginPercent: 8, Outcome: model.OutcomeLost, Competitor: &zenith, RecordedAt: at},
		{ID: "B-007", Client: "LOCAL DINER", JobType: "RETAIL", Value: 12_000, MarginPercent: 25, Outcome: model.OutcomeWon, RecordedAt: at},
		{ID: "B-008", Client: "FACTORY INC", JobType: "INDUSTRIAL", Value: 500_000, MarginPercent: 20, Outcome: model.OutcomeWon, RecordedAt: at},
	}
}
