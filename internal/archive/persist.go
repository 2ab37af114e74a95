package archive

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/model"
)

// HistoryStore is the slice of the store the archive persists through.
type HistoryStore interface {
	AppendHistory(ctx context.Context, rec model.HistoricalBid) error
	ListHistory(ctx context.Context) ([]model.HistoricalBid, error)
}

// Load hydrates an archive from the store. An empty store yields an empty
// archive; callers decide whether to fall back to DefaultHistory.
func Load(ctx context.Context, st HistoryStore, a *Archive) error {
	records, err := st.ListHistory(ctx)
	if err != nil {
		return eris.Wrap(err, "archive: load history")
	}
	a.mu.Lock()
	a.records = append(a.records, records...)
	a.mu.Unlock()

	zap.L().Info("archive: history loaded", zap.Int("count", len(records)))
	return nil
}

// Persisted writes appends through to a store before they become visible in
// memory, so a failed write never shows up in a score.
type Persisted struct {
	*Archive
	store HistoryStore
}

// NewPersisted wraps an archive with a store. A nil store keeps history in
// memory only.
func NewPersisted(a *Archive, st HistoryStore) *Persisted {
	return &Persisted{Archive: a, store: st}
}

// Append validates, stores, then archives a result.
func (p *Persisted) Append(ctx context.Context, rec model.HistoricalBid) (model.HistoricalBid, error) {
	rec, err := p.Prepare(rec)
	if err != nil {
		return rec, err
	}
	if p.store != nil {
		if err := p.store.AppendHistory(ctx, rec); err != nil {
			return rec, eris.Wrapf(err, "archive: persist %s", rec.ID)
		}
	}
	p.add(rec)
	return rec, nil
}
