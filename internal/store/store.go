// Package store persists bids, recaps, the historical archive and the
// assembly catalog.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-cli/internal/model"
)

// ErrNotFound is returned when a bid does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the bid engine.
type Store interface {
	// Bids
	SaveBid(ctx context.Context, bid *model.Bid) error
	GetBid(ctx context.Context, id string) (*model.Bid, error)

	// Recaps
	SaveRecap(ctx context.Context, recap model.Recap) error
	ListRecaps(ctx context.Context, bidID string) ([]model.Recap, error)

	// History
	AppendHistory(ctx context.Context, rec model.HistoricalBid) error
	ListHistory(ctx context.Context) ([]model.HistoricalBid, error)
	ImportHistory(ctx context.Context, recs []model.HistoricalBid) (int64, error)

	// Assemblies. GetAssembly returns (nil, nil) for an unknown SKU.
	ListAssemblies(ctx context.Context) ([]model.Assembly, error)
	GetAssembly(ctx context.Context, sku string) (*model.Assembly, error)
	UpsertAssemblies(ctx context.Context, assemblies []model.Assembly) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
