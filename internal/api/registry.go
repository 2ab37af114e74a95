package api

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-cli/internal/model"
)

var errBidNotFound = eris.New("bid not found")

type entry struct {
	mu  sync.Mutex
	bid *model.Bid
}

// registry maps bid ids to bids, each guarded by its own mutex. Bids missing
// from memory are loaded from the store on first use.
type registry struct {
	mu    sync.Mutex
	bids  map[string]*entry
	store BidStore
}

func newRegistry(st BidStore) *registry {
	return &registry{bids: make(map[string]*entry), store: st}
}

func (r *registry) put(bid *model.Bid) {
	r.mu.Lock()
	r.bids[bid.ID] = &entry{bid: bid}
	r.mu.Unlock()
}

func (r *registry) get(ctx context.Context, id string) (*entry, error) {
	r.mu.Lock()
	e, ok := r.bids[id]
	r.mu.Unlock()
	if ok {
		return e, nil
	}
	if r.store == nil {
		return nil, eris.Wrapf(errBidNotFound, "api: bid %s", id)
	}

	bid, err := r.store.GetBid(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.bids[id]; ok {
		return e, nil
	}
	e = &entry{bid: bid}
	r.bids[id] = e
	return e, nil
}

// with runs fn while holding the bid's lock.
func (r *registry) with(ctx context.Context, id string, fn func(*model.Bid) error) error {
	e, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.bid)
}

// snapshot copies a bid so it can be encoded after the lock is released.
func snapshot(bid *model.Bid) model.Bid {
	out := *bid
	out.Items = bid.Lines()
	return out
}
