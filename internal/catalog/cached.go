package catalog

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/model"
)

// Source is a backing store of assemblies, typically the database. A missing
// SKU is reported as (nil, nil).
type Source interface {
	GetAssembly(ctx context.Context, sku string) (*model.Assembly, error)
}

// Cached is a read-through LRU catalog in front of a Source. Misses are not
// cached so a kit added to the database becomes visible on the next lookup.
type Cached struct {
	src   Source
	cache *lru.Cache[string, model.Assembly]
}

// NewCached wraps src with an LRU of the given size.
func NewCached(src Source, size int) (*Cached, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, model.Assembly](size)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: create lru")
	}
	return &Cached{src: src, cache: cache}, nil
}

// Lookup implements Catalog.
func (c *Cached) Lookup(sku string) (model.Assembly, error) {
	if a, ok := c.cache.Get(sku); ok {
		return a, nil
	}

	a, err := c.src.GetAssembly(context.Background(), sku)
	if err != nil {
		zap.L().Error("catalog: source lookup failed", zap.String("sku", sku), zap.Error(err))
		return model.Assembly{}, eris.Wrapf(err, "catalog: lookup %s", sku)
	}
	if a == nil {
		return model.Assembly{}, eris.Wrapf(ErrAssemblyNotFound, "catalog: sku %s", sku)
	}

	c.cache.Add(sku, *a)
	return *a, nil
}

// Purge empties the cache.
func (c *Cached) Purge() {
	c.cache.Purge()
}
