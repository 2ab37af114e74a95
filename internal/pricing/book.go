// Package pricing keeps the material price book: base prices per SKU,
// a commodity adder for copper-bearing items, and volume discounts.
package pricing

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/fetcher"
	"github.com/sells-group/bid-cli/internal/monitoring"
)

// ErrPriceNotFound is returned for a SKU with no pricing data.
var ErrPriceNotFound = eris.New("no pricing for sku")

// PriceEntry is one SKU in the price book.
type PriceEntry struct {
	SKU       string  `json:"sku" yaml:"sku"`
	BasePrice float64 `json:"base_price" yaml:"base_price"`
	Commodity bool    `json:"commodity" yaml:"commodity"`
	Category  string  `json:"category" yaml:"category"`
}

// Volume discount tiers, highest quantity first.
var volumeTiers = []struct {
	minQty   int
	discount float64
}{
	{1000, 0.10},
	{100, 0.05},
}

// Book is a mutable price book. Safe for concurrent use.
type Book struct {
	mu       sync.RWMutex
	entries  map[string]PriceEntry
	adderPct float64
	notifier monitoring.Notifier
}

// NewBook creates a price book. A nil notifier discards events.
func NewBook(notifier monitoring.Notifier, entries ...PriceEntry) (*Book, error) {
	if notifier == nil {
		notifier = monitoring.Nop{}
	}
	b := &Book{entries: make(map[string]PriceEntry, len(entries)), notifier: notifier}
	for _, e := range entries {
		if e.SKU == "" {
			return nil, eris.New("pricing: sku is required")
		}
		if e.BasePrice < 0 {
			return nil, eris.Errorf("pricing: %s base price must be >= 0", e.SKU)
		}
		b.entries[e.SKU] = e
	}
	return b, nil
}

// DefaultPrices returns the built-in price list.
func DefaultPrices() []PriceEntry {
	return []PriceEntry{
		{SKU: "WIRE-THHN-12-BLK", BasePrice: 0.12, Commodity: true, Category: "WIRE"},
		{SKU: "EMT-1/2", BasePrice: 4.50, Commodity: true, Category: "PIPE"},
		{SKU: "BOX-4SQ-D", BasePrice: 2.15, Category: "ROUGH"},
		{SKU: "DEV-DUPLEX-W", BasePrice: 1.25, Category: "FINISH"},
		{SKU: "PANEL-200A", BasePrice: 250.00, Category: "GEAR"},
	}
}

// UnitPrice returns the unit price of sku when buying qty. The commodity
// adder applies first, then the volume discount. Rounded to 4 decimals.
func (b *Book) UnitPrice(sku string, qty int) (float64, error) {
	b.mu.RLock()
	e, ok := b.entries[sku]
	adder := b.adderPct
	b.mu.RUnlock()

	if !ok {
		zap.L().Debug("pricing: price miss", zap.String("sku", sku))
		return 0, eris.Wrapf(ErrPriceNotFound, "pricing: sku %s", sku)
	}

	price := e.BasePrice
	if e.Commodity && adder > 0 {
		price += price * adder / 100
	}
	for _, tier := range volumeTiers {
		if qty >= tier.minQty {
			price *= 1 - tier.discount
			break
		}
	}
	return math.Round(price*10_000) / 10_000, nil
}

// CommodityAdder returns the current adder percentage.
func (b *Book) CommodityAdder() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.adderPct
}

// SetCommodityAdder sets the percentage added to commodity items.
func (b *Book) SetCommodityAdder(pct float64) error {
	if pct < 0 || math.IsNaN(pct) {
		return eris.Errorf("pricing: commodity adder %f must be >= 0", pct)
	}
	b.mu.Lock()
	old := b.adderPct
	b.adderPct = pct
	b.mu.Unlock()

	zap.L().Info("pricing: commodity adder adjusted",
		zap.Float64("from", old),
		zap.Float64("to", pct),
	)
	b.notifier.Notify(monitoring.NewEvent(monitoring.EventPriceUpdate, "pricing.commodity_adder",
		fmt.Sprintf("Wire and pipe prices adjusted by %.1f%%.", pct)))
	return nil
}

// Entries returns every entry sorted by SKU.
func (b *Book) Entries() []PriceEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PriceEntry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// SyncVendor reads SKU,PRICE rows from a vendor price file and updates the
// base price of every SKU already in the book. Unknown SKUs, headers and
// malformed rows are skipped. Returns the number of prices updated.
func (b *Book) SyncVendor(ctx context.Context, vendor string, r io.Reader) (int, error) {
	rows, err := fetcher.Collect(fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{TrimSpace: true, Comment: '#'}))
	if err != nil {
		return 0, eris.Wrapf(err, "pricing: read %s price file", vendor)
	}
	return b.ApplyRows(vendor, rows), nil
}

// ApplyRows applies parsed SKU,PRICE rows atomically.
func (b *Book) ApplyRows(vendor string, rows [][]string) int {
	updates := make(map[string]float64, len(rows))
	skipped := 0
	for _, row := range rows {
		if len(row) < 2 {
			skipped++
			continue
		}
		sku := strings.TrimSpace(row[0])
		price, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(row[1]), "$"), 64)
		if err != nil || price < 0 {
			skipped++
			continue
		}
		updates[sku] = price
	}

	b.mu.Lock()
	updated := 0
	for sku, price := range updates {
		e, ok := b.entries[sku]
		if !ok {
			continue
		}
		e.BasePrice = price
		b.entries[sku] = e
		updated++
	}
	b.mu.Unlock()

	zap.L().Info("pricing: vendor sync",
		zap.String("vendor", vendor),
		zap.Int("updated", updated),
		zap.Int("skipped", skipped),
	)
	if updated > 0 {
		b.notifier.Notify(monitoring.NewEvent(monitoring.EventPriceUpdate, "pricing.sync_vendor",
			fmt.Sprintf("Updated %d items from %s.", updated, vendor)))
	}
	return updated
}
