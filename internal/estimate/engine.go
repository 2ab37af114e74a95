// Package estimate rolls catalog assemblies up into a priced bid recap.
//
// An Engine owns no bid state; each *model.Bid is owned by one caller at a
// time. Callers that share bids across goroutines must serialize access per
// bid (see internal/api).
package estimate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/catalog"
	"github.com/sells-group/bid-cli/internal/cost"
	"github.com/sells-group/bid-cli/internal/model"
	"github.com/sells-group/bid-cli/internal/monitoring"
)

var (
	// ErrInvalidQuantity is returned for a zero or negative quantity.
	ErrInvalidQuantity = eris.New("quantity must be a positive integer")
	// ErrBidLocked is returned when adding to a bid that already has a recap.
	ErrBidLocked = eris.New("bid is locked after recap")
	// ErrInvalidMarkup is returned for negative, non-finite or overflowing
	// overhead or profit percentages.
	ErrInvalidMarkup = eris.New("markup percentages must be finite and >= 0")
)

// Engine builds bids from a catalog and prices them with a cost calculator.
type Engine struct {
	catalog  catalog.Catalog
	calc     *cost.Calculator
	notifier monitoring.Notifier
	newID    func() string
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator overrides bid ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// NewEngine creates an Engine. A nil notifier discards events.
func NewEngine(cat catalog.Catalog, calc *cost.Calculator, notifier monitoring.Notifier, opts ...Option) *Engine {
	if notifier == nil {
		notifier = monitoring.Nop{}
	}
	e := &Engine{
		catalog:  cat,
		calc:     calc,
		notifier: notifier,
		newID:    NewBidID,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewBidID returns an opaque bid ID of the form EST-1A2B3C.
func NewBidID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "EST-" + strings.ToUpper(hex[:6])
}

// StartBid opens an empty bid. An unknown difficulty category prices at the
// default 1.0x factor and emits an unknown_difficulty event.
func (e *Engine) StartBid(name, difficulty string) *model.Bid {
	category, known := model.ParseDifficulty(difficulty)
	if !known && difficulty != "" {
		e.notifier.Notify(monitoring.Event{
			Kind:      monitoring.EventUnknownDifficulty,
			Context:   "estimate.start_bid",
			Message:   fmt.Sprintf("Unknown difficulty %q, using %s (%.1fx).", difficulty, category, category.Factor()),
			Timestamp: e.now(),
		})
	}

	bid := &model.Bid{
		ID:               e.newID(),
		Name:             name,
		Difficulty:       category,
		DifficultyFactor: category.Factor(),
		Items:            []model.LineItem{},
		CreatedAt:        e.now(),
	}

	zap.L().Info("estimate: bid started",
		zap.String("bid_id", bid.ID),
		zap.String("project", name),
		zap.String("difficulty", string(category)),
		zap.Float64("factor", bid.DifficultyFactor),
	)
	return bid
}

// AddAssembly appends qty of the catalog assembly sku to bid. Extended
// material and labor are fixed now, so later catalog price changes do not
// alter lines already on the bid. On error the bid is unchanged.
func (e *Engine) AddAssembly(bid *model.Bid, sku string, qty int) error {
	if bid.Locked {
		e.reject(monitoring.EventBidLocked, bid, fmt.Sprintf("Bid %s is locked; revise it to add %s.", bid.ID, sku))
		return eris.Wrapf(ErrBidLocked, "estimate: add %s to %s", sku, bid.ID)
	}
	if qty <= 0 {
		e.reject(monitoring.EventInvalidQuantity, bid, fmt.Sprintf("Quantity %d for %s must be positive.", qty, sku))
		return eris.Wrapf(ErrInvalidQuantity, "estimate: add %s qty %d", sku, qty)
	}

	asm, err := e.catalog.Lookup(sku)
	if err != nil {
		if errors.Is(err, catalog.ErrAssemblyNotFound) {
			e.reject(monitoring.EventAssemblyNotFound, bid, fmt.Sprintf("Assembly %s not found.", sku))
		}
		return eris.Wrapf(err, "estimate: add %s", sku)
	}

	bid.Items = append(bid.Items, model.LineItem{
		SKU:              asm.SKU,
		Name:             asm.Name,
		Quantity:         qty,
		MaterialUnitCost: asm.MaterialUnitCost,
		LaborUnitHours:   asm.LaborUnitHours,
		MaterialExtended: cost.RoundCents(asm.MaterialUnitCost * float64(qty)),
		LaborExtended:    cost.RoundCents(asm.LaborUnitHours * float64(qty)),
	})

	zap.L().Debug("estimate: assembly added",
		zap.String("bid_id", bid.ID),
		zap.String("sku", sku),
		zap.Int("qty", qty),
	)
	return nil
}

// ComputeRecap totals the bid and layers overhead and profit on top. The
// percentages are per call so what-if pricing never mutates the bid. An
// empty bid yields an all-zero recap. Producing a recap locks the bid.
func (e *Engine) ComputeRecap(bid *model.Bid, overheadPct, profitPct float64) (*model.Recap, error) {
	if !validPercent(overheadPct) || !validPercent(profitPct) {
		return nil, eris.Wrapf(ErrInvalidMarkup, "estimate: overhead %.2f profit %.2f", overheadPct, profitPct)
	}

	r := Totals(bid, e.calc)
	if !isFinite(r.RawCost * (1 + overheadPct/100) * (1 + profitPct/100)) {
		return nil, eris.Wrapf(ErrInvalidMarkup, "estimate: overhead %.2f profit %.2f overflows sell price", overheadPct, profitPct)
	}
	m := e.calc.Markup(r.RawCost, overheadPct, profitPct)

	r.OverheadPercent = overheadPct
	r.ProfitPercent = profitPct
	r.OverheadAmount = m.Overhead
	r.BreakEven = m.BreakEven
	r.ProfitAmount = m.Profit
	r.SellPrice = m.SellPrice
	r.MarginPercent = m.MarginPercent

	bid.Locked = true

	zap.L().Info("estimate: recap computed",
		zap.String("bid_id", bid.ID),
		zap.Int("lines", len(bid.Items)),
		zap.Float64("raw_cost", r.RawCost),
		zap.Float64("sell_price", r.SellPrice),
		zap.Float64("margin_pct", r.MarginPercent),
	)
	return &r, nil
}

func validPercent(v float64) bool {
	return v >= 0 && isFinite(v)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Totals sums material and labor for a bid before any markup.
func Totals(bid *model.Bid, calc *cost.Calculator) model.Recap {
	var material, hours float64
	for _, li := range bid.Items {
		material += li.MaterialExtended
		hours += li.LaborExtended
	}

	adjusted := calc.AdjustLabor(hours, bid.DifficultyFactor)
	labor := calc.LaborCost(adjusted)

	return model.Recap{
		BidID:              bid.ID,
		Project:            bid.Name,
		MaterialTotal:      material,
		LaborHoursBase:     hours,
		LaborHoursAdjusted: adjusted,
		BurdenedRate:       calc.BurdenedRate(),
		LaborCost:          labor,
		RawCost:            material + labor,
	}
}

// Revise returns an unlocked copy of bid under a new ID so a priced bid can
// be reworked without touching the original snapshot.
func (e *Engine) Revise(bid *model.Bid) *model.Bid {
	rev := &model.Bid{
		ID:               e.newID(),
		Name:             bid.Name,
		Difficulty:       bid.Difficulty,
		DifficultyFactor: bid.DifficultyFactor,
		Items:            bid.Lines(),
		CreatedAt:        e.now(),
	}
	zap.L().Info("estimate: bid revised",
		zap.String("from", bid.ID),
		zap.String("bid_id", rev.ID),
	)
	return rev
}

func (e *Engine) reject(kind monitoring.EventKind, bid *model.Bid, msg string) {
	e.notifier.Notify(monitoring.Event{
		Kind:      kind,
		Context:   "estimate.add_assembly",
		Message:   msg,
		Details:   map[string]any{"bid_id": bid.ID},
		Timestamp: e.now(),
	})
}
