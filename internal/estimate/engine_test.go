package estimate

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-cli/internal/catalog"
	"github.com/sells-group/bid-cli/internal/cost"
	"github.com/sells-group/bid-cli/internal/model"
	"github.com/sells-group/bid-cli/internal/monitoring"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *monitoring.Recorder) {
	t.Helper()
	rec := &monitoring.Recorder{}
	seq := 0
	e := NewEngine(catalog.Default(), cost.NewCalculator(cost.DefaultRates()), rec,
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("EST-%06d", seq)
		}),
		WithClock(func() time.Time { return fixedNow }),
	)
	return e, rec
}

func warehouseReno(t *testing.T, e *Engine) *model.Bid {
	t.Helper()
	bid := e.StartBid("Warehouse Reno", "HIGH_CEILINGS")
	require.NoError(t, e.AddAssembly(bid, "ASM-LIGHT-2x4", 100))
	require.NoError(t, e.AddAssembly(bid, "ASM-SW-1P", 10))
	return bid
}

func TestStartBid(t *testing.T) {
	t.Parallel()
	e, rec := newTestEngine(t)

	bid := e.StartBid("Warehouse Reno", "HIGH_CEILINGS")

	assert.Equal(t, "EST-000001", bid.ID)
	assert.Equal(t, "Warehouse Reno", bid.Name)
	assert.Equal(t, model.DifficultyHighCeilings, bid.Difficulty)
	assert.InDelta(t, 1.2, bid.DifficultyFactor, 1e-9)
	assert.Empty(t, bid.Items)
	assert.False(t, bid.Locked)
	assert.Equal(t, fixedNow, bid.CreatedAt)
	assert.Empty(t, rec.Events())
}

func TestStartBid_UnknownDifficulty(t *testing.T) {
	t.Parallel()
	e, rec := newTestEngine(t)

	bid := e.StartBid("Attic", "HIGH_CEILING")

	assert.Equal(t, model.DifficultyStandard, bid.Difficulty)
	assert.InDelta(t, 1.0, bid.DifficultyFactor, 1e-9)
	assert.Equal(t, []monitoring.EventKind{monitoring.EventUnknownDifficulty}, rec.Kinds())
}

func TestStartBid_EmptyDifficultyIsSilent(t *testing.T) {
	t.Parallel()
	e, rec := newTestEngine(t)

	bid := e.StartBid("Attic", "")

	assert.Equal(t, model.DifficultyStandard, bid.Difficulty)
	assert.Empty(t, rec.Events())
}

func TestNewBidID_Format(t *testing.T) {
	t.Parallel()
	id := NewBidID()
	assert.Regexp(t, `^EST-[0-9A-F]{6}$`, id)
}

func TestAddAssembly_WarehouseTotals(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	bid := warehouseReno(t, e)

	require.Len(t, bid.Items, 2)
	assert.InDelta(t, 6500.00, bid.Items[0].MaterialExtended, 0.001)
	assert.InDelta(t, 75.0, bid.Items[0].LaborExtended, 0.001)
	assert.InDelta(t, 92.50, bid.Items[1].MaterialExtended, 0.001)
	assert.InDelta(t, 4.5, bid.Items[1].LaborExtended, 0.001)

	r := Totals(bid, e.calc)
	assert.InDelta(t, 6592.50, r.MaterialTotal, 0.001)
	assert.InDelta(t, 79.5, r.LaborHoursBase, 0.001)
	assert.InDelta(t, 95.4, r.LaborHoursAdjusted, 0.001)
	assert.InDelta(t, 50.75, r.BurdenedRate, 1e-9)
	assert.InDelta(t, 4841.55, r.LaborCost, 0.01)
	assert.InDelta(t, 11434.05, r.RawCost, 0.01)
}

func TestAddAssembly_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sku     string
		qty     int
		wantErr error
		kind    monitoring.EventKind
	}{
		{"unknown sku", "ASM-DOES-NOT-EXIST", 5, catalog.ErrAssemblyNotFound, monitoring.EventAssemblyNotFound},
		{"zero quantity", "ASM-REC-20A", 0, ErrInvalidQuantity, monitoring.EventInvalidQuantity},
		{"negative quantity", "ASM-REC-20A", -3, ErrInvalidQuantity, monitoring.EventInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, rec := newTestEngine(t)
			bid := e.StartBid("Test", "STANDARD")
			require.NoError(t, e.AddAssembly(bid, "ASM-REC-20A", 1))

			err := e.AddAssembly(bid, tt.sku, tt.qty)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, bid.Items, 1)
			assert.Equal(t, []monitoring.EventKind{tt.kind}, rec.Kinds())
		})
	}
}

func TestAddAssembly_LockedAfterRecap(t *testing.T) {
	t.Parallel()
	e, rec := newTestEngine(t)
	bid := warehouseReno(t, e)

	_, err := e.ComputeRecap(bid, 10, 15)
	require.NoError(t, err)
	assert.True(t, bid.Locked)

	err = e.AddAssembly(bid, "ASM-REC-20A", 1)
	require.ErrorIs(t, err, ErrBidLocked)
	assert.Len(t, bid.Items, 2)
	assert.Equal(t, []monitoring.EventKind{monitoring.EventBidLocked}, rec.Kinds())
}

func TestAddAssembly_LineFixedAtAddTime(t *testing.T) {
	t.Parallel()
	cat, err := catalog.NewMemory(model.Assembly{
		SKU: "ASM-X", Name: "X", MaterialUnitCost: 1.125, LaborUnitHours: 0.333,
	})
	require.NoError(t, err)
	e := NewEngine(cat, cost.NewCalculator(cost.DefaultRates()), nil)
	bid := e.StartBid("Rounding", "STANDARD")

	require.NoError(t, e.AddAssembly(bid, "ASM-X", 3))

	assert.InDelta(t, 3.38, bid.Items[0].MaterialExtended, 1e-9)
	assert.InDelta(t, 1.0, bid.Items[0].LaborExtended, 1e-9)
	assert.InDelta(t, 1.125, bid.Items[0].MaterialUnitCost, 1e-9)
}

func TestComputeRecap_Warehouse(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	bid := warehouseReno(t, e)

	r, err := e.ComputeRecap(bid, 10, 15)
	require.NoError(t, err)

	assert.Equal(t, bid.ID, r.BidID)
	assert.Equal(t, "Warehouse Reno", r.Project)
	assert.InDelta(t, 11434.05, r.RawCost, 0.01)
	assert.InDelta(t, 1143.41, r.OverheadAmount, 0.01)
	assert.InDelta(t, 12577.46, r.BreakEven, 0.02)
	assert.InDelta(t, 1886.62, r.ProfitAmount, 0.02)
	assert.InDelta(t, 14464.08, r.SellPrice, 0.02)
	assert.InDelta(t, r.ProfitAmount/r.SellPrice*100, r.MarginPercent, 1e-9)
	assert.InDelta(t, 10.0, r.OverheadPercent, 1e-9)
	assert.InDelta(t, 15.0, r.ProfitPercent, 1e-9)
}

func TestComputeRecap_EmptyBid(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	bid := e.StartBid("Nothing", "CONFINED_SPACE")

	r, err := e.ComputeRecap(bid, 10, 15)
	require.NoError(t, err)

	assert.Zero(t, r.MaterialTotal)
	assert.Zero(t, r.LaborHoursAdjusted)
	assert.Zero(t, r.RawCost)
	assert.Zero(t, r.SellPrice)
	assert.Zero(t, r.MarginPercent)
}

func TestComputeRecap_InvalidMarkup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		overhead float64
		profit   float64
	}{
		{name: "negative overhead", overhead: -1, profit: 15},
		{name: "negative profit", overhead: 10, profit: -5},
		{name: "NaN overhead", overhead: math.NaN(), profit: 15},
		{name: "NaN profit", overhead: 10, profit: math.NaN()},
		{name: "infinite overhead", overhead: math.Inf(1), profit: 15},
		{name: "infinite profit", overhead: 10, profit: math.Inf(1)},
		{name: "overflowing overhead", overhead: 1e308, profit: 15},
		{name: "overflowing profit", overhead: 10, profit: 1e308},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := newTestEngine(t)
			bid := warehouseReno(t, e)

			require.NotPanics(t, func() {
				_, err := e.ComputeRecap(bid, tt.overhead, tt.profit)
				require.ErrorIs(t, err, ErrInvalidMarkup)
			})
			assert.False(t, bid.Locked)
		})
	}
}

func TestComputeRecap_Deterministic(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	bid := warehouseReno(t, e)

	first, err := e.ComputeRecap(bid, 12, 18)
	require.NoError(t, err)
	second, err := e.ComputeRecap(bid, 12, 18)
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
}

func TestComputeRecap_WhatIfDoesNotMutate(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	bid := warehouseReno(t, e)
	before := bid.Lines()

	low, err := e.ComputeRecap(bid, 5, 5)
	require.NoError(t, err)
	high, err := e.ComputeRecap(bid, 20, 30)
	require.NoError(t, err)

	assert.Equal(t, before, bid.Items)
	assert.InDelta(t, low.RawCost, high.RawCost, 1e-9)
	assert.Greater(t, high.SellPrice, low.SellPrice)
}

func TestComputeRecap_Additive(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	combined := e.StartBid("Both", "OCCUPIED_PREMISES")
	require.NoError(t, e.AddAssembly(combined, "ASM-LIGHT-2x4", 40))
	require.NoError(t, e.AddAssembly(combined, "ASM-REC-20A", 25))

	lights := e.StartBid("Lights", "OCCUPIED_PREMISES")
	require.NoError(t, e.AddAssembly(lights, "ASM-LIGHT-2x4", 40))
	recs := e.StartBid("Receptacles", "OCCUPIED_PREMISES")
	require.NoError(t, e.AddAssembly(recs, "ASM-REC-20A", 25))

	all := Totals(combined, e.calc)
	a := Totals(lights, e.calc)
	b := Totals(recs, e.calc)

	assert.InDelta(t, a.MaterialTotal+b.MaterialTotal, all.MaterialTotal, 1e-9)
	assert.InDelta(t, a.LaborHoursAdjusted+b.LaborHoursAdjusted, all.LaborHoursAdjusted, 1e-9)
	assert.InDelta(t, a.RawCost+b.RawCost, all.RawCost, 1e-6)
}

func TestComputeRecap_DifficultyScalesLaborOnly(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	for _, cat := range model.DifficultyCategories() {
		bid := e.StartBid("Scale", string(cat))
		require.NoError(t, e.AddAssembly(bid, "ASM-REC-20A", 10))
		r := Totals(bid, e.calc)

		assert.InDelta(t, 125.0, r.MaterialTotal, 1e-9, cat)
		assert.InDelta(t, 5.0*cat.Factor(), r.LaborHoursAdjusted, 1e-9, cat)
	}
}

func TestRevise(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	bid := warehouseReno(t, e)
	_, err := e.ComputeRecap(bid, 10, 15)
	require.NoError(t, err)

	rev := e.Revise(bid)

	assert.NotEqual(t, bid.ID, rev.ID)
	assert.False(t, rev.Locked)
	assert.Equal(t, bid.Items, rev.Items)

	require.NoError(t, e.AddAssembly(rev, "ASM-REC-20A", 4))
	assert.Len(t, rev.Items, 3)
	assert.Len(t, bid.Items, 2)
}
