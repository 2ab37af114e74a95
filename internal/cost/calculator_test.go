package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBurdenedRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rates Rates
		want  float64
	}{
		{"default", DefaultRates(), 50.75},
		{"no burden", Rates{BaseLaborRate: 40, BurdenMultiplier: 1}, 40},
		{"rounds to cents", Rates{BaseLaborRate: 33.33, BurdenMultiplier: 1.333}, 44.43},
		{"zero rate", Rates{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, NewCalculator(tt.rates).BurdenedRate(), 0.0001)
		})
	}
}

func TestLaborCost(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	adjusted := calc.AdjustLabor(79.5, 1.2)
	assert.InDelta(t, 95.4, adjusted, 0.0001)
	// 95.4 * 50.75
	assert.InDelta(t, 4841.55, calc.LaborCost(adjusted), 0.01)
}

func TestMarkup(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	tests := []struct {
		name        string
		raw         float64
		overheadPct float64
		profitPct   float64
		want        Markup
	}{
		{
			name: "warehouse reno",
			raw:  11434.05, overheadPct: 10, profitPct: 15,
			// overhead 1143.405, break-even 12577.455, profit 1886.618, sell 14464.073
			want: Markup{Overhead: 1143.41, BreakEven: 12577.46, Profit: 1886.62, SellPrice: 14464.08, MarginPercent: 13.04},
		},
		{
			name: "no markup",
			raw:  1000, overheadPct: 0, profitPct: 0,
			want: Markup{BreakEven: 1000, SellPrice: 1000},
		},
		{
			name: "zero cost",
			raw:  0, overheadPct: 10, profitPct: 15,
			want: Markup{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Markup(tt.raw, tt.overheadPct, tt.profitPct)
			assert.InDelta(t, tt.want.Overhead, got.Overhead, 0.01)
			assert.InDelta(t, tt.want.BreakEven, got.BreakEven, 0.01)
			assert.InDelta(t, tt.want.Profit, got.Profit, 0.01)
			assert.InDelta(t, tt.want.SellPrice, got.SellPrice, 0.02)
			assert.InDelta(t, tt.want.MarginPercent, got.MarginPercent, 0.01)
		})
	}
}

func TestMarkup_MarginIdentity(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	for _, raw := range []float64{1, 99.99, 12577.46, 2_500_000} {
		for _, pct := range []float64{0, 5, 12.5, 40} {
			m := calc.Markup(raw, pct, pct)
			if m.SellPrice > 0 {
				assert.InDelta(t, m.Profit/m.SellPrice*100, m.MarginPercent, 0.01)
			}
		}
	}
}

func TestMarkup_NegativePanics(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	assert.Panics(t, func() { calc.Markup(-100, 10, 15) })
}

func TestLaborCost_NegativeRatePanics(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(Rates{BaseLaborRate: -35, BurdenMultiplier: 1.45})

	assert.Panics(t, func() { calc.LaborCost(10) })
}

func TestRoundCents(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 6592.50, RoundCents(6592.4999999), 0.00001)
	assert.InDelta(t, 1.01, RoundCents(1.005000001), 0.00001)
	assert.InDelta(t, 0, RoundCents(0), 0.00001)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()

	r := DefaultRates()
	assert.InDelta(t, 35.0, r.BaseLaborRate, 0.001)
	assert.InDelta(t, 1.45, r.BurdenMultiplier, 0.001)
}
