// Package cost prices labor and layers overhead and profit onto raw cost.
package cost

import (
	"fmt"
	"math"
)

// Rates holds the labor rate configuration fixed at engine construction.
type Rates struct {
	BaseLaborRate    float64 `yaml:"base_labor_rate" mapstructure:"base_labor_rate"`
	BurdenMultiplier float64 `yaml:"burden_multiplier" mapstructure:"burden_multiplier"`
}

// Markup is the result of layering overhead and profit onto a raw cost.
type Markup struct {
	Overhead      float64 `json:"overhead"`
	BreakEven     float64 `json:"break_even"`
	Profit        float64 `json:"profit"`
	SellPrice     float64 `json:"sell_price"`
	MarginPercent float64 `json:"margin_percent"`
}

// Calculator computes burdened labor cost and markups.
type Calculator struct {
	rates        Rates
	burdenedRate float64
}

// NewCalculator creates a Calculator with the given rates. The burdened
// rate is rounded to cents once, here.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{
		rates:        rates,
		burdenedRate: RoundCents(rates.BaseLaborRate * rates.BurdenMultiplier),
	}
}

// Rates returns the configured rates.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// BurdenedRate returns the hourly labor cost including burden.
func (c *Calculator) BurdenedRate() float64 {
	return c.burdenedRate
}

// AdjustLabor applies a difficulty factor to base labor hours.
func (c *Calculator) AdjustLabor(hours, factor float64) float64 {
	return hours * factor
}

// LaborCost prices adjusted labor hours at the burdened rate.
func (c *Calculator) LaborCost(adjustedHours float64) float64 {
	cost := adjustedHours * c.burdenedRate
	mustNonNegative("labor cost", cost)
	return cost
}

// Markup applies overhead to raw cost, then profit to the break-even cost.
// Margin is profit as a percentage of sell price, or 0 when nothing is sold.
func (c *Calculator) Markup(rawCost, overheadPct, profitPct float64) Markup {
	overhead := rawCost * (overheadPct / 100)
	breakEven := rawCost + overhead
	profit := breakEven * (profitPct / 100)
	sell := breakEven + profit

	margin := 0.0
	if sell > 0 {
		margin = profit / sell * 100
	}

	m := Markup{
		Overhead:      overhead,
		BreakEven:     breakEven,
		Profit:        profit,
		SellPrice:     sell,
		MarginPercent: margin,
	}
	mustNonNegative("overhead", m.Overhead)
	mustNonNegative("profit", m.Profit)
	mustNonNegative("sell price", m.SellPrice)
	mustNonNegative("margin", m.MarginPercent)
	return m
}

// DefaultRates returns $35/hr base with a 1.45 burden ($50.75/hr).
func DefaultRates() Rates {
	return Rates{BaseLaborRate: 35.00, BurdenMultiplier: 1.45}
}

// RoundCents rounds a currency amount to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// mustNonNegative panics on negative money. Inputs are validated upstream,
// so a negative here is a rate configuration defect.
func mustNonNegative(what string, v float64) {
	if v < 0 || math.IsNaN(v) {
		panic(fmt.Sprintf("cost: invariant violated: %s is %f", what, v))
	}
}
