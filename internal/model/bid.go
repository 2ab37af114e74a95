package model

import "time"

// DifficultyCategory describes the site conditions a bid is priced under.
type DifficultyCategory string

const (
	DifficultyStandard         DifficultyCategory = "STANDARD"
	DifficultyHighCeilings     DifficultyCategory = "HIGH_CEILINGS"
	DifficultyOccupiedPremises DifficultyCategory = "OCCUPIED_PREMISES"
	DifficultyConfinedSpace    DifficultyCategory = "CONFINED_SPACE"
)

// DifficultyDefault is used for any category string that is not in the table.
// Unknown categories price at 1.0x rather than failing.
const DifficultyDefault = DifficultyStandard

var difficultyFactors = map[DifficultyCategory]float64{
	DifficultyStandard:         1.0,
	DifficultyHighCeilings:     1.2,
	DifficultyOccupiedPremises: 1.3,
	DifficultyConfinedSpace:    1.5,
}

// ParseDifficulty maps a category name to a DifficultyCategory. The second
// return value is false when the name was unknown and DifficultyDefault was
// substituted.
func ParseDifficulty(s string) (DifficultyCategory, bool) {
	c := DifficultyCategory(s)
	if _, ok := difficultyFactors[c]; ok {
		return c, true
	}
	return DifficultyDefault, false
}

// Factor returns the labor multiplier for the category.
func (c DifficultyCategory) Factor() float64 {
	if f, ok := difficultyFactors[c]; ok {
		return f
	}
	return difficultyFactors[DifficultyDefault]
}

// DifficultyCategories lists every known category in ascending factor order.
func DifficultyCategories() []DifficultyCategory {
	return []DifficultyCategory{
		DifficultyStandard,
		DifficultyHighCeilings,
		DifficultyOccupiedPremises,
		DifficultyConfinedSpace,
	}
}

// LineItem is one assembly reference on a bid. Extended values are fixed at
// the moment the line is added.
type LineItem struct {
	SKU              string  `json:"sku"`
	Name             string  `json:"name"`
	Quantity         int     `json:"quantity"`
	MaterialUnitCost float64 `json:"material_unit_cost"`
	LaborUnitHours   float64 `json:"labor_unit_hours"`
	MaterialExtended float64 `json:"material_extended"`
	LaborExtended    float64 `json:"labor_extended"`
}

// Bid is the unit of work an estimator builds up line by line.
type Bid struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Difficulty       DifficultyCategory `json:"difficulty"`
	DifficultyFactor float64            `json:"difficulty_factor"`
	Items            []LineItem         `json:"items"`
	Locked           bool               `json:"locked"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Lines returns a copy of the bid's line items.
func (b *Bid) Lines() []LineItem {
	out := make([]LineItem, len(b.Items))
	copy(out, b.Items)
	return out
}

// Recap is the computed cost summary for a bid. It is a snapshot and is
// never updated after it is produced.
type Recap struct {
	BidID              string  `json:"bid_id"`
	Project            string  `json:"project"`
	MaterialTotal      float64 `json:"material_total"`
	LaborHoursBase     float64 `json:"labor_hours_base"`
	LaborHoursAdjusted float64 `json:"labor_hours_adjusted"`
	BurdenedRate       float64 `json:"burdened_rate"`
	LaborCost          float64 `json:"labor_cost"`
	RawCost            float64 `json:"raw_cost"`
	OverheadPercent    float64 `json:"overhead_percent"`
	ProfitPercent      float64 `json:"profit_percent"`
	OverheadAmount     float64 `json:"overhead_amount"`
	BreakEven          float64 `json:"break_even"`
	ProfitAmount       float64 `json:"profit_amount"`
	SellPrice          float64 `json:"sell_price"`
	MarginPercent      float64 `json:"margin_percent"`
}
