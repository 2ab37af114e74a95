package model

// Assembly is a buildable kit: the aggregate material and labor to install
// one unit, e.g. a complete duplex receptacle.
type Assembly struct {
	SKU              string  `json:"sku" yaml:"sku"`
	Name             string  `json:"name" yaml:"name"`
	Description      string  `json:"description,omitempty" yaml:"description"`
	MaterialUnitCost float64 `json:"material_unit_cost" yaml:"material_cost"`
	LaborUnitHours   float64 `json:"labor_unit_hours" yaml:"labor_hours"`
	Category         string  `json:"category" yaml:"category"`
}
