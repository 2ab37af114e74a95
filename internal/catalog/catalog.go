// Package catalog provides read-only lookup of assembly kits by SKU.
package catalog

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-cli/internal/model"
)

// ErrAssemblyNotFound is returned when a SKU is not in the catalog. Callers
// should treat it as a user input error.
var ErrAssemblyNotFound = eris.New("assembly not found")

// Catalog looks up assemblies by SKU.
type Catalog interface {
	Lookup(sku string) (model.Assembly, error)
}

// Memory is an immutable in-memory catalog.
type Memory struct {
	bySKU map[string]model.Assembly
}

// NewMemory builds a catalog from the given assemblies. Duplicate SKUs and
// negative costs or hours are rejected.
func NewMemory(assemblies ...model.Assembly) (*Memory, error) {
	m := &Memory{bySKU: make(map[string]model.Assembly, len(assemblies))}
	for _, a := range assemblies {
		if err := validate(a); err != nil {
			return nil, err
		}
		if _, dup := m.bySKU[a.SKU]; dup {
			return nil, eris.Errorf("catalog: duplicate sku %s", a.SKU)
		}
		m.bySKU[a.SKU] = a
	}
	return m, nil
}

// Default returns the built-in catalog.
func Default() *Memory {
	m, err := NewMemory(DefaultAssemblies()...)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup implements Catalog.
func (m *Memory) Lookup(sku string) (model.Assembly, error) {
	a, ok := m.bySKU[sku]
	if !ok {
		return model.Assembly{}, eris.Wrapf(ErrAssemblyNotFound, "catalog: sku %s", sku)
	}
	return a, nil
}

// List returns every assembly sorted by SKU.
func (m *Memory) List() []model.Assembly {
	out := make([]model.Assembly, 0, len(m.bySKU))
	for _, a := range m.bySKU {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// Len returns the number of assemblies.
func (m *Memory) Len() int {
	return len(m.bySKU)
}

func validate(a model.Assembly) error {
	if a.SKU == "" {
		return eris.New("catalog: sku is required")
	}
	if a.MaterialUnitCost < 0 {
		return eris.Errorf("catalog: %s material cost must be >= 0", a.SKU)
	}
	if a.LaborUnitHours < 0 {
		return eris.Errorf("catalog: %s labor hours must be >= 0", a.SKU)
	}
	return nil
}

// DefaultAssemblies returns the standard electrical kits.
func DefaultAssemblies() []model.Assembly {
	return []model.Assembly{
		{
			SKU:              "ASM-REC-20A",
			Name:             "20A Duplex Receptacle Complete",
			Description:      "Box, device, plate, pigtail, 15ft pipe/wire",
			MaterialUnitCost: 12.50,
			LaborUnitHours:   0.50,
			Category:         "DEVICES",
		},
		{
			SKU:              "ASM-LIGHT-2x4",
			Name:             "2x4 LED Troffer Complete",
			Description:      "Fixture, seismic wire, whip, connection",
			MaterialUnitCost: 65.00,
			LaborUnitHours:   0.75,
			Category:         "LIGHTING",
		},
		{
			SKU:              "ASM-SW-1P",
			Name:             "Single Pole Switch Complete",
			Description:      "Box, switch, plate, pigtail, 15ft pipe/wire",
			MaterialUnitCost: 9.25,
			LaborUnitHours:   0.45,
			Category:         "DEVICES",
		},
	}
}
