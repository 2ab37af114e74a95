package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bid-cli/internal/model"
)

type catalogFile struct {
	Assemblies []model.Assembly `yaml:"assemblies"`
}

// LoadYAML reads a catalog file of the form:
//
//	assemblies:
//	  - sku: ASM-REC-20A
//	    name: 20A Duplex Receptacle Complete
//	    material_cost: 12.50
//	    labor_hours: 0.5
//	    category: DEVICES
func LoadYAML(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return ParseYAML(data)
}

// ParseYAML parses catalog YAML bytes.
func ParseYAML(data []byte) (*Memory, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "catalog: parse yaml")
	}
	if len(f.Assemblies) == 0 {
		return nil, eris.New("catalog: no assemblies defined")
	}
	return NewMemory(f.Assemblies...)
}
