package island

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/compassradar/extension/internal/detection"
)

//go:embed tables.yaml
var defaultTables []byte

// GatherType groups gathering objects by their map icon.
type GatherType uint8

const (
	GatherUnknown GatherType = iota
	GatherCrops
	GatherTrees
	GatherRocks
	GatherSands
	GatherSea
)

var gatherTypeNames = [...]string{"Unknown", "Crops", "Trees", "Rocks", "Sands", "Sea"}

func (g GatherType) String() string {
	if int(g) < len(gatherTypeNames) {
		return gatherTypeNames[g]
	}
	return gatherTypeNames[0]
}

// GatherTypeForIcon classifies a gathering object by its map icon id.
func GatherTypeForIcon(iconID uint32) GatherType {
	switch iconID {
	case 63963:
		return GatherCrops
	case 63964:
		return GatherTrees
	case 63965:
		return GatherRocks
	case 63966:
		return GatherSands
	case 63967:
		return GatherSea
	}
	return GatherUnknown
}

// GatherObject is a gathering object row, keyed by the object's name id.
type GatherObject struct {
	Row    uint8  `yaml:"row"`
	NpcID  uint32 `yaml:"npcId"`
	IconID uint32 `yaml:"iconId"`
	Name   string `yaml:"name"`
}

// Type returns the gather type derived from the icon.
func (g GatherObject) Type() GatherType { return GatherTypeForIcon(g.IconID) }

// Animal is an animal row, keyed by the animal's data id.
type Animal struct {
	Row    uint8  `yaml:"row"`
	DataID uint32 `yaml:"dataId"`
	IconID uint32 `yaml:"iconId"`
	Name   string `yaml:"name"`
}

// Tables holds both lookup tables in row order. Row is the bit index in
// the matching filter mask.
type Tables struct {
	Gathering []GatherObject `yaml:"gathering"`
	Animals   []Animal       `yaml:"animals"`
}

// DecodeTables parses tables from YAML and validates row indices.
func DecodeTables(data []byte) (Tables, error) {
	var t Tables
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Tables{}, fmt.Errorf("decoding island tables: %w", err)
	}
	for _, g := range t.Gathering {
		if g.Row >= detection.MaxCategories {
			return Tables{}, fmt.Errorf("gathering object %q: row %d does not fit the filter mask", g.Name, g.Row)
		}
	}
	for _, a := range t.Animals {
		if a.Row >= detection.MaxCategories {
			return Tables{}, fmt.Errorf("animal %q: row %d does not fit the filter mask", a.Name, a.Row)
		}
	}
	return t, nil
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() (Tables, error) {
	return DecodeTables(defaultTables)
}
