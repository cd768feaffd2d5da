// Package zonedata provides the territory, map and place name rows that
// zone.State resolves, either from memory or from a gorm database.
package zonedata

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/compassradar/extension/pkg/core"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("zone data row not found")

// PlaceNameRecord holds the localised names of one place, keyed by language code.
type PlaceNameRecord struct {
	ID    uint32            `yaml:"id"`
	Names map[string]string `yaml:"names"`
}

// SeedData is the document format of a zone data seed file.
type SeedData struct {
	Territories []core.TerritoryType      `yaml:"territories"`
	Transients  []core.TerritoryTransient `yaml:"transients"`
	Maps        []core.MapParameters      `yaml:"maps"`
	PlaceNames  []PlaceNameRecord         `yaml:"placeNames"`
}

// DecodeSeed reads a YAML seed document.
func DecodeSeed(r io.Reader) (SeedData, error) {
	var data SeedData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return SeedData{}, fmt.Errorf("decoding zone seed: %w", err)
	}
	return data, nil
}

// LoadSeedFile reads a YAML seed document from disk.
func LoadSeedFile(path string) (SeedData, error) {
	f, err := os.Open(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("opening zone seed: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}
