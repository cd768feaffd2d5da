package zonedata

import (
	"fmt"
	"sync"

	"github.com/compassradar/extension/pkg/core"
)

// Memory is an in-process zone data provider.
type Memory struct {
	mu          sync.RWMutex
	territories map[uint32]core.TerritoryType
	transients  map[uint32]core.TerritoryTransient
	maps        map[uint32]core.MapParameters
	placeNames  map[uint32]map[string]string
}

// NewMemory creates an empty provider.
func NewMemory() *Memory {
	return &Memory{
		territories: make(map[uint32]core.TerritoryType),
		transients:  make(map[uint32]core.TerritoryTransient),
		maps:        make(map[uint32]core.MapParameters),
		placeNames:  make(map[uint32]map[string]string),
	}
}

// Apply adds or replaces every row in data.
func (m *Memory) Apply(data SeedData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range data.Territories {
		m.territories[t.ID] = t
	}
	for _, t := range data.Transients {
		m.transients[t.ID] = t
	}
	for _, mp := range data.Maps {
		m.maps[mp.ID] = mp
	}
	for _, p := range data.PlaceNames {
		names := make(map[string]string, len(p.Names))
		for k, v := range p.Names {
			names[k] = v
		}
		m.placeNames[p.ID] = names
	}
}

// Territory returns the territory row.
func (m *Memory) Territory(id uint32) (core.TerritoryType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.territories[id]
	if !ok {
		return core.TerritoryType{}, fmt.Errorf("territory %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// Transient returns the territory transient row.
func (m *Memory) Transient(territoryID uint32) (core.TerritoryTransient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transients[territoryID]
	if !ok {
		return core.TerritoryTransient{}, fmt.Errorf("territory transient %d: %w", territoryID, ErrNotFound)
	}
	return t, nil
}

// Map returns the map row.
func (m *Memory) Map(id uint32) (core.MapParameters, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mp, ok := m.maps[id]
	if !ok {
		return core.MapParameters{}, fmt.Errorf("map %d: %w", id, ErrNotFound)
	}
	return mp, nil
}

// PlaceName returns the name in lang, falling back to English.
func (m *Memory) PlaceName(id uint32, lang string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names, ok := m.placeNames[id]
	if !ok {
		return "", fmt.Errorf("place name %d: %w", id, ErrNotFound)
	}
	return pickName(names, lang, id)
}

func pickName(names map[string]string, lang string, id uint32) (string, error) {
	if n := names[lang]; n != "" {
		return n, nil
	}
	if n := names[DefaultLanguage]; n != "" {
		return n, nil
	}
	return "", fmt.Errorf("place name %d in %q: %w", id, lang, ErrNotFound)
}

// DefaultLanguage is used when a name is missing in the requested language.
const DefaultLanguage = "en"
