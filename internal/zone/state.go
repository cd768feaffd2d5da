// Package zone tracks the territory the player is in and the parameters of
// the map currently shown for it.
package zone

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/compassradar/extension/internal/geo"
	"github.com/compassradar/extension/pkg/core"
)

// Provider resolves territory and map rows. Lookups may fail for unknown ids.
type Provider interface {
	Territory(id uint32) (core.TerritoryType, error)
	Transient(territoryID uint32) (core.TerritoryTransient, error)
	Map(id uint32) (core.MapParameters, error)
	PlaceName(id uint32, lang string) (string, error)
}

// AltMapSource reports the map the client shows in place of the
// territory's own map, or 0 when there is none.
type AltMapSource interface {
	AltMapID() uint32
}

// AltMapFunc adapts a plain function to AltMapSource.
type AltMapFunc func() uint32

// AltMapID calls f.
func (f AltMapFunc) AltMapID() uint32 { return f() }

// State is the single owner of "where is the player now". It is created once
// per session and passed to the pipeline and the renderer.
type State struct {
	mu       sync.Mutex
	provider Provider
	altMap   AltMapSource
	logger   *slog.Logger

	territoryID uint32
	territory   *core.TerritoryType
	zOffset     int16

	workZone bool
	hideZone bool

	cachedMapID uint32
	cachedMap   *core.MapParameters
	mapLoaded   bool

	// Copies for LogAttrs, which must not take mu.
	logTerritory atomic.Uint32
	logMap       atomic.Uint32
}

// NewState creates an empty State. altMap and logger may be nil.
func NewState(provider Provider, altMap AltMapSource, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		provider: provider,
		altMap:   altMap,
		logger:   logger.With("component", "zone"),
		hideZone: true,
	}
}

// OnZoneChange loads the territory rows and recomputes the classification.
// Territory 0 or a failed lookup leaves the state as "unknown zone".
func (s *State) OnZoneChange(territoryID uint32) {
	s.mu.Lock()

	s.territoryID = territoryID
	s.logTerritory.Store(territoryID)
	s.territory = nil
	s.zOffset = 0

	if territoryID != 0 {
		if t, err := s.provider.Territory(territoryID); err != nil {
			s.logger.Debug("territory lookup failed", "territory", territoryID, "error", err)
		} else {
			s.territory = &t
		}
		if tt, err := s.provider.Transient(territoryID); err != nil {
			s.logger.Debug("territory transient lookup failed", "territory", territoryID, "error", err)
		} else {
			s.zOffset = tt.OffsetZ
		}
	}

	s.loadMapLocked(s.currentMapIDLocked())

	s.workZone = s.territory != nil &&
		!s.territory.IsPvPZone &&
		s.territory.BattalionMode <= core.BattalionModeNormal &&
		s.territory.IntendedUse != core.IntendedUseChocoboRace

	// Exclusive type 0 is open world; 1 and 2 are solo and party instances.
	s.hideZone = s.territory == nil || s.territory.ExclusiveType > 0

	mapID, work, hide := s.cachedMapID, s.workZone, s.hideZone
	s.mu.Unlock()

	s.logger.Info("zone changed",
		"territory", territoryID,
		"map", mapID,
		"workZone", work,
		"hideZone", hide)
}

// TerritoryID returns the id passed to the last OnZoneChange.
func (s *State) TerritoryID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.territoryID
}

// Territory returns the current territory row, or false if unknown.
func (s *State) Territory() (core.TerritoryType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.territory == nil {
		return core.TerritoryType{}, false
	}
	return *s.territory, true
}

// IsGameplayZone reports whether detection may run in the current zone.
func (s *State) IsGameplayZone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workZone
}

// IsUISuppressedZone reports whether detail panels must stay hidden.
func (s *State) IsUISuppressedZone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hideZone
}

// IsInTerritoryUse reports whether the current territory has the given intended use.
func (s *State) IsInTerritoryUse(code uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.territory != nil && s.territory.IntendedUse == code
}

// CurrentMapID resolves the alternate map first, then the territory's own map.
func (s *State) CurrentMapID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentMapIDLocked()
}

func (s *State) currentMapIDLocked() uint32 {
	if s.altMap != nil {
		if id := s.altMap.AltMapID(); id > 0 {
			return id
		}
	}
	if s.territory == nil {
		return 0
	}
	return s.territory.MapID
}

// CurrentMap returns the parameters of the current map, re-reading them
// whenever the resolved map id no longer matches the cached one. The
// returned ZOffset is the territory's altitude baseline.
func (s *State) CurrentMap() (core.MapParameters, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := s.currentMapIDLocked(); !s.mapLoaded || id != s.cachedMapID {
		s.loadMapLocked(id)
	}
	if s.cachedMap == nil {
		return core.MapParameters{}, false
	}
	m := *s.cachedMap
	m.ZOffset = s.zOffset
	return m, true
}

func (s *State) loadMapLocked(id uint32) {
	s.cachedMapID = id
	s.logMap.Store(id)
	s.cachedMap = nil
	s.mapLoaded = true
	if id == 0 {
		return
	}
	m, err := s.provider.Map(id)
	if err != nil {
		s.logger.Debug("map lookup failed", "map", id, "error", err)
		return
	}
	s.cachedMap = &m
}

// CurrentZOffset returns the territory altitude baseline, 0 when unknown.
func (s *State) CurrentZOffset() int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zOffset
}

// HasZAxis reports whether the current territory displays a Z coordinate.
func (s *State) HasZAxis() bool {
	return s.CurrentZOffset() > core.NoZAxisOffset
}

// MapCoordInCurrentMap converts pos using the current map, NaN if there is none.
func (s *State) MapCoordInCurrentMap(pos core.WorldPosition) core.MapCoordinate {
	m, ok := s.CurrentMap()
	if !ok {
		return core.NaNMapCoordinate()
	}
	return geo.WorldToMapCoordinate(pos, m)
}

// WorldPositionFromMapCoordInCurrentMap is the inverse of MapCoordInCurrentMap.
func (s *State) WorldPositionFromMapCoordInCurrentMap(c core.MapCoordinate) core.WorldPosition {
	m, ok := s.CurrentMap()
	if !ok {
		return core.NaNPosition()
	}
	return geo.MapCoordinateToWorld(c, m)
}

// FormatMapCoord formats c, adding Z only when showZ is set and the zone has an altitude axis.
func (s *State) FormatMapCoord(c core.MapCoordinate, showZ bool) string {
	return geo.FormatMapCoordinate(c, showZ && s.HasZAxis())
}

// FormatMapCoordInCurrentMap converts and formats pos in one step.
func (s *State) FormatMapCoordInCurrentMap(pos core.WorldPosition, showZ bool) string {
	return s.FormatMapCoord(s.MapCoordInCurrentMap(pos), showZ)
}

// PlaceName returns the localised place name, or fallback when it is missing.
func (s *State) PlaceName(id uint32, lang, fallback string) string {
	name, err := s.provider.PlaceName(id, lang)
	if err != nil || name == "" {
		return fallback
	}
	return name
}

// LogAttrs exposes the zone fields for logging.ContextHandler.
func (s *State) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Uint64("territory", uint64(s.logTerritory.Load())),
		slog.Uint64("map", uint64(s.logMap.Load())),
	}
}
