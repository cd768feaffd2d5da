// pkg/core/zone.go
package core

// NoZAxisOffset marks territories that have no altitude axis on their map.
const NoZAxisOffset int16 = -10000

// BattalionModeNormal is the highest battalion mode used by ordinary zones.
// Higher values denote PvP content and instanced minigames.
const BattalionModeNormal uint8 = 1

// Territory intended-use codes referenced by the zone classification.
const (
	IntendedUseChocoboRace     uint8 = 20
	IntendedUseIslandSanctuary uint8 = 49
)

// TerritoryType describes a territory row from the zone data sheets.
type TerritoryType struct {
	ID            uint32 `json:"id" yaml:"id"`
	MapID         uint32 `json:"mapId" yaml:"mapId"`
	PlaceNameID   uint32 `json:"placeNameId" yaml:"placeNameId"`
	IsPvPZone     bool   `json:"isPvpZone" yaml:"isPvpZone"`
	BattalionMode uint8  `json:"battalionMode" yaml:"battalionMode"`
	IntendedUse   uint8  `json:"intendedUse" yaml:"intendedUse"`
	// ExclusiveType is 0 for open world, 1 for solo instances, 2 for party instances.
	ExclusiveType uint8 `json:"exclusiveType" yaml:"exclusiveType"`
}

// TerritoryTransient holds per-territory data that is not part of the map.
type TerritoryTransient struct {
	ID      uint32 `json:"id" yaml:"id"`
	OffsetZ int16  `json:"offsetZ" yaml:"offsetZ"`
}

// MapParameters are the transform constants for a single map.
// Scale is a percentage, 100 meaning 1.0x.
type MapParameters struct {
	ID      uint32 `json:"id" yaml:"id"`
	Scale   uint16 `json:"scale" yaml:"scale"`
	OffsetX int16  `json:"offsetX" yaml:"offsetX"`
	OffsetY int16  `json:"offsetY" yaml:"offsetY"`
	// ZOffset comes from the territory, not from the map row.
	ZOffset int16 `json:"zOffset" yaml:"zOffset"`
}

// HasZAxis reports whether the altitude coordinate is meaningful.
func (m MapParameters) HasZAxis() bool {
	return m.ZOffset > NoZAxisOffset
}
