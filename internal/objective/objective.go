// Package objective holds the per-entity records the detection pipeline
// keeps for every entity a policy has classified as worth tracking.
package objective

import (
	"github.com/compassradar/extension/internal/geo"
	"github.com/compassradar/extension/pkg/core"
)

// Tag is the classification a policy assigned to an entity.
type Tag struct {
	// Policy names the policy that produced the tag, e.g. "island".
	Policy string `json:"policy" yaml:"policy"`
	// Variant is the policy's own record kind, e.g. gathering point or animal.
	Variant uint8 `json:"variant" yaml:"variant"`
	// Category is the bit index of the sub-category in the variant's filter mask.
	Category uint8 `json:"category" yaml:"category"`
	// Label is a display name for the category, e.g. "Trees".
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// MapProjector converts world positions into the current map's coordinates.
// zone.State implements it.
type MapProjector interface {
	MapCoordInCurrentMap(pos core.WorldPosition) core.MapCoordinate
}

// Geometry is everything derived from a position relative to the player.
type Geometry struct {
	Distance3D   float32               `json:"distance3d"`
	Distance2D   float32               `json:"distance2d"`
	AltitudeDiff float32               `json:"altitudeDiff"`
	MapCoord     core.MapCoordinate    `json:"mapCoord"`
	Direction    core.CompassDirection `json:"direction"`
	Rotation     float32               `json:"rotation"`
}

// Cached is the record kept for one tracked entity. Identity fields are
// captured once; Position and Geometry change on every Refresh.
type Cached struct {
	Handle core.EntityHandle `json:"handle"`
	Name   string            `json:"name"`
	Kind   core.EntityKind   `json:"kind"`
	DataID uint32            `json:"dataId"`
	NameID uint32            `json:"nameId"`
	Tag    Tag               `json:"tag"`

	Position core.WorldPosition `json:"position"`
	Geometry

	// Refreshes counts the ticks this record has been refreshed on.
	Refreshes uint64 `json:"refreshes"`

	seq   uint64
	empty bool
}

// Empty returns the placeholder record used when there is no entity.
// Its geometry is zero-valued; use IsEmpty rather than inspecting fields.
func Empty() Cached {
	return Cached{empty: true}
}

// IsEmpty reports whether c is the placeholder record.
func (c *Cached) IsEmpty() bool {
	return c == nil || c.empty
}

// New captures the identity of e and computes its geometry immediately,
// so a record is never observed without derived fields. A nil entity
// yields Empty().
func New(e *core.Entity, tag Tag, player *core.WorldPosition, proj MapProjector) Cached {
	if e == nil {
		return Empty()
	}
	c := Cached{
		Handle: e.Handle,
		Name:   e.Name,
		Kind:   e.Kind,
		DataID: e.DataID,
		NameID: e.NameID,
		Tag:    tag,
	}
	c.Refresh(e.Position, player, proj)
	return c
}

// Refresh stores pos and recomputes the derived geometry. A nil player
// produces NaN distances and no direction; a nil projector produces a NaN
// map coordinate.
func (c *Cached) Refresh(pos core.WorldPosition, player *core.WorldPosition, proj MapProjector) {
	if c.IsEmpty() {
		return
	}
	c.Position = pos
	c.Geometry = Compute(pos, player, proj)
	c.Refreshes++
}

// Compute derives the geometry of pos relative to player.
func Compute(pos core.WorldPosition, player *core.WorldPosition, proj MapProjector) Geometry {
	g := Geometry{
		Distance3D:   geo.Distance3D(&pos, player),
		Distance2D:   geo.Distance2D(&pos, player),
		AltitudeDiff: geo.AltitudeDiff(&pos, player),
		Direction:    geo.DirectionFromPlayer(&pos, player),
		Rotation:     geo.RotationFromPlayer(&pos, player),
		MapCoord:     core.NaNMapCoordinate(),
	}
	if proj != nil {
		g.MapCoord = proj.MapCoordInCurrentMap(pos)
	}
	return g
}
