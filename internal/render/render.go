// Package render turns tracked objectives into draw records. It never draws
// anything itself; frames are handed to a Sink such as the overlay stream.
package render

import (
	"context"
	"time"

	"github.com/compassradar/extension/internal/objective"
	"github.com/compassradar/extension/pkg/core"
)

// Vec2 is a screen-space point or size in pixels.
type Vec2 struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
}

// Colour is an RGBA colour with components in [0, 1].
type Colour struct {
	R float32 `json:"r" yaml:"r"`
	G float32 `json:"g" yaml:"g"`
	B float32 `json:"b" yaml:"b"`
	A float32 `json:"a" yaml:"a"`
}

// DefaultIconSize is the marker icon size used unless a policy overrides it.
var DefaultIconSize = Vec2{X: 30, Y: 30}

// MarkerSpec is what a policy decides about a marker before projection.
type MarkerSpec struct {
	IconID          uint32
	IconSize        Vec2
	Scale           float32
	Text            string
	TextColour      Colour
	ShadowLightness float32
	Important       bool
	ShowOffscreen   bool
}

// Marker is a projected screen marker.
type Marker struct {
	Handle       core.EntityHandle `json:"handle" yaml:"handle"`
	Policy       string            `json:"policy" yaml:"policy"`
	IconID       uint32            `json:"iconId" yaml:"iconId"`
	IconSize     Vec2              `json:"iconSize" yaml:"iconSize"`
	Position     Vec2              `json:"position" yaml:"position"`
	OnScreen     bool              `json:"onScreen" yaml:"onScreen"`
	Rotation     float32           `json:"rotation" yaml:"rotation"`
	Text         string            `json:"text" yaml:"text"`
	TextColour   Colour            `json:"textColour" yaml:"textColour"`
	ShadowColour Colour            `json:"shadowColour" yaml:"shadowColour"`
	Important    bool              `json:"important,omitempty" yaml:"important,omitempty"`
}

// Detail is one entry of the detail panel.
type Detail struct {
	Handle   core.EntityHandle   `json:"handle" yaml:"handle"`
	Policy   string              `json:"policy" yaml:"policy"`
	Title    string              `json:"title" yaml:"title"`
	Lines    []string            `json:"lines" yaml:"lines"`
	// MapCoord is nil when no map is loaded.
	MapCoord *core.MapCoordinate `json:"mapCoord,omitempty" yaml:"mapCoord,omitempty"`
}

// MapCoordOf returns c, or nil when it is unavailable.
func MapCoordOf(c core.MapCoordinate) *core.MapCoordinate {
	if c.IsNaN() {
		return nil
	}
	return &c
}

// Frame is everything drawn for one tick.
type Frame struct {
	Seq       uint64    `json:"seq" yaml:"seq"`
	Territory uint32    `json:"territory" yaml:"territory"`
	Map       uint32    `json:"map" yaml:"map"`
	Markers   []Marker  `json:"markers" yaml:"markers"`
	Details   []Detail  `json:"details,omitempty" yaml:"details,omitempty"`
	Closest   string    `json:"closest,omitempty" yaml:"closest,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Projector maps world positions to the screen. The bool is false when
// the position is behind the camera.
type Projector interface {
	WorldToScreen(pos core.WorldPosition) (Vec2, bool)
	Viewport() Vec2
}

// Formatter formats map coordinates for the current zone.
type Formatter interface {
	FormatMapCoord(c core.MapCoordinate, showZ bool) string
}

// Drawer is implemented once per detection policy.
type Drawer interface {
	Marker(rec *objective.Cached) (MarkerSpec, bool)
	Detail(rec *objective.Cached, f Formatter) (Detail, bool)
	ClosestDescription(rec *objective.Cached) string
}

// Sink consumes frames.
type Sink interface {
	Draw(ctx context.Context, f Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f Frame) error

// Draw calls fn.
func (fn SinkFunc) Draw(ctx context.Context, f Frame) error { return fn(ctx, f) }
