// pkg/core/position.go
package core

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// WorldPosition is a position in game world space.
// X and Z span the horizontal plane, Y is altitude.
type WorldPosition struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	Z float32 `json:"z" yaml:"z"`
}

// NaNPosition is returned where a position cannot be resolved.
func NaNPosition() WorldPosition {
	nan := float32(math.NaN())
	return WorldPosition{X: nan, Y: nan, Z: nan}
}

// IsNaN reports whether any component is NaN.
func (p WorldPosition) IsNaN() bool {
	return isNaN32(p.X) || isNaN32(p.Y) || isNaN32(p.Z)
}

// MapCoordinate is a position on the in-game map grid.
// X and Y are map grid units, Z is the altitude-derived coordinate.
type MapCoordinate struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	Z float32 `json:"z" yaml:"z"`
}

// NaNMapCoordinate is returned when no map is loaded.
func NaNMapCoordinate() MapCoordinate {
	nan := float32(math.NaN())
	return MapCoordinate{X: nan, Y: nan, Z: nan}
}

// IsNaN reports whether any component is NaN.
func (c MapCoordinate) IsNaN() bool {
	return isNaN32(c.X) || isNaN32(c.Y) || isNaN32(c.Z)
}

// Point returns the coordinate as an XYZ point.
// An unresolved or invalid coordinate yields an empty point.
func (c MapCoordinate) Point() geom.Point {
	if c.IsNaN() {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(c.X), Y: float64(c.Y)},
		Z:    float64(c.Z),
		Type: geom.DimXYZ,
	})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	return pt
}

func isNaN32(f float32) bool {
	return f != f
}
