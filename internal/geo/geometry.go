package geo

import (
	"math"

	"github.com/compassradar/extension/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

var nan32 = float32(math.NaN())

// directionSpan is sin(3π/8). A normalised heading component below it
// lies within 67.5° of the perpendicular axis, so diagonals raise two flags.
var directionSpan = math.Sin(3 * math.Pi / 8)

// Distance3D returns the euclidean distance between a and b.
// A nil position means the reference is unavailable and yields NaN.
func Distance3D(a, b *core.WorldPosition) float32 {
	if a == nil || b == nil {
		return nan32
	}
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// Distance2D returns the distance between a and b on the horizontal plane.
func Distance2D(a, b *core.WorldPosition) float32 {
	if a == nil || b == nil {
		return nan32
	}
	return float32(horizontal(a, b).Length())
}

// AltitudeDiff returns a.Y - b.Y, positive when a is above b.
func AltitudeDiff(a, b *core.WorldPosition) float32 {
	if a == nil || b == nil {
		return nan32
	}
	return a.Y - b.Y
}

// RotationFromPlayer returns atan2(dx, dz) in radians.
// The argument order follows the game's screen-forward convention.
func RotationFromPlayer(target, player *core.WorldPosition) float32 {
	if target == nil || player == nil {
		return nan32
	}
	return float32(math.Atan2(float64(target.X-player.X), float64(target.Z-player.Z)))
}

// DirectionFromPlayer classifies the heading from player to target into compass flags.
// Positive Z is south and positive X is east.
func DirectionFromPlayer(target, player *core.WorldPosition) core.CompassDirection {
	if target == nil || player == nil {
		return core.DirectionNaN
	}
	vec := normalize(horizontal(target, player))

	var d core.CompassDirection
	if math.Abs(vec.X) < directionSpan {
		if vec.Y > 0 {
			d |= core.DirectionSouth
		} else {
			d |= core.DirectionNorth
		}
	}
	if math.Abs(vec.Y) < directionSpan {
		if vec.X > 0 {
			d |= core.DirectionEast
		} else {
			d |= core.DirectionWest
		}
	}
	return d
}

// horizontal returns the (X, Z) offset from b to a.
func horizontal(a, b *core.WorldPosition) geom.XY {
	return geom.XY{X: float64(a.X), Y: float64(a.Z)}.Sub(geom.XY{X: float64(b.X), Y: float64(b.Z)})
}

// normalize scales v to unit length. The zero vector normalises to NaN
// components, which fail both band checks and so raise no flags.
func normalize(v geom.XY) geom.XY {
	l := v.Length()
	if l == 0 {
		return geom.XY{X: math.NaN(), Y: math.NaN()}
	}
	return v.Scale(1 / l)
}
