// pkg/core/direction.go
package core

import "strings"

// CompassDirection is a set of cardinal flags.
// Two flags together describe an intercardinal direction.
// No flags at all means the direction could not be determined.
type CompassDirection uint8

const (
	DirectionNorth CompassDirection = 1 << iota
	DirectionSouth
	DirectionEast
	DirectionWest
)

// DirectionNaN is the undetermined direction.
const DirectionNaN CompassDirection = 0

// Has reports whether all flags in f are set.
func (d CompassDirection) Has(f CompassDirection) bool {
	return f != 0 && d&f == f
}

// IsNaN reports whether the direction is undetermined.
func (d CompassDirection) IsNaN() bool {
	return d == DirectionNaN
}

// String combines the flags into a readable direction such as "Northeast".
func (d CompassDirection) String() string {
	var vertical, horizontal string
	switch {
	case d.Has(DirectionNorth):
		vertical = "North"
	case d.Has(DirectionSouth):
		vertical = "South"
	}
	switch {
	case d.Has(DirectionEast):
		horizontal = "East"
	case d.Has(DirectionWest):
		horizontal = "West"
	}

	switch {
	case vertical == "" && horizontal == "":
		return "NaN"
	case vertical == "":
		return horizontal
	case horizontal == "":
		return vertical
	default:
		return vertical + strings.ToLower(horizontal)
	}
}
