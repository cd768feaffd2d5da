package geo

import (
	"fmt"
	"math"

	"github.com/compassradar/extension/pkg/core"
)

// UnitYalm is the distance unit suffix used in descriptive text.
const UnitYalm = " Yalm"

// SameAltitude is returned when the altitude difference is under one unit.
const SameAltitude = "At same altitude"

// UnknownAltitude is returned when there is no reference to compare against.
const UnknownAltitude = "Unknown altitude"

// DescriptiveDistance formats a distance with the Yalm suffix,
// rounded to a whole unit or to one decimal place.
func DescriptiveDistance(dist float32, integer bool) string {
	d := float64(dist)
	if integer {
		return fmt.Sprintf("%.0f", math.Round(d)) + UnitYalm
	}
	return fmt.Sprintf("%.1f", math.Round(d*10)/10) + UnitYalm
}

// DescriptiveAltitude describes how far above or below the player something is.
func DescriptiveAltitude(diff float32) string {
	if isNaN(diff) {
		return UnknownAltitude
	}
	abs := float32(math.Abs(float64(diff)))
	if abs < 1 {
		return SameAltitude
	}
	s := DescriptiveDistance(abs, true)
	if diff > 0 {
		return s + " higher than you"
	}
	return s + " lower than you"
}

// FormatMapCoordinate renders "X:_, Y:_" with an optional ", Z:_".
// Callers decide includeZ from the zone's altitude axis.
func FormatMapCoordinate(c core.MapCoordinate, includeZ bool) string {
	if includeZ {
		return fmt.Sprintf("X:%.1f, Y:%.1f, Z:%.1f", c.X, c.Y, c.Z)
	}
	return fmt.Sprintf("X:%.1f, Y:%.1f", c.X, c.Y)
}

func isNaN(f float32) bool {
	return f != f
}
