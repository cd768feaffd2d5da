package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/compassradar/extension/pkg/core"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// parseTriple parses "a,b" or "a,b,c" into three floats, c defaulting to 0.
func parseTriple(s string) (a, b, c float32, err error) {
	split := strings.Split(s, ",")
	if len(split) < 2 {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	vals := [3]float32{}
	for i := 0; i < len(split) && i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(split[i]), 32)
		if err != nil {
			return 0, 0, 0, ErrInvalidCoordinates
		}
		vals[i] = float32(v)
	}
	return vals[0], vals[1], vals[2], nil
}

// WorldPositionFromString parses "x,y" or "x,y,z" into a core.WorldPosition.
// The components are taken in world order, Y being altitude.
func WorldPositionFromString(s string) (core.WorldPosition, error) {
	x, y, z, err := parseTriple(s)
	if err != nil {
		return core.WorldPosition{}, err
	}
	return core.WorldPosition{X: x, Y: y, Z: z}, nil
}

// MapCoordinateFromString parses "x,y" or "x,y,z" into a core.MapCoordinate.
func MapCoordinateFromString(s string) (core.MapCoordinate, error) {
	x, y, z, err := parseTriple(s)
	if err != nil {
		return core.MapCoordinate{}, err
	}
	return core.MapCoordinate{X: x, Y: y, Z: z}, nil
}
