package geo

import (
	"math"

	"github.com/compassradar/extension/pkg/core"
)

// Map grid constants. The -1 on the half-size term and the trailing +1 were
// matched against the coordinates the game displays; keep them as they are.
const (
	mapGridUnits    float32 = 41
	mapTextureSize  float32 = 2048
	mapHalfTexture  float32 = 1024
	altitudePerUnit float32 = 100
)

// WorldToMapCoordinate converts a world position into map grid coordinates,
// truncating each component toward zero at one decimal place.
// World Y (altitude) becomes map Z, world Z becomes map Y.
func WorldToMapCoordinate(pos core.WorldPosition, m core.MapParameters) core.MapCoordinate {
	c := WorldToMapCoordinateUntruncated(pos, m)
	if c.IsNaN() {
		return c
	}
	return core.MapCoordinate{
		X: truncateOneDecimal(c.X),
		Y: truncateOneDecimal(c.Y),
		Z: truncateOneDecimal(c.Z),
	}
}

// WorldToMapCoordinateUntruncated is WorldToMapCoordinate without the final truncation.
func WorldToMapCoordinateUntruncated(pos core.WorldPosition, m core.MapParameters) core.MapCoordinate {
	if m.Scale == 0 || pos.IsNaN() {
		return core.NaNMapCoordinate()
	}
	return core.MapCoordinate{
		X: worldToMapAxis(pos.X, m.Scale, m.OffsetX),
		Y: worldToMapAxis(pos.Z, m.Scale, m.OffsetY),
		Z: worldToMapAltitude(pos.Y, m.ZOffset),
	}
}

// MapCoordinateToWorld is the algebraic inverse of WorldToMapCoordinateUntruncated.
func MapCoordinateToWorld(c core.MapCoordinate, m core.MapParameters) core.WorldPosition {
	if m.Scale == 0 || c.IsNaN() {
		return core.NaNPosition()
	}
	return core.WorldPosition{
		X: mapToWorldAxis(c.X, m.Scale, m.OffsetX),
		Y: mapToWorldAltitude(c.Z, m.ZOffset),
		Z: mapToWorldAxis(c.Y, m.Scale, m.OffsetY),
	}
}

func worldToMapAxis(v float32, scale uint16, offset int16) float32 {
	s := float32(scale) / 100
	t := float32(math.Trunc(float64(v)))
	return mapGridUnits*((t+float32(offset))*s+mapHalfTexture-1)/mapTextureSize/s + 1
}

func mapToWorldAxis(v float32, scale uint16, offset int16) float32 {
	s := float32(scale) / 100
	return ((v-1)*s*mapTextureSize/mapGridUnits+1-mapHalfTexture)/s - float32(offset)
}

// Altitude ignores the map scale; the territory offset is subtracted.
func worldToMapAltitude(worldY float32, offset int16) float32 {
	return (worldY - float32(offset)) / altitudePerUnit
}

func mapToWorldAltitude(coordZ float32, offset int16) float32 {
	return coordZ*altitudePerUnit + float32(offset)
}

func truncateOneDecimal(v float32) float32 {
	return float32(math.Trunc(float64(v*10))) / 10
}
