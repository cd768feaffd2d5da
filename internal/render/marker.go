package render

import (
	"math"

	"github.com/compassradar/extension/internal/objective"
)

// ScreenMarker projects rec using the marker settings in ms. Off-screen
// targets are pinned to the viewport edge in the direction of the target,
// or dropped unless ms.ShowOffscreen is set. Nothing is drawn without a viewport.
func ScreenMarker(rec *objective.Cached, ms MarkerSpec, proj Projector) (Marker, bool) {
	if rec.IsEmpty() || proj == nil || rec.Position.IsNaN() {
		return Marker{}, false
	}

	scale := ms.Scale
	if scale <= 0 {
		scale = 1
	}
	size := ms.IconSize
	if size == (Vec2{}) {
		size = DefaultIconSize
	}
	size = Vec2{X: size.X * scale, Y: size.Y * scale}

	vp := proj.Viewport()
	if vp.X <= 0 || vp.Y <= 0 {
		return Marker{}, false
	}
	p, inFront := proj.WorldToScreen(rec.Position)
	onScreen := inFront && p.X >= 0 && p.Y >= 0 && p.X <= vp.X && p.Y <= vp.Y
	if !onScreen && !ms.ShowOffscreen {
		return Marker{}, false
	}

	m := Marker{
		Handle:     rec.Handle,
		Policy:     rec.Tag.Policy,
		IconID:     ms.IconID,
		IconSize:   size,
		Position:   p,
		OnScreen:   onScreen,
		Text:       ms.Text,
		TextColour: ms.TextColour,
		ShadowColour: Colour{
			R: ms.ShadowLightness,
			G: ms.ShadowLightness,
			B: ms.ShadowLightness,
			A: ms.TextColour.A,
		},
		Important: ms.Important,
	}
	if !onScreen {
		m.Position, m.Rotation = pinToEdge(p, inFront, vp, size)
	}
	return m, true
}

// pinToEdge moves p along the ray from the viewport centre until it sits on
// the viewport border, inset by half the icon size. Positions behind the
// camera project mirrored, so their ray is flipped.
func pinToEdge(p Vec2, inFront bool, vp, icon Vec2) (Vec2, float32) {
	cx, cy := float64(vp.X)/2, float64(vp.Y)/2
	dx, dy := float64(p.X)-cx, float64(p.Y)-cy
	if !inFront {
		dx, dy = -dx, -dy
	}
	if dx == 0 && dy == 0 {
		dy = 1
	}

	hx := math.Max(cx-float64(icon.X)/2, 0)
	hy := math.Max(cy-float64(icon.Y)/2, 0)
	t := math.Inf(1)
	if dx != 0 {
		t = math.Min(t, hx/math.Abs(dx))
	}
	if dy != 0 {
		t = math.Min(t, hy/math.Abs(dy))
	}

	pos := Vec2{X: float32(cx + dx*t), Y: float32(cy + dy*t)}
	return pos, float32(math.Atan2(dy, dx))
}
