package driver

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/compassradar/extension/internal/detection"
	"github.com/compassradar/extension/internal/render"
	"github.com/compassradar/extension/internal/zone"
	"github.com/compassradar/extension/pkg/core"
)

// Camera is the host camera for one frame. ViewProjection is row-major and
// maps world positions to clip space.
type Camera struct {
	ViewProjection [16]float32 `json:"viewProjection" yaml:"viewProjection"`
	Width          float32     `json:"width" yaml:"width"`
	Height         float32     `json:"height" yaml:"height"`
}

// WorldToScreen projects pos into pixels. Points behind the camera are
// still projected, mirrored, and reported with false.
func (c *Camera) WorldToScreen(pos core.WorldPosition) (render.Vec2, bool) {
	m := &c.ViewProjection
	x, y, z := pos.X, pos.Y, pos.Z
	cx := m[0]*x + m[1]*y + m[2]*z + m[3]
	cy := m[4]*x + m[5]*y + m[6]*z + m[7]
	cw := m[12]*x + m[13]*y + m[14]*z + m[15]

	inFront := cw > 0
	if cw == 0 {
		cw = 1e-6
	}
	nx, ny := cx/cw, cy/cw
	return render.Vec2{
		X: (nx + 1) / 2 * c.Width,
		Y: (1 - ny) / 2 * c.Height,
	}, inFront
}

// Viewport returns the screen size.
func (c *Camera) Viewport() render.Vec2 {
	return render.Vec2{X: c.Width, Y: c.Height}
}

// Snapshot is the host's view of the world for one frame.
type Snapshot struct {
	Player   *core.WorldPosition `json:"player,omitempty" yaml:"player,omitempty"`
	Entities []core.Entity       `json:"entities" yaml:"entities"`
	Camera   *Camera             `json:"camera,omitempty" yaml:"camera,omitempty"`
	AltMapID uint32              `json:"altMapId,omitempty" yaml:"altMapId,omitempty"`
}

// DecodeSnapshot parses a JSON snapshot sent by the host.
func DecodeSnapshot(data string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return s, nil
}

// World holds the latest snapshot. It is the entity accessor for the
// pipeline, the projector for the renderer and the alternate map source
// for the zone state.
type World struct {
	mu       sync.RWMutex
	snap     Snapshot
	byHandle map[core.EntityHandle]int
}

var (
	_ detection.EntityAccessor = (*World)(nil)
	_ render.Projector         = (*World)(nil)
	_ zone.AltMapSource        = (*World)(nil)
)

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{byHandle: map[core.EntityHandle]int{}}
}

// Update replaces the snapshot. Later entities win on duplicate handles.
func (w *World) Update(s Snapshot) {
	idx := make(map[core.EntityHandle]int, len(s.Entities))
	for i := range s.Entities {
		idx[s.Entities[i].Handle] = i
	}
	w.mu.Lock()
	w.snap = s
	w.byHandle = idx
	w.mu.Unlock()
}

// LocalPlayer returns the player position, if the host sent one.
func (w *World) LocalPlayer() (core.WorldPosition, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.snap.Player == nil {
		return core.WorldPosition{}, false
	}
	return *w.snap.Player, true
}

// Entities lists the live handles in snapshot order.
func (w *World) Entities() []core.EntityHandle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]core.EntityHandle, 0, len(w.snap.Entities))
	for _, e := range w.snap.Entities {
		out = append(out, e.Handle)
	}
	return out
}

// Resolve returns the entity for h.
func (w *World) Resolve(h core.EntityHandle) (core.Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i, ok := w.byHandle[h]
	if !ok {
		return core.Entity{}, false
	}
	return w.snap.Entities[i], true
}

// WorldToScreen projects through the snapshot camera. Without a camera
// nothing is in front.
func (w *World) WorldToScreen(pos core.WorldPosition) (render.Vec2, bool) {
	w.mu.RLock()
	cam := w.snap.Camera
	w.mu.RUnlock()
	if cam == nil {
		return render.Vec2{}, false
	}
	return cam.WorldToScreen(pos)
}

// Viewport returns the camera viewport, or zero without a camera.
func (w *World) Viewport() render.Vec2 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.snap.Camera == nil {
		return render.Vec2{}
	}
	return w.snap.Camera.Viewport()
}

// AltMapID returns the alternate map id reported by the host.
func (w *World) AltMapID() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snap.AltMapID
}
