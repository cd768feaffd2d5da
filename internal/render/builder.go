package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/compassradar/extension/internal/geo"
	"github.com/compassradar/extension/internal/objective"
)

// ZoneView is the zone information the builder needs.
type ZoneView interface {
	Formatter
	TerritoryID() uint32
	CurrentMapID() uint32
	IsUISuppressedZone() bool
}

// Builder assembles frames from tracked objectives using the drawer
// registered for each record's policy.
type Builder struct {
	zone    ZoneView
	proj    Projector
	drawers map[string]Drawer

	mu  sync.Mutex
	seq uint64
}

// NewBuilder creates a Builder. proj may be nil, in which case frames carry
// no markers.
func NewBuilder(zone ZoneView, proj Projector, drawers map[string]Drawer) *Builder {
	return &Builder{zone: zone, proj: proj, drawers: drawers}
}

// Build creates the frame for the given records. Detail panels are left
// out in zones that suppress UI.
func (b *Builder) Build(objs []objective.Cached, closest objective.Cached, now time.Time) Frame {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	f := Frame{
		Seq:       seq,
		Territory: b.zone.TerritoryID(),
		Map:       b.zone.CurrentMapID(),
		Markers:   make([]Marker, 0, len(objs)),
		Timestamp: now,
	}
	suppressed := b.zone.IsUISuppressedZone()

	for i := range objs {
		rec := &objs[i]
		d, ok := b.drawers[rec.Tag.Policy]
		if !ok {
			continue
		}
		if spec, ok := d.Marker(rec); ok {
			if m, ok := ScreenMarker(rec, spec, b.proj); ok {
				f.Markers = append(f.Markers, m)
			}
		}
		if !suppressed {
			if det, ok := d.Detail(rec, b.zone); ok {
				f.Details = append(f.Details, det)
			}
		}
	}

	if !closest.IsEmpty() {
		if d, ok := b.drawers[closest.Tag.Policy]; ok {
			f.Closest = ClosestSummary(d.ClosestDescription(&closest), &closest)
		}
	}
	return f
}

// ClosestSummary is the one-line text shown for the closest objective.
func ClosestSummary(descr string, rec *objective.Cached) string {
	return fmt.Sprintf("%s, %s, %s",
		descr, rec.Direction, geo.DescriptiveDistance(rec.Distance3D, true))
}

// Recorder is a Sink that keeps every frame in memory.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
}

// Draw records f.
func (r *Recorder) Draw(_ context.Context, f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

// Frames returns the recorded frames.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Last returns the most recent frame.
func (r *Recorder) Last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}
