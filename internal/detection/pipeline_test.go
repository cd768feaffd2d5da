package detection

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/geo"
	"github.com/compassradar/extension/internal/objective"
	"github.com/compassradar/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct {
	player   *core.WorldPosition
	order    []core.EntityHandle
	entities map[core.EntityHandle]core.Entity
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		player:   &core.WorldPosition{},
		entities: make(map[core.EntityHandle]core.Entity),
	}
}

func (w *fakeWorld) put(h core.EntityHandle, name string, kind core.EntityKind, x, y, z float32) {
	if _, ok := w.entities[h]; !ok {
		w.order = append(w.order, h)
	}
	w.entities[h] = core.Entity{
		Handle:   h,
		Name:     name,
		Kind:     kind,
		Position: core.WorldPosition{X: x, Y: y, Z: z},
	}
}

// remove drops the entity but keeps its handle listed, so Resolve fails.
func (w *fakeWorld) remove(h core.EntityHandle) {
	delete(w.entities, h)
}

func (w *fakeWorld) LocalPlayer() (core.WorldPosition, bool) {
	if w.player == nil {
		return core.WorldPosition{}, false
	}
	return *w.player, true
}

func (w *fakeWorld) Entities() []core.EntityHandle { return w.order }

func (w *fakeWorld) Resolve(h core.EntityHandle) (core.Entity, bool) {
	e, ok := w.entities[h]
	return e, ok
}

type fakeZone struct {
	gameplay    bool
	intendedUse uint8
	changes     []uint32
}

func (z *fakeZone) MapCoordInCurrentMap(pos core.WorldPosition) core.MapCoordinate {
	return geo.WorldToMapCoordinate(pos, core.MapParameters{Scale: 100})
}
func (z *fakeZone) OnZoneChange(id uint32)           { z.changes = append(z.changes, id) }
func (z *fakeZone) IsGameplayZone() bool             { return z.gameplay }
func (z *fakeZone) IsInTerritoryUse(code uint8) bool { return z.intendedUse == code }

type funcPolicy struct {
	name    string
	enabled func(Zone) bool
	accept  func(*core.Entity) bool
	calls   int
}

func (p *funcPolicy) Name() string { return p.name }

func (p *funcPolicy) EnabledIn(z Zone) bool {
	if p.enabled == nil {
		return true
	}
	return p.enabled(z)
}

func (p *funcPolicy) Classify(e *core.Entity) (objective.Tag, bool) {
	p.calls++
	if !p.accept(e) {
		return objective.Tag{}, false
	}
	return objective.Tag{Variant: uint8(e.Kind)}, true
}

type fixedSettings config.DetectionConfig

func (s fixedSettings) Detection() config.DetectionConfig { return config.DetectionConfig(s) }

func acceptAll(*core.Entity) bool { return true }

func newPipeline(t *testing.T, w *fakeWorld, z *fakeZone, s Settings, policies ...Policy) *Pipeline {
	t.Helper()
	p, err := New(w, z, s, nil, policies...)
	require.NoError(t, err)
	return p
}

func TestScan_TrackedRecordRefreshesEveryTick(t *testing.T) {
	w := newFakeWorld()
	z := &fakeZone{gameplay: true}
	p := newPipeline(t, w, z, nil, &funcPolicy{name: "test", accept: acceptAll})

	w.put(1, "Island Apple Tree", core.KindMjiObject, 0, 0, -10)

	for tick := 1; tick <= 5; tick++ {
		res, err := p.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Tracked)

		all := p.Objectives()
		require.Len(t, all, 1)
		rec := all[0]
		assert.Equal(t, uint64(tick), rec.Refreshes)
		assert.Equal(t, float32(tick-1), rec.Position.X)
		want := geo.Distance3D(&rec.Position, &core.WorldPosition{})
		assert.InDelta(t, want, rec.Distance3D, 1e-5)
		assert.Equal(t, "test", rec.Tag.Policy)

		w.put(1, "renamed every tick", core.KindMjiObject, float32(tick), 0, -10)
	}

	all := p.Objectives()
	assert.Equal(t, "Island Apple Tree", all[0].Name, "identity is captured on first detection")

	stats := p.Stats()
	assert.Equal(t, uint64(5), stats.Ticks)
	assert.Equal(t, uint64(1), stats.Created)
	assert.Equal(t, 1, stats.Tracked)
}

func TestScan_CreateResultCounts(t *testing.T) {
	w := newFakeWorld()
	p := newPipeline(t, w, &fakeZone{gameplay: true}, nil, &funcPolicy{name: "test", accept: acceptAll})
	w.put(1, "a", core.KindMjiObject, 1, 0, 0)
	w.put(2, "b", core.KindMjiObject, 2, 0, 0)

	res, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Refreshed)

	res, err = p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Refreshed)
}

func TestScan_EvictsOnTheVeryNextTick(t *testing.T) {
	w := newFakeWorld()
	accept := true
	pol := &funcPolicy{name: "test", accept: func(e *core.Entity) bool { return accept || e.Handle != 1 }}
	p := newPipeline(t, w, &fakeZone{gameplay: true}, nil, pol)

	w.put(1, "leaves policy", core.KindMjiObject, 1, 0, 0)
	w.put(2, "stays", core.KindMjiObject, 2, 0, 0)
	_, err := p.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Objectives(), 2)

	accept = false
	res, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evicted)
	all := p.Objectives()
	require.Len(t, all, 1)
	assert.Equal(t, core.EntityHandle(2), all[0].Handle)
}

func TestScan_EvictsStaleHandles(t *testing.T) {
	w := newFakeWorld()
	p := newPipeline(t, w, &fakeZone{gameplay: true}, nil, &funcPolicy{name: "test", accept: acceptAll})
	w.put(1, "a", core.KindMjiObject, 1, 0, 0)
	_, err := p.Scan(context.Background())
	require.NoError(t, err)

	w.remove(1)
	res, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Tracked)
	assert.Equal(t, 1, res.Evicted)
}

func TestScan_MaxDistance(t *testing.T) {
	w := newFakeWorld()
	s := fixedSettings{MaxDistance: 50}
	p := newPipeline(t, w, &fakeZone{gameplay: true}, s, &funcPolicy{name: "test", accept: acceptAll})

	w.put(1, "near", core.KindMjiObject, 10, 0, 0)
	w.put(2, "far", core.KindMjiObject, 80, 0, 0)
	_, err := p.Scan(context.Background())
	require.NoError(t, err)
	all := p.Objectives()
	require.Len(t, all, 1)
	assert.Equal(t, "near", all[0].Name)

	// Walking away evicts it.
	w.put(1, "near", core.KindMjiObject, 60, 0, 0)
	res, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Tracked)
	assert.Equal(t, 1, res.Evicted)
}

func TestScan_ZoneGate(t *testing.T) {
	w := newFakeWorld()
	z := &fakeZone{gameplay: false}
	pol := &funcPolicy{name: "test", accept: acceptAll}
	p := newPipeline(t, w, z, nil, pol)
	w.put(1, "a", core.KindMjiObject, 1, 0, 0)

	res, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Gated)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 0, pol.calls, "policies never run outside gameplay zones")
	closest := p.Closest()
	assert.True(t, closest.IsEmpty())

	z.gameplay = true
	_, err = p.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Objectives(), 1)

	// A gated tick neither refreshes nor evicts.
	z.gameplay = false
	w.remove(1)
	res, err = p.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Gated)
	assert.Equal(t, 1, res.Tracked)
	all := p.Objectives()
	require.Len(t, all, 1)
	assert.Equal(t, uint64(1), all[0].Refreshes)
	assert.Equal(t, uint64(2), p.Stats().Gated)
}

func TestOnZoneChange_ClearsTrackedRecords(t *testing.T) {
	w := newFakeWorld()
	z := &fakeZone{gameplay: true}
	p := newPipeline(t, w, z, nil, &funcPolicy{name: "test", accept: acceptAll})
	w.put(1, "a", core.KindMjiObject, 1, 0, 0)
	_, err := p.Scan(context.Background())
	require.NoError(t, err)

	p.OnZoneChange(1055)
	assert.Empty(t, p.Objectives())
	assert.Equal(t, []uint32{1055}, z.changes)
	assert.Equal(t, uint64(1), p.Stats().Evicted)
	assert.Equal(t, 0, p.Stats().Tracked)
}

func TestScan_PolicyDisabledInZoneEvicts(t *testing.T) {
	w := newFakeWorld()
	z := &fakeZone{gameplay: true, intendedUse: core.IntendedUseIslandSanctuary}
	pol := &funcPolicy{
		name:    "island",
		enabled: func(z Zone) bool { return z.IsInTerritoryUse(core.IntendedUseIslandSanctuary) },
		accept:  acceptAll,
	}
	p := newPipeline(t, w, z, nil, pol)
	w.put(1, "a", core.KindMjiObject, 1, 0, 0)

	_, err := p.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Objectives(), 1)

	z.intendedUse = 0
	res, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scanned)
	assert.Equal(t, 1, res.Evicted)
}

func TestScan_FirstMatchingPolicyWins(t *testing.T) {
	w := newFakeWorld()
	first := &funcPolicy{name: "first", accept: func(e *core.Entity) bool { return e.Kind == core.KindMjiObject }}
	second := &funcPolicy{name: "second", accept: acceptAll}
	p := newPipeline(t, w, &fakeZone{gameplay: true}, nil, first, second)

	w.put(1, "object", core.KindMjiObject, 1, 0, 0)
	w.put(2, "animal", core.KindBattleNpc, 2, 0, 0)
	_, err := p.Scan(context.Background())
	require.NoError(t, err)

	all := p.Objectives()
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Tag.Policy)
	assert.Equal(t, "second", all[1].Tag.Policy)
	assert.Len(t, p.Policies(), 2)
}

func TestScan_ClosestTieIsFirstDetected(t *testing.T) {
	w := newFakeWorld()
	p := newPipeline(t, w, &fakeZone{gameplay: true}, nil, &funcPolicy{name: "test", accept: acceptAll})

	w.put(7, "far", core.KindMjiObject, 12, 0, 0)
	w.put(3, "tied first", core.KindMjiObject, 0, 0, -4.5)
	w.put(5, "tied second", core.KindMjiObject, 4.5, 0, 0)

	for i := 0; i < 3; i++ {
		res, err := p.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tied first", res.Closest.Name)
	}
	assert.Equal(t, core.EntityHandle(3), p.Closest().Handle)
}

func TestScan_NoPlayerYieldsUnknownGeometry(t *testing.T) {
	w := newFakeWorld()
	w.player = nil
	s := fixedSettings{MaxDistance: 10}
	p := newPipeline(t, w, &fakeZone{gameplay: true}, s, &funcPolicy{name: "test", accept: acceptAll})
	w.put(1, "a", core.KindMjiObject, 100, 0, 0)

	res, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tracked, "unknown distance is not beyond the bound")
	assert.True(t, res.Closest.IsEmpty())
	assert.True(t, math.IsNaN(float64(p.Objectives()[0].Distance3D)))
}

func TestScan_PolicyPanicSkipsTick(t *testing.T) {
	w := newFakeWorld()
	explode := false
	pol := &funcPolicy{name: "test", accept: func(e *core.Entity) bool {
		if explode {
			panic("bad row")
		}
		return true
	}}
	p := newPipeline(t, w, &fakeZone{gameplay: true}, nil, pol)
	w.put(1, "a", core.KindMjiObject, 1, 0, 0)
	_, err := p.Scan(context.Background())
	require.NoError(t, err)

	explode = true
	w.put(1, "a", core.KindMjiObject, 9, 0, 0)
	_, err = p.Scan(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPolicyPanic))

	all := p.Objectives()
	require.Len(t, all, 1)
	assert.Equal(t, float32(1), all[0].Position.X, "a skipped tick leaves records as they were")
	assert.Equal(t, uint64(1), p.Stats().Panics)
}

func TestScan_CancelledContext(t *testing.T) {
	p := newPipeline(t, newFakeWorld(), &fakeZone{gameplay: true}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), p.Stats().Ticks)
}

func TestLogAttrs(t *testing.T) {
	w := newFakeWorld()
	p := newPipeline(t, w, &fakeZone{gameplay: true}, nil, &funcPolicy{name: "test", accept: acceptAll})
	w.put(1, "a", core.KindMjiObject, 1, 0, 0)
	_, err := p.Scan(context.Background())
	require.NoError(t, err)

	attrs := p.LogAttrs()
	require.Len(t, attrs, 1)
	assert.Equal(t, "tracked", attrs[0].Key)
	assert.Equal(t, int64(1), attrs[0].Value.Int64())
}
