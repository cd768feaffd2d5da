package driver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/detection"
	"github.com/compassradar/extension/internal/dispatcher"
	"github.com/compassradar/extension/internal/logging"
	"github.com/compassradar/extension/internal/policy/island"
	"github.com/compassradar/extension/internal/quest"
	"github.com/compassradar/extension/internal/render"
	"github.com/compassradar/extension/internal/zonedata"
	"github.com/compassradar/extension/pkg/core"
	"github.com/compassradar/extension/pkg/streaming"
)

const (
	islandTerritory = 1055
	openTerritory   = 132
	pvpTerritory    = 1000
)

type testSettings struct {
	mu  sync.Mutex
	det config.DetectionConfig
	isl config.IslandConfig
	ntf config.NotifyConfig
}

func (s *testSettings) Detection() config.DetectionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.det
}

func (s *testSettings) Island() config.IslandConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isl
}

func (s *testSettings) Notify() config.NotifyConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ntf
}

func newSettings() *testSettings {
	return &testSettings{
		det: config.DetectionConfig{ClosestSummary: true},
		isl: config.IslandConfig{
			Enabled:         true,
			DetectGathering: true,
			DetectAnimals:   true,
			GatheringMask:   uint32(detection.MaskAll),
			AnimalMask:      uint32(detection.MaskAll),
		},
		ntf: config.NotifyConfig{Chat: true, Toast: true, Cooldown: 3 * time.Second},
	}
}

var testTables = island.Tables{
	Gathering: []island.GatherObject{
		{Row: 1, NpcID: 100, IconID: 63964, Name: "Island Apple Tree"},
	},
	Animals: []island.Animal{
		{Row: 4, DataID: 9001, IconID: 63974, Name: "Lemur"},
	},
}

func testProvider() *zonedata.Memory {
	m := zonedata.NewMemory()
	m.Apply(zonedata.SeedData{
		Territories: []core.TerritoryType{
			{ID: islandTerritory, MapID: 772, PlaceNameID: 2566, IntendedUse: core.IntendedUseIslandSanctuary},
			{ID: openTerritory, MapID: 2, PlaceNameID: 54},
			{ID: pvpTerritory, MapID: 3, IsPvPZone: true},
		},
		Maps: []core.MapParameters{
			{ID: 772, Scale: 100},
			{ID: 2, Scale: 100},
			{ID: 3, Scale: 100},
		},
		PlaceNames: []zonedata.PlaceNameRecord{
			{ID: 2566, Names: map[string]string{"en": "Unnamed Island"}},
		},
	})
	return m
}

// host records everything the driver sends out.
type host struct {
	mu     sync.Mutex
	chats  []string
	toasts []string
	zones  []streaming.ZonePayload
	frames render.Recorder
}

func (h *host) PrintChat(msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chats = append(h.chats, msg)
	return nil
}

func (h *host) ShowToast(msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toasts = append(h.toasts, msg)
	return nil
}

func (h *host) ZoneChanged(z streaming.ZonePayload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.zones = append(h.zones, z)
	return nil
}

func (h *host) Chats() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.chats...)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, s *testSettings) (*Service, *host) {
	t.Helper()
	h := &host{}
	svc, err := Assemble(Options{
		Provider:     testProvider(),
		Tables:       testTables,
		Settings:     s,
		Sink:         &h.frames,
		Chat:         h,
		Toast:        h,
		ZoneListener: h,
		Language:     "en",
		Logger:       discard(),
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, h
}

// forward looks down +Z; x and y are divided by depth.
func forward() *Camera {
	var m [16]float32
	m[0], m[5], m[14] = 1, 1, 1
	return &Camera{ViewProjection: m, Width: 200, Height: 100}
}

func islandSnapshot() Snapshot {
	return Snapshot{
		Player: &core.WorldPosition{},
		Camera: forward(),
		Entities: []core.Entity{
			{Handle: 1, Name: "Island Apple Tree", Kind: core.KindMjiObject, NameID: 100, Position: core.WorldPosition{Z: 10}},
			{Handle: 2, Name: "Lemur", Kind: core.KindBattleNpc, DataID: 9001, Position: core.WorldPosition{X: 5, Z: 10}},
			{Handle: 3, Name: "Somebody", Kind: core.KindPlayer, Position: core.WorldPosition{X: 1}},
		},
	}
}

func TestCamera_WorldToScreen(t *testing.T) {
	cam := forward()

	p, ok := cam.WorldToScreen(core.WorldPosition{Z: 10})
	assert.True(t, ok)
	assert.Equal(t, render.Vec2{X: 100, Y: 50}, p)

	p, ok = cam.WorldToScreen(core.WorldPosition{X: 5, Y: 5, Z: 10})
	assert.True(t, ok)
	assert.Equal(t, render.Vec2{X: 150, Y: 25}, p)

	_, ok = cam.WorldToScreen(core.WorldPosition{Z: -10})
	assert.False(t, ok)

	_, ok = cam.WorldToScreen(core.WorldPosition{})
	assert.False(t, ok, "points on the camera plane are not in front")

	assert.Equal(t, render.Vec2{X: 200, Y: 100}, cam.Viewport())
}

func TestWorld_Snapshot(t *testing.T) {
	w := NewWorld()
	_, ok := w.LocalPlayer()
	assert.False(t, ok)
	assert.Empty(t, w.Entities())
	assert.Equal(t, render.Vec2{}, w.Viewport())
	_, front := w.WorldToScreen(core.WorldPosition{Z: 10})
	assert.False(t, front)

	w.Update(Snapshot{
		Player:   &core.WorldPosition{X: 1},
		AltMapID: 99,
		Entities: []core.Entity{
			{Handle: 5, Name: "old"},
			{Handle: 6, Name: "b"},
			{Handle: 5, Name: "new"},
		},
	})

	pos, ok := w.LocalPlayer()
	require.True(t, ok)
	assert.Equal(t, float32(1), pos.X)
	assert.Equal(t, []core.EntityHandle{5, 6, 5}, w.Entities())
	e, ok := w.Resolve(5)
	require.True(t, ok)
	assert.Equal(t, "new", e.Name)
	_, ok = w.Resolve(7)
	assert.False(t, ok)
	assert.Equal(t, uint32(99), w.AltMapID())
}

func TestDecodeSnapshot(t *testing.T) {
	snap, err := DecodeSnapshot(`{"player":{"x":1,"y":2,"z":3},"entities":[{"handle":4,"kind":14,"nameId":100}]}`)
	require.NoError(t, err)
	require.NotNil(t, snap.Player)
	assert.Equal(t, core.WorldPosition{X: 1, Y: 2, Z: 3}, *snap.Player)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, core.KindMjiObject, snap.Entities[0].Kind)
	assert.Nil(t, snap.Camera)

	_, err = DecodeSnapshot(`{"entities":`)
	assert.Error(t, err)
}

func TestTick_TracksIslandObjectives(t *testing.T) {
	svc, h := newService(t, newSettings())
	svc.OnTerritory(islandTerritory)
	svc.deps.World.Update(islandSnapshot())

	f, err := svc.Tick(context.Background(), time.Unix(100, 0))
	require.NoError(t, err)

	assert.Equal(t, uint32(islandTerritory), f.Territory)
	assert.Equal(t, uint32(772), f.Map)
	require.Len(t, f.Markers, 2)
	assert.Equal(t, core.EntityHandle(1), f.Markers[0].Handle)
	assert.Equal(t, render.Vec2{X: 100, Y: 50}, f.Markers[0].Position)
	assert.Equal(t, render.Vec2{X: 150, Y: 50}, f.Markers[1].Position)
	assert.Len(t, f.Details, 2)
	assert.Equal(t, "Island Apple Tree, South, 10 Yalm", f.Closest)
	assert.Equal(t, f.Closest, svc.Closest())

	last, ok := h.frames.Last()
	require.True(t, ok)
	assert.Equal(t, f.Seq, last.Seq)

	assert.Equal(t, []string{"Detected 2 new objectives; closest: Island Apple Tree, South, 10 Yalm"}, h.Chats())

	_, err = svc.Tick(context.Background(), time.Unix(101, 0))
	require.NoError(t, err)
	assert.Len(t, h.Chats(), 1, "nothing new on the second tick")
	assert.Len(t, h.frames.Frames(), 2)
}

func TestTick_NotifiesOnlyNewObjectives(t *testing.T) {
	svc, h := newService(t, newSettings())
	svc.OnTerritory(islandTerritory)

	snap := islandSnapshot()
	snap.Entities = snap.Entities[:1]
	svc.deps.World.Update(snap)
	_, err := svc.Tick(context.Background(), time.Time{})
	require.NoError(t, err)

	svc.deps.World.Update(islandSnapshot())
	_, err = svc.Tick(context.Background(), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Detected Island Apple Tree; closest: Island Apple Tree, South, 10 Yalm",
		"Detected Lemur; closest: Island Apple Tree, South, 10 Yalm",
	}, h.Chats())

	h.mu.Lock()
	assert.Len(t, h.toasts, 2)
	h.mu.Unlock()
}

func TestTick_GatedZoneDrawsEmptyFrame(t *testing.T) {
	svc, h := newService(t, newSettings())
	svc.OnTerritory(pvpTerritory)
	svc.deps.World.Update(islandSnapshot())

	f, err := svc.Tick(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, f.Markers)
	assert.Empty(t, f.Closest)
	assert.Equal(t, uint64(1), svc.Status().Stats.Gated)
	assert.Empty(t, h.Chats())
	assert.Len(t, h.frames.Frames(), 1)
}

func TestTick_PolicyOffOutsideIsland(t *testing.T) {
	svc, _ := newService(t, newSettings())
	svc.OnTerritory(openTerritory)
	svc.deps.World.Update(islandSnapshot())

	f, err := svc.Tick(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, f.Markers)
	assert.Equal(t, 0, svc.Status().Stats.Tracked)
}

func TestTick_ClosestSummaryDisabled(t *testing.T) {
	s := newSettings()
	s.det.ClosestSummary = false
	svc, h := newService(t, s)
	svc.OnTerritory(islandTerritory)
	svc.deps.World.Update(islandSnapshot())

	f, err := svc.Tick(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, f.Closest)
	assert.Len(t, f.Markers, 2)
	assert.Equal(t, []string{"Detected 2 new objectives; closest: Island Apple Tree, South, 10 Yalm"}, h.Chats())
}

func TestTick_CancelledContext(t *testing.T) {
	svc, h := newService(t, newSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Tick(ctx, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.frames.Frames())
}

func TestOnTerritory_ClearsAndForwards(t *testing.T) {
	svc, h := newService(t, newSettings())
	svc.OnTerritory(islandTerritory)
	svc.deps.World.Update(islandSnapshot())
	_, err := svc.Tick(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, 2, svc.Status().Stats.Tracked)

	svc.OnTerritory(openTerritory)
	assert.Equal(t, 0, svc.Status().Stats.Tracked)
	assert.Empty(t, svc.deps.Pipeline.Objectives())

	h.mu.Lock()
	zones := append([]streaming.ZonePayload(nil), h.zones...)
	h.mu.Unlock()
	require.Len(t, zones, 2)
	assert.Equal(t, streaming.ZonePayload{
		Territory: islandTerritory,
		Map:       772,
		PlaceName: "Unnamed Island",
		Gameplay:  true,
	}, zones[0])
	assert.Equal(t, uint32(openTerritory), zones[1].Territory)
	assert.Empty(t, zones[1].PlaceName)

	svc.OnTerritory(islandTerritory)
	_, err = svc.Tick(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, h.Chats(), 2, "objectives are new again after a zone change")
}

func TestStatusAndPolicies(t *testing.T) {
	svc, _ := newService(t, newSettings())
	svc.OnTerritory(islandTerritory)

	st := svc.Status()
	assert.Equal(t, uint32(islandTerritory), st.Territory)
	assert.Equal(t, "Unnamed Island", st.PlaceName)
	assert.True(t, st.Gameplay)
	assert.False(t, st.UISuppressed)
	assert.Zero(t, st.Frames)

	assert.Equal(t, []string{island.Name}, svc.Policies())

	attrs := svc.LogAttrs()
	keys := make([]string, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{"territory", "map", "tracked"}, keys)
}

func newDispatcher(t *testing.T, svc *Service) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	svc.RegisterHandlers(d)
	return d
}

func TestDispatcher_FrameLoop(t *testing.T) {
	svc, h := newService(t, newSettings())
	d := newDispatcher(t, svc)

	assert.Equal(t, []string{
		CmdClosest, CmdFrame, CmdNotifyReset, CmdQuest, CmdQuests,
		CmdSnapshot, CmdStatus, CmdTerritory,
	}, d.Commands())

	_, err := d.Dispatch(dispatcher.Event{Command: CmdTerritory, Args: []string{`"1055"`}})
	require.NoError(t, err)

	raw, err := json.Marshal(islandSnapshot())
	require.NoError(t, err)
	res, err := d.Dispatch(dispatcher.Event{Command: CmdSnapshot, Args: []string{string(raw)}})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)

	res, err = d.Dispatch(dispatcher.Event{Command: CmdFrame})
	require.NoError(t, err)
	assert.Equal(t, "queued", res)

	d.Close()

	res, err = d.Dispatch(dispatcher.Event{Command: CmdClosest})
	require.NoError(t, err)
	assert.Equal(t, "Island Apple Tree, South, 10 Yalm", res)

	res, err = d.Dispatch(dispatcher.Event{Command: CmdStatus})
	require.NoError(t, err)
	st, ok := res.(Status)
	require.True(t, ok)
	assert.Equal(t, uint64(1), st.Frames)
	assert.Equal(t, 2, st.Stats.Tracked)

	assert.Len(t, h.frames.Frames(), 1)
}

func TestDispatcher_ArgumentErrors(t *testing.T) {
	svc, _ := newService(t, newSettings())
	d := newDispatcher(t, svc)
	defer d.Close()

	_, err := d.Dispatch(dispatcher.Event{Command: CmdTerritory})
	assert.ErrorIs(t, err, ErrMissingArgument)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdTerritory, Args: []string{"abc"}})
	assert.Error(t, err)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdSnapshot, Args: []string{"{"}})
	assert.Error(t, err)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdQuest, Args: []string{"70000"}})
	assert.Error(t, err)
}

func TestDispatcher_Quests(t *testing.T) {
	svc, _ := newService(t, newSettings())
	d := newDispatcher(t, svc)
	defer d.Close()

	_, err := d.Dispatch(dispatcher.Event{Command: CmdQuests, Args: []string{
		`[{"id":65,"seq":2,"flags":1,"interactedFlags":128},{"id":66,"flags":8}]`,
	}})
	require.NoError(t, err)

	res, err := d.Dispatch(dispatcher.Event{Command: CmdQuest, Args: []string{"65"}})
	require.NoError(t, err)
	q, ok := res.(quest.Quest)
	require.True(t, ok)
	assert.Equal(t, uint8(2), q.Seq)
	assert.True(t, q.IsPriority())
	assert.True(t, q.IsObjectiveInteracted(0))

	_, err = d.Dispatch(dispatcher.Event{Command: CmdQuest, Args: []string{"67"}})
	assert.ErrorIs(t, err, ErrQuestNotFound)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdQuests, Args: []string{"nope"}})
	assert.Error(t, err)
}

func TestDispatcher_NotifyReset(t *testing.T) {
	svc, _ := newService(t, newSettings())
	d := newDispatcher(t, svc)
	defer d.Close()

	res, err := d.Dispatch(dispatcher.Event{Command: CmdNotifyReset})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	_, played := svc.deps.Notifier.LastCue()
	assert.False(t, played)
}

func TestDispatcher_FramePanicRecovered(t *testing.T) {
	svc, _ := newService(t, newSettings())
	svc.deps.Sink = render.SinkFunc(func(context.Context, render.Frame) error {
		panic("sink exploded")
	})
	d := newDispatcher(t, svc)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdFrame})
	require.NoError(t, err)
	d.Close()

	res, err := d.Dispatch(dispatcher.Event{Command: CmdStatus})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.(Status).Frames)
}
