// Package driver runs the per-frame loop. The game host pushes snapshots and
// zone transitions through dispatcher commands; every :FRAME: scans for
// objectives, builds a render frame and hands it to the sink.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/compassradar/extension/internal/detection"
	"github.com/compassradar/extension/internal/dispatcher"
	"github.com/compassradar/extension/internal/notify"
	"github.com/compassradar/extension/internal/objective"
	"github.com/compassradar/extension/internal/quest"
	"github.com/compassradar/extension/internal/render"
	"github.com/compassradar/extension/internal/util"
	"github.com/compassradar/extension/internal/zone"
	"github.com/compassradar/extension/pkg/core"
	"github.com/compassradar/extension/pkg/streaming"
)

// Command names understood by the driver.
const (
	CmdSnapshot    = ":SNAPSHOT:"
	CmdTerritory   = ":TERRITORY:"
	CmdFrame       = ":FRAME:"
	CmdClosest     = ":CLOSEST:"
	CmdStatus      = ":STATUS:"
	CmdNotifyReset = ":NOTIFY:RESET:"
	CmdQuests      = ":QUESTS:"
	CmdQuest       = ":QUEST:"
)

const frameQueueSize = 4

var (
	// ErrMissingArgument is returned when a command needs an argument.
	ErrMissingArgument = errors.New("missing argument")

	// ErrQuestNotFound is returned by :QUEST: for quests not in the log.
	ErrQuestNotFound = errors.New("quest not in log")
)

// ZoneListener is told about zone transitions, e.g. the overlay stream.
type ZoneListener interface {
	ZoneChanged(z streaming.ZonePayload) error
}

// Dependencies holds everything the driver wires together. Notifier,
// Quests and ZoneListener may be nil.
type Dependencies struct {
	World        *World
	Zone         *zone.State
	Pipeline     *detection.Pipeline
	Builder      *render.Builder
	Sink         render.Sink
	Settings     detection.Settings
	Notifier     *notify.Notifier
	Quests       *quest.Log
	ZoneListener ZoneListener
	Language     string
}

// Status is returned by :STATUS:.
type Status struct {
	Territory    uint32          `json:"territory"`
	Map          uint32          `json:"map"`
	PlaceName    string          `json:"placeName"`
	Gameplay     bool            `json:"gameplay"`
	UISuppressed bool            `json:"uiSuppressed"`
	Frames       uint64          `json:"frames"`
	Stats        detection.Stats `json:"stats"`
	Closest      string          `json:"closest,omitempty"`
}

// Service owns the frame loop. Ticks and zone transitions are serialised,
// so a scan never overlaps another scan or a cache reset.
type Service struct {
	deps   Dependencies
	logger *slog.Logger

	mu     sync.Mutex
	known  map[core.EntityHandle]struct{}
	last   render.Frame
	frames uint64
}

// New creates a Service.
func New(deps Dependencies, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deps:   deps,
		logger: logger.With("component", "driver"),
		known:  map[core.EntityHandle]struct{}{},
	}
}

// RegisterHandlers registers the driver commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdSnapshot, s.handleSnapshot, dispatcher.Recovered())
	d.Register(CmdTerritory, s.handleTerritory, dispatcher.Logged(), dispatcher.Recovered())
	d.Register(CmdFrame, s.handleFrame,
		dispatcher.Buffered(frameQueueSize), dispatcher.Latest(), dispatcher.Recovered())
	d.Register(CmdClosest, func(dispatcher.Event) (any, error) {
		return s.Closest(), nil
	})
	d.Register(CmdStatus, func(dispatcher.Event) (any, error) {
		return s.Status(), nil
	})
	d.Register(CmdNotifyReset, func(dispatcher.Event) (any, error) {
		if s.deps.Notifier != nil {
			s.deps.Notifier.ResetTimer()
		}
		return "ok", nil
	})
	if s.deps.Quests != nil {
		d.Register(CmdQuests, s.handleQuests, dispatcher.Recovered())
		d.Register(CmdQuest, s.handleQuest)
	}
}

func firstArg(e dispatcher.Event) (string, error) {
	if len(e.Args) == 0 {
		return "", fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}
	return util.FixEscapeQuotes(util.TrimQuotes(e.Args[0])), nil
}

func (s *Service) handleSnapshot(e dispatcher.Event) (any, error) {
	arg, err := firstArg(e)
	if err != nil {
		return nil, err
	}
	snap, err := DecodeSnapshot(arg)
	if err != nil {
		return nil, err
	}
	s.deps.World.Update(snap)
	return "ok", nil
}

func (s *Service) handleTerritory(e dispatcher.Event) (any, error) {
	arg, err := firstArg(e)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parsing territory id %q: %w", arg, err)
	}
	s.OnTerritory(uint32(id))
	return "ok", nil
}

func (s *Service) handleFrame(e dispatcher.Event) (any, error) {
	_, err := s.Tick(context.Background(), e.Timestamp)
	return nil, err
}

func (s *Service) handleQuests(e dispatcher.Event) (any, error) {
	arg, err := firstArg(e)
	if err != nil {
		return nil, err
	}
	var slots []quest.Quest
	if err := json.Unmarshal([]byte(arg), &slots); err != nil {
		return nil, fmt.Errorf("decoding quest list: %w", err)
	}
	s.deps.Quests.Update(slots)
	return "ok", nil
}

func (s *Service) handleQuest(e dispatcher.Event) (any, error) {
	arg, err := firstArg(e)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(arg, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("parsing quest id %q: %w", arg, err)
	}
	q, ok := s.deps.Quests.TryGetQuest(uint16(id))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrQuestNotFound, id)
	}
	return q, nil
}

// OnTerritory handles a zone transition. Tracked objectives are dropped
// before the zone state moves on.
func (s *Service) OnTerritory(territoryID uint32) {
	s.mu.Lock()
	s.deps.Pipeline.OnZoneChange(territoryID)
	clear(s.known)
	s.mu.Unlock()

	if s.deps.ZoneListener == nil {
		return
	}
	if err := s.deps.ZoneListener.ZoneChanged(s.zonePayload()); err != nil {
		s.logger.Warn("zone change not forwarded", "territory", territoryID, "error", err)
	}
}

func (s *Service) zonePayload() streaming.ZonePayload {
	z := s.deps.Zone
	p := streaming.ZonePayload{
		Territory:    z.TerritoryID(),
		Map:          z.CurrentMapID(),
		Gameplay:     z.IsGameplayZone(),
		UISuppressed: z.IsUISuppressedZone(),
	}
	if t, ok := z.Territory(); ok {
		p.PlaceName = z.PlaceName(t.PlaceNameID, s.deps.Language, "")
	}
	return p
}

// Tick runs one frame: scan, build, draw, notify. In a zone where
// detection is not allowed an empty frame is drawn so stale markers
// disappear.
func (s *Service) Tick(ctx context.Context, now time.Time) (render.Frame, error) {
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.deps.Pipeline.Scan(ctx)
	if err != nil {
		return render.Frame{}, err
	}

	var f render.Frame
	if res.Gated {
		f = s.deps.Builder.Build(nil, objective.Empty(), now)
	} else {
		f = s.deps.Builder.Build(s.deps.Pipeline.Objectives(), res.Closest, now)
		s.notifyNew(f.Closest)
	}
	if s.deps.Settings != nil && !s.deps.Settings.Detection().ClosestSummary {
		f.Closest = ""
	}

	s.last = f
	s.frames++

	if s.deps.Sink != nil {
		if err := s.deps.Sink.Draw(ctx, f); err != nil {
			s.logger.Debug("frame not drawn", "seq", f.Seq, "error", err)
		}
	}
	return f, nil
}

// notifyNew sends one notification per tick in which objectives were first
// seen. Records that drop out and come back count as new again.
func (s *Service) notifyNew(closest string) {
	objs := s.deps.Pipeline.Objectives()
	seen := make(map[core.EntityHandle]struct{}, len(objs))
	var fresh []*objective.Cached
	for i := range objs {
		seen[objs[i].Handle] = struct{}{}
		if _, ok := s.known[objs[i].Handle]; !ok {
			fresh = append(fresh, &objs[i])
		}
	}
	s.known = seen

	if len(fresh) == 0 || s.deps.Notifier == nil {
		return
	}

	var msg string
	if len(fresh) == 1 {
		msg = "Detected " + fresh[0].Name
	} else {
		msg = fmt.Sprintf("Detected %d new objectives", len(fresh))
	}
	if closest != "" {
		msg += "; closest: " + closest
	}
	s.deps.Notifier.TryNotifyByChat(msg, true)
	s.deps.Notifier.TryNotifyByToast(msg)
}

// World returns the snapshot holder the host updates.
func (s *Service) World() *World {
	return s.deps.World
}

// Closest returns the closest-objective summary of the last frame.
func (s *Service) Closest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Closest
}

// LastFrame returns the most recent frame.
func (s *Service) LastFrame() render.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Status reports the zone and pipeline state.
func (s *Service) Status() Status {
	z := s.zonePayload()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Territory:    z.Territory,
		Map:          z.Map,
		PlaceName:    z.PlaceName,
		Gameplay:     z.Gameplay,
		UISuppressed: z.UISuppressed,
		Frames:       s.frames,
		Stats:        s.deps.Pipeline.Stats(),
		Closest:      s.last.Closest,
	}
}

// Policies returns the names of the registered detection policies.
func (s *Service) Policies() []string {
	pols := s.deps.Pipeline.Policies()
	out := make([]string, 0, len(pols))
	for _, p := range pols {
		out = append(out, p.Name())
	}
	return out
}

// LogAttrs feeds logging.ContextHandler with the zone and tracked count.
func (s *Service) LogAttrs() []slog.Attr {
	return append(s.deps.Zone.LogAttrs(), s.deps.Pipeline.LogAttrs()...)
}

// Close waits for pending notification cues and releases pipeline metrics.
func (s *Service) Close() {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Wait()
	}
	if err := s.deps.Pipeline.Close(); err != nil {
		s.logger.Warn("Error releasing detection metrics", "error", err)
	}
}
