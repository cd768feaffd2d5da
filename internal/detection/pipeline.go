// Package detection runs the per-frame scan that classifies nearby entities
// and keeps one objective record per tracked entity.
package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/objective"
	"github.com/compassradar/extension/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrPolicyPanic is returned by Scan when a policy panicked. The tick is
// skipped and the cache is left as it was.
var ErrPolicyPanic = errors.New("detection policy panicked")

// EntityAccessor reads live game objects. Handles are resolved again on
// every tick; a handle that no longer resolves has left the world.
type EntityAccessor interface {
	LocalPlayer() (core.WorldPosition, bool)
	Entities() []core.EntityHandle
	Resolve(h core.EntityHandle) (core.Entity, bool)
}

// Zone is the part of zone.State the pipeline depends on.
type Zone interface {
	objective.MapProjector
	OnZoneChange(territoryID uint32)
	IsGameplayZone() bool
	IsInTerritoryUse(code uint8) bool
}

// Policy decides which entities are objectives.
type Policy interface {
	Name() string
	// EnabledIn reports whether the policy applies to the current zone.
	EnabledIn(z Zone) bool
	// Classify returns the tag for e, or false if e is not an objective.
	Classify(e *core.Entity) (objective.Tag, bool)
}

// Settings supplies the detection configuration, read once per tick.
type Settings interface {
	Detection() config.DetectionConfig
}

// Result summarises one tick.
type Result struct {
	Gated     bool
	Scanned   int
	Created   int
	Refreshed int
	Evicted   int
	Tracked   int
	Closest   objective.Cached
}

// Stats are running totals since the pipeline was created.
type Stats struct {
	Ticks   uint64 `json:"ticks"`
	Gated   uint64 `json:"gated"`
	Created uint64 `json:"created"`
	Evicted uint64 `json:"evicted"`
	Panics  uint64 `json:"panics"`
	Tracked int    `json:"tracked"`
}

// Pipeline owns the objective cache. Scan must not be called concurrently;
// readers on other goroutines may use Closest and Objectives at any time.
type Pipeline struct {
	accessor EntityAccessor
	zone     Zone
	settings Settings
	policies []Policy
	cache    *objective.Cache
	logger   *slog.Logger

	ticks   atomic.Uint64
	gated   atomic.Uint64
	created atomic.Uint64
	evicted atomic.Uint64
	panics  atomic.Uint64
	tracked atomic.Int64

	tickCounter    metric.Int64Counter
	createdCounter metric.Int64Counter
	evictedCounter metric.Int64Counter
	panicCounter   metric.Int64Counter
	trackedGauge   metric.Int64ObservableGauge
	trackedReg     metric.Registration
	closeOnce      sync.Once
}

// New creates a pipeline. settings and logger may be nil.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(accessor EntityAccessor, zone Zone, settings Settings, logger *slog.Logger, policies ...Policy) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		accessor: accessor,
		zone:     zone,
		settings: settings,
		policies: policies,
		cache:    objective.NewCache(),
		logger:   logger.With("component", "detection"),
	}

	m := meter()
	var err error

	p.tickCounter, err = m.Int64Counter(
		"detection.ticks",
		metric.WithDescription("Scan ticks, labelled by whether the zone gate skipped them"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	p.createdCounter, err = m.Int64Counter(
		"detection.objectives.created",
		metric.WithDescription("Objective records created"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating created counter: %w", err)
	}

	p.evictedCounter, err = m.Int64Counter(
		"detection.objectives.evicted",
		metric.WithDescription("Objective records evicted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating evicted counter: %w", err)
	}

	p.panicCounter, err = m.Int64Counter(
		"detection.policy.panics",
		metric.WithDescription("Ticks skipped because a policy panicked"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating panic counter: %w", err)
	}

	p.trackedGauge, err = m.Int64ObservableGauge(
		"detection.objectives.tracked",
		metric.WithDescription("Objective records currently tracked"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tracked gauge: %w", err)
	}

	p.trackedReg, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(p.trackedGauge, p.tracked.Load())
			return nil
		},
		p.trackedGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering tracked callback: %w", err)
	}

	return p, nil
}

// Close unregisters the tracked gauge callback. It is safe to call more
// than once.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	var err error
	p.closeOnce.Do(func() {
		if p.trackedReg != nil {
			err = p.trackedReg.Unregister()
		}
	})
	return err
}

type match struct {
	entity core.Entity
	tag    objective.Tag
}

// Scan runs one detection tick. In a zone that is not a gameplay zone it
// returns immediately and leaves tracked records untouched.
func (p *Pipeline) Scan(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	p.ticks.Add(1)

	if !p.zone.IsGameplayZone() {
		p.gated.Add(1)
		p.tickCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("gated", true)))
		return Result{Gated: true, Tracked: p.cache.Len(), Closest: objective.Empty()}, nil
	}
	p.tickCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("gated", false)))

	matches, scanned, err := p.classify()
	if err != nil {
		p.panics.Add(1)
		p.panicCounter.Add(ctx, 1)
		p.logger.Error("skipping detection tick", "error", err)
		return Result{Scanned: scanned, Tracked: p.cache.Len(), Closest: objective.Empty()}, err
	}

	var player *core.WorldPosition
	if pos, ok := p.accessor.LocalPlayer(); ok {
		player = &pos
	}
	maxDistance := p.maxDistance()

	res := Result{Scanned: scanned}
	seen := make(map[core.EntityHandle]struct{}, len(matches))
	for i := range matches {
		e := &matches[i].entity

		rec, tracked := p.cache.Get(e.Handle)
		if tracked {
			rec.Refresh(e.Position, player, p.zone)
		} else {
			rec = objective.New(e, matches[i].tag, player, p.zone)
		}
		if beyond(rec.Distance3D, maxDistance) {
			continue
		}

		p.cache.Insert(rec)
		seen[e.Handle] = struct{}{}
		if tracked {
			res.Refreshed++
		} else {
			res.Created++
		}
	}

	evicted := p.cache.Retain(func(rec *objective.Cached) bool {
		_, ok := seen[rec.Handle]
		return ok
	})
	res.Evicted = len(evicted)
	for i := range evicted {
		p.logger.Debug("objective evicted", "handle", evicted[i].Handle, "name", evicted[i].Name)
	}

	res.Tracked = p.cache.Len()
	res.Closest = p.cache.Closest()

	p.created.Add(uint64(res.Created))
	p.evicted.Add(uint64(res.Evicted))
	p.tracked.Store(int64(res.Tracked))
	if res.Created > 0 {
		p.createdCounter.Add(ctx, int64(res.Created))
	}
	if res.Evicted > 0 {
		p.evictedCounter.Add(ctx, int64(res.Evicted))
	}

	return res, nil
}

// classify resolves every live handle and asks the enabled policies about
// it. It does not touch the cache, so a panicking policy leaves no partial
// update behind.
func (p *Pipeline) classify() (matches []match, scanned int, err error) {
	defer func() {
		if r := recover(); r != nil {
			matches = nil
			err = fmt.Errorf("%w: %v", ErrPolicyPanic, r)
		}
	}()

	active := make([]Policy, 0, len(p.policies))
	for _, pol := range p.policies {
		if pol.EnabledIn(p.zone) {
			active = append(active, pol)
		}
	}
	if len(active) == 0 {
		return nil, 0, nil
	}

	for _, h := range p.accessor.Entities() {
		e, ok := p.accessor.Resolve(h)
		if !ok {
			continue
		}
		scanned++
		for _, pol := range active {
			if tag, ok := pol.Classify(&e); ok {
				if tag.Policy == "" {
					tag.Policy = pol.Name()
				}
				matches = append(matches, match{entity: e, tag: tag})
				break
			}
		}
	}
	return matches, scanned, nil
}

func (p *Pipeline) maxDistance() float32 {
	if p.settings == nil {
		return 0
	}
	return p.settings.Detection().MaxDistance
}

// beyond reports whether d exceeds a positive bound. Unknown distances
// are never beyond the bound.
func beyond(d, bound float32) bool {
	return bound > 0 && !math.IsNaN(float64(d)) && d > bound
}

// OnZoneChange clears every tracked record and forwards the transition to
// the zone state.
func (p *Pipeline) OnZoneChange(territoryID uint32) {
	n := p.cache.Len()
	p.cache.Clear()
	p.tracked.Store(0)
	if n > 0 {
		p.evicted.Add(uint64(n))
		p.evictedCounter.Add(context.Background(), int64(n))
	}
	p.zone.OnZoneChange(territoryID)
	p.logger.Debug("objectives cleared on zone change", "cleared", n, "territory", territoryID)
}

// Closest returns the closest tracked record, or objective.Empty().
func (p *Pipeline) Closest() objective.Cached {
	return p.cache.Closest()
}

// Objectives returns the tracked records in first-detection order.
func (p *Pipeline) Objectives() []objective.Cached {
	return p.cache.All()
}

// Policies returns the registered policies.
func (p *Pipeline) Policies() []Policy {
	return p.policies
}

// Stats returns running totals.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Ticks:   p.ticks.Load(),
		Gated:   p.gated.Load(),
		Created: p.created.Load(),
		Evicted: p.evicted.Load(),
		Panics:  p.panics.Load(),
		Tracked: int(p.tracked.Load()),
	}
}

// LogAttrs exposes the tracked count for logging.ContextHandler.
func (p *Pipeline) LogAttrs() []slog.Attr {
	return []slog.Attr{slog.Int64("tracked", p.tracked.Load())}
}
