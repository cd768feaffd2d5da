// Package island detects gathering objects and animals in the island
// sanctuary. It is the reference detection policy.
package island

import (
	"fmt"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/detection"
	"github.com/compassradar/extension/internal/geo"
	"github.com/compassradar/extension/internal/objective"
	"github.com/compassradar/extension/internal/render"
	"github.com/compassradar/extension/internal/util"
	"github.com/compassradar/extension/pkg/core"
)

// Name identifies the policy in objective tags.
const Name = "island"

// Record variants.
const (
	VariantAnimal    uint8 = 1
	VariantGathering uint8 = 2
)

const (
	animalDefaultIconID = 63956
	shadowLightness     = .1
	markerScale         = .9
)

var (
	gatherTextColour       = render.Colour{R: .75, G: .98, B: .9, A: 1}
	animalTextColour       = render.Colour{R: .98, G: .8, B: .85, A: 1}
	animalSpecificIconSize = render.Vec2{X: 25, Y: 25}
)

// Source supplies the island settings. It is read on every call.
type Source interface {
	Island() config.IslandConfig
}

// Policy implements detection.Policy and render.Drawer.
type Policy struct {
	src Source

	gather     map[uint32]GatherObject
	gatherList []GatherObject
	animals    map[uint32]Animal
	animalList []Animal
}

var (
	_ detection.Policy = (*Policy)(nil)
	_ render.Drawer    = (*Policy)(nil)
)

// New builds the lookup tables. Later rows win on duplicate keys.
func New(src Source, t Tables) *Policy {
	p := &Policy{
		src:        src,
		gather:     make(map[uint32]GatherObject, len(t.Gathering)),
		gatherList: t.Gathering,
		animals:    make(map[uint32]Animal, len(t.Animals)),
		animalList: t.Animals,
	}
	for _, g := range t.Gathering {
		p.gather[g.NpcID] = g
	}
	for _, a := range t.Animals {
		p.animals[a.DataID] = a
	}
	return p
}

// Name returns "island".
func (p *Policy) Name() string { return Name }

// EnabledIn reports whether the policy is switched on and the player is
// on the island.
func (p *Policy) EnabledIn(z detection.Zone) bool {
	return p.src.Island().Enabled && z.IsInTerritoryUse(core.IntendedUseIslandSanctuary)
}

// Classify matches gathering objects by name id and animals by data id,
// subject to the per-category filter masks.
func (p *Policy) Classify(e *core.Entity) (objective.Tag, bool) {
	if e == nil {
		return objective.Tag{}, false
	}
	cfg := p.src.Island()
	switch {
	case cfg.DetectGathering && e.Kind == core.KindMjiObject:
		g, ok := p.gather[e.NameID]
		if !ok || !detection.FilterMask(cfg.GatheringMask).Has(uint(g.Row)) {
			return objective.Tag{}, false
		}
		return objective.Tag{Policy: Name, Variant: VariantGathering, Category: g.Row, Label: g.Type().String()}, true
	case cfg.DetectAnimals && e.Kind == core.KindBattleNpc:
		a, ok := p.animals[e.DataID]
		if !ok || !detection.FilterMask(cfg.AnimalMask).Has(uint(a.Row)) {
			return objective.Tag{}, false
		}
		return objective.Tag{Policy: Name, Variant: VariantAnimal, Category: a.Row, Label: a.Name}, true
	}
	return objective.Tag{}, false
}

// Marker describes the screen marker for rec.
func (p *Policy) Marker(rec *objective.Cached) (render.MarkerSpec, bool) {
	if rec.IsEmpty() {
		return render.MarkerSpec{}, false
	}
	cfg := p.src.Island()
	spec := render.MarkerSpec{
		IconSize:        render.DefaultIconSize,
		Scale:           markerScale,
		ShadowLightness: shadowLightness,
	}

	var showName bool
	switch rec.Tag.Variant {
	case VariantGathering:
		spec.IconID = p.gather[rec.NameID].IconID
		spec.TextColour = gatherTextColour
		spec.ShowOffscreen = !cfg.HideOffscreenGathering
		showName = cfg.ShowNameGathering
	case VariantAnimal:
		spec.IconID = animalDefaultIconID
		if cfg.AnimalSpecificIcons {
			spec.IconID = p.animals[rec.DataID].IconID
			spec.IconSize = animalSpecificIconSize
		}
		spec.TextColour = animalTextColour
		spec.ShowOffscreen = !cfg.HideOffscreenAnimals
		showName = cfg.ShowNameAnimals
	default:
		return render.MarkerSpec{}, false
	}

	spec.Text = geo.DescriptiveDistance(rec.Distance3D, true)
	if showName {
		spec.Text = displayName(rec) + ", " + spec.Text
	}
	return spec, true
}

// Detail describes the detail panel entry for rec.
func (p *Policy) Detail(rec *objective.Cached, f render.Formatter) (render.Detail, bool) {
	if rec.IsEmpty() {
		return render.Detail{}, false
	}

	var title string
	switch rec.Tag.Variant {
	case VariantGathering:
		title = fmt.Sprintf("%s, Type: Gathering - %s", displayName(rec), p.GatherType(rec))
	case VariantAnimal:
		title = fmt.Sprintf("%s, Type: Animal", displayName(rec))
	default:
		return render.Detail{}, false
	}

	return render.Detail{
		Handle: rec.Handle,
		Policy: Name,
		Title:  title,
		Lines: []string{
			f.FormatMapCoord(rec.MapCoord, true) + " (approx.)",
			fmt.Sprintf("%s,  %s", rec.Direction, geo.DescriptiveDistance(rec.Distance3D, false)),
			geo.DescriptiveAltitude(rec.AltitudeDiff),
		},
		MapCoord: render.MapCoordOf(rec.MapCoord),
	}, true
}

// ClosestDescription returns the record name.
func (p *Policy) ClosestDescription(rec *objective.Cached) string {
	return displayName(rec)
}

// displayName title-cases the name snapshot; the client reports some
// object names in lower case.
func displayName(rec *objective.Cached) string {
	return util.TitleCase(rec.Name, "en")
}

// GatherType returns the gather type of a gathering record.
func (p *Policy) GatherType(rec *objective.Cached) GatherType {
	if g, ok := p.gather[rec.NameID]; ok {
		return g.Type()
	}
	return GatherUnknown
}

// Category is one selectable entry of a filter mask.
type Category struct {
	Bit  uint8  `json:"bit" yaml:"bit"`
	Name string `json:"name" yaml:"name"`
}

// GatheringCategories lists the gathering mask bits in row order.
func (p *Policy) GatheringCategories() []Category {
	out := make([]Category, 0, len(p.gatherList))
	for _, g := range p.gatherList {
		if g.NpcID == 0 {
			continue
		}
		out = append(out, Category{Bit: g.Row, Name: g.Name})
	}
	return out
}

// AnimalCategories lists the animal mask bits in row order.
func (p *Policy) AnimalCategories() []Category {
	out := make([]Category, 0, len(p.animalList))
	for _, a := range p.animalList {
		if a.DataID == 0 {
			continue
		}
		out = append(out, Category{Bit: a.Row, Name: a.Name})
	}
	return out
}
