package driver

import (
	"fmt"
	"log/slog"

	"github.com/compassradar/extension/internal/detection"
	"github.com/compassradar/extension/internal/notify"
	"github.com/compassradar/extension/internal/policy/island"
	"github.com/compassradar/extension/internal/quest"
	"github.com/compassradar/extension/internal/render"
	"github.com/compassradar/extension/internal/zone"
)

// Settings is the configuration read on every tick. config.ViperSource
// implements it.
type Settings interface {
	detection.Settings
	island.Source
	notify.Source
}

// Options configure Assemble. Sinks and the cue player may be nil.
type Options struct {
	Provider     zone.Provider
	Tables       island.Tables
	Settings     Settings
	Sink         render.Sink
	Chat         notify.ChatSink
	Toast        notify.ToastSink
	Cue          notify.CuePlayer
	ZoneListener ZoneListener
	Language     string
	Logger       *slog.Logger
}

// Assemble builds the world, zone state, island policy, pipeline, frame
// builder and notifier and wires them into a Service.
func Assemble(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	world := NewWorld()
	zs := zone.NewState(opts.Provider, world, logger)
	pol := island.New(opts.Settings, opts.Tables)

	pipe, err := detection.New(world, zs, opts.Settings, logger, pol)
	if err != nil {
		return nil, fmt.Errorf("creating detection pipeline: %w", err)
	}

	return New(Dependencies{
		World:        world,
		Zone:         zs,
		Pipeline:     pipe,
		Builder:      render.NewBuilder(zs, world, map[string]render.Drawer{pol.Name(): pol}),
		Sink:         opts.Sink,
		Settings:     opts.Settings,
		Notifier:     notify.New(opts.Settings, opts.Chat, opts.Toast, opts.Cue, logger),
		Quests:       &quest.Log{},
		ZoneListener: opts.ZoneListener,
		Language:     opts.Language,
	}, logger), nil
}
