// Package scenario replays recorded host input through the driver without a
// game client. A scenario is a YAML document holding zone data and a list of
// steps; each step changes territory, replaces the snapshot, or both, and
// then runs a number of frames.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/compassradar/extension/internal/driver"
	"github.com/compassradar/extension/internal/policy/island"
	"github.com/compassradar/extension/internal/render"
	"github.com/compassradar/extension/internal/zonedata"
)

// frameInterval is the simulated time between frames.
const frameInterval = time.Second / 60

// Scenario is one replayable session.
type Scenario struct {
	Name     string            `yaml:"name"`
	Language string            `yaml:"language"`
	Start    time.Time         `yaml:"start"`
	Zone     zonedata.SeedData `yaml:"zone"`
	Steps    []Step            `yaml:"steps"`
}

// Step is applied in order: territory first, then the snapshot, then the frames.
type Step struct {
	Territory uint32           `yaml:"territory,omitempty"`
	Snapshot  *driver.Snapshot `yaml:"snapshot,omitempty"`
	// Frames defaults to 1.
	Frames int `yaml:"frames,omitempty"`
}

// Result is everything the driver produced.
type Result struct {
	Frames []render.Frame
	Chats  []string
	Status driver.Status
}

// Decode reads a scenario document. Unknown fields are rejected.
func Decode(r io.Reader) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, errors.New("decoding scenario: empty document")
		}
		return Scenario{}, fmt.Errorf("decoding scenario: %w", err)
	}
	for i, st := range sc.Steps {
		if st.Frames < 0 {
			return Scenario{}, fmt.Errorf("step %d: negative frame count", i)
		}
	}
	return sc, nil
}

// LoadFile reads a scenario from disk.
func LoadFile(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("opening scenario: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// chatLog collects chat and toast messages.
type chatLog struct {
	mu   sync.Mutex
	msgs []string
}

func (c *chatLog) PrintChat(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *chatLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

// Run replays sc against a fresh driver. Toasts and audio cues are not
// simulated.
func Run(ctx context.Context, sc Scenario, settings driver.Settings, tables island.Tables, logger *slog.Logger) (Result, error) {
	provider := zonedata.NewMemory()
	provider.Apply(sc.Zone)

	var (
		frames render.Recorder
		chats  chatLog
	)
	lang := sc.Language
	if lang == "" {
		lang = "en"
	}
	svc, err := driver.Assemble(driver.Options{
		Provider: provider,
		Tables:   tables,
		Settings: settings,
		Sink:     &frames,
		Chat:     &chats,
		Language: lang,
		Logger:   logger,
	})
	if err != nil {
		return Result{}, err
	}
	defer svc.Close()

	now := sc.Start
	if now.IsZero() {
		now = time.Unix(0, 0).UTC()
	}
	for i, st := range sc.Steps {
		if st.Territory != 0 {
			svc.OnTerritory(st.Territory)
		}
		if st.Snapshot != nil {
			svc.World().Update(*st.Snapshot)
		}
		n := st.Frames
		if n == 0 {
			n = 1
		}
		for range n {
			now = now.Add(frameInterval)
			if _, err := svc.Tick(ctx, now); err != nil {
				return Result{}, fmt.Errorf("step %d: %w", i, err)
			}
		}
	}

	return Result{
		Frames: frames.Frames(),
		Chats:  chats.all(),
		Status: svc.Status(),
	}, nil
}
