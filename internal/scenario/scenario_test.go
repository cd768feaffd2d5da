package scenario

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/policy/island"
)

const islandScenario = `
name: apple tree
language: en
zone:
  territories:
    - { id: 1055, mapId: 772, placeNameId: 2566, intendedUse: 49 }
    - { id: 132, mapId: 2, placeNameId: 54 }
  maps:
    - { id: 772, scale: 100 }
    - { id: 2, scale: 100 }
  placeNames:
    - { id: 2566, names: { en: Unnamed Island } }
steps:
  - territory: 1055
    snapshot:
      player: { x: 0, y: 0, z: 0 }
      camera:
        viewProjection: [1,0,0,0, 0,1,0,0, 0,0,0,0, 0,0,1,0]
        width: 200
        height: 100
      entities:
        - { handle: 1, name: Island Apple Tree, kind: 14, nameId: 2012865, position: { x: 0, y: 0, z: 10 } }
    frames: 3
  - territory: 132
`

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecode(t *testing.T) {
	sc, err := Decode(strings.NewReader(islandScenario))
	require.NoError(t, err)

	assert.Equal(t, "apple tree", sc.Name)
	require.Len(t, sc.Steps, 2)
	require.NotNil(t, sc.Steps[0].Snapshot)
	assert.Len(t, sc.Steps[0].Snapshot.Entities, 1)
	assert.Equal(t, float32(1), sc.Steps[0].Snapshot.Camera.ViewProjection[14])
	assert.Equal(t, 3, sc.Steps[0].Frames)
	assert.Nil(t, sc.Steps[1].Snapshot)
	assert.Len(t, sc.Zone.Territories, 2)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("steps:\n  - frames: -1\n"))
	assert.ErrorContains(t, err, "negative frame count")

	_, err = Decode(strings.NewReader("bogus: true\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(islandScenario), 0o644))

	sc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, sc.Steps, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	config.LoadDefaults()
	tables, err := island.DefaultTables()
	require.NoError(t, err)

	sc, err := Decode(strings.NewReader(islandScenario))
	require.NoError(t, err)

	res, err := Run(context.Background(), sc, config.ViperSource{}, tables, discard())
	require.NoError(t, err)

	require.Len(t, res.Frames, 4)
	first := res.Frames[0]
	assert.Equal(t, uint32(1055), first.Territory)
	require.Len(t, first.Markers, 1)
	assert.Equal(t, "Island Apple Tree, South, 10 Yalm", first.Closest)
	assert.True(t, res.Frames[1].Timestamp.After(first.Timestamp))

	assert.Equal(t, []string{"Detected Island Apple Tree; closest: Island Apple Tree, South, 10 Yalm"}, res.Chats)

	last := res.Frames[3]
	assert.Equal(t, uint32(132), last.Territory)
	assert.Empty(t, last.Markers)
	assert.Equal(t, uint32(132), res.Status.Territory)
	assert.Equal(t, uint64(4), res.Status.Frames)
}

func TestRun_CancelledContext(t *testing.T) {
	config.LoadDefaults()
	sc, err := Decode(strings.NewReader(islandScenario))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, sc, config.ViperSource{}, island.Tables{}, discard())
	assert.ErrorIs(t, err, context.Canceled)
}
