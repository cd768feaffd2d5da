package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/detection"
	"github.com/compassradar/extension/internal/driver"
)

func sampleStatus() driver.Status {
	return driver.Status{
		Territory: 1055,
		Map:       772,
		Gameplay:  true,
		Frames:    3,
		Stats:     detection.Stats{Ticks: 3, Created: 2, Tracked: 2},
	}
}

func TestStatusPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	line := influxdb2_write.PointToLineProtocol(StatusPoint(sampleStatus(), ts), time.Second)

	assert.True(t, strings.HasPrefix(line, MeasurementStatus+","), line)
	assert.Contains(t, line, "territory=1055")
	assert.Contains(t, line, "map=772")
	assert.Contains(t, line, "gameplay=true")
	assert.Contains(t, line, "frames=3u")
	assert.Contains(t, line, "tracked=2i")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "1700000000"), line)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), filepath.Join(t.TempDir(), "backup.gz"))
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.Valid())
	assert.Error(t, m.WritePoint(StatusPoint(sampleStatus(), time.Now())))
	assert.NoError(t, m.Close())
}

func TestConnect_UnreachableUsesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "compass-metrics",
		Bucket:   "compass_performance",
	}, zerolog.Nop(), path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.Valid())

	require.NoError(t, m.WritePoint(StatusPoint(sampleStatus(), time.Unix(1, 0))))
	require.NoError(t, m.WritePoint(StatusPoint(sampleStatus(), time.Unix(2, 0))))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "territory=1055")
	assert.True(t, strings.HasSuffix(lines[1], "2000000000"), lines[1])
}
